package numeric

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// Число внутренних параметров в векторе оптимизации:
// fx, fy, cx, cy и пять коэффициентов дисторсии.
const (
	intrinsicParams = 9
	poseParams      = 6
)

// Solver калибровка по Чжану: гомографии, замкнутое решение и уточнение
// Левенбергом-Марквардтом. Поддерживает только плоские мишени.
type Solver struct {
	MaxIterations int
	Epsilon       float64

	log logrus.FieldLogger
}

// NewSolver создаёт решатель с настройками по умолчанию.
func NewSolver(log logrus.FieldLogger) *Solver {
	return &Solver{
		MaxIterations: 30,
		Epsilon:       1e-10,
		log:           log,
	}
}

// Solve оценивает внутренние и внешние параметры камеры.
func (s *Solver) Solve(ctx context.Context, objectPoints [][]r3.Vector, imagePoints [][]r2.Point, size image.Point) (*entity.Solution, error) {
	if err := validateViews(objectPoints, imagePoints, size); err != nil {
		return nil, err
	}

	w, h := float64(size.X), float64(size.Y)
	norm := mat3{
		{2 / w, 0, -1},
		{0, 2 / h, -1},
		{0, 0, 1},
	}

	homographies := make([]mat3, len(objectPoints))
	for v := range objectPoints {
		src := make([]r2.Point, len(objectPoints[v]))
		dst := make([]r2.Point, len(imagePoints[v]))
		for i, p := range objectPoints[v] {
			src[i] = r2.Point{X: p.X, Y: p.Y}
			dst[i] = transform(norm, imagePoints[v][i])
		}

		hm, err := findHomography(src, dst)
		if err != nil {
			return nil, fmt.Errorf("view %d: %w", v, err)
		}
		homographies[v] = hm
	}

	kn, err := intrinsicsFromHomographies(homographies)
	if err != nil {
		return nil, err
	}

	params := make([]float64, intrinsicParams+poseParams*len(objectPoints))
	params[0] = kn[0][0] * w / 2
	params[1] = kn[1][1] * h / 2
	params[2] = (kn[0][2] + 1) * w / 2
	params[3] = (kn[1][2] + 1) * h / 2

	for v, hm := range homographies {
		rvec, tvec, err := poseFromHomography(kn, hm)
		if err != nil {
			return nil, fmt.Errorf("view %d: %w", v, err)
		}
		off := intrinsicParams + poseParams*v
		copy(params[off:off+3], rvec[:])
		copy(params[off+3:off+6], tvec[:])
	}

	problem := newReprojectionProblem(objectPoints, imagePoints)
	initial := problem.cost(params)

	params, cost, err := s.refine(ctx, problem, params)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"views":        len(objectPoints),
		"initial_cost": initial,
		"final_cost":   cost,
	}).Debug("Levenberg-Marquardt refinement finished")

	sol := &entity.Solution{
		RMS:          math.Sqrt(cost / float64(problem.points)),
		CameraMatrix: entity.NewCameraMatrix(params[0], params[1], params[2], params[3]),
		DistCoeffs:   slices.Clone(params[4:intrinsicParams]),
		Rotations:    make([]entity.Vec3, len(objectPoints)),
		Translations: make([]entity.Vec3, len(objectPoints)),
	}
	for v := range objectPoints {
		off := intrinsicParams + poseParams*v
		copy(sol.Rotations[v][:], params[off:off+3])
		copy(sol.Translations[v][:], params[off+3:off+6])
	}
	return sol, nil
}

func validateViews(objectPoints [][]r3.Vector, imagePoints [][]r2.Point, size image.Point) error {
	if len(objectPoints) != len(imagePoints) {
		return fmt.Errorf("%d object point sets for %d image point sets", len(objectPoints), len(imagePoints))
	}
	if len(objectPoints) < 2 {
		return fmt.Errorf("at least 2 views are required, got %d", len(objectPoints))
	}
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("invalid image size %v", size)
	}
	for v := range objectPoints {
		if len(objectPoints[v]) != len(imagePoints[v]) {
			return fmt.Errorf("view %d: %d object points for %d image points", v, len(objectPoints[v]), len(imagePoints[v]))
		}
		if len(objectPoints[v]) < 4 {
			return fmt.Errorf("view %d: at least 4 points are required", v)
		}
		for _, p := range objectPoints[v] {
			if math.Abs(p.Z) > 1e-9 {
				return errors.New("only planar targets (z = 0) are supported")
			}
		}
	}
	return nil
}

// vij строка системы Чжана для столбцов i и j гомографии.
func vij(hm mat3, i, j int) [6]float64 {
	return [6]float64{
		hm[0][i] * hm[0][j],
		hm[0][i]*hm[1][j] + hm[1][i]*hm[0][j],
		hm[1][i] * hm[1][j],
		hm[2][i]*hm[0][j] + hm[0][i]*hm[2][j],
		hm[2][i]*hm[1][j] + hm[1][i]*hm[2][j],
		hm[2][i] * hm[2][j],
	}
}

func unit6(v [6]float64) []float64 {
	n := floats.Norm(v[:], 2)
	out := make([]float64, 6)
	if n == 0 {
		return out
	}
	for i := range v {
		out[i] = v[i] / n
	}
	return out
}

// intrinsicsFromHomographies замкнутое решение для K при нулевом перекосе.
func intrinsicsFromHomographies(homographies []mat3) (mat3, error) {
	rows := 2*len(homographies) + 1
	a := mat.NewDense(rows, 6, nil)
	for k, hm := range homographies {
		v11 := vij(hm, 0, 0)
		v22 := vij(hm, 1, 1)
		var diff [6]float64
		for i := range diff {
			diff[i] = v11[i] - v22[i]
		}
		a.SetRow(2*k, unit6(vij(hm, 0, 1)))
		a.SetRow(2*k+1, unit6(diff))
	}
	a.SetRow(rows-1, []float64{0, 1, 0, 0, 0, 0})

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return mat3{}, errors.New("intrinsic system factorization failed")
	}
	var v mat.Dense
	svd.VTo(&v)

	b11, b12, b22 := v.At(0, 5), v.At(1, 5), v.At(2, 5)
	b13, b23, b33 := v.At(3, 5), v.At(4, 5), v.At(5, 5)

	den := b11*b22 - b12*b12
	if den == 0 || b11 == 0 {
		return mat3{}, errors.New("degenerate view configuration")
	}
	v0 := (b12*b13 - b11*b23) / den
	lambda := b33 - (b13*b13+v0*(b12*b13-b11*b23))/b11
	alpha2 := lambda / b11
	beta2 := lambda * b11 / den
	if !(alpha2 > 0) || !(beta2 > 0) || lambda == 0 {
		return mat3{}, errors.New("degenerate view configuration: views may be parallel")
	}

	alpha := math.Sqrt(alpha2)
	beta := math.Sqrt(beta2)
	u0 := -b13 * alpha2 / lambda

	return mat3{
		{alpha, 0, u0},
		{0, beta, v0},
		{0, 0, 1},
	}, nil
}

// poseFromHomography внешние параметры вида по гомографии и K.
func poseFromHomography(k, hm mat3) (entity.Vec3, entity.Vec3, error) {
	kInv, ok := inv3(k)
	if !ok {
		return entity.Vec3{}, entity.Vec3{}, errors.New("singular camera matrix")
	}

	col := func(i int) [3]float64 { return [3]float64{hm[0][i], hm[1][i], hm[2][i]} }
	a := mulVec3(kInv, col(0))
	b := mulVec3(kInv, col(1))
	c := mulVec3(kInv, col(2))

	scale := 2 / (norm3(a) + norm3(b))
	if c[2]*scale < 0 {
		scale = -scale
	}

	var r1, r2v, t [3]float64
	for i := 0; i < 3; i++ {
		r1[i] = a[i] * scale
		r2v[i] = b[i] * scale
		t[i] = c[i] * scale
	}
	r3v := cross3(r1, r2v)

	q := mat.NewDense(3, 3, []float64{
		r1[0], r2v[0], r3v[0],
		r1[1], r2v[1], r3v[1],
		r1[2], r2v[2], r3v[2],
	})
	rot, err := nearestRotation(q)
	if err != nil {
		return entity.Vec3{}, entity.Vec3{}, err
	}

	return RotationVector(rot), entity.Vec3(t), nil
}

// nearestRotation ближайшая по Фробениусу ортогональная матрица с det=+1.
func nearestRotation(q *mat.Dense) (mat3, error) {
	var svd mat.SVD
	if !svd.Factorize(q, mat.SVDFull) {
		return mat3{}, errors.New("rotation orthonormalization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}

	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r.At(i, j)
		}
	}
	return out, nil
}

// reprojectionProblem невязки обратного проецирования для всех видов разом.
type reprojectionProblem struct {
	objectPoints [][]r3.Vector
	imagePoints  [][]r2.Point
	points       int
}

func newReprojectionProblem(objectPoints [][]r3.Vector, imagePoints [][]r2.Point) *reprojectionProblem {
	p := &reprojectionProblem{objectPoints: objectPoints, imagePoints: imagePoints}
	for _, view := range imagePoints {
		p.points += len(view)
	}
	return p
}

func (p *reprojectionProblem) residuals(y, x []float64) {
	m := entity.NewCameraMatrix(x[0], x[1], x[2], x[3])
	d := newDistortion(x[4:intrinsicParams])

	k := 0
	for v, view := range p.objectPoints {
		off := intrinsicParams + poseParams*v
		rot := Rodrigues(entity.Vec3{x[off], x[off+1], x[off+2]})
		t := entity.Vec3{x[off+3], x[off+4], x[off+5]}
		for i, pt := range view {
			proj := projectPoint(pt, rot, t, m, d)
			y[k] = proj.X - p.imagePoints[v][i].X
			y[k+1] = proj.Y - p.imagePoints[v][i].Y
			k += 2
		}
	}
}

func (p *reprojectionProblem) cost(x []float64) float64 {
	r := make([]float64, 2*p.points)
	p.residuals(r, x)
	return floats.Dot(r, r)
}

// refine минимизирует сумму квадратов невязок с демпфированием Марквардта.
func (s *Solver) refine(ctx context.Context, p *reprojectionProblem, x0 []float64) ([]float64, float64, error) {
	m, n := 2*p.points, len(x0)

	x := slices.Clone(x0)
	r := make([]float64, m)
	p.residuals(r, x)
	cost := floats.Dot(r, r)

	jac := mat.NewDense(m, n, nil)
	settings := &fd.JacobianSettings{Formula: fd.Central}
	lambda := 1e-3

	for iter := 0; iter < s.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		fd.Jacobian(jac, p.residuals, x, settings)

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var g mat.VecDense
		g.MulVec(jac.T(), mat.NewVecDense(m, r))
		if mat.Norm(&g, math.Inf(1)) < 1e-12 {
			break
		}

		improved, converged := false, false
		for attempt := 0; attempt < 10 && !improved; attempt++ {
			a := mat.NewSymDense(n, nil)
			for i := 0; i < n; i++ {
				for j := i; j < n; j++ {
					val := jtj.At(i, j)
					if i == j {
						val += lambda * math.Max(val, 1e-9)
					}
					a.SetSym(i, j, val)
				}
			}

			var chol mat.Cholesky
			if !chol.Factorize(a) {
				lambda *= 10
				continue
			}
			var delta mat.VecDense
			if err := chol.SolveVecTo(&delta, &g); err != nil {
				lambda *= 10
				continue
			}

			candidate := make([]float64, n)
			for i := range x {
				candidate[i] = x[i] - delta.AtVec(i)
			}
			rc := make([]float64, m)
			p.residuals(rc, candidate)
			cc := floats.Dot(rc, rc)

			if math.IsNaN(cc) || cc >= cost {
				lambda *= 10
				continue
			}

			converged = (cost-cc)/math.Max(cost, 1e-300) < s.Epsilon
			x, r, cost = candidate, rc, cc
			lambda = math.Max(lambda/10, 1e-12)
			improved = true
		}

		if !improved || converged {
			break
		}
	}

	return x, cost, nil
}

var _ port.CalibrationSolver = (*Solver)(nil)
