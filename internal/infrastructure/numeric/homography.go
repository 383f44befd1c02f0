package numeric

import (
	"errors"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

var errDegenerateView = errors.New("degenerate view: points are collinear or coincident")

// hartley сдвигает центр масс точек в ноль и масштабирует среднее расстояние до sqrt(2).
func hartley(points []r2.Point) (mat3, error) {
	var c r2.Point
	for _, p := range points {
		c = c.Add(p)
	}
	c = c.Mul(1 / float64(len(points)))

	var mean float64
	for _, p := range points {
		mean += p.Sub(c).Norm()
	}
	mean /= float64(len(points))
	if mean < 1e-12 {
		return mat3{}, errDegenerateView
	}

	s := math.Sqrt2 / mean
	return mat3{
		{s, 0, -s * c.X},
		{0, s, -s * c.Y},
		{0, 0, 1},
	}, nil
}

func transform(t mat3, p r2.Point) r2.Point {
	v := mulVec3(t, [3]float64{p.X, p.Y, 1})
	return r2.Point{X: v[0] / v[2], Y: v[1] / v[2]}
}

// findHomography DLT-оценка гомографии src -> dst по четырём и более точкам.
func findHomography(src, dst []r2.Point) (mat3, error) {
	n := len(src)
	if n < 4 || n != len(dst) {
		return mat3{}, errDegenerateView
	}

	ts, err := hartley(src)
	if err != nil {
		return mat3{}, err
	}
	td, err := hartley(dst)
	if err != nil {
		return mat3{}, err
	}

	a := mat.NewDense(2*n, 9, nil)
	for i := range src {
		p := transform(ts, src[i])
		q := transform(td, dst[i])
		a.SetRow(2*i, []float64{-p.X, -p.Y, -1, 0, 0, 0, q.X * p.X, q.X * p.Y, q.X})
		a.SetRow(2*i+1, []float64{0, 0, 0, -p.X, -p.Y, -1, q.Y * p.X, q.Y * p.Y, q.Y})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return mat3{}, errDegenerateView
	}
	values := svd.Values(nil)
	if len(values) == 9 && (values[0] == 0 || values[7]/values[0] < 1e-10) {
		return mat3{}, errDegenerateView
	}

	var v mat.Dense
	svd.VTo(&v)
	hn := mat3{
		{v.At(0, 8), v.At(1, 8), v.At(2, 8)},
		{v.At(3, 8), v.At(4, 8), v.At(5, 8)},
		{v.At(6, 8), v.At(7, 8), v.At(8, 8)},
	}

	tdInv, ok := inv3(td)
	if !ok {
		return mat3{}, errDegenerateView
	}
	h := mul3(mul3(tdInv, hn), ts)
	if math.Abs(h[2][2]) > 1e-15 {
		scale := 1 / h[2][2]
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				h[i][j] *= scale
			}
		}
	}
	return h, nil
}
