//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gocv.io/x/gocv"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// Solver калибровка через cv::calibrateCamera.
type Solver struct{}

// NewSolver создаёт решатель OpenCV
func NewSolver() *Solver {
	return &Solver{}
}

// Solve вызывает calibrateCamera без начального приближения и ограничений.
// OpenCV бросает исключения на несогласованных входах, поэтому входы проверяются заранее.
func (s *Solver) Solve(ctx context.Context, objectPoints [][]r3.Vector, imagePoints [][]r2.Point, size image.Point) (*entity.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(objectPoints) == 0 || len(objectPoints) != len(imagePoints) {
		return nil, fmt.Errorf("%d object point sets for %d image point sets", len(objectPoints), len(imagePoints))
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid image size %v", size)
	}

	objVec := gocv.NewPoints3fVector()
	defer objVec.Close()
	imgVec := gocv.NewPoints2fVector()
	defer imgVec.Close()

	for v := range objectPoints {
		if len(objectPoints[v]) != len(imagePoints[v]) || len(objectPoints[v]) < 4 {
			return nil, fmt.Errorf("view %d: %d object points for %d image points", v, len(objectPoints[v]), len(imagePoints[v]))
		}

		obj := make([]gocv.Point3f, len(objectPoints[v]))
		for i, p := range objectPoints[v] {
			obj[i] = gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
		}
		img := make([]gocv.Point2f, len(imagePoints[v]))
		for i, p := range imagePoints[v] {
			img[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
		}

		ov := gocv.NewPoint3fVectorFromPoints(obj)
		objVec.Append(ov)
		ov.Close()

		iv := gocv.NewPoint2fVectorFromPoints(img)
		imgVec.Append(iv)
		iv.Close()
	}

	k := gocv.NewMat()
	defer k.Close()
	dist := gocv.NewMat()
	defer dist.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(objVec, imgVec, size, &k, &dist, &rvecs, &tvecs, gocv.CalibFlag(0))
	if math.IsNaN(rms) || k.Empty() {
		return nil, fmt.Errorf("calibrateCamera returned no solution")
	}

	sol := &entity.Solution{
		RMS:          rms,
		CameraMatrix: matToCameraMatrix(k),
		DistCoeffs:   matToDist(dist),
		Rotations:    readVecs(rvecs),
		Translations: readVecs(tvecs),
	}
	return sol, nil
}

func readVecs(mat gocv.Mat) []entity.Vec3 {
	out := make([]entity.Vec3, mat.Rows())
	for i := range out {
		v := mat.GetVecdAt(i, 0)
		if len(v) >= 3 {
			out[i] = entity.Vec3{v[0], v[1], v[2]}
		}
	}
	return out
}

var _ port.CalibrationSolver = (*Solver)(nil)
