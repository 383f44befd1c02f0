//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// Enabled сборка без OpenCV
const Enabled = false

var errDisabled = errors.New("gocv build tag is not enabled")

type Detector struct{}

// NewDetector создаёт детектор-заглушку (без OpenCV).
func NewDetector() *Detector {
	return &Detector{}
}

// FindCorners возвращает ошибку, если сборка без тега gocv.
func (d *Detector) FindCorners(gray *image.Gray, patternSize image.Point) (entity.CornerSet, bool, error) {
	return nil, false, errDisabled
}

// RefineCorners возвращает ошибку, если сборка без тега gocv.
func (d *Detector) RefineCorners(gray *image.Gray, corners entity.CornerSet, window image.Point, criteria entity.TermCriteria) (entity.CornerSet, error) {
	return nil, errDisabled
}

// DrawCorners возвращает ошибку, если сборка без тега gocv.
func (d *Detector) DrawCorners(img image.Image, patternSize image.Point, corners entity.CornerSet, found bool) (image.Image, error) {
	return nil, errDisabled
}

type Solver struct{}

// NewSolver создаёт решатель-заглушку.
func NewSolver() *Solver {
	return &Solver{}
}

// Solve возвращает ошибку, если сборка без тега gocv.
func (s *Solver) Solve(ctx context.Context, objectPoints [][]r3.Vector, imagePoints [][]r2.Point, size image.Point) (*entity.Solution, error) {
	return nil, errDisabled
}

type Rectifier struct{}

// NewRectifier создаёт выпрямитель-заглушку.
func NewRectifier() *Rectifier {
	return &Rectifier{}
}

// OptimalCameraMatrix возвращает ошибку, если сборка без тега gocv.
func (r *Rectifier) OptimalCameraMatrix(matrix entity.CameraMatrix, distCoeffs []float64, size image.Point, alpha float64) (entity.CameraMatrix, image.Rectangle, error) {
	return entity.CameraMatrix{}, image.Rectangle{}, errDisabled
}

// Undistort возвращает ошибку, если сборка без тега gocv.
func (r *Rectifier) Undistort(src image.Image, matrix entity.CameraMatrix, distCoeffs []float64, newMatrix entity.CameraMatrix) (image.Image, error) {
	return nil, errDisabled
}

// BuildRectifyMap возвращает ошибку, если сборка без тега gocv.
func (r *Rectifier) BuildRectifyMap(matrix entity.CameraMatrix, distCoeffs []float64, newMatrix entity.CameraMatrix, size image.Point) (port.RectifyMap, error) {
	return nil, errDisabled
}

var (
	_ port.PatternDetector   = (*Detector)(nil)
	_ port.CalibrationSolver = (*Solver)(nil)
	_ port.Rectifier         = (*Rectifier)(nil)
)
