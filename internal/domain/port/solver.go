package port

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"camcalib/internal/domain/entity"
)

// CalibrationSolver нелинейная калибровка по набору соответствий.
// Возвращает по одному повороту и переносу на каждый снимок в порядке входа.
type CalibrationSolver interface {
	Solve(ctx context.Context, objectPoints [][]r3.Vector, imagePoints [][]r2.Point, imageSize image.Point) (*entity.Solution, error)
}

// Projector проецирует точки модели через позу и внутренние параметры
type Projector interface {
	Project(points []r3.Vector, rotation, translation entity.Vec3, matrix entity.CameraMatrix, distCoeffs []float64) ([]r2.Point, error)
}
