package port

import (
	"image"

	"camcalib/internal/domain/entity"
)

// Rectifier исправляет дисторсию по результату калибровки
type Rectifier interface {
	// OptimalCameraMatrix новая матрица и прямоугольник валидных пикселей; alpha=1 сохраняет все пиксели
	OptimalCameraMatrix(matrix entity.CameraMatrix, distCoeffs []float64, size image.Point, alpha float64) (entity.CameraMatrix, image.Rectangle, error)

	// Undistort исправляет снимок напрямую, без таблиц
	Undistort(src image.Image, matrix entity.CameraMatrix, distCoeffs []float64, newMatrix entity.CameraMatrix) (image.Image, error)

	// BuildRectifyMap строит переиспользуемые таблицы пересчёта для размера size
	BuildRectifyMap(matrix entity.CameraMatrix, distCoeffs []float64, newMatrix entity.CameraMatrix, size image.Point) (RectifyMap, error)
}

// RectifyMap таблицы пересчёта координат (x, y) для каждого пикселя
type RectifyMap interface {
	Size() image.Point
	Remap(src image.Image) (image.Image, error)
	Close() error
}
