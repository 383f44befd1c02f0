//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// Rectifier исправление дисторсии средствами OpenCV.
type Rectifier struct{}

// NewRectifier создаёт выпрямитель OpenCV
func NewRectifier() *Rectifier {
	return &Rectifier{}
}

// OptimalCameraMatrix обёртка над getOptimalNewCameraMatrix.
func (r *Rectifier) OptimalCameraMatrix(matrix entity.CameraMatrix, distCoeffs []float64, size image.Point, alpha float64) (entity.CameraMatrix, image.Rectangle, error) {
	if size.X <= 1 || size.Y <= 1 {
		return entity.CameraMatrix{}, image.Rectangle{}, fmt.Errorf("invalid image size %v", size)
	}
	if err := validateModel(matrix, distCoeffs); err != nil {
		return entity.CameraMatrix{}, image.Rectangle{}, err
	}

	k := cameraMatrixToMat(matrix)
	defer k.Close()
	dist := distToMat(distCoeffs)
	defer dist.Close()

	newK, roi := gocv.GetOptimalNewCameraMatrixWithParams(k, dist, size, alpha, size, false)
	defer newK.Close()

	return matToCameraMatrix(newK), roi, nil
}

// Undistort прямое исправление через cv::undistort.
func (r *Rectifier) Undistort(src image.Image, matrix entity.CameraMatrix, distCoeffs []float64, newMatrix entity.CameraMatrix) (image.Image, error) {
	if err := validateModel(matrix, distCoeffs); err != nil {
		return nil, err
	}

	in, err := imageToMat(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	k := cameraMatrixToMat(matrix)
	defer k.Close()
	dist := distToMat(distCoeffs)
	defer dist.Close()
	newK := cameraMatrixToMat(newMatrix)
	defer newK.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.Undistort(in, &out, k, dist, newK)

	return out.ToImage()
}

// BuildRectifyMap строит таблицы через initUndistortRectifyMap.
func (r *Rectifier) BuildRectifyMap(matrix entity.CameraMatrix, distCoeffs []float64, newMatrix entity.CameraMatrix, size image.Point) (port.RectifyMap, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid image size %v", size)
	}
	if err := validateModel(matrix, distCoeffs); err != nil {
		return nil, err
	}

	k := cameraMatrixToMat(matrix)
	defer k.Close()
	dist := distToMat(distCoeffs)
	defer dist.Close()
	newK := cameraMatrixToMat(newMatrix)
	defer newK.Close()
	eye := gocv.Eye(3, 3, gocv.MatTypeCV64F)
	defer eye.Close()

	m := &rectifyMap{size: size, mapX: gocv.NewMat(), mapY: gocv.NewMat()}
	gocv.InitUndistortRectifyMap(k, dist, eye, newK, size, int(gocv.MatTypeCV32FC1), m.mapX, m.mapY)
	if m.mapX.Empty() || m.mapY.Empty() {
		m.Close()
		return nil, fmt.Errorf("initUndistortRectifyMap returned empty maps")
	}
	return m, nil
}

type rectifyMap struct {
	size       image.Point
	mapX, mapY gocv.Mat
}

func (m *rectifyMap) Size() image.Point { return m.size }

// Remap применяет таблицы с бикубической интерполяцией.
func (m *rectifyMap) Remap(src image.Image) (image.Image, error) {
	if got := src.Bounds().Size(); got != m.size {
		return nil, fmt.Errorf("image size %v does not match rectify map size %v", got, m.size)
	}

	in, err := imageToMat(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.Remap(in, &out, &m.mapX, &m.mapY, gocv.InterpolationCubic, gocv.BorderConstant, color.RGBA{})

	return out.ToImage()
}

func (m *rectifyMap) Close() error {
	if err := m.mapX.Close(); err != nil {
		return err
	}
	return m.mapY.Close()
}

func validateModel(matrix entity.CameraMatrix, distCoeffs []float64) error {
	if len(distCoeffs) != 0 && !entity.ValidDistortionLen(len(distCoeffs)) {
		return fmt.Errorf("unsupported distortion vector length %d", len(distCoeffs))
	}
	if matrix.Fx() == 0 || matrix.Fy() == 0 {
		return fmt.Errorf("%w: zero focal length", entity.ErrNumerical)
	}
	return nil
}

var _ port.Rectifier = (*Rectifier)(nil)
