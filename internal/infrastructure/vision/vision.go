//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"image"

	"gocv.io/x/gocv"

	"camcalib/internal/domain/entity"
)

// Enabled сборка с OpenCV
const Enabled = true

var errEmptyImage = errors.New("empty image")

func cameraMatrixToMat(m entity.CameraMatrix) gocv.Mat {
	mat := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			mat.SetDoubleAt(i, j, m[i][j])
		}
	}
	return mat
}

func matToCameraMatrix(mat gocv.Mat) entity.CameraMatrix {
	var m entity.CameraMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = mat.GetDoubleAt(i, j)
		}
	}
	return m
}

// distToMat строка 1xN из коэффициентов; пустой вектор даёт пустую матрицу.
func distToMat(dist []float64) gocv.Mat {
	if len(dist) == 0 {
		return gocv.NewMat()
	}
	mat := gocv.NewMatWithSize(1, len(dist), gocv.MatTypeCV64F)
	for i, v := range dist {
		mat.SetDoubleAt(0, i, v)
	}
	return mat
}

func matToDist(mat gocv.Mat) []float64 {
	n := mat.Total()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if mat.Rows() == 1 {
			out[i] = mat.GetDoubleAt(0, i)
		} else {
			out[i] = mat.GetDoubleAt(i, 0)
		}
	}
	return out
}

// cornersToMat углы в формате OpenCV: Nx1, CV_32FC2.
func cornersToMat(corners entity.CornerSet) gocv.Mat {
	mat := gocv.NewMatWithSize(len(corners), 1, gocv.MatTypeCV32FC2)
	for i, p := range corners {
		mat.SetFloatAt(i, 0, float32(p.X))
		mat.SetFloatAt(i, 1, float32(p.Y))
	}
	return mat
}

func matToCorners(mat gocv.Mat) entity.CornerSet {
	n := mat.Rows()
	out := make(entity.CornerSet, n)
	for i := 0; i < n; i++ {
		out[i].X = float64(mat.GetFloatAt(i, 0))
		out[i].Y = float64(mat.GetFloatAt(i, 1))
	}
	return out
}

func imageToMat(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errEmptyImage
	}
	return mat, nil
}
