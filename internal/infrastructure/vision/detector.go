//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// Detector поиск шахматной доски средствами OpenCV.
type Detector struct {
	Flags gocv.CalibCBFlag
}

// NewDetector создаёт детектор с флагами по умолчанию
func NewDetector() *Detector {
	return &Detector{
		Flags: gocv.CalibCBAdaptiveThresh | gocv.CalibCBNormalizeImage,
	}
}

// FindCorners ищет внутренние углы доски размера patternSize.
func (d *Detector) FindCorners(gray *image.Gray, patternSize image.Point) (entity.CornerSet, bool, error) {
	if err := validateInput(gray, patternSize); err != nil {
		return nil, false, err
	}

	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, false, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	corners := gocv.NewMat()
	defer corners.Close()

	if !gocv.FindChessboardCorners(mat, patternSize, &corners, d.Flags) || corners.Empty() {
		return nil, false, nil
	}
	return matToCorners(corners), true, nil
}

// RefineCorners уточняет углы до субпикселя.
func (d *Detector) RefineCorners(gray *image.Gray, corners entity.CornerSet, window image.Point, criteria entity.TermCriteria) (entity.CornerSet, error) {
	if gray == nil || gray.Bounds().Empty() {
		return nil, errEmptyImage
	}
	if len(corners) == 0 {
		return nil, fmt.Errorf("no corners to refine")
	}
	if window.X <= 0 || window.Y <= 0 {
		return nil, fmt.Errorf("invalid search window %v", window)
	}

	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	cm := cornersToMat(corners)
	defer cm.Close()

	tc := gocv.NewTermCriteria(gocv.MaxIter|gocv.EPS, criteria.MaxIter, criteria.Epsilon)
	gocv.CornerSubPix(mat, &cm, window, image.Pt(-1, -1), tc)

	return matToCorners(cm), nil
}

// DrawCorners рисует углы поверх цветной копии снимка.
func (d *Detector) DrawCorners(img image.Image, patternSize image.Point, corners entity.CornerSet, found bool) (image.Image, error) {
	mat, err := imageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	cm := cornersToMat(corners)
	defer cm.Close()

	gocv.DrawChessboardCorners(&mat, patternSize, cm, found)

	return mat.ToImage()
}

func validateInput(gray *image.Gray, patternSize image.Point) error {
	if gray == nil || gray.Bounds().Empty() {
		return errEmptyImage
	}
	if patternSize.X < 2 || patternSize.Y < 2 {
		return fmt.Errorf("invalid pattern size %v", patternSize)
	}
	return nil
}

var _ port.PatternDetector = (*Detector)(nil)
