package port

import (
	"image"

	"camcalib/internal/domain/entity"
)

// PatternDetector интерфейс детектора шахматной доски
type PatternDetector interface {
	// FindCorners ищет внутренние углы; found=false означает, что доски нет на снимке
	FindCorners(gray *image.Gray, patternSize image.Point) (corners entity.CornerSet, found bool, err error)

	// RefineCorners уточняет углы до субпикселя
	RefineCorners(gray *image.Gray, corners entity.CornerSet, window image.Point, criteria entity.TermCriteria) (entity.CornerSet, error)

	// DrawCorners рисует найденные углы поверх копии снимка
	DrawCorners(img image.Image, patternSize image.Point, corners entity.CornerSet, found bool) (image.Image, error)
}
