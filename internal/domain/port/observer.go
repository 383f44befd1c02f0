package port

import (
	"image"

	"camcalib/internal/domain/entity"
)

// ViewObserver получает каждый снимок, на котором нашлась доска.
// Ошибка наблюдателя только логируется и не влияет на калибровку.
type ViewObserver interface {
	ObserveView(img entity.CalibrationImage, decoded image.Image, patternSize image.Point, corners entity.CornerSet) error
}
