package port

import (
	"image"

	"camcalib/internal/domain/entity"
)

// ImageSource читает байты снимка по ссылке
type ImageSource interface {
	Read(img entity.CalibrationImage) ([]byte, error)
}

// ImageCodec кодирует и декодирует изображения
type ImageCodec interface {
	// Decode возвращает изображение и имя формата (jpeg, png, ...)
	Decode(data []byte) (image.Image, string, error)

	// Encode кодирует изображение в указанный формат
	Encode(img image.Image, format string) ([]byte, error)

	// ToGrayscale переводит изображение в один канал яркости
	ToGrayscale(img image.Image) *image.Gray
}
