package imagefile

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"camcalib/internal/domain/port"
)

// Codec кодирует и декодирует снимки стандартными кодеками Go
type Codec struct {
	JPEGQuality int
}

// NewCodec создаёт кодек с качеством JPEG 90
func NewCodec() *Codec {
	return &Codec{JPEGQuality: 90}
}

// Decode определяет формат по содержимому
func (c *Codec) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errors.New("empty image data")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Encode кодирует в формат по имени или расширению (".jpg", "png", ...)
func (c *Codec) Encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch normalizeFormat(format) {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.JPEGQuality})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// ToGrayscale переводит снимок в яркость, начало координат в (0, 0)
func (c *Codec) ToGrayscale(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok && gray.Bounds().Min == (image.Point{}) {
		return gray
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// FormatForPath формат вывода по расширению файла; jpeg по умолчанию.
func FormatForPath(path string) string {
	if f := normalizeFormat(filepath.Ext(path)); f != "" {
		return f
	}
	return "jpeg"
}

func normalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "jpg", "jpeg":
		return "jpeg"
	case "png":
		return "png"
	case "gif":
		return "gif"
	case "bmp":
		return "bmp"
	case "tif", "tiff":
		return "tiff"
	default:
		return ""
	}
}

var _ port.ImageCodec = (*Codec)(nil)
