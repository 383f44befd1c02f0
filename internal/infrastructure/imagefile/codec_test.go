package imagefile

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func gradient(r image.Rectangle) *image.RGBA {
	img := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 100, A: 255})
		}
	}
	return img
}

func TestCodec_RoundTripLossless(t *testing.T) {
	c := NewCodec()
	src := gradient(image.Rect(0, 0, 32, 24))

	for _, format := range []string{"png", ".bmp", "tiff"} {
		data, err := c.Encode(src, format)
		require.NoError(t, err, format)

		img, _, err := c.Decode(data)
		require.NoError(t, err, format)
		require.Equal(t, src.Bounds(), img.Bounds(), format)

		r, g, b, _ := img.At(5, 7).RGBA()
		require.Equal(t, uint32(20), r>>8, format)
		require.Equal(t, uint32(28), g>>8, format)
		require.Equal(t, uint32(100), b>>8, format)
	}
}

func TestCodec_JPEG(t *testing.T) {
	c := NewCodec()

	data, err := c.Encode(gradient(image.Rect(0, 0, 16, 16)), ".JPG")
	require.NoError(t, err)

	_, format, err := c.Decode(data)
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
}

func TestCodec_Errors(t *testing.T) {
	c := NewCodec()

	_, err := c.Encode(gradient(image.Rect(0, 0, 4, 4)), "xcf")
	require.Error(t, err)

	_, _, err = c.Decode(nil)
	require.Error(t, err)

	_, _, err = c.Decode([]byte("definitely not an image"))
	require.Error(t, err)
}

func TestCodec_ToGrayscaleMovesOrigin(t *testing.T) {
	src := gradient(image.Rect(10, 10, 30, 20))

	gray := NewCodec().ToGrayscale(src)
	require.Equal(t, image.Rect(0, 0, 20, 10), gray.Bounds())

	already := image.NewGray(image.Rect(0, 0, 3, 3))
	require.Same(t, already, NewCodec().ToGrayscale(already))
}

func TestFormatForPath(t *testing.T) {
	require.Equal(t, "jpeg", FormatForPath("a/b/image_1.jpg"))
	require.Equal(t, "png", FormatForPath("x.PNG"))
	require.Equal(t, "tiff", FormatForPath("scan.tif"))
	require.Equal(t, "jpeg", FormatForPath("noext"))
}
