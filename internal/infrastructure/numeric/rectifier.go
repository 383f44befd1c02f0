package numeric

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"golang.org/x/image/draw"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// Rectifier исправление дисторсии без OpenCV.
type Rectifier struct{}

// NewRectifier создаёт выпрямитель.
func NewRectifier() *Rectifier {
	return &Rectifier{}
}

// OptimalCameraMatrix повторяет cv::getOptimalNewCameraMatrix: alpha=0 оставляет
// только валидные пиксели, alpha=1 сохраняет все исходные пиксели.
func (r *Rectifier) OptimalCameraMatrix(matrix entity.CameraMatrix, distCoeffs []float64, size image.Point, alpha float64) (entity.CameraMatrix, image.Rectangle, error) {
	if size.X <= 1 || size.Y <= 1 {
		return entity.CameraMatrix{}, image.Rectangle{}, fmt.Errorf("invalid image size %v", size)
	}
	if len(distCoeffs) != 0 && !entity.ValidDistortionLen(len(distCoeffs)) {
		return entity.CameraMatrix{}, image.Rectangle{}, fmt.Errorf("unsupported distortion vector length %d", len(distCoeffs))
	}

	inner, outer := undistortedBounds(matrix, newDistortion(distCoeffs), size)
	if outer.IsEmpty() || outer.X.Length() == 0 || outer.Y.Length() == 0 {
		return entity.CameraMatrix{}, image.Rectangle{}, fmt.Errorf("%w: degenerate undistorted bounds", entity.ErrNumerical)
	}

	w, h := float64(size.X-1), float64(size.Y-1)

	fx1 := w / outer.X.Length()
	fy1 := h / outer.Y.Length()
	cx1 := -fx1 * outer.X.Lo
	cy1 := -fy1 * outer.Y.Lo

	fx, fy, cx, cy := fx1, fy1, cx1, cy1
	if alpha < 1 && !inner.IsEmpty() && inner.X.Length() > 0 && inner.Y.Length() > 0 {
		fx0 := w / inner.X.Length()
		fy0 := h / inner.Y.Length()
		cx0 := -fx0 * inner.X.Lo
		cy0 := -fy0 * inner.Y.Lo

		fx = fx0*(1-alpha) + fx1*alpha
		fy = fy0*(1-alpha) + fy1*alpha
		cx = cx0*(1-alpha) + cx1*alpha
		cy = cy0*(1-alpha) + cy1*alpha
	}

	newMatrix := entity.NewCameraMatrix(fx, fy, cx, cy)

	var roi image.Rectangle
	if !inner.IsEmpty() {
		x0 := inner.X.Lo*fx + cx
		y0 := inner.Y.Lo*fy + cy
		x1 := inner.X.Hi*fx + cx
		y1 := inner.Y.Hi*fy + cy

		left, top := int(math.Ceil(x0)), int(math.Ceil(y0))
		roi = image.Rect(left, top, left+int(math.Floor(x1-x0)), top+int(math.Floor(y1-y0)))
		roi = roi.Intersect(image.Rect(0, 0, size.X, size.Y))
	}

	return newMatrix, roi, nil
}

// undistortedBounds вписанный и описанный прямоугольники исправленной рамки
// кадра в нормализованных координатах, по сетке 9x9 точек.
func undistortedBounds(matrix entity.CameraMatrix, d distortion, size image.Point) (r2.Rect, r2.Rect) {
	const n = 9

	inner := r2.Rect{
		X: r1.Interval{Lo: math.Inf(-1), Hi: math.Inf(1)},
		Y: r1.Interval{Lo: math.Inf(-1), Hi: math.Inf(1)},
	}
	outer := r2.EmptyRect()

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			u := float64(j) * float64(size.X-1) / (n - 1)
			v := float64(i) * float64(size.Y-1) / (n - 1)
			p := normalizedUndistorted(matrix, d, u, v)
			outer = outer.AddPoint(p)

			if j == 0 {
				inner.X.Lo = math.Max(inner.X.Lo, p.X)
			}
			if j == n-1 {
				inner.X.Hi = math.Min(inner.X.Hi, p.X)
			}
			if i == 0 {
				inner.Y.Lo = math.Max(inner.Y.Lo, p.Y)
			}
			if i == n-1 {
				inner.Y.Hi = math.Min(inner.Y.Hi, p.Y)
			}
		}
	}
	return inner, outer
}

func normalizedUndistorted(matrix entity.CameraMatrix, d distortion, u, v float64) r2.Point {
	y := (v - matrix.Cy()) / matrix.Fy()
	x := (u - matrix.Cx() - matrix[0][1]*y) / matrix.Fx()
	ux, uy := d.invert(x, y)
	return r2.Point{X: ux, Y: uy}
}

// pixelMapper для пикселя исправленного снимка находит точку исходного.
type pixelMapper struct {
	matrix    entity.CameraMatrix
	newMatrix entity.CameraMatrix
	d         distortion
}

func (m pixelMapper) source(u, v float64) (float64, float64) {
	y := (v - m.newMatrix.Cy()) / m.newMatrix.Fy()
	x := (u - m.newMatrix.Cx() - m.newMatrix[0][1]*y) / m.newMatrix.Fx()
	xd, yd := m.d.apply(x, y)
	return m.matrix.Fx()*xd + m.matrix[0][1]*yd + m.matrix.Cx(), m.matrix.Fy()*yd + m.matrix.Cy()
}

func newPixelMapper(matrix entity.CameraMatrix, distCoeffs []float64, newMatrix entity.CameraMatrix) (pixelMapper, error) {
	if len(distCoeffs) != 0 && !entity.ValidDistortionLen(len(distCoeffs)) {
		return pixelMapper{}, fmt.Errorf("unsupported distortion vector length %d", len(distCoeffs))
	}
	if matrix.Fx() == 0 || matrix.Fy() == 0 || newMatrix.Fx() == 0 || newMatrix.Fy() == 0 {
		return pixelMapper{}, fmt.Errorf("%w: zero focal length", entity.ErrNumerical)
	}
	return pixelMapper{matrix: matrix, newMatrix: newMatrix, d: newDistortion(distCoeffs)}, nil
}

// Undistort прямое исправление с билинейной интерполяцией, как cv::undistort.
func (r *Rectifier) Undistort(src image.Image, matrix entity.CameraMatrix, distCoeffs []float64, newMatrix entity.CameraMatrix) (image.Image, error) {
	mapper, err := newPixelMapper(matrix, distCoeffs, newMatrix)
	if err != nil {
		return nil, err
	}

	in := toRGBA(src)
	size := in.Bounds().Size()
	out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))

	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			sx, sy := mapper.source(float64(x), float64(y))
			out.SetRGBA(x, y, sampleBilinear(in, sx, sy))
		}
	}
	return out, nil
}

// BuildRectifyMap строит таблицы один раз для последующих Remap.
func (r *Rectifier) BuildRectifyMap(matrix entity.CameraMatrix, distCoeffs []float64, newMatrix entity.CameraMatrix, size image.Point) (port.RectifyMap, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid image size %v", size)
	}
	mapper, err := newPixelMapper(matrix, distCoeffs, newMatrix)
	if err != nil {
		return nil, err
	}

	m := &rectifyMap{
		size: size,
		mapX: make([]float32, size.X*size.Y),
		mapY: make([]float32, size.X*size.Y),
	}
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			sx, sy := mapper.source(float64(x), float64(y))
			m.mapX[y*size.X+x] = float32(sx)
			m.mapY[y*size.X+x] = float32(sy)
		}
	}
	return m, nil
}

type rectifyMap struct {
	size       image.Point
	mapX, mapY []float32
}

func (m *rectifyMap) Size() image.Point { return m.size }

// Remap применяет таблицы с бикубической интерполяцией.
func (m *rectifyMap) Remap(src image.Image) (image.Image, error) {
	if got := src.Bounds().Size(); got != m.size {
		return nil, fmt.Errorf("image size %v does not match rectify map size %v", got, m.size)
	}

	in := toRGBA(src)
	out := image.NewRGBA(image.Rect(0, 0, m.size.X, m.size.Y))
	for y := 0; y < m.size.Y; y++ {
		for x := 0; x < m.size.X; x++ {
			i := y*m.size.X + x
			out.SetRGBA(x, y, sampleCubic(in, float64(m.mapX[i]), float64(m.mapY[i])))
		}
	}
	return out, nil
}

func (m *rectifyMap) Close() error {
	m.mapX, m.mapY = nil, nil
	return nil
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// fetch пиксель с постоянной чёрной границей.
func fetch(img *image.RGBA, x, y int) [4]float64 {
	b := img.Bounds()
	if x < b.Min.X || y < b.Min.Y || x >= b.Max.X || y >= b.Max.Y {
		return [4]float64{0, 0, 0, 255}
	}
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+4 : i+4]
	return [4]float64{float64(p[0]), float64(p[1]), float64(p[2]), float64(p[3])}
}

func toColor(c [4]float64) color.RGBA {
	clamp := func(v float64) uint8 {
		return uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
	return color.RGBA{R: clamp(c[0]), G: clamp(c[1]), B: clamp(c[2]), A: clamp(c[3])}
}

func sampleBilinear(img *image.RGBA, x, y float64) color.RGBA {
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	var acc [4]float64
	weights := [4]float64{(1 - fx) * (1 - fy), fx * (1 - fy), (1 - fx) * fy, fx * fy}
	offsets := [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for k, o := range offsets {
		p := fetch(img, ix+o[0], iy+o[1])
		for c := range acc {
			acc[c] += weights[k] * p[c]
		}
	}
	return toColor(acc)
}

// cubicWeight ядро Кейса с a=-0.75, как INTER_CUBIC.
func cubicWeight(t float64) float64 {
	const a = -0.75
	t = math.Abs(t)
	switch {
	case t <= 1:
		return ((a+2)*t-(a+3))*t*t + 1
	case t < 2:
		return ((a*t-5*a)*t+8*a)*t - 4*a
	default:
		return 0
	}
}

func sampleCubic(img *image.RGBA, x, y float64) color.RGBA {
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	var wx, wy [4]float64
	for k := 0; k < 4; k++ {
		wx[k] = cubicWeight(fx - float64(k-1))
		wy[k] = cubicWeight(fy - float64(k-1))
	}

	var acc [4]float64
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			p := fetch(img, ix+i-1, iy+j-1)
			w := wx[i] * wy[j]
			for c := range acc {
				acc[c] += w * p[c]
			}
		}
	}
	return toColor(acc)
}

var _ port.Rectifier = (*Rectifier)(nil)
