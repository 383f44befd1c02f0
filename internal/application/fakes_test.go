package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// Поведение фейкового детектора кодируется яркостью пикселя (0, 0).
const (
	codeFound uint8 = iota + 1
	codeMissing
	codeRefineFail
	codeDetectorError
	codeWrongCount
)

func newTestLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func testPattern() *entity.PatternGeometry {
	p, err := entity.NewPatternGeometry(9, 6, 1)
	if err != nil {
		panic(err)
	}
	return p
}

// photo байты снимка для фейкового кодека: код поведения и размер.
func photo(code uint8, size image.Point) []byte {
	return []byte{code, byte(size.X / 10), byte(size.Y / 10)}
}

type fakeSource struct{}

func (fakeSource) Read(img entity.CalibrationImage) ([]byte, error) {
	if img.Data == nil {
		return nil, errors.New("no such file")
	}
	return img.Data, nil
}

type fakeCodec struct{}

func (fakeCodec) Decode(data []byte) (image.Image, string, error) {
	if len(data) != 3 {
		return nil, "", errors.New("not an image")
	}
	img := image.NewRGBA(image.Rect(0, 0, int(data[1])*10, int(data[2])*10))
	img.SetRGBA(0, 0, color.RGBA{R: data[0], G: data[0], B: data[0], A: 255})
	return img, "fake", nil
}

func (fakeCodec) Encode(img image.Image, format string) ([]byte, error) {
	b := img.Bounds()
	return []byte{byte(b.Dx() / 10), byte(b.Dy() / 10)}, nil
}

func (fakeCodec) ToGrayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	r, _, _, _ := img.At(b.Min.X, b.Min.Y).RGBA()
	gray.SetGray(0, 0, color.Gray{Y: uint8(r >> 8)})
	return gray
}

type fakeDetector struct{}

func gridCorners(n int) entity.CornerSet {
	out := make(entity.CornerSet, n)
	for i := range out {
		out[i] = r2.Point{X: float64(100 + 20*(i%9)), Y: float64(80 + 20*(i/9))}
	}
	return out
}

func (fakeDetector) FindCorners(gray *image.Gray, patternSize image.Point) (entity.CornerSet, bool, error) {
	switch gray.GrayAt(0, 0).Y {
	case codeMissing:
		return nil, false, nil
	case codeDetectorError:
		return nil, false, errors.New("detector crashed")
	case codeWrongCount:
		return gridCorners(10), true, nil
	default:
		return gridCorners(patternSize.X * patternSize.Y), true, nil
	}
}

func (fakeDetector) RefineCorners(gray *image.Gray, corners entity.CornerSet, window image.Point, criteria entity.TermCriteria) (entity.CornerSet, error) {
	if gray.GrayAt(0, 0).Y == codeRefineFail {
		return nil, errors.New("did not converge")
	}
	out := make(entity.CornerSet, len(corners))
	for i, p := range corners {
		out[i] = r2.Point{X: p.X + 0.25, Y: p.Y + 0.25}
	}
	return out, nil
}

func (fakeDetector) DrawCorners(img image.Image, patternSize image.Point, corners entity.CornerSet, found bool) (image.Image, error) {
	return img, nil
}

type recordingObserver struct {
	names []string
	err   error
}

func (o *recordingObserver) ObserveView(img entity.CalibrationImage, decoded image.Image, patternSize image.Point, corners entity.CornerSet) error {
	o.names = append(o.names, img.Name)
	return o.err
}

// fakeSolver возвращает фиксированную камеру и позу на каждый вид.
type fakeSolver struct {
	mu    sync.Mutex
	calls int
	err   error
	fx    float64
}

func (s *fakeSolver) Solve(ctx context.Context, objectPoints [][]r3.Vector, imagePoints [][]r2.Point, size image.Point) (*entity.Solution, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	fx := s.fx
	if fx == 0 {
		fx = 800
	}
	sol := &entity.Solution{
		RMS:          0.5,
		CameraMatrix: entity.NewCameraMatrix(fx, fx, float64(size.X)/2, float64(size.Y)/2),
		DistCoeffs:   []float64{0, 0, 0, 0, 0},
	}
	for range objectPoints {
		sol.Rotations = append(sol.Rotations, entity.Vec3{})
		sol.Translations = append(sol.Translations, entity.Vec3{-4, -2.5, 15})
	}
	return sol, nil
}

func (s *fakeSolver) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeStore struct {
	saved   *entity.CalibrationResult
	loaded  *entity.CalibrationResult
	saveErr error
	loadErr error
}

func (s *fakeStore) Save(r *entity.CalibrationResult) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = r
	return nil
}

func (s *fakeStore) Load() (*entity.CalibrationResult, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.loaded, nil
}

var (
	_ port.ImageSource       = fakeSource{}
	_ port.ImageCodec        = fakeCodec{}
	_ port.PatternDetector   = fakeDetector{}
	_ port.ViewObserver      = (*recordingObserver)(nil)
	_ port.CalibrationSolver = (*fakeSolver)(nil)
	_ port.ResultStore       = (*fakeStore)(nil)
)
