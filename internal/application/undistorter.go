package app

import (
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// Method способ исправления дисторсии
type Method string

const (
	MethodDirect Method = "direct" // cv::undistort, билинейная интерполяция
	MethodRemap  Method = "remap"  // таблицы пересчёта, бикубическая интерполяция
)

// ParseMethod разбирает название способа; пустая строка означает direct.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodDirect:
		return MethodDirect, nil
	case MethodRemap:
		return MethodRemap, nil
	default:
		return "", fmt.Errorf("unknown undistortion method %q", s)
	}
}

// ResultProvider источник текущего результата калибровки
type ResultProvider interface {
	Result() (*entity.CalibrationResult, bool)
}

// Undistorter исправляет новые снимки по текущему результату.
// Ошибки не возвращаются: при любой проблеме ответ (nil, false), причина пишется в лог.
type Undistorter struct {
	results   ResultProvider
	rectifier port.Rectifier
	source    port.ImageSource
	codec     port.ImageCodec
	log       logrus.FieldLogger

	mu    sync.Mutex
	cache *remapCache
}

type remapCache struct {
	result *entity.CalibrationResult
	size   image.Point
	roi    image.Rectangle
	m      port.RectifyMap
}

func NewUndistorter(results ResultProvider, rectifier port.Rectifier, source port.ImageSource, codec port.ImageCodec, log logrus.FieldLogger) *Undistorter {
	return &Undistorter{
		results:   results,
		rectifier: rectifier,
		source:    source,
		codec:     codec,
		log:       log,
	}
}

// UndistortImage читает и декодирует снимок, затем исправляет его.
// Нечитаемый или битый снимок даёт (nil, false), как и остальные отказы.
func (u *Undistorter) UndistortImage(img entity.CalibrationImage, method Method) (image.Image, bool) {
	log := u.log.WithField("image", img.Name)

	data, err := u.source.Read(img)
	if err != nil {
		log.WithError(err).Warn("source image is unreadable")
		return nil, false
	}
	decoded, _, err := u.codec.Decode(data)
	if err != nil {
		log.WithError(err).Warn("source image cannot be decoded")
		return nil, false
	}
	return u.Undistort(decoded, method)
}

// Undistort исправляет снимок выбранным способом.
func (u *Undistorter) Undistort(src image.Image, method Method) (image.Image, bool) {
	if method == MethodRemap {
		return u.Remap(src)
	}
	return u.Direct(src)
}

// Direct исправляет снимок напрямую и обрезает по области валидных пикселей.
func (u *Undistorter) Direct(src image.Image) (image.Image, bool) {
	result, size, ok := u.prepare(src)
	if !ok {
		return nil, false
	}

	newMatrix, roi, err := u.rectifier.OptimalCameraMatrix(result.CameraMatrix(), result.DistCoeffs(), size, 1)
	if err != nil {
		u.log.WithError(err).Warn("optimal camera matrix failed")
		return nil, false
	}
	if roi.Empty() {
		u.log.Warn("valid pixel region is empty")
		return nil, false
	}

	out, err := u.rectifier.Undistort(src, result.CameraMatrix(), result.DistCoeffs(), newMatrix)
	if err != nil {
		u.log.WithError(err).Warn("undistort failed")
		return nil, false
	}
	return crop(out, roi), true
}

// Remap исправляет снимок по таблицам. Таблицы строятся один раз на пару
// (результат, размер) и переиспользуются.
func (u *Undistorter) Remap(src image.Image) (image.Image, bool) {
	result, size, ok := u.prepare(src)
	if !ok {
		return nil, false
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.cache == nil || u.cache.result != result || u.cache.size != size {
		c, err := u.buildCache(result, size)
		if err != nil {
			u.log.WithError(err).Warn("rectify map build failed")
			return nil, false
		}
		u.replaceCache(c)
	}
	if u.cache.roi.Empty() {
		u.log.Warn("valid pixel region is empty")
		return nil, false
	}

	out, err := u.cache.m.Remap(src)
	if err != nil {
		u.log.WithError(err).Warn("remap failed")
		return nil, false
	}
	return crop(out, u.cache.roi), true
}

// Close освобождает таблицы пересчёта.
func (u *Undistorter) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.cache == nil {
		return nil
	}
	err := u.cache.m.Close()
	u.cache = nil
	return err
}

func (u *Undistorter) prepare(src image.Image) (*entity.CalibrationResult, image.Point, bool) {
	result, ok := u.results.Result()
	if !ok {
		u.log.Warn(entity.ErrNotCalibrated.Error())
		return nil, image.Point{}, false
	}
	if src == nil {
		u.log.Warn("source image is missing")
		return nil, image.Point{}, false
	}
	size := src.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		u.log.Warn("source image is empty")
		return nil, image.Point{}, false
	}
	return result, size, true
}

func (u *Undistorter) buildCache(result *entity.CalibrationResult, size image.Point) (*remapCache, error) {
	newMatrix, roi, err := u.rectifier.OptimalCameraMatrix(result.CameraMatrix(), result.DistCoeffs(), size, 1)
	if err != nil {
		return nil, err
	}
	m, err := u.rectifier.BuildRectifyMap(result.CameraMatrix(), result.DistCoeffs(), newMatrix, size)
	if err != nil {
		return nil, err
	}

	u.log.WithField("size", size).Debug("rectify map built")
	return &remapCache{result: result, size: size, roi: roi, m: m}, nil
}

func (u *Undistorter) replaceCache(c *remapCache) {
	if u.cache != nil {
		if err := u.cache.m.Close(); err != nil {
			u.log.WithError(err).Warn("failed to release rectify map")
		}
	}
	u.cache = c
}

// crop копирует прямоугольник r (в координатах от начала снимка) в новый снимок.
func crop(img image.Image, r image.Rectangle) image.Image {
	b := img.Bounds()
	r = r.Add(b.Min).Intersect(b)

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
