package app

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// CornerExtractor превращает снимки в соответствия точек шаблона и углов.
type CornerExtractor struct {
	pattern  *entity.PatternGeometry
	source   port.ImageSource
	codec    port.ImageCodec
	detector port.PatternDetector
	observer port.ViewObserver
	window   image.Point
	criteria entity.TermCriteria
	log      logrus.FieldLogger
}

// NewCornerExtractor создаёт извлекатель с окном 6x6 и критерием 30 итераций / 0.001.
func NewCornerExtractor(pattern *entity.PatternGeometry, source port.ImageSource, codec port.ImageCodec, detector port.PatternDetector, log logrus.FieldLogger) *CornerExtractor {
	return &CornerExtractor{
		pattern:  pattern,
		source:   source,
		codec:    codec,
		detector: detector,
		window:   entity.DefaultSubPixWindow,
		criteria: entity.DefaultSubPixCriteria,
		log:      log,
	}
}

// SetObserver подключает наблюдателя за удачными снимками, nil отключает.
func (e *CornerExtractor) SetObserver(o port.ViewObserver) {
	e.observer = o
}

// Pattern геометрия мишени
func (e *CornerExtractor) Pattern() *entity.PatternGeometry {
	return e.pattern
}

type extractedView struct {
	size     image.Point
	corners  entity.CornerSet
	fallback bool
}

// Extract обрабатывает снимки строго по порядку. Снимки без доски и
// нечитаемые файлы пропускаются; ошибка самого детектора прерывает запуск.
func (e *CornerExtractor) Extract(ctx context.Context, images []entity.CalibrationImage) (*entity.Correspondences, error) {
	template := e.pattern.Points()
	out := &entity.Correspondences{
		Stats: entity.ExtractionStats{Input: len(images)},
	}

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log := e.log.WithField("image", img.Name)
		view, err := e.extractView(img)

		if view.size != (image.Point{}) {
			if out.Stats.Decoded > 0 && view.size != out.ImageSize {
				log.WithFields(logrus.Fields{
					"size":     view.size,
					"previous": out.ImageSize,
				}).Warn("image size differs from previous image, using the latest")
			}
			out.ImageSize = view.size
			out.Stats.Decoded++
		}

		switch {
		case err == nil:
		case errors.Is(err, entity.ErrLoad):
			out.Stats.LoadFailed++
			log.WithError(err).Warn("skipping unreadable image")
			continue
		case errors.Is(err, entity.ErrPatternNotFound):
			out.Stats.NotFound++
			log.Debug("calibration pattern not found")
			continue
		default:
			return nil, fmt.Errorf("extract corners from %s: %w", img.Name, err)
		}

		if view.fallback {
			out.Stats.RefineFallbacks++
		}
		out.Stats.Detected++
		out.ObjectPoints = append(out.ObjectPoints, template)
		out.ImagePoints = append(out.ImagePoints, view.corners.Points())
		out.Names = append(out.Names, img.Name)
	}

	e.log.WithFields(logrus.Fields{
		"input":            out.Stats.Input,
		"detected":         out.Stats.Detected,
		"not_found":        out.Stats.NotFound,
		"load_failed":      out.Stats.LoadFailed,
		"refine_fallbacks": out.Stats.RefineFallbacks,
	}).Info("corner extraction finished")

	return out, nil
}

// extractView всё, что относится к одному снимку, живёт только внутри этого вызова.
func (e *CornerExtractor) extractView(img entity.CalibrationImage) (extractedView, error) {
	var view extractedView

	data, err := e.source.Read(img)
	if err != nil {
		return view, fmt.Errorf("%w: %w", entity.ErrLoad, err)
	}
	decoded, _, err := e.codec.Decode(data)
	if err != nil {
		return view, fmt.Errorf("%w: %w", entity.ErrLoad, err)
	}
	view.size = decoded.Bounds().Size()

	gray := e.codec.ToGrayscale(decoded)
	patternSize := e.pattern.PatternSize()

	corners, found, err := e.detector.FindCorners(gray, patternSize)
	if err != nil {
		return view, err
	}
	if !found {
		return view, entity.ErrPatternNotFound
	}
	if len(corners) != e.pattern.Len() {
		return view, fmt.Errorf("%w: got %d corners, want %d", entity.ErrPatternNotFound, len(corners), e.pattern.Len())
	}

	refined, err := e.detector.RefineCorners(gray, corners, e.window, e.criteria)
	if err == nil && len(refined) != len(corners) {
		err = fmt.Errorf("got %d refined corners, want %d", len(refined), len(corners))
	}
	if err != nil {
		e.log.WithField("image", img.Name).
			WithError(fmt.Errorf("%w: %w", entity.ErrRefinement, err)).
			Warn("using unrefined corners")
		refined = corners
		view.fallback = true
	}
	view.corners = refined

	if e.observer != nil {
		if err := e.observer.ObserveView(img, decoded, patternSize, refined); err != nil {
			e.log.WithField("image", img.Name).WithError(err).Warn("view observer failed")
		}
	}

	return view, nil
}
