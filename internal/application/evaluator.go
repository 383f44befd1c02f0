package app

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// ReprojectionErrorEvaluator считает ошибку обратного проецирования по каждому снимку.
type ReprojectionErrorEvaluator struct {
	projector port.Projector
}

func NewReprojectionErrorEvaluator(projector port.Projector) *ReprojectionErrorEvaluator {
	return &ReprojectionErrorEvaluator{projector: projector}
}

// Evaluate для снимка i: L2-норма разности по всем координатам, делённая на число точек.
func (e *ReprojectionErrorEvaluator) Evaluate(objectPoints [][]r3.Vector, imagePoints [][]r2.Point, sol *entity.Solution) (entity.ReprojectionReport, error) {
	var report entity.ReprojectionReport
	if err := sol.Validate(len(objectPoints)); err != nil {
		return report, err
	}
	if len(imagePoints) != len(objectPoints) {
		return report, fmt.Errorf("%w: %d image point sets for %d views", entity.ErrInvalidInput, len(imagePoints), len(objectPoints))
	}

	report.PerView = make([]float64, len(objectPoints))
	for i := range objectPoints {
		projected, err := e.projector.Project(objectPoints[i], sol.Rotations[i], sol.Translations[i], sol.CameraMatrix, sol.DistCoeffs)
		if err != nil {
			return entity.ReprojectionReport{}, fmt.Errorf("project view %d: %w", i, err)
		}
		if len(projected) != len(imagePoints[i]) || len(projected) == 0 {
			return entity.ReprojectionReport{}, fmt.Errorf("%w: view %d has %d projected and %d detected points",
				entity.ErrInvalidInput, i, len(projected), len(imagePoints[i]))
		}

		report.PerView[i] = floats.Distance(flatten(projected), flatten(imagePoints[i]), 2) / float64(len(projected))
		report.TotalError += report.PerView[i]
	}
	if len(objectPoints) > 0 {
		report.MeanError = report.TotalError / float64(len(objectPoints))
	}

	return report, nil
}

func flatten(points []r2.Point) []float64 {
	out := make([]float64, 0, 2*len(points))
	for _, p := range points {
		out = append(out, p.X, p.Y)
	}
	return out
}
