package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// CalibrationSession владеет текущим результатом калибровки.
// Solve выполняются по одному; читатели видят либо старый, либо новый результат целиком.
type CalibrationSession struct {
	solver    port.CalibrationSolver
	evaluator *ReprojectionErrorEvaluator
	log       logrus.FieldLogger

	mu     sync.Mutex
	result atomic.Pointer[entity.CalibrationResult]
}

func NewCalibrationSession(solver port.CalibrationSolver, evaluator *ReprojectionErrorEvaluator, log logrus.FieldLogger) *CalibrationSession {
	return &CalibrationSession{
		solver:    solver,
		evaluator: evaluator,
		log:       log,
	}
}

// Result текущий результат, если калибровка уже была.
func (s *CalibrationSession) Result() (*entity.CalibrationResult, bool) {
	r := s.result.Load()
	return r, r != nil
}

// Restore подставляет результат, прочитанный из файла.
func (s *CalibrationSession) Restore(r *entity.CalibrationResult) error {
	if r == nil {
		return fmt.Errorf("%w: nil result", entity.ErrInvalidInput)
	}
	s.mu.Lock()
	s.result.Store(r)
	s.mu.Unlock()
	return nil
}

// Solve калибрует камеру и публикует новый результат. При любой ошибке
// прежний результат остаётся на месте.
func (s *CalibrationSession) Solve(ctx context.Context, c *entity.Correspondences) (*entity.CalibrationResult, error) {
	if err := validateCorrespondences(c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sol, err := s.solver.Solve(ctx, c.ObjectPoints, c.ImagePoints, c.ImageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrNumerical, err)
	}
	if err := sol.Validate(c.Views()); err != nil {
		return nil, err
	}

	report, err := s.evaluator.Evaluate(c.ObjectPoints, c.ImagePoints, sol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrNumerical, err)
	}

	result, err := entity.NewCalibrationResult(*sol, report, c.ImageSize)
	if err != nil {
		return nil, err
	}
	s.result.Store(result)

	s.log.WithFields(logrus.Fields{
		"views":      result.Views(),
		"ret":        result.Ret(),
		"mean_error": result.MeanError(),
	}).Info("camera calibrated")

	return result, nil
}

func validateCorrespondences(c *entity.Correspondences) error {
	if c.Views() == 0 {
		return entity.ErrEmptyInput
	}
	if len(c.ObjectPoints) != len(c.ImagePoints) {
		return fmt.Errorf("%w: %d object point sets for %d image point sets",
			entity.ErrInvalidInput, len(c.ObjectPoints), len(c.ImagePoints))
	}
	for i := range c.ObjectPoints {
		if len(c.ObjectPoints[i]) == 0 || len(c.ObjectPoints[i]) != len(c.ImagePoints[i]) {
			return fmt.Errorf("%w: view %d has %d object points and %d image points",
				entity.ErrInvalidInput, i, len(c.ObjectPoints[i]), len(c.ImagePoints[i]))
		}
	}
	if c.ImageSize.X <= 0 || c.ImageSize.Y <= 0 {
		return fmt.Errorf("%w: image size %v", entity.ErrInvalidInput, c.ImageSize)
	}
	return nil
}
