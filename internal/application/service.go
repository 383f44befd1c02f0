package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// CalibrationReport итог одного запуска калибровки
type CalibrationReport struct {
	Result          *entity.CalibrationResult
	Correspondences *entity.Correspondences
}

// CalibrationService конвейер: снимки -> углы -> решение -> файл результата.
type CalibrationService struct {
	extractor *CornerExtractor
	session   *CalibrationSession
	store     port.ResultStore
	log       logrus.FieldLogger
}

// NewCalibrationService store может быть nil, тогда результат не сохраняется.
func NewCalibrationService(extractor *CornerExtractor, session *CalibrationSession, store port.ResultStore, log logrus.FieldLogger) *CalibrationService {
	return &CalibrationService{
		extractor: extractor,
		session:   session,
		store:     store,
		log:       log,
	}
}

func (s *CalibrationService) Session() *CalibrationSession {
	return s.session
}

// Calibrate выполняет полный запуск. Если не удалось сохранить файл,
// результат уже опубликован в сессии и возвращается вместе с ошибкой ErrSerialization.
func (s *CalibrationService) Calibrate(ctx context.Context, images []entity.CalibrationImage) (*CalibrationReport, error) {
	corr, err := s.extractor.Extract(ctx, images)
	if err != nil {
		return nil, err
	}

	result, err := s.session.Solve(ctx, corr)
	if err != nil {
		return nil, err
	}
	report := &CalibrationReport{Result: result, Correspondences: corr}

	if s.store != nil {
		if err := s.store.Save(result); err != nil {
			return report, err
		}
	}

	return report, nil
}

// CalibrateAsync запускает Calibrate в фоне.
func (s *CalibrationService) CalibrateAsync(ctx context.Context, images []entity.CalibrationImage) *Task[*CalibrationReport] {
	return Go(ctx, func(ctx context.Context) (*CalibrationReport, error) {
		return s.Calibrate(ctx, images)
	})
}

// LoadStored подхватывает результат из файла, если он есть.
func (s *CalibrationService) LoadStored() (bool, error) {
	if s.store == nil {
		return false, nil
	}

	result, err := s.store.Load()
	if errors.Is(err, entity.ErrNotCalibrated) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load calibration result: %w", err)
	}
	if err := s.session.Restore(result); err != nil {
		return false, err
	}

	s.log.WithField("views", result.Views()).Info("calibration result restored")
	return true, nil
}
