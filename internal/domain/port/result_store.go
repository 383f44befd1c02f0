package port

import (
	"camcalib/internal/domain/entity"
)

// ResultStore сохраняет результат калибровки целиком
type ResultStore interface {
	// Save перезаписывает сохранённый результат
	Save(result *entity.CalibrationResult) error

	// Load читает ранее сохранённый результат
	Load() (*entity.CalibrationResult, error)
}
