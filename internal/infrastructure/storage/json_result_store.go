package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// DefaultResultFile имя файла с результатом по умолчанию
const DefaultResultFile = "CameraCalibration.json"

// JSONResultStore хранит результат калибровки в одном JSON-файле
type JSONResultStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONResultStore создаёт хранилище для файла path
func NewJSONResultStore(path string) *JSONResultStore {
	if path == "" {
		path = DefaultResultFile
	}
	return &JSONResultStore{path: path}
}

// Path путь к файлу результата
func (s *JSONResultStore) Path() string {
	return s.path
}

// Marshal кодирует результат в формат файла.
func Marshal(result *entity.CalibrationResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: result is nil", entity.ErrSerialization)
	}
	b, err := json.MarshalIndent(result.Artifact(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSerialization, err)
	}
	return append(b, '\n'), nil
}

// Unmarshal разбирает файл результата.
func Unmarshal(data []byte) (*entity.CalibrationResult, error) {
	var a entity.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSerialization, err)
	}
	result, err := entity.ResultFromArtifact(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSerialization, err)
	}
	return result, nil
}

// Save перезаписывает файл целиком: пишем во временный файл и переименовываем
func (s *JSONResultStore) Save(result *entity.CalibrationResult) error {
	b, err := Marshal(result)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrSerialization,
			pkgerrors.Wrapf(err, "failed to create temp file for %s", s.path))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", entity.ErrSerialization,
			pkgerrors.Wrapf(err, "failed to write file %s", tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", entity.ErrSerialization,
			pkgerrors.Wrapf(err, "failed to close file %s", tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %w", entity.ErrSerialization,
			pkgerrors.Wrapf(err, "failed to replace file %s", s.path))
	}

	return nil
}

// Load читает результат; отсутствие файла означает, что калибровки ещё не было
func (s *JSONResultStore) Load() (*entity.CalibrationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", entity.ErrNotCalibrated, s.path)
		}
		return nil, fmt.Errorf("%w: %w", entity.ErrSerialization,
			pkgerrors.Wrapf(err, "failed to read file %s", s.path))
	}

	return Unmarshal(b)
}

var _ port.ResultStore = (*JSONResultStore)(nil)
