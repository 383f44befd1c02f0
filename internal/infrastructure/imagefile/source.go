package imagefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// DefaultPattern шаблон имён снимков калибровки
const DefaultPattern = "image_*.jpg"

// debugMarker отличает отладочные копии от исходных снимков
const debugMarker = "_CC_"

// IsDebugImage true для файлов, записанных DebugWriter.
func IsDebugImage(path string) bool {
	return strings.Contains(filepath.Base(path), debugMarker)
}

// FileSource читает снимки с диска или из памяти
type FileSource struct{}

// NewFileSource создаёт источник снимков
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Read возвращает байты снимка
func (s *FileSource) Read(img entity.CalibrationImage) ([]byte, error) {
	if img.Data != nil {
		return img.Data, nil
	}
	if img.Path == "" {
		return nil, errors.New("image has neither path nor data")
	}
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", img.Path, err)
	}
	return data, nil
}

// ListImages перечисляет снимки в каталоге по шаблону, в лексикографическом порядке.
// Отладочные копии с углами пропускаются, даже если подходят под шаблон.
func ListImages(dir, pattern string) ([]entity.CalibrationImage, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}

	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("list images in %s: %w", dir, err)
	}
	slices.Sort(paths)

	images := make([]entity.CalibrationImage, 0, len(paths))
	for _, p := range paths {
		if IsDebugImage(p) {
			continue
		}
		images = append(images, entity.ImageFromPath(p))
	}
	return images, nil
}

var _ port.ImageSource = (*FileSource)(nil)
