package imagefile

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// DebugWriter сохраняет копию снимка с нарисованными углами рядом с исходником
// или в отдельный каталог: <имя>_CC_<ЧЧММСС>_<мкс><расширение>.
type DebugWriter struct {
	detector port.PatternDetector
	codec    port.ImageCodec
	dir      string
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewDebugWriter создаёт наблюдатель; пустой dir значит каталог исходного снимка
func NewDebugWriter(detector port.PatternDetector, codec port.ImageCodec, dir string, log logrus.FieldLogger) *DebugWriter {
	return &DebugWriter{
		detector: detector,
		codec:    codec,
		dir:      dir,
		now:      time.Now,
		log:      log,
	}
}

// ObserveView рисует углы и пишет файл
func (w *DebugWriter) ObserveView(img entity.CalibrationImage, decoded image.Image, patternSize image.Point, corners entity.CornerSet) error {
	drawn, err := w.detector.DrawCorners(decoded, patternSize, corners, true)
	if err != nil {
		return fmt.Errorf("draw corners: %w", err)
	}

	path := w.outputPath(img)
	data, err := w.codec.Encode(drawn, FormatForPath(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write debug image: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"image": img.Name,
		"path":  path,
	}).Debug("debug image written")
	return nil
}

func (w *DebugWriter) outputPath(img entity.CalibrationImage) string {
	name := img.Name
	if name == "" {
		name = filepath.Base(img.Path)
	}
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".jpg"
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))

	dir := w.dir
	if dir == "" && img.Path != "" {
		dir = filepath.Dir(img.Path)
	}
	if dir == "" {
		dir = "."
	}

	t := w.now()
	return filepath.Join(dir, fmt.Sprintf("%s%s%s_%06d%s", base, debugMarker, t.Format("150405"), t.Nanosecond()/1000, ext))
}

var _ port.ViewObserver = (*DebugWriter)(nil)
