package entity

import (
	"image"
	"path/filepath"
	"slices"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// CalibrationImage ссылка на исходный снимок: путь на диске или байты.
type CalibrationImage struct {
	Name string // имя для логов и отладочных файлов
	Path string // путь к файлу, если снимок лежит на диске
	Data []byte // содержимое, если снимок уже в памяти
}

// ImageFromPath создаёт ссылку на файл.
func ImageFromPath(path string) CalibrationImage {
	return CalibrationImage{Name: filepath.Base(path), Path: path}
}

// ImageFromBytes создаёт ссылку на снимок в памяти.
func ImageFromBytes(name string, data []byte) CalibrationImage {
	return CalibrationImage{Name: name, Data: data}
}

// CornerSet найденные углы одного снимка в порядке детектора.
type CornerSet []r2.Point

// Points копия углов в виде точек для решателя.
func (c CornerSet) Points() []r2.Point {
	return slices.Clone([]r2.Point(c))
}

// TermCriteria условие остановки уточнения углов: что наступит раньше.
type TermCriteria struct {
	MaxIter int
	Epsilon float64
}

// DefaultSubPixCriteria 30 итераций или улучшение меньше 0.001.
var DefaultSubPixCriteria = TermCriteria{MaxIter: 30, Epsilon: 0.001}

// DefaultSubPixWindow окно поиска при уточнении углов.
var DefaultSubPixWindow = image.Pt(6, 6)

// ExtractionStats счётчики мягких отказов за один запуск.
type ExtractionStats struct {
	Input           int `json:"input"`
	Decoded         int `json:"decoded"`
	Detected        int `json:"detected"`
	NotFound        int `json:"notFound"`
	LoadFailed      int `json:"loadFailed"`
	RefineFallbacks int `json:"refineFallbacks"`
}

// Correspondences выровненные по индексу списки точек для решателя.
type Correspondences struct {
	ObjectPoints [][]r3.Vector
	ImagePoints  [][]r2.Point
	Names        []string
	ImageSize    image.Point // размер последнего успешно декодированного снимка
	Stats        ExtractionStats
}

// Views число снимков, прошедших детекцию.
func (c *Correspondences) Views() int {
	if c == nil {
		return 0
	}
	return len(c.ImagePoints)
}
