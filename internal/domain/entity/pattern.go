package entity

import (
	"fmt"
	"image"
	"slices"

	"github.com/golang/geo/r3"
)

// PatternGeometry описывает шахматную мишень: число внутренних углов и размер клетки.
//
// Точки шаблона лежат в плоскости z=0 и упорядочены так, что x меняется быстрее:
// точка i = ((i mod Rows)*SquareSize, (i div Rows)*SquareSize, 0). Этот порядок
// совпадает с порядком углов, который возвращает детектор для PatternSize().
type PatternGeometry struct {
	rows       int
	cols       int
	squareSize float64
	points     []r3.Vector
}

// NewPatternGeometry строит шаблон один раз; дальше он переиспользуется для всех снимков.
func NewPatternGeometry(rows, cols int, squareSize float64) (*PatternGeometry, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid pattern size %dx%d", rows, cols)
	}
	if squareSize <= 0 {
		return nil, fmt.Errorf("invalid square size %g", squareSize)
	}

	points := make([]r3.Vector, 0, rows*cols)
	for i := 0; i < rows*cols; i++ {
		points = append(points, r3.Vector{
			X: float64(i%rows) * squareSize,
			Y: float64(i/rows) * squareSize,
			Z: 0,
		})
	}

	return &PatternGeometry{
		rows:       rows,
		cols:       cols,
		squareSize: squareSize,
		points:     points,
	}, nil
}

// Rows число углов в одной строке детектора
func (g *PatternGeometry) Rows() int { return g.rows }

// Cols число строк углов
func (g *PatternGeometry) Cols() int { return g.cols }

// SquareSize размер клетки в единицах мира
func (g *PatternGeometry) SquareSize() float64 { return g.squareSize }

// Len возвращает число точек шаблона.
func (g *PatternGeometry) Len() int { return len(g.points) }

// PatternSize размер сетки в том виде, в каком его ждёт детектор углов.
func (g *PatternGeometry) PatternSize() image.Point {
	return image.Pt(g.rows, g.cols)
}

// Points возвращает копию шаблона.
func (g *PatternGeometry) Points() []r3.Vector {
	return slices.Clone(g.points)
}
