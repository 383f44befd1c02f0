package entity

import (
	"image"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

func TestNewPatternGeometry_NineBySix(t *testing.T) {
	g, err := NewPatternGeometry(9, 6, 1)
	require.NoError(t, err)

	pts := g.Points()
	require.Len(t, pts, 54)
	require.Equal(t, 54, g.Len())
	require.Equal(t, image.Pt(9, 6), g.PatternSize())

	// x меняется быстрее, строки идут по y
	require.Equal(t, r3.Vector{X: 0, Y: 0, Z: 0}, pts[0])
	require.Equal(t, r3.Vector{X: 1, Y: 0, Z: 0}, pts[1])
	require.Equal(t, r3.Vector{X: 8, Y: 0, Z: 0}, pts[8])
	require.Equal(t, r3.Vector{X: 0, Y: 1, Z: 0}, pts[9])
	require.Equal(t, r3.Vector{X: 8, Y: 5, Z: 0}, pts[53])

	for _, p := range pts {
		require.Zero(t, p.Z)
	}
}

func TestNewPatternGeometry_Deterministic(t *testing.T) {
	a, err := NewPatternGeometry(9, 6, 1)
	require.NoError(t, err)
	b, err := NewPatternGeometry(9, 6, 1)
	require.NoError(t, err)

	require.Equal(t, a.Points(), b.Points())
	require.Equal(t, a.Points(), a.Points())
}

func TestNewPatternGeometry_SquareSize(t *testing.T) {
	g, err := NewPatternGeometry(4, 3, 25)
	require.NoError(t, err)

	pts := g.Points()
	require.Equal(t, r3.Vector{X: 75, Y: 50}, pts[11])
}

func TestPatternGeometry_PointsReturnsCopy(t *testing.T) {
	g, err := NewPatternGeometry(3, 3, 1)
	require.NoError(t, err)

	pts := g.Points()
	pts[0].X = 100
	require.Zero(t, g.Points()[0].X)
}

func TestNewPatternGeometry_Invalid(t *testing.T) {
	_, err := NewPatternGeometry(0, 6, 1)
	require.Error(t, err)
	_, err = NewPatternGeometry(9, -1, 1)
	require.Error(t, err)
	_, err = NewPatternGeometry(9, 6, 0)
	require.Error(t, err)
}
