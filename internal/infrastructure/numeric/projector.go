package numeric

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

// Projector проецирует точки модели по модели камеры-обскуры с дисторсией.
type Projector struct{}

// NewProjector создаёт проектор.
func NewProjector() *Projector {
	return &Projector{}
}

// Project повторяет контракт cv::projectPoints.
func (p *Projector) Project(points []r3.Vector, rotation, translation entity.Vec3, matrix entity.CameraMatrix, distCoeffs []float64) ([]r2.Point, error) {
	if len(distCoeffs) != 0 && !entity.ValidDistortionLen(len(distCoeffs)) {
		return nil, fmt.Errorf("unsupported distortion vector length %d", len(distCoeffs))
	}

	rot := Rodrigues(rotation)
	d := newDistortion(distCoeffs)

	out := make([]r2.Point, len(points))
	for i, pt := range points {
		out[i] = projectPoint(pt, rot, translation, matrix, d)
	}
	return out, nil
}

func projectPoint(pt r3.Vector, rot mat3, t entity.Vec3, m entity.CameraMatrix, d distortion) r2.Point {
	x := rot[0][0]*pt.X + rot[0][1]*pt.Y + rot[0][2]*pt.Z + t[0]
	y := rot[1][0]*pt.X + rot[1][1]*pt.Y + rot[1][2]*pt.Z + t[1]
	z := rot[2][0]*pt.X + rot[2][1]*pt.Y + rot[2][2]*pt.Z + t[2]

	inv := 1.0
	if z != 0 {
		inv = 1 / z
	}
	xd, yd := d.apply(x*inv, y*inv)

	return r2.Point{
		X: m[0][0]*xd + m[0][1]*yd + m[0][2],
		Y: m[1][1]*yd + m[1][2],
	}
}

var _ port.Projector = (*Projector)(nil)
