package numeric

import "math"

// distortion коэффициенты Брауна-Конради в порядке OpenCV:
// k1, k2, p1, p2, k3, k4, k5, k6. Недостающие считаются нулями.
type distortion [8]float64

func newDistortion(coeffs []float64) distortion {
	var d distortion
	copy(d[:], coeffs)
	return d
}

// apply искажает нормализованную точку.
func (d distortion) apply(x, y float64) (float64, float64) {
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2

	radial := (1 + d[0]*r2 + d[1]*r4 + d[4]*r6) / (1 + d[5]*r2 + d[6]*r4 + d[7]*r6)
	xd := x*radial + 2*d[2]*x*y + d[3]*(r2+2*x*x)
	yd := y*radial + d[2]*(r2+2*y*y) + 2*d[3]*x*y
	return xd, yd
}

// invert снимает искажение итерациями неподвижной точки, как cv::undistortPoints.
func (d distortion) invert(xd, yd float64) (float64, float64) {
	const (
		maxIter   = 20
		tolerance = 1e-12
	)

	x, y := xd, yd
	for i := 0; i < maxIter; i++ {
		r2 := x*x + y*y
		r4 := r2 * r2
		r6 := r4 * r2

		icdist := (1 + d[5]*r2 + d[6]*r4 + d[7]*r6) / (1 + d[0]*r2 + d[1]*r4 + d[4]*r6)
		if icdist < 0 {
			return xd, yd
		}
		dx := 2*d[2]*x*y + d[3]*(r2+2*x*x)
		dy := d[2]*(r2+2*y*y) + 2*d[3]*x*y

		nx := (xd - dx) * icdist
		ny := (yd - dy) * icdist
		done := math.Abs(nx-x)+math.Abs(ny-y) < tolerance
		x, y = nx, ny
		if done {
			break
		}
	}
	return x, y
}
