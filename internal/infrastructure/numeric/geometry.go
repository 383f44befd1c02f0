package numeric

import (
	"math"

	"camcalib/internal/domain/entity"
)

type mat3 = [3][3]float64

// Rodrigues переводит вектор поворота в матрицу.
func Rodrigues(r entity.Vec3) mat3 {
	theta := math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
	if theta < 1e-12 {
		return mat3{
			{1, -r[2], r[1]},
			{r[2], 1, -r[0]},
			{-r[1], r[0], 1},
		}
	}

	kx, ky, kz := r[0]/theta, r[1]/theta, r[2]/theta
	c, s := math.Cos(theta), math.Sin(theta)
	v := 1 - c

	return mat3{
		{c + kx*kx*v, kx*ky*v - kz*s, kx*kz*v + ky*s},
		{ky*kx*v + kz*s, c + ky*ky*v, ky*kz*v - kx*s},
		{kz*kx*v - ky*s, kz*ky*v + kx*s, c + kz*kz*v},
	}
}

// RotationVector обратное преобразование: матрица поворота в вектор Родригеса.
func RotationVector(rot mat3) entity.Vec3 {
	cos := (rot[0][0] + rot[1][1] + rot[2][2] - 1) / 2
	cos = math.Max(-1, math.Min(1, cos))
	theta := math.Acos(cos)

	if theta < 1e-12 {
		return entity.Vec3{
			(rot[2][1] - rot[1][2]) / 2,
			(rot[0][2] - rot[2][0]) / 2,
			(rot[1][0] - rot[0][1]) / 2,
		}
	}

	if math.Pi-theta < 1e-6 {
		// около пи: R = 2kk^T - I, ось берём из столбца с наибольшей диагональю
		var m mat3
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				m[i][j] = rot[i][j] / 2
			}
			m[i][i] += 0.5
		}
		best := 0
		for i := 1; i < 3; i++ {
			if m[i][i] > m[best][best] {
				best = i
			}
		}
		kb := math.Sqrt(math.Max(m[best][best], 0))
		var k entity.Vec3
		for j := 0; j < 3; j++ {
			if j == best {
				k[j] = kb
				continue
			}
			k[j] = m[best][j] / kb
		}
		return entity.Vec3{k[0] * theta, k[1] * theta, k[2] * theta}
	}

	f := theta / (2 * math.Sin(theta))
	return entity.Vec3{
		(rot[2][1] - rot[1][2]) * f,
		(rot[0][2] - rot[2][0]) * f,
		(rot[1][0] - rot[0][1]) * f,
	}
}

func mul3(a, b mat3) mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][0]*b[0][j] + a[i][1]*b[1][j] + a[i][2]*b[2][j]
		}
	}
	return out
}

func mulVec3(a mat3, v [3]float64) [3]float64 {
	return [3]float64{
		a[0][0]*v[0] + a[0][1]*v[1] + a[0][2]*v[2],
		a[1][0]*v[0] + a[1][1]*v[1] + a[1][2]*v[2],
		a[2][0]*v[0] + a[2][1]*v[1] + a[2][2]*v[2],
	}
}

func det3(a mat3) float64 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

// inv3 обратная матрица через присоединённую; ok=false для вырожденной.
func inv3(a mat3) (mat3, bool) {
	d := det3(a)
	if d == 0 || math.IsNaN(d) {
		return mat3{}, false
	}
	inv := mat3{
		{a[1][1]*a[2][2] - a[1][2]*a[2][1], a[0][2]*a[2][1] - a[0][1]*a[2][2], a[0][1]*a[1][2] - a[0][2]*a[1][1]},
		{a[1][2]*a[2][0] - a[1][0]*a[2][2], a[0][0]*a[2][2] - a[0][2]*a[2][0], a[0][2]*a[1][0] - a[0][0]*a[1][2]},
		{a[1][0]*a[2][1] - a[1][1]*a[2][0], a[0][1]*a[2][0] - a[0][0]*a[2][1], a[0][0]*a[1][1] - a[0][1]*a[1][0]},
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			inv[i][j] /= d
		}
	}
	return inv, true
}

func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func norm3(a [3]float64) float64 {
	return math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
}
