package entity

import (
	"fmt"
	"image"
	"slices"
)

// CameraMatrix матрица внутренних параметров 3x3.
type CameraMatrix [3][3]float64

// NewCameraMatrix собирает матрицу без перекоса.
func NewCameraMatrix(fx, fy, cx, cy float64) CameraMatrix {
	return CameraMatrix{
		{fx, 0, cx},
		{0, fy, cy},
		{0, 0, 1},
	}
}

func (m CameraMatrix) Fx() float64 { return m[0][0] }
func (m CameraMatrix) Fy() float64 { return m[1][1] }
func (m CameraMatrix) Cx() float64 { return m[0][2] }
func (m CameraMatrix) Cy() float64 { return m[1][2] }

// Vec3 вектор поворота (Родригес) или переноса.
type Vec3 [3]float64

// Solution сырой ответ решателя, в порядке входных снимков.
type Solution struct {
	RMS          float64
	CameraMatrix CameraMatrix
	DistCoeffs   []float64
	Rotations    []Vec3
	Translations []Vec3
}

// ReprojectionReport ошибки обратного проецирования.
type ReprojectionReport struct {
	PerView    []float64
	TotalError float64
	MeanError  float64
}

// ValidDistortionLen модель OpenCV: 4, 5 или 8 коэффициентов.
func ValidDistortionLen(n int) bool {
	return n == 4 || n == 5 || n == 8
}

// Validate проверяет согласованность ответа решателя с числом снимков.
func (s *Solution) Validate(views int) error {
	if s == nil {
		return fmt.Errorf("%w: empty solution", ErrNumerical)
	}
	if len(s.Rotations) != views || len(s.Translations) != views {
		return fmt.Errorf("%w: solver returned %d rotations and %d translations for %d views",
			ErrNumerical, len(s.Rotations), len(s.Translations), views)
	}
	if !ValidDistortionLen(len(s.DistCoeffs)) {
		return fmt.Errorf("%w: unexpected distortion vector length %d", ErrNumerical, len(s.DistCoeffs))
	}
	if s.CameraMatrix.Fx() <= 0 || s.CameraMatrix.Fy() <= 0 {
		return fmt.Errorf("%w: non-positive focal length (%g, %g)",
			ErrNumerical, s.CameraMatrix.Fx(), s.CameraMatrix.Fy())
	}
	return nil
}

// CalibrationResult неизменяемый итог одного Solve. Аксессоры отдают копии.
type CalibrationResult struct {
	ret          float64
	cameraMatrix CameraMatrix
	distCoeffs   []float64
	rotations    []Vec3
	translations []Vec3
	perView      []float64
	totalError   float64
	meanError    float64
	imageSize    image.Point
}

// NewCalibrationResult собирает результат из ответа решателя и отчёта об ошибках.
func NewCalibrationResult(sol Solution, report ReprojectionReport, size image.Point) (*CalibrationResult, error) {
	if err := sol.Validate(len(sol.Rotations)); err != nil {
		return nil, err
	}

	return &CalibrationResult{
		ret:          sol.RMS,
		cameraMatrix: sol.CameraMatrix,
		distCoeffs:   slices.Clone(sol.DistCoeffs),
		rotations:    slices.Clone(sol.Rotations),
		translations: slices.Clone(sol.Translations),
		perView:      slices.Clone(report.PerView),
		totalError:   report.TotalError,
		meanError:    report.MeanError,
		imageSize:    size,
	}, nil
}

func (r *CalibrationResult) Ret() float64               { return r.ret }
func (r *CalibrationResult) CameraMatrix() CameraMatrix { return r.cameraMatrix }
func (r *CalibrationResult) DistCoeffs() []float64      { return slices.Clone(r.distCoeffs) }
func (r *CalibrationResult) Rotations() []Vec3          { return slices.Clone(r.rotations) }
func (r *CalibrationResult) Translations() []Vec3       { return slices.Clone(r.translations) }
func (r *CalibrationResult) PerViewErrors() []float64   { return slices.Clone(r.perView) }
func (r *CalibrationResult) TotalError() float64        { return r.totalError }
func (r *CalibrationResult) MeanError() float64         { return r.meanError }
func (r *CalibrationResult) ImageSize() image.Point     { return r.imageSize }
func (r *CalibrationResult) Views() int                 { return len(r.rotations) }

// Artifact формат файла с результатом калибровки.
type Artifact struct {
	Ret          float64      `json:"ret"`
	CameraMatrix [][]float64  `json:"cameraMatrix"`
	DistCoeffs   []float64    `json:"distCoeffs"`
	RVecs        [][3]float64 `json:"rVecs"`
	TVecs        [][3]float64 `json:"tVecs"`
}

// Artifact переводит результат в формат файла.
func (r *CalibrationResult) Artifact() Artifact {
	m := make([][]float64, 3)
	for i := range m {
		m[i] = []float64{r.cameraMatrix[i][0], r.cameraMatrix[i][1], r.cameraMatrix[i][2]}
	}

	a := Artifact{
		Ret:          r.ret,
		CameraMatrix: m,
		DistCoeffs:   slices.Clone(r.distCoeffs),
		RVecs:        make([][3]float64, len(r.rotations)),
		TVecs:        make([][3]float64, len(r.translations)),
	}
	for i, v := range r.rotations {
		a.RVecs[i] = v
	}
	for i, v := range r.translations {
		a.TVecs[i] = v
	}
	return a
}

// ResultFromArtifact восстанавливает результат из файла. Ошибки обратного
// проецирования в файле не хранятся и остаются нулевыми.
func ResultFromArtifact(a Artifact) (*CalibrationResult, error) {
	if len(a.CameraMatrix) != 3 {
		return nil, fmt.Errorf("camera matrix must have 3 rows, got %d", len(a.CameraMatrix))
	}

	var m CameraMatrix
	for i, row := range a.CameraMatrix {
		if len(row) != 3 {
			return nil, fmt.Errorf("camera matrix row %d must have 3 columns, got %d", i, len(row))
		}
		copy(m[i][:], row)
	}

	sol := Solution{
		RMS:          a.Ret,
		CameraMatrix: m,
		DistCoeffs:   a.DistCoeffs,
		Rotations:    make([]Vec3, len(a.RVecs)),
		Translations: make([]Vec3, len(a.TVecs)),
	}
	for i, v := range a.RVecs {
		sol.Rotations[i] = v
	}
	for i, v := range a.TVecs {
		sol.Translations[i] = v
	}

	return NewCalibrationResult(sol, ReprojectionReport{}, image.Point{})
}
