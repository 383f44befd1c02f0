package entity

import "errors"

// Ошибки конвейера калибровки. Мягкие (ErrLoad, ErrPatternNotFound, ErrRefinement)
// только уменьшают число снимков, остальные прерывают запуск.
var (
	ErrLoad            = errors.New("image load failed")
	ErrPatternNotFound = errors.New("calibration pattern not found")
	ErrRefinement      = errors.New("sub-pixel refinement failed")
	ErrEmptyInput      = errors.New("no usable calibration views")
	ErrInvalidInput    = errors.New("invalid calibration input")
	ErrNumerical       = errors.New("calibration solve failed")
	ErrSerialization   = errors.New("calibration result serialization failed")
	ErrNotCalibrated   = errors.New("camera is not calibrated")
)
