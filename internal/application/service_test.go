package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"camcalib/internal/domain/entity"
)

func newTestService(solver *fakeSolver, store *fakeStore) *CalibrationService {
	log, _ := newTestLogger()
	var s *CalibrationService
	if store == nil {
		s = NewCalibrationService(newTestExtractor(log), newTestSession(solver), nil, log)
	} else {
		s = NewCalibrationService(newTestExtractor(log), newTestSession(solver), store, log)
	}
	return s
}

func boardPhotos(found, missing int) []entity.CalibrationImage {
	var images []entity.CalibrationImage
	for i := 0; i < found+missing; i++ {
		code := codeFound
		if i >= found {
			code = codeMissing
		}
		images = append(images, entity.ImageFromBytes(fmt.Sprintf("image_%d.jpg", i), photo(code, vga)))
	}
	return images
}

func TestCalibrationService_Calibrate(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(&fakeSolver{}, store)

	report, err := svc.Calibrate(context.Background(), boardPhotos(7, 3))
	require.NoError(t, err)
	require.Equal(t, 7, report.Result.Views())
	require.Equal(t, 3, report.Correspondences.Stats.NotFound)
	require.Same(t, report.Result, store.saved)
}

func TestCalibrationService_NoViews(t *testing.T) {
	solver := &fakeSolver{}
	store := &fakeStore{}
	svc := newTestService(solver, store)

	_, err := svc.Calibrate(context.Background(), boardPhotos(0, 4))
	require.ErrorIs(t, err, entity.ErrEmptyInput)
	require.Zero(t, solver.Calls())
	require.Nil(t, store.saved)
}

func TestCalibrationService_SaveFailureKeepsResult(t *testing.T) {
	store := &fakeStore{saveErr: fmt.Errorf("%w: disk full", entity.ErrSerialization)}
	svc := newTestService(&fakeSolver{}, store)

	report, err := svc.Calibrate(context.Background(), boardPhotos(3, 0))
	require.ErrorIs(t, err, entity.ErrSerialization)
	require.NotNil(t, report)

	current, ok := svc.Session().Result()
	require.True(t, ok)
	require.Same(t, report.Result, current)
}

func TestCalibrationService_Async(t *testing.T) {
	svc := newTestService(&fakeSolver{}, nil)

	task := svc.CalibrateAsync(context.Background(), boardPhotos(4, 1))
	report, err := task.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, report.Result.Views())
}

func TestCalibrationService_LoadStored(t *testing.T) {
	stored := smallResult(t, 0)

	svc := newTestService(&fakeSolver{}, &fakeStore{loaded: stored})
	ok, err := svc.LoadStored()
	require.NoError(t, err)
	require.True(t, ok)
	current, _ := svc.Session().Result()
	require.Same(t, stored, current)

	svc = newTestService(&fakeSolver{}, &fakeStore{loadErr: fmt.Errorf("%w: missing", entity.ErrNotCalibrated)})
	ok, err = svc.LoadStored()
	require.NoError(t, err)
	require.False(t, ok)

	svc = newTestService(&fakeSolver{}, &fakeStore{loadErr: errors.New("corrupt")})
	_, err = svc.LoadStored()
	require.Error(t, err)

	svc = newTestService(&fakeSolver{}, nil)
	ok, err = svc.LoadStored()
	require.NoError(t, err)
	require.False(t, ok)
}
