package app

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"

	"camcalib/internal/domain/entity"
	"camcalib/internal/infrastructure/numeric"
)

func newTestSession(solver *fakeSolver) *CalibrationSession {
	log, _ := newTestLogger()
	return NewCalibrationSession(solver, NewReprojectionErrorEvaluator(numeric.NewProjector()), log)
}

func correspondences(views int) *entity.Correspondences {
	pattern := testPattern()
	c := &entity.Correspondences{ImageSize: vga}
	for i := 0; i < views; i++ {
		c.ObjectPoints = append(c.ObjectPoints, pattern.Points())
		c.ImagePoints = append(c.ImagePoints, gridCorners(pattern.Len()).Points())
	}
	return c
}

func TestCalibrationSession_SolvePublishesResult(t *testing.T) {
	solver := &fakeSolver{}
	s := newTestSession(solver)

	_, ok := s.Result()
	require.False(t, ok)

	result, err := s.Solve(context.Background(), correspondences(7))
	require.NoError(t, err)
	require.Equal(t, 7, result.Views())
	require.Len(t, result.Rotations(), 7)
	require.Len(t, result.Translations(), 7)
	require.Len(t, result.PerViewErrors(), 7)
	require.Equal(t, vga, result.ImageSize())
	require.InDelta(t, result.TotalError()/7, result.MeanError(), 1e-12)

	current, ok := s.Result()
	require.True(t, ok)
	require.Same(t, result, current)
}

func TestCalibrationSession_EmptyInputSkipsSolver(t *testing.T) {
	solver := &fakeSolver{}
	s := newTestSession(solver)

	_, err := s.Solve(context.Background(), &entity.Correspondences{ImageSize: vga})
	require.ErrorIs(t, err, entity.ErrEmptyInput)

	_, err = s.Solve(context.Background(), nil)
	require.ErrorIs(t, err, entity.ErrEmptyInput)
	require.Zero(t, solver.Calls())
}

func TestCalibrationSession_InvalidInput(t *testing.T) {
	solver := &fakeSolver{}
	s := newTestSession(solver)
	ctx := context.Background()

	c := correspondences(3)
	c.ObjectPoints = c.ObjectPoints[:2]
	_, err := s.Solve(ctx, c)
	require.ErrorIs(t, err, entity.ErrInvalidInput)

	c = correspondences(3)
	c.ImagePoints[1] = c.ImagePoints[1][:10]
	_, err = s.Solve(ctx, c)
	require.ErrorIs(t, err, entity.ErrInvalidInput)

	c = correspondences(3)
	c.ImageSize = image.Point{}
	_, err = s.Solve(ctx, c)
	require.ErrorIs(t, err, entity.ErrInvalidInput)

	require.Zero(t, solver.Calls())
}

func TestCalibrationSession_FailureKeepsPreviousResult(t *testing.T) {
	solver := &fakeSolver{}
	s := newTestSession(solver)
	ctx := context.Background()

	first, err := s.Solve(ctx, correspondences(3))
	require.NoError(t, err)

	solver.err = errors.New("did not converge")
	_, err = s.Solve(ctx, correspondences(4))
	require.ErrorIs(t, err, entity.ErrNumerical)

	solver.err = nil
	solver.fx = -1
	_, err = s.Solve(ctx, correspondences(4))
	require.ErrorIs(t, err, entity.ErrNumerical)

	current, ok := s.Result()
	require.True(t, ok)
	require.Same(t, first, current)
}

func TestCalibrationSession_Restore(t *testing.T) {
	s := newTestSession(&fakeSolver{})

	require.ErrorIs(t, s.Restore(nil), entity.ErrInvalidInput)

	r, err := entity.ResultFromArtifact(entity.Artifact{
		CameraMatrix: [][]float64{{800, 0, 320}, {0, 800, 240}, {0, 0, 1}},
		DistCoeffs:   []float64{0, 0, 0, 0, 0},
	})
	require.NoError(t, err)
	require.NoError(t, s.Restore(r))

	current, ok := s.Result()
	require.True(t, ok)
	require.Same(t, r, current)
}

func TestCalibrationSession_ConcurrentReaders(t *testing.T) {
	s := newTestSession(&fakeSolver{})
	ctx := context.Background()

	errs := make(chan error, 8)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(views int) {
			defer wg.Done()
			_, err := s.Solve(ctx, correspondences(views))
			errs <- err
		}(i + 2)
		go func() {
			defer wg.Done()
			if r, ok := s.Result(); ok && len(r.Rotations()) != len(r.PerViewErrors()) {
				errs <- errors.New("torn result")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	r, ok := s.Result()
	require.True(t, ok)
	require.GreaterOrEqual(t, r.Views(), 2)
}

func TestReprojectionErrorEvaluator_ExactPoses(t *testing.T) {
	projector := numeric.NewProjector()
	k := entity.NewCameraMatrix(800, 780, 320, 240)
	dist := []float64{-0.1, 0.01, 0, 0, 0}
	board := testPattern().Points()

	sol := &entity.Solution{CameraMatrix: k, DistCoeffs: dist}
	var objectPoints [][]r3.Vector
	var imagePoints [][]r2.Point
	for _, pose := range [][2]entity.Vec3{
		{{0.2, -0.1, 0.05}, {-4, -2.5, 15}},
		{{-0.25, 0.15, -0.1}, {-3.5, -2, 16}},
	} {
		proj, err := projector.Project(board, pose[0], pose[1], k, dist)
		require.NoError(t, err)
		objectPoints = append(objectPoints, board)
		imagePoints = append(imagePoints, proj)
		sol.Rotations = append(sol.Rotations, pose[0])
		sol.Translations = append(sol.Translations, pose[1])
	}

	report, err := NewReprojectionErrorEvaluator(projector).Evaluate(objectPoints, imagePoints, sol)
	require.NoError(t, err)
	require.Len(t, report.PerView, 2)
	for _, e := range report.PerView {
		require.Less(t, e, 1e-3)
	}

	// сдвиг всех точек на (3, 4) пикселя даёт 5*sqrt(n)/n
	shifted := make([]r2.Point, len(imagePoints[0]))
	for i, p := range imagePoints[0] {
		shifted[i] = r2.Point{X: p.X + 3, Y: p.Y + 4}
	}
	report, err = NewReprojectionErrorEvaluator(projector).Evaluate(objectPoints[:1], [][]r2.Point{shifted}, &entity.Solution{
		CameraMatrix: k, DistCoeffs: dist, Rotations: sol.Rotations[:1], Translations: sol.Translations[:1],
	})
	require.NoError(t, err)
	require.InDelta(t, 5/math.Sqrt(54), report.PerView[0], 1e-9)
	require.InDelta(t, report.PerView[0], report.MeanError, 1e-12)
}
