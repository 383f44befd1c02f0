package numeric

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func newTestSolver() *Solver {
	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return NewSolver(log)
}

func TestSolver_RecoversSyntheticCamera(t *testing.T) {
	objectPoints, imagePoints := syntheticViews(nil)

	sol, err := newTestSolver().Solve(context.Background(), objectPoints, imagePoints, syntheticSize)
	require.NoError(t, err)
	require.NoError(t, sol.Validate(len(syntheticPoses)))

	require.InDelta(t, 800, sol.CameraMatrix.Fx(), 0.5)
	require.InDelta(t, 780, sol.CameraMatrix.Fy(), 0.5)
	require.InDelta(t, 320, sol.CameraMatrix.Cx(), 0.5)
	require.InDelta(t, 240, sol.CameraMatrix.Cy(), 0.5)
	require.Less(t, sol.RMS, 1e-3)
	require.Len(t, sol.DistCoeffs, 5)

	for i, pose := range syntheticPoses {
		for k := 0; k < 3; k++ {
			require.InDelta(t, pose.rotation[k], sol.Rotations[i][k], 1e-3)
			require.InDelta(t, pose.translation[k], sol.Translations[i][k], 1e-2)
		}
	}
}

func TestSolver_RefinesDistortion(t *testing.T) {
	objectPoints, imagePoints := syntheticViews([]float64{-0.05, 0, 0, 0, 0})

	sol, err := newTestSolver().Solve(context.Background(), objectPoints, imagePoints, syntheticSize)
	require.NoError(t, err)
	require.InDelta(t, 800, sol.CameraMatrix.Fx(), 8)
	require.InDelta(t, -0.05, sol.DistCoeffs[0], 0.02)
	require.Less(t, sol.RMS, 0.05)
}

func TestSolver_RejectsInvalidInput(t *testing.T) {
	objectPoints, imagePoints := syntheticViews(nil)
	s := newTestSolver()
	ctx := context.Background()

	_, err := s.Solve(ctx, objectPoints[:1], imagePoints[:1], syntheticSize)
	require.ErrorContains(t, err, "at least 2 views")

	_, err = s.Solve(ctx, objectPoints, imagePoints[:3], syntheticSize)
	require.Error(t, err)

	nonPlanar := make([][]r3.Vector, len(objectPoints))
	for i := range objectPoints {
		nonPlanar[i] = append([]r3.Vector(nil), objectPoints[i]...)
		nonPlanar[i][0].Z = 1
	}
	_, err = s.Solve(ctx, nonPlanar, imagePoints, syntheticSize)
	require.ErrorContains(t, err, "planar")

	_, err = s.Solve(ctx, objectPoints, imagePoints, syntheticSize.Sub(syntheticSize))
	require.Error(t, err)
}

func TestSolver_Cancelled(t *testing.T) {
	objectPoints, imagePoints := syntheticViews([]float64{-0.05, 0, 0, 0, 0})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSolver().Solve(ctx, objectPoints, imagePoints, syntheticSize)
	require.ErrorIs(t, err, context.Canceled)
}
