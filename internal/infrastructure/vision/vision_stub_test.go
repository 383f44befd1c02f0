//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"camcalib/internal/domain/entity"
)

func TestStub_ReportsDisabled(t *testing.T) {
	require.False(t, Enabled)

	_, found, err := NewDetector().FindCorners(image.NewGray(image.Rect(0, 0, 4, 4)), image.Pt(9, 6))
	require.False(t, found)
	require.ErrorContains(t, err, "gocv build tag is not enabled")

	_, err = NewSolver().Solve(context.Background(), nil, nil, image.Pt(640, 480))
	require.Error(t, err)

	_, _, err = NewRectifier().OptimalCameraMatrix(entity.NewCameraMatrix(1, 1, 0, 0), nil, image.Pt(2, 2), 1)
	require.Error(t, err)
}
