package main

import (
	"bytes"
	"image"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	app "camcalib/internal/application"
	"camcalib/internal/domain/entity"
)

func TestPrintReport(t *testing.T) {
	color.NoColor = true

	result, err := entity.NewCalibrationResult(entity.Solution{
		RMS:          0.42,
		CameraMatrix: entity.NewCameraMatrix(800, 780, 320, 240),
		DistCoeffs:   []float64{-0.1, 0.01, 0, 0, 0},
		Rotations:    []entity.Vec3{{}, {}},
		Translations: []entity.Vec3{{0, 0, 10}, {0, 0, 11}},
	}, entity.ReprojectionReport{PerView: []float64{0.02, 0.04}, TotalError: 0.06, MeanError: 0.03}, image.Pt(640, 480))
	require.NoError(t, err)

	var buf bytes.Buffer
	printReport(&buf, &app.CalibrationReport{
		Result: result,
		Correspondences: &entity.Correspondences{
			Names: []string{"image_1.jpg", "image_2.jpg"},
			Stats: entity.ExtractionStats{Input: 3, Detected: 2, NotFound: 1},
		},
	})

	out := buf.String()
	require.Contains(t, out, "2 images found to be processed")
	require.Contains(t, out, "ret: 0.420000")
	require.Contains(t, out, "800.000000")
	require.Contains(t, out, "image_2.jpg")
	require.Contains(t, out, "mean error:  0.030000")
}

func TestDefaultOutput(t *testing.T) {
	require.Equal(t, "photos/frame_remap.png", defaultOutput("photos/frame.png", app.MethodRemap))
	require.Equal(t, "frame_direct.jpg", defaultOutput("frame", app.MethodDirect))
}

func TestSetupLogger(t *testing.T) {
	require.NoError(t, setupLogger("debug"))
	require.Error(t, setupLogger("loud"))
}
