package container

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"camcalib/config"
	"camcalib/internal/infrastructure/numeric"
	"camcalib/internal/infrastructure/vision"
)

func testConfig(t *testing.T, backend config.Backend) *config.Config {
	return &config.Config{
		Rows:        9,
		Cols:        6,
		SquareSize:  1,
		ImageGlob:   "image_*.jpg",
		ResultFile:  filepath.Join(t.TempDir(), "CameraCalibration.json"),
		DebugImages: true,
		Backend:     backend,
	}
}

func TestNew_NativeBackend(t *testing.T) {
	log, _ := test.NewNullLogger()

	c, err := New(testConfig(t, config.BackendNative), log)
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, config.BackendNative, c.Backend)
	require.IsType(t, &numeric.Solver{}, c.Solver)
	require.IsType(t, &numeric.Rectifier{}, c.Rectifier)
	require.Equal(t, 54, c.Pattern.Len())
	require.NotNil(t, c.CalibrationService)
	require.NotNil(t, c.WorkflowService)
}

func TestNew_AutoBackend(t *testing.T) {
	log, _ := test.NewNullLogger()

	c, err := New(testConfig(t, config.BackendAuto), log)
	require.NoError(t, err)
	defer c.Close()

	if vision.Enabled {
		require.Equal(t, config.BackendOpenCV, c.Backend)
	} else {
		require.Equal(t, config.BackendNative, c.Backend)
	}
}

func TestNew_OpenCVWithoutTag(t *testing.T) {
	if vision.Enabled {
		t.Skip("built with gocv")
	}
	log, _ := test.NewNullLogger()

	_, err := New(testConfig(t, config.BackendOpenCV), log)
	require.Error(t, err)
}

func TestNew_InvalidPattern(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := testConfig(t, config.BackendNative)
	cfg.Rows = 0

	_, err := New(cfg, log)
	require.Error(t, err)
}
