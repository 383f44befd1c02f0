package storage

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"camcalib/internal/domain/entity"
)

func sampleResult(t *testing.T) *entity.CalibrationResult {
	t.Helper()

	sol := entity.Solution{
		RMS:          0.41234567891,
		CameraMatrix: entity.NewCameraMatrix(812.123456789, 809.5, 319.75, 241.1),
		DistCoeffs:   []float64{-0.21, 0.043, 0.0012, -0.0007, 0.0001},
		Rotations:    []entity.Vec3{{0.1, -0.2, 0.03}, {-0.05, 0.12, 1.3}},
		Translations: []entity.Vec3{{-4, -2.5, 15}, {-3.1, -2.2, 16.75}},
	}
	report := entity.ReprojectionReport{PerView: []float64{0.01, 0.02}, TotalError: 0.03, MeanError: 0.015}

	result, err := entity.NewCalibrationResult(sol, report, image.Pt(640, 480))
	require.NoError(t, err)
	return result
}

func TestJSONResultStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultResultFile)
	store := NewJSONResultStore(path)
	original := sampleResult(t)

	require.NoError(t, store.Save(original))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, original.Ret(), loaded.Ret())
	require.Equal(t, original.CameraMatrix(), loaded.CameraMatrix())
	require.Equal(t, original.DistCoeffs(), loaded.DistCoeffs())
	require.Equal(t, original.Rotations(), loaded.Rotations())
	require.Equal(t, original.Translations(), loaded.Translations())

	require.NoError(t, store.Save(loaded))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestJSONResultStore_FieldNames(t *testing.T) {
	b, err := Marshal(sampleResult(t))
	require.NoError(t, err)

	for _, key := range []string{`"ret"`, `"cameraMatrix"`, `"distCoeffs"`, `"rVecs"`, `"tVecs"`} {
		require.Contains(t, string(b), key)
	}
}

func TestJSONResultStore_LoadMissing(t *testing.T) {
	store := NewJSONResultStore(filepath.Join(t.TempDir(), "missing.json"))

	_, err := store.Load()
	require.ErrorIs(t, err, entity.ErrNotCalibrated)
}

func TestJSONResultStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultResultFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONResultStore(path).Load()
	require.ErrorIs(t, err, entity.ErrSerialization)

	require.NoError(t, os.WriteFile(path, []byte(`{"ret":1,"cameraMatrix":[[1,0]],"distCoeffs":[0,0,0,0,0]}`), 0o644))
	_, err = NewJSONResultStore(path).Load()
	require.ErrorIs(t, err, entity.ErrSerialization)
}

func TestJSONResultStore_SaveToMissingDir(t *testing.T) {
	store := NewJSONResultStore(filepath.Join(t.TempDir(), "nope", DefaultResultFile))

	err := store.Save(sampleResult(t))
	require.ErrorIs(t, err, entity.ErrSerialization)
}

func TestMarshal_NilResult(t *testing.T) {
	_, err := Marshal(nil)
	require.ErrorIs(t, err, entity.ErrSerialization)
}
