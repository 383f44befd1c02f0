package imagefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"camcalib/internal/domain/entity"
)

func TestListImages_SortedByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"image_3.jpg", "image_1.jpg", "image_2.jpg", "other.jpg", "image_4.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	images, err := ListImages(dir, "")
	require.NoError(t, err)
	require.Len(t, images, 3)
	require.Equal(t, "image_1.jpg", images[0].Name)
	require.Equal(t, "image_2.jpg", images[1].Name)
	require.Equal(t, "image_3.jpg", images[2].Name)
	require.Equal(t, filepath.Join(dir, "image_1.jpg"), images[0].Path)
}

func TestIsDebugImage(t *testing.T) {
	require.True(t, IsDebugImage("/data/image_1_CC_124934_217569.jpg"))
	require.False(t, IsDebugImage("/data/image_1.jpg"))
	require.False(t, IsDebugImage("/data_CC_/image_1.jpg"))
}

func TestListImages_BadPattern(t *testing.T) {
	_, err := ListImages(t.TempDir(), "[")
	require.Error(t, err)
}

func TestFileSource_Read(t *testing.T) {
	s := NewFileSource()

	data, err := s.Read(entity.ImageFromBytes("mem.jpg", []byte{1, 2, 3}))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)

	path := filepath.Join(t.TempDir(), "image_1.jpg")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	data, err = s.Read(entity.ImageFromPath(path))
	require.NoError(t, err)
	require.Equal(t, "abc", string(data))

	_, err = s.Read(entity.ImageFromPath(filepath.Join(t.TempDir(), "missing.jpg")))
	require.Error(t, err)

	_, err = s.Read(entity.CalibrationImage{Name: "empty"})
	require.Error(t, err)
}
