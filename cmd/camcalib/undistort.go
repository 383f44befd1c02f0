package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	app "camcalib/internal/application"
	"camcalib/internal/domain/entity"
	"camcalib/internal/infrastructure/imagefile"
)

// NewUndistortCommand .
func NewUndistortCommand() *cobra.Command {
	var (
		method string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "undistort <image>",
		Short: "Remove lens distortion from an image using the saved calibration",
		Long: `Remove lens distortion from an image using the saved calibration.

Two methods are available:
  direct  undistort the image in one pass
  remap   build rectification maps once and remap the image with cubic interpolation

The output is cropped to the region of valid pixels.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.ParseMethod(method)
			if err != nil {
				return err
			}

			c, err := newContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			ok, err := c.CalibrationService.LoadStored()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: run calibrate first (%s not found)", entity.ErrNotCalibrated, c.Store.Path())
			}

			src := entity.ImageFromPath(args[0])
			dst, ok := c.Undistorter.UndistortImage(src, m)
			if !ok {
				return fmt.Errorf("%s: %w", src.Path, app.ErrUndistortEmpty)
			}

			if out == "" {
				out = defaultOutput(src.Path, m)
			}
			encoded, err := c.Codec.Encode(dst, imagefile.FormatForPath(out))
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, encoded, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			b := dst.Bounds()
			logger.WithField("method", m).Infof("undistorted image %dx%d saved to %s", b.Dx(), b.Dy(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", string(app.MethodDirect), "undistortion method (direct, remap)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <image>_<method>.jpg next to the input)")

	return cmd
}

func defaultOutput(path string, m app.Method) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s_%s%s", base, m, ext)
}
