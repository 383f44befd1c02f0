package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	app "camcalib/internal/application"
	"camcalib/internal/domain/entity"
	"camcalib/internal/infrastructure/imagefile"
)

// NewCalibrateCommand .
func NewCalibrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate [dir]",
		Short: "Calibrate the camera from chessboard photos in dir",
		Long: `Calibrate the camera from chessboard photos in dir (current directory by default).

Photos are matched by CALIB_IMAGE_GLOB (image_*.jpg). The result is written to
CALIB_RESULT_FILE (CameraCalibration.json).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			c, err := newContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			images, err := imagefile.ListImages(dir, c.Config.ImageGlob)
			if err != nil {
				return err
			}
			if len(images) == 0 {
				return fmt.Errorf("no images matching %q found in %s", c.Config.ImageGlob, dir)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			report, err := c.CalibrationService.Calibrate(ctx, images)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			if err != nil {
				if errors.Is(err, entity.ErrEmptyInput) {
					return fmt.Errorf("chessboard %v was not found in any of %d images: %w",
						c.Pattern.PatternSize(), len(images), err)
				}
				return err
			}

			path, _ := filepath.Abs(c.Store.Path())
			logger.Infof("calibration result saved to %s", path)
			return nil
		},
	}
}

func printReport(w io.Writer, report *app.CalibrationReport) {
	bold := func(format string, a ...interface{}) string { return color.New(color.Bold).Sprintf(format, a...) }

	stats := report.Correspondences.Stats
	fmt.Fprintf(w, "%d images found to be processed (%d input, %d without chessboard, %d unreadable)\n",
		stats.Detected, stats.Input, stats.NotFound, stats.LoadFailed)
	if stats.RefineFallbacks > 0 {
		fmt.Fprintf(w, "%s %d views use unrefined corners\n", color.YellowString("warning:"), stats.RefineFallbacks)
	}

	printResult(w, report.Result)

	fmt.Fprintln(w, bold("\nreprojection error:"))
	for i, e := range report.Result.PerViewErrors() {
		name := fmt.Sprintf("view %d", i)
		if i < len(report.Correspondences.Names) {
			name = report.Correspondences.Names[i]
		}
		fmt.Fprintf(w, "  %-24s %.6f\n", name, e)
	}
	fmt.Fprintf(w, "%s %.6f\n", bold("total error:"), report.Result.TotalError())
	fmt.Fprintf(w, "%s %s\n", bold("mean error: "), meanErrorColor(report.Result.MeanError()))
}

func printResult(w io.Writer, r *entity.CalibrationResult) {
	bold := func(format string, a ...interface{}) string { return color.New(color.Bold).Sprintf(format, a...) }

	fmt.Fprintf(w, "\n%s %.6f\n", bold("ret:"), r.Ret())

	fmt.Fprintln(w, bold("\ncamera matrix:"))
	for _, row := range r.CameraMatrix() {
		fmt.Fprintf(w, "  [%12.6f %12.6f %12.6f]\n", row[0], row[1], row[2])
	}

	fmt.Fprintln(w, bold("\ndistortion coefficients:"))
	fmt.Fprintf(w, "  %v\n", r.DistCoeffs())
}

// meanErrorColor зелёный для ошибки меньше 0.1.
func meanErrorColor(e float64) string {
	if e < 0.1 {
		return color.GreenString("%.6f", e)
	}
	return color.RedString("%.6f", e)
}
