package main

import (
	"github.com/spf13/cobra"

	"camcalib/internal/api/httpapi"
)

// NewServeCommand .
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if _, err := c.CalibrationService.LoadStored(); err != nil {
				logger.WithError(err).Warn("ignoring stored calibration result")
			}

			if addr == "" {
				addr = c.Config.HTTPAddr
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			srv := httpapi.NewServer(c.CalibrationService, c.Undistorter, c.Codec, logger.WithField("component", "http"))
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR or :8080)")

	return cmd
}
