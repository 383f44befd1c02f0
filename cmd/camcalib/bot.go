package main

import (
	"errors"

	"github.com/spf13/cobra"

	"camcalib/internal/api/telegram"
)

// NewBotCommand .
func NewBotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if c.Config.TelegramToken == "" {
				return errors.New("TELEGRAM_TOKEN is required")
			}

			bot, err := telegram.NewBot(c.Config.TelegramToken, c.WorkflowService, c.Pattern, logger.WithField("component", "bot"))
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			logger.Info("bot is running")
			return bot.Run(ctx)
		},
	}
}
