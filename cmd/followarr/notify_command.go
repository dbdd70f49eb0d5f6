package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"followarr/internal/messenger"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	notifyCmd.AddCommand(newNotifyTestCommand(ctx))
	return notifyCmd
}

func newNotifyTestCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test direct message",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Discord.BotToken == "" {
				return fmt.Errorf("no bot token configured; set discord bot_token or DISCORD_BOT_TOKEN")
			}

			msg, err := messenger.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			embed := messenger.Embed{
				Title:       "Followarr Test Notification",
				Description: "If you can read this, direct-message delivery works.",
				Footer:      &messenger.Footer{Text: "Sent " + time.Now().UTC().Format(time.RFC3339)},
			}
			if err := msg.SendDirectMessage(cmd.Context(), userID, embed); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Chat user id to message")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
