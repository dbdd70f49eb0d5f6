package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCalendarCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show upcoming episodes for a user's followed shows",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := ctx.commandService()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			reply, err := svc.Calendar(cmd.Context(), userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if reply.Content != "" {
				fmt.Fprintln(out, reply.Content)
				return nil
			}
			for _, field := range reply.Embed.Fields {
				fmt.Fprintf(out, "%s\n%s\n", field.Name, field.Value)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Chat user id to build the calendar for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
