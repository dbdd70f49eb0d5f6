package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"followarr/internal/bot"
)

func newFollowCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var showID int64

	cmd := &cobra.Command{
		Use:   "follow [show name]",
		Short: "Follow a show for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showID == 0 && len(args) == 0 {
				return fmt.Errorf("provide a show name or --id")
			}
			svc, st, err := ctx.commandService()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			var reply bot.Reply
			if showID != 0 {
				reply, err = svc.FollowByID(cmd.Context(), userID, showID)
			} else {
				reply, err = svc.Follow(cmd.Context(), userID, strings.Join(args, " "))
			}
			if err != nil {
				return err
			}
			printReply(cmd, reply)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Chat user id to follow as")
	cmd.Flags().Int64Var(&showID, "id", 0, "Follow by catalog show id (after disambiguation)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newUnfollowCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "unfollow <show name>",
		Short: "Unfollow a show for a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := ctx.commandService()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			reply, err := svc.Unfollow(cmd.Context(), userID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printReply(cmd, reply)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Chat user id to unfollow as")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newFollowsCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "follows",
		Short: "List a user's followed shows",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			follows, err := st.ListFollows(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if len(follows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No follows.")
				return nil
			}

			rows := make([][]string, 0, len(follows))
			for _, follow := range follows {
				rows = append(rows, []string{
					strconv.FormatInt(follow.ShowID, 10),
					follow.ShowName,
					follow.CreatedAt.Format("2006-01-02"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]tableColumn{{title: "Show ID", numeric: true}, {title: "Show"}, {title: "Followed"}},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Chat user id to list follows for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// printReply renders a command reply for the terminal. Embeds collapse to
// their title and fields; disambiguation candidates become a table.
func printReply(cmd *cobra.Command, reply bot.Reply) {
	out := cmd.OutOrStdout()
	if reply.Content != "" {
		fmt.Fprintln(out, reply.Content)
	}
	if reply.Embed != nil {
		if reply.Embed.Title != "" {
			fmt.Fprintln(out, reply.Embed.Title)
		}
		for _, field := range reply.Embed.Fields {
			fmt.Fprintf(out, "  %s: %s\n", field.Name, field.Value)
		}
		if reply.Embed.Description != "" {
			fmt.Fprint(out, reply.Embed.Description)
		}
	}
	if len(reply.Candidates) > 0 {
		rows := make([][]string, 0, len(reply.Candidates))
		for _, show := range reply.Candidates {
			rows = append(rows, []string{
				strconv.FormatInt(show.ID, 10),
				show.Name,
				show.Network,
				show.FirstAired,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]tableColumn{{title: "Show ID", numeric: true}, {title: "Name"}, {title: "Network"}, {title: "First Aired"}},
			rows,
		))
	}
}
