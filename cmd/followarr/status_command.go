package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"followarr/internal/daemon"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			status, err := fetchStatus(statusURL(cfg.Webhook.Bind))
			if err != nil {
				return fmt.Errorf("reach daemon: %w (is `followarr serve` running?)", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(status)
			}

			rows := [][]string{
				{"Running", yesNo(status.Running)},
				{"PID", strconv.Itoa(status.PID)},
				{"Started", status.StartedAt.Format(time.RFC3339)},
				{"Listen", status.ListenAddr},
				{"Database", status.DatabasePath},
				{"Follows", strconv.FormatInt(status.Store.Follows, 10)},
				{"Users", strconv.FormatInt(status.Store.Users, 10)},
				{"Shows", strconv.FormatInt(status.Store.Shows, 10)},
				{"Events received", strconv.FormatInt(status.Ingress.Received, 10)},
				{"Events accepted", strconv.FormatInt(status.Ingress.Accepted, 10)},
				{"Events rejected", strconv.FormatInt(status.Ingress.Rejected, 10)},
				{"Events dispatched", strconv.FormatInt(status.Dispatch.EventsDispatched, 10)},
				{"Notifications delivered", strconv.FormatInt(status.Dispatch.Delivered, 10)},
				{"Notifications failed", strconv.FormatInt(status.Dispatch.Failed + status.Dispatch.Unreachable, 10)},
			}
			fmt.Fprintln(out, renderTable([]tableColumn{{title: "Field"}, {title: "Value"}}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit status as JSON")
	return cmd
}

func fetchStatus(url string) (*daemon.Status, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// statusURL turns the configured bind address into a dialable status URL.
// Wildcard binds are reached over loopback.
func statusURL(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "http://" + bind + "/status"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/status"
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
