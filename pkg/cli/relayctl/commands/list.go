package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	relayv1 "github.com/kralicky/streamrelay/pkg/apis/relay/v1"
	"github.com/kralicky/streamrelay/pkg/supervisor"
	"github.com/spf13/cobra"
)

func BuildListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		GroupID: GroupIdClientCommands,
		Short:   "Show all active streams.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFromCommand(cmd)
			if client == nil {
				return nil
			}
			list, err := client.List(cmd.Context(), &relayv1.Empty{})
			if err != nil {
				return err
			}
			tab := table.NewWriter()
			tab.AppendHeader(table.Row{"STREAM ID", "SOURCE", "DESTINATION"})
			for _, s := range list.GetItems() {
				tab.AppendRow(table.Row{s.Id, s.Source, s.Destination})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tab.Render())
			return nil
		},
	}
	return cmd
}

func BuildStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stats",
		GroupID: GroupIdClientCommands,
		Short:   "Show how long each active stream has been running.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFromCommand(cmd)
			if client == nil {
				return nil
			}
			stats, err := client.Stats(cmd.Context(), &relayv1.Empty{})
			if err != nil {
				return err
			}
			tab := table.NewWriter()
			tab.AppendHeader(table.Row{"STREAM ID", "SOURCE", "DESTINATION", "STARTED", "RUNNING", "BITRATE"})
			for _, s := range stats.GetItems() {
				tab.AppendRow(table.Row{
					s.Id,
					s.Source,
					s.Destination,
					s.StartedAt.Local().Format("2006-01-02 15:04:05"),
					supervisor.FormatDuration(s.Elapsed),
					s.Bitrate,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tab.Render())
			return nil
		},
	}
	return cmd
}

func BuildUptimeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "uptime",
		GroupID: GroupIdClientCommands,
		Short:   "Show how long the relay server has been running.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFromCommand(cmd)
			if client == nil {
				return nil
			}
			resp, err := client.Uptime(cmd.Context(), &relayv1.Empty{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (since %s)\n",
				supervisor.FormatDuration(resp.Uptime), resp.StartedAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	return cmd
}
