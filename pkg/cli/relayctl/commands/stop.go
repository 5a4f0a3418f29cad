package commands

import (
	"fmt"
	"io"

	relayv1 "github.com/kralicky/streamrelay/pkg/apis/relay/v1"
	"github.com/spf13/cobra"
)

func BuildStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stop <stream-id>",
		GroupID: GroupIdClientCommands,
		Short:   "Stop a running stream.",
		Long: `
Stops a running stream, then waits for its transcoder to be terminated.

The transcoder is first sent SIGTERM. If it does not exit within the server's
grace period, it is forcefully killed with SIGKILL.
`[1:],
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeStreamIds,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFromCommand(cmd)
			if client == nil {
				return nil
			}
			result, err := client.Stop(cmd.Context(), &relayv1.StreamId{Id: args[0]})
			if err != nil {
				return err
			}
			printStopResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	return cmd
}

func BuildStopAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stop-all",
		GroupID: GroupIdClientCommands,
		Short:   "Stop every running stream.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFromCommand(cmd)
			if client == nil {
				return nil
			}
			results, err := client.StopAll(cmd.Context(), &relayv1.Empty{})
			if err != nil {
				return err
			}
			if len(results.GetItems()) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no streams running")
				return nil
			}
			for _, result := range results.GetItems() {
				printStopResult(cmd.OutOrStdout(), result)
			}
			return nil
		},
	}
	return cmd
}

func printStopResult(w io.Writer, result *relayv1.StopResult) {
	fmt.Fprintf(w, "%s\t%s\n", result.Id, result.Termination)
}
