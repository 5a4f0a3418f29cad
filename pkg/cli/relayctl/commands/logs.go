package commands

import (
	relayv1 "github.com/kralicky/streamrelay/pkg/apis/relay/v1"
	"github.com/spf13/cobra"
)

func BuildLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "logs <stream-id>",
		GroupID: GroupIdClientCommands,
		Short:   "Stream the transcoder output of a stream.",
		Long: `
Writes the most recent output of the stream's transcoder, then continues to
stream new output in real time until either the stream ends, or the command
is interrupted with Ctrl-C.
`[1:],
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeStreamIds,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFromCommand(cmd)
			if client == nil {
				return nil
			}
			return followOutput(cmd, client, &relayv1.StreamId{Id: args[0]})
		},
	}
	return cmd
}
