package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	relayv1 "github.com/kralicky/streamrelay/pkg/apis/relay/v1"
	"github.com/spf13/cobra"
)

func BuildStartCmd() *cobra.Command {
	var bitrate string
	var follow bool
	cmd := &cobra.Command{
		Use:     "start <source-url> <rtmp-url> <stream-key>",
		Aliases: []string{"stream"},
		GroupID: GroupIdClientCommands,
		Short:   "Start relaying a stream.",
		Long: fmt.Sprintf(`
Starts relaying an HLS or other http(s) source to an RTMP destination, and
prints the new stream's ID if it was started successfully.

The stream key is appended to the RTMP url to form the full destination.

To see the transcoder output, use the command '%[1]s logs <id>'.
`[1:], os.Args[0]),
		Example: fmt.Sprintf(`
  $ %[1]s start http://example.com/playlist.m3u8 rtmp://a.rtmp.youtube.com/live2 abcd-1234-efgh-5678
`[1:], os.Args[0]),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFromCommand(cmd)
			if client == nil {
				return nil
			}
			id, err := client.Start(cmd.Context(), &relayv1.StartRequest{
				Source:      args[0],
				Destination: args[1],
				Key:         args[2],
				Bitrate:     bitrate,
			})
			if err != nil {
				return err
			}
			if !follow {
				fmt.Fprintln(cmd.OutOrStdout(), id.Id)
				return nil
			}
			return followOutput(cmd, client, id)
		},
	}
	cmd.Flags().StringVarP(&bitrate, "bitrate", "b", "", "bitrate shown in stream stats (default is the server's video bitrate)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow the transcoder output of the stream")
	return cmd
}

func followOutput(cmd *cobra.Command, client relayv1.RelayClient, id *relayv1.StreamId) error {
	stream, err := client.Output(cmd.Context(), id)
	if err != nil {
		return err
	}
	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		cmd.OutOrStdout().Write(resp.GetOutput())
	}
}
