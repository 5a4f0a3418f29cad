package commands

import (
	"bufio"
	"fmt"
	"strings"

	relayv1 "github.com/kralicky/streamrelay/pkg/apis/relay/v1"
	"github.com/spf13/cobra"
)

func BuildChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chat [/command args...]",
		GroupID: GroupIdClientCommands,
		Short:   "Send bot commands to the relay server.",
		Long: `
Sends a bot command such as '/stream', '/stop' or '/list' to the relay server
and prints the reply. Without arguments, reads commands from standard input,
one per line, until EOF.

Run '/help' for the list of supported commands.
`[1:],
		Example: `
  $ relayctl chat /list
  $ relayctl chat
  > /stream http://example.com/playlist.m3u8 rtmp://a.rtmp.youtube.com/live2 abcd-1234
`[1:],
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFromCommand(cmd)
			if client == nil {
				return nil
			}
			send := func(text string) error {
				reply, err := client.Command(cmd.Context(), &relayv1.CommandRequest{Text: text})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply.GetText())
				return nil
			}
			if len(args) > 0 {
				return send(strings.Join(args, " "))
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(cmd.ErrOrStderr(), "> ")
				if !scanner.Scan() {
					fmt.Fprintln(cmd.ErrOrStderr())
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if err := send(line); err != nil {
					return err
				}
			}
		},
	}
	return cmd
}
