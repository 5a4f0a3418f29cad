package commands

import (
	"slices"

	relayv1 "github.com/kralicky/streamrelay/pkg/apis/relay/v1"
	"github.com/spf13/cobra"
)

func completeStreamIds(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	client, ok := relayv1.ClientFromContext(cmd.Context())
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	resp, err := client.List(cmd.Context(), &relayv1.Empty{})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var ids []string
	for _, stream := range resp.GetItems() {
		if slices.Contains(args, stream.Id) {
			continue
		}
		ids = append(ids, stream.Id)
	}
	slices.Sort(ids)
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func clientFromCommand(cmd *cobra.Command) relayv1.RelayClient {
	client, ok := relayv1.ClientFromContext(cmd.Context())
	if !ok {
		cmd.PrintErrln("failed to get client from context")
		return nil
	}
	return client
}
