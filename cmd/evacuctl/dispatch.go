package main

import (
	"fmt"

	"github.com/spf13/cobra"

	shelters "evacumate/internal/modules/shelters/domain"
	"evacumate/internal/modules/shelters/infrastructure"
)

func newDispatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "dispatch [shelter-id]",
		Short:   "Request a vehicle to a shelter",
		Long:    `Request a vehicle and print the notice a dashboard would show. A failed request prints the failure notice and exits non-zero.`,
		Example: `  evacuctl dispatch s1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := infrastructure.NewDispatchHTTPClient(opts.baseURL, opts.timeout, nil)
			result, err := client.Request(cmd.Context(), args[0])
			if err != nil {
				writef(cmd.OutOrStdout(), "%s\n", shelters.DispatchFailedMessage)
				return fmt.Errorf("dispatch %s: %w", args[0], err)
			}
			writef(cmd.OutOrStdout(), "%s\n", result.Message())
			return nil
		},
	}
}
