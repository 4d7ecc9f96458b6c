package main

import (
	"text/tabwriter"

	"github.com/spf13/cobra"

	shelters "evacumate/internal/modules/shelters/domain"
	"evacumate/internal/modules/shelters/infrastructure"
)

func newSheltersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "shelters",
		Short:   "List shelters",
		Example: `  evacuctl shelters --base-url http://localhost:8000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := infrastructure.NewShelterHTTPClient(opts.baseURL, opts.timeout, nil)
			list, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			snapshot, _ := shelters.NewSnapshot(list)
			if snapshot.Empty() {
				writef(cmd.OutOrStdout(), "No shelters available.\n")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			writef(tw, "ID\tNAME\tADDRESS\tCAPACITY\n")
			for _, s := range snapshot.Items() {
				writef(tw, "%s\t%s\t%s\t%d\n", s.ID, s.Name, s.Address, s.Capacity)
			}
			return tw.Flush()
		},
	}
}
