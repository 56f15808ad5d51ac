package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newCarriersCmd(open opener, logger func(*cobra.Command) zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "carriers",
		Short: "List the configured carrier codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, release, err := open(cmd.Context(), logger(cmd))
			if err != nil {
				return fmt.Errorf("starting search pipeline: %w", err)
			}
			defer release()

			codes := s.Carriers()
			if len(codes) == 0 {
				printf(cmd.ErrOrStderr(), "no carriers configured, set CARRIERS_CONFIG or CARRIER_<SCAC>_* variables\n")
				return nil
			}
			for _, scac := range codes {
				printf(cmd.OutOrStdout(), "%s\n", scac)
			}
			return nil
		},
	}
}
