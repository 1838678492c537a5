package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhingston/DriveTime/internal/distance"
)

type lookupOutput struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Minutes     *int   `json:"minutes,omitempty"`
	Status      string `json:"status"`
	Outcome     string `json:"outcome"`
	Error       string `json:"error,omitempty"`
}

func newLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup ORIGIN DESTINATION",
		Short: "Resolve one drive time without touching the queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := distance.New(cfg.Lookup.URLTemplate, cfg.Lookup.APIKey,
				distance.WithTimeout(cfg.LookupTimeout()),
				distance.WithUserAgent(cfg.Lookup.UserAgent),
			)
			if err != nil {
				return fmt.Errorf("create lookup client: %w", err)
			}
			defer client.Close()

			result := client.Lookup(cmd.Context(), args[0], args[1])
			output := lookupOutput{
				Origin:      args[0],
				Destination: args[1],
				Minutes:     result.Minutes,
				Status:      result.Status,
				Outcome:     result.Outcome.String(),
			}
			if result.Err != nil {
				output.Error = result.Err.Error()
			}

			if ctx.JSONMode() {
				if err := writeJSON(cmd, output); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s -> %s\n", output.Origin, output.Destination)
				fmt.Fprintf(out, "Drive time: %s\n", formatMinutes(output.Minutes))
				fmt.Fprintf(out, "Status: %s\n", output.Status)
			}
			if result.Outcome == distance.OutcomeTransportError {
				return errors.New("lookup failed: " + output.Error)
			}
			return nil
		},
	}
}
