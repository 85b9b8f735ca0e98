package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcript <video-url-or-id>",
		Short: "Print a video's caption transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, log, err := ctx.clients()
			if err != nil {
				return err
			}
			defer clients.Close()

			tr, err := clients.Assistant(log).FetchTranscript(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, tr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tr.Text)
			if tr.Truncated {
				fmt.Fprintln(cmd.ErrOrStderr(), "transcript truncated")
			}
			return nil
		},
	}
}
