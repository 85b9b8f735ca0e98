package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/learnloop-backend/internal/modules/learning/plan"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <subject>",
		Short: "Generate a prerequisite-ordered learning plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, log, err := ctx.clients()
			if err != nil {
				return err
			}
			defer clients.Close()
			assistant := clients.Assistant(log)

			var out plan.Outcome
			err = spin(cmd, "Planning", func() error {
				var genErr error
				out, genErr = assistant.GeneratePlan(cmd.Context(), strings.Join(args, " "), nil)
				return genErr
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"success":     out.Parsed(),
					"plan":        out.Plan,
					"rawResponse": out.RawResponse,
				})
			}
			if !out.Parsed() {
				fmt.Fprintln(cmd.ErrOrStderr(), plan.ParseFailureMessage)
				fmt.Fprintln(cmd.OutOrStdout(), out.RawResponse)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPlan(out.Plan))
			return nil
		},
	}
}
