package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/learnloop-backend/internal/modules/learning/problem"
)

func newProblemCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "problem <video-url-or-id>",
		Short: "Generate a Python practice problem from a video transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, log, err := ctx.clients()
			if err != nil {
				return err
			}
			defer clients.Close()
			assistant := clients.Assistant(log)

			var res problem.Result
			err = spin(cmd, "Generating problem", func() error {
				var genErr error
				res, genErr = assistant.GenerateProblem(cmd.Context(), args[0], false)
				return genErr
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, res)
			}
			for _, w := range res.Shape.Warnings() {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(res.Problem.PythonFile), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d output tokens)\n", outPath, res.Problem.Usage.OutputTokens)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), res.Problem.PythonFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write the problem file here instead of stdout")
	return cmd
}
