package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
)

var errProgramFailed = errors.New("program failed")

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.py>",
		Short: "Execute a local Python file in the remote sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			clients, _, err := ctx.clients()
			if err != nil {
				return err
			}
			defer clients.Close()

			var res learning.ExecutionResult
			err = spin(cmd, "Running", func() error {
				var execErr error
				res, execErr = clients.Sandbox.Execute(cmd.Context(), string(code))
				return execErr
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, res)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderExecution(res, shouldColorize(cmd.OutOrStdout())))
			if !res.Success {
				return errProgramFailed
			}
			return nil
		},
	}
}
