package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiDim   = "\x1b[2m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorize(s, color string, on bool) string {
	if !on || s == "" {
		return s
	}
	return color + s + ansiReset
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderPlan(p learning.Plan) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Concept", "Video", "Channel", "URL"})
	for i, item := range p {
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), item.Concept, item.VideoTitle, item.Channel, item.VideoURL})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, WidthMax: 48},
	})
	return tw.Render()
}

func renderExecution(res learning.ExecutionResult, color bool) string {
	status := colorize("PASS", ansiGreen, color)
	if !res.Success {
		status = colorize("FAIL", ansiRed, color)
	}
	out := fmt.Sprintf("[%s] %s\n", status, colorize(fmt.Sprintf("%.3fs", res.ExecutionTime), ansiDim, color))
	if res.Output != "" {
		out += res.Output
		if res.Output[len(res.Output)-1] != '\n' {
			out += "\n"
		}
	}
	if res.Error != "" {
		out += colorize(res.Error, ansiRed, color) + "\n"
	}
	return out
}

// spin shows an indeterminate spinner on stderr while fn runs. Nothing is drawn when stderr is not a
// terminal.
func spin(cmd *cobra.Command, description string, fn func() error) error {
	w := cmd.ErrOrStderr()
	if !shouldColorize(w) {
		return fn()
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()
	err := fn()
	close(done)
	_ = bar.Finish()
	return err
}
