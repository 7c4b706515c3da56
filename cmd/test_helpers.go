package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
)

// ExecuteCommandWithCapture runs a cobra command and returns everything it
// printed. Commands here write through fmt.Print* as well as cmd.Print*, so
// os.Stdout/os.Stderr are swapped for a pipe in addition to setting cobra's
// own writers.
func ExecuteCommandWithCapture(t *testing.T, cmd *cobra.Command, args []string) (string, error) {
	t.Helper()

	savedOut, savedErr := os.Stdout, os.Stderr
	r, w, _ := os.Pipe()
	os.Stdout, os.Stderr = w, w

	var cobraOut bytes.Buffer
	cmd.SetOut(&cobraOut)
	cmd.SetErr(&cobraOut)
	cmd.SetArgs(args)

	piped := make(chan string, 1)
	go func() {
		var b bytes.Buffer
		_, _ = io.Copy(&b, r)
		piped <- b.String()
	}()

	err := cmd.Execute()

	_ = w.Close()
	os.Stdout, os.Stderr = savedOut, savedErr

	return <-piped + cobraOut.String(), err
}

// ExecuteCommand runs a cobra command when the test only cares about the error.
func ExecuteCommand(t *testing.T, cmd *cobra.Command, args []string) error {
	t.Helper()
	cmd.SetArgs(args)
	return cmd.Execute()
}

// SetupCommandContext attaches an App to the command's context the way the
// root command's pre-run does in production.
func SetupCommandContext(cmd *cobra.Command, app *App) {
	ctx := context.WithValue(context.Background(), appContextKey, app)
	cmd.SetContext(ctx)
}
