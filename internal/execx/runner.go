// Package execx provides a testable abstraction for running external commands.
package execx

import (
	"context"
	"os/exec"
)

// Runner executes external commands. The control plane shells out only where
// the manager's bus API has no equivalent call (systemctl clean) and for the
// docker CLI engine.
type Runner interface {
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}

// RealRunner implements Runner using os/exec.
type RealRunner struct{}

// NewRealRunner returns a Runner backed by the host.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// CombinedOutput runs a command and returns its combined stdout and stderr.
func (r *RealRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// LookPath resolves a binary on PATH.
func (r *RealRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
