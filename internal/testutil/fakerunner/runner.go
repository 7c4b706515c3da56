// Package fakerunner provides an execx.Runner for tests: canned outputs and
// errors keyed by the exact command line, with every invocation recorded.
package fakerunner

import (
	"context"
	"fmt"
	"strings"
)

// Call is one recorded command invocation.
type Call struct {
	Name string
	Args []string
}

// Runner fakes execx.Runner. Register expectations with SetOutput, SetError,
// and SetPath; inspect what ran with GetCalls.
type Runner struct {
	outputs map[string][]byte
	errors  map[string]error
	paths   map[string]string
	calls   []Call
}

// New returns an empty fake runner.
func New() *Runner {
	return &Runner{
		outputs: make(map[string][]byte),
		errors:  make(map[string]error),
		paths:   make(map[string]string),
	}
}

func key(name string, args []string) string {
	return fmt.Sprintf("%s %s", name, strings.Join(args, " "))
}

// SetOutput registers the bytes CombinedOutput returns for one command line.
func (r *Runner) SetOutput(name string, args []string, output []byte) {
	r.outputs[key(name, args)] = output
}

// SetError registers the error CombinedOutput returns for one command line.
func (r *Runner) SetError(name string, args []string, err error) {
	r.errors[key(name, args)] = err
}

// SetPath sets the resolved path LookPath returns for a binary name.
func (r *Runner) SetPath(name, path string) {
	r.paths[name] = path
}

// CombinedOutput implements execx.Runner. Like the real runner, a command
// registered with both an output and an error returns both. Unregistered
// commands succeed with empty output.
func (r *Runner) CombinedOutput(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, Call{Name: name, Args: args})

	k := key(name, args)
	if err, ok := r.errors[k]; ok {
		return r.outputs[k], err
	}
	return r.outputs[k], nil
}

// LookPath implements execx.Runner. Binaries registered with SetPath resolve
// to their configured path; anything else resolves to the bare name. Errors
// registered with SetError(name, nil, err) apply here too.
func (r *Runner) LookPath(name string) (string, error) {
	if err, ok := r.errors[key(name, nil)]; ok {
		return "", err
	}
	if path, ok := r.paths[name]; ok {
		return path, nil
	}
	return name, nil
}

// GetCalls returns every recorded invocation in order.
func (r *Runner) GetCalls() []Call {
	return r.calls
}

// Reset drops all registered expectations and recorded calls.
func (r *Runner) Reset() {
	r.outputs = make(map[string][]byte)
	r.errors = make(map[string]error)
	r.paths = make(map[string]string)
	r.calls = nil
}
