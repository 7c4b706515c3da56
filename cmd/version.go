/*
Copyright © 2025 The taskflows Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"runtime"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// Build information, populated at release time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// updateSlug is the GitHub repository releases are published to.
const updateSlug = "taskflows/taskflows"

// VersionCommand represents the version command.
type VersionCommand struct{}

// NewVersionCommand creates a new VersionCommand.
func NewVersionCommand() *VersionCommand {
	return &VersionCommand{}
}

// GetCobraCommand returns the cobra command for displaying version information.
func (c *VersionCommand) GetCobraCommand() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Show version information for taskflows.`,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("taskflows version %s\n", Version)
			fmt.Printf("  commit: %s\n  built: %s\n  go: %s\n", Commit, Date, runtime.Version())

			c.checkForUpdates(cmd.Context())
		},
	}

	return versionCmd
}

// checkForUpdates prints a notice when a newer release exists.
func (c *VersionCommand) checkForUpdates(ctx context.Context) {
	// Development builds have no release to compare against.
	if Version == "dev" {
		fmt.Println("\nSkipping update check for development build.")
		return
	}

	fmt.Println("\nChecking for updates...")

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(updateSlug))
	if err != nil {
		fmt.Printf("Update check failed: %v\n", err)
		return
	}

	if !found {
		fmt.Println("No published release found")
		return
	}

	if latest.LessOrEqual(Version) {
		fmt.Println("You are up to date.")
		return
	}

	fmt.Printf("Update available! New version: %s\n", latest.Version())
	fmt.Println("Run 'taskflows update' to update to the latest version.")
}
