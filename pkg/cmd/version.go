package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/urfave/cli/v2"
)

// GitCommit is set at link time with -ldflags "-X ...cmd.GitCommit=<sha>".
// When empty, the revision stamped by the go toolchain is used.
var GitCommit string

var VersionCommand = cli.Command{
	Name:   "version",
	Usage:  "print version numbers",
	Action: versionCommand,
}

func versionCommand(c *cli.Context) error {
	_, _ = fmt.Fprintln(c.App.Writer, "redcomm")
	commit := gitCommit()
	if commit == "" {
		_, _ = fmt.Fprintln(c.App.Writer, "Git commit: dirty")
		return nil
	}
	if len(commit) > 8 {
		commit = commit[:8]
	}
	_, _ = fmt.Fprintln(c.App.Writer, "Git commit:", commit)
	return nil
}

func gitCommit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
