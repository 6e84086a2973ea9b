package main

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logger = log.WithField("package", "main")

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	err := newRootCmd().Execute()
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError carries a verdict exit code out of cobra without printing usage
type exitError struct {
	code   int
	result string
}

func (e *exitError) Error() string {
	return fmt.Sprintf("build result %s (exit code %d)", e.result, e.code)
}

// globals are the settings shared by every subcommand once flags, env and the settings file are merged
type globals struct {
	settingsFile string
	v            *viper.Viper
}

func (g *globals) projectDir() string { return expandPath(g.v.GetString("project-dir")) }
func (g *globals) buildsDir() string  { return expandPath(g.v.GetString("builds-dir")) }

// newRootCmd creates the root command, parse args from CLI
func newRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   "vdiffchk",
		Short: "Visual regression verdicts for screenshot builds",
		Long: `vdiffchk reconciles the screenshots of a build against a project's approved baseline.
It compares every screen, classifies it, applies the configured thresholds and reports a build verdict,
locally or as a GitHub PR comment. Baseline maintenance is available from the CLI and over HTTP.`,
		Version:       fmt.Sprintf("%s (built: %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadSettings(cmd, g.settingsFile)
			if err != nil {
				return err
			}
			g.v = v
			return setupLogging(v)
		},
	}

	cmd.PersistentFlags().StringVar(&g.settingsFile, "settings", "", "Settings file (default is $HOME/.vdiffchk.yaml)")
	cmd.PersistentFlags().String("project-dir", ".", "Project directory holding the approved baseline (vDiff/) and history.db")
	cmd.PersistentFlags().String("builds-dir", "./builds", "Directory holding one folder per build")
	cmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	cmd.PersistentFlags().Bool("debug", false, "Debug mode (same as --log-level debug)")

	cmd.AddCommand(
		newRunCmd(g),
		newApproveCmd(g),
		newDeleteCmd(g),
		newDeleteAllCmd(g),
		newHistoryCmd(g),
		newServeCmd(g),
	)
	return cmd
}
