package main

import (
	"fmt"

	"github.com/gh-nvat/vdiffchk/src/pkg/artifacts"
	"github.com/gh-nvat/vdiffchk/src/pkg/reconcile"
	"github.com/spf13/cobra"
)

// withActions runs a manual action while holding the project baseline lock
func withActions(g *globals, buildID string, action func(*reconcile.Actions) error) error {
	project := artifacts.NewProject(g.projectDir())
	actions := &reconcile.Actions{Project: project}
	if buildID != "" {
		if !artifacts.ValidBuildID(buildID) {
			return fmt.Errorf("invalid build id %q", buildID)
		}
		actions.Build = artifacts.NewBuild(g.buildsDir(), buildID)
	}

	lock := artifacts.NewProjectLock(project)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.WithField("error", err).Warn("Failed to release project lock")
		}
	}()
	return action(actions)
}

func newApproveCmd(g *globals) *cobra.Command {
	var buildID string
	cmd := &cobra.Command{
		Use:   "approve <screen>...",
		Short: "Accept a build's screens as the new baseline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActions(g, buildID, func(a *reconcile.Actions) error {
				for _, name := range args {
					if err := a.Approve(name); err != nil {
						return fmt.Errorf("failed to approve %s: %w", name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "approved %s\n", name)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&buildID, "build-id", "", "Build the screens come from (required)")
	_ = cmd.MarkFlagRequired("build-id")
	return cmd
}

func newDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <screen>...",
		Short: "Remove screens from the baseline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActions(g, "", func(a *reconcile.Actions) error {
				for _, name := range args {
					if err := a.Delete(name); err != nil {
						return fmt.Errorf("failed to delete %s: %w", name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
				}
				return nil
			})
		},
	}
}

func newDeleteAllCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-all",
		Short: "Empty the baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActions(g, "", func(a *reconcile.Actions) error {
				count, err := a.DeleteAll()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d screens\n", count)
				return nil
			})
		},
	}
}
