package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show the last seven days of every habit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncedApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				return RenderProgress(cmd.OutOrStdout(), app.Sync.Store().Snapshot().Habits, app.Now())
			})
		},
	}
}

func NewHeatmapCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "heatmap",
		Short: "Show a five-week completion heat map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncedApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				return RenderHeatmap(cmd.OutOrStdout(), app.Sync.Store().Snapshot().Habits, app.Now())
			})
		},
	}
}
