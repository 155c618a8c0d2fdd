package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/services"
)

func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show today's habits and progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncedApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				now := app.Now()
				return RenderDashboard(cmd.OutOrStdout(), app.Sync.Store().Snapshot(), app.Sync.Summary(now), now)
			})
		},
	}
}

type habitFlags struct {
	name  string
	color string
	icon  string
}

func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &habitFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a habit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.requireSession(ctx); err != nil {
					return err
				}
				habit, err := app.Sync.CreateHabit(ctx, domain.CreateHabitInput{
					Name:  flags.name,
					Color: flags.color,
					Icon:  flags.icon,
				})
				if habit != nil {
					fmt.Fprint(cmd.OutOrStdout(), "Created ")
					if rerr := RenderHabit(cmd.OutOrStdout(), *habit, app.Now()); rerr != nil {
						return rerr
					}
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "habit name")
	cmd.Flags().StringVar(&flags.color, "color", "", "color tag (default "+domain.DefaultColor+")")
	cmd.Flags().StringVar(&flags.icon, "icon", "", "icon tag (default "+domain.DefaultIcon+")")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &habitFlags{}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a habit's name, color or icon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input domain.UpdateHabitInput
			if cmd.Flags().Changed("name") {
				input.Name = &flags.name
			}
			if cmd.Flags().Changed("color") {
				input.Color = &flags.color
			}
			if cmd.Flags().Changed("icon") {
				input.Icon = &flags.icon
			}
			if input.IsEmpty() {
				return domain.ErrEmptyUpdate
			}

			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.requireSession(ctx); err != nil {
					return err
				}
				habit, err := app.Sync.UpdateHabit(ctx, args[0], input)
				if habit != nil {
					fmt.Fprint(cmd.OutOrStdout(), "Updated ")
					if rerr := RenderHabit(cmd.OutOrStdout(), *habit, app.Now()); rerr != nil {
						return rerr
					}
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "new name")
	cmd.Flags().StringVar(&flags.color, "color", "", "new color tag")
	cmd.Flags().StringVar(&flags.icon, "icon", "", "new icon tag")

	return cmd
}

func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a habit",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.requireSession(ctx); err != nil {
					return err
				}
				if err := app.Sync.DeleteHabit(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func NewDoneCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a habit completed today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.requireSession(ctx); err != nil {
					return err
				}
				outcome, err := app.Sync.ToggleCompletion(ctx, args[0])
				if err != nil {
					return err
				}

				name := args[0]
				if h, ok := app.Sync.Store().Snapshot().Find(args[0]); ok {
					name = h.Name
				}
				if outcome == services.OutcomeSoftConflict {
					fmt.Fprintf(cmd.OutOrStdout(), "%s was already done today.\n", name)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Nice! %s done for today.\n", name)
				return nil
			})
		},
	}
}

// NewReorderCommand moves the listed habits to the front in the given order;
// unlisted habits keep their relative order after them.
func NewReorderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Change the display order of habits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncedApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				ordered, err := reorderHabits(app.Sync.Store().Snapshot().Habits, args)
				if err != nil {
					return err
				}
				if err := app.Sync.ReorderHabits(ctx, ordered); err != nil {
					return err
				}
				now := app.Now()
				return RenderDashboard(cmd.OutOrStdout(), app.Sync.Store().Snapshot(), app.Sync.Summary(now), now)
			})
		},
	}
}

func reorderHabits(current []domain.Habit, ids []string) ([]domain.Habit, error) {
	byID := make(map[string]domain.Habit, len(current))
	for _, h := range current {
		byID[h.ID] = h
	}

	ordered := make([]domain.Habit, 0, len(current))
	placed := make(map[string]bool, len(ids))
	for _, id := range ids {
		h, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("cli: %w: %s", domain.ErrHabitNotFound, id)
		}
		if placed[id] {
			return nil, fmt.Errorf("cli: habit %s listed twice", id)
		}
		placed[id] = true
		ordered = append(ordered, h)
	}
	for _, h := range current {
		if !placed[h.ID] {
			ordered = append(ordered, h)
		}
	}
	return ordered, nil
}
