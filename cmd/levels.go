package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
)

// Levels runs one level administration subcommand and writes the result as JSON
func Levels(ctx context.Context, out io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: welcome-system levels list|create|update|toggle|delete")
	}

	switch args[0] {
	case "list":
		return withApp(ctx, func(app *App) error {
			levels, err := app.Levels.ListLevels(ctx)
			if err != nil {
				return err
			}
			return writeJSON(out, levels)
		})
	case "create":
		if len(args) < 3 {
			return fmt.Errorf("usage: welcome-system levels create <name> <points> [description]")
		}
		points, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid points %q: %w", args[2], err)
		}
		input := interfaces.LevelInput{
			Name:        args[1],
			Points:      points,
			Description: strings.Join(args[3:], " "),
			IsActive:    true,
		}
		return withApp(ctx, func(app *App) error {
			level, err := app.Levels.CreateLevel(ctx, input)
			if err != nil {
				return err
			}
			return writeJSON(out, level)
		})
	case "update":
		if len(args) < 3 {
			return fmt.Errorf("usage: welcome-system levels update <id> key=value...")
		}
		id, err := parseLevelID(args[1])
		if err != nil {
			return err
		}
		patch, err := ParseLevelPatch(args[2:])
		if err != nil {
			return err
		}
		return withApp(ctx, func(app *App) error {
			level, err := app.Levels.UpdateLevel(ctx, id, patch)
			if err != nil {
				return err
			}
			return writeJSON(out, level)
		})
	case "toggle":
		if len(args) != 2 {
			return fmt.Errorf("usage: welcome-system levels toggle <id>")
		}
		id, err := parseLevelID(args[1])
		if err != nil {
			return err
		}
		return withApp(ctx, func(app *App) error {
			level, err := app.Levels.ToggleLevel(ctx, id)
			if err != nil {
				return err
			}
			return writeJSON(out, level)
		})
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: welcome-system levels delete <id>")
		}
		id, err := parseLevelID(args[1])
		if err != nil {
			return err
		}
		return withApp(ctx, func(app *App) error {
			return app.Levels.DeleteLevel(ctx, id)
		})
	default:
		return fmt.Errorf("unknown levels command %q", args[0])
	}
}

// ParseLevelPatch reads name=, description=, points=, order= and active=
// assignments into a partial update
func ParseLevelPatch(assignments []string) (interfaces.LevelPatch, error) {
	var patch interfaces.LevelPatch
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			return patch, fmt.Errorf("expected key=value, got %q", a)
		}
		switch key {
		case "name":
			patch.Name = &value
		case "description":
			patch.Description = &value
		case "points":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return patch, fmt.Errorf("invalid points %q: %w", value, err)
			}
			patch.Points = &n
		case "order":
			n, err := strconv.Atoi(value)
			if err != nil {
				return patch, fmt.Errorf("invalid order %q: %w", value, err)
			}
			patch.SortOrder = &n
		case "active":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return patch, fmt.Errorf("invalid active flag %q: %w", value, err)
			}
			patch.IsActive = &b
		default:
			return patch, fmt.Errorf("unknown level field %q", key)
		}
	}
	return patch, nil
}

func parseLevelID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid level id %q: %w", s, err)
	}
	return id, nil
}
