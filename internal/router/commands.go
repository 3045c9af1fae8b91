package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/keybridge/internal/command"
)

// Command names registered against the host UI command layer.
const (
	CmdEnterNormalMode       = "enterNormalMode"
	CmdInsertCtrlEscape      = "insertCtrlEscape"
	CmdCompositeEscapeFirst  = "compositeEscapeFirst"
	CmdCompositeEscapeSecond = "compositeEscapeSecond"
)

// ErrMissingKey indicates a chord command was dispatched without its
// "key" argument.
var ErrMissingKey = errors.New(`router: chord command requires a "key" argument`)

// RegisterCommands registers the router's commands with the registry.
// Disposing the returned group unregisters all of them, releases the
// interception point, and unsubscribes from mode notifications.
func (r *Router) RegisterCommands(reg *command.Registry) (*command.Group, error) {
	group := command.NewGroup()

	commands := []struct {
		name string
		fn   command.HandlerFunc
	}{
		{CmdEnterNormalMode, func(ctx context.Context, _ map[string]any) error {
			return r.EnterNormalMode(ctx)
		}},
		{CmdInsertCtrlEscape, func(ctx context.Context, _ map[string]any) error {
			return r.InsertCtrlEscape(ctx)
		}},
		{CmdCompositeEscapeFirst, func(ctx context.Context, args map[string]any) error {
			k, err := chordKey(args)
			if err != nil {
				return err
			}
			return r.CompositeEscapeFirst(ctx, k)
		}},
		{CmdCompositeEscapeSecond, func(ctx context.Context, args map[string]any) error {
			k, err := chordKey(args)
			if err != nil {
				return err
			}
			return r.CompositeEscapeSecond(ctx, k)
		}},
	}

	for _, c := range commands {
		disposable, err := reg.Register(c.name, c.fn)
		if err != nil {
			group.Dispose()
			return nil, fmt.Errorf("router: register %s: %w", c.name, err)
		}
		group.Add(disposable)
	}

	group.Add(command.DisposeFunc(r.Close))
	return group, nil
}

// chordKey extracts the literal chord character from command args.
func chordKey(args map[string]any) (string, error) {
	k, ok := args["key"].(string)
	if !ok || k == "" {
		return "", ErrMissingKey
	}
	return k, nil
}
