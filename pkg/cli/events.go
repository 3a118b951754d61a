package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

func (e *env) newEventsCommand() *Command {
	cmd := &Command{
		Name:        "events",
		Description: "List audit events, or show one with --id",
		Flags:       newFlagSet("events", e.out),
	}

	server := cmd.Flags.String("server", defaultServer(), "Audit log server URL")
	id := cmd.Flags.String("id", "", "Show a single event")
	qf := registerQueryFlags(cmd.Flags)

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		c, err := newClient(*server)
		if err != nil {
			return err
		}

		if *id != "" {
			event, err := c.GetEvent(ctx, *id)
			if err != nil {
				return fmt.Errorf("failed to get event %s: %w", *id, err)
			}
			return writeJSON(e.out, event)
		}

		query, err := qf.query()
		if err != nil {
			return err
		}

		events, err := c.GetEvents(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}

		e.logger.WithFields(logrus.Fields{
			"count":   len(events),
			"sort_by": query.SortBy,
		}).Debug("Fetched audit events")

		return writeJSON(e.out, events)
	}

	return cmd
}
