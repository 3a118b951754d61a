package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/auditlog/pkg/audit"
)

func (e *env) newLogCommand() *Command {
	cmd := &Command{
		Name:        "log",
		Description: "Record an audit event",
		Flags:       newFlagSet("log", e.out),
	}

	server := cmd.Flags.String("server", defaultServer(), "Audit log server URL")
	eventType := cmd.Flags.String("type", "", "Event type (LOGIN, LOGOUT, ACCESS, ...)")
	user := cmd.Flags.String("user", "", "User id")
	description := cmd.Flags.String("description", "", "Free text description")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *eventType == "" || *user == "" {
			return fmt.Errorf("type and user are required")
		}

		c, err := newClient(*server)
		if err != nil {
			return err
		}

		resp, err := c.LogEvent(ctx, audit.LogRequest{
			EventType:   *eventType,
			Description: *description,
			UserID:      *user,
		})
		if err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}

		e.logger.WithFields(logrus.Fields{
			"event_id":   resp.EventID,
			"event_type": *eventType,
		}).Debug("Audit event recorded")

		return writeJSON(e.out, resp)
	}

	return cmd
}
