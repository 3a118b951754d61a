package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/auditlog/pkg/audit"
	"github.com/platinummonkey/auditlog/pkg/client"
)

// DefaultServer is used when neither --server nor AUDITLOG_URL is set
const DefaultServer = "http://localhost:8080"

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet

	out io.Writer
}

// env carries what every subcommand writes to
type env struct {
	out    io.Writer
	logger *logrus.Logger
}

// NewRootCommand creates the auditctl root command. Results are written to out,
// diagnostics go to logger.
func NewRootCommand(out io.Writer, logger *logrus.Logger) *Command {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = logrus.New()
	}
	e := &env{out: out, logger: logger}

	root := &Command{
		Name:        "auditctl",
		Description: "auditctl - audit log command line client",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("auditctl", flag.ContinueOnError),
		out:         out,
	}

	root.Subcommands["log"] = e.newLogCommand()
	root.Subcommands["events"] = e.newEventsCommand()
	root.Subcommands["export"] = e.newExportCommand()

	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	if strings.EqualFold(args[0], "-h") || strings.EqualFold(args[0], "--help") {
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(ctx, args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(out, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func defaultServer() string {
	if v := os.Getenv("AUDITLOG_URL"); v != "" {
		return v
	}
	return DefaultServer
}

// queryFlags are the filter and sort flags shared by events and export
type queryFlags struct {
	user      *string
	eventType *string
	sortBy    *string
	sortOrder *string
}

func registerQueryFlags(fs *flag.FlagSet) queryFlags {
	return queryFlags{
		user:      fs.String("user", "", "Only events of this user id"),
		eventType: fs.String("type", "", "Only events of this type (e.g. LOGIN)"),
		sortBy:    fs.String("sort-by", audit.DefaultSortField, "Sort field"),
		sortOrder: fs.String("sort-order", audit.DefaultSortOrder, "asc or desc"),
	}
}

func (q queryFlags) query() (audit.EventQuery, error) {
	query := audit.EventQuery{SortBy: *q.sortBy, SortOrder: *q.sortOrder}
	if *q.user != "" {
		user := *q.user
		query.UserID = &user
	}
	if *q.eventType != "" {
		eventType, err := audit.ParseEventType(*q.eventType)
		if err != nil {
			return audit.EventQuery{}, err
		}
		query.EventType = &eventType
	}
	return query, nil
}

func newClient(server string) (*client.Client, error) {
	c, err := client.New(server)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
