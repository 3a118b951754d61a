package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/auditlog/pkg/cli"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	if os.Getenv("AUDITCTL_DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	rootCmd := cli.NewRootCommand(os.Stdout, logger)

	if err := rootCmd.Execute(context.Background(), os.Args[1:]); err != nil {
		logger.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
