package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/auditlog/pkg/archive"
	"github.com/platinummonkey/auditlog/pkg/audit"
)

type objectUploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// newUploader is swapped in tests
var newUploader = func(ctx context.Context, cfg archive.Config) (objectUploader, error) {
	return archive.NewS3Uploader(ctx, cfg)
}

func (e *env) newExportCommand() *Command {
	cmd := &Command{
		Name:        "export",
		Description: "Export audit events to stdout, a file, or S3",
		Flags:       newFlagSet("export", e.out),
	}

	server := cmd.Flags.String("server", defaultServer(), "Audit log server URL")
	formatFlag := cmd.Flags.String("format", string(audit.ExportFormatJSON), "json, ndjson or csv")
	outPath := cmd.Flags.String("out", "", "Write the export to this file")
	bucket := cmd.Flags.String("s3-bucket", "", "Upload the export to this S3 bucket")
	key := cmd.Flags.String("s3-key", "", "Object key for --s3-bucket (default audit-events.<format>)")
	endpoint := cmd.Flags.String("s3-endpoint", os.Getenv("AUDITLOG_S3_ENDPOINT"), "S3 endpoint override (e.g. MinIO)")
	region := cmd.Flags.String("s3-region", envOr("AUDITLOG_S3_REGION", "us-east-1"), "S3 region")
	pathStyle := cmd.Flags.Bool("s3-path-style", os.Getenv("AUDITLOG_S3_USE_PATH_STYLE") == "true", "Use path-style S3 addressing")
	qf := registerQueryFlags(cmd.Flags)

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *outPath != "" && *bucket != "" {
			return fmt.Errorf("--out and --s3-bucket are mutually exclusive")
		}

		format, err := audit.ParseExportFormat(*formatFlag)
		if err != nil {
			return err
		}
		query, err := qf.query()
		if err != nil {
			return err
		}

		c, err := newClient(*server)
		if err != nil {
			return err
		}

		data, err := c.Export(ctx, query, format)
		if err != nil {
			return fmt.Errorf("failed to export events: %w", err)
		}

		log := e.logger.WithFields(logrus.Fields{
			"format": format,
			"bytes":  len(data),
		})

		switch {
		case *outPath != "":
			if err := os.WriteFile(*outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", *outPath, err)
			}
			log.WithField("path", *outPath).Info("Exported audit events")

		case *bucket != "":
			objectKey := *key
			if objectKey == "" {
				objectKey = format.FileName()
			}

			uploader, err := newUploader(ctx, archive.Config{
				Endpoint:     *endpoint,
				Region:       *region,
				Bucket:       *bucket,
				AccessKey:    os.Getenv("AUDITLOG_S3_ACCESS_KEY"),
				SecretKey:    os.Getenv("AUDITLOG_S3_SECRET_KEY"),
				UsePathStyle: *pathStyle,
			})
			if err != nil {
				return fmt.Errorf("failed to create uploader: %w", err)
			}

			checksum, err := uploader.Upload(ctx, objectKey, data, format.ContentType())
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"bucket":   *bucket,
				"key":      objectKey,
				"checksum": checksum,
			}).Info("Uploaded audit export")

		default:
			if _, err := e.out.Write(data); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
		}

		return nil
	}

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
