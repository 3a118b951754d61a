// Package archive uploads exported audit events to S3-compatible object storage.
//
//	uploader, err := archive.NewS3Uploader(ctx, archive.Config{
//		Endpoint:     "http://minio:9000",
//		Region:       "us-east-1",
//		Bucket:       "audit-archive",
//		UsePathStyle: true,
//	})
//	checksum, err := uploader.Upload(ctx, "2024/03/events.csv", data, "text/csv")
package archive
