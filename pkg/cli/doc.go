// Package cli implements the auditctl command line client.
//
// # Commands
//
// Record an event:
//
//	auditctl log --type LOGIN --user user1 --description "signed in"
//
// List events, newest first by default:
//
//	auditctl events --user user1 --type LOGIN --sort-order asc
//	auditctl events --id 7f9c...
//
// Export to stdout, a file, or S3:
//
//	auditctl export --format csv --out events.csv
//	auditctl export --format ndjson --s3-bucket audit-archive --s3-key 2024/03/events.ndjson
//
// The server URL comes from --server, then AUDITLOG_URL, then http://localhost:8080.
// S3 credentials are read from AUDITLOG_S3_ACCESS_KEY and AUDITLOG_S3_SECRET_KEY,
// falling back to the default AWS credential chain.
package cli
