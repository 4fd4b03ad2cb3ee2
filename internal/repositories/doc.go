// Package repositories implements SQLite persistence for the launcher's bookkeeping.
//
// Key Implementations:
//   - [BlobRepository] : index of every file written by the download service; it satisfies download.Index
//   - [LaunchRepository] : launch history with process exit codes
//
// Records keep UUID identifiers generated with [shared.GenerateID]. The schema lives in shared/sql and is
// applied by [shared.RunMigrations].
package repositories
