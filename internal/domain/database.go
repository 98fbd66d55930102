package domain

import "context"

// Database dumps one engine's data from a target reachable at host.
type Database interface {
	Backup(ctx context.Context, target BackupTarget, host, outputPath string) error
	// Extension is appended to the artifact base name. It is empty when
	// Backup writes a directory.
	Extension() string
	GetType() string
}
