package domain

import (
	"fmt"
	"regexp"
	"time"
)

// TimestampLayout is the second-precision timestamp embedded in artifact
// names.
const TimestampLayout = "20060102T150405"

// TargetAlias is the network alias every target answers to while it is
// being dumped.
const TargetAlias = "database-backup-target"

// BackupTarget is one container resolved for a single cycle.
type BackupTarget struct {
	ContainerID          string
	Name                 string
	Engine               Engine
	Host                 string
	Username             string
	Password             string
	Token                string
	Port                 int
	Compress             bool
	EncryptionPassphrase string
}

// Artifact is the on-disk result of backing up one target.
type Artifact struct {
	Path             string
	TargetID         string
	TargetName       string
	UncompressedSize int64
	// CompressedSize is zero when compression did not run.
	CompressedSize int64
	// Size is the size of the file at Path.
	Size       int64
	Compressed bool
	Encrypted  bool
	CreatedAt  time.Time
}

// ArtifactBase returns "{name}_{timestamp}" without extension.
func ArtifactBase(containerName string, at time.Time) string {
	return fmt.Sprintf("%s_%s", containerName, at.Format(TimestampLayout))
}

var artifactPattern = regexp.MustCompile(`^(.+)_(\d{8}T\d{6})(\.[A-Za-z0-9.]+)?$`)

// ParseArtifactName splits a file name into its container name and
// timestamp. Names that do not follow the artifact layout report false.
func ParseArtifactName(filename string, loc *time.Location) (string, time.Time, bool) {
	m := artifactPattern.FindStringSubmatch(filename)
	if m == nil {
		return "", time.Time{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, m[2], loc)
	if err != nil {
		return "", time.Time{}, false
	}
	return m[1], ts, true
}

// TargetError records why a target did not complete.
type TargetError struct {
	TargetID string
	Name     string
	Kind     ErrorKind
	Message  string
}

// RetentionStats summarises one retention pass.
type RetentionStats struct {
	Deleted int
	Total   int
	Failed  int
}

// CycleResult is the aggregate outcome of one backup cycle.
type CycleResult struct {
	StartedAt time.Time
	Total     int
	Succeeded int
	Errors    []TargetError
	Artifacts []Artifact
	Retention RetentionStats
	// RemoteRetention aggregates retention over every off-site target.
	RemoteRetention RetentionStats
	Duration        time.Duration
	// Failure is set when the cycle could not look for targets at all.
	Failure string
}

// Skipped reports a cycle that found nothing to back up.
func (r *CycleResult) Skipped() bool {
	return r.Total == 0 && r.Failure == ""
}

// FullySuccessful is true only when at least one target ran and every
// target completed.
func (r *CycleResult) FullySuccessful() bool {
	return r.Total > 0 && r.Succeeded == r.Total
}

// Summary is the human readable cycle outcome sent to monitoring sinks.
func (r *CycleResult) Summary() string {
	if r.Failure != "" {
		return "Backup cycle failed: " + r.Failure
	}
	if r.Skipped() {
		return "Finished backup cycle. No databases to backup."
	}
	return fmt.Sprintf("Finished backup cycle. %d/%d successful.", r.Succeeded, r.Total)
}
