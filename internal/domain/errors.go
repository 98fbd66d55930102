package domain

import (
	"errors"
	"fmt"
)

// ErrEngineUnknown is returned by the dump step for targets whose engine
// could not be resolved.
var ErrEngineUnknown = errors.New("database engine could not be resolved")

// ConfigError reports an invalid setting, either process wide at startup or
// on a single container label.
type ConfigError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config %s=%q: %s", e.Key, e.Value, e.Reason)
}

// DumpError is a failed dump tool invocation.
type DumpError struct {
	Command string
	Code    int
	Stderr  string
	Err     error
}

func (e *DumpError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
	if e.Err != nil {
		msg = fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *DumpError) Unwrap() error { return e.Err }

// Post-processing stages.
const (
	StageCompress = "compress"
	StageEncrypt  = "encrypt"
	StageChown    = "chown"
	StageStat     = "stat"
)

// ProcessError is a failure in one post-processing stage.
type ProcessError struct {
	Stage string
	Path  string
	Err   error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// NetworkOpError is a failed helper network operation.
type NetworkOpError struct {
	Op        string
	Network   string
	Container string
	Err       error
}

func (e *NetworkOpError) Error() string {
	if e.Container != "" {
		return fmt.Sprintf("network %s %s (container %s): %v", e.Op, e.Network, e.Container, e.Err)
	}
	return fmt.Sprintf("network %s %s: %v", e.Op, e.Network, e.Err)
}

func (e *NetworkOpError) Unwrap() error { return e.Err }

// ReportingError is a failed call to a monitoring sink. It never changes the
// outcome of a cycle.
type ReportingError struct {
	Sink string
	URL  string
	Err  error
}

func (e *ReportingError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("report to %s (%s): %v", e.Sink, e.URL, e.Err)
	}
	return fmt.Sprintf("report to %s: %v", e.Sink, e.Err)
}

func (e *ReportingError) Unwrap() error { return e.Err }

// ErrorKind classifies a per-target failure.
type ErrorKind string

const (
	KindConfig  ErrorKind = "config"
	KindEngine  ErrorKind = "engine"
	KindNetwork ErrorKind = "network"
	KindDump    ErrorKind = "dump"
	KindProcess ErrorKind = "process"
)

// Classify maps an error returned while processing a target to its kind.
func Classify(err error) ErrorKind {
	var (
		cfgErr  *ConfigError
		dumpErr *DumpError
		procErr *ProcessError
		netErr  *NetworkOpError
	)
	switch {
	case errors.Is(err, ErrEngineUnknown):
		return KindEngine
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &dumpErr):
		return KindDump
	case errors.As(err, &procErr):
		return KindProcess
	default:
		return KindDump
	}
}
