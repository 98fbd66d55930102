package domain

import "context"

// Container is the runtime's view of a container at discovery time.
type Container struct {
	ID     string
	Name   string
	Image  string
	Labels map[string]string
}

// ContainerRuntime is the subset of the container engine API the
// orchestrator needs.
type ContainerRuntime interface {
	ListContainers(ctx context.Context, label string) ([]Container, error)
	ImageTags(ctx context.Context, c Container) ([]string, error)

	CreateNetwork(ctx context.Context, name string) (string, error)
	RemoveNetwork(ctx context.Context, networkID string) error
	FindNetworks(ctx context.Context, name string) ([]string, error)
	NetworkMembers(ctx context.Context, networkID string) ([]string, error)
	Connect(ctx context.Context, networkID, containerID string, aliases []string) error
	Disconnect(ctx context.Context, networkID, containerID string) error
}

// Command is one external process invocation.
type Command struct {
	Name string
	Args []string
	// Env is appended to the process environment.
	Env []string
}

// ExecResult is what an external process left behind.
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Executor runs external commands to completion.
type Executor interface {
	Run(ctx context.Context, cmd Command) (ExecResult, error)
}

// Reporter receives cycle lifecycle events. A returned error is logged by
// the caller and never changes the cycle outcome.
type Reporter interface {
	Name() string
	CycleStarted(ctx context.Context) error
	CycleFinished(ctx context.Context, result *CycleResult) error
}
