package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"

	"github.com/semmidev/dbwarden/internal/domain"
)

// helperLabel marks networks created by this process.
const helperLabel = domain.LabelPrefix + "helper"

// Runtime talks to the local Docker daemon.
type Runtime struct {
	cli *client.Client
}

// New connects using the usual DOCKER_HOST / DOCKER_* environment and
// negotiates the API version with the daemon.
func New() (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("error initializing Docker client: %w", err)
	}
	return &Runtime{cli: cli}, nil
}

func (r *Runtime) Close() error {
	return r.cli.Close()
}

// Ping checks the daemon is reachable.
func (r *Runtime) Ping(ctx context.Context) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	return nil
}

// ListContainers returns the running containers carrying label, which is
// either "key" or "key=value".
func (r *Runtime) ListContainers(ctx context.Context, label string) ([]domain.Container, error) {
	list, err := r.cli.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("label", label)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]domain.Container, 0, len(list))
	for _, c := range list {
		out = append(out, toContainer(c))
	}
	return out, nil
}

// ImageTags returns every repository tag of the container's image, falling
// back to the reference the container was started from.
func (r *Runtime) ImageTags(ctx context.Context, c domain.Container) ([]string, error) {
	inspect, _, err := r.cli.ImageInspectWithRaw(ctx, c.Image)
	if err != nil {
		return nil, fmt.Errorf("inspect image %s: %w", c.Image, err)
	}
	return imageRefs(c.Image, inspect.RepoTags), nil
}

func (r *Runtime) CreateNetwork(ctx context.Context, name string) (string, error) {
	resp, err := r.cli.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
		Labels: map[string]string{helperLabel: "true"},
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (r *Runtime) RemoveNetwork(ctx context.Context, networkID string) error {
	return r.cli.NetworkRemove(ctx, networkID)
}

// FindNetworks returns the IDs of networks named exactly name. The daemon's
// name filter also matches substrings, so results are checked again.
func (r *Runtime) FindNetworks(ctx context.Context, name string) ([]string, error) {
	list, err := r.cli.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, n := range list {
		if n.Name == name {
			ids = append(ids, n.ID)
		}
	}
	return ids, nil
}

func (r *Runtime) NetworkMembers(ctx context.Context, networkID string) ([]string, error) {
	inspect, err := r.cli.NetworkInspect(ctx, networkID, network.InspectOptions{})
	if err != nil {
		return nil, err
	}

	members := make([]string, 0, len(inspect.Containers))
	for id := range inspect.Containers {
		members = append(members, id)
	}
	return members, nil
}

func (r *Runtime) Connect(ctx context.Context, networkID, containerID string, aliases []string) error {
	var settings *network.EndpointSettings
	if len(aliases) > 0 {
		settings = &network.EndpointSettings{Aliases: aliases}
	}
	return r.cli.NetworkConnect(ctx, networkID, containerID, settings)
}

func (r *Runtime) Disconnect(ctx context.Context, networkID, containerID string) error {
	return r.cli.NetworkDisconnect(ctx, networkID, containerID, true)
}

func toContainer(c types.Container) domain.Container {
	name := c.ID
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return domain.Container{
		ID:     c.ID,
		Name:   name,
		Image:  c.Image,
		Labels: c.Labels,
	}
}

// imageRefs puts the reference the container was started with first, then
// any other tag of the same image.
func imageRefs(started string, tags []string) []string {
	refs := []string{started}
	for _, tag := range tags {
		if tag != started {
			refs = append(refs, tag)
		}
	}
	return refs
}
