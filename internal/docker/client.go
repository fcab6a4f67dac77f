package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// Client wraps the Docker SDK client.
type Client struct {
	inner *client.Client
}

// New creates a new Docker client using environment defaults.
func New(host string) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if strings.TrimSpace(host) != "" {
		opts = append(opts, client.WithHost(host))
	}
	inner, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Client{inner: inner}, nil
}

// Ping validates connectivity to the Docker daemon.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.inner == nil {
		return fmt.Errorf("docker client not initialized")
	}
	ping, err := c.inner.Ping(ctx)
	if err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	if ping.APIVersion == "" {
		return fmt.Errorf("docker ping returned empty API version")
	}
	return nil
}

// ContainerState is the subset of container inspection data used for status reporting.
type ContainerState struct {
	ID        string
	Name      string
	Status    string
	StartedAt string
}

// InspectContainer returns the runtime state of the named container.
// A missing container yields ErrNotFound.
func (c *Client) InspectContainer(ctx context.Context, name string) (ContainerState, error) {
	if c == nil || c.inner == nil {
		return ContainerState{}, fmt.Errorf("docker client not initialized")
	}
	if strings.TrimSpace(name) == "" {
		return ContainerState{}, fmt.Errorf("container name cannot be empty")
	}
	inspect, err := c.inner.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return ContainerState{}, fmt.Errorf("container %s: %w", name, ErrNotFound)
		}
		return ContainerState{}, fmt.Errorf("container inspect: %w", err)
	}
	state := ContainerState{Name: name}
	if inspect.ContainerJSONBase == nil {
		return state, nil
	}
	state.ID = inspect.ID
	if inspect.Name != "" {
		state.Name = strings.TrimPrefix(inspect.Name, "/")
	}
	if inspect.State != nil {
		state.Status = inspect.State.Status
		state.StartedAt = inspect.State.StartedAt
	}
	return state, nil
}

// Close releases resources held by the Docker client.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}
