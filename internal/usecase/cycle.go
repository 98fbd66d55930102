package usecase

import (
	"context"
	"fmt"

	"github.com/juju/clock"

	"github.com/semmidev/dbwarden/internal/domain"
)

// CycleOptions are the per-process knobs of a backup cycle.
type CycleOptions struct {
	NetworkName    string
	OwnContainerID string
	// ContainerFilter restricts discovery to these names when non-empty.
	ContainerFilter []string
	GlobalLabels    domain.LabelValues
	DeleteDays      int
	KeepMin         int
}

// Orchestrator runs one backup cycle at a time, one target at a time.
type Orchestrator struct {
	runtime   domain.ContainerRuntime
	dumper    *Dumper
	pipeline  *Pipeline
	uploader  *Uploader
	retention *Retention
	local     ArtifactStore
	reporters []domain.Reporter
	clock     clock.Clock
	logger    Logger
	opts      CycleOptions

	// purged is false until stale networks have been cleared, and again
	// after a cycle fails to remove its own network.
	purged  bool
	observe func(State)
}

func NewOrchestrator(
	runtime domain.ContainerRuntime,
	dumper *Dumper,
	pipeline *Pipeline,
	uploader *Uploader,
	retention *Retention,
	local ArtifactStore,
	reporters []domain.Reporter,
	clk clock.Clock,
	logger Logger,
	opts CycleOptions,
) *Orchestrator {
	if uploader == nil {
		uploader = NewUploader(nil, logger)
	}
	return &Orchestrator{
		runtime:   runtime,
		dumper:    dumper,
		pipeline:  pipeline,
		uploader:  uploader,
		retention: retention,
		local:     local,
		reporters: reporters,
		clock:     clk,
		logger:    logger,
		opts:      opts,
	}
}

// Observe registers fn to be told when a cycle moves between phases.
func (o *Orchestrator) Observe(fn func(State)) {
	o.observe = fn
}

func (o *Orchestrator) enter(s State) {
	if o.observe != nil {
		o.observe(s)
	}
}

// helperNetwork tracks the state of the cycle's private network.
type helperNetwork struct {
	id         string
	selfJoined bool
	err        error
}

// RunCycle performs one complete backup cycle. Per-target failures are
// recorded on the result and never stop the remaining targets.
func (o *Orchestrator) RunCycle(ctx context.Context) *domain.CycleResult {
	start := o.clock.Now()
	result := &domain.CycleResult{StartedAt: start}

	if !o.purged {
		o.purgeStaleNetworks(ctx)
		o.purged = true
	}

	o.enter(StateDiscovering)
	o.reportStarted(ctx)

	containers, err := o.discover(ctx)
	if err != nil {
		o.logger.Errorf("Failed to list containers: %v", err)
		result.Failure = err.Error()
		return o.finish(ctx, result)
	}

	if len(containers) == 0 {
		o.logger.Infof("No databases to backup")
		return o.finish(ctx, result)
	}

	o.logger.Infof("Starting backup cycle with %d container(s)..", len(containers))

	o.enter(StateRunning)
	net := o.setupNetwork(ctx)
	for i, c := range containers {
		result.Total++
		o.logger.Infof("[%d/%d] Processing container %s %s", i+1, len(containers), shortID(c.ID), c.Name)

		art, err := o.processTarget(ctx, c, net)
		if err != nil {
			kind := domain.Classify(err)
			o.logger.Errorf("[%s] Backup failed (%s): %v", c.Name, kind, err)
			result.Errors = append(result.Errors, domain.TargetError{
				TargetID: c.ID,
				Name:     c.Name,
				Kind:     kind,
				Message:  err.Error(),
			})
			continue
		}

		result.Succeeded++
		result.Artifacts = append(result.Artifacts, art)
	}
	o.teardownNetwork(ctx, net)

	stats, err := o.retention.Cleanup(ctx, o.local, o.opts.DeleteDays, o.opts.KeepMin)
	if err != nil {
		o.logger.Errorf("Local retention failed: %v", err)
	} else if stats.Deleted > 0 || stats.Failed > 0 {
		o.logger.Infof("Retention: deleted %d of %d backups (%d failed)", stats.Deleted, stats.Total, stats.Failed)
	}
	result.Retention = stats

	if o.uploader.Enabled() {
		result.RemoteRetention = o.uploader.Prune(ctx, o.retention, o.opts.DeleteDays, o.opts.KeepMin)
	}

	return o.finish(ctx, result)
}

func (o *Orchestrator) finish(ctx context.Context, result *domain.CycleResult) *domain.CycleResult {
	o.enter(StateReporting)
	result.Duration = o.clock.Now().Sub(result.StartedAt)
	o.logger.Infof("%s", result.Summary())

	for _, r := range o.reporters {
		if err := r.CycleFinished(ctx, result); err != nil {
			o.logger.Errorf("Reporting to %s failed: %v", r.Name(), err)
		}
	}
	return result
}

func (o *Orchestrator) reportStarted(ctx context.Context) {
	for _, r := range o.reporters {
		if err := r.CycleStarted(ctx); err != nil {
			o.logger.Errorf("Reporting start to %s failed: %v", r.Name(), err)
		}
	}
}

func (o *Orchestrator) discover(ctx context.Context) ([]domain.Container, error) {
	containers, err := o.runtime.ListContainers(ctx, domain.LabelPrefix+domain.LabelEnable+"=true")
	if err != nil {
		return nil, err
	}
	if len(o.opts.ContainerFilter) == 0 {
		return containers, nil
	}

	allowed := make(map[string]bool, len(o.opts.ContainerFilter))
	for _, name := range o.opts.ContainerFilter {
		allowed[name] = true
	}
	var filtered []domain.Container
	for _, c := range containers {
		if allowed[c.Name] {
			filtered = append(filtered, c)
		} else {
			o.logger.Debugf("Skipping %s, not in CONTAINER_FILTER", c.Name)
		}
	}
	return filtered, nil
}

func (o *Orchestrator) processTarget(ctx context.Context, c domain.Container, net *helperNetwork) (domain.Artifact, error) {
	refs, err := o.runtime.ImageTags(ctx, c)
	if err != nil || len(refs) == 0 {
		if err != nil {
			o.logger.Warnf("[%s] Could not inspect image, using %q: %v", c.Name, c.Image, err)
		}
		refs = []string{c.Image}
	}

	target, err := ResolveTarget(c, refs, o.opts.GlobalLabels)
	if err != nil {
		return domain.Artifact{}, err
	}
	o.logger.Debugf("[%s] Resolved %s on port %d as %s (password: %t)",
		c.Name, target.Engine, target.Port, target.Username, target.Password != "")

	if target.Engine == domain.EngineUnknown {
		return domain.Artifact{}, fmt.Errorf("cannot read database type, please specify it via label: %w", domain.ErrEngineUnknown)
	}

	if net.err != nil {
		return domain.Artifact{}, net.err
	}

	if err := o.runtime.Connect(ctx, net.id, c.ID, []string{target.Host}); err != nil {
		return domain.Artifact{}, &domain.NetworkOpError{Op: "connect", Network: o.opts.NetworkName, Container: c.Name, Err: err}
	}

	path, dumpErr := o.dumper.Dump(ctx, target, target.Host)

	// Always leave, so the alias is free for the next target.
	if err := o.runtime.Disconnect(ctx, net.id, c.ID); err != nil {
		o.logger.Errorf("[%s] %v", c.Name, &domain.NetworkOpError{Op: "disconnect", Network: o.opts.NetworkName, Container: c.Name, Err: err})
	}

	if dumpErr != nil {
		return domain.Artifact{}, dumpErr
	}

	art, err := o.pipeline.Process(ctx, path, target)
	if err != nil {
		return domain.Artifact{}, err
	}
	o.logger.Infof("[%s] Backup written to %s", c.Name, art.Path)

	if o.uploader.Enabled() {
		if failed := o.uploader.Upload(ctx, art); len(failed) > 0 {
			o.logger.Warnf("[%s] Off-site copy failed for: %v", c.Name, failed)
		}
	}

	return art, nil
}

func (o *Orchestrator) setupNetwork(ctx context.Context) *helperNetwork {
	net := &helperNetwork{}
	name := o.opts.NetworkName

	id, err := o.runtime.CreateNetwork(ctx, name)
	if err != nil {
		net.err = &domain.NetworkOpError{Op: "create", Network: name, Err: err}
		o.logger.Errorf("%v", net.err)
		return net
	}
	net.id = id

	if err := o.runtime.Connect(ctx, id, o.opts.OwnContainerID, nil); err != nil {
		net.err = &domain.NetworkOpError{Op: "connect", Network: name, Container: o.opts.OwnContainerID, Err: err}
		o.logger.Errorf("%v", net.err)
		return net
	}
	net.selfJoined = true

	return net
}

func (o *Orchestrator) teardownNetwork(ctx context.Context, net *helperNetwork) {
	if net.id == "" {
		return
	}
	name := o.opts.NetworkName

	if net.selfJoined {
		if err := o.runtime.Disconnect(ctx, net.id, o.opts.OwnContainerID); err != nil {
			o.logger.Errorf("%v", &domain.NetworkOpError{Op: "disconnect", Network: name, Container: o.opts.OwnContainerID, Err: err})
		}
	}
	if err := o.runtime.RemoveNetwork(ctx, net.id); err != nil {
		o.logger.Errorf("%v", &domain.NetworkOpError{Op: "remove", Network: name, Err: err})
		// The leftover would block the next create under the same name.
		o.purged = false
	}
}

// purgeStaleNetworks removes helper networks left behind by a previous run
// that did not shut down cleanly.
func (o *Orchestrator) purgeStaleNetworks(ctx context.Context) {
	name := o.opts.NetworkName
	ids, err := o.runtime.FindNetworks(ctx, name)
	if err != nil {
		o.logger.Warnf("Could not look for stale networks: %v", err)
		return
	}

	for _, id := range ids {
		o.logger.Infof("Removing stale network %s (%s)", name, shortID(id))
		members, err := o.runtime.NetworkMembers(ctx, id)
		if err != nil {
			o.logger.Warnf("%v", &domain.NetworkOpError{Op: "inspect", Network: name, Err: err})
		}
		for _, member := range members {
			if err := o.runtime.Disconnect(ctx, id, member); err != nil {
				o.logger.Warnf("%v", &domain.NetworkOpError{Op: "disconnect", Network: name, Container: member, Err: err})
			}
		}
		if err := o.runtime.RemoveNetwork(ctx, id); err != nil {
			o.logger.Warnf("%v", &domain.NetworkOpError{Op: "remove", Network: name, Err: err})
		}
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
