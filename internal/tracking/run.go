package tracking

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/canonical"
	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/registry"
)

// Run is one execution of a job. It records configuration and lineage.
// A Run is not safe for concurrent use.
type Run struct {
	client  *Client
	ID      string
	JobType string

	config   map[string]any
	finished bool
}

// UpdateConfig merges cfg into the run's configuration and persists it as
// canonical JSON. Later keys overwrite earlier ones.
func (r *Run) UpdateConfig(ctx context.Context, cfg map[string]any) error {
	merged := maps.Clone(r.config)
	if merged == nil {
		merged = map[string]any{}
	}
	maps.Copy(merged, cfg)

	data, err := canonical.Marshal(merged)
	if err != nil {
		return fmt.Errorf("update run config: %w", err)
	}
	if err := r.client.reg.SetRunConfig(ctx, r.ID, string(data)); err != nil {
		return err
	}
	r.config = merged
	return nil
}

// Config returns a copy of the recorded configuration.
func (r *Run) Config() map[string]any {
	return maps.Clone(r.config)
}

// UseArtifact resolves ref, records it as an input of this run and returns
// the local path of its payload.
func (r *Run) UseArtifact(ctx context.Context, ref string) (string, error) {
	v, err := r.client.resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if err := r.client.reg.RecordLineage(ctx, r.ID, v.ID, registry.DirectionInput); err != nil {
		return "", err
	}
	path, err := r.client.materialize(ctx, v)
	if err != nil {
		return "", err
	}
	r.client.logger.Debug("artifact resolved", "run_id", r.ID, "artifact", v.Ref(), "path", path)
	return path, nil
}

// LogArtifact publishes a as a new version produced by this run.
func (r *Run) LogArtifact(ctx context.Context, a *Artifact) (Version, error) {
	v, err := r.client.publish(ctx, r.ID, a)
	if err != nil {
		return Version{}, err
	}
	if err := r.client.reg.RecordLineage(ctx, r.ID, v.ID, registry.DirectionOutput); err != nil {
		return Version{}, err
	}
	return versionFromRegistry(v), nil
}

// Finish marks the run finished, or failed when runErr is non-nil.
// Calling Finish more than once is a no-op.
func (r *Run) Finish(ctx context.Context, runErr error) error {
	if r.finished {
		return nil
	}
	state, errText := registry.RunFinished, ""
	if runErr != nil {
		state, errText = registry.RunFailed, runErr.Error()
	}
	if err := r.client.reg.FinishRun(ctx, r.ID, state, errText, r.client.clock.Now()); err != nil {
		return err
	}
	r.finished = true
	return nil
}

// RunInfo is a recorded run with its configuration and lineage.
type RunInfo struct {
	ID      string         `json:"id"`
	JobType string         `json:"job_type"`
	State   string         `json:"state"`
	Config  map[string]any `json:"config"`
	// ConfigDigest identifies the configuration: runs with equal digests
	// ran with identical parameters.
	ConfigDigest string     `json:"config_digest"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Inputs       []Version  `json:"inputs"`
	Outputs      []Version  `json:"outputs"`
}

// GetRun loads a recorded run.
func (c *Client) GetRun(ctx context.Context, id string) (RunInfo, error) {
	run, err := c.reg.GetRun(ctx, id)
	if err != nil {
		return RunInfo{}, err
	}
	cfg, err := canonical.Unmarshal([]byte(run.Config))
	if err != nil {
		return RunInfo{}, err
	}
	digest, err := canonical.ConfigDigest(cfg)
	if err != nil {
		return RunInfo{}, err
	}
	lineage, err := c.reg.ReadLineage(ctx, id)
	if err != nil {
		return RunInfo{}, err
	}

	info := RunInfo{
		ID:           run.ID,
		JobType:      run.JobType,
		State:        run.State,
		Config:       cfg,
		ConfigDigest: digest,
		Error:        run.Error,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		Inputs:       []Version{},
		Outputs:      []Version{},
	}
	for _, e := range lineage {
		if e.Direction == registry.DirectionInput {
			info.Inputs = append(info.Inputs, versionFromRegistry(e.Version))
		} else {
			info.Outputs = append(info.Outputs, versionFromRegistry(e.Version))
		}
	}
	return info, nil
}
