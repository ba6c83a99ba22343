// Package provision runs the resource engine against a stack while keeping the state
// store in step with what was created or deleted.
package provision

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	awscluster "ekscd/internal/aws/cluster"
	"ekscd/internal/cluster"
	"ekscd/internal/connectors"
	"ekscd/internal/manifest"
	"ekscd/internal/state"
)

// OpenStore opens the state backend the manifest selects. statePath overrides the
// SQLite location and is relative to the working directory.
func OpenStore(ctx context.Context, m *manifest.Manifest, statePath string) (state.Store, error) {
	switch m.State.Backend {
	case manifest.StateBackendDynamoDB:
		name, err := m.NamePrefix()
		if err != nil {
			return nil, err
		}
		log.Debug().Msgf("using dynamodb state table %s", m.State.Table)
		return state.NewDynamoDBStore(connectors.GetAWSSession().DynamoDB, m.State.Table, name), nil
	case manifest.StateBackendSQLite:
		path := statePath
		if path == "" {
			path = m.State.Path
			if path == "" {
				path = state.DefaultSQLitePath
			}
			if !filepath.IsAbs(path) {
				path = filepath.Join(m.Dir(), path)
			}
		}
		log.Debug().Msgf("using sqlite state %s", path)
		return state.OpenSQLite(ctx, path)
	}
	return nil, errors.Errorf("unknown state backend %q", m.State.Backend)
}

// Recorder mirrors engine results into a snapshot.
type Recorder struct {
	mu       sync.Mutex
	snapshot *state.Snapshot
	owner    cluster.Owner
	now      func() time.Time
}

func NewRecorder(snapshot *state.Snapshot, owner cluster.Owner) *Recorder {
	return &Recorder{snapshot: snapshot, owner: owner, now: time.Now}
}

func (r *Recorder) Record(resource cluster.Resource, action cluster.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	address := cluster.Address(resource)
	if action == cluster.ActionDelete || !cluster.Exists(resource) {
		r.snapshot.Remove(address)
		return
	}
	record := state.Record{
		Address:   address,
		Type:      resource.ResourceType(),
		Name:      resource.ResourceName(),
		Owner:     string(r.owner),
		Version:   resource.DeployedVersion(),
		UpdatedAt: r.now().UTC(),
	}
	if identified, ok := resource.(cluster.Identified); ok {
		record.ID = identified.ResourceID()
	}
	if previous, ok := r.snapshot.Resources[address]; ok && action == cluster.ActionNoop &&
		previous.Version == record.Version && previous.ID == record.ID {
		record.UpdatedAt = previous.UpdatedAt
	}
	r.snapshot.Put(record)
}

func Plan(ctx context.Context, stack *awscluster.Stack, parallelism int) (*cluster.Plan, error) {
	return cluster.PlanApply(ctx, stack.Graph, stack.Settings, cluster.Options{Parallelism: parallelism})
}

func PlanDestroy(ctx context.Context, stack *awscluster.Stack, parallelism int) (*cluster.Plan, error) {
	return cluster.PlanDestroy(ctx, stack.Graph, stack.Settings, cluster.Options{Parallelism: parallelism})
}

// Apply converges the stack under the state lock. Resources settled before a failure
// stay recorded.
func Apply(ctx context.Context, store state.Store, stack *awscluster.Stack, parallelism int) (done *cluster.Plan, err error) {
	err = state.Update(ctx, store, "apply", func(ctx context.Context, snapshot *state.Snapshot) error {
		var runErr error
		done, runErr = cluster.Apply(ctx, stack.Graph, stack.Settings, cluster.Options{
			Parallelism: parallelism,
			Recorder:    NewRecorder(snapshot, stack.Settings.Owner()),
		})
		return runErr
	})
	return done, err
}

// Destroy deletes the stack under the state lock and drops every deleted record.
func Destroy(ctx context.Context, store state.Store, stack *awscluster.Stack, parallelism int) (done *cluster.Plan, err error) {
	err = state.Update(ctx, store, "destroy", func(ctx context.Context, snapshot *state.Snapshot) error {
		var runErr error
		done, runErr = cluster.Destroy(ctx, stack.Graph, stack.Settings, cluster.Options{
			Parallelism: parallelism,
			Recorder:    NewRecorder(snapshot, stack.Settings.Owner()),
		})
		return runErr
	})
	return done, err
}
