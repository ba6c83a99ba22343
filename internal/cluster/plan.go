package cluster

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionNoop   Action = "no-op"
)

// Identified is implemented by resources that know their provider-assigned id once fetched.
type Identified interface {
	ResourceID() string
}

type Change struct {
	Address         string
	Type            string
	Name            string
	Action          Action
	DeployedVersion string
	TargetVersion   string
	Level           int
}

type Plan struct {
	Changes []Change
}

func (p *Plan) add(change Change) {
	p.Changes = append(p.Changes, change)
}

func (p *Plan) sort() {
	sort.SliceStable(p.Changes, func(i, j int) bool {
		if p.Changes[i].Level != p.Changes[j].Level {
			return p.Changes[i].Level < p.Changes[j].Level
		}
		return p.Changes[i].Address < p.Changes[j].Address
	})
}

func (p *Plan) Count(action Action) int {
	count := 0
	for _, change := range p.Changes {
		if change.Action == action {
			count++
		}
	}
	return count
}

func (p *Plan) HasChanges() bool {
	for _, change := range p.Changes {
		if change.Action != ActionNoop {
			return true
		}
	}
	return false
}

func (p *Plan) Summary() string {
	return fmt.Sprintf("%d to create, %d to update, %d to delete",
		p.Count(ActionCreate), p.Count(ActionUpdate), p.Count(ActionDelete))
}

// Recorder observes every resource the engine has settled. Calls may come from concurrent goroutines.
type Recorder interface {
	Record(r Resource, action Action)
}

type Options struct {
	Parallelism int
	Recorder    Recorder
}

func (o Options) parallelism() int {
	if o.Parallelism < 1 {
		return 1
	}
	return o.Parallelism
}

func (o Options) record(r Resource, action Action) {
	if o.Recorder != nil {
		o.Recorder.Record(r, action)
	}
}

type step func(ctx context.Context, level int, r Resource) error

func runLevels(ctx context.Context, levels [][]Resource, parallelism int, fn step) error {
	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			return err
		}
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(parallelism)
		for _, r := range level {
			i, r := i, r
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				return fn(egCtx, i, r)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func reversed(levels [][]Resource) [][]Resource {
	out := make([][]Resource, 0, len(levels))
	for i := len(levels) - 1; i >= 0; i-- {
		out = append(out, levels[i])
	}
	return out
}

func change(r Resource, action Action, level int) Change {
	return Change{
		Address:         Address(r),
		Type:            r.ResourceType(),
		Name:            r.ResourceName(),
		Action:          action,
		DeployedVersion: r.DeployedVersion(),
		TargetVersion:   r.TargetVersion(),
		Level:           level,
	}
}

// PlanApply fetches every resource and reports what Apply would do. Ownership
// conflicts are reported as errors at plan time.
func PlanApply(ctx context.Context, g *Graph, settings IClusterSettings, opts Options) (*Plan, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	plan := &Plan{}
	var mu sync.Mutex
	err = runLevels(ctx, levels, opts.parallelism(), func(ctx context.Context, level int, r Resource) error {
		if err := r.Fetch(ctx); err != nil {
			return errors.Wrapf(err, "fetching %s", Address(r))
		}
		action := Diff(r)
		if action != ActionCreate {
			if err := CheckOwnership(r, settings.Owner()); err != nil {
				return err
			}
		}
		mu.Lock()
		plan.add(change(r, action, level))
		mu.Unlock()
		return nil
	})
	plan.sort()
	return plan, err
}

// PlanDestroy fetches every resource, dependencies first so that derived ownership
// can be resolved, and reports the deletions in the order Destroy runs them.
func PlanDestroy(ctx context.Context, g *Graph, settings IClusterSettings, opts Options) (*Plan, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	plan := &Plan{}
	var mu sync.Mutex
	err = runLevels(ctx, levels, opts.parallelism(), func(ctx context.Context, level int, r Resource) error {
		if err := r.Fetch(ctx); err != nil {
			return errors.Wrapf(err, "fetching %s", Address(r))
		}
		action := ActionNoop
		if Exists(r) {
			if err := CheckOwnership(r, settings.Owner()); err != nil {
				return err
			}
			action = ActionDelete
		}
		mu.Lock()
		plan.add(change(r, action, len(levels)-1-level))
		mu.Unlock()
		return nil
	})
	plan.sort()
	return plan, err
}

// Apply converges every resource of the graph, dependencies first. The returned
// plan holds what was done up to the first failure.
func Apply(ctx context.Context, g *Graph, settings IClusterSettings, opts Options) (*Plan, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	done := &Plan{}
	var mu sync.Mutex
	err = runLevels(ctx, levels, opts.parallelism(), func(ctx context.Context, level int, r Resource) error {
		action, err := EnsureResource(ctx, r, settings)
		if err != nil {
			return err
		}
		opts.record(r, action)
		mu.Lock()
		done.add(change(r, action, level))
		mu.Unlock()
		return nil
	})
	done.sort()
	return done, err
}

// Destroy deletes every resource of the graph, dependents first. Nothing is deleted
// when any existing resource belongs to another owner.
func Destroy(ctx context.Context, g *Graph, settings IClusterSettings, opts Options) (*Plan, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	if _, err := PlanDestroy(ctx, g, settings, opts); err != nil {
		return &Plan{}, err
	}
	done := &Plan{}
	var mu sync.Mutex
	err = runLevels(ctx, reversed(levels), opts.parallelism(), func(ctx context.Context, level int, r Resource) error {
		action, err := DestroyResource(ctx, r, settings)
		if err != nil {
			return err
		}
		opts.record(r, action)
		mu.Lock()
		done.add(change(r, action, level))
		mu.Unlock()
		return nil
	})
	done.sort()
	return done, err
}
