package cluster

import "context"

// Cleaner removes resources found by discovery rather than declared in the graph.
type Cleaner interface {
	Fetch(ctx context.Context) error
	Delete(ctx context.Context) error
	Print()
}

func CleanupResource(ctx context.Context, r Cleaner, dryRun bool) error {
	err := r.Fetch(ctx)
	if err != nil {
		return err
	}

	r.Print()
	if !dryRun {
		err = r.Delete(ctx)
	}

	return err
}
