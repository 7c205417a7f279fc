package system

import (
	"context"

	"go.uber.org/zap"

	"github.com/rmdgo/anatomy/internal/body"
)

// SnapshotLoader reads stored snapshots. Implemented by persist.BodyRepo.
type SnapshotLoader interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, key string) (body.Snapshot, error)
}

// Resume adopts every stored body that is still alive and returns how many
// were restored. Snapshots that fail to restore are skipped.
func Resume(ctx context.Context, deps *Deps, repo SnapshotLoader) (int, error) {
	keys, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, key := range keys {
		snap, err := repo.Load(ctx, key)
		if err != nil {
			return n, err
		}
		b, err := body.Restore(snap, deps.Log)
		if err != nil {
			deps.Log.Warn("skipping snapshot", zap.String("key", key), zap.Error(err))
			continue
		}
		if b.Destroyed() {
			continue
		}
		deps.Adopt(key, b, 0)
		n++
	}
	return n, nil
}
