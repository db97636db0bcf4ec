package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	dErrors "casedesk/pkg/domain-errors"
)

// numCaseShards bounds the lock table. Mutations on the same case always map
// to the same shard; unrelated cases rarely contend.
const numCaseShards = 128

// defaultMutationTimeout caps a single case mutation when the caller set no deadline.
const defaultMutationTimeout = 5 * time.Second

// caseLocks serializes read-modify-write cycles per case inside one process.
// Cross-process safety comes from the store's version check.
type caseLocks struct {
	shards  [numCaseShards]sync.Mutex
	timeout time.Duration
}

func (l *caseLocks) withLock(ctx context.Context, caseID string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "case mutation aborted: context cancelled")
	}

	timeout := l.timeout
	if timeout == 0 {
		timeout = defaultMutationTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := shardFor(caseID)
	l.shards[shard].Lock()
	defer l.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "case mutation aborted: context cancelled")
	}
	return fn(ctx)
}

func shardFor(caseID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(caseID))
	return h.Sum32() % numCaseShards
}
