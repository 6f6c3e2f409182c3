package locker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/pkg/errors"
)

// AccountLocker serializes balance mutations per account within a single
// process. Locks are always acquired in ascending account id order so that
// two operations touching the same pair of accounts can never deadlock.
type AccountLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]chan struct{}

	waitTimeout time.Duration
}

// New returns a locker whose Acquire calls give up after waitTimeout.
func New(waitTimeout time.Duration) *AccountLocker {
	return &AccountLocker{
		locks:       make(map[uuid.UUID]chan struct{}),
		waitTimeout: waitTimeout,
	}
}

// Acquire locks every account in ids and returns a release function. The ids
// are deduplicated and sorted before acquisition. If any single lock cannot
// be obtained within the wait timeout, already-held locks are released and a
// lock timeout error is returned.
func (l *AccountLocker) Acquire(ctx context.Context, ids ...uuid.UUID) (func(), error) {
	ordered := dedupeSorted(ids)
	if len(ordered) == 0 {
		return func() {}, nil
	}

	deadline := time.Now().Add(l.waitTimeout)
	held := make([]uuid.UUID, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.releaseOne(held[i])
		}
	}

	for _, id := range ordered {
		if err := l.acquireOne(ctx, id, deadline); err != nil {
			release()
			return nil, err
		}
		held = append(held, id)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *AccountLocker) acquireOne(ctx context.Context, id uuid.UUID, deadline time.Time) error {
	for {
		l.mu.Lock()
		ch, busy := l.locks[id]
		if !busy {
			l.locks[id] = make(chan struct{})
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errors.New(errors.CodeLockTimeout, "timed out waiting for account lock")
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			return errors.New(errors.CodeLockTimeout, "timed out waiting for account lock")
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(errors.CodeLockTimeout, ctx.Err(), "context cancelled waiting for account lock")
		}
	}
}

func (l *AccountLocker) releaseOne(id uuid.UUID) {
	l.mu.Lock()
	ch, ok := l.locks[id]
	if ok {
		delete(l.locks, id)
	}
	l.mu.Unlock()
	if ok {
		close(ch)
	}
}

func dedupeSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
