package dashboard

import (
	"context"
	"sync"
	"time"
)

// View is the fetch-triggered state of one widget. Each Load takes a
// generation token; a response whose token has been superseded by a later
// Load is discarded, so the newest request wins regardless of arrival
// order.
type View[T any] struct {
	mu         sync.Mutex
	data       T
	loaded     bool
	loading    bool
	err        string
	generation uint64
	account    string
	epoch      uint64
	updatedAt  time.Time
}

// Snapshot is a consistent read of a view.
type Snapshot[T any] struct {
	Data      T         `json:"data"`
	Loaded    bool      `json:"loaded"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	Account   string    `json:"account"`
	Epoch     uint64    `json:"epoch"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Load fetches new data for account at the given refresh epoch. A failed
// fetch records the error and keeps the previous data only when it belongs
// to the same account.
func (v *View[T]) Load(ctx context.Context, account string, epoch uint64, fetch func(context.Context) (T, error)) Snapshot[T] {
	v.mu.Lock()
	v.generation++
	gen := v.generation
	v.loading = true
	v.mu.Unlock()

	data, err := fetch(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		// A newer request owns the view.
		return v.snapshotLocked()
	}
	v.loading = false
	if err != nil {
		v.err = err.Error()
		if account != v.account {
			// Rows from another account must not be shown as this one's.
			var zero T
			v.data = zero
			v.loaded = false
			v.account = account
		}
		return v.snapshotLocked()
	}
	v.data = data
	v.loaded = true
	v.err = ""
	v.account = account
	v.epoch = epoch
	v.updatedAt = time.Now()
	return v.snapshotLocked()
}

// Fresh reports whether the view holds data for account at epoch.
func (v *View[T]) Fresh(account string, epoch uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded && v.account == account && v.epoch == epoch
}

// Snapshot returns the current state.
func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Data:      v.data,
		Loaded:    v.loaded,
		Loading:   v.loading,
		Error:     v.err,
		Account:   v.account,
		Epoch:     v.epoch,
		UpdatedAt: v.updatedAt,
	}
}
