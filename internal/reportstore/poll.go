package reportstore

import (
	"context"
	"time"

	"github.com/plagiaguard/plagctl/internal/api"
)

// StatusBackend is the slice of the API client the watcher depends on.
type StatusBackend interface {
	GetCheckStatus(ctx context.Context, id string) (api.CheckStatus, error)
}

// Watch polls the status of an in-flight check until it reaches a terminal
// state or ctx is cancelled. onUpdate, when non-nil, receives every polled
// snapshot including the final one. Transient poll errors are returned
// immediately; retry policy is the caller's concern.
func Watch(ctx context.Context, backend StatusBackend, id string, interval time.Duration, onUpdate func(api.CheckStatus)) (api.CheckStatus, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	for {
		st, err := backend.GetCheckStatus(ctx, id)
		if err != nil {
			return api.CheckStatus{}, err
		}
		if onUpdate != nil {
			onUpdate(st)
		}
		if st.Status.Terminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-time.After(interval):
		}
	}
}
