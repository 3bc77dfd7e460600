package repofakes

import (
	"context"
	"sync"

	"github.com/inkwell-cms/auth-service/history"
)

var _ history.Repo = (*FakeHistoryRepo)(nil)

type FakeHistoryRepo struct {
	lock    sync.RWMutex
	entries []*history.Entry

	// RecordErr, when set, is returned by Record (failure-path testing).
	RecordErr error

	// RecordHook, when set, runs at the start of every Record call. Tests
	// use it to stall the background writer.
	RecordHook func()
}

func NewFakeHistoryRepo() *FakeHistoryRepo {
	return &FakeHistoryRepo{}
}

func (r *FakeHistoryRepo) Record(_ context.Context, entry *history.Entry) error {
	if r.RecordHook != nil {
		r.RecordHook()
	}
	if r.RecordErr != nil {
		return r.RecordErr
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *FakeHistoryRepo) ListByUser(_ context.Context, userID string, limit int) ([]*history.Entry, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var out []*history.Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID == userID {
			copied := *r.entries[i]
			out = append(out, &copied)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// All returns every recorded entry in write order (test inspection).
func (r *FakeHistoryRepo) All() []*history.Entry {
	r.lock.RLock()
	defer r.lock.RUnlock()

	out := make([]*history.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		copied := *e
		out = append(out, &copied)
	}
	return out
}
