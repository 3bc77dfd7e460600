package repofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/inkwell-cms/auth-service/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory session store for tests and local
// development. Rotate performs its compare-and-update under the lock so
// the single-use guarantee holds here too.
type FakeSessionRepo struct {
	lock     sync.RWMutex
	sessions map[string]*sessions.Session
	nowFunc  func() time.Time
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
		nowFunc:  time.Now,
	}
}

// SetNowFunc overrides the clock used for expiry checks (testing).
func (r *FakeSessionRepo) SetNowFunc(now func() time.Time) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.nowFunc = now
}

func (r *FakeSessionRepo) Create(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *FakeSessionRepo) FindActive(_ context.Context, sessionID, userID string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID || !r.live(s) {
		return nil, sessions.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *FakeSessionRepo) FindActiveByRefreshToken(_ context.Context, token, userID string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, s := range r.sessions {
		if s.RefreshToken == token && s.UserID == userID && r.live(s) {
			copied := *s
			return &copied, nil
		}
	}
	return nil, sessions.ErrNotFound
}

func (r *FakeSessionRepo) Update(_ context.Context, sessionID string, patch sessions.Patch) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return sessions.ErrNotFound
	}
	applyPatch(s, patch, r.nowFunc())
	return nil
}

func (r *FakeSessionRepo) Rotate(_ context.Context, sessionID, oldToken, newToken string, expiresAt, lastActivityAt time.Time) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || !r.live(s) || s.RefreshToken != oldToken {
		return false, nil
	}
	s.RefreshToken = newToken
	s.ExpiresAt = expiresAt
	s.LastActivityAt = lastActivityAt
	s.UpdatedAt = r.nowFunc()
	return true, nil
}

func (r *FakeSessionRepo) DeactivateByRefreshToken(_ context.Context, token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, s := range r.sessions {
		if s.RefreshToken == token && s.Active {
			s.Active = false
			s.UpdatedAt = r.nowFunc()
		}
	}
	return nil
}

func (r *FakeSessionRepo) ListByUser(_ context.Context, userID string) ([]*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var out []*sessions.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *FakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

// Get returns any row by ID regardless of its state (test inspection).
func (r *FakeSessionRepo) Get(sessionID string) (*sessions.Session, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	copied := *s
	return &copied, true
}

func (r *FakeSessionRepo) live(s *sessions.Session) bool {
	return s.Active && !s.Expired(r.nowFunc())
}

func applyPatch(s *sessions.Session, patch sessions.Patch, now time.Time) {
	if patch.Active != nil {
		// Active is one-way: a patch can clear it but never restore it.
		if !*patch.Active {
			s.Active = false
		}
	}
	if patch.ExpiresAt != nil {
		s.ExpiresAt = *patch.ExpiresAt
	}
	if patch.LastActivityAt != nil {
		s.LastActivityAt = *patch.LastActivityAt
	}
	s.UpdatedAt = now
}
