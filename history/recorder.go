package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const defaultBufferSize = 256

// Recorder decouples history writes from the auth request path. Record
// never blocks: when the buffer is full the entry is dropped and counted.
// A failed write is logged and swallowed; it must never surface to the
// caller of a login.
type Recorder struct {
	repo    Repo
	logger  zerolog.Logger
	ch      chan *Entry
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	closed  atomic.Bool
	once    sync.Once
	nowFunc func() time.Time
}

type RecorderOption func(*Recorder)

// WithBufferSize sets the channel buffer (default 256).
func WithBufferSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.ch = make(chan *Entry, n)
		}
	}
}

// WithRecorderNowFunc sets the now time function (primarily for testing)
func WithRecorderNowFunc(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.nowFunc = now
	}
}

// NewRecorder starts the background writer.
func NewRecorder(repo Repo, logger zerolog.Logger, options ...RecorderOption) *Recorder {
	r := &Recorder{
		repo:    repo,
		logger:  logger,
		ch:      make(chan *Entry, defaultBufferSize),
		done:    make(chan struct{}),
		nowFunc: time.Now,
	}

	for _, opt := range options {
		opt(r)
	}

	r.wg.Add(1)
	go r.run()

	return r
}

// Record enqueues an entry, assigning its ID and timestamp. Safe to call
// from the hot path: full buffer means drop, not wait.
func (r *Recorder) Record(entry *Entry) {
	if r == nil || r.closed.Load() {
		return
	}

	entry.ID = ulid.Make().String()
	entry.CreatedAt = r.nowFunc()

	select {
	case r.ch <- entry:
	default:
		r.dropped.Add(1)
		r.logger.Warn().Str("email", entry.Email).Msg("history buffer full, entry dropped")
	}
}

// Dropped reports how many entries were discarded due to a full buffer.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close drains the buffer and stops the writer. Idempotent.
func (r *Recorder) Close() {
	r.once.Do(func() {
		r.closed.Store(true)
		close(r.done)
	})
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()

	for {
		select {
		case entry := <-r.ch:
			r.write(entry)
		case <-r.done:
			for {
				select {
				case entry := <-r.ch:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *Entry) {
	if err := r.repo.Record(context.Background(), entry); err != nil {
		r.logger.Warn().Err(err).Str("email", entry.Email).Msg("history write failed")
	}
}
