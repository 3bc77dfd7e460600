package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/auth-service/history"
	"github.com/inkwell-cms/auth-service/history/repofakes"
)

func TestRecorderWritesEntries(t *testing.T) {
	repo := repofakes.NewFakeHistoryRepo()
	recorder := history.NewRecorder(repo, zerolog.Nop())

	recorder.Record(&history.Entry{Email: "a@example.com", Success: true})
	recorder.Record(&history.Entry{Email: "b@example.com", Success: false})
	recorder.Close()

	entries := repo.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotEmpty(t, e.ID)
		require.False(t, e.CreatedAt.IsZero())
	}
	require.Zero(t, recorder.Dropped())
}

func TestRecorderIDsAreTimeOrdered(t *testing.T) {
	repo := repofakes.NewFakeHistoryRepo()
	recorder := history.NewRecorder(repo, zerolog.Nop())

	recorder.Record(&history.Entry{Email: "first@example.com"})
	time.Sleep(2 * time.Millisecond) // distinct ULID timestamps
	recorder.Record(&history.Entry{Email: "second@example.com"})
	recorder.Close()

	entries := repo.All()
	require.Len(t, entries, 2)
	require.LessOrEqual(t, entries[0].ID, entries[1].ID)
}

func TestRecorderDropsWhenBufferFull(t *testing.T) {
	repo := repofakes.NewFakeHistoryRepo()
	block := make(chan struct{})
	repo.RecordHook = func() { <-block }

	recorder := history.NewRecorder(repo, zerolog.Nop(), history.WithBufferSize(1))

	// First entry occupies the writer, second fills the buffer, third drops.
	recorder.Record(&history.Entry{Email: "1@example.com"})
	require.Eventually(t, func() bool {
		recorder.Record(&history.Entry{Email: "2@example.com"})
		recorder.Record(&history.Entry{Email: "3@example.com"})
		return recorder.Dropped() > 0
	}, time.Second, 5*time.Millisecond)

	close(block)
	recorder.Close()
}

func TestRecorderSwallowsRepoErrors(t *testing.T) {
	repo := repofakes.NewFakeHistoryRepo()
	repo.RecordErr = context.DeadlineExceeded

	recorder := history.NewRecorder(repo, zerolog.Nop())
	recorder.Record(&history.Entry{Email: "a@example.com"})
	recorder.Close()

	require.Empty(t, repo.All())
}

func TestRecorderCloseIsIdempotent(t *testing.T) {
	recorder := history.NewRecorder(repofakes.NewFakeHistoryRepo(), zerolog.Nop())
	recorder.Record(&history.Entry{Email: "a@example.com"})
	recorder.Close()
	recorder.Close()

	// Records after close are ignored.
	recorder.Record(&history.Entry{Email: "late@example.com"})
}
