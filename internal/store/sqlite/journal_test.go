package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mmbot/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalAppendAndRecent(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.Append(ctx, model.JournalEntry{
		Kind:      model.KindOrderSubmitted,
		Symbol:    "BTCUSDT",
		OrderID:   "1",
		Side:      "BUY",
		Price:     "49997.00",
		CreatedAt: base,
	}))
	require.NoError(t, j.Append(ctx, model.JournalEntry{
		Kind:      model.KindGuardClose,
		Symbol:    "BTCUSDT",
		Reason:    "take_profit",
		Payload:   datatypes.JSONMap{"pnl": "15"},
		CreatedAt: base.Add(time.Minute),
	}))

	got, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.KindGuardClose, got[0].Kind)
	assert.Equal(t, "15", got[0].Payload["pnl"])
	assert.Equal(t, "49997.00", got[1].Price)
	assert.Len(t, got[1].ID, 36)
}

func TestJournalRecentLimit(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Append(ctx, model.JournalEntry{Kind: model.KindControl, Reason: "start"}))
	}
	got, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = j.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestNilJournalIsNoop(t *testing.T) {
	var j *Journal
	assert.NoError(t, j.Append(context.Background(), model.JournalEntry{}))
	got, err := j.Recent(context.Background(), 1)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, j.Close())
}
