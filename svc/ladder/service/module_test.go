package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lanefold/ranked/svc/ladder/ledger"
	"github.com/lanefold/ranked/svc/ladder/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests run without redis; the leaderboard falls through to the database.
func testLadder(t *testing.T) *Ladder {
	db, err := state.InitDB(filepath.Join(t.TempDir(), "ladder.db"))
	require.NoError(t, err)

	return NewLadder(db, nil)
}

func TestLeaderboardOrdering(t *testing.T) {
	l := testLadder(t)
	ctx := context.Background()

	_, err := l.RecordGame(ctx, "general", []ledger.Placement{
		{UserID: "carol", Position: 1},
		{UserID: "alice", Position: 2},
		{UserID: "bob", Position: 3},
	})
	require.NoError(t, err)

	rows, err := l.Leaderboard(ctx, "general", 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "carol", rows[0].UserID)
	assert.Equal(t, "bob", rows[2].UserID)
	assert.Greater(t, rows[0].Rating, rows[2].Rating)
	for _, row := range rows {
		assert.Equal(t, 1, row.GamesPlayed)
	}
}

func TestLeaderboardLimit(t *testing.T) {
	l := testLadder(t)
	ctx := context.Background()

	_, err := l.RecordGame(ctx, "general", []ledger.Placement{
		{UserID: "a", Position: 1},
		{UserID: "b", Position: 2},
		{UserID: "c", Position: 3},
		{UserID: "d", Position: 4},
	})
	require.NoError(t, err)

	rows, err := l.Leaderboard(ctx, "general", 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestHistoryNewestFirst(t *testing.T) {
	l := testLadder(t)
	ctx := context.Background()

	pair := []ledger.Placement{
		{UserID: "alice", Position: 1},
		{UserID: "bob", Position: 2},
	}

	first, err := l.RecordGame(ctx, "general", pair)
	require.NoError(t, err)

	second, err := l.RecordGame(ctx, "general", pair)
	require.NoError(t, err)

	rows, err := l.History(ctx, "alice", "general", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, second.GameID, rows[0].GameID)
	assert.Equal(t, first.GameID, rows[1].GameID)

	// the chain is contiguous
	assert.Equal(t, rows[1].RatingAfter, rows[0].RatingBefore)

	for _, row := range rows {
		assert.Equal(t, row.RatingAfter-row.RatingBefore, row.Delta)
		assert.Positive(t, row.Delta)
	}
}

func TestHistoryScopedToChannel(t *testing.T) {
	l := testLadder(t)
	ctx := context.Background()

	pair := []ledger.Placement{
		{UserID: "alice", Position: 1},
		{UserID: "bob", Position: 2},
	}

	_, err := l.RecordGame(ctx, "chess", pair)
	require.NoError(t, err)

	rows, err := l.History(ctx, "alice", "foosball", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	count, err := l.GameCount(ctx, "alice", "chess")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUndoThroughService(t *testing.T) {
	l := testLadder(t)
	ctx := context.Background()

	recorded, err := l.RecordGame(ctx, "general", []ledger.Placement{
		{UserID: "alice", Position: 1},
		{UserID: "bob", Position: 2},
	})
	require.NoError(t, err)

	undone, err := l.UndoLastGame(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, recorded.GameID, undone.GameID)

	rows, err := l.Leaderboard(ctx, "general", 10)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, 1000, row.Rating)
		assert.Equal(t, 0, row.GamesPlayed)
	}
}
