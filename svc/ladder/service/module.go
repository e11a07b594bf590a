package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lanefold/ranked/svc/ladder/ledger"
	"github.com/lanefold/ranked/svc/ladder/state"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-redis/redis/v9"
	"github.com/repeale/fp-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	LEADERBOARD_PREFIX = "leaderboard-"
	LEADERBOARD_TTL    = 1 * time.Minute
)

// Ladder wraps the ledger for external callers: it adds logging and a
// read-through cache for the leaderboard. The cache is advisory; when
// redis is absent or unhappy we just hit the database.
type Ladder struct {
	Ledger *ledger.Ledger

	db    *gorm.DB
	redis *redis.Client
}

func NewLadder(db *gorm.DB, redis *redis.Client) *Ladder {
	return &Ladder{
		Ledger: ledger.NewLedger(db),
		db:     db,
		redis:  redis,
	}
}

func (l *Ladder) logger(channelID string) zerolog.Logger {
	return log.With().Str("channel", channelID).Logger()
}

func getLeaderboardKey(channelID string) string {
	return fmt.Sprintf("%s%s", LEADERBOARD_PREFIX, channelID)
}

func (l *Ladder) invalidateLeaderboard(ctx context.Context, channelID string) {
	if l.redis == nil {
		return
	}

	err := l.redis.Del(ctx, getLeaderboardKey(channelID)).Err()
	if err != nil {
		logger := l.logger(channelID)
		logger.Debug().Err(err).Msg("could not invalidate leaderboard")
	}
}

// RecordGame records a game and reports each participant's movement.
func (l *Ladder) RecordGame(ctx context.Context, channelID string, ranking []ledger.Placement) (*ledger.GameResult, error) {
	logger := l.logger(channelID)

	result, err := l.Ledger.RecordGame(ctx, channelID, ranking)
	if err != nil {
		logger.Error().Err(err).Msg("failed to record game")
		return nil, err
	}

	l.invalidateLeaderboard(ctx, channelID)

	logger.Info().
		Uint("game", result.GameID).
		Strs("players", fp.Map(func(p ledger.PlayerResult) string {
			return p.UserID
		})(result.Players)).
		Msg("recorded game")

	return result, nil
}

// Simulate answers what a game would do to ratings without recording it.
func (l *Ladder) Simulate(ctx context.Context, channelID string, ranking []ledger.Placement) ([]ledger.PlayerResult, error) {
	return l.Ledger.Simulate(ctx, channelID, ranking)
}

// UndoLastGame reverts the most recent game in a channel.
func (l *Ladder) UndoLastGame(ctx context.Context, channelID string) (*ledger.UndoResult, error) {
	logger := l.logger(channelID)

	result, err := l.Ledger.UndoLastGame(ctx, channelID)
	if err != nil {
		if err != ledger.ErrNothingToUndo {
			logger.Error().Err(err).Msg("failed to undo game")
		}
		return nil, err
	}

	l.invalidateLeaderboard(ctx, channelID)

	logger.Info().Uint("game", result.GameID).Msg("undid game")

	return result, nil
}

// SetGambling arms or disarms a player's one-shot stake.
func (l *Ladder) SetGambling(ctx context.Context, userID string, channelID string, enabled bool) error {
	return l.Ledger.SetGambling(ctx, userID, channelID, enabled)
}

// ToggleGambling flips a player's stake and reports the new value.
func (l *Ladder) ToggleGambling(ctx context.Context, userID string, channelID string) (bool, error) {
	return l.Ledger.ToggleGambling(ctx, userID, channelID)
}

// SetKFactor changes a channel's k-factor for future games.
func (l *Ladder) SetKFactor(ctx context.Context, channelID string, kFactor int) error {
	err := l.Ledger.SetKFactor(ctx, channelID, kFactor)
	if err != nil {
		return err
	}

	logger := l.logger(channelID)
	logger.Info().Int("kfactor", kFactor).Msg("changed k-factor")
	return nil
}

// Rating reads a player's current rating in a channel.
func (l *Ladder) Rating(ctx context.Context, userID string, channelID string) (int, bool, error) {
	return l.Ledger.GetRating(ctx, userID, channelID)
}

// Leaderboard lists a channel's standings, best first. Results are cached
// for a short time; record and undo invalidate the cache.
func (l *Ladder) Leaderboard(ctx context.Context, channelID string, limit int) ([]state.LeaderboardRow, error) {
	logger := l.logger(channelID)
	key := getLeaderboardKey(channelID)

	if l.redis != nil {
		cached, err := l.redis.Get(ctx, key).Bytes()
		if err == nil {
			var rows []state.LeaderboardRow
			err = cbor.Unmarshal(cached, &rows)
			if err == nil {
				return rows, nil
			}
			logger.Debug().Err(err).Msg("discarding bad leaderboard cache entry")
		} else if err != redis.Nil {
			logger.Debug().Err(err).Msg("leaderboard cache read failed")
		}
	}

	rows, err := state.Leaderboard(ctx, l.db, channelID, limit)
	if err != nil {
		return nil, err
	}

	if l.redis != nil {
		encoded, err := cbor.Marshal(rows)
		if err == nil {
			err = l.redis.Set(ctx, key, encoded, LEADERBOARD_TTL).Err()
		}
		if err != nil {
			logger.Debug().Err(err).Msg("leaderboard cache write failed")
		}
	}

	return rows, nil
}

// HistoryEntry is one game from a player's perspective, with the rating
// movement already worked out.
type HistoryEntry struct {
	GameID       uint
	RatingBefore int
	RatingAfter  int
	Delta        int
	Position     int
	Gambled      bool
	PlayedAt     time.Time
}

// History lists a player's recent games in a channel, newest first.
func (l *Ladder) History(ctx context.Context, userID string, channelID string, limit int) ([]HistoryEntry, error) {
	rows, err := state.History(ctx, l.db, userID, channelID, limit)
	if err != nil {
		return nil, err
	}

	return fp.Map(func(row state.HistoryRow) HistoryEntry {
		return HistoryEntry{
			GameID:       row.GameID,
			RatingBefore: row.RatingBefore,
			RatingAfter:  row.RatingAfter,
			Delta:        row.RatingAfter - row.RatingBefore,
			Position:     row.Position,
			Gambled:      row.Gambled,
			PlayedAt:     row.PlayedAt,
		}
	})(rows), nil
}

// GameCount gives the number of games a player has recorded in a channel.
func (l *Ladder) GameCount(ctx context.Context, userID string, channelID string) (int64, error) {
	return state.GameCount(ctx, l.db, userID, channelID)
}
