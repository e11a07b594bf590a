package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lanefold/ranked/pkg/elo"
	"github.com/lanefold/ranked/svc/ladder/state"

	"github.com/sasha-s/go-deadlock"
	"gorm.io/gorm"
)

var (
	// ErrInvalidInput means the ranking (or a setting) was rejected
	// before any state was touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNothingToUndo means the channel has no recorded games.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrConflict means the transaction could not commit because of a
	// concurrent modification. The caller should retry the whole
	// operation with fresh reads; we never retry internally since
	// ratings may have moved.
	ErrConflict = errors.New("conflicting update")
)

// Placement ties a player to their finishing position. Lower positions
// win; tied players share a value.
type Placement struct {
	UserID   string
	Position int
}

// PlayerResult is one participant's rating movement in a recorded or
// simulated game.
type PlayerResult struct {
	UserID       string
	RatingBefore int
	RatingAfter  int
	Delta        int
	Gambled      bool
}

// GameResult is what a recorded game looked like, for display purposes.
type GameResult struct {
	GameID  uint
	Players []PlayerResult
}

// RestoredRating is one participant's rating after an undo.
type RestoredRating struct {
	UserID string
	Rating int
}

// UndoResult describes an undone game.
type UndoResult struct {
	GameID  uint
	Players []RestoredRating
}

// Ledger owns every mutation of rating state. Mutations for a channel are
// serialized behind a per-channel lock and run inside a single database
// transaction, so two concurrent records can never both read stale ratings
// and silently lose one game's movement.
type Ledger struct {
	db *gorm.DB

	mutex deadlock.Mutex
	locks map[string]*deadlock.Mutex
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{
		db:    db,
		locks: make(map[string]*deadlock.Mutex),
	}
}

func (l *Ledger) channelLock(channelID string) *deadlock.Mutex {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	lock, ok := l.locks[channelID]
	if !ok {
		lock = &deadlock.Mutex{}
		l.locks[channelID] = lock
	}

	return lock
}

// mapStorageError turns SQLite contention into ErrConflict and leaves
// everything else alone.
func mapStorageError(err error) error {
	if err == nil {
		return nil
	}

	message := err.Error()
	if strings.Contains(message, "database is locked") ||
		strings.Contains(message, "database table is locked") ||
		strings.Contains(message, "SQLITE_BUSY") {
		return fmt.Errorf("%w: %s", ErrConflict, message)
	}

	return err
}

func validateRanking(ranking []Placement) error {
	if len(ranking) < 2 {
		return fmt.Errorf("%w: a game needs at least two players", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(ranking))
	for _, placement := range ranking {
		if placement.Position < 1 {
			return fmt.Errorf(
				"%w: position %d for %s is not a positive rank",
				ErrInvalidInput,
				placement.Position,
				placement.UserID,
			)
		}

		if _, ok := seen[placement.UserID]; ok {
			return fmt.Errorf(
				"%w: %s cannot finish in two positions",
				ErrInvalidInput,
				placement.UserID,
			)
		}

		seen[placement.UserID] = struct{}{}
	}

	return nil
}

// RecordGame records a finished game: it consumes gambling stakes, applies
// the rating changes and appends the game with one participation row per
// player, all in one transaction. Either everything commits or nothing
// does.
func (l *Ledger) RecordGame(ctx context.Context, channelID string, ranking []Placement) (*GameResult, error) {
	if err := validateRanking(ranking); err != nil {
		return nil, err
	}

	lock := l.channelLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	var result *GameResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		channel, err := state.GetOrCreateChannel(ctx, tx, channelID)
		if err != nil {
			return err
		}

		standings := make([]*state.ChannelPlayer, len(ranking))
		participants := make([]elo.Participant, len(ranking))
		for i, placement := range ranking {
			standing, err := state.GetOrCreateChannelPlayer(
				ctx,
				tx,
				placement.UserID,
				channelID,
			)
			if err != nil {
				return err
			}

			gambled, err := state.TakeGambling(ctx, tx, standing)
			if err != nil {
				return err
			}

			standings[i] = standing
			participants[i] = elo.Participant{
				Rating:   standing.Rating,
				Position: placement.Position,
				Gambling: gambled,
			}
		}

		calc := elo.NewEloWithFactors(channel.KFactor, elo.D)
		outcomes := calc.GroupOutcomes(participants)

		game := state.Game{
			ChannelID: channel.ID,
			CreatedAt: time.Now(),
		}
		err = tx.Create(&game).Error
		if err != nil {
			return err
		}

		players := make([]PlayerResult, len(ranking))
		for i, outcome := range outcomes {
			participation := state.PlayerGame{
				PlayerID:     standings[i].PlayerID,
				GameID:       game.ID,
				RatingBefore: participants[i].Rating,
				RatingAfter:  outcome.Rating,
				Position:     ranking[i].Position,
				Gambled:      participants[i].Gambling,
			}
			err = tx.Create(&participation).Error
			if err != nil {
				return err
			}

			err = state.SetRating(ctx, tx, standings[i], outcome.Rating)
			if err != nil {
				return err
			}

			players[i] = PlayerResult{
				UserID:       ranking[i].UserID,
				RatingBefore: participants[i].Rating,
				RatingAfter:  outcome.Rating,
				Delta:        outcome.Delta,
				Gambled:      participants[i].Gambling,
			}
		}

		result = &GameResult{
			GameID:  game.ID,
			Players: players,
		}
		return nil
	})
	if err != nil {
		return nil, mapStorageError(err)
	}

	return result, nil
}

// Simulate computes what recording the game would do without writing
// anything: missing players count at the default rating and gambling
// stakes are read but not consumed. It takes no lock; a stale read is fine
// for an advisory answer.
func (l *Ledger) Simulate(ctx context.Context, channelID string, ranking []Placement) ([]PlayerResult, error) {
	if err := validateRanking(ranking); err != nil {
		return nil, err
	}

	kFactor, err := state.KFactor(ctx, l.db, channelID)
	if err != nil {
		return nil, err
	}

	participants := make([]elo.Participant, len(ranking))
	for i, placement := range ranking {
		rating, _, err := state.GetRating(ctx, l.db, placement.UserID, channelID)
		if err != nil {
			return nil, err
		}

		gambling, err := state.Gambling(ctx, l.db, placement.UserID, channelID)
		if err != nil {
			return nil, err
		}

		participants[i] = elo.Participant{
			Rating:   rating,
			Position: placement.Position,
			Gambling: gambling,
		}
	}

	calc := elo.NewEloWithFactors(kFactor, elo.D)
	outcomes := calc.GroupOutcomes(participants)

	players := make([]PlayerResult, len(ranking))
	for i, outcome := range outcomes {
		players[i] = PlayerResult{
			UserID:       ranking[i].UserID,
			RatingBefore: participants[i].Rating,
			RatingAfter:  outcome.Rating,
			Delta:        outcome.Delta,
			Gambled:      participants[i].Gambling,
		}
	}

	return players, nil
}

// UndoLastGame reverts the most recently recorded game in a channel: every
// participant's rating goes back to what it was before the game and the
// game disappears from history. Only the newest game is ever eligible.
// Consumed gambling stakes stay spent.
func (l *Ledger) UndoLastGame(ctx context.Context, channelID string) (*UndoResult, error) {
	lock := l.channelLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	var result *UndoResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var channel state.Channel
		err := tx.WithContext(ctx).Where(state.Channel{
			ChannelID: channelID,
		}).First(&channel).Error
		if err == gorm.ErrRecordNotFound {
			return ErrNothingToUndo
		}
		if err != nil {
			return err
		}

		game, err := state.LastGame(ctx, tx, &channel)
		if err == gorm.ErrRecordNotFound {
			return ErrNothingToUndo
		}
		if err != nil {
			return err
		}

		participations, err := state.ParticipationsOf(ctx, tx, game)
		if err != nil {
			return err
		}

		players := make([]RestoredRating, 0, len(participations))
		for _, participation := range participations {
			err = tx.Model(&state.ChannelPlayer{}).
				Where(state.ChannelPlayer{
					PlayerID:  participation.PlayerID,
					ChannelID: channel.ID,
				}).
				Update("rating", participation.RatingBefore).Error
			if err != nil {
				return err
			}

			players = append(players, RestoredRating{
				UserID: participation.Player.UserID,
				Rating: participation.RatingBefore,
			})
		}

		err = tx.Where(state.PlayerGame{GameID: game.ID}).Delete(&state.PlayerGame{}).Error
		if err != nil {
			return err
		}

		err = tx.Delete(game).Error
		if err != nil {
			return err
		}

		result = &UndoResult{
			GameID:  game.ID,
			Players: players,
		}
		return nil
	})
	if err != nil {
		return nil, mapStorageError(err)
	}

	return result, nil
}

// SetGambling arms or disarms a player's one-shot stake in a channel.
func (l *Ledger) SetGambling(ctx context.Context, userID string, channelID string, enabled bool) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return state.SetGambling(ctx, tx, userID, channelID, enabled)
	})

	return mapStorageError(err)
}

// ToggleGambling flips a player's stake and reports the new value.
func (l *Ledger) ToggleGambling(ctx context.Context, userID string, channelID string) (bool, error) {
	var enabled bool
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		standing, err := state.GetOrCreateChannelPlayer(ctx, tx, userID, channelID)
		if err != nil {
			return err
		}

		enabled = !standing.Gambling
		return state.SetGambling(ctx, tx, userID, channelID, enabled)
	})
	if err != nil {
		return false, mapStorageError(err)
	}

	return enabled, nil
}

// SetKFactor changes the magnitude of future rating swings in a channel.
func (l *Ledger) SetKFactor(ctx context.Context, channelID string, kFactor int) error {
	if kFactor <= 0 {
		return fmt.Errorf("%w: k-factor must be positive, got %d", ErrInvalidInput, kFactor)
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return state.SetKFactor(ctx, tx, channelID, kFactor)
	})

	return mapStorageError(err)
}

// KFactor reads a channel's current k-factor.
func (l *Ledger) KFactor(ctx context.Context, channelID string) (int, error) {
	return state.KFactor(ctx, l.db, channelID)
}

// GetRating reads a player's current rating in a channel. The second
// return value reports whether the player has ever appeared there.
func (l *Ledger) GetRating(ctx context.Context, userID string, channelID string) (int, bool, error) {
	return state.GetRating(ctx, l.db, userID, channelID)
}
