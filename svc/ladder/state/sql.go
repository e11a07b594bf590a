package state

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Entity struct {
	ID uint `gorm:"primaryKey"`
}

// A player known to the ladder. Identity comes from whatever platform the
// caller resolves mentions on; we only ever see an opaque ID.
type Player struct {
	Entity

	UserID string `gorm:"unique;not null;size:32"`

	Standings []*ChannelPlayer
}

// A channel with its own independent ladder.
type Channel struct {
	Entity

	ChannelID string `gorm:"unique;not null;size:32"`

	// Magnitude of rating swings for games recorded from now on. Past
	// games are unaffected when this changes.
	KFactor int `gorm:"not null;default:32"`
}

// A player's standing in a single channel.
type ChannelPlayer struct {
	Entity

	PlayerID  uint `gorm:"not null;uniqueIndex:idx_channel_player"`
	ChannelID uint `gorm:"not null;uniqueIndex:idx_channel_player"`

	Rating int `gorm:"not null;default:1000"`

	// One-shot stake. Doubles this player's rating change in the next
	// recorded game in this channel, win or lose.
	Gambling bool `gorm:"not null;default:false"`

	Player  *Player
	Channel *Channel
}

// A recorded game. Games are immutable; undoing one deletes the row along
// with all of its participations.
type Game struct {
	Entity

	ChannelID uint `gorm:"not null;index"`
	CreatedAt time.Time

	Channel        *Channel
	Participations []*PlayerGame
}

// One player's part in one recorded game.
type PlayerGame struct {
	Entity

	PlayerID uint `gorm:"not null;index"`
	GameID   uint `gorm:"not null;index"`

	RatingBefore int `gorm:"not null"`
	RatingAfter  int `gorm:"not null"`

	// Rank in the result; tied players share a value.
	Position int `gorm:"not null"`

	// Whether the gambling modifier applied to this participant.
	Gambled bool `gorm:"not null;default:false"`

	Player *Player
	Game   *Game
}

func InitDB(path string) (*gorm.DB, error) {
	// The busy timeout keeps concurrent writers queued instead of
	// failing immediately; anything still conflicting surfaces to the
	// caller.
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.AutoMigrate(&Player{})
	db.AutoMigrate(&Channel{})
	db.AutoMigrate(&ChannelPlayer{})
	db.AutoMigrate(&Game{})
	db.AutoMigrate(&PlayerGame{})

	return db, nil
}
