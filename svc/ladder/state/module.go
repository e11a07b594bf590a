package state

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	DEFAULT_RATING   = 1000
	DEFAULT_K_FACTOR = 32
)

func GetOrCreatePlayer(ctx context.Context, db *gorm.DB, userID string) (*Player, error) {
	var player Player
	err := db.WithContext(ctx).Where(Player{
		UserID: userID,
	}).First(&player).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err == nil {
		return &player, nil
	}

	// it doesn't exist
	player = Player{
		UserID: userID,
	}

	err = db.WithContext(ctx).Create(&player).Error
	if err != nil {
		return nil, err
	}

	return &player, nil
}

func GetOrCreateChannel(ctx context.Context, db *gorm.DB, channelID string) (*Channel, error) {
	var channel Channel
	err := db.WithContext(ctx).Where(Channel{
		ChannelID: channelID,
	}).First(&channel).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err == nil {
		return &channel, nil
	}

	channel = Channel{
		ChannelID: channelID,
		KFactor:   DEFAULT_K_FACTOR,
	}

	err = db.WithContext(ctx).Create(&channel).Error
	if err != nil {
		return nil, err
	}

	return &channel, nil
}

// GetOrCreateChannelPlayer looks up a player's standing in a channel,
// lazily creating the player, the channel and the standing itself at the
// default rating the first time the pair is seen.
func GetOrCreateChannelPlayer(ctx context.Context, db *gorm.DB, userID string, channelID string) (*ChannelPlayer, error) {
	player, err := GetOrCreatePlayer(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	channel, err := GetOrCreateChannel(ctx, db, channelID)
	if err != nil {
		return nil, err
	}

	var standing ChannelPlayer
	err = db.WithContext(ctx).Where(ChannelPlayer{
		PlayerID:  player.ID,
		ChannelID: channel.ID,
	}).First(&standing).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err == nil {
		return &standing, nil
	}

	standing = ChannelPlayer{
		PlayerID:  player.ID,
		ChannelID: channel.ID,
		Rating:    DEFAULT_RATING,
	}

	err = db.WithContext(ctx).Create(&standing).Error
	if err != nil {
		return nil, err
	}

	return &standing, nil
}

func getChannelPlayer(ctx context.Context, db *gorm.DB, userID string, channelID string) (*ChannelPlayer, error) {
	var standing ChannelPlayer
	err := db.WithContext(ctx).
		Joins("JOIN players ON players.id = channel_players.player_id").
		Joins("JOIN channels ON channels.id = channel_players.channel_id").
		Where("players.user_id = ? AND channels.channel_id = ?", userID, channelID).
		First(&standing).Error
	if err != nil {
		return nil, err
	}

	return &standing, nil
}

// GetRating reads a player's rating in a channel without creating anything.
// The second return value reports whether the player has a standing there.
func GetRating(ctx context.Context, db *gorm.DB, userID string, channelID string) (int, bool, error) {
	standing, err := getChannelPlayer(ctx, db, userID, channelID)
	if err == gorm.ErrRecordNotFound {
		return DEFAULT_RATING, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return standing.Rating, true, nil
}

func SetRating(ctx context.Context, db *gorm.DB, standing *ChannelPlayer, rating int) error {
	standing.Rating = rating
	return db.WithContext(ctx).Model(standing).Update("rating", rating).Error
}

// KFactor reads a channel's k-factor without creating the channel.
func KFactor(ctx context.Context, db *gorm.DB, channelID string) (int, error) {
	var channel Channel
	err := db.WithContext(ctx).Where(Channel{
		ChannelID: channelID,
	}).First(&channel).Error
	if err == gorm.ErrRecordNotFound {
		return DEFAULT_K_FACTOR, nil
	}
	if err != nil {
		return 0, err
	}

	return channel.KFactor, nil
}

func SetKFactor(ctx context.Context, db *gorm.DB, channelID string, kFactor int) error {
	channel, err := GetOrCreateChannel(ctx, db, channelID)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Model(channel).Update("k_factor", kFactor).Error
}

// Gambling reads a player's gambling flag without clearing it or creating
// a standing.
func Gambling(ctx context.Context, db *gorm.DB, userID string, channelID string) (bool, error) {
	standing, err := getChannelPlayer(ctx, db, userID, channelID)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return standing.Gambling, nil
}

func SetGambling(ctx context.Context, db *gorm.DB, userID string, channelID string, enabled bool) error {
	standing, err := GetOrCreateChannelPlayer(ctx, db, userID, channelID)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Model(standing).Update("gambling", enabled).Error
}

// TakeGambling consumes a standing's gambling flag: it reports the current
// value and resets it to false in the same enclosing transaction.
func TakeGambling(ctx context.Context, db *gorm.DB, standing *ChannelPlayer) (bool, error) {
	if !standing.Gambling {
		return false, nil
	}

	standing.Gambling = false
	err := db.WithContext(ctx).Model(standing).Update("gambling", false).Error
	if err != nil {
		return false, err
	}

	return true, nil
}

// LastGame gives the most recently created game in a channel. Game IDs are
// monotonically increasing, so the greatest ID wins regardless of wall
// clock order.
func LastGame(ctx context.Context, db *gorm.DB, channel *Channel) (*Game, error) {
	var game Game
	err := db.WithContext(ctx).Where(Game{
		ChannelID: channel.ID,
	}).Order("id DESC").First(&game).Error
	if err != nil {
		return nil, err
	}

	return &game, nil
}

func ParticipationsOf(ctx context.Context, db *gorm.DB, game *Game) ([]PlayerGame, error) {
	var participations []PlayerGame
	err := db.WithContext(ctx).Preload("Player").Where(PlayerGame{
		GameID: game.ID,
	}).Order("id ASC").Find(&participations).Error
	if err != nil {
		return nil, err
	}

	return participations, nil
}

type LeaderboardRow struct {
	UserID      string
	Rating      int
	GamesPlayed int
}

// Leaderboard lists a channel's standings by rating, best first, along
// with the number of games each player has recorded there.
func Leaderboard(ctx context.Context, db *gorm.DB, channelID string, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := db.WithContext(ctx).
		Table("channel_players").
		Select(`players.user_id AS user_id,
			channel_players.rating AS rating,
			COUNT(player_games.id) AS games_played`).
		Joins("JOIN players ON players.id = channel_players.player_id").
		Joins("JOIN channels ON channels.id = channel_players.channel_id").
		Joins(`LEFT JOIN games ON games.channel_id = channels.id`).
		Joins(`LEFT JOIN player_games ON player_games.game_id = games.id
			AND player_games.player_id = players.id`).
		Where("channels.channel_id = ?", channelID).
		Group("players.user_id, channel_players.rating").
		Order("channel_players.rating DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

type HistoryRow struct {
	GameID       uint
	RatingBefore int
	RatingAfter  int
	Position     int
	Gambled      bool
	PlayedAt     time.Time
}

// History lists a player's most recent games in a channel, newest first.
func History(ctx context.Context, db *gorm.DB, userID string, channelID string, limit int) ([]HistoryRow, error) {
	var rows []HistoryRow
	err := db.WithContext(ctx).
		Table("player_games").
		Select(`player_games.game_id AS game_id,
			player_games.rating_before AS rating_before,
			player_games.rating_after AS rating_after,
			player_games.position AS position,
			player_games.gambled AS gambled,
			games.created_at AS played_at`).
		Joins("JOIN games ON games.id = player_games.game_id").
		Joins("JOIN channels ON channels.id = games.channel_id").
		Joins("JOIN players ON players.id = player_games.player_id").
		Where("players.user_id = ? AND channels.channel_id = ?", userID, channelID).
		Order("player_games.game_id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// GameCount gives the number of games a player has recorded in a channel.
func GameCount(ctx context.Context, db *gorm.DB, userID string, channelID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("player_games").
		Joins("JOIN games ON games.id = player_games.game_id").
		Joins("JOIN channels ON channels.id = games.channel_id").
		Joins("JOIN players ON players.id = player_games.player_id").
		Where("players.user_id = ? AND channels.channel_id = ?", userID, channelID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}
