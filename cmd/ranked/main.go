package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lanefold/ranked/svc/ladder/config"
	"github.com/lanefold/ranked/svc/ladder/service"
	"github.com/lanefold/ranked/svc/ladder/state"

	"github.com/alecthomas/kong"
	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const VERSION = "1.2.0"

var CLI struct {
	Version  bool   `help:"Print version information and exit." short:"v"`
	Debug    bool   `help:"Whether to enable debug logging."`
	Database string `help:"Path to the ladder database. Overrides RANKED_CONFIG."`

	Record struct {
		Channel string   `arg:"" help:"Channel the game was played in."`
		Ranking []string `arg:"" help:"Players from first to last; tie players with =, e.g. alice bob=carol dan."`
	} `cmd:"" help:"Record a finished game and apply rating changes."`

	Simulate struct {
		Channel string   `arg:"" help:"Channel to simulate in."`
		Ranking []string `arg:"" help:"Players from first to last; tie players with =."`
	} `cmd:"" help:"See what a game would do to ratings without recording it."`

	Undo struct {
		Channel string `arg:"" help:"Channel to undo in."`
	} `cmd:"" help:"Undo the most recently recorded game in a channel."`

	Gamble struct {
		Channel string `arg:"" help:"Channel the stake applies to."`
		Player  string `arg:"" help:"Player toggling their stake."`
	} `cmd:"" help:"Toggle doubling a player's next rating change."`

	Kfactor struct {
		Channel string `arg:"" help:"Channel to inspect or change."`
		Value   int    `arg:"" optional:"" help:"New k-factor. Omit to show the current one."`
	} `cmd:"" help:"Show or set a channel's k-factor."`

	Rating struct {
		Channel string `arg:"" help:"Channel to look in."`
		Player  string `arg:"" help:"Player to look up."`
	} `cmd:"" help:"Show a player's rating in a channel."`

	Leaderboard struct {
		Channel string `arg:"" help:"Channel to rank."`
		Limit   int    `help:"Number of players to show." default:"10"`
	} `cmd:"" help:"Show a channel's standings."`

	History struct {
		Channel string `arg:"" help:"Channel to look in."`
		Player  string `arg:"" help:"Player to show history for."`
		Limit   int    `help:"Number of games to show." default:"10"`
	} `cmd:"" help:"Show a player's recent games in a channel."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func formatDelta(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}

	return fmt.Sprintf("%d", delta)
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	parsed := kong.Parse(&CLI,
		kong.Name("ranked"),
		kong.Description("per-channel Elo ratings with a transactional game ledger"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	if CLI.Version {
		fmt.Printf("ranked %s\n", VERSION)
		return
	}

	settings, err := config.GetRankedConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if CLI.Database != "" {
		settings.Ladder.Database.Path = CLI.Database
	}

	db, err := state.InitDB(settings.Ladder.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msgf("failed to open database: %s", settings.Ladder.Database.Path)
	}

	var redisClient *redis.Client
	if settings.Ladder.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     settings.Ladder.Redis.Address,
			Password: settings.Ladder.Redis.Password,
			DB:       settings.Ladder.Redis.DB,
		})
	}

	ladder := service.NewLadder(db, redisClient)

	ctx := context.Background()

	switch parsed.Command() {
	case "record <channel> <ranking>":
		ranking, err := parseRanking(CLI.Record.Ranking)
		if err != nil {
			writeError(err)
		}

		result, err := ladder.RecordGame(ctx, CLI.Record.Channel, ranking)
		if err != nil {
			writeError(err)
		}

		fmt.Printf("game %d recorded\n", result.GameID)
		for _, player := range result.Players {
			stake := ""
			if player.Gambled {
				stake = " (2x stake)"
			}
			fmt.Printf(
				"%s: %d -> %d (%s)%s\n",
				player.UserID,
				player.RatingBefore,
				player.RatingAfter,
				formatDelta(player.Delta),
				stake,
			)
		}

	case "simulate <channel> <ranking>":
		ranking, err := parseRanking(CLI.Simulate.Ranking)
		if err != nil {
			writeError(err)
		}

		players, err := ladder.Simulate(ctx, CLI.Simulate.Channel, ranking)
		if err != nil {
			writeError(err)
		}

		fmt.Println("simulation only, nothing was saved")
		for _, player := range players {
			fmt.Printf(
				"%s: %d -> %d (%s)\n",
				player.UserID,
				player.RatingBefore,
				player.RatingAfter,
				formatDelta(player.Delta),
			)
		}

	case "undo <channel>":
		result, err := ladder.UndoLastGame(ctx, CLI.Undo.Channel)
		if err != nil {
			writeError(err)
		}

		fmt.Printf("game %d undone\n", result.GameID)
		for _, player := range result.Players {
			fmt.Printf("%s: restored to %d\n", player.UserID, player.Rating)
		}

	case "gamble <channel> <player>":
		enabled, err := ladder.ToggleGambling(ctx, CLI.Gamble.Player, CLI.Gamble.Channel)
		if err != nil {
			writeError(err)
		}

		if enabled {
			fmt.Printf("%s is now gambling: their next rating change doubles\n", CLI.Gamble.Player)
		} else {
			fmt.Printf("%s is no longer gambling\n", CLI.Gamble.Player)
		}

	case "kfactor <channel>":
		kFactor, err := ladder.Ledger.KFactor(ctx, CLI.Kfactor.Channel)
		if err != nil {
			writeError(err)
		}

		fmt.Printf("k-factor for %s is %d\n", CLI.Kfactor.Channel, kFactor)

	case "kfactor <channel> <value>":
		err := ladder.SetKFactor(ctx, CLI.Kfactor.Channel, CLI.Kfactor.Value)
		if err != nil {
			writeError(err)
		}

		fmt.Printf("k-factor for %s set to %d\n", CLI.Kfactor.Channel, CLI.Kfactor.Value)

	case "rating <channel> <player>":
		rating, exists, err := ladder.Rating(ctx, CLI.Rating.Player, CLI.Rating.Channel)
		if err != nil {
			writeError(err)
		}

		if !exists {
			fmt.Printf("%s has not played in %s yet (would start at %d)\n", CLI.Rating.Player, CLI.Rating.Channel, rating)
			return
		}

		fmt.Printf("%s: %d\n", CLI.Rating.Player, rating)

	case "leaderboard <channel>":
		rows, err := ladder.Leaderboard(ctx, CLI.Leaderboard.Channel, CLI.Leaderboard.Limit)
		if err != nil {
			writeError(err)
		}

		for i, row := range rows {
			fmt.Printf("%d. %s %d (%d games)\n", i+1, row.UserID, row.Rating, row.GamesPlayed)
		}

	case "history <channel> <player>":
		rows, err := ladder.History(ctx, CLI.History.Player, CLI.History.Channel, CLI.History.Limit)
		if err != nil {
			writeError(err)
		}

		for _, row := range rows {
			stake := ""
			if row.Gambled {
				stake = " (2x stake)"
			}
			fmt.Printf(
				"game %d (%s): %s place, %d -> %d (%s)%s\n",
				row.GameID,
				row.PlayedAt.Format(time.RFC3339),
				ordinal(row.Position),
				row.RatingBefore,
				row.RatingAfter,
				formatDelta(row.Delta),
				stake,
			)
		}

	default:
		writeError(fmt.Errorf("unknown command: %s", parsed.Command()))
	}
}
