// https://github.com/kortemy/elo-go
//MIT License

//Copyright (c) 2017 Dusan Lilic

//Permission is hereby granted, free of charge, to any person obtaining a copy
//of this software and associated documentation files (the "Software"), to deal
//in the Software without restriction, including without limitation the rights
//to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
//copies of the Software, and to permit persons to whom the Software is
//furnished to do so, subject to the following conditions:

//The above copyright notice and this permission notice shall be included in all
//copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
package elo

import (
	"fmt"
	"math"
)

const (
	// K is the default K-Factor
	K = 32
	// D is the default deviation
	D = 400
)

// Elo calculates Elo rating changes based on the configured factors.
type Elo struct {
	K int
	D int
}

// Participant is a single player in a finished game.
type Participant struct {
	// Rating is the player's rating going into the game.
	Rating int
	// Position is the player's rank in the result. Lower is better and
	// tied players share a value; gaps after ties are fine (1, 2, 2, 4).
	Position int
	// Gambling doubles the participant's rating change.
	Gambling bool
}

// Outcome is a match result for a single player.
type Outcome struct {
	Delta  int
	Rating int
}

func (o *Outcome) String() string {
	if o.Delta > 0 {
		return fmt.Sprintf("%d +%d", o.Rating, o.Delta)
	}

	return fmt.Sprintf("%d %d", o.Rating, o.Delta)
}

// NewElo instantiates the Elo object with default factors.
// Default K-Factor is 32
// Default deviation is 400
func NewElo() *Elo {
	return &Elo{K, D}
}

// NewEloWithFactors instantiates the Elo object with custom factor values.
func NewEloWithFactors(k, d int) *Elo {
	return &Elo{k, d}
}

// ExpectedScore gives the expected chance that the first player wins
func (e *Elo) ExpectedScore(ratingA, ratingB int) float64 {
	return 1 / (1 + math.Pow(10, float64(ratingB-ratingA)/float64(e.D)))
}

// RatingDelta gives the ratings change for the first player for the given score
func (e *Elo) RatingDelta(ratingA, ratingB int, score float64) int {
	return round(float64(e.K) * (score - e.ExpectedScore(ratingA, ratingB)))
}

// Outcome1v1 gives an Outcome object for each player of a two-player game
// for the given score.
func (e *Elo) Outcome1v1(ratingA, ratingB int, score float64) (Outcome, Outcome) {
	delta := e.RatingDelta(ratingA, ratingB, score)
	return Outcome{delta, ratingA + delta}, Outcome{-delta, ratingB - delta}
}

// GroupOutcomes gives an Outcome object for every participant of a game
// with two or more players. Every unordered pair of participants is scored
// like a 1v1 game and each player's accumulated change is divided by their
// number of opponents, so a two-player game reduces exactly to classic Elo
// and adding opponents does not inflate the swing of a single game. A
// gambling participant's change is doubled after normalization, which
// breaks the zero-sum property for that game.
func (e *Elo) GroupOutcomes(players []Participant) []Outcome {
	deltas := make([]float64, len(players))

	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			expected := e.ExpectedScore(players[i].Rating, players[j].Rating)
			change := float64(e.K) * (actualScore(players[i], players[j]) - expected)
			deltas[i] += change
			deltas[j] -= change
		}
	}

	opponents := float64(len(players) - 1)

	outcomes := make([]Outcome, len(players))
	for i, player := range players {
		delta := deltas[i] / opponents
		if player.Gambling {
			delta *= 2
		}

		rounded := round(delta)
		outcomes[i] = Outcome{
			Delta:  rounded,
			Rating: player.Rating + rounded,
		}
	}

	return outcomes
}

// actualScore gives a's score against b by finishing position.
func actualScore(a, b Participant) float64 {
	switch {
	case a.Position < b.Position:
		return 1
	case a.Position > b.Position:
		return 0
	}

	return 0.5
}

// round half away from zero, so a win and the equivalent loss round to the
// same magnitude
func round(value float64) int {
	return int(math.Round(value))
}
