package elo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedScore(t *testing.T) {
	e := NewElo()

	assert.InDelta(t, 0.5, e.ExpectedScore(1000, 1000), 1e-9)
	assert.InDelta(t, 0.7597469, e.ExpectedScore(1200, 1000), 1e-6)
	assert.InDelta(t, 0.2402531, e.ExpectedScore(1000, 1200), 1e-6)

	// the two perspectives always sum to 1
	assert.InDelta(
		t,
		1.0,
		e.ExpectedScore(1234, 987)+e.ExpectedScore(987, 1234),
		1e-9,
	)
}

func TestOutcome1v1(t *testing.T) {
	e := NewElo()

	a, b := e.Outcome1v1(1000, 1000, 1)
	assert.Equal(t, Outcome{16, 1016}, a)
	assert.Equal(t, Outcome{-16, 984}, b)

	a, b = e.Outcome1v1(1000, 1000, 0.5)
	assert.Equal(t, Outcome{0, 1000}, a)
	assert.Equal(t, Outcome{0, 1000}, b)
}

func TestGroupReducesToClassicElo(t *testing.T) {
	tests := []struct {
		name     string
		ratingA  int
		ratingB  int
	}{
		{"even", 1000, 1000},
		{"favorite wins", 1200, 1000},
		{"underdog wins", 900, 1400},
		{"small gap", 1016, 984},
	}

	e := NewElo()

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			expectedA, expectedB := e.Outcome1v1(test.ratingA, test.ratingB, 1)

			outcomes := e.GroupOutcomes([]Participant{
				{Rating: test.ratingA, Position: 1},
				{Rating: test.ratingB, Position: 2},
			})

			assert.Equal(t, expectedA, outcomes[0])
			assert.Equal(t, expectedB, outcomes[1])
		})
	}
}

func TestGroupEvenPair(t *testing.T) {
	e := NewElo()

	outcomes := e.GroupOutcomes([]Participant{
		{Rating: 1000, Position: 1},
		{Rating: 1000, Position: 2},
	})

	assert.Equal(t, Outcome{16, 1016}, outcomes[0])
	assert.Equal(t, Outcome{-16, 984}, outcomes[1])
}

func TestGroupEvenTie(t *testing.T) {
	e := NewElo()

	outcomes := e.GroupOutcomes([]Participant{
		{Rating: 1000, Position: 1},
		{Rating: 1000, Position: 1},
	})

	assert.Equal(t, Outcome{0, 1000}, outcomes[0])
	assert.Equal(t, Outcome{0, 1000}, outcomes[1])
}

func TestGroupTiedUnderdogGains(t *testing.T) {
	// A tie between unequal players still moves ratings: the favorite
	// underperformed and the underdog overperformed.
	e := NewElo()

	outcomes := e.GroupOutcomes([]Participant{
		{Rating: 1200, Position: 1},
		{Rating: 1000, Position: 1},
	})

	assert.Equal(t, Outcome{-8, 1192}, outcomes[0])
	assert.Equal(t, Outcome{8, 1008}, outcomes[1])
}

func TestGroupThreeWithTie(t *testing.T) {
	// Three pairwise comparisons normalized by two opponents each.
	e := NewElo()

	outcomes := e.GroupOutcomes([]Participant{
		{Rating: 1200, Position: 1},
		{Rating: 1000, Position: 2},
		{Rating: 1000, Position: 2},
	})

	assert.Equal(t, Outcome{8, 1208}, outcomes[0])
	assert.Equal(t, Outcome{-4, 996}, outcomes[1])
	assert.Equal(t, Outcome{-4, 996}, outcomes[2])
}

func TestGroupPositionGapsAfterTies(t *testing.T) {
	// 1, 2, 2, 4 ranks the last player fourth; only relative order
	// matters.
	e := NewElo()

	withGap := e.GroupOutcomes([]Participant{
		{Rating: 1000, Position: 1},
		{Rating: 1000, Position: 2},
		{Rating: 1000, Position: 2},
		{Rating: 1000, Position: 4},
	})
	withoutGap := e.GroupOutcomes([]Participant{
		{Rating: 1000, Position: 1},
		{Rating: 1000, Position: 2},
		{Rating: 1000, Position: 2},
		{Rating: 1000, Position: 3},
	})

	assert.Equal(t, withoutGap, withGap)
}

func TestGroupZeroSumBound(t *testing.T) {
	// Without gambling, deltas cancel up to one rounding step per
	// participant: |sum| <= N/2.
	tests := []struct {
		name    string
		players []Participant
	}{{
		"uneven pair",
		[]Participant{
			{Rating: 1123, Position: 1},
			{Rating: 987, Position: 2},
		},
	}, {
		"three way",
		[]Participant{
			{Rating: 1400, Position: 1},
			{Rating: 1100, Position: 2},
			{Rating: 950, Position: 3},
		},
	}, {
		"five with ties",
		[]Participant{
			{Rating: 1321, Position: 1},
			{Rating: 1200, Position: 2},
			{Rating: 1199, Position: 2},
			{Rating: 1050, Position: 4},
			{Rating: 875, Position: 5},
		},
	}, {
		"all tied, spread ratings",
		[]Participant{
			{Rating: 1500, Position: 1},
			{Rating: 1250, Position: 1},
			{Rating: 1000, Position: 1},
			{Rating: 750, Position: 1},
		},
	}}

	e := NewElo()

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			outcomes := e.GroupOutcomes(test.players)

			sum := 0
			for _, outcome := range outcomes {
				sum += outcome.Delta
			}
			if sum < 0 {
				sum = -sum
			}

			assert.LessOrEqual(t, sum, len(test.players)/2)
		})
	}
}

func TestGroupGamblingDoubles(t *testing.T) {
	e := NewElo()

	plain := e.GroupOutcomes([]Participant{
		{Rating: 1000, Position: 1},
		{Rating: 1000, Position: 2},
	})
	staked := e.GroupOutcomes([]Participant{
		{Rating: 1000, Position: 1, Gambling: true},
		{Rating: 1000, Position: 2},
	})

	// only the gambler's delta doubles, which breaks zero-sum
	assert.Equal(t, 2*plain[0].Delta, staked[0].Delta)
	assert.Equal(t, plain[1].Delta, staked[1].Delta)

	// sign is preserved on a loss too
	losing := e.GroupOutcomes([]Participant{
		{Rating: 1000, Position: 2, Gambling: true},
		{Rating: 1000, Position: 1},
	})
	assert.Equal(t, -32, losing[0].Delta)
	assert.Equal(t, 16, losing[1].Delta)
}

func TestGroupRoundsHalfAwayFromZero(t *testing.T) {
	// With K=1 an even game produces raw deltas of exactly +-0.5, which
	// must round to +-1 so a win and the equivalent loss keep the same
	// magnitude.
	e := NewEloWithFactors(1, D)

	outcomes := e.GroupOutcomes([]Participant{
		{Rating: 1000, Position: 1},
		{Rating: 1000, Position: 2},
	})

	assert.Equal(t, 1, outcomes[0].Delta)
	assert.Equal(t, -1, outcomes[1].Delta)
}

func TestGroupDoesNotMutateInput(t *testing.T) {
	e := NewElo()

	players := []Participant{
		{Rating: 1200, Position: 1},
		{Rating: 1000, Position: 2},
	}

	e.GroupOutcomes(players)

	assert.Equal(t, 1200, players[0].Rating)
	assert.Equal(t, 1000, players[1].Rating)
}

func TestGroupCustomKFactor(t *testing.T) {
	e := NewEloWithFactors(64, D)

	outcomes := e.GroupOutcomes([]Participant{
		{Rating: 1000, Position: 1},
		{Rating: 1000, Position: 2},
	})

	assert.Equal(t, 32, outcomes[0].Delta)
	assert.Equal(t, -32, outcomes[1].Delta)
}
