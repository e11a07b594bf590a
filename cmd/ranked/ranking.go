package main

import (
	"fmt"
	"strings"

	"github.com/lanefold/ranked/svc/ladder/ledger"
)

// parseRanking turns command arguments like ["alice", "bob=carol", "dan"]
// into placements 1, 2, 2, 4: players joined by = tie for a position and
// the next group resumes after the gap, chess style.
func parseRanking(args []string) ([]ledger.Placement, error) {
	placements := []ledger.Placement{}
	position := 1

	for _, arg := range args {
		group := []string{}
		for _, name := range strings.Split(arg, "=") {
			if name == "" {
				continue
			}

			group = append(group, name)
		}

		if len(group) == 0 {
			return nil, fmt.Errorf("empty ranking group: %q", arg)
		}

		for _, name := range group {
			placements = append(placements, ledger.Placement{
				UserID:   name,
				Position: position,
			})
		}

		position += len(group)
	}

	return placements, nil
}

// ordinal renders 1 as 1st, 2 as 2nd and so on.
func ordinal(position int) string {
	suffix := "th"
	if position%100 < 10 || position%100 > 20 {
		switch position % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}

	return fmt.Sprintf("%d%s", position, suffix)
}
