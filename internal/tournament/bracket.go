// Package tournament runs single-elimination brackets on top of the
// match registry. Players hold one persistent connection each; matches
// embedded in a tournament reach them through filtering relays so a
// finished or aborted match never severs the tournament connection.
package tournament

import "math/rand"

// SlotState tracks one bracket slot's progress. A slot is never
// addressed by a nullable match id; the state is explicit.
type SlotState string

const (
	SlotUnscheduled SlotState = "unscheduled"
	SlotScheduled   SlotState = "scheduled"
	SlotDecided     SlotState = "decided"
)

// Slot is one pairing within a round. A bye slot has an empty second
// player and is decided from birth.
type Slot struct {
	Players  [2]string `json:"players"`
	State    SlotState `json:"state"`
	MatchID  string    `json:"match_id,omitempty"`
	WinnerID string    `json:"winner_id,omitempty"`
}

// Bye reports whether the slot advanced its player without a match.
func (s *Slot) Bye() bool {
	return s.Players[1] == ""
}

// Has reports whether the given player occupies the slot.
func (s *Slot) Has(userID string) bool {
	return s.Players[0] == userID || s.Players[1] == userID
}

// Round is one layer of the bracket.
type Round struct {
	Slots []*Slot `json:"slots"`
}

// newRound shuffles the entrants into random pairings. An odd entrant
// count leaves one player unpaired; that player gets an automatic bye
// into the next round.
func newRound(players []string, rng *rand.Rand) *Round {
	shuffled := append([]string(nil), players...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	round := &Round{}
	for i := 0; i+1 < len(shuffled); i += 2 {
		round.Slots = append(round.Slots, &Slot{
			Players: [2]string{shuffled[i], shuffled[i+1]},
			State:   SlotUnscheduled,
		})
	}
	if len(shuffled)%2 == 1 {
		last := shuffled[len(shuffled)-1]
		round.Slots = append(round.Slots, &Slot{
			Players:  [2]string{last, ""},
			State:    SlotDecided,
			WinnerID: last,
		})
	}
	return round
}

// Complete reports whether every slot in the round is decided.
func (r *Round) Complete() bool {
	for _, s := range r.Slots {
		if s.State != SlotDecided {
			return false
		}
	}
	return true
}

// Winners returns the decided winners in slot order.
func (r *Round) Winners() []string {
	var winners []string
	for _, s := range r.Slots {
		if s.State == SlotDecided && s.WinnerID != "" {
			winners = append(winners, s.WinnerID)
		}
	}
	return winners
}

// NextUnscheduled returns the first slot still waiting for its match,
// or nil when none remain.
func (r *Round) NextUnscheduled() *Slot {
	for _, s := range r.Slots {
		if s.State == SlotUnscheduled {
			return s
		}
	}
	return nil
}

// Bracket is the full tournament structure, round by round.
type Bracket struct {
	Rounds []*Round `json:"rounds"`
}

// CurrentRound returns the most recently generated round.
func (b *Bracket) CurrentRound() *Round {
	if len(b.Rounds) == 0 {
		return nil
	}
	return b.Rounds[len(b.Rounds)-1]
}

// SlotByMatchID finds the slot a running match belongs to.
func (b *Bracket) SlotByMatchID(matchID string) (*Slot, int) {
	for i, round := range b.Rounds {
		for _, s := range round.Slots {
			if s.MatchID == matchID {
				return s, i
			}
		}
	}
	return nil, -1
}
