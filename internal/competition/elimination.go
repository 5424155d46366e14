package competition

import (
	"github.com/lastmanfc/lastman-backend/internal/pick"
)

// Reckoning is the outcome of applying one round's pick events to a
// competition's entrant pool.
type Reckoning struct {
	// NextStatus maps entrant id to the status the round leaves them with.
	// Every active entrant appears; already-eliminated entrants are untouched.
	NextStatus map[uint]EntrantStatus
	// Survivors is the number of entrants still in the game afterwards.
	Survivors int
}

// ReckonRound computes each active entrant's next status from the round's
// pick events. Loss eliminates; draw eliminates when the competition's draw
// policy says so; win and void leave the entrant untouched. An active entrant
// with no event (they never picked, and no auto-pick was possible) is
// eliminated. Pure function; persistence and rollover handling sit with the
// orchestrator.
func ReckonRound(entrants []Entrant, events []pick.PickEvent, drawEliminates bool) Reckoning {
	byEntrant := make(map[uint]pick.PickStatus, len(events))
	for _, ev := range events {
		byEntrant[ev.EntrantID] = ev.Status
	}

	reck := Reckoning{NextStatus: make(map[uint]EntrantStatus)}
	for i := range entrants {
		e := &entrants[i]
		if !e.Active() {
			continue
		}

		next := e.Status
		status, picked := byEntrant[e.ID]
		switch {
		case !picked:
			next = StatusEntrantEliminated
		case status == pick.StatusPickLoss:
			next = StatusEntrantEliminated
		case status == pick.StatusPickDraw && drawEliminates:
			next = StatusEntrantEliminated
		}
		// win and void keep the entrant as they were

		reck.NextStatus[e.ID] = next
		if next != StatusEntrantEliminated {
			reck.Survivors++
		}
	}
	return reck
}
