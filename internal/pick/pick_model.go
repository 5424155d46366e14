package pick

import (
	"gorm.io/gorm"

	"github.com/lastmanfc/lastman-backend/internal/round"
)

// PickStatus is the lifecycle status of a pick. A pick is pending or locked
// strictly while its round is open or locked; it becomes terminal only when
// the round resolves, and is immutable from then on.
type PickStatus string

const (
	StatusPickPending PickStatus = "pending"
	StatusPickLocked  PickStatus = "locked"
	StatusPickWin     PickStatus = "win"
	StatusPickDraw    PickStatus = "draw"
	StatusPickLoss    PickStatus = "loss"
	StatusPickVoid    PickStatus = "void"
)

// Terminal reports whether the status can no longer change.
func (s PickStatus) Terminal() bool {
	switch s {
	case StatusPickWin, StatusPickDraw, StatusPickLoss, StatusPickVoid:
		return true
	}
	return false
}

// Pick is an entrant's team selection for one round. At most one pick exists
// per (entrant, round) pair.
type Pick struct {
	gorm.Model
	EntrantID uint       `json:"entrant_id" gorm:"index;not null;uniqueIndex:idx_entrant_round,priority:1"`
	RoundID   uint       `json:"round_id" gorm:"index;not null;uniqueIndex:idx_entrant_round,priority:2"`
	TeamID    uint       `json:"team_id" gorm:"index;not null"`
	Status    PickStatus `json:"status" gorm:"index;not null;default:'pending'"`
}

// PickEvent is emitted once per pick when a round's results are applied; the
// elimination engine consumes these to transition entrant statuses.
type PickEvent struct {
	EntrantID uint
	Status    PickStatus
}

// StatusForOutcome maps a team's fixture outcome to the resulting pick status.
func StatusForOutcome(o round.Outcome) PickStatus {
	switch o {
	case round.OutcomeWin:
		return StatusPickWin
	case round.OutcomeDraw:
		return StatusPickDraw
	case round.OutcomeLoss:
		return StatusPickLoss
	default:
		return StatusPickVoid
	}
}
