package round

import (
	"time"

	"gorm.io/gorm"
)

// RoundStatus is the lock state of a round. Transitions are strictly
// open -> locked -> resolved, never in reverse.
type RoundStatus string

const (
	StatusRoundOpen     RoundStatus = "open"
	StatusRoundLocked   RoundStatus = "locked"
	StatusRoundResolved RoundStatus = "resolved"
)

// FixtureResult is the terminal (or pending) result of a single match.
type FixtureResult string

const (
	ResultPending FixtureResult = "pending"
	ResultHomeWin FixtureResult = "home_win"
	ResultAwayWin FixtureResult = "away_win"
	ResultDraw    FixtureResult = "draw"
	ResultVoid    FixtureResult = "void" // postponed, abandoned
)

// Outcome is a team's result in a round, derived from its fixture.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeDraw Outcome = "draw"
	OutcomeLoss Outcome = "loss"
	OutcomeVoid Outcome = "void"
)

// OutcomeByTeam maps team ids to their outcome for a resolved round.
type OutcomeByTeam map[uint]Outcome

// Round is one scheduled cycle of fixtures within a competition.
type Round struct {
	gorm.Model
	CompetitionID uint        `json:"competition_id" gorm:"index;not null;uniqueIndex:idx_competition_round_number,priority:1"`
	Number        int         `json:"number" gorm:"not null;uniqueIndex:idx_competition_round_number,priority:2"`
	Deadline      time.Time   `json:"deadline" gorm:"index;not null"`
	Status        RoundStatus `json:"status" gorm:"index;not null;default:'open'"`

	Fixtures []Fixture `json:"fixtures,omitempty" gorm:"foreignKey:RoundID"`
}

// Fixture is a single real-world match within a round. Each team appears in
// at most one fixture per round.
type Fixture struct {
	gorm.Model
	RoundID    uint          `json:"round_id" gorm:"index;not null"`
	HomeTeamID uint          `json:"home_team_id" gorm:"index;not null"`
	AwayTeamID uint          `json:"away_team_id" gorm:"index;not null"`
	Result     FixtureResult `json:"result" gorm:"not null;default:'pending'"`
}

// Terminal reports whether a result can no longer change.
func (r FixtureResult) Terminal() bool {
	switch r {
	case ResultHomeWin, ResultAwayWin, ResultDraw, ResultVoid:
		return true
	}
	return false
}

// Outcomes derives the per-team outcome of a fixture. It returns nothing for
// a pending fixture.
func (f *Fixture) Outcomes() map[uint]Outcome {
	switch f.Result {
	case ResultHomeWin:
		return map[uint]Outcome{f.HomeTeamID: OutcomeWin, f.AwayTeamID: OutcomeLoss}
	case ResultAwayWin:
		return map[uint]Outcome{f.HomeTeamID: OutcomeLoss, f.AwayTeamID: OutcomeWin}
	case ResultDraw:
		return map[uint]Outcome{f.HomeTeamID: OutcomeDraw, f.AwayTeamID: OutcomeDraw}
	case ResultVoid:
		return map[uint]Outcome{f.HomeTeamID: OutcomeVoid, f.AwayTeamID: OutcomeVoid}
	}
	return nil
}
