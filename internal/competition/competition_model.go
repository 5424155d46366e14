package competition

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// CompetitionStatus is the lifecycle state of a competition.
type CompetitionStatus string

const (
	StatusOpenForEntry CompetitionStatus = "open_for_entry"
	StatusInProgress   CompetitionStatus = "in_progress"
	StatusResolved     CompetitionStatus = "resolved"
	StatusRolledOver   CompetitionStatus = "rolled_over"
	StatusClosed       CompetitionStatus = "closed"
)

// EntrantStatus is an entrant's elimination state. A bought-back entrant is
// treated as alive for subsequent rounds.
type EntrantStatus string

const (
	StatusEntrantAlive      EntrantStatus = "alive"
	StatusEntrantEliminated EntrantStatus = "eliminated"
	StatusEntrantBoughtBack EntrantStatus = "bought_back"
)

// NoPickPolicy governs what happens to an entrant who never submitted a pick
// for a round.
type NoPickPolicy string

const (
	// NoPickEliminate treats a missing pick as a loss equivalent.
	NoPickEliminate NoPickPolicy = "eliminate"
	// NoPickAutoPick submits a deterministic default pick at resolution time.
	NoPickAutoPick NoPickPolicy = "auto_pick"
)

// BuyBackStatus tracks a buy-back request through payment confirmation.
type BuyBackStatus string

const (
	StatusBuyBackPending   BuyBackStatus = "pending"
	StatusBuyBackConfirmed BuyBackStatus = "confirmed"
)

// Competition is one run of the last-man-standing game: an ordered sequence
// of rounds, a prize pot, and the elimination policies that apply to it.
type Competition struct {
	gorm.Model
	Name          string            `json:"name" gorm:"not null"`
	Status        CompetitionStatus `json:"status" gorm:"index;not null;default:'open_for_entry'"`
	EntryFee      float64           `json:"entry_fee" gorm:"default:0"`
	PrizePot      float64           `json:"prize_pot" gorm:"default:0"` // monotonically non-decreasing until payout
	RolloverCount int               `json:"rollover_count" gorm:"default:0"`

	NoPickPolicy   NoPickPolicy `json:"no_pick_policy" gorm:"not null;default:'eliminate'"`
	DrawEliminates bool         `json:"draw_eliminates" gorm:"default:true"`

	BuyBackEnabled bool    `json:"buy_back_enabled" gorm:"default:false"`
	BuyBackFee     float64 `json:"buy_back_fee" gorm:"default:0"`
	BuyBackStages  string  `json:"buy_back_stages"` // comma-separated round numbers

	WinnerEntrantID  *uint `json:"winner_entrant_id,omitempty"`
	RolledOverFromID *uint `json:"rolled_over_from_id,omitempty" gorm:"index"`
}

// BuyBackStageAllowed reports whether the buy-back policy lists the stage.
func (c *Competition) BuyBackStageAllowed(stage int) bool {
	if !c.BuyBackEnabled {
		return false
	}
	for _, s := range strings.Split(c.BuyBackStages, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		if n == stage {
			return true
		}
	}
	return false
}

// AcceptsEntries reports whether the competition lifecycle still permits joins.
func (c *Competition) AcceptsEntries() bool {
	return c.Status == StatusOpenForEntry || c.Status == StatusInProgress
}

// Entrant is one user's participation in one competition. Entrants are never
// deleted, only status-transitioned.
type Entrant struct {
	gorm.Model
	CompetitionID uint          `json:"competition_id" gorm:"index;not null;uniqueIndex:idx_competition_user,priority:1"`
	UserID        string        `json:"user_id" gorm:"not null;uniqueIndex:idx_competition_user,priority:2"` // opaque id from the identity provider
	Status        EntrantStatus `json:"status" gorm:"index;not null;default:'alive'"`
	BuyBackUsed   bool          `json:"buy_back_used" gorm:"default:false"`
}

// Active reports whether the entrant still takes part in elimination
// (alive, or eliminated-then-bought-back).
func (e *Entrant) Active() bool {
	return e.Status == StatusEntrantAlive || e.Status == StatusEntrantBoughtBack
}

// BuyBack is a paid re-entry request. RequestID doubles as the idempotency
// key the payment processor echoes back on its webhook.
type BuyBack struct {
	gorm.Model
	EntrantID uint          `json:"entrant_id" gorm:"index;not null"`
	RequestID string        `json:"request_id" gorm:"uniqueIndex;not null"`
	Stage     int           `json:"stage" gorm:"not null"`
	Fee       float64       `json:"fee" gorm:"not null"`
	Status    BuyBackStatus `json:"status" gorm:"index;not null;default:'pending'"`
}
