package competition

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lastmanfc/lastman-backend/internal/pick"
	"github.com/lastmanfc/lastman-backend/internal/round"
	"github.com/lastmanfc/lastman-backend/internal/team"
)

var (
	// ErrEntryClosed is returned when a join is attempted after the first
	// round has locked, or the competition no longer accepts entries.
	ErrEntryClosed = errors.New("competition entry is closed")
	// ErrAlreadyJoined is returned when a user already has an entry.
	ErrAlreadyJoined = errors.New("user already entered this competition")
	// ErrBuyBackUnavailable is returned when the buy-back policy does not
	// permit a re-entry for this entrant at this stage.
	ErrBuyBackUnavailable = errors.New("buy-back is not available")
	// ErrUnknownBuyBack is returned when a webhook references no known
	// buy-back request.
	ErrUnknownBuyBack = errors.New("unknown buy-back request")
	// ErrCompetitionNotActive is returned when round operations are attempted
	// on a competition that is not in progress.
	ErrCompetitionNotActive = errors.New("competition is not in progress")
)

// CompetitionService composes the team registry, round manager, pick ledger
// and elimination engine into the per-competition lifecycle. It advances
// competition state strictly via their outputs and never mutates pick or
// round rows directly.
type CompetitionService struct {
	db *gorm.DB
}

// NewCompetitionService creates a new competition service.
func NewCompetitionService(db *gorm.DB) *CompetitionService {
	return &CompetitionService{db: db}
}

// entrantGate adapts the repository to the pick ledger's eligibility check.
type entrantGate struct {
	repo CompetitionRepository
}

func (g *entrantGate) Eligible(entrantID uint) (bool, error) {
	e, err := g.repo.GetEntrant(entrantID)
	if err != nil {
		return false, err
	}
	return e.Active(), nil
}

// NewEntrantGate exposes the eligibility check for request-scoped pick
// submission wiring.
func NewEntrantGate(repo CompetitionRepository) pick.EntrantGate {
	return &entrantGate{repo: repo}
}

// CreateCompetition records a new competition in the open-for-entry state.
func (s *CompetitionService) CreateCompetition(comp *Competition) error {
	comp.Status = StatusOpenForEntry
	return NewCompetitionRepository(s.db).CreateCompetition(comp)
}

// JoinCompetition enters a user into a competition. Entry closes the moment
// the first round locks. The entry fee is added to the prize pot atomically
// with the entrant row.
func (s *CompetitionService) JoinCompetition(competitionID uint, userID string) (*Entrant, error) {
	var entrant *Entrant
	err := s.db.Transaction(func(tx *gorm.DB) error {
		compRepo := NewCompetitionRepository(tx)
		roundRepo := round.NewRoundRepository(tx)

		comp, err := compRepo.GetCompetition(competitionID)
		if err != nil {
			return err
		}
		if !comp.AcceptsEntries() {
			return ErrEntryClosed
		}

		rounds, err := roundRepo.GetRoundsByCompetition(competitionID)
		if err != nil {
			return err
		}
		if len(rounds) > 0 && rounds[0].Status != round.StatusRoundOpen {
			return ErrEntryClosed
		}

		existing, err := compRepo.GetEntrantByUser(competitionID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyJoined
		}

		entrant = &Entrant{
			CompetitionID: competitionID,
			UserID:        userID,
			Status:        StatusEntrantAlive,
		}
		if err := compRepo.CreateEntrant(entrant); err != nil {
			return err
		}

		comp.PrizePot += comp.EntryFee
		return compRepo.SaveCompetition(comp)
	})
	if err != nil {
		return nil, err
	}
	return entrant, nil
}

// OpenRound schedules the competition's next round. Opening the first round
// moves an open-for-entry competition into progress.
func (s *CompetitionService) OpenRound(competitionID uint, deadline time.Time, fixtures []round.FixtureInput) (*round.Round, error) {
	var rnd *round.Round
	err := s.db.Transaction(func(tx *gorm.DB) error {
		compRepo := NewCompetitionRepository(tx)
		roundSvc := round.NewRoundService(round.NewRoundRepository(tx), team.NewTeamRepository(tx))

		comp, err := compRepo.GetCompetition(competitionID)
		if err != nil {
			return err
		}
		if comp.Status != StatusOpenForEntry && comp.Status != StatusInProgress {
			return ErrCompetitionNotActive
		}

		rnd, err = roundSvc.OpenRound(competitionID, deadline, fixtures)
		if err != nil {
			return err
		}

		if comp.Status == StatusOpenForEntry {
			comp.Status = StatusInProgress
			return compRepo.SaveCompetition(comp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rnd, nil
}

// RoundResolution summarizes what one resolved round did to the competition.
type RoundResolution struct {
	RoundID           uint              `json:"round_id"`
	Survivors         int               `json:"survivors"`
	CompetitionStatus CompetitionStatus `json:"competition_status"`
	RolledOver        bool              `json:"rolled_over"`
	SuccessorID       *uint             `json:"successor_id,omitempty"`
	WinnerEntrantID   *uint             `json:"winner_entrant_id,omitempty"`
}

// AdvanceRound is the single logical writer for a round: it resolves the
// round's fixtures, scores every pick, and applies the elimination rules,
// all inside one transaction, so a partially scored round can never be
// observed. Results are keyed by fixture id.
func (s *CompetitionService) AdvanceRound(roundID uint, results map[uint]round.FixtureResult) (*RoundResolution, error) {
	var resolution *RoundResolution
	err := s.db.Transaction(func(tx *gorm.DB) error {
		compRepo := NewCompetitionRepository(tx)
		roundRepo := round.NewRoundRepository(tx)
		pickRepo := pick.NewPickRepository(tx)
		teamRepo := team.NewTeamRepository(tx)

		rnd, err := roundRepo.GetRoundWithFixtures(roundID)
		if err != nil {
			return err
		}
		comp, err := compRepo.GetCompetition(rnd.CompetitionID)
		if err != nil {
			return err
		}
		if comp.Status != StatusInProgress {
			return ErrCompetitionNotActive
		}

		roundSvc := round.NewRoundService(roundRepo, teamRepo)
		outcomes, err := roundSvc.ResolveRound(roundID, results)
		if err != nil {
			return err
		}

		entrants, err := compRepo.GetEntrantsByCompetition(comp.ID)
		if err != nil {
			return err
		}

		if comp.NoPickPolicy == NoPickAutoPick {
			if err := autoPickMissing(pickRepo, rnd, comp.ID, entrants); err != nil {
				return err
			}
		}

		pickSvc := pick.NewPickService(pickRepo, roundRepo, teamRepo, &entrantGate{repo: compRepo})
		events, err := pickSvc.ApplyRoundResult(roundID, outcomes)
		if err != nil {
			return err
		}

		preRound := make(map[uint]EntrantStatus, len(entrants))
		activeBefore := 0
		for _, e := range entrants {
			preRound[e.ID] = e.Status
			if e.Active() {
				activeBefore++
			}
		}

		reck := ReckonRound(entrants, events, comp.DrawEliminates)
		for i := range entrants {
			next, ok := reck.NextStatus[entrants[i].ID]
			if !ok || entrants[i].Status == next {
				continue
			}
			entrants[i].Status = next
			if err := compRepo.SaveEntrant(&entrants[i]); err != nil {
				return err
			}
		}

		resolution = &RoundResolution{
			RoundID:           roundID,
			Survivors:         reck.Survivors,
			CompetitionStatus: comp.Status,
		}

		switch {
		case reck.Survivors == 0 && activeBefore > 0:
			// Everyone went out together: the round's eliminations are rolled
			// back exactly and the pot carries into a fresh competition.
			for i := range entrants {
				if entrants[i].Status == preRound[entrants[i].ID] {
					continue
				}
				entrants[i].Status = preRound[entrants[i].ID]
				if err := compRepo.SaveEntrant(&entrants[i]); err != nil {
					return err
				}
			}
			successor, err := rolloverCompetition(compRepo, comp, entrants)
			if err != nil {
				return err
			}
			resolution.RolledOver = true
			resolution.SuccessorID = &successor.ID
			resolution.CompetitionStatus = StatusRolledOver
			resolution.Survivors = activeBefore
		case reck.Survivors == 1:
			remaining, err := roundRepo.CountOpenOrLockedRounds(comp.ID)
			if err != nil {
				return err
			}
			if remaining == 0 {
				var winnerID uint
				for id, status := range reck.NextStatus {
					if status != StatusEntrantEliminated {
						winnerID = id
					}
				}
				comp.Status = StatusResolved
				comp.WinnerEntrantID = &winnerID
				if err := compRepo.SaveCompetition(comp); err != nil {
					return err
				}
				resolution.CompetitionStatus = StatusResolved
				resolution.WinnerEntrantID = &winnerID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolution, nil
}

// autoPickMissing creates a deterministic pick for every active entrant who
// never submitted one: the lowest-id team among the round's fixtures the
// entrant has not yet consumed. Entrants with no unused team left simply get
// no pick and fall to the elimination rules.
func autoPickMissing(pickRepo pick.PickRepository, rnd *round.Round, competitionID uint, entrants []Entrant) error {
	candidates := make([]uint, 0, len(rnd.Fixtures)*2)
	for _, f := range rnd.Fixtures {
		candidates = append(candidates, f.HomeTeamID, f.AwayTeamID)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	for i := range entrants {
		e := &entrants[i]
		if !e.Active() {
			continue
		}
		existing, err := pickRepo.GetPick(e.ID, rnd.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		usedIDs, err := pickRepo.UsedTeamIDs(competitionID, e.ID)
		if err != nil {
			return err
		}
		used := make(map[uint]bool, len(usedIDs))
		for _, id := range usedIDs {
			used[id] = true
		}
		for _, teamID := range candidates {
			if used[teamID] {
				continue
			}
			p := &pick.Pick{
				EntrantID: e.ID,
				RoundID:   rnd.ID,
				TeamID:    teamID,
				Status:    pick.StatusPickLocked,
			}
			if err := pickRepo.UpsertPick(p); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

// rolloverCompetition creates the successor competition carrying the prize
// pot and the incremented rollover counter, and re-enters every entrant who
// was still in the game before the fatal round. Team usage does not carry
// over: the successor is a fresh competition instance.
func rolloverCompetition(repo CompetitionRepository, comp *Competition, entrants []Entrant) (*Competition, error) {
	comp.Status = StatusRolledOver
	if err := repo.SaveCompetition(comp); err != nil {
		return nil, err
	}

	successor := &Competition{
		Name:             comp.Name,
		Status:           StatusOpenForEntry,
		EntryFee:         comp.EntryFee,
		PrizePot:         comp.PrizePot,
		RolloverCount:    comp.RolloverCount + 1,
		NoPickPolicy:     comp.NoPickPolicy,
		DrawEliminates:   comp.DrawEliminates,
		BuyBackEnabled:   comp.BuyBackEnabled,
		BuyBackFee:       comp.BuyBackFee,
		BuyBackStages:    comp.BuyBackStages,
		RolledOverFromID: &comp.ID,
	}
	if err := repo.CreateCompetition(successor); err != nil {
		return nil, err
	}

	for i := range entrants {
		if !entrants[i].Active() {
			continue
		}
		carried := &Entrant{
			CompetitionID: successor.ID,
			UserID:        entrants[i].UserID,
			Status:        StatusEntrantAlive,
		}
		if err := repo.CreateEntrant(carried); err != nil {
			return nil, err
		}
	}
	return successor, nil
}

// OfferBuyBack opens a paid re-entry for an eliminated entrant at a stage the
// competition's policy permits. At most one buy-back per entrant per
// competition. The returned request id keys the external checkout and its
// confirmation webhook.
func (s *CompetitionService) OfferBuyBack(competitionID uint, userID string, stage int) (*BuyBack, error) {
	repo := NewCompetitionRepository(s.db)

	comp, err := repo.GetCompetition(competitionID)
	if err != nil {
		return nil, err
	}
	entrant, err := repo.GetEntrantByUser(competitionID, userID)
	if err != nil {
		return nil, err
	}
	if entrant == nil {
		return nil, ErrUnknownEntrant
	}
	if !comp.BuyBackStageAllowed(stage) {
		return nil, fmt.Errorf("%w: stage %d is not a buy-back stage", ErrBuyBackUnavailable, stage)
	}
	if entrant.Status != StatusEntrantEliminated {
		return nil, fmt.Errorf("%w: only eliminated entrants can buy back", ErrBuyBackUnavailable)
	}
	if entrant.BuyBackUsed {
		return nil, fmt.Errorf("%w: buy-back already exercised", ErrBuyBackUnavailable)
	}
	pending, err := repo.GetPendingBuyBackByEntrant(entrant.ID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		// One offer at a time; the single buy-back per competition must not
		// be purchasable twice through parallel checkouts.
		return nil, fmt.Errorf("%w: a buy-back is already awaiting payment", ErrBuyBackUnavailable)
	}

	b := &BuyBack{
		EntrantID: entrant.ID,
		RequestID: uuid.NewString(),
		Stage:     stage,
		Fee:       comp.BuyBackFee,
		Status:    StatusBuyBackPending,
	}
	if err := repo.CreateBuyBack(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ConfirmBuyBack applies a payment-succeeded webhook. Idempotent per request
// id, forward-only: a confirmed buy-back is never reverted, and a repeated
// delivery changes nothing.
func (s *CompetitionService) ConfirmBuyBack(requestID string) (*BuyBack, error) {
	var confirmed *BuyBack
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := NewCompetitionRepository(tx)

		b, err := repo.GetBuyBackByRequestID(requestID)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrUnknownBuyBack
		}
		if b.Status == StatusBuyBackConfirmed {
			confirmed = b
			return nil
		}

		entrant, err := repo.GetEntrant(b.EntrantID)
		if err != nil {
			return err
		}
		if entrant.BuyBackUsed {
			// A different request already consumed this entrant's one
			// buy-back; the charge is the processor's to refund.
			return fmt.Errorf("%w: buy-back already exercised", ErrBuyBackUnavailable)
		}

		comp, err := repo.GetCompetition(entrant.CompetitionID)
		if err != nil {
			return err
		}
		if comp.Status != StatusInProgress {
			// Late webhook on a finished or rolled-over competition: the
			// standings are settled and must not move.
			return fmt.Errorf("%w: competition is no longer in progress", ErrBuyBackUnavailable)
		}

		if entrant.Status == StatusEntrantEliminated {
			entrant.Status = StatusEntrantBoughtBack
		}
		entrant.BuyBackUsed = true
		if err := repo.SaveEntrant(entrant); err != nil {
			return err
		}

		comp.PrizePot += b.Fee
		if err := repo.SaveCompetition(comp); err != nil {
			return err
		}

		b.Status = StatusBuyBackConfirmed
		if err := repo.SaveBuyBack(b); err != nil {
			return err
		}
		confirmed = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// BuyBackEligibility is the dashboard's read-only answer to "can this user
// buy back right now, and for how much".
type BuyBackEligibility struct {
	Eligible bool    `json:"eligible"`
	Reason   string  `json:"reason,omitempty"`
	Fee      float64 `json:"fee,omitempty"`
}

// CheckBuyBackEligibility reports whether a user could exercise a buy-back at
// the given stage without creating one.
func (s *CompetitionService) CheckBuyBackEligibility(competitionID uint, userID string, stage int) (*BuyBackEligibility, error) {
	repo := NewCompetitionRepository(s.db)

	comp, err := repo.GetCompetition(competitionID)
	if err != nil {
		return nil, err
	}
	entrant, err := repo.GetEntrantByUser(competitionID, userID)
	if err != nil {
		return nil, err
	}
	if entrant == nil {
		return nil, ErrUnknownEntrant
	}

	switch {
	case !comp.BuyBackStageAllowed(stage):
		return &BuyBackEligibility{Eligible: false, Reason: "buy-back is not open at this stage"}, nil
	case entrant.Status != StatusEntrantEliminated:
		return &BuyBackEligibility{Eligible: false, Reason: "only eliminated entrants can buy back"}, nil
	case entrant.BuyBackUsed:
		return &BuyBackEligibility{Eligible: false, Reason: "buy-back already exercised"}, nil
	}
	return &BuyBackEligibility{Eligible: true, Fee: comp.BuyBackFee}, nil
}

// PickView is one pick in the standings projection.
type PickView struct {
	RoundNumber int             `json:"round_number"`
	TeamID      uint            `json:"team_id"`
	Status      pick.PickStatus `json:"status"`
}

// EntrantStanding is one entrant's row in the standings projection.
type EntrantStanding struct {
	EntrantID uint          `json:"entrant_id"`
	UserID    string        `json:"user_id"`
	Status    EntrantStatus `json:"status"`
	Picks     []PickView    `json:"picks"`
}

// Standings is the read-only projection the dashboard renders.
type Standings struct {
	CompetitionID uint              `json:"competition_id"`
	Status        CompetitionStatus `json:"status"`
	PrizePot      float64           `json:"prize_pot"`
	RolloverCount int               `json:"rollover_count"`
	Survivors     int               `json:"survivors"`
	Entrants      []EntrantStanding `json:"entrants"`
}

// GetStandings assembles the standings projection for a competition.
func (s *CompetitionService) GetStandings(competitionID uint) (*Standings, error) {
	repo := NewCompetitionRepository(s.db)
	roundRepo := round.NewRoundRepository(s.db)
	pickRepo := pick.NewPickRepository(s.db)

	comp, err := repo.GetCompetition(competitionID)
	if err != nil {
		return nil, err
	}
	entrants, err := repo.GetEntrantsByCompetition(competitionID)
	if err != nil {
		return nil, err
	}
	rounds, err := roundRepo.GetRoundsByCompetition(competitionID)
	if err != nil {
		return nil, err
	}
	numberByRound := make(map[uint]int, len(rounds))
	for _, r := range rounds {
		numberByRound[r.ID] = r.Number
	}

	standings := &Standings{
		CompetitionID: comp.ID,
		Status:        comp.Status,
		PrizePot:      comp.PrizePot,
		RolloverCount: comp.RolloverCount,
	}
	for _, e := range entrants {
		picks, err := pickRepo.GetPicksByEntrant(e.ID)
		if err != nil {
			return nil, err
		}
		row := EntrantStanding{
			EntrantID: e.ID,
			UserID:    e.UserID,
			Status:    e.Status,
		}
		for _, p := range picks {
			row.Picks = append(row.Picks, PickView{
				RoundNumber: numberByRound[p.RoundID],
				TeamID:      p.TeamID,
				Status:      p.Status,
			})
		}
		if e.Active() {
			standings.Survivors++
		}
		standings.Entrants = append(standings.Entrants, row)
	}
	return standings, nil
}
