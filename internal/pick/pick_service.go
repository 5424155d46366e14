package pick

import (
	"errors"
	"time"

	"github.com/lastmanfc/lastman-backend/internal/round"
	"github.com/lastmanfc/lastman-backend/internal/team"
)

var (
	// ErrRoundClosed is returned when a pick is submitted at or after the
	// round's deadline, or once the round has left the open state.
	ErrRoundClosed = errors.New("round is closed for picks")
	// ErrTeamAlreadyUsed is returned when an entrant re-picks a team they
	// already consumed in this competition.
	ErrTeamAlreadyUsed = errors.New("team already used in this competition")
	// ErrEntrantNotEligible is returned when an eliminated entrant without a
	// confirmed buy-back submits a pick.
	ErrEntrantNotEligible = errors.New("entrant is not eligible to pick")
	// ErrTeamNotPlaying is returned when the picked team has no fixture in
	// the round.
	ErrTeamNotPlaying = errors.New("team has no fixture in this round")
)

// EntrantGate answers whether an entrant may still submit picks. Implemented
// by the competition package; kept as an interface so the ledger stays
// decoupled from entrant bookkeeping.
type EntrantGate interface {
	Eligible(entrantID uint) (bool, error)
}

// PickService records picks and scores them once results are known.
type PickService struct {
	repo      PickRepository
	roundRepo round.RoundRepository
	teamRepo  team.TeamRepository
	gate      EntrantGate
}

// NewPickService creates a new pick service.
func NewPickService(repo PickRepository, roundRepo round.RoundRepository, teamRepo team.TeamRepository, gate EntrantGate) *PickService {
	return &PickService{repo: repo, roundRepo: roundRepo, teamRepo: teamRepo, gate: gate}
}

// SubmitPick records an entrant's selection for a round of their competition.
// Resubmission before the deadline overwrites the previous selection (last
// writer wins); at or after the deadline nothing is created or modified. The
// deadline itself is checked against `now`, so a pick can never slip in
// between deadline expiry and the scheduled lock sweep.
func (s *PickService) SubmitPick(competitionID, entrantID, roundID, teamID uint, now time.Time) (*Pick, error) {
	rnd, err := s.roundRepo.GetRoundWithFixtures(roundID)
	if err != nil {
		return nil, err
	}
	if rnd.CompetitionID != competitionID {
		// Rounds of other competitions do not exist as far as this entrant
		// is concerned.
		return nil, round.ErrUnknownRound
	}
	if rnd.Status != round.StatusRoundOpen || !now.Before(rnd.Deadline) {
		return nil, ErrRoundClosed
	}

	eligible, err := s.gate.Eligible(entrantID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, ErrEntrantNotEligible
	}

	if _, err := s.teamRepo.ResolveTeam(teamID); err != nil {
		return nil, err
	}
	playing := false
	for _, f := range rnd.Fixtures {
		if f.HomeTeamID == teamID || f.AwayTeamID == teamID {
			playing = true
			break
		}
	}
	if !playing {
		return nil, ErrTeamNotPlaying
	}

	used, err := s.repo.CountTeamUsage(rnd.CompetitionID, entrantID, teamID)
	if err != nil {
		return nil, err
	}
	if used > 0 {
		// Re-picking the same team for the same round is a harmless resubmit.
		existing, err := s.repo.GetPick(entrantID, roundID)
		if err != nil {
			return nil, err
		}
		if existing == nil || existing.TeamID != teamID {
			return nil, ErrTeamAlreadyUsed
		}
	}

	p := &Pick{
		EntrantID: entrantID,
		RoundID:   roundID,
		TeamID:    teamID,
		Status:    StatusPickPending,
	}
	if err := s.repo.UpsertPick(p); err != nil {
		return nil, err
	}
	return p, nil
}

// LockPicks transitions a round's pending picks to locked. Invoked alongside
// the round lock; idempotent.
func (s *PickService) LockPicks(roundID uint) error {
	picks, err := s.repo.GetPicksByRound(roundID)
	if err != nil {
		return err
	}
	for i := range picks {
		if picks[i].Status != StatusPickPending {
			continue
		}
		picks[i].Status = StatusPickLocked
		if err := s.repo.SavePick(&picks[i]); err != nil {
			return err
		}
	}
	return nil
}

// ApplyRoundResult maps every pick of a resolved round to its terminal status
// and emits one event per pick for the elimination engine. Picks that are
// already terminal are left untouched, which makes the operation idempotent.
func (s *PickService) ApplyRoundResult(roundID uint, outcomes round.OutcomeByTeam) ([]PickEvent, error) {
	picks, err := s.repo.GetPicksByRound(roundID)
	if err != nil {
		return nil, err
	}

	events := make([]PickEvent, 0, len(picks))
	for i := range picks {
		p := &picks[i]
		if !p.Status.Terminal() {
			outcome, ok := outcomes[p.TeamID]
			if !ok {
				// Fixture disappeared from the round; does not count against
				// the entrant.
				outcome = round.OutcomeVoid
			}
			p.Status = StatusForOutcome(outcome)
			if err := s.repo.SavePick(p); err != nil {
				return nil, err
			}
		}
		events = append(events, PickEvent{EntrantID: p.EntrantID, Status: p.Status})
	}
	return events, nil
}
