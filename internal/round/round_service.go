package round

import (
	"errors"
	"fmt"
	"time"

	"github.com/lastmanfc/lastman-backend/internal/team"
)

var (
	// ErrInvalidSchedule is returned when a new round's deadline or fixture
	// list conflicts with the competition's existing schedule.
	ErrInvalidSchedule = errors.New("invalid round schedule")
	// ErrRoundNotOpen is returned when a lock is attempted on a resolved round.
	ErrRoundNotOpen = errors.New("round is not open")
	// ErrRoundNotLocked is returned when resolution is attempted before the
	// round has locked.
	ErrRoundNotLocked = errors.New("round is not locked")
	// ErrRoundAlreadyResolved is returned on a second resolution attempt.
	ErrRoundAlreadyResolved = errors.New("round is already resolved")
	// ErrIncompleteFixtures is returned when a resolution is attempted while
	// any fixture still lacks a terminal result.
	ErrIncompleteFixtures = errors.New("not every fixture has a terminal result")
)

// FixtureInput describes one fixture of a round being opened.
type FixtureInput struct {
	HomeTeamID uint `json:"home_team_id" binding:"required"`
	AwayTeamID uint `json:"away_team_id" binding:"required"`
}

// RoundService owns round sequencing, deadlines and lock transitions.
type RoundService struct {
	repo     RoundRepository
	teamRepo team.TeamRepository
}

// NewRoundService creates a new round service. Pass repositories bound to a
// transaction to run its operations atomically with other work.
func NewRoundService(repo RoundRepository, teamRepo team.TeamRepository) *RoundService {
	return &RoundService{repo: repo, teamRepo: teamRepo}
}

// ValidateSchedule checks a prospective round against the previous one:
// the deadline must be strictly after the previous round's deadline and no
// team may appear in more than one fixture.
func ValidateSchedule(prev *Round, deadline time.Time, fixtures []FixtureInput) error {
	if len(fixtures) == 0 {
		return fmt.Errorf("%w: a round needs at least one fixture", ErrInvalidSchedule)
	}
	if prev != nil && !deadline.After(prev.Deadline) {
		return fmt.Errorf("%w: deadline must be after round %d's deadline", ErrInvalidSchedule, prev.Number)
	}
	seen := make(map[uint]bool)
	for _, f := range fixtures {
		if f.HomeTeamID == f.AwayTeamID {
			return fmt.Errorf("%w: a team cannot play itself", ErrInvalidSchedule)
		}
		if seen[f.HomeTeamID] || seen[f.AwayTeamID] {
			return fmt.Errorf("%w: a team appears in more than one fixture", ErrInvalidSchedule)
		}
		seen[f.HomeTeamID] = true
		seen[f.AwayTeamID] = true
	}
	return nil
}

// OpenRound creates the competition's next round with the given deadline and
// fixtures. The new round's number is the previous round's number plus one.
func (s *RoundService) OpenRound(competitionID uint, deadline time.Time, fixtures []FixtureInput) (*Round, error) {
	prev, err := s.repo.GetLatestRound(competitionID)
	if err != nil {
		return nil, err
	}
	if err := ValidateSchedule(prev, deadline, fixtures); err != nil {
		return nil, err
	}
	for _, f := range fixtures {
		if _, err := s.teamRepo.ResolveTeam(f.HomeTeamID); err != nil {
			return nil, err
		}
		if _, err := s.teamRepo.ResolveTeam(f.AwayTeamID); err != nil {
			return nil, err
		}
	}

	number := 1
	if prev != nil {
		number = prev.Number + 1
	}

	rnd := &Round{
		CompetitionID: competitionID,
		Number:        number,
		Deadline:      deadline,
		Status:        StatusRoundOpen,
	}
	for _, f := range fixtures {
		rnd.Fixtures = append(rnd.Fixtures, Fixture{
			HomeTeamID: f.HomeTeamID,
			AwayTeamID: f.AwayTeamID,
			Result:     ResultPending,
		})
	}
	if err := s.repo.CreateRound(rnd); err != nil {
		return nil, err
	}
	return rnd, nil
}

// LockRound transitions open -> locked once the deadline has passed. It is
// idempotent when the round is already locked, so redundant timers are safe.
func (s *RoundService) LockRound(roundID uint, now time.Time) (*Round, error) {
	return s.lock(roundID, now, false)
}

// ForceLock locks an open round regardless of its deadline. Administrative
// surface for abuse/ops cases.
func (s *RoundService) ForceLock(roundID uint) (*Round, error) {
	return s.lock(roundID, time.Time{}, true)
}

func (s *RoundService) lock(roundID uint, now time.Time, force bool) (*Round, error) {
	rnd, err := s.repo.GetRound(roundID)
	if err != nil {
		return nil, err
	}
	switch rnd.Status {
	case StatusRoundLocked:
		return rnd, nil
	case StatusRoundResolved:
		return nil, ErrRoundNotOpen
	}
	if !force && now.Before(rnd.Deadline) {
		return nil, fmt.Errorf("%w: deadline has not passed", ErrRoundNotOpen)
	}
	rnd.Status = StatusRoundLocked
	if err := s.repo.SaveRound(rnd); err != nil {
		return nil, err
	}
	return rnd, nil
}

// LockDueRounds locks every open round whose deadline has passed and returns
// the rounds it locked. Invoked by the scheduler's lock sweep.
func (s *RoundService) LockDueRounds(now time.Time) ([]Round, error) {
	due, err := s.repo.GetDueOpenRounds(now)
	if err != nil {
		return nil, err
	}
	var locked []Round
	for i := range due {
		due[i].Status = StatusRoundLocked
		if err := s.repo.SaveRound(&due[i]); err != nil {
			return locked, err
		}
		locked = append(locked, due[i])
	}
	return locked, nil
}

// ResolveRound transitions locked -> resolved once every fixture has a
// terminal result and returns each team's outcome. Results are keyed by
// fixture id; fixtures omitted from the map keep their stored result.
func (s *RoundService) ResolveRound(roundID uint, results map[uint]FixtureResult) (OutcomeByTeam, error) {
	rnd, err := s.repo.GetRoundWithFixtures(roundID)
	if err != nil {
		return nil, err
	}
	switch rnd.Status {
	case StatusRoundOpen:
		return nil, ErrRoundNotLocked
	case StatusRoundResolved:
		return nil, ErrRoundAlreadyResolved
	}

	outcomes := make(OutcomeByTeam)
	for i := range rnd.Fixtures {
		f := &rnd.Fixtures[i]
		if result, ok := results[f.ID]; ok {
			if !result.Terminal() {
				return nil, fmt.Errorf("%w: fixture result %q is not terminal", ErrIncompleteFixtures, result)
			}
			f.Result = result
		}
		if !f.Result.Terminal() {
			return nil, ErrIncompleteFixtures
		}
		for teamID, outcome := range f.Outcomes() {
			outcomes[teamID] = outcome
		}
	}

	for i := range rnd.Fixtures {
		if err := s.repo.SaveFixture(&rnd.Fixtures[i]); err != nil {
			return nil, err
		}
	}
	rnd.Status = StatusRoundResolved
	if err := s.repo.SaveRound(rnd); err != nil {
		return nil, err
	}
	return outcomes, nil
}
