package competition

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lastmanfc/lastman-backend/internal/pick"
	"github.com/lastmanfc/lastman-backend/internal/round"
	"github.com/lastmanfc/lastman-backend/internal/team"
)

type compFixture struct {
	db       *gorm.DB
	svc      *CompetitionService
	roundSvc *round.RoundService
	pickSvc  *pick.PickService
	teams    []team.Team
}

func newCompFixture(t *testing.T) *compFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&team.Team{}, &Competition{}, &Entrant{}, &BuyBack{},
		&round.Round{}, &round.Fixture{}, &pick.Pick{},
	))

	teamRepo := team.NewTeamRepository(db)
	teams := make([]team.Team, 4)
	for i := range teams {
		teams[i] = team.Team{
			Name:       fmt.Sprintf("Club %c", 'A'+i),
			ExternalID: fmt.Sprintf("ext-%d", i+1),
		}
		require.NoError(t, teamRepo.RegisterTeam(&teams[i]))
	}

	roundRepo := round.NewRoundRepository(db)
	return &compFixture{
		db:       db,
		svc:      NewCompetitionService(db),
		roundSvc: round.NewRoundService(roundRepo, teamRepo),
		pickSvc:  pick.NewPickService(pick.NewPickRepository(db), roundRepo, teamRepo, NewEntrantGate(NewCompetitionRepository(db))),
		teams:    teams,
	}
}

func (f *compFixture) createCompetition(t *testing.T, mutate func(*Competition)) *Competition {
	t.Helper()
	comp := &Competition{
		Name:           "Last Man Standing",
		EntryFee:       10,
		NoPickPolicy:   NoPickEliminate,
		DrawEliminates: true,
	}
	if mutate != nil {
		mutate(comp)
	}
	require.NoError(t, f.svc.CreateCompetition(comp))
	return comp
}

func (f *compFixture) join(t *testing.T, compID uint, userID string) *Entrant {
	t.Helper()
	e, err := f.svc.JoinCompetition(compID, userID)
	require.NoError(t, err)
	return e
}

// openRound opens the competition's next round with fixtures A-B and C-D.
func (f *compFixture) openRound(t *testing.T, compID uint, deadline time.Time) *round.Round {
	t.Helper()
	rnd, err := f.svc.OpenRound(compID, deadline, []round.FixtureInput{
		{HomeTeamID: f.teams[0].ID, AwayTeamID: f.teams[1].ID},
		{HomeTeamID: f.teams[2].ID, AwayTeamID: f.teams[3].ID},
	})
	require.NoError(t, err)
	return rnd
}

func (f *compFixture) submit(t *testing.T, entrantID uint, rnd *round.Round, teamID uint) {
	t.Helper()
	_, err := f.pickSvc.SubmitPick(rnd.CompetitionID, entrantID, rnd.ID, teamID, rnd.Deadline.Add(-time.Minute))
	require.NoError(t, err)
}

func (f *compFixture) lock(t *testing.T, rnd *round.Round) {
	t.Helper()
	_, err := f.roundSvc.LockRound(rnd.ID, rnd.Deadline)
	require.NoError(t, err)
}

func (f *compFixture) entrantStatus(t *testing.T, entrantID uint) EntrantStatus {
	t.Helper()
	e, err := NewCompetitionRepository(f.db).GetEntrant(entrantID)
	require.NoError(t, err)
	return e.Status
}

func TestJoinCompetition(t *testing.T) {
	f := newCompFixture(t)
	comp := f.createCompetition(t, nil)

	f.join(t, comp.ID, "user-1")
	f.join(t, comp.ID, "user-2")

	_, err := f.svc.JoinCompetition(comp.ID, "user-1")
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	stored, err := NewCompetitionRepository(f.db).GetCompetition(comp.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(20), stored.PrizePot)

	// Entry stays open while round 1 is still open, and closes when it locks.
	rnd := f.openRound(t, comp.ID, time.Now().Add(time.Hour))
	f.join(t, comp.ID, "user-3")
	f.lock(t, rnd)
	_, err = f.svc.JoinCompetition(comp.ID, "user-4")
	assert.ErrorIs(t, err, ErrEntryClosed)
}

func TestAdvanceRoundEliminations(t *testing.T) {
	f := newCompFixture(t)
	comp := f.createCompetition(t, nil)
	e1 := f.join(t, comp.ID, "user-1")
	e2 := f.join(t, comp.ID, "user-2")
	e3 := f.join(t, comp.ID, "user-3")
	e4 := f.join(t, comp.ID, "user-4") // never picks

	deadline := time.Now().Add(time.Hour)
	r1 := f.openRound(t, comp.ID, deadline)
	r2 := f.openRound(t, comp.ID, deadline.Add(7*24*time.Hour))

	f.submit(t, e1.ID, r1, f.teams[0].ID) // Club A, wins
	f.submit(t, e2.ID, r1, f.teams[1].ID) // Club B, loses
	f.submit(t, e3.ID, r1, f.teams[2].ID) // Club C, draws
	f.lock(t, r1)

	res, err := f.svc.AdvanceRound(r1.ID, map[uint]round.FixtureResult{
		r1.Fixtures[0].ID: round.ResultHomeWin,
		r1.Fixtures[1].ID: round.ResultDraw,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Survivors)
	assert.Equal(t, StatusInProgress, res.CompetitionStatus) // round 2 still to play
	assert.False(t, res.RolledOver)
	assert.Nil(t, res.WinnerEntrantID)

	assert.Equal(t, StatusEntrantAlive, f.entrantStatus(t, e1.ID))
	assert.Equal(t, StatusEntrantEliminated, f.entrantStatus(t, e2.ID))
	assert.Equal(t, StatusEntrantEliminated, f.entrantStatus(t, e3.ID))
	assert.Equal(t, StatusEntrantEliminated, f.entrantStatus(t, e4.ID))

	// A second resolution attempt is refused.
	_, err = f.svc.AdvanceRound(r1.ID, nil)
	assert.ErrorIs(t, err, round.ErrRoundAlreadyResolved)

	// Round 2 is untouched by round 1's resolution.
	stored, err := round.NewRoundRepository(f.db).GetRound(r2.ID)
	require.NoError(t, err)
	assert.Equal(t, round.StatusRoundOpen, stored.Status)
}

func TestAdvanceRoundDeclaresWinner(t *testing.T) {
	f := newCompFixture(t)
	comp := f.createCompetition(t, nil)
	e1 := f.join(t, comp.ID, "user-1")
	e2 := f.join(t, comp.ID, "user-2")

	r1 := f.openRound(t, comp.ID, time.Now().Add(time.Hour))
	f.submit(t, e1.ID, r1, f.teams[0].ID)
	f.submit(t, e2.ID, r1, f.teams[1].ID)
	f.lock(t, r1)

	res, err := f.svc.AdvanceRound(r1.ID, map[uint]round.FixtureResult{
		r1.Fixtures[0].ID: round.ResultHomeWin,
		r1.Fixtures[1].ID: round.ResultVoid,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Survivors)
	assert.Equal(t, StatusResolved, res.CompetitionStatus)
	require.NotNil(t, res.WinnerEntrantID)
	assert.Equal(t, e1.ID, *res.WinnerEntrantID)

	stored, err := NewCompetitionRepository(f.db).GetCompetition(comp.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, stored.Status)
	require.NotNil(t, stored.WinnerEntrantID)
	assert.Equal(t, e1.ID, *stored.WinnerEntrantID)
}

func TestAdvanceRoundRollsOver(t *testing.T) {
	f := newCompFixture(t)
	comp := f.createCompetition(t, nil)
	e1 := f.join(t, comp.ID, "user-1")
	e2 := f.join(t, comp.ID, "user-2")
	e3 := f.join(t, comp.ID, "user-3")

	deadline := time.Now().Add(time.Hour)
	r1 := f.openRound(t, comp.ID, deadline)
	r2 := f.openRound(t, comp.ID, deadline.Add(7*24*time.Hour))

	// Round 1 knocks out user-3 only.
	f.submit(t, e1.ID, r1, f.teams[0].ID) // Club A, wins
	f.submit(t, e2.ID, r1, f.teams[2].ID) // Club C, wins
	f.submit(t, e3.ID, r1, f.teams[1].ID) // Club B, loses
	f.lock(t, r1)
	_, err := f.svc.AdvanceRound(r1.ID, map[uint]round.FixtureResult{
		r1.Fixtures[0].ID: round.ResultHomeWin,
		r1.Fixtures[1].ID: round.ResultHomeWin,
	})
	require.NoError(t, err)
	require.Equal(t, StatusEntrantEliminated, f.entrantStatus(t, e3.ID))

	// Round 2 knocks out everyone who was left.
	f.submit(t, e1.ID, r2, f.teams[2].ID) // Club C, loses
	f.submit(t, e2.ID, r2, f.teams[0].ID) // Club A, loses
	f.lock(t, r2)
	res, err := f.svc.AdvanceRound(r2.ID, map[uint]round.FixtureResult{
		r2.Fixtures[0].ID: round.ResultAwayWin,
		r2.Fixtures[1].ID: round.ResultAwayWin,
	})
	require.NoError(t, err)

	assert.True(t, res.RolledOver)
	assert.Equal(t, StatusRolledOver, res.CompetitionStatus)
	assert.Equal(t, 2, res.Survivors)
	require.NotNil(t, res.SuccessorID)

	// The fatal round's eliminations are rolled back exactly: earlier
	// eliminations stand.
	assert.Equal(t, StatusEntrantAlive, f.entrantStatus(t, e1.ID))
	assert.Equal(t, StatusEntrantAlive, f.entrantStatus(t, e2.ID))
	assert.Equal(t, StatusEntrantEliminated, f.entrantStatus(t, e3.ID))

	repo := NewCompetitionRepository(f.db)
	successor, err := repo.GetCompetition(*res.SuccessorID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpenForEntry, successor.Status)
	assert.Equal(t, 1, successor.RolloverCount)
	assert.Equal(t, float64(30), successor.PrizePot) // pot carries over intact
	require.NotNil(t, successor.RolledOverFromID)
	assert.Equal(t, comp.ID, *successor.RolledOverFromID)

	carried, err := repo.GetEntrantsByCompetition(successor.ID)
	require.NoError(t, err)
	require.Len(t, carried, 2)
	for _, e := range carried {
		assert.Equal(t, StatusEntrantAlive, e.Status)
		assert.NotEqual(t, "user-3", e.UserID)
	}
}

func TestAdvanceRoundAutoPick(t *testing.T) {
	f := newCompFixture(t)
	comp := f.createCompetition(t, func(c *Competition) {
		c.NoPickPolicy = NoPickAutoPick
	})
	e1 := f.join(t, comp.ID, "user-1")
	e2 := f.join(t, comp.ID, "user-2") // never picks

	deadline := time.Now().Add(time.Hour)
	r1 := f.openRound(t, comp.ID, deadline)
	f.openRound(t, comp.ID, deadline.Add(7*24*time.Hour))

	f.submit(t, e1.ID, r1, f.teams[2].ID)
	f.lock(t, r1)

	res, err := f.svc.AdvanceRound(r1.ID, map[uint]round.FixtureResult{
		r1.Fixtures[0].ID: round.ResultHomeWin,
		r1.Fixtures[1].ID: round.ResultHomeWin,
	})
	require.NoError(t, err)

	// user-2 was defaulted to the lowest-id team in the round (Club A), which
	// won, so both entrants survive.
	assert.Equal(t, 2, res.Survivors)
	assert.Equal(t, StatusEntrantAlive, f.entrantStatus(t, e2.ID))

	auto, err := pick.NewPickRepository(f.db).GetPick(e2.ID, r1.ID)
	require.NoError(t, err)
	require.NotNil(t, auto)
	assert.Equal(t, f.teams[0].ID, auto.TeamID)
	assert.Equal(t, pick.StatusPickWin, auto.Status)
}

func TestBuyBackLifecycle(t *testing.T) {
	f := newCompFixture(t)
	comp := f.createCompetition(t, func(c *Competition) {
		c.BuyBackEnabled = true
		c.BuyBackFee = 5
		c.BuyBackStages = "1,2"
	})
	e1 := f.join(t, comp.ID, "user-1")
	e2 := f.join(t, comp.ID, "user-2")

	deadline := time.Now().Add(time.Hour)
	r1 := f.openRound(t, comp.ID, deadline)
	f.openRound(t, comp.ID, deadline.Add(7*24*time.Hour))

	f.submit(t, e1.ID, r1, f.teams[0].ID)
	f.submit(t, e2.ID, r1, f.teams[1].ID)
	f.lock(t, r1)
	_, err := f.svc.AdvanceRound(r1.ID, map[uint]round.FixtureResult{
		r1.Fixtures[0].ID: round.ResultHomeWin,
		r1.Fixtures[1].ID: round.ResultVoid,
	})
	require.NoError(t, err)
	require.Equal(t, StatusEntrantEliminated, f.entrantStatus(t, e2.ID))

	// A surviving entrant cannot buy back.
	_, err = f.svc.OfferBuyBack(comp.ID, "user-1", 1)
	assert.ErrorIs(t, err, ErrBuyBackUnavailable)

	// Stage must be in the policy.
	_, err = f.svc.OfferBuyBack(comp.ID, "user-2", 3)
	assert.ErrorIs(t, err, ErrBuyBackUnavailable)

	elig, err := f.svc.CheckBuyBackEligibility(comp.ID, "user-2", 1)
	require.NoError(t, err)
	assert.True(t, elig.Eligible)
	assert.Equal(t, float64(5), elig.Fee)

	offer, err := f.svc.OfferBuyBack(comp.ID, "user-2", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, offer.RequestID)
	assert.Equal(t, StatusBuyBackPending, offer.Status)

	// The entrant is not back until the payment webhook lands.
	assert.Equal(t, StatusEntrantEliminated, f.entrantStatus(t, e2.ID))

	_, err = f.svc.ConfirmBuyBack("no-such-request")
	assert.ErrorIs(t, err, ErrUnknownBuyBack)

	confirmed, err := f.svc.ConfirmBuyBack(offer.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusBuyBackConfirmed, confirmed.Status)
	assert.Equal(t, StatusEntrantBoughtBack, f.entrantStatus(t, e2.ID))

	stored, err := NewCompetitionRepository(f.db).GetCompetition(comp.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(25), stored.PrizePot) // two entries plus the fee

	// Webhook retries change nothing.
	_, err = f.svc.ConfirmBuyBack(offer.RequestID)
	require.NoError(t, err)
	stored, err = NewCompetitionRepository(f.db).GetCompetition(comp.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(25), stored.PrizePot)

	// One buy-back per entrant per competition.
	_, err = f.svc.OfferBuyBack(comp.ID, "user-2", 2)
	assert.ErrorIs(t, err, ErrBuyBackUnavailable)
}

func TestBuyBackIsSingleUse(t *testing.T) {
	f := newCompFixture(t)
	comp := f.createCompetition(t, func(c *Competition) {
		c.BuyBackEnabled = true
		c.BuyBackFee = 5
		c.BuyBackStages = "1,2"
	})
	e1 := f.join(t, comp.ID, "user-1")
	e2 := f.join(t, comp.ID, "user-2")

	deadline := time.Now().Add(time.Hour)
	r1 := f.openRound(t, comp.ID, deadline)
	f.openRound(t, comp.ID, deadline.Add(7*24*time.Hour))

	f.submit(t, e1.ID, r1, f.teams[0].ID)
	f.submit(t, e2.ID, r1, f.teams[1].ID)
	f.lock(t, r1)
	_, err := f.svc.AdvanceRound(r1.ID, map[uint]round.FixtureResult{
		r1.Fixtures[0].ID: round.ResultHomeWin,
		r1.Fixtures[1].ID: round.ResultVoid,
	})
	require.NoError(t, err)
	require.Equal(t, StatusEntrantEliminated, f.entrantStatus(t, e2.ID))

	first, err := f.svc.OfferBuyBack(comp.ID, "user-2", 1)
	require.NoError(t, err)

	// A second offer cannot be opened while one is awaiting payment.
	_, err = f.svc.OfferBuyBack(comp.ID, "user-2", 2)
	assert.ErrorIs(t, err, ErrBuyBackUnavailable)

	// Even with two pending requests on record, only one confirmation lands
	// and the fee joins the pot exactly once.
	repo := NewCompetitionRepository(f.db)
	second := &BuyBack{
		EntrantID: e2.ID,
		RequestID: "duplicate-checkout",
		Stage:     2,
		Fee:       5,
		Status:    StatusBuyBackPending,
	}
	require.NoError(t, repo.CreateBuyBack(second))

	_, err = f.svc.ConfirmBuyBack(first.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusEntrantBoughtBack, f.entrantStatus(t, e2.ID))

	_, err = f.svc.ConfirmBuyBack(second.RequestID)
	assert.ErrorIs(t, err, ErrBuyBackUnavailable)

	stored, err := repo.GetCompetition(comp.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(25), stored.PrizePot)
}

func TestConfirmBuyBackAfterCompetitionEnds(t *testing.T) {
	f := newCompFixture(t)
	comp := f.createCompetition(t, func(c *Competition) {
		c.BuyBackEnabled = true
		c.BuyBackFee = 5
		c.BuyBackStages = "1"
	})
	e1 := f.join(t, comp.ID, "user-1")
	e2 := f.join(t, comp.ID, "user-2")

	deadline := time.Now().Add(time.Hour)
	r1 := f.openRound(t, comp.ID, deadline)
	r2 := f.openRound(t, comp.ID, deadline.Add(7*24*time.Hour))

	f.submit(t, e1.ID, r1, f.teams[0].ID)
	f.submit(t, e2.ID, r1, f.teams[1].ID)
	f.lock(t, r1)
	_, err := f.svc.AdvanceRound(r1.ID, map[uint]round.FixtureResult{
		r1.Fixtures[0].ID: round.ResultHomeWin,
		r1.Fixtures[1].ID: round.ResultVoid,
	})
	require.NoError(t, err)

	offer, err := f.svc.OfferBuyBack(comp.ID, "user-2", 1)
	require.NoError(t, err)

	// The competition finishes before the payment webhook arrives.
	f.submit(t, e1.ID, r2, f.teams[2].ID)
	f.lock(t, r2)
	res, err := f.svc.AdvanceRound(r2.ID, map[uint]round.FixtureResult{
		r2.Fixtures[0].ID: round.ResultVoid,
		r2.Fixtures[1].ID: round.ResultHomeWin,
	})
	require.NoError(t, err)
	require.Equal(t, StatusResolved, res.CompetitionStatus)

	_, err = f.svc.ConfirmBuyBack(offer.RequestID)
	assert.ErrorIs(t, err, ErrBuyBackUnavailable)

	// Settled standings do not move.
	assert.Equal(t, StatusEntrantEliminated, f.entrantStatus(t, e2.ID))
	stored, err := NewCompetitionRepository(f.db).GetCompetition(comp.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(20), stored.PrizePot)
}

func TestGetStandings(t *testing.T) {
	f := newCompFixture(t)
	comp := f.createCompetition(t, nil)
	e1 := f.join(t, comp.ID, "user-1")
	e2 := f.join(t, comp.ID, "user-2")

	deadline := time.Now().Add(time.Hour)
	r1 := f.openRound(t, comp.ID, deadline)
	f.openRound(t, comp.ID, deadline.Add(7*24*time.Hour))

	f.submit(t, e1.ID, r1, f.teams[0].ID)
	f.submit(t, e2.ID, r1, f.teams[1].ID)
	f.lock(t, r1)
	_, err := f.svc.AdvanceRound(r1.ID, map[uint]round.FixtureResult{
		r1.Fixtures[0].ID: round.ResultHomeWin,
		r1.Fixtures[1].ID: round.ResultVoid,
	})
	require.NoError(t, err)

	standings, err := f.svc.GetStandings(comp.ID)
	require.NoError(t, err)

	assert.Equal(t, comp.ID, standings.CompetitionID)
	assert.Equal(t, StatusInProgress, standings.Status)
	assert.Equal(t, float64(20), standings.PrizePot)
	assert.Equal(t, 1, standings.Survivors)
	require.Len(t, standings.Entrants, 2)

	byUser := make(map[string]EntrantStanding, len(standings.Entrants))
	for _, row := range standings.Entrants {
		byUser[row.UserID] = row
	}
	winner := byUser["user-1"]
	assert.Equal(t, StatusEntrantAlive, winner.Status)
	require.Len(t, winner.Picks, 1)
	assert.Equal(t, 1, winner.Picks[0].RoundNumber)
	assert.Equal(t, f.teams[0].ID, winner.Picks[0].TeamID)
	assert.Equal(t, pick.StatusPickWin, winner.Picks[0].Status)

	loser := byUser["user-2"]
	assert.Equal(t, StatusEntrantEliminated, loser.Status)
	require.Len(t, loser.Picks, 1)
	assert.Equal(t, pick.StatusPickLoss, loser.Picks[0].Status)
}
