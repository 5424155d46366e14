package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"github.com/lastmanfc/lastman-backend/config"
	"github.com/lastmanfc/lastman-backend/internal/competition"
	"github.com/lastmanfc/lastman-backend/internal/feed"
	"github.com/lastmanfc/lastman-backend/internal/pick"
	"github.com/lastmanfc/lastman-backend/internal/round"
	"github.com/lastmanfc/lastman-backend/internal/team"
)

// Scheduler runs the two periodic jobs of the engine: the deadline lock
// sweep and the results-feed poll. Both are idempotent, so overlapping or
// redundant ticks are safe.
type Scheduler struct {
	db   *gorm.DB
	cfg  *config.Config
	feed feed.Client
}

// New creates a scheduler. Pass a nil feed client to disable the poll job
// (results then arrive only through the admin resolve endpoint).
func New(db *gorm.DB, cfg *config.Config, feedClient feed.Client) *Scheduler {
	return &Scheduler{db: db, cfg: cfg, feed: feedClient}
}

// Start registers and starts the periodic jobs. The returned gocron scheduler
// can be shut down by the caller.
func (s *Scheduler) Start() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(s.cfg.Engine.LockSweepInterval),
		gocron.NewTask(s.lockSweep),
	); err != nil {
		return nil, err
	}

	if s.feed != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(s.cfg.Engine.FeedPollInterval),
			gocron.NewTask(s.pollResults),
		); err != nil {
			return nil, err
		}
	}

	sched.Start()
	return sched, nil
}

// lockSweep locks every open round whose deadline has passed and locks the
// pending picks with it.
func (s *Scheduler) lockSweep() {
	roundRepo := round.NewRoundRepository(s.db)
	roundSvc := round.NewRoundService(roundRepo, team.NewTeamRepository(s.db))

	locked, err := roundSvc.LockDueRounds(time.Now())
	if err != nil {
		log.Printf("[scheduler] lock sweep failed: %v", err)
		return
	}
	if len(locked) == 0 {
		return
	}

	pickSvc := pick.NewPickService(
		pick.NewPickRepository(s.db),
		roundRepo,
		team.NewTeamRepository(s.db),
		competition.NewEntrantGate(competition.NewCompetitionRepository(s.db)),
	)
	for _, rnd := range locked {
		if err := pickSvc.LockPicks(rnd.ID); err != nil {
			log.Printf("[scheduler] failed to lock picks for round %d: %v", rnd.ID, err)
			continue
		}
		log.Printf("[scheduler] locked round %d (deadline %s)", rnd.ID, rnd.Deadline.Format(time.RFC3339))
	}
}

// pollResults fetches fixture results for every locked round and advances the
// round once all of its fixtures are terminal. Rounds with missing results
// are deferred to the next tick, never skipped.
func (s *Scheduler) pollResults() {
	roundRepo := round.NewRoundRepository(s.db)
	teamRepo := team.NewTeamRepository(s.db)
	compSvc := competition.NewCompetitionService(s.db)

	lockedRounds, err := roundRepo.GetLockedRounds()
	if err != nil {
		log.Printf("[scheduler] feed poll failed: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, rnd := range lockedRounds {
		results, complete := s.collectResults(ctx, teamRepo, &rnd)
		if !complete {
			log.Printf("[scheduler] round %d results incomplete, deferring resolution", rnd.ID)
			continue
		}

		resolution, err := compSvc.AdvanceRound(rnd.ID, results)
		if err != nil {
			if errors.Is(err, round.ErrRoundAlreadyResolved) {
				continue
			}
			log.Printf("[scheduler] failed to advance round %d: %v", rnd.ID, err)
			continue
		}
		log.Printf("[scheduler] round %d resolved: %d survivors, competition %s",
			rnd.ID, resolution.Survivors, resolution.CompetitionStatus)
	}
}

// collectResults gathers terminal results for all of a round's fixtures.
func (s *Scheduler) collectResults(ctx context.Context, teamRepo team.TeamRepository, rnd *round.Round) (map[uint]round.FixtureResult, bool) {
	results := make(map[uint]round.FixtureResult, len(rnd.Fixtures))
	for _, f := range rnd.Fixtures {
		if f.Result.Terminal() {
			continue
		}
		home, err := teamRepo.ResolveTeam(f.HomeTeamID)
		if err != nil {
			log.Printf("[scheduler] fixture %d: %v", f.ID, err)
			return nil, false
		}
		away, err := teamRepo.ResolveTeam(f.AwayTeamID)
		if err != nil {
			log.Printf("[scheduler] fixture %d: %v", f.ID, err)
			return nil, false
		}

		result, err := s.feed.FixtureResult(ctx, home.ExternalID, away.ExternalID)
		if err != nil {
			log.Printf("[scheduler] fixture %d feed error: %v", f.ID, err)
			return nil, false
		}
		if result == feed.ResultPending {
			return nil, false
		}
		results[f.ID] = round.FixtureResult(result)
	}
	return results, true
}
