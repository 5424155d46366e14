package main

import (
	"log"

	"github.com/lastmanfc/lastman-backend/config"
	"github.com/lastmanfc/lastman-backend/internal/competition"
	"github.com/lastmanfc/lastman-backend/internal/feed"
	"github.com/lastmanfc/lastman-backend/internal/pick"
	"github.com/lastmanfc/lastman-backend/internal/round"
	"github.com/lastmanfc/lastman-backend/internal/scheduler"
	"github.com/lastmanfc/lastman-backend/internal/team"
	"github.com/lastmanfc/lastman-backend/routes"
)

// @title Last Man Standing API
// @version 1.0
// @description Pick & elimination engine for the Last Man Standing football competition.
// @BasePath /api
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&team.Team{},
		&competition.Competition{}, &competition.Entrant{}, &competition.BuyBack{},
		&round.Round{}, &round.Fixture{},
		&pick.Pick{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}
	log.Println("AutoMigrate successful")

	var feedClient feed.Client
	if cfg.Feed.BaseURL != "" {
		feedClient = feed.NewHTTPClient(cfg.Feed.BaseURL, cfg.Feed.APIKey)
	} else {
		log.Println("FEED_BASE_URL not set, results feed polling disabled")
	}

	sched, err := scheduler.New(db, cfg, feedClient).Start()
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	r := routes.SetupRoutes(db, cfg)

	log.Printf("Starting server on port %s in %s mode\n", cfg.App.Port, cfg.App.Env)
	if err := r.Run(":" + cfg.App.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
