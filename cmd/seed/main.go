package main

import (
	"errors"
	"log"

	"github.com/lastmanfc/lastman-backend/config"
	"github.com/lastmanfc/lastman-backend/internal/team"
)

// Seeds the team registry with the Premier League clubs, keyed by the
// external_api_id the results feed uses. Safe to run repeatedly: clubs that
// are already registered are skipped.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := config.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&team.Team{}); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	clubs := []team.Team{
		{Name: "Arsenal", ExternalID: "57", League: "Premier League"},
		{Name: "Aston Villa", ExternalID: "58", League: "Premier League"},
		{Name: "Bournemouth", ExternalID: "1044", League: "Premier League"},
		{Name: "Brentford", ExternalID: "402", League: "Premier League"},
		{Name: "Brighton & Hove Albion", ExternalID: "397", League: "Premier League"},
		{Name: "Chelsea", ExternalID: "61", League: "Premier League"},
		{Name: "Crystal Palace", ExternalID: "354", League: "Premier League"},
		{Name: "Everton", ExternalID: "62", League: "Premier League"},
		{Name: "Fulham", ExternalID: "63", League: "Premier League"},
		{Name: "Liverpool", ExternalID: "64", League: "Premier League"},
		{Name: "Manchester City", ExternalID: "65", League: "Premier League"},
		{Name: "Manchester United", ExternalID: "66", League: "Premier League"},
		{Name: "Newcastle United", ExternalID: "67", League: "Premier League"},
		{Name: "Nottingham Forest", ExternalID: "351", League: "Premier League"},
		{Name: "Tottenham Hotspur", ExternalID: "73", League: "Premier League"},
		{Name: "West Ham United", ExternalID: "563", League: "Premier League"},
		{Name: "Wolverhampton Wanderers", ExternalID: "76", League: "Premier League"},
	}

	repo := team.NewTeamRepository(db)
	seeded := 0
	for i := range clubs {
		if err := repo.RegisterTeam(&clubs[i]); err != nil {
			if errors.Is(err, team.ErrDuplicateTeam) {
				continue
			}
			log.Fatalf("Failed to seed %s: %v", clubs[i].Name, err)
		}
		seeded++
	}
	log.Printf("Seeded %d teams (%d already present)", seeded, len(clubs)-seeded)
}
