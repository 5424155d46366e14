package team

import (
	"gorm.io/gorm"
)

// Team is static reference data for a club an entrant can pick. ExternalID is
// the key the fixture/results feed uses for this club.
type Team struct {
	gorm.Model
	Name       string `json:"name" gorm:"not null"`
	ExternalID string `json:"external_api_id" gorm:"column:external_api_id;uniqueIndex;not null"`
	League     string `json:"league" gorm:"index"`
}
