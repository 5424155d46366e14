package pick

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PickRepository defines the ledger's data operations.
type PickRepository interface {
	// UpsertPick records one pick per (entrant, round); a resubmission before
	// the deadline overwrites the prior pick for that round only.
	UpsertPick(pick *Pick) error
	GetPick(entrantID, roundID uint) (*Pick, error)
	GetPicksByRound(roundID uint) ([]Pick, error)
	GetPicksByEntrant(entrantID uint) ([]Pick, error)
	SavePick(pick *Pick) error
	// CountTeamUsage counts the entrant's non-void picks of a team across the
	// competition's lifetime. Void picks do not consume team usage.
	CountTeamUsage(competitionID, entrantID, teamID uint) (int64, error)
	// UsedTeamIDs lists the team ids an entrant has consumed in a competition.
	UsedTeamIDs(competitionID, entrantID uint) ([]uint, error)
}

type pickRepository struct {
	db *gorm.DB
}

// NewPickRepository creates a new instance of PickRepository.
func NewPickRepository(db *gorm.DB) PickRepository {
	return &pickRepository{db: db}
}

func (r *pickRepository) UpsertPick(pick *Pick) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entrant_id"}, {Name: "round_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"team_id", "status", "updated_at"}),
	}).Create(pick).Error
}

func (r *pickRepository) GetPick(entrantID, roundID uint) (*Pick, error) {
	var p Pick
	err := r.db.Where("entrant_id = ? AND round_id = ?", entrantID, roundID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *pickRepository) GetPicksByRound(roundID uint) ([]Pick, error) {
	var picks []Pick
	err := r.db.Where("round_id = ?", roundID).Find(&picks).Error
	return picks, err
}

func (r *pickRepository) GetPicksByEntrant(entrantID uint) ([]Pick, error) {
	var picks []Pick
	err := r.db.Where("entrant_id = ?", entrantID).Order("round_id ASC").Find(&picks).Error
	return picks, err
}

func (r *pickRepository) SavePick(pick *Pick) error {
	return r.db.Save(pick).Error
}

func (r *pickRepository) CountTeamUsage(competitionID, entrantID, teamID uint) (int64, error) {
	var count int64
	err := r.db.Model(&Pick{}).
		Joins("JOIN rounds ON rounds.id = picks.round_id").
		Where("rounds.competition_id = ? AND picks.entrant_id = ? AND picks.team_id = ? AND picks.status <> ?",
			competitionID, entrantID, teamID, StatusPickVoid).
		Count(&count).Error
	return count, err
}

func (r *pickRepository) UsedTeamIDs(competitionID, entrantID uint) ([]uint, error) {
	var teamIDs []uint
	err := r.db.Model(&Pick{}).
		Joins("JOIN rounds ON rounds.id = picks.round_id").
		Where("rounds.competition_id = ? AND picks.entrant_id = ? AND picks.status <> ?",
			competitionID, entrantID, StatusPickVoid).
		Pluck("picks.team_id", &teamIDs).Error
	return teamIDs, err
}
