package team

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrDuplicateTeam is returned when a team's external id is already registered.
	ErrDuplicateTeam = errors.New("a team with this external id is already registered")
	// ErrUnknownTeam is returned when a lookup does not match any registered team.
	ErrUnknownTeam = errors.New("unknown team")
)

// TeamRepository defines the registry's data operations.
type TeamRepository interface {
	RegisterTeam(team *Team) error
	ResolveTeam(id uint) (*Team, error)
	ResolveTeamByExternalID(externalID string) (*Team, error)
	GetAllTeams(page, limit int, league string) ([]Team, int64, error)
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new instance of TeamRepository.
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) RegisterTeam(team *Team) error {
	var count int64
	if err := r.db.Model(&Team{}).Where("external_api_id = ?", team.ExternalID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateTeam
	}
	return r.db.Create(team).Error
}

func (r *teamRepository) ResolveTeam(id uint) (*Team, error) {
	var t Team
	if err := r.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownTeam
		}
		return nil, err
	}
	return &t, nil
}

func (r *teamRepository) ResolveTeamByExternalID(externalID string) (*Team, error) {
	var t Team
	if err := r.db.Where("external_api_id = ?", externalID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownTeam
		}
		return nil, err
	}
	return &t, nil
}

func (r *teamRepository) GetAllTeams(page, limit int, league string) ([]Team, int64, error) {
	var teams []Team
	var total int64

	query := r.db.Model(&Team{})
	if league != "" {
		query = query.Where("league = ?", league)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&teams).Error; err != nil {
		return nil, 0, err
	}
	return teams, total, nil
}
