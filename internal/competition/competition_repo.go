package competition

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrUnknownCompetition is returned when a lookup matches no competition.
	ErrUnknownCompetition = errors.New("unknown competition")
	// ErrUnknownEntrant is returned when a lookup matches no entrant.
	ErrUnknownEntrant = errors.New("unknown entrant")
)

// CompetitionRepository defines the orchestrator's data operations.
type CompetitionRepository interface {
	CreateCompetition(comp *Competition) error
	GetCompetition(id uint) (*Competition, error)
	GetAllCompetitions(page, limit int) ([]Competition, int64, error)
	SaveCompetition(comp *Competition) error

	CreateEntrant(entrant *Entrant) error
	GetEntrant(id uint) (*Entrant, error)
	GetEntrantByUser(competitionID uint, userID string) (*Entrant, error)
	GetEntrantsByCompetition(competitionID uint) ([]Entrant, error)
	SaveEntrant(entrant *Entrant) error

	CreateBuyBack(buyBack *BuyBack) error
	GetBuyBackByRequestID(requestID string) (*BuyBack, error)
	GetPendingBuyBackByEntrant(entrantID uint) (*BuyBack, error)
	SaveBuyBack(buyBack *BuyBack) error
}

type competitionRepository struct {
	db *gorm.DB
}

// NewCompetitionRepository creates a new instance of CompetitionRepository.
func NewCompetitionRepository(db *gorm.DB) CompetitionRepository {
	return &competitionRepository{db: db}
}

func (r *competitionRepository) CreateCompetition(comp *Competition) error {
	return r.db.Create(comp).Error
}

func (r *competitionRepository) GetCompetition(id uint) (*Competition, error) {
	var comp Competition
	if err := r.db.First(&comp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownCompetition
		}
		return nil, err
	}
	return &comp, nil
}

func (r *competitionRepository) GetAllCompetitions(page, limit int) ([]Competition, int64, error) {
	var comps []Competition
	var total int64

	query := r.db.Model(&Competition{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&comps).Error; err != nil {
		return nil, 0, err
	}
	return comps, total, nil
}

func (r *competitionRepository) SaveCompetition(comp *Competition) error {
	return r.db.Save(comp).Error
}

func (r *competitionRepository) CreateEntrant(entrant *Entrant) error {
	return r.db.Create(entrant).Error
}

func (r *competitionRepository) GetEntrant(id uint) (*Entrant, error) {
	var e Entrant
	if err := r.db.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownEntrant
		}
		return nil, err
	}
	return &e, nil
}

func (r *competitionRepository) GetEntrantByUser(competitionID uint, userID string) (*Entrant, error) {
	var e Entrant
	err := r.db.Where("competition_id = ? AND user_id = ?", competitionID, userID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *competitionRepository) GetEntrantsByCompetition(competitionID uint) ([]Entrant, error) {
	var entrants []Entrant
	err := r.db.Where("competition_id = ?", competitionID).Order("id ASC").Find(&entrants).Error
	return entrants, err
}

func (r *competitionRepository) SaveEntrant(entrant *Entrant) error {
	return r.db.Save(entrant).Error
}

func (r *competitionRepository) CreateBuyBack(buyBack *BuyBack) error {
	return r.db.Create(buyBack).Error
}

func (r *competitionRepository) GetBuyBackByRequestID(requestID string) (*BuyBack, error) {
	var b BuyBack
	err := r.db.Where("request_id = ?", requestID).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *competitionRepository) GetPendingBuyBackByEntrant(entrantID uint) (*BuyBack, error) {
	var b BuyBack
	err := r.db.Where("entrant_id = ? AND status = ?", entrantID, StatusBuyBackPending).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *competitionRepository) SaveBuyBack(buyBack *BuyBack) error {
	return r.db.Save(buyBack).Error
}
