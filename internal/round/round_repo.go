package round

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrUnknownRound is returned when a lookup does not match any round.
var ErrUnknownRound = errors.New("unknown round")

// RoundRepository defines the round manager's data operations.
type RoundRepository interface {
	CreateRound(round *Round) error
	GetRound(id uint) (*Round, error)
	GetRoundWithFixtures(id uint) (*Round, error)
	GetLatestRound(competitionID uint) (*Round, error)
	GetRoundsByCompetition(competitionID uint) ([]Round, error)
	GetDueOpenRounds(now time.Time) ([]Round, error)
	GetLockedRounds() ([]Round, error)
	CountOpenOrLockedRounds(competitionID uint) (int64, error)
	SaveRound(round *Round) error
	SaveFixture(fixture *Fixture) error
}

type roundRepository struct {
	db *gorm.DB
}

// NewRoundRepository creates a new instance of RoundRepository.
func NewRoundRepository(db *gorm.DB) RoundRepository {
	return &roundRepository{db: db}
}

func (r *roundRepository) CreateRound(round *Round) error {
	return r.db.Create(round).Error
}

func (r *roundRepository) GetRound(id uint) (*Round, error) {
	var rnd Round
	if err := r.db.First(&rnd, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownRound
		}
		return nil, err
	}
	return &rnd, nil
}

func (r *roundRepository) GetRoundWithFixtures(id uint) (*Round, error) {
	var rnd Round
	if err := r.db.Preload("Fixtures").First(&rnd, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownRound
		}
		return nil, err
	}
	return &rnd, nil
}

func (r *roundRepository) GetLatestRound(competitionID uint) (*Round, error) {
	var rnd Round
	err := r.db.Where("competition_id = ?", competitionID).Order("number DESC").First(&rnd).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rnd, nil
}

func (r *roundRepository) GetRoundsByCompetition(competitionID uint) ([]Round, error) {
	var rounds []Round
	err := r.db.Where("competition_id = ?", competitionID).Order("number ASC").Find(&rounds).Error
	return rounds, err
}

func (r *roundRepository) GetDueOpenRounds(now time.Time) ([]Round, error) {
	var rounds []Round
	err := r.db.Where("status = ? AND deadline <= ?", StatusRoundOpen, now).Find(&rounds).Error
	return rounds, err
}

func (r *roundRepository) GetLockedRounds() ([]Round, error) {
	var rounds []Round
	err := r.db.Preload("Fixtures").Where("status = ?", StatusRoundLocked).Find(&rounds).Error
	return rounds, err
}

func (r *roundRepository) CountOpenOrLockedRounds(competitionID uint) (int64, error) {
	var count int64
	err := r.db.Model(&Round{}).
		Where("competition_id = ? AND status IN ?", competitionID, []RoundStatus{StatusRoundOpen, StatusRoundLocked}).
		Count(&count).Error
	return count, err
}

func (r *roundRepository) SaveRound(round *Round) error {
	return r.db.Save(round).Error
}

func (r *roundRepository) SaveFixture(fixture *Fixture) error {
	return r.db.Save(fixture).Error
}
