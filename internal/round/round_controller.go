package round

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lastmanfc/lastman-backend/pkg/responses"
)

// PickLocker locks a round's pending picks alongside the round itself.
// Satisfied by the pick service; an interface here keeps the package graph
// acyclic.
type PickLocker interface {
	LockPicks(roundID uint) error
}

// RoundController handles round HTTP requests.
type RoundController struct {
	service *RoundService
	repo    RoundRepository
	picks   PickLocker
}

// NewRoundController creates a new round controller.
func NewRoundController(service *RoundService, repo RoundRepository, picks PickLocker) *RoundController {
	return &RoundController{service: service, repo: repo, picks: picks}
}

// GetRound godoc
// @Summary Get a round with its fixtures
// @Tags rounds
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {object} Round
// @Router /rounds/{id} [get]
func (rc *RoundController) GetRound(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		responses.ErrorResponse(c, http.StatusBadRequest, "Invalid round id")
		return
	}

	rnd, err := rc.repo.GetRoundWithFixtures(uint(id))
	if err != nil {
		if errors.Is(err, ErrUnknownRound) {
			responses.ErrorResponse(c, http.StatusNotFound, "Round not found")
			return
		}
		responses.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch round")
		return
	}
	responses.SuccessResponse(c, http.StatusOK, rnd)
}

// GetCompetitionRounds godoc
// @Summary List a competition's rounds
// @Tags rounds
// @Produce json
// @Param id path int true "Competition ID"
// @Success 200 {array} Round
// @Router /competitions/{id}/rounds [get]
func (rc *RoundController) GetCompetitionRounds(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		responses.ErrorResponse(c, http.StatusBadRequest, "Invalid competition id")
		return
	}

	rounds, err := rc.repo.GetRoundsByCompetition(uint(id))
	if err != nil {
		responses.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch rounds")
		return
	}
	responses.SuccessResponse(c, http.StatusOK, rounds)
}

// ForceLock godoc
// @Summary Lock an open round before its deadline
// @Tags rounds
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {object} Round
// @Router /admin/rounds/{id}/force-lock [post]
func (rc *RoundController) ForceLock(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		responses.ErrorResponse(c, http.StatusBadRequest, "Invalid round id")
		return
	}

	rnd, err := rc.service.ForceLock(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownRound):
			responses.ErrorResponse(c, http.StatusNotFound, "Round not found")
		case errors.Is(err, ErrRoundNotOpen):
			responses.ErrorResponse(c, http.StatusConflict, err.Error())
		default:
			responses.ErrorResponse(c, http.StatusInternalServerError, "Failed to lock round")
		}
		return
	}
	// Same behavior as the scheduled lock sweep: the round's picks lock with it.
	if err := rc.picks.LockPicks(rnd.ID); err != nil {
		responses.ErrorResponse(c, http.StatusInternalServerError, "Round locked but its picks could not be locked")
		return
	}
	responses.SuccessResponse(c, http.StatusOK, rnd)
}
