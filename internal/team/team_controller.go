package team

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lastmanfc/lastman-backend/pkg/responses"
)

// TeamController handles team-registry HTTP requests.
type TeamController struct {
	repo TeamRepository
}

// NewTeamController creates a new team controller.
func NewTeamController(repo TeamRepository) *TeamController {
	return &TeamController{repo: repo}
}

// RegisterTeamRequest defines the payload for registering a team.
type RegisterTeamRequest struct {
	Name       string `json:"name" binding:"required,min=2,max=100"`
	ExternalID string `json:"external_api_id" binding:"required"`
	League     string `json:"league" binding:"required"`
}

// RegisterTeam godoc
// @Summary Register a team in the registry
// @Tags teams
// @Accept json
// @Produce json
// @Param team body RegisterTeamRequest true "Team"
// @Success 201 {object} Team
// @Router /admin/teams [post]
func (tc *TeamController) RegisterTeam(c *gin.Context) {
	var req RegisterTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	t := &Team{
		Name:       req.Name,
		ExternalID: req.ExternalID,
		League:     req.League,
	}
	if err := tc.repo.RegisterTeam(t); err != nil {
		if errors.Is(err, ErrDuplicateTeam) {
			responses.ErrorResponse(c, http.StatusConflict, "A team with this external id is already registered")
			return
		}
		responses.ErrorResponse(c, http.StatusInternalServerError, "Failed to register team")
		return
	}

	responses.SuccessResponse(c, http.StatusCreated, t)
}

// GetTeam godoc
// @Summary Get a team by id
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {object} Team
// @Router /teams/{id} [get]
func (tc *TeamController) GetTeam(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		responses.ErrorResponse(c, http.StatusBadRequest, "Invalid team id")
		return
	}

	t, err := tc.repo.ResolveTeam(uint(id))
	if err != nil {
		if errors.Is(err, ErrUnknownTeam) {
			responses.ErrorResponse(c, http.StatusNotFound, "Team not found")
			return
		}
		responses.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch team")
		return
	}

	responses.SuccessResponse(c, http.StatusOK, t)
}

// GetTeams godoc
// @Summary List registered teams
// @Tags teams
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param league query string false "Filter by league"
// @Success 200 {array} Team
// @Router /teams [get]
func (tc *TeamController) GetTeams(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	teams, total, err := tc.repo.GetAllTeams(page, limit, c.Query("league"))
	if err != nil {
		responses.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch teams")
		return
	}

	responses.PaginatedResponse(c, http.StatusOK, teams, page, limit, total)
}
