package competition

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	mw "github.com/lastmanfc/lastman-backend/internal/middleware"
	"github.com/lastmanfc/lastman-backend/internal/pick"
	"github.com/lastmanfc/lastman-backend/internal/round"
	"github.com/lastmanfc/lastman-backend/internal/team"
	"github.com/lastmanfc/lastman-backend/pkg/responses"
)

// CompetitionController handles competition lifecycle HTTP requests.
type CompetitionController struct {
	db      *gorm.DB
	service *CompetitionService
	repo    CompetitionRepository
}

// NewCompetitionController creates a new competition controller.
func NewCompetitionController(db *gorm.DB, service *CompetitionService, repo CompetitionRepository) *CompetitionController {
	return &CompetitionController{db: db, service: service, repo: repo}
}

// statusForError maps domain errors onto HTTP status codes. State-conflict
// errors are 409 and retry-safe; unknown entities are 404.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrUnknownCompetition),
		errors.Is(err, ErrUnknownEntrant),
		errors.Is(err, ErrUnknownBuyBack),
		errors.Is(err, round.ErrUnknownRound),
		errors.Is(err, team.ErrUnknownTeam):
		return http.StatusNotFound
	case errors.Is(err, ErrEntryClosed),
		errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrBuyBackUnavailable),
		errors.Is(err, ErrCompetitionNotActive),
		errors.Is(err, round.ErrRoundNotOpen),
		errors.Is(err, round.ErrRoundNotLocked),
		errors.Is(err, round.ErrRoundAlreadyResolved),
		errors.Is(err, pick.ErrRoundClosed),
		errors.Is(err, pick.ErrTeamAlreadyUsed),
		errors.Is(err, pick.ErrEntrantNotEligible):
		return http.StatusConflict
	case errors.Is(err, round.ErrInvalidSchedule),
		errors.Is(err, round.ErrIncompleteFixtures),
		errors.Is(err, pick.ErrTeamNotPlaying):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		responses.ErrorResponse(c, code, "An unexpected error occurred")
		return
	}
	responses.ErrorResponse(c, code, err.Error())
}

// --- DTOs ---

// CreateCompetitionRequest defines the payload for creating a competition.
type CreateCompetitionRequest struct {
	Name           string  `json:"name" binding:"required,min=3,max=200"`
	EntryFee       float64 `json:"entry_fee" binding:"omitempty,gte=0"`
	NoPickPolicy   string  `json:"no_pick_policy" binding:"omitempty,oneof=eliminate auto_pick"`
	DrawEliminates *bool   `json:"draw_eliminates,omitempty"`
	BuyBackEnabled bool    `json:"buy_back_enabled"`
	BuyBackFee     float64 `json:"buy_back_fee" binding:"omitempty,gte=0"`
	BuyBackStages  string  `json:"buy_back_stages"`
}

// OpenRoundRequest defines the payload for scheduling the next round.
type OpenRoundRequest struct {
	Deadline time.Time            `json:"deadline" binding:"required"`
	Fixtures []round.FixtureInput `json:"fixtures" binding:"required,min=1,dive"`
}

// FixtureResultInput is one fixture's terminal result.
type FixtureResultInput struct {
	FixtureID uint   `json:"fixture_id" binding:"required"`
	Result    string `json:"result" binding:"required,oneof=home_win away_win draw void"`
}

// ResolveRoundRequest defines the payload for resolving a round.
type ResolveRoundRequest struct {
	Results []FixtureResultInput `json:"results" binding:"required,dive"`
}

// SubmitPickRequest defines the payload for a pick submission.
type SubmitPickRequest struct {
	RoundID uint `json:"round_id" binding:"required"`
	TeamID  uint `json:"team_id" binding:"required"`
}

// BuyBackRequestBody defines the payload for requesting a buy-back.
type BuyBackRequestBody struct {
	Stage int `json:"stage" binding:"required,min=1"`
}

// PaymentWebhookRequest is the payment processor's payment-succeeded event,
// keyed by the buy-back's idempotency id.
type PaymentWebhookRequest struct {
	Event     string `json:"event" binding:"required"`
	RequestID string `json:"request_id" binding:"required"`
}

// --- Handlers ---

// CreateCompetition godoc
// @Summary Create a competition
// @Tags competitions
// @Accept json
// @Produce json
// @Param competition body CreateCompetitionRequest true "Competition"
// @Success 201 {object} Competition
// @Router /admin/competitions [post]
func (cc *CompetitionController) CreateCompetition(c *gin.Context) {
	var req CreateCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	comp := &Competition{
		Name:           req.Name,
		EntryFee:       req.EntryFee,
		NoPickPolicy:   NoPickEliminate,
		DrawEliminates: true,
		BuyBackEnabled: req.BuyBackEnabled,
		BuyBackFee:     req.BuyBackFee,
		BuyBackStages:  req.BuyBackStages,
	}
	if req.NoPickPolicy != "" {
		comp.NoPickPolicy = NoPickPolicy(req.NoPickPolicy)
	}
	if req.DrawEliminates != nil {
		comp.DrawEliminates = *req.DrawEliminates
	}

	if err := cc.service.CreateCompetition(comp); err != nil {
		respondError(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusCreated, comp)
}

// GetCompetitions godoc
// @Summary List competitions
// @Tags competitions
// @Produce json
// @Success 200 {array} Competition
// @Router /competitions [get]
func (cc *CompetitionController) GetCompetitions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	comps, total, err := cc.repo.GetAllCompetitions(page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.PaginatedResponse(c, http.StatusOK, comps, page, limit, total)
}

// JoinCompetition godoc
// @Summary Join a competition
// @Tags competitions
// @Produce json
// @Param id path int true "Competition ID"
// @Success 201 {object} Entrant
// @Router /competitions/{id}/join [post]
func (cc *CompetitionController) JoinCompetition(c *gin.Context) {
	competitionID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}
	userID, err := mw.GetUserIDFromContext(c)
	if err != nil {
		responses.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	entrant, err := cc.service.JoinCompetition(competitionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusCreated, entrant)
}

// GetStandings godoc
// @Summary Competition standings
// @Tags competitions
// @Produce json
// @Param id path int true "Competition ID"
// @Success 200 {object} Standings
// @Router /competitions/{id}/standings [get]
func (cc *CompetitionController) GetStandings(c *gin.Context) {
	competitionID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	standings, err := cc.service.GetStandings(competitionID)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, standings)
}

// OpenRound godoc
// @Summary Schedule the competition's next round
// @Tags competitions
// @Accept json
// @Produce json
// @Param id path int true "Competition ID"
// @Param round body OpenRoundRequest true "Round"
// @Success 201 {object} round.Round
// @Router /admin/competitions/{id}/rounds [post]
func (cc *CompetitionController) OpenRound(c *gin.Context) {
	competitionID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}
	var req OpenRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	rnd, err := cc.service.OpenRound(competitionID, req.Deadline, req.Fixtures)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusCreated, rnd)
}

// ResolveRound godoc
// @Summary Resolve a round with explicit fixture results
// @Tags rounds
// @Accept json
// @Produce json
// @Param id path int true "Round ID"
// @Param results body ResolveRoundRequest true "Fixture results"
// @Success 200 {object} RoundResolution
// @Router /admin/rounds/{id}/resolve [post]
func (cc *CompetitionController) ResolveRound(c *gin.Context) {
	roundID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}
	var req ResolveRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	results := make(map[uint]round.FixtureResult, len(req.Results))
	for _, r := range req.Results {
		results[r.FixtureID] = round.FixtureResult(r.Result)
	}

	resolution, err := cc.service.AdvanceRound(roundID, results)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, resolution)
}

// SubmitPick godoc
// @Summary Submit or overwrite the caller's pick for a round
// @Tags picks
// @Accept json
// @Produce json
// @Param id path int true "Competition ID"
// @Param pick body SubmitPickRequest true "Pick"
// @Success 201 {object} pick.Pick
// @Router /competitions/{id}/picks [post]
func (cc *CompetitionController) SubmitPick(c *gin.Context) {
	competitionID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}
	userID, err := mw.GetUserIDFromContext(c)
	if err != nil {
		responses.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req SubmitPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	entrant, err := cc.repo.GetEntrantByUser(competitionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if entrant == nil {
		responses.ErrorResponse(c, http.StatusForbidden, "You have not entered this competition")
		return
	}

	pickSvc := pick.NewPickService(
		pick.NewPickRepository(cc.db),
		round.NewRoundRepository(cc.db),
		team.NewTeamRepository(cc.db),
		&entrantGate{repo: cc.repo},
	)
	p, err := pickSvc.SubmitPick(competitionID, entrant.ID, req.RoundID, req.TeamID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusCreated, p)
}

// GetMyPicks godoc
// @Summary The caller's picks in a competition
// @Tags picks
// @Produce json
// @Param id path int true "Competition ID"
// @Success 200 {array} pick.Pick
// @Router /competitions/{id}/picks/me [get]
func (cc *CompetitionController) GetMyPicks(c *gin.Context) {
	competitionID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}
	userID, err := mw.GetUserIDFromContext(c)
	if err != nil {
		responses.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	entrant, err := cc.repo.GetEntrantByUser(competitionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if entrant == nil {
		responses.ErrorResponse(c, http.StatusForbidden, "You have not entered this competition")
		return
	}

	picks, err := pick.NewPickRepository(cc.db).GetPicksByEntrant(entrant.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, picks)
}

// OfferBuyBack godoc
// @Summary Request a buy-back for the caller
// @Tags buyback
// @Accept json
// @Produce json
// @Param id path int true "Competition ID"
// @Param buyback body BuyBackRequestBody true "Buy-back"
// @Success 201 {object} BuyBack
// @Router /competitions/{id}/buyback [post]
func (cc *CompetitionController) OfferBuyBack(c *gin.Context) {
	competitionID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}
	userID, err := mw.GetUserIDFromContext(c)
	if err != nil {
		responses.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req BuyBackRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	b, err := cc.service.OfferBuyBack(competitionID, userID, req.Stage)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusCreated, b)
}

// GetBuyBackEligibility godoc
// @Summary Whether the caller can buy back at a stage
// @Tags buyback
// @Produce json
// @Param id path int true "Competition ID"
// @Param stage query int true "Stage (round number)"
// @Success 200 {object} BuyBackEligibility
// @Router /competitions/{id}/buyback/eligibility [get]
func (cc *CompetitionController) GetBuyBackEligibility(c *gin.Context) {
	competitionID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}
	userID, err := mw.GetUserIDFromContext(c)
	if err != nil {
		responses.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	stage, err := strconv.Atoi(c.Query("stage"))
	if err != nil || stage < 1 {
		responses.ErrorResponse(c, http.StatusBadRequest, "Invalid stage")
		return
	}

	eligibility, err := cc.service.CheckBuyBackEligibility(competitionID, userID, stage)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, eligibility)
}

// PaymentWebhook godoc
// @Summary Payment processor webhook for buy-back confirmations
// @Tags buyback
// @Accept json
// @Produce json
// @Param event body PaymentWebhookRequest true "Payment event"
// @Success 200 {object} BuyBack
// @Router /payments/webhook [post]
func (cc *CompetitionController) PaymentWebhook(c *gin.Context) {
	var req PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}
	if req.Event != "payment_succeeded" {
		// Other event types carry no state transition for this engine.
		responses.SuccessResponse(c, http.StatusOK, gin.H{"message": "ignored"})
		return
	}

	b, err := cc.service.ConfirmBuyBack(req.RequestID)
	if err != nil {
		respondError(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, b)
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		responses.ErrorResponse(c, http.StatusBadRequest, "Invalid "+name+" parameter")
		return 0, err
	}
	return uint(id), nil
}
