package competition

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	mw "github.com/lastmanfc/lastman-backend/internal/middleware"
)

// RegisterCompetitionRoutes sets up the competition lifecycle routes.
func RegisterCompetitionRoutes(router *gin.RouterGroup, db *gorm.DB, jwtSecret string) {
	service := NewCompetitionService(db)
	repo := NewCompetitionRepository(db)
	controller := NewCompetitionController(db, service, repo)

	public := router.Group("/competitions")
	{
		public.GET("", controller.GetCompetitions)
		public.GET("/:id/standings", controller.GetStandings)
	}

	authenticated := router.Group("/competitions")
	authenticated.Use(mw.AuthMiddleware(jwtSecret))
	{
		authenticated.POST("/:id/join", controller.JoinCompetition)
		authenticated.POST("/:id/picks", controller.SubmitPick)
		authenticated.GET("/:id/picks/me", controller.GetMyPicks)
		authenticated.POST("/:id/buyback", controller.OfferBuyBack)
		authenticated.GET("/:id/buyback/eligibility", controller.GetBuyBackEligibility)
	}

	admin := router.Group("/admin")
	admin.Use(mw.AuthMiddleware(jwtSecret))
	admin.Use(mw.AdminMiddleware())
	{
		admin.POST("/competitions", controller.CreateCompetition)
		admin.POST("/competitions/:id/rounds", controller.OpenRound)
		admin.POST("/rounds/:id/resolve", controller.ResolveRound)
	}

	// Payment-succeeded events are authenticated by the request id they echo
	// back, not by a user token.
	router.POST("/payments/webhook", controller.PaymentWebhook)
}
