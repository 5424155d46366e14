package round

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	mw "github.com/lastmanfc/lastman-backend/internal/middleware"
	"github.com/lastmanfc/lastman-backend/internal/team"
)

// RegisterRoundRoutes sets up the read and ops surfaces of the round manager.
// Round resolution goes through the competition orchestrator instead. The
// PickLocker keeps the admin force-lock in step with the scheduled lock sweep.
func RegisterRoundRoutes(router *gin.RouterGroup, db *gorm.DB, jwtSecret string, picks PickLocker) {
	repo := NewRoundRepository(db)
	service := NewRoundService(repo, team.NewTeamRepository(db))
	controller := NewRoundController(service, repo, picks)

	public := router.Group("/")
	{
		public.GET("/rounds/:id", controller.GetRound)
		public.GET("/competitions/:id/rounds", controller.GetCompetitionRounds)
	}

	admin := router.Group("/admin/rounds")
	admin.Use(mw.AuthMiddleware(jwtSecret))
	admin.Use(mw.AdminMiddleware())
	{
		admin.POST("/:id/force-lock", controller.ForceLock)
	}
}
