package team

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	mw "github.com/lastmanfc/lastman-backend/internal/middleware"
)

// RegisterTeamRoutes sets up team-registry routes.
func RegisterTeamRoutes(router *gin.RouterGroup, db *gorm.DB, jwtSecret string) {
	repo := NewTeamRepository(db)
	controller := NewTeamController(repo)

	publicTeams := router.Group("/teams")
	{
		publicTeams.GET("", controller.GetTeams)
		publicTeams.GET("/:id", controller.GetTeam)
	}

	adminTeams := router.Group("/admin/teams")
	adminTeams.Use(mw.AuthMiddleware(jwtSecret))
	adminTeams.Use(mw.AdminMiddleware())
	{
		adminTeams.POST("", controller.RegisterTeam)
	}
}
