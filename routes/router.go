package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/lastmanfc/lastman-backend/config"
	"github.com/lastmanfc/lastman-backend/internal/competition"
	"github.com/lastmanfc/lastman-backend/internal/pick"
	"github.com/lastmanfc/lastman-backend/internal/round"
	"github.com/lastmanfc/lastman-backend/internal/team"
)

// SetupRoutes wires every domain's route group onto a gin engine.
func SetupRoutes(db *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.App.FrontendURL}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	// Swagger route
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := r.Group("/api")
	jwtSecret := cfg.JWT.AccessTokenSecret

	pickSvc := pick.NewPickService(
		pick.NewPickRepository(db),
		round.NewRoundRepository(db),
		team.NewTeamRepository(db),
		competition.NewEntrantGate(competition.NewCompetitionRepository(db)),
	)

	team.RegisterTeamRoutes(api, db, jwtSecret)
	round.RegisterRoundRoutes(api, db, jwtSecret, pickSvc)
	competition.RegisterCompetitionRoutes(api, db, jwtSecret)

	return r
}
