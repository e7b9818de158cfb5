package handler

import (
	"net/http"

	"aimtrainer/backend/internal/auth"
	"aimtrainer/backend/internal/database"
	"aimtrainer/backend/internal/hub"
	"aimtrainer/backend/internal/party"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps is everything the HTTP surface needs. Results is nil when the server
// runs without a database.
type Deps struct {
	Engine   *party.Engine
	Hub      *hub.Hub
	Resolver auth.IdentityResolver
	Results  *database.ResultRepository
	Origins  []string
	Log      zerolog.Logger
}

// NewRouter wires the REST API, the party websocket and the swagger UI.
func NewRouter(d Deps) *gin.Engine {
	router := gin.Default()

	parties := &PartyHandler{Engine: d.Engine}
	results := &ResultHandler{Results: d.Results, Log: d.Log}
	sockets := NewSocketHandler(d.Hub, d.Engine, d.Resolver, d.Origins, d.Log)

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	router.GET("/ws", sockets.ServeWS)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", RegisterUser)
			authRoutes.POST("/login", LoginUser)
		}

		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("/me", GetMe)
			userRoutes.GET("/me/results", results.GetMyResults)
			userRoutes.GET("/me/challenges", results.GetMyChallengeResults)
		}

		partyRoutes := apiV1.Group("/parties")
		partyRoutes.Use(auth.OptionalAuthMiddleware())
		{
			partyRoutes.GET("", parties.ListParties)
			partyRoutes.GET("/:id", parties.GetParty)
			partyRoutes.GET("/:id/qr", parties.GetPartyQR)
		}

		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(auth.AuthMiddleware(), auth.AdminMiddleware(userRole))
		{
			adminRoutes.GET("/stats", parties.GetStats)
		}
	}

	return router
}
