package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"socialhub/domain/dto"
	httpHandler "socialhub/interfaces/http"
	"socialhub/interfaces/middleware"
)

func InitiateRouter(
	secretKey string,
	oauthHandler httpHandler.IOAuthHandler,
	accountHandler httpHandler.ISocialAccountHandler,
	publishHandler httpHandler.IPublishHandler,
	adminHandler httpHandler.IAdminHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK"})
	})

	v1 := router.Group("api/v1")

	// Callback is hit by the platform redirecting the admin's browser, so it
	// cannot carry our bearer token. State consumption is its protection.
	v1.GET("/oauth/:platform/callback", oauthHandler.Callback)

	authed := v1.Group("")
	authed.Use(middleware.Auth(secretKey))
	{
		authed.GET("/oauth/:platform/url", oauthHandler.GetAuthURL)

		accounts := authed.Group("/accounts")
		{
			accounts.GET("", accountHandler.List)
			accounts.POST("", accountHandler.Connect)
			accounts.GET("/health", accountHandler.Health)
			accounts.GET("/expiring", accountHandler.Expiring)
			accounts.DELETE("/:id", accountHandler.Disconnect)
			accounts.POST("/:id/refresh", accountHandler.Refresh)

			accounts.POST("/:id/publish", publishHandler.Publish)
			accounts.GET("/:id/posts", publishHandler.Posts)
			accounts.GET("/:id/posts/:postId/comments", publishHandler.Comments)
			accounts.GET("/:id/analytics", publishHandler.Analytics)
		}

		authed.POST("/publish", publishHandler.PublishFanOut)

		admin := authed.Group("/admin")
		admin.Use(middleware.AdminOnly())
		{
			admin.POST("/force-reauthorization", adminHandler.ForceReauthorization)
		}
	}

	return router
}
