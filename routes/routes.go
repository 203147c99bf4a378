package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"checkin-backend/controllers"
	"checkin-backend/middleware"
)

// Controllers groups every handler the router mounts.
type Controllers struct {
	Auth     *controllers.AuthController
	Guests   *controllers.GuestController
	Reports  *controllers.ReportController
	Admin    *controllers.AdminController
	Team     *controllers.TeamController
	Settings *controllers.SettingsController
	Activity *controllers.ActivityController
}

func SetupRouter(
	c Controllers,
	tokens middleware.TokenParser,
	profiles middleware.ProfileResolver,
	origins []string,
	log zerolog.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log))

	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/auth/login", c.Auth.Login)

	authed := api.Group("")
	authed.Use(middleware.RequireAuth(tokens, profiles))
	{
		authed.GET("/auth/me", c.Auth.Me)
		authed.POST("/auth/password", c.Auth.ChangePassword)

		guests := authed.Group("/guests")
		{
			guests.GET("", c.Guests.List)
			// static paths before /:order
			guests.GET("/stats", c.Guests.Stats)
			guests.GET("/stream", c.Guests.Stream)
			guests.POST("/quick-import", c.Guests.QuickImport)

			guests.GET("/:order", c.Guests.Get)
			guests.GET("/:order/waiver-check", c.Guests.CheckWaiver)
			guests.POST("/:order/toggle/:field", c.Guests.Toggle)
			guests.PUT("/:order/waiver", c.Guests.SetWaiver)
		}

		authed.GET("/reports", c.Reports.Get)
		authed.GET("/reports/weeks", c.Reports.Weeks)
		authed.GET("/settings", c.Settings.Get)

		admin := authed.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/admin/import", c.Admin.Import)
			admin.POST("/admin/upload", c.Admin.Upload)
			admin.POST("/admin/waivers/verify", c.Admin.VerifyWaivers)

			admin.PUT("/settings", c.Settings.Update)

			admin.GET("/team", c.Team.List)
			admin.POST("/team", c.Team.Add)
			admin.POST("/team/csv", c.Team.ImportCSV)
			admin.PATCH("/team/:id", c.Team.Update)
			admin.DELETE("/team/:id", c.Team.Remove)
			admin.POST("/team/:id/reset-password", c.Team.ResetPassword)

			admin.GET("/activity", c.Activity.Recent)
		}
	}

	return r
}
