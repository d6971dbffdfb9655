package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/meetsync/internal/handlers"
	authmw "github.com/Skotchmaster/meetsync/internal/middleware/auth"
	"github.com/Skotchmaster/meetsync/internal/models"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	MeetingHandler *handlers.MeetingHandler
	Gate           *authmw.Gate
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = handlers.ErrorHandler

	e.GET("/health", handlers.Health)
	e.POST("/tokenProvider", d.AuthHandler.TokenProvider, d.Gate.OptionalAuth)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthHandler.SignUp)
	auth.POST("/signin", d.AuthHandler.SignIn)
	auth.POST("/signout", d.AuthHandler.SignOut)

	user := api.Group("/user", d.Gate.RequireAuth)
	user.GET("/profile", d.AuthHandler.Profile)

	meetings := api.Group("/meetings", d.Gate.RequireAuth)
	meetings.GET("/search", d.MeetingHandler.Search)

	admin := meetings.Group("", d.Gate.RequireRole(models.RoleAdmin))
	admin.POST("", d.MeetingHandler.Create)
	admin.POST("/:id/end", d.MeetingHandler.End)
}
