package routes

import (
	"database/sql"

	"github.com/gatherly-app/gatherly-api/handlers"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
}

// SetupResponseRoutes sets up the public capability-token routes. The token in
// the path is the entire authorization; no middleware guards these.
func SetupResponseRoutes(r *gin.Engine, db *sql.DB, ws *handlers.WSHandler) {
	responseHandler := handlers.NewResponseHandler(db, ws)

	r.GET("/respond/:token", responseHandler.Respond)
	r.POST("/respond/:token/alternate", responseHandler.ProposeAlternate)
	r.GET("/respond/:token/invite.ics", responseHandler.InviteICS)
}

// SetupUserRoutes sets up protected user routes.
func SetupUserRoutes(rg *gin.RouterGroup, db *sql.DB) {
	userHandler := &handlers.UserHandler{DB: db}

	rg.GET("/user/profile", userHandler.GetProfile)
	rg.POST("/user/2fa/setup", userHandler.SetupTOTP)
	rg.POST("/user/2fa/verify", userHandler.VerifyTOTP)
	rg.POST("/user/2fa/disable", userHandler.DisableTOTP)
}

// SetupGroupRoutes sets up protected group routes.
func SetupGroupRoutes(rg *gin.RouterGroup, db *sql.DB) {
	groupHandler := handlers.NewGroupHandler(db)

	rg.POST("/groups", groupHandler.Create)
	rg.GET("/groups", groupHandler.List)
	rg.POST("/groups/:id/members", groupHandler.AddMember)
}

// SetupProposalRoutes sets up protected proposal routes.
func SetupProposalRoutes(rg *gin.RouterGroup, db *sql.DB) {
	proposalHandler := handlers.NewProposalHandler(db)

	rg.POST("/proposals", proposalHandler.Create)
	rg.GET("/proposals/:id", proposalHandler.Get)
	rg.GET("/proposals/:id/responses", proposalHandler.ListResponses)
	rg.PATCH("/proposals/:id/status", proposalHandler.UpdateStatus)
	rg.DELETE("/proposals/:id", proposalHandler.Delete)
}

// SetupCalendarRoutes sets up protected calendar-integration routes.
func SetupCalendarRoutes(rg *gin.RouterGroup, db *sql.DB) {
	calendarHandler := handlers.NewCalendarHandler(db)

	rg.POST("/calendar/google/connect", calendarHandler.ConnectGoogle)
	rg.POST("/calendar/caldav/connect", calendarHandler.ConnectCalDAV)
	rg.GET("/calendar/connections", calendarHandler.List)
	rg.POST("/calendar/connections/:id/refresh", calendarHandler.Refresh)
	rg.DELETE("/calendar/connections/:id", calendarHandler.Disconnect)
}
