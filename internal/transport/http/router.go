package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/wa-scheduler/internal/transport/http/handler"
	"github.com/ErlanBelekov/wa-scheduler/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Schedules *handler.ScheduleHandler
	Messages  *handler.MessageHandler
	Contacts  *handler.ContactHandler
}

func NewRouter(logger *slog.Logger, h Handlers, jwtKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	authMW := middleware.Auth(jwtKey)

	schedules := r.Group("/schedules", authMW)
	schedules.POST("", h.Schedules.Create)
	schedules.GET("", h.Schedules.List)
	schedules.GET("/debug", h.Schedules.Debug)
	schedules.GET("/presets", h.Schedules.Presets)
	schedules.GET("/:id", h.Schedules.GetByID)
	schedules.POST("/:id/toggle", h.Schedules.Toggle)
	schedules.DELETE("/:id", h.Schedules.Delete)
	schedules.POST("/:id/test-run", h.Schedules.TestRun)
	schedules.GET("/:id/logs", h.Messages.ListLogs)

	messages := r.Group("/messages", authMW)
	messages.POST("/send-now", h.Messages.SendNow)

	logs := r.Group("/logs", authMW)
	logs.GET("", h.Messages.ListLogs)

	contacts := r.Group("/contacts", authMW)
	contacts.POST("", h.Contacts.Create)
	contacts.GET("", h.Contacts.List)
	contacts.GET("/:id", h.Contacts.GetByID)

	return r
}
