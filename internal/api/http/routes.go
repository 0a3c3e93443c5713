package http

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the bridge API on router
func RegisterRoutes(router gin.IRouter, h *Handlers) {
	router.GET("/health", h.Health)

	api := router.Group("/api")
	api.GET("/status", h.Status)
	api.GET("/events", h.Events)
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.POST("/messages", h.SendMessage)
	api.POST("/recording/start", h.StartRecording)
	api.POST("/recording/stop", h.StopRecording)
	api.GET("/audio/:ref", h.Audio)
	api.GET("/stream", h.Stream)
	api.POST("/logs", h.IngestLogs)
}
