// Package api exposes the engine-facing HTTP surface consumed by the
// external automation layer: event triggering and a health probe. Device
// administration stays with the external configuration service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elgs/gostrgen"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/virtcam/virtcam/internal/camera"
	"github.com/virtcam/virtcam/internal/discovery"
	"github.com/virtcam/virtcam/internal/events"
)

// Server is the trigger/health HTTP endpoint.
type Server struct {
	reg       *camera.Registry
	events    *events.Dispatcher
	responder *discovery.Responder
	log       zerolog.Logger
	port      int
	srv       *http.Server
}

// NewServer creates the API server.
func NewServer(reg *camera.Registry, ev *events.Dispatcher, responder *discovery.Responder, log zerolog.Logger, port int) *Server {
	return &Server{
		reg:       reg,
		events:    ev,
		responder: responder,
		log:       log.With().Str("component", "api").Logger(),
		port:      port,
	}
}

// requestID tags every request with a short random id for log correlation.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := gostrgen.RandGen(12, gostrgen.Lower|gostrgen.Upper|gostrgen.Digit, "", "")
		if err != nil {
			id = "unknown"
		}
		c.Set("request_id", id)
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("api request")
	}
}

type triggerRequest struct {
	DeviceID  string `json:"device_id" binding:"required"`
	EventType string `json:"event_type" binding:"required"`
	State     bool   `json:"state"`
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestID())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"services": gin.H{
				"discovery":     s.responder.State().String(),
				"devices":       s.reg.Len(),
				"subscriptions": len(s.events.Subscriptions()),
			},
		})
	})

	router.POST("/api/trigger-event", func(c *gin.Context) {
		var req triggerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		s.events.Trigger(req.DeviceID, req.EventType, req.State)
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	return router
}

// Start brings up the listener.
func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("api listener starting")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("api listener failed")
		}
	}()
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
