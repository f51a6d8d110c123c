// Package onvif implements the SOAP side of the virtual camera: an HTTP
// dispatcher that routes ONVIF device, media, and event requests to
// per-operation handlers and renders SOAP 1.2 envelopes.
package onvif

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/virtcam/virtcam/internal/camera"
	"github.com/virtcam/virtcam/internal/events"
	"github.com/virtcam/virtcam/internal/netutil"
	"github.com/virtcam/virtcam/internal/soap"
)

// operation answers one SOAP request body with a response envelope.
type operation func(body []byte) string

// Server dispatches ONVIF SOAP requests. Device and event services listen
// on one port, media on another, matching the addresses advertised in
// GetCapabilities; all three share the same router.
type Server struct {
	reg    *camera.Registry
	events *events.Dispatcher
	log    zerolog.Logger

	serverIP   string
	devicePort int
	mediaPort  int

	deviceSrv *http.Server
	mediaSrv  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithServerIP overrides the advertised host address, for tests.
func WithServerIP(ip string) Option {
	return func(s *Server) { s.serverIP = ip }
}

// WithPorts sets the device/event and media listening ports.
func WithPorts(devicePort, mediaPort int) Option {
	return func(s *Server) {
		s.devicePort = devicePort
		s.mediaPort = mediaPort
	}
}

// NewServer creates the SOAP dispatcher.
func NewServer(reg *camera.Registry, ev *events.Dispatcher, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		reg:        reg,
		events:     ev,
		log:        log.With().Str("component", "onvif").Logger(),
		serverIP:   netutil.LocalIP(),
		devicePort: 8081,
		mediaPort:  8082,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine serving all three ONVIF services.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/onvif/device_service", func(c *gin.Context) {
		s.dispatch(c, "device", s.deviceOperations())
	})
	router.POST("/onvif/media_service", func(c *gin.Context) {
		s.dispatch(c, "media", s.mediaOperations())
	})
	router.POST("/onvif/event_service", func(c *gin.Context) {
		s.dispatch(c, "event", s.eventOperations(""))
	})
	router.POST("/onvif/subscription/:id", func(c *gin.Context) {
		s.dispatch(c, "event", s.eventOperations(c.Param("id")))
	})

	// Unknown service paths still answer with an application-level fault.
	router.NoRoute(func(c *gin.Context) {
		c.Header("Content-Type", soap.ContentType)
		c.String(http.StatusOK, soap.Fault("Unknown service"))
	})

	return router
}

// dispatch reads the request, identifies the operation, and writes the
// response envelope. SOAP faults keep HTTP 200; only transport-level
// failures surface as HTTP 500.
func (s *Server) dispatch(c *gin.Context, service string, ops map[string]operation) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.log.Error().Err(err).Str("service", service).Msg("failed to read request body")
		c.Status(http.StatusInternalServerError)
		return
	}

	action := soap.Action(body)
	if action == "" {
		// Not parseable XML: fall back to token presence, matching how
		// permissive camera firmware routes real-world client requests.
		for name := range ops {
			if soap.HasToken(body, name) {
				action = name
				break
			}
		}
	}

	handler, ok := ops[action]
	if !ok {
		s.log.Debug().Str("service", service).Str("action", action).Msg("unsupported operation")
		c.Header("Content-Type", soap.ContentType)
		c.String(http.StatusOK, soap.Fault(fmt.Sprintf("Unsupported %s operation", service)))
		return
	}

	s.log.Debug().Str("service", service).Str("action", action).Msg("handling request")
	c.Header("Content-Type", soap.ContentType)
	c.String(http.StatusOK, handler(body))
}

// activeDevice returns the active device, or a zero record so handlers
// render empty field values when the registry is empty.
func (s *Server) activeDevice() camera.Device {
	dev, _ := s.reg.Active()
	return dev
}

func (s *Server) deviceServiceAddr() string {
	return netutil.ServiceAddr(s.serverIP, s.devicePort, "/onvif/device_service")
}

func (s *Server) eventServiceAddr() string {
	return netutil.ServiceAddr(s.serverIP, s.devicePort, "/onvif/event_service")
}

func (s *Server) mediaServiceAddr() string {
	return netutil.ServiceAddr(s.serverIP, s.mediaPort, "/onvif/media_service")
}

// Start brings up both HTTP listeners. Serve errors after a clean Shutdown
// are suppressed.
func (s *Server) Start() error {
	router := s.Router()

	s.deviceSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.devicePort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mediaSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.mediaPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	for _, srv := range []*http.Server{s.deviceSrv, s.mediaSrv} {
		srv := srv
		go func() {
			s.log.Info().Str("addr", srv.Addr).Msg("soap listener starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.Error().Err(err).Str("addr", srv.Addr).Msg("soap listener failed")
			}
		}()
	}
	return nil
}

// Shutdown stops both listeners, waiting up to the context deadline for
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, srv := range []*http.Server{s.deviceSrv, s.mediaSrv} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = errors.Annotate(err, "shutting down soap listener")
		}
	}
	return firstErr
}
