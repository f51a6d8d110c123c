// Command virtcam runs the virtual ONVIF camera engine: the SOAP
// dispatcher, the WS-Discovery responder, the event notification
// dispatcher, and the trigger/health API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/virtcam/virtcam/internal/api"
	"github.com/virtcam/virtcam/internal/camera"
	"github.com/virtcam/virtcam/internal/config"
	"github.com/virtcam/virtcam/internal/discovery"
	"github.com/virtcam/virtcam/internal/events"
	"github.com/virtcam/virtcam/internal/netutil"
	"github.com/virtcam/virtcam/internal/onvif"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		log = log.Level(level)
	}

	log.Info().Msg("starting virtual onvif camera engine")

	reg := camera.NewRegistry(log)
	for _, dev := range cfg.Devices {
		if !dev.Enabled {
			continue
		}
		if err := reg.Upsert(dev); err != nil {
			log.Warn().Err(err).Str("id", dev.ID).Msg("skipping invalid seed device")
		}
	}

	dispatcher := events.NewDispatcher(reg, log,
		events.WithSubscriptionTTL(cfg.Events.SubscriptionTTL.Std()),
		events.WithDeliveryTimeout(cfg.Events.DeliveryTimeout.Std()),
	)

	serverIP := netutil.LocalIP()
	soapServer := onvif.NewServer(reg, dispatcher, log,
		onvif.WithServerIP(serverIP),
		onvif.WithPorts(cfg.Server.DevicePort, cfg.Server.MediaPort),
	)
	if err := soapServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start soap dispatcher")
	}

	responder := discovery.NewResponder(reg, log,
		cfg.Discovery.MulticastAddress,
		netutil.ServiceAddr(serverIP, cfg.Server.DevicePort, "/onvif/device_service"),
	)
	if cfg.Discovery.Enabled {
		if err := responder.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start discovery responder")
		}
		if err := responder.SendHello(); err != nil {
			log.Warn().Err(err).Msg("hello announcement failed")
		}
	}

	apiServer := api.NewServer(reg, dispatcher, responder, log, cfg.Server.APIPort)
	apiServer.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	if cfg.Discovery.Enabled {
		if err := responder.SendBye(); err != nil {
			log.Warn().Err(err).Msg("bye announcement failed")
		}
		responder.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := soapServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("soap dispatcher shutdown failed")
	}
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("api server shutdown failed")
	}

	log.Info().Msg("engine stopped")
}
