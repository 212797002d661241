package handler

import (
	"wingmate/backend/internal/autopilot"
	"wingmate/backend/internal/logger"
	"wingmate/backend/internal/realtime"
	"wingmate/backend/internal/storage"
)

// Handler wires the HTTP surface to the services behind it.
type Handler struct {
	Log          *logger.Logger
	Storage      storage.Storage
	Hub          *realtime.Hub
	Orchestrator *autopilot.Orchestrator
	Generator    autopilot.Generator
	Broadcaster  *autopilot.Broadcaster

	jwtSecret []byte
}

func NewHandler(log *logger.Logger, s storage.Storage, hub *realtime.Hub, orch *autopilot.Orchestrator, gen autopilot.Generator, bc *autopilot.Broadcaster, jwtSecret string) *Handler {
	return &Handler{
		Log:          log.With("service", "HTTP"),
		Storage:      s,
		Hub:          hub,
		Orchestrator: orch,
		Generator:    gen,
		Broadcaster:  bc,
		jwtSecret:    []byte(jwtSecret),
	}
}
