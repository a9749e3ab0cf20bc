package hostchannel

import (
	"context"
	"log/slog"

	"github.com/yndnr/snapcoord/internal/protocol/wire"
)

// EventSink applies decoded host events.
type EventSink interface {
	HandleEvent(ev wire.HostEvent) error
}

// EventHandler serves the host event socket. It implements
// localserver.Handler.
type EventHandler struct {
	sink     EventSink
	features wire.Features
	metrics  Metrics
	logger   *slog.Logger
}

// NewEventHandler creates a handler accepting the event families enabled
// in features. A nil metrics or logger falls back to a no-op or the default.
func NewEventHandler(sink EventSink, features wire.Features, metrics Metrics, logger *slog.Logger) *EventHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{
		sink:     sink,
		features: features,
		metrics:  metrics,
		logger:   logger,
	}
}

// FrameSize implements localserver.Handler.
func (h *EventHandler) FrameSize() int {
	return wire.ControlRequestSize
}

// ServeFrame implements localserver.Handler. Every frame gets a response;
// events that fail to decode or that the coordinator refuses are answered
// with ResponseRejected.
func (h *EventHandler) ServeFrame(_ context.Context, frame []byte) ([]byte, error) {
	resp := wire.ControlResponse{Response: h.Handle(frame)}
	return resp.MarshalBinary()
}

// Handle decodes and applies one control request frame and returns the
// response code.
func (h *EventHandler) Handle(frame []byte) uint8 {
	req, err := wire.DecodeControlRequest(frame)
	if err != nil {
		h.metrics.HostEvent("unknown", "malformed")
		h.logger.Warn("malformed host event", "error", err)
		return wire.ResponseRejected
	}

	ev, err := wire.ParseHostEvent(req, h.features)
	if err != nil {
		h.metrics.HostEvent("unknown", "invalid")
		h.logger.Warn("host event rejected",
			"type", req.Type,
			"subtype", req.Subtype,
			"error", err)
		return wire.ResponseRejected
	}

	if err := h.sink.HandleEvent(ev); err != nil {
		h.metrics.HostEvent(ev.Kind.String(), "refused")
		h.logger.Info("host event refused",
			"event", ev.Kind.String(),
			"scope", ev.Scope.String(),
			"correlation", ev.Correlation,
			"error", err)
		return wire.ResponseRejected
	}

	h.metrics.HostEvent(ev.Kind.String(), "accepted")
	return wire.ResponseOK
}
