package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/metrics"
	"github.com/osse101/BrandishDuels_Go/internal/sse"
)

// EventHandlerDependencies holds the dependencies needed for event handler registration.
type EventHandlerDependencies struct {
	EventBus   event.Bus
	SSEHub     *sse.Hub
	Sessions   metrics.SessionCounter
	Registerer prometheus.Registerer
}

// RegisterEventHandlers sets up all event subscribers and live gauges:
// the metrics collector, the SSE bridge and the session gauges.
func RegisterEventHandlers(deps EventHandlerDependencies) error {
	metrics.NewEventMetricsCollector().Register(deps.EventBus)
	slog.Info(LogMsgMetricsCollectorRegistered)

	sse.NewSubscriber(deps.SSEHub, deps.EventBus).Subscribe(metrics.InstrumentHandler)
	slog.Info(LogMsgSSESubscriberRegistered)

	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := metrics.RegisterSessionGauges(reg, deps.Sessions); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedRegisterGauges, err)
	}
	return nil
}
