package monitor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"netguard/internal/registry"
)

// Emitter persists a probe outcome and records the alert and fault log a
// transition produces.
type Emitter struct {
	store    Registry
	notifier Notifier
	metrics  *Metrics
	logger   zerolog.Logger

	newID func() string
}

func NewEmitter(store Registry, notifier Notifier, metrics *Metrics, logger zerolog.Logger) *Emitter {
	return &Emitter{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.With().Str("component", "emitter").Logger(),
		newID:    uuid.NewString,
	}
}

// Apply writes the observed state of d and, if the change is alertable,
// appends one alert and one fault log entry.
//
// Order matters: state first, then alert, then fault log. If the state write
// fails nothing else is recorded and the same transition is detected again
// on the next cycle. A fault log is only written for a stored alert.
func (e *Emitter) Apply(ctx context.Context, d registry.Device, res Result, checkedAt int64) (Decision, error) {
	dec := Evaluate(d.Status, res)

	if err := e.store.UpdateDeviceState(ctx, d.ID, res.Status, res.Latency, checkedAt); err != nil {
		return dec, fmt.Errorf("update state of %s: %w", d.ID, err)
	}

	log := e.logger.With().
		Str("device_id", d.ID).
		Str("device", d.Name).
		Str("ip", d.IP).
		Logger()

	if dec.Recovered {
		if e.metrics != nil {
			e.metrics.RecoveriesTotal.Inc()
		}
		log.Info().Int("latency_ms", res.Latency).Msg("device recovered")
	}
	if dec.Alert == nil {
		if dec.Changed() {
			log.Debug().
				Str("from", string(dec.Previous)).
				Str("to", string(dec.Current)).
				Msg("status changed")
		}
		return dec, nil
	}

	alert := registry.Alert{
		ID:         e.newID(),
		DeviceID:   d.ID,
		DeviceName: d.Name,
		DeviceIP:   d.IP,
		Type:       dec.Alert.Type,
		Message:    dec.Alert.Message,
		Timestamp:  checkedAt,
		Status:     registry.AlertStatusActive,
	}
	if err := e.store.AppendAlert(ctx, alert); err != nil {
		return dec, fmt.Errorf("append alert for %s: %w", d.ID, err)
	}

	entry := registry.FaultLogEntry{
		DeviceID:    d.ID,
		DeviceName:  d.Name,
		DeviceIP:    d.IP,
		FaultType:   dec.Alert.Type,
		Description: dec.Alert.Description,
		Timestamp:   checkedAt,
	}
	if err := e.store.AppendFaultLog(ctx, entry); err != nil {
		return dec, fmt.Errorf("append fault log for %s: %w", d.ID, err)
	}

	if e.metrics != nil {
		e.metrics.AlertsTotal.WithLabelValues(string(alert.Type)).Inc()
	}
	log.Warn().
		Str("type", string(alert.Type)).
		Str("from", string(dec.Previous)).
		Str("to", string(dec.Current)).
		Msg(alert.Message)

	if e.notifier != nil {
		e.notifier.Notify(ctx, alert)
	}
	return dec, nil
}
