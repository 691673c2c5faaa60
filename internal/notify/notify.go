// Package notify forwards stored alerts to an external channel without
// holding up the monitoring loop.
package notify

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"netguard/internal/registry"
)

const (
	DefaultQueueSize = 64
	sendTimeout      = 10 * time.Second
)

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Dispatcher queues alerts and sends them from its own goroutine. When the
// queue is full new alerts are dropped.
type Dispatcher struct {
	sender  Sender
	queue   chan registry.Alert
	logger  zerolog.Logger
	dropped atomic.Uint64
}

func NewDispatcher(sender Sender, queueSize int, logger zerolog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		sender: sender,
		queue:  make(chan registry.Alert, queueSize),
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Notify enqueues a without blocking.
func (d *Dispatcher) Notify(_ context.Context, a registry.Alert) {
	select {
	case d.queue <- a:
	default:
		d.dropped.Add(1)
		d.logger.Warn().Str("device_id", a.DeviceID).Str("alert_id", a.ID).Msg("notification queue full; dropping alert")
	}
}

// Dropped returns how many alerts were discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Run sends queued alerts until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-d.queue:
			d.send(ctx, a)
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, a registry.Alert) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, FormatAlert(a)); err != nil {
		d.logger.Error().Err(err).Str("device_id", a.DeviceID).Msg("notification send failed")
	}
}

// FormatAlert renders an alert as a short chat message.
func FormatAlert(a registry.Alert) string {
	head := "🚨 OFFLINE"
	if a.Type == registry.AlertLatency {
		head = "🐢 SLOW"
	}

	return fmt.Sprintf("%s: %s (%s)\n%s\nAt: %s",
		head,
		a.DeviceName,
		a.DeviceIP,
		a.Message,
		time.UnixMilli(a.Timestamp).UTC().Format("2006-01-02 15:04 MST"),
	)
}
