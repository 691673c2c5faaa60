package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"netguard/internal/registry"
	"netguard/internal/snapshot"
)

// outcome is what processing one device produced.
type outcome struct {
	status  registry.Status
	alerted bool
	// deleted is set when the device vanished between listing and writing.
	deleted bool
	err     error
}

// RunCycle performs one scan over every monitored device and publishes the
// cycle summary. The returned error is only set when the cycle could not
// start; per-device failures are counted in the summary instead.
func (s *Scheduler) RunCycle(ctx context.Context) (snapshot.Cycle, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	cyc := snapshot.Cycle{Seq: s.seq.Add(1), StartedAt: s.now()}

	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		err = fmt.Errorf("list devices: %w", err)
		return s.publish(cyc, err), err
	}
	cyc.Devices = len(devices)

	// rate.Every(0) is rate.Inf, so zero pacing never waits.
	limiter := rate.NewLimiter(rate.Every(s.cfg.Pacing), 1)

	var (
		g  errgroup.Group
		mu sync.Mutex
		// unmonitored is only touched by this goroutine; workers update cyc
		// under mu.
		unmonitored int
	)
	g.SetLimit(s.cfg.Workers)

	for _, d := range devices {
		if !d.IsMonitored {
			unmonitored++
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			// Shutting down: remaining devices keep their state.
			break
		}

		g.Go(func() error {
			out := s.processDevice(ctx, d)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case out.err != nil:
				cyc.Failed++
			case out.deleted:
				cyc.Skipped++
			default:
				cyc.Probed++
				switch out.status {
				case registry.StatusOnline:
					cyc.Online++
				case registry.StatusSlow:
					cyc.Slow++
				case registry.StatusOffline:
					cyc.Offline++
				}
				if out.alerted {
					cyc.Alerts++
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	cyc.Skipped += unmonitored

	s.metrics.DevicesByStatus.WithLabelValues(string(registry.StatusOnline)).Set(float64(cyc.Online))
	s.metrics.DevicesByStatus.WithLabelValues(string(registry.StatusSlow)).Set(float64(cyc.Slow))
	s.metrics.DevicesByStatus.WithLabelValues(string(registry.StatusOffline)).Set(float64(cyc.Offline))

	cyc = s.publish(cyc, nil)
	s.logger.Info().
		Uint64("seq", cyc.Seq).
		Int("devices", cyc.Devices).
		Int("probed", cyc.Probed).
		Int("skipped", cyc.Skipped).
		Int("failed", cyc.Failed).
		Int("alerts", cyc.Alerts).
		Int64("duration_ms", cyc.DurationMs).
		Msg("scan completed")
	return cyc, nil
}

// processDevice probes d and applies the transition. Any panic or error is
// contained here so one bad device never stops the others.
func (s *Scheduler) processDevice(ctx context.Context, d registry.Device) (out outcome) {
	log := s.logger.With().Str("device_id", d.ID).Str("ip", d.IP).Logger()

	defer func() {
		if r := recover(); r != nil {
			s.metrics.DeviceFailures.Inc()
			log.Error().Interface("panic", r).Msg("device processing panicked")
			out = outcome{err: fmt.Errorf("panic: %v", r)}
		}
	}()

	res := s.prober.Probe(ctx, d.IP)
	if ctx.Err() != nil {
		// A probe cut short by shutdown says nothing about the device.
		return outcome{err: ctx.Err()}
	}
	if !res.Status.Valid() {
		res = Offline("invalid result")
	}

	s.metrics.ProbesTotal.WithLabelValues(string(res.Status)).Inc()
	if res.Status != registry.StatusOffline {
		s.metrics.ProbeLatency.Observe(float64(res.Latency))
	}

	checkedAt := s.now().UnixMilli()
	if checkedAt < d.LastChecked {
		checkedAt = d.LastChecked
	}

	dec, err := s.emitter.Apply(ctx, d, res, checkedAt)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			log.Debug().Msg("device removed during cycle")
			return outcome{deleted: true}
		}
		s.metrics.DeviceFailures.Inc()
		log.Error().Err(err).Msg("device update failed")
		return outcome{err: err}
	}

	log.Debug().
		Str("status", string(res.Status)).
		Int("latency_ms", res.Latency).
		Str("reason", res.Reason).
		Msg("probed")
	return outcome{status: dec.Current, alerted: dec.Alert != nil}
}
