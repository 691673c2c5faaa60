package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"netguard/internal/registry"
)

const (
	// SlowThreshold is the round-trip time above which a device is slow.
	SlowThreshold = 150 * time.Millisecond
	// ProbeTimeout is how long one probe waits for a reply.
	ProbeTimeout = 2 * time.Second
	// execGrace is added on top of ProbeTimeout before the ping process is
	// killed.
	execGrace = 1 * time.Second
)

// Prober performs one reachability check. It never returns an error: every
// failure is reported as an offline Result.
type Prober interface {
	Probe(ctx context.Context, address string) Result
}

// Offline is the result for any unreachable, timed out or failed probe.
func Offline(reason string) Result {
	return Result{Status: registry.StatusOffline, Latency: 0, Reason: reason}
}

// Unparsed is the result for a reply whose round-trip time could not be read.
func Unparsed() Result {
	return Result{Status: registry.StatusOnline, Latency: 1}
}

// Classify maps a measured round-trip time to a status. The RTT is truncated
// to whole milliseconds before the strictly greater-than comparison, so
// anything below 151ms is online.
func Classify(rtt time.Duration) Result {
	ms := int(rtt / time.Millisecond)
	if ms < 1 {
		// Sub-millisecond replies keep 0 reserved for unreachable.
		ms = 1
	}
	if ms > int(SlowThreshold/time.Millisecond) {
		return Result{Status: registry.StatusSlow, Latency: ms}
	}
	return Result{Status: registry.StatusOnline, Latency: ms}
}

// ExecProber runs the platform ping binary once per probe.
type ExecProber struct {
	goos    string
	binary  string
	timeout time.Duration
	logger  zerolog.Logger

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewExecProber(logger zerolog.Logger) *ExecProber {
	return &ExecProber{
		goos:    runtime.GOOS,
		binary:  "ping",
		timeout: ProbeTimeout,
		logger:  logger.With().Str("component", "prober").Logger(),
		run:     runCommand,
	}
}

// runCommand kills the process when ctx ends, so no ping outlives its
// deadline.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (p *ExecProber) Probe(ctx context.Context, address string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Str("address", address).Interface("panic", r).Msg("ping panicked")
			res = Offline("panic")
		}
	}()

	address = strings.TrimSpace(address)
	if address == "" || strings.HasPrefix(address, "-") {
		return Offline("invalid address")
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout+execGrace)
	defer cancel()

	out, err := p.run(runCtx, p.binary, pingArgs(p.goos, address, p.timeout)...)
	if err != nil {
		reason := classifyProbeError(err)
		if runCtx.Err() != nil {
			reason = classifyProbeError(runCtx.Err())
		}
		p.logger.Debug().Err(err).Str("address", address).Str("reason", reason).Msg("ping failed")
		return Offline(reason)
	}

	rtt, ok := ParseLatency(p.goos, string(out))
	if !ok {
		p.logger.Debug().Str("address", address).Msg("ping succeeded but latency was not found in output")
		return Unparsed()
	}
	return Classify(rtt)
}

// pingArgs builds a single-echo ping command line for goos.
func pingArgs(goos, address string, timeout time.Duration) []string {
	switch goos {
	case "windows":
		return []string{"-n", "1", "-w", fmt.Sprintf("%d", timeout.Milliseconds()), address}
	case "darwin", "freebsd", "openbsd", "netbsd":
		return []string{"-c", "1", "-t", fmt.Sprintf("%d", int(timeout.Seconds())), address}
	default:
		return []string{"-c", "1", "-W", fmt.Sprintf("%d", int(timeout.Seconds())), address}
	}
}

// classifyProbeError produces a short, stable reason for an offline result.
func classifyProbeError(err error) string {
	var (
		exitErr *exec.ExitError
		netErr  net.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, exec.ErrNotFound):
		return "exec"
	case errors.As(err, &exitErr):
		return "unreachable"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "error"
	}
}
