package monitor

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netguard/internal/registry"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		rtt     time.Duration
		status  registry.Status
		latency int
	}{
		{"sub millisecond", 300 * time.Microsecond, registry.StatusOnline, 1},
		{"fast", 12 * time.Millisecond, registry.StatusOnline, 12},
		{"exactly threshold", 150 * time.Millisecond, registry.StatusOnline, 150},
		{"truncates to threshold", 150*time.Millisecond + 400*time.Microsecond, registry.StatusOnline, 150},
		{"truncates just below 151", 150*time.Millisecond + 900*time.Microsecond, registry.StatusOnline, 150},
		{"just above threshold", 151 * time.Millisecond, registry.StatusSlow, 151},
		{"very slow", 1800 * time.Millisecond, registry.StatusSlow, 1800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(tt.rtt)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.latency, res.Latency)
		})
	}
}

func TestOffline(t *testing.T) {
	res := Offline("timeout")
	assert.Equal(t, registry.StatusOffline, res.Status)
	assert.Zero(t, res.Latency)
	assert.Equal(t, "timeout", res.Reason)
}

const (
	linuxOutput = `PING 8.8.8.8 (8.8.8.8) 56(84) bytes of data.
64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=12.3 ms

--- 8.8.8.8 ping statistics ---
1 packets transmitted, 1 received, 0% packet loss, time 0ms
rtt min/avg/max/mdev = 12.345/12.345/12.345/0.000 ms
`
	darwinOutput = `PING 1.1.1.1 (1.1.1.1): 56 data bytes
64 bytes from 1.1.1.1: icmp_seq=0 ttl=58 time=9.412 ms

--- 1.1.1.1 ping statistics ---
1 packets transmitted, 1 packets received, 0.0% packet loss
round-trip min/avg/max/stddev = 9.412/9.412/9.412/0.000 ms
`
	windowsOutput = `
Pinging 8.8.8.8 with 32 bytes of data:
Reply from 8.8.8.8: bytes=32 time=14ms TTL=117

Ping statistics for 8.8.8.8:
    Packets: Sent = 1, Received = 1, Lost = 0 (0% loss),
Approximate round trip times in milli-seconds:
    Minimum = 14ms, Maximum = 14ms, Average = 14ms
`
	windowsReplyOnly = `Reply from 192.168.1.1: bytes=32 time<1ms TTL=64`
	timedOutOutput   = `Request timed out.`
)

func TestParseLatency(t *testing.T) {
	tests := []struct {
		name   string
		goos   string
		output string
		want   time.Duration
		ok     bool
	}{
		{"linux", "linux", linuxOutput, 12300 * time.Microsecond, true},
		{"darwin", "darwin", darwinOutput, 9412 * time.Microsecond, true},
		{"windows average", "windows", windowsOutput, 14 * time.Millisecond, true},
		{"windows reply below 1ms", "windows", windowsReplyOnly, 1 * time.Millisecond, true},
		{"no reply", "linux", timedOutOutput, 0, false},
		{"windows format on linux", "linux", windowsOutput, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLatency(tt.goos, tt.output)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, float64(tt.want), float64(got), float64(time.Microsecond))
		})
	}
}

func TestPingArgs(t *testing.T) {
	assert.Equal(t, []string{"-c", "1", "-W", "2", "8.8.8.8"}, pingArgs("linux", "8.8.8.8", 2*time.Second))
	assert.Equal(t, []string{"-c", "1", "-t", "2", "8.8.8.8"}, pingArgs("darwin", "8.8.8.8", 2*time.Second))
	assert.Equal(t, []string{"-n", "1", "-w", "2000", "8.8.8.8"}, pingArgs("windows", "8.8.8.8", 2*time.Second))
}

func newTestExecProber(run func(ctx context.Context, name string, args ...string) ([]byte, error)) *ExecProber {
	p := NewExecProber(zerolog.Nop())
	p.goos = "linux"
	p.run = run
	return p
}

func TestExecProber_Probe(t *testing.T) {
	ctx := context.Background()

	t.Run("reply", func(t *testing.T) {
		var gotArgs []string
		p := newTestExecProber(func(_ context.Context, name string, args ...string) ([]byte, error) {
			assert.Equal(t, "ping", name)
			gotArgs = args
			return []byte(linuxOutput), nil
		})
		res := p.Probe(ctx, "8.8.8.8")
		assert.Equal(t, Result{Status: registry.StatusOnline, Latency: 12}, res)
		assert.Equal(t, "8.8.8.8", gotArgs[len(gotArgs)-1])
	})

	t.Run("fractional reply at threshold", func(t *testing.T) {
		for _, out := range []string{"time=150.4 ms", "time=150.6 ms"} {
			p := newTestExecProber(func(context.Context, string, ...string) ([]byte, error) {
				return []byte("64 bytes from 10.0.0.1: icmp_seq=1 ttl=60 " + out), nil
			})
			assert.Equal(t, Result{Status: registry.StatusOnline, Latency: 150}, p.Probe(ctx, "10.0.0.1"), out)
		}
	})

	t.Run("slow reply", func(t *testing.T) {
		p := newTestExecProber(func(context.Context, string, ...string) ([]byte, error) {
			return []byte("64 bytes from 10.0.0.1: icmp_seq=1 ttl=60 time=200 ms"), nil
		})
		res := p.Probe(ctx, "10.0.0.1")
		assert.Equal(t, registry.StatusSlow, res.Status)
		assert.Equal(t, 200, res.Latency)
	})

	t.Run("success without time", func(t *testing.T) {
		p := newTestExecProber(func(context.Context, string, ...string) ([]byte, error) {
			return []byte("1 packets transmitted, 1 received"), nil
		})
		assert.Equal(t, Unparsed(), p.Probe(ctx, "10.0.0.1"))
	})

	t.Run("command failure", func(t *testing.T) {
		p := newTestExecProber(func(context.Context, string, ...string) ([]byte, error) {
			return []byte(timedOutOutput), errors.New("exit status 1")
		})
		res := p.Probe(ctx, "10.0.0.1")
		assert.Equal(t, registry.StatusOffline, res.Status)
		assert.Zero(t, res.Latency)
	})

	t.Run("deadline", func(t *testing.T) {
		p := newTestExecProber(func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		res := p.Probe(short, "10.0.0.1")
		assert.Equal(t, Offline("timeout"), res)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("invalid address never runs", func(t *testing.T) {
		called := false
		p := newTestExecProber(func(context.Context, string, ...string) ([]byte, error) {
			called = true
			return nil, nil
		})
		assert.Equal(t, registry.StatusOffline, p.Probe(ctx, "").Status)
		assert.Equal(t, registry.StatusOffline, p.Probe(ctx, "-f").Status)
		assert.False(t, called)
	})

	t.Run("panic becomes offline", func(t *testing.T) {
		p := newTestExecProber(func(context.Context, string, ...string) ([]byte, error) {
			panic("boom")
		})
		require.NotPanics(t, func() {
			assert.Equal(t, Offline("panic"), p.Probe(ctx, "10.0.0.1"))
		})
	})
}

func TestClassifyProbeError(t *testing.T) {
	assert.Equal(t, "timeout", classifyProbeError(context.DeadlineExceeded))
	assert.Equal(t, "canceled", classifyProbeError(context.Canceled))
	assert.Equal(t, "exec", classifyProbeError(&exec.Error{Name: "ping", Err: exec.ErrNotFound}))
	assert.Equal(t, "unreachable", classifyProbeError(&exec.ExitError{}))
	assert.Equal(t, "error", classifyProbeError(errors.New("something else")))
}
