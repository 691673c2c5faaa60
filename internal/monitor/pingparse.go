package monitor

import (
	"regexp"
	"strconv"
	"time"
)

var (
	unixTimeRe    = regexp.MustCompile(`time=([\d.]+)\s*ms`)
	windowsAvgRe  = regexp.MustCompile(`Average = (\d+)ms`)
	windowsTimeRe = regexp.MustCompile(`time[=<](\d+)ms`)
)

// ParseLatency extracts the round-trip time from ping output produced on goos.
// The second return is false when no time could be found.
func ParseLatency(goos, output string) (time.Duration, bool) {
	var m []string
	if goos == "windows" {
		m = windowsAvgRe.FindStringSubmatch(output)
		if m == nil {
			m = windowsTimeRe.FindStringSubmatch(output)
		}
	} else {
		m = unixTimeRe.FindStringSubmatch(output)
	}
	if m == nil {
		return 0, false
	}

	ms, err := strconv.ParseFloat(m[1], 64)
	if err != nil || ms < 0 {
		return 0, false
	}
	return time.Duration(ms * float64(time.Millisecond)), true
}
