// Package w1 reads DS18B20 temperature sensors through the Linux
// one-wire sysfs interface.
package w1

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/danglock/ict-temperature/internal/telemetry"
)

// DefaultPattern matches the w1_slave node of DS18B20-family sensors
// (family code 28) on the one-wire bus.
const DefaultPattern = "/sys/bus/w1/devices/28*/w1_slave"

// ErrDeviceNotFound means no sensor node matched the device pattern.
var ErrDeviceNotFound = errors.New("w1: no temperature sensor found")

// Reader samples the first sensor resolved at Connect time. The handle
// set is fixed after Connect; replugged hardware needs a new Reader.
type Reader struct {
	devices []string
	now     func() time.Time
}

// Connect resolves pattern against the filesystem. Zero matches is a
// valid disconnected state; only a malformed pattern fails.
func Connect(pattern string) (*Reader, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("w1: bad device pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return &Reader{devices: matches, now: time.Now}, nil
}

// Connected reports whether at least one sensor node resolved.
func (r *Reader) Connected() bool { return len(r.devices) > 0 }

// DeviceID returns the bus address of the active sensor, e.g.
// "28-00000a94b2f3", or "" when disconnected.
func (r *Reader) DeviceID() string {
	if !r.Connected() {
		return ""
	}
	return filepath.Base(filepath.Dir(r.devices[0]))
}

// Read samples the sensor. It returns ErrDeviceNotFound when
// disconnected and a *ParseError when the node content deviates from
// the w1_slave format; it never fabricates a reading.
func (r *Reader) Read() (telemetry.Reading, error) {
	if !r.Connected() {
		return telemetry.Reading{}, ErrDeviceNotFound
	}
	dev := r.devices[0]
	raw, err := os.ReadFile(dev)
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("w1: read %s: %w", dev, err)
	}
	milli, err := parseMillidegrees(string(raw))
	if err != nil {
		return telemetry.Reading{}, err
	}
	return telemetry.Reading{
		Timestamp: r.now(),
		Celsius:   float64(milli) / 1000,
	}, nil
}
