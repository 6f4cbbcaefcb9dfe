package preflight

import "fmt"

// Platform errs unless goos is supported. The one-wire sysfs interface
// only exists on Linux.
func Platform(goos string) error {
	if goos != "linux" {
		return fmt.Errorf("unsupported platform %q: the w1 sysfs interface requires linux", goos)
	}
	return nil
}

// SensorHints lists the usual fixes when no sensor node resolves.
func SensorHints() []string {
	return []string{
		"modprobe w1-gpio",
		"modprobe w1-therm",
	}
}
