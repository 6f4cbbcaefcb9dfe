package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// String returns the release version, e.g. "0.3.0".
func String() string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "dev"
	}
	return v
}
