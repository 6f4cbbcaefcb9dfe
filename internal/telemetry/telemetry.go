// Package telemetry defines the sensor reading model and the wire
// payload published to the queue.
package telemetry

import (
	"encoding/json"
	"strconv"
	"time"
)

// Reading is one calibrated sensor sample. Readings only come from
// successfully parsed sensor content; there is no zero-value "unknown"
// reading in the pipeline.
type Reading struct {
	Timestamp time.Time
	Celsius   float64
}

// PublishResult reports the outcome of a single publish attempt.
// Failures are data, not errors: the monitor records them and carries on.
type PublishResult struct {
	OK     bool
	Detail string
}

// Payload is the fixed queue message schema. Both values are JSON
// strings and downstream consumers rely on the field order.
type Payload struct {
	Time        string `json:"time"`
	Temperature string `json:"temperature"`
}

// FormatCelsius renders a temperature at the sensor's native
// millidegree resolution: "21.437", "21.000", "-1.250".
func FormatCelsius(c float64) string {
	return strconv.FormatFloat(c, 'f', 3, 64)
}

// Clock renders the wall-clock part of a timestamp as HH:MM:SS.
func Clock(t time.Time) string {
	return t.Format("15:04:05")
}

// EncodePayload serializes r into the queue wire format.
func EncodePayload(r Reading) ([]byte, error) {
	return json.Marshal(Payload{
		Time:        Clock(r.Timestamp),
		Temperature: FormatCelsius(r.Celsius),
	})
}

// DecodePayload parses a queue message back into its fields.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, err
	}
	return p, nil
}
