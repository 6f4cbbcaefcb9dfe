package telemetry

import (
	"testing"
	"time"
)

func TestFormatCelsius(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{23.562, "23.562"},
		{21.437, "21.437"},
		{21, "21.000"},
		{0, "0.000"},
		{-1.25, "-1.250"},
		{85, "85.000"},
	}
	for _, tc := range cases {
		if got := FormatCelsius(tc.in); got != tc.want {
			t.Errorf("FormatCelsius(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEncodePayload(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 34, 56, 0, time.UTC)
	got, err := EncodePayload(Reading{Timestamp: ts, Celsius: 21.437})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	want := `{"time":"12:34:56","temperature":"21.437"}`
	if string(got) != want {
		t.Errorf("payload = %s, want %s", got, want)
	}
}

func TestDecodePayloadRoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 1, 7, 5, 9, 0, time.UTC)
	raw, err := EncodePayload(Reading{Timestamp: ts, Celsius: -0.062})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	p, err := DecodePayload(raw)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.Time != "07:05:09" || p.Temperature != "-0.062" {
		t.Errorf("decoded %+v, want time 07:05:09 temperature -0.062", p)
	}
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	if _, err := DecodePayload([]byte("not json")); err == nil {
		t.Fatal("DecodePayload accepted garbage")
	}
}
