package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danglock/ict-temperature/internal/readings"
	"github.com/danglock/ict-temperature/internal/telemetry"
)

func testInfo() Info {
	return Info{
		DevicePattern:   "/sys/bus/w1/devices/28*/w1_slave",
		DeviceID:        "28-00000a94b2f3",
		DeviceConnected: true,
		QueueDriver:     "nats",
		QueueName:       "my_queue",
		Interval:        5 * time.Minute,
	}
}

func sample(sec int, c float64) telemetry.Reading {
	return telemetry.Reading{
		Timestamp: time.Date(2025, 6, 1, 12, 0, sec, 0, time.UTC),
		Celsius:   c,
	}
}

func TestHealthz(t *testing.T) {
	h := New(readings.NewStore(4), testInfo()).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q, want 200 ok", rec.Code, rec.Body.String())
	}
}

func TestVersion(t *testing.T) {
	h := New(readings.NewStore(4), testInfo()).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Errorf("version = %d %q, want a version string", rec.Code, rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	store := readings.NewStore(4)
	store.Add(sample(0, 21.437))
	store.NotePublish(telemetry.PublishResult{OK: false, Detail: "broker gone"})

	h := New(store, testInfo()).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body["device_id"] != "28-00000a94b2f3" || body["queue_name"] != "my_queue" {
		t.Errorf("status identity fields wrong: %v", body)
	}
	if body["ticks"] != float64(1) || body["publish_fail"] != float64(1) {
		t.Errorf("status counters wrong: %v", body)
	}
	if body["last_error"] != "broker gone" {
		t.Errorf("last_error = %v, want broker gone", body["last_error"])
	}
	if _, ok := body["last_reading"]; !ok {
		t.Error("status missing last_reading")
	}
}

func TestReadingsLimit(t *testing.T) {
	store := readings.NewStore(8)
	for i, c := range []float64{20.0, 20.5, 21.0} {
		store.Add(sample(i, c))
	}

	h := New(store, testInfo()).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/readings?limit=2", nil))

	var got []readings.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode readings: %v", err)
	}
	if len(got) != 2 || got[1].Celsius != 21.0 {
		t.Errorf("readings = %+v, want the newest two", got)
	}
}

func TestReadingsEmptyIsJSONArray(t *testing.T) {
	h := New(readings.NewStore(4), testInfo()).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/readings", nil))

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty readings = %q, want []", got)
	}
}

func TestStreamSendsCurrentReading(t *testing.T) {
	store := readings.NewStore(4)
	store.Add(sample(0, 21.437))

	srv := httptest.NewServer(New(store, testInfo()).Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/readings", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("content-type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type = %q", ct)
	}

	var event, data string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if event != "reading" {
		t.Errorf("event = %q, want reading", event)
	}
	var e readings.Entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		t.Fatalf("decode event data %q: %v", data, err)
	}
	if e.Celsius != 21.437 {
		t.Errorf("streamed celsius = %v, want 21.437", e.Celsius)
	}
}
