package conf

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDurationUnmarshal(t *testing.T) {
	var q Queue
	data := []byte(`{"driver":"kafka","max_attempts":3,"backoff":["10s","30s",60000000000]}`)
	if err := json.Unmarshal(data, &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []time.Duration{10 * time.Second, 30 * time.Second, time.Minute}
	if len(q.Backoff) != len(want) {
		t.Fatalf("backoff len = %d", len(q.Backoff))
	}
	for i, d := range q.Backoff {
		if d.AsDuration() != want[i] {
			t.Errorf("backoff[%d] = %v, want %v", i, d.AsDuration(), want[i])
		}
	}
}

func TestDurationUnmarshalInvalid(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"ten seconds"`), &d); err == nil {
		t.Fatal("expected error")
	}
	if err := json.Unmarshal([]byte(`true`), &d); err == nil {
		t.Fatal("expected error for bool")
	}
}

func TestNilDuration(t *testing.T) {
	var d *Duration
	if d.AsDuration() != 0 {
		t.Fatal("nil duration should be zero")
	}
}
