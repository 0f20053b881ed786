package telemetry

import (
	"errors"
	"testing"
	"time"

	"controlling_incubator/internal/history"
	"controlling_incubator/internal/models"
)

const topic = "topic/penetasan/status"

var at = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newProc(maxPoints int) (*Processor, *history.Buffer) {
	buf := history.NewBuffer(maxPoints)
	return NewProcessor(buf, Options{}, nil), buf
}

func TestDecode_Coercion(t *testing.T) {
	f, err := Decode(topic, []byte(`{"temperature":"37.5","humidity":61,"power":"80","rotate_on":1.0,"SET":38,"extra":"x"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Temperature == nil || *f.Temperature != 37.5 {
		t.Fatalf("temperature not coerced: %+v", f.Temperature)
	}
	if f.Humidity == nil || *f.Humidity != 61 {
		t.Fatalf("humidity not coerced")
	}
	if f.Power == nil || *f.Power != 80 {
		t.Fatalf("power not coerced")
	}
	if f.RotateFlag == nil || *f.RotateFlag != 1 {
		t.Fatalf("rotate flag not coerced")
	}
	if f.Setpoint == nil || *f.Setpoint != 38 {
		t.Fatalf("setpoint not coerced")
	}
	if len(f.Skipped) != 0 {
		t.Fatalf("expected nothing skipped, got %v", f.Skipped)
	}
}

func TestDecode_BadValuesSkipped(t *testing.T) {
	f, err := Decode(topic, []byte(`{"temperature":"hot","humidity":null,"power":true,"rotate_on":"NaN"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Empty() {
		t.Fatalf("expected no usable fields, got %+v", f)
	}
	if len(f.Skipped) != 4 {
		t.Fatalf("expected 4 skipped keys, got %v", f.Skipped)
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, raw := range []string{`{"temperature": 37.`, `not json`, `[1,2]`, `null`, ``} {
		_, err := Decode(topic, []byte(raw))
		var de *models.DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("payload %q: expected DecodeError, got %v", raw, err)
		}
	}
}

func TestProcessor_EndToEndReading(t *testing.T) {
	p, buf := newProc(10)

	upd, ok := p.Handle(topic, []byte(`{"temperature": 37.9, "humidity": 61.2, "power": 80, "rotate_on": 1}`), at)
	if !ok {
		t.Fatalf("expected payload accepted")
	}
	r := upd.Reading
	if r.Temperature != 37.9 || r.Humidity != 61.2 || r.Power != 80 || r.RotateFlag != 1 {
		t.Fatalf("unexpected reading %+v", r)
	}
	if !r.Timestamp.Equal(at) {
		t.Fatalf("expected receipt timestamp, got %v", r.Timestamp)
	}
	if !upd.Recorded || buf.Len() != 1 {
		t.Fatalf("expected first reading recorded, len=%d", buf.Len())
	}
}

func TestProcessor_PartialMerge(t *testing.T) {
	p, _ := newProc(10)
	p.Handle(topic, []byte(`{"temperature": 37.0, "humidity": 60, "power": 50, "rotate_on": 0}`), at)

	upd, ok := p.Handle(topic, []byte(`{"power": 90}`), at.Add(time.Second))
	if !ok {
		t.Fatalf("expected partial payload accepted")
	}
	r := upd.Reading
	if r.Temperature != 37.0 || r.Humidity != 60 || r.Power != 90 {
		t.Fatalf("partial merge lost fields: %+v", r)
	}
}

func TestProcessor_MalformedLeavesReadingUnchanged(t *testing.T) {
	p, buf := newProc(10)
	p.Handle(topic, []byte(`{"temperature": 37.0, "humidity": 60}`), at)
	before := p.Reading()

	if _, ok := p.Handle(topic, []byte(`{"temperature": 99`), at.Add(time.Second)); ok {
		t.Fatalf("expected truncated payload rejected")
	}
	if p.Reading() != before {
		t.Fatalf("reading changed: before %+v after %+v", before, p.Reading())
	}
	if buf.Len() != 1 {
		t.Fatalf("history changed on malformed payload")
	}
}

func TestProcessor_SignificantChange(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"tiny temperature drift", `{"temperature": 37.05}`, false},
		{"just under threshold", `{"temperature": 37.08}`, false},
		{"temperature above threshold", `{"temperature": 37.2}`, true},
		{"tiny humidity drift", `{"humidity": 60.4}`, false},
		{"humidity above threshold", `{"humidity": 60.6}`, true},
		{"power only", `{"power": 10}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, buf := newProc(10)
			p.Handle(topic, []byte(`{"temperature": 37.0, "humidity": 60.0}`), at)

			upd, ok := p.Handle(topic, []byte(tt.payload), at.Add(time.Second))
			if !ok {
				t.Fatalf("payload rejected")
			}
			if upd.Recorded != tt.want {
				t.Fatalf("expected recorded=%v, got %v", tt.want, upd.Recorded)
			}
			wantLen := 1
			if tt.want {
				wantLen = 2
			}
			if buf.Len() != wantLen {
				t.Fatalf("expected %d history points, got %d", wantLen, buf.Len())
			}
		})
	}
}

func TestProcessor_SlowDriftComparesPreviousReading(t *testing.T) {
	p, buf := newProc(10)
	steps := []struct {
		payload string
		want    bool
	}{
		{`{"temperature": 37.0, "humidity": 60.0}`, true},
		{`{"temperature": 37.05}`, false},
		{`{"temperature": 37.12}`, false},
		{`{"humidity": 60.4}`, false},
		{`{"humidity": 60.8}`, false},
		{`{"temperature": 37.3}`, true},
	}
	for i, s := range steps {
		upd, ok := p.Handle(topic, []byte(s.payload), at.Add(time.Duration(i)*time.Second))
		if !ok {
			t.Fatalf("step %d: payload rejected", i)
		}
		if upd.Recorded != s.want {
			t.Fatalf("step %d (%s): recorded=%v, want %v", i, s.payload, upd.Recorded, s.want)
		}
	}
	if buf.Len() != 2 {
		t.Fatalf("expected 2 history points, got %d", buf.Len())
	}
}

func TestProcessor_FirstClimateAfterResetIsRecorded(t *testing.T) {
	p, buf := newProc(10)
	p.Handle(topic, []byte(`{"temperature": 37.0, "humidity": 60.0}`), at)
	p.Reset()

	upd, _ := p.Handle(topic, []byte(`{"temperature": 0.05}`), at.Add(time.Second))
	if !upd.Recorded || buf.Len() != 2 {
		t.Fatalf("first climate reading after reset must be recorded, recorded=%v len=%d", upd.Recorded, buf.Len())
	}
}

func TestProcessor_NoHistoryBeforeClimate(t *testing.T) {
	p, buf := newProc(10)
	if upd, _ := p.Handle(topic, []byte(`{"power": 40}`), at); upd.Recorded {
		t.Fatalf("power-only payload must not create a history point")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected empty history")
	}
}

func TestProcessor_SetpointIsInformational(t *testing.T) {
	p, _ := newProc(10)
	upd, ok := p.Handle(topic, []byte(`{"SET": "37.5"}`), at)
	if !ok {
		t.Fatalf("expected setpoint payload accepted")
	}
	if upd.Reading.DeviceSetpoint == nil || *upd.Reading.DeviceSetpoint != 37.5 {
		t.Fatalf("expected device setpoint 37.5, got %v", upd.Reading.DeviceSetpoint)
	}
}

func TestProcessor_PowerClamped(t *testing.T) {
	p, _ := newProc(10)
	upd, _ := p.Handle(topic, []byte(`{"power": 180}`), at)
	if upd.Reading.Power != 100 {
		t.Fatalf("expected power clamped to 100, got %d", upd.Reading.Power)
	}
}

func TestProcessor_UnknownOnly(t *testing.T) {
	p, _ := newProc(10)
	if _, ok := p.Handle(topic, []byte(`{"fw":"1.2"}`), at); ok {
		t.Fatalf("payload with only unknown keys should not count as an update")
	}
}
