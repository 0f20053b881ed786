package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"controlling_incubator/internal/command"
	"controlling_incubator/internal/models"
	"controlling_incubator/internal/service"

	"github.com/gin-gonic/gin"
)

func doAuthed(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func newStationRouter() (*gin.Engine, *mockStation, *mockCredentials) {
	st := &mockStation{
		delivery: command.Delivered,
		snapshot: models.Snapshot{
			Reading: models.SensorReading{Temperature: 37.9, Humidity: 61.2, Power: 80, RotateFlag: 1},
			Targets: models.TargetView{TargetTemperature: 38, TargetHumidity: 60, RelayOnSeconds: 6, RelayIntervalMinutes: 60, Buzzer: models.BuzzerOff},
			Device: models.DeviceStatus{
				Power:     80,
				Motor:     models.MotorDisplayState{Status: models.MotorRotating, RemainingSeconds: 5},
				TimerText: "00:00:05",
			},
			Connection: models.ConnectionView{Connected: true, DayText: "Day 3 of 21", Day: 3, TotalDays: 21},
		},
		history:  []models.HistoryPoint{{Temperature: 37.9, Humidity: 61.2}},
		profiles: command.DefaultProfiles,
	}
	creds := &mockCredentials{}
	s := &service.Service{
		Authorization: &mockAuth{parseID: 1},
		Station:       st,
		Credentials:   creds,
	}
	return newTestRouter(s), st, creds
}

func TestStateHandlers(t *testing.T) {
	r, _, _ := newStationRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/readings", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = doAuthed(r, http.MethodGet, "/api/v1/readings", "")
	var reading models.SensorReading
	if err := json.Unmarshal(w.Body.Bytes(), &reading); err != nil {
		t.Fatalf("unmarshal reading: %v", err)
	}
	if w.Code != http.StatusOK || reading.Temperature != 37.9 || reading.Humidity != 61.2 {
		t.Fatalf("readings: status=%d body=%s", w.Code, w.Body.String())
	}

	w = doAuthed(r, http.MethodGet, "/api/v1/status", "")
	var st models.DeviceStatus
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Motor.Status != models.MotorRotating || st.TimerText != "00:00:05" {
		t.Fatalf("unexpected status: %s", w.Body.String())
	}

	w = doAuthed(r, http.MethodGet, "/api/v1/connection", "")
	var conn models.ConnectionView
	_ = json.Unmarshal(w.Body.Bytes(), &conn)
	if !conn.Connected || conn.DayText != "Day 3 of 21" {
		t.Fatalf("unexpected connection: %s", w.Body.String())
	}

	w = doAuthed(r, http.MethodGet, "/api/v1/targets", "")
	var targets models.TargetView
	_ = json.Unmarshal(w.Body.Bytes(), &targets)
	if targets.TargetTemperature != 38 || targets.Buzzer != models.BuzzerOff {
		t.Fatalf("unexpected targets: %s", w.Body.String())
	}

	w = doAuthed(r, http.MethodGet, "/api/v1/history", "")
	var hist struct {
		Count  int                   `json:"count"`
		Points []models.HistoryPoint `json:"points"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &hist)
	if hist.Count != 1 || len(hist.Points) != 1 {
		t.Fatalf("unexpected history: %s", w.Body.String())
	}

	w = doAuthed(r, http.MethodGet, "/api/v1/profiles", "")
	var profiles []models.Profile
	_ = json.Unmarshal(w.Body.Bytes(), &profiles)
	if len(profiles) != len(command.DefaultProfiles) || profiles[0].Name != "Ayam (38°C)" {
		t.Fatalf("unexpected profiles: %s", w.Body.String())
	}
}

func TestCommandHandlers_Temperature(t *testing.T) {
	r, st, _ := newStationRouter()

	cases := []struct {
		name     string
		body     string
		wantCode int
		wantSent bool
	}{
		{name: "valid", body: `{"target_temperature":37.5}`, wantCode: http.StatusOK, wantSent: true},
		{name: "below manual range", body: `{"target_temperature":25}`, wantCode: http.StatusBadRequest},
		{name: "above manual range", body: `{"target_temperature":46}`, wantCode: http.StatusBadRequest},
		{name: "missing field", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "not a number", body: `{"target_temperature":"hot"}`, wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st.lastTemp = 0
			w := doAuthed(r, http.MethodPost, "/api/v1/commands/temperature", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if sent := st.lastTemp != 0; sent != tc.wantSent {
				t.Fatalf("station called=%v, want %v", sent, tc.wantSent)
			}
		})
	}

	w := doAuthed(r, http.MethodPost, "/api/v1/commands/temperature", `{"target_temperature":37.5}`)
	var res service.CommandResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Delivery != command.Delivered || res.Targets.TargetTemperature != 37.5 {
		t.Fatalf("unexpected result: %s", w.Body.String())
	}
}

func TestCommandHandlers_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "validation", err: &models.ValidationError{Field: "buzzer", Reason: "must be ON or OFF"}, wantCode: http.StatusBadRequest},
		{name: "not found", err: &models.NotFoundError{Kind: "profile", Name: "Angsa"}, wantCode: http.StatusNotFound},
		{name: "stopped", err: service.ErrStopped, wantCode: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, st, _ := newStationRouter()
			st.commandErr = tc.err

			w := doAuthed(r, http.MethodPost, "/api/v1/commands/profile", `{"name":"Angsa"}`)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tc.wantCode, w.Body.String())
			}
		})
	}
}

func TestCommandHandlers_ProfileBuzzerRelay(t *testing.T) {
	r, st, _ := newStationRouter()

	w := doAuthed(r, http.MethodPost, "/api/v1/commands/profile", `{"name":"Bebek (37.5°C)"}`)
	if w.Code != http.StatusOK || st.lastProfile != "Bebek (37.5°C)" {
		t.Fatalf("profile: status=%d body=%s", w.Code, w.Body.String())
	}
	var pr service.ProfileResult
	_ = json.Unmarshal(w.Body.Bytes(), &pr)
	if pr.TotalDays != 21 || pr.Delivery != command.Delivered {
		t.Fatalf("unexpected profile result: %s", w.Body.String())
	}

	w = doAuthed(r, http.MethodPost, "/api/v1/commands/buzzer", `{"state":"on"}`)
	if w.Code != http.StatusOK || st.lastBuzzer != "on" {
		t.Fatalf("buzzer: status=%d body=%s", w.Code, w.Body.String())
	}

	w = doAuthed(r, http.MethodPost, "/api/v1/commands/relay", `{"on_seconds":6,"interval_minutes":60}`)
	if w.Code != http.StatusOK || st.lastRelay != [2]int{6, 60} {
		t.Fatalf("relay: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestIncubationHandlers(t *testing.T) {
	r, st, _ := newStationRouter()

	w := doAuthed(r, http.MethodPost, "/api/v1/incubation/start-date", `{"start_date":"2026-03-01"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("start-date: status=%d body=%s", w.Code, w.Body.String())
	}
	if !st.lastStartDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start date: %v", st.lastStartDate)
	}

	w = doAuthed(r, http.MethodPost, "/api/v1/incubation/start-date", `{"start_date":"first of march"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", w.Code)
	}

	st.startDateErr = &models.PersistenceError{Op: "write", Path: "x", Err: errors.New("disk full")}
	w = doAuthed(r, http.MethodPost, "/api/v1/incubation/start-date", `{"start_date":"2026-03-02T08:00:00Z"}`)
	var out struct {
		Persisted bool `json:"persisted"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if w.Code != http.StatusOK || out.Persisted {
		t.Fatalf("expected applied but not persisted: status=%d body=%s", w.Code, w.Body.String())
	}

	w = doAuthed(r, http.MethodPost, "/api/v1/incubation/reset", "")
	if w.Code != http.StatusOK || st.resets != 1 {
		t.Fatalf("reset: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestResetBatchHandler_PersistenceFailure(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCode      int
		wantPersisted bool
	}{
		{name: "removed", wantCode: http.StatusOK, wantPersisted: true},
		{name: "file not removed", err: &models.PersistenceError{Op: "delete", Path: "incubation.json", Err: errors.New("read-only file system")}, wantCode: http.StatusOK},
		{name: "loop stopped", err: service.ErrStopped, wantCode: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, st, _ := newStationRouter()
			st.resetErr = tt.err

			w := doAuthed(r, http.MethodPost, "/api/v1/incubation/reset", "")
			if w.Code != tt.wantCode {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var out struct {
				Status    string `json:"status"`
				Persisted bool   `json:"persisted"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out.Status != "reset" || out.Persisted != tt.wantPersisted {
				t.Fatalf("unexpected body %+v", out)
			}
		})
	}
}

func TestConnectionHandlers(t *testing.T) {
	r, st, creds := newStationRouter()

	w := doAuthed(r, http.MethodPost, "/api/v1/connection/connect", `{"username":"farm","password":"pw","remember":true}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("connect: status=%d body=%s", w.Code, w.Body.String())
	}
	if len(st.connected) != 1 || st.connected[0].Username != "farm" {
		t.Fatalf("station not connected: %+v", st.connected)
	}
	if len(creds.remembered) != 1 {
		t.Fatalf("credentials should be remembered")
	}

	w = doAuthed(r, http.MethodPost, "/api/v1/connection/connect", `{"username":"farm","password":"pw"}`)
	if w.Code != http.StatusAccepted || creds.forgotten != 1 {
		t.Fatalf("connect without remember should forget: status=%d forgotten=%d", w.Code, creds.forgotten)
	}

	w = doAuthed(r, http.MethodPost, "/api/v1/connection/connect", `{"username":"farm"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", w.Code)
	}

	st.connectErr = &models.ConnectionError{Kind: models.KindBadCredentials, Err: models.ErrEmptyCredentials}
	w = doAuthed(r, http.MethodPost, "/api/v1/connection/connect", `{"username":"farm","password":"pw","remember":true}`)
	if w.Code != http.StatusBadRequest || len(creds.remembered) != 1 {
		t.Fatalf("failed connect must not remember: status=%d remembered=%d", w.Code, len(creds.remembered))
	}

	w = doAuthed(r, http.MethodPost, "/api/v1/connection/disconnect", "")
	if w.Code != http.StatusOK || st.disconnects != 1 {
		t.Fatalf("disconnect: status=%d body=%s", w.Code, w.Body.String())
	}

	creds.status = service.CredentialStatus{Saved: true, Username: "farm"}
	w = doAuthed(r, http.MethodGet, "/api/v1/credentials", "")
	var cs service.CredentialStatus
	_ = json.Unmarshal(w.Body.Bytes(), &cs)
	if w.Code != http.StatusOK || !cs.Saved || cs.Username != "farm" {
		t.Fatalf("credentials: status=%d body=%s", w.Code, w.Body.String())
	}

	w = doAuthed(r, http.MethodDelete, "/api/v1/credentials", "")
	if w.Code != http.StatusOK || creds.clears != 1 {
		t.Fatalf("clear credentials: status=%d body=%s", w.Code, w.Body.String())
	}
}
