package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"controlling_incubator/internal/command"
	"controlling_incubator/internal/models"
	"controlling_incubator/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockStation struct {
	mu sync.Mutex

	snapshot models.Snapshot
	history  []models.HistoryPoint
	profiles []models.Profile

	connectErr   error
	commandErr   error
	startDateErr error
	resetErr     error
	delivery     command.Delivery

	connected     []models.Credentials
	disconnects   int
	lastTemp      float64
	lastProfile   string
	lastBuzzer    string
	lastRelay     [2]int
	lastStartDate time.Time
	resets        int
	updates       chan service.Update
	unsubscribed  int
}

func (m *mockStation) Connect(ctx context.Context, c models.Credentials) error {
	m.connected = append(m.connected, c)
	return m.connectErr
}

func (m *mockStation) Disconnect(ctx context.Context) error {
	m.disconnects++
	return nil
}

func (m *mockStation) result() service.CommandResult {
	return service.CommandResult{Delivery: m.delivery, Targets: m.snapshot.Targets}
}

func (m *mockStation) SetTargetTemperature(ctx context.Context, v float64) (service.CommandResult, error) {
	m.lastTemp = v
	if m.commandErr != nil {
		return service.CommandResult{}, m.commandErr
	}
	m.snapshot.Targets.TargetTemperature = v
	return m.result(), nil
}

func (m *mockStation) ApplyProfile(ctx context.Context, name string) (service.ProfileResult, error) {
	m.lastProfile = name
	if m.commandErr != nil {
		return service.ProfileResult{}, m.commandErr
	}
	return service.ProfileResult{Profile: models.Profile{Name: name}, Delivery: m.delivery, TotalDays: 21}, nil
}

func (m *mockStation) SetBuzzer(ctx context.Context, state string) (service.CommandResult, error) {
	m.lastBuzzer = state
	return m.result(), m.commandErr
}

func (m *mockStation) SetRelayTiming(ctx context.Context, on, interval int) (service.CommandResult, error) {
	m.lastRelay = [2]int{on, interval}
	return m.result(), m.commandErr
}

func (m *mockStation) SetManualStartDate(ctx context.Context, date time.Time) (models.IncubationRecord, error) {
	m.lastStartDate = date
	return models.IncubationRecord{StartDate: date, TotalDays: 21}, m.startDateErr
}

func (m *mockStation) ResetBatch(ctx context.Context) error {
	m.resets++
	return m.resetErr
}

func (m *mockStation) CurrentReadings() models.SensorReading   { return m.Snapshot().Reading }
func (m *mockStation) TargetValues() models.TargetView         { return m.Snapshot().Targets }
func (m *mockStation) DeviceStatus() models.DeviceStatus       { return m.Snapshot().Device }
func (m *mockStation) ConnectionStatus() models.ConnectionView { return m.Snapshot().Connection }
func (m *mockStation) HistoricalData() []models.HistoryPoint   { return m.history }
func (m *mockStation) Profiles() []models.Profile              { return m.profiles }

func (m *mockStation) Snapshot() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *mockStation) Subscribe() (<-chan service.Update, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updates == nil {
		m.updates = make(chan service.Update, 8)
	}
	return m.updates, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.unsubscribed++
	}
}

type mockEventLog struct {
	resp     []models.DeviceEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.DeviceEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockCredentials struct {
	status      service.CredentialStatus
	rememberErr error

	remembered []models.Credentials
	forgotten  int
	clears     int
}

func (m *mockCredentials) Load(ctx context.Context) (*models.Credentials, error) { return nil, nil }

func (m *mockCredentials) Status(ctx context.Context) (service.CredentialStatus, error) {
	return m.status, nil
}

func (m *mockCredentials) Remember(ctx context.Context, c models.Credentials, remember bool) error {
	if remember {
		m.remembered = append(m.remembered, c)
	} else {
		m.forgotten++
	}
	return m.rememberErr
}

func (m *mockCredentials) Clear(ctx context.Context) error {
	m.clears++
	return nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
