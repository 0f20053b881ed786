package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"controlling_incubator/internal/broker"
	"controlling_incubator/internal/command"
	"controlling_incubator/internal/history"
	"controlling_incubator/internal/incubation"
	"controlling_incubator/internal/logger"
	"controlling_incubator/internal/models"
	"controlling_incubator/internal/motor"
	"controlling_incubator/internal/telemetry"

	"github.com/google/uuid"
)

const (
	defaultHealthInterval    = 30 * time.Second
	defaultRefreshInterval   = time.Second
	defaultMilestoneInterval = time.Minute
	defaultStaleAfter        = time.Minute
	defaultMaxAttempts       = 5
	defaultRelayOnTime       = 6 * time.Second
	defaultRelayInterval     = 3 * time.Hour

	eventQueueSize = 64
	recordTimeout  = 2 * time.Second
)

// ErrStopped is returned by entry points once the manager loop has exited.
var ErrStopped = errors.New("connection manager stopped")

// ManagerConfig holds the broker session and scheduling settings.
type ManagerConfig struct {
	Broker         broker.Options
	ClientIDPrefix string
	StatusTopic    string
	CommandTopic   string
	QoS            byte

	HealthInterval    time.Duration
	RefreshInterval   time.Duration
	MilestoneInterval time.Duration
	MaxAttempts       int
	StaleAfter        time.Duration
}

func (c *ManagerConfig) applyDefaults() {
	if c.HealthInterval <= 0 {
		c.HealthInterval = defaultHealthInterval
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.MilestoneInterval <= 0 {
		c.MilestoneInterval = defaultMilestoneInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = defaultStaleAfter
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
}

// Recorder appends to the event log.
type Recorder interface {
	Append(ctx context.Context, e models.DeviceEvent) error
}

// ReadingSink receives every accepted reading, e.g. for metrics export.
// Observe must not block.
type ReadingSink interface {
	Observe(r models.SensorReading)
}

// Deps are the collaborators owned by the manager loop.
type Deps struct {
	Factory   broker.Factory
	History   *history.Buffer
	Processor *telemetry.Processor
	Motor     *motor.Engine
	Tracker   *incubation.Tracker
	Catalog   *command.Catalog
	Targets   models.TargetSettings
	Recorder  Recorder
	Sink      ReadingSink
	Log       *logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type request struct {
	fn   func()
	done chan struct{}
}

// ConnectionManager owns the broker session and all device state. Every
// mutation runs on the goroutine started by Run; transport callbacks and
// API calls reach it through channels.
type ConnectionManager struct {
	cfg      ManagerConfig
	factory  broker.Factory
	log      *logger.Logger
	recorder Recorder
	sink     ReadingSink
	now      func() time.Time

	events   chan broker.Event
	requests chan request
	done     chan struct{}
	runOnce  sync.Once
	baseCtx  context.Context

	// loop-owned
	state         models.ConnectionState
	creds         models.Credentials
	rejected      bool
	session       uint64
	client        broker.Client
	lastTelemetry time.Time
	staleReported bool
	gaveUpLogged  bool

	history    *history.Buffer
	processor  *telemetry.Processor
	motor      *motor.Engine
	tracker    *incubation.Tracker
	dispatcher *command.Dispatcher
	catalog    *command.Catalog

	snapMu sync.RWMutex
	snap   models.Snapshot

	hub *hub
}

// NewConnectionManager wires the loop-owned components. The dispatcher is
// created here so that its publisher is bound to this manager's session.
func NewConnectionManager(cfg ManagerConfig, deps Deps) *ConnectionManager {
	cfg.applyDefaults()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.History == nil {
		deps.History = history.NewBuffer(history.DefaultMaxPoints)
	}
	if deps.Processor == nil {
		deps.Processor = telemetry.NewProcessor(deps.History, telemetry.Options{}, deps.Log)
	}
	if deps.Targets.RelayOnTime <= 0 {
		deps.Targets.RelayOnTime = defaultRelayOnTime
	}
	if deps.Targets.RelayInterval <= 0 {
		deps.Targets.RelayInterval = defaultRelayInterval
	}
	now := deps.Now()
	if deps.Motor == nil {
		deps.Motor = motor.New(deps.Targets.RelayOnTime, deps.Targets.RelayInterval, now)
	}
	if deps.Tracker == nil {
		deps.Tracker = incubation.New(nil, incubation.DefaultTotalDays, deps.Log)
	}
	if deps.Catalog == nil {
		deps.Catalog = command.NewCatalog(command.DefaultProfiles...)
	}
	if deps.Factory == nil {
		deps.Factory = broker.NewPahoClient
	}

	m := &ConnectionManager{
		cfg:       cfg,
		factory:   deps.Factory,
		log:       deps.Log,
		recorder:  deps.Recorder,
		sink:      deps.Sink,
		now:       deps.Now,
		events:    make(chan broker.Event, eventQueueSize),
		requests:  make(chan request),
		done:      make(chan struct{}),
		baseCtx:   context.Background(),
		state:     models.ConnectionState{Status: models.StatusDisconnected},
		history:   deps.History,
		processor: deps.Processor,
		motor:     deps.Motor,
		tracker:   deps.Tracker,
		catalog:   deps.Catalog,
		hub:       newHub(),
	}
	m.dispatcher = command.NewDispatcher(deps.Targets, deps.Catalog, command.PublisherFunc(m.publishCommand), deps.Tracker, deps.Log)
	m.snap = m.buildSnapshot(now)
	return m
}

// Run drives the loop with real tickers until ctx is canceled.
func (m *ConnectionManager) Run(ctx context.Context) {
	health := time.NewTicker(m.cfg.HealthInterval)
	refresh := time.NewTicker(m.cfg.RefreshInterval)
	milestone := time.NewTicker(m.cfg.MilestoneInterval)
	defer health.Stop()
	defer refresh.Stop()
	defer milestone.Stop()

	m.loop(ctx, health.C, refresh.C, milestone.C)
}

// Done is closed once the loop has exited and the session is torn down.
func (m *ConnectionManager) Done() <-chan struct{} { return m.done }

func (m *ConnectionManager) loop(ctx context.Context, health, refresh, milestone <-chan time.Time) {
	started := false
	m.runOnce.Do(func() { started = true })
	if !started {
		m.log.Warnw("connection_manager_already_running")
		return
	}
	m.baseCtx = ctx
	defer close(m.done)
	defer m.hub.closeAll()

	m.log.Infow("connection_manager_started", "broker", m.cfg.Broker.Addr())
	for {
		kind := UpdateState
		select {
		case <-ctx.Done():
			m.teardown()
			m.log.Infow("connection_manager_stopped")
			return
		case ev := <-m.events:
			if m.handleEvent(ev) {
				kind = UpdateData
			}
		case req := <-m.requests:
			req.fn()
			m.publish(kind)
			close(req.done)
			continue
		case <-health:
			m.healthCheck(m.now())
		case <-refresh:
			m.motor.Tick(m.now())
		case <-milestone:
			m.checkMilestones(m.now())
		}
		m.publish(kind)
	}
}

// exec runs fn on the loop and waits for it.
func (m *ConnectionManager) exec(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case m.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

// Connect starts a new session with creds. Empty credentials are rejected
// immediately and never retried.
func (m *ConnectionManager) Connect(ctx context.Context, creds models.Credentials) error {
	if creds.Empty() {
		return &models.ConnectionError{Kind: models.KindBadCredentials, Err: models.ErrEmptyCredentials}
	}
	return m.exec(ctx, func() {
		m.creds = creds
		m.rejected = false
		m.gaveUpLogged = false
		m.state.UserDisconnected = false
		m.state.Attempts = 0
		m.state.LastError = ""
		m.startSession(m.now())
	})
}

// Disconnect ends the session and suppresses automatic retries until the
// next Connect. Calling it repeatedly is harmless.
func (m *ConnectionManager) Disconnect(ctx context.Context) error {
	return m.exec(ctx, func() {
		wasActive := m.state.Status != models.StatusDisconnected
		m.state.UserDisconnected = true
		m.teardown()
		m.state.Status = models.StatusDisconnected
		m.motor.Reset(m.now())
		if wasActive {
			m.log.Infow("mqtt_disconnected_by_user")
			m.record(models.EventDisconnected, "disconnected by user", nil)
		}
	})
}

func (m *ConnectionManager) startSession(now time.Time) {
	m.teardown()
	m.session++

	opts := m.cfg.Broker
	opts.Username = m.creds.Username
	opts.Password = m.creds.Password
	opts.ClientID = fmt.Sprintf("%s-%s", m.cfg.ClientIDPrefix, uuid.NewString()[:8])

	m.client = m.factory(m.session, opts, m.events)
	m.state.Status = models.StatusConnecting
	m.state.LastAttempt = now
	m.log.Infow("mqtt_connecting", "broker", opts.Addr(), "session", m.session, "attempt", m.state.Attempts)
	m.client.Connect()
}

func (m *ConnectionManager) teardown() {
	if m.client == nil {
		return
	}
	m.client.Disconnect()
	m.client = nil
}

// handleEvent applies a transport event. It reports whether new telemetry
// was accepted.
func (m *ConnectionManager) handleEvent(ev broker.Event) bool {
	if ev.Session != m.session || m.client == nil {
		m.log.Debugw("mqtt_stale_event_ignored", "kind", ev.Kind.String(), "session", ev.Session, "current", m.session)
		return false
	}
	now := m.now()

	switch ev.Kind {
	case broker.EventConnected:
		m.onConnected(now)
	case broker.EventConnectFailed:
		m.onConnectFailed(ev.Err)
	case broker.EventConnectionLost:
		m.onConnectionLost(ev.Err, now)
	case broker.EventMessage:
		return m.onMessage(ev.Topic, ev.Payload, now)
	case broker.EventSubscribeFailed:
		m.log.Errorw("mqtt_subscribe_failed", "topic", ev.Topic, "err", ev.Err)
		m.record(models.EventSubscribeFailed, fmt.Sprintf("subscribe to %s failed", ev.Topic), errMeta(ev.Err))
		m.notify(LevelError, models.EventSubscribeFailed, fmt.Sprintf("subscribe to %s failed: %v", ev.Topic, ev.Err))
	case broker.EventPublishFailed:
		m.log.Warnw("mqtt_publish_failed", "topic", ev.Topic, "err", ev.Err)
		m.record(models.EventPublishFailed, fmt.Sprintf("publish to %s failed", ev.Topic), errMeta(ev.Err))
		m.notify(LevelWarning, models.EventPublishFailed, fmt.Sprintf("command not delivered: %v", ev.Err))
	}
	return false
}

func (m *ConnectionManager) onConnected(now time.Time) {
	m.state.Status = models.StatusConnected
	m.state.Attempts = 0
	m.state.LastError = ""
	m.gaveUpLogged = false
	m.lastTelemetry = now
	m.staleReported = false

	m.client.Subscribe(m.cfg.StatusTopic, m.cfg.QoS)
	m.log.Infow("mqtt_connected", "broker", m.cfg.Broker.Addr(), "topic", m.cfg.StatusTopic)
	m.record(models.EventConnected, "connected to broker", map[string]any{"broker": m.cfg.Broker.Addr()})
	m.notify(LevelInfo, models.EventConnected, "connected to broker")

	if started, err := m.tracker.StartIfAbsent(now); started {
		meta := map[string]any{"start_date": now.Format(time.RFC3339)}
		if err != nil {
			meta["persist_error"] = err.Error()
		}
		m.record(models.EventStartDateSet, "incubation started", meta)
	}
}

func (m *ConnectionManager) onConnectFailed(err error) {
	ce := broker.Classify(err)
	if ce == nil {
		ce = &models.ConnectionError{Kind: models.KindGeneric}
	}
	m.teardown()
	m.state.Status = models.StatusDisconnected
	m.state.LastError = ce.Error()
	if !ce.Retryable() {
		m.rejected = true
	}
	m.log.Warnw("mqtt_connect_failed", "kind", string(ce.Kind), "retryable", ce.Retryable(), "err", ce.Err)
	m.record(models.EventConnectFailed, ce.Error(), map[string]any{"kind": string(ce.Kind)})
	m.notify(LevelError, models.EventConnectFailed, connectFailureMessage(ce.Kind))
}

func (m *ConnectionManager) onConnectionLost(err error, now time.Time) {
	m.teardown()
	m.state.Status = models.StatusDisconnected
	if err != nil {
		m.state.LastError = err.Error()
	}
	m.motor.Reset(now)
	m.log.Warnw("mqtt_connection_lost", "err", err)
	m.record(models.EventConnectionLost, "connection lost", errMeta(err))
	m.notify(LevelWarning, models.EventConnectionLost, "connection to broker lost")
}

func (m *ConnectionManager) onMessage(topic string, payload []byte, now time.Time) bool {
	if topic != m.cfg.StatusTopic {
		m.log.Debugw("mqtt_message_ignored", "topic", topic)
		return false
	}
	upd, ok := m.processor.Handle(topic, payload, now)
	if !ok {
		return false
	}

	m.lastTelemetry = now
	m.staleReported = false
	m.motor.Observe(upd.Reading.RotateFlag, now)
	if upd.Fields.Setpoint != nil {
		m.dispatcher.BootstrapTarget(*upd.Fields.Setpoint)
	}
	if m.sink != nil {
		m.sink.Observe(upd.Reading)
	}
	return true
}

func (m *ConnectionManager) healthCheck(now time.Time) {
	switch m.state.Status {
	case models.StatusConnected:
		if !m.staleReported && now.Sub(m.lastTelemetry) >= m.cfg.StaleAfter {
			m.staleReported = true
			silent := now.Sub(m.lastTelemetry).Round(time.Second)
			m.log.Warnw("telemetry_stale", "silent_for", silent)
			m.record(models.EventTelemetryStale, fmt.Sprintf("no telemetry for %s", silent), nil)
			m.notify(LevelWarning, models.EventTelemetryStale, fmt.Sprintf("no data from device for %s", silent))
		}
	case models.StatusConnecting:
		// outcome pending
	case models.StatusDisconnected:
		if m.state.UserDisconnected || m.creds.Empty() || m.rejected {
			return
		}
		if m.state.Attempts >= m.cfg.MaxAttempts {
			if !m.gaveUpLogged {
				m.gaveUpLogged = true
				m.log.Warnw("mqtt_retry_exhausted", "attempts", m.state.Attempts)
				m.record(models.EventRetryExhausted, fmt.Sprintf("gave up after %d attempts", m.state.Attempts), nil)
			}
			return
		}
		m.state.Attempts++
		m.startSession(now)
	}
}

func (m *ConnectionManager) checkMilestones(now time.Time) {
	for _, ms := range m.tracker.CheckMilestones(now) {
		m.log.Infow("incubation_milestone", "kind", string(ms.Kind), "day", ms.Day)
		m.record(models.EventMilestone, ms.Message, map[string]any{"kind": string(ms.Kind), "day": ms.Day})
		m.notify(LevelInfo, string(ms.Kind), ms.Message)
	}
}

// publishCommand is the dispatcher's publisher; it runs on the loop.
func (m *ConnectionManager) publishCommand(payload []byte) command.Delivery {
	if m.client == nil || m.state.Status != models.StatusConnected {
		return command.NotConnected
	}
	if err := m.client.Publish(m.cfg.CommandTopic, m.cfg.QoS, payload); err != nil {
		if errors.Is(err, broker.ErrNotConnected) {
			return command.NotConnected
		}
		m.log.Warnw("mqtt_publish_rejected", "err", err)
		return command.PublishFailed
	}
	m.log.Debugw("mqtt_command_published", "topic", m.cfg.CommandTopic, "payload", string(payload))
	return command.Delivered
}

func (m *ConnectionManager) record(typ, desc string, meta map[string]any) {
	if m.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(m.baseCtx, recordTimeout)
	defer cancel()
	ev := models.DeviceEvent{OccurredAt: m.now(), Type: typ, Description: desc}
	if meta != nil {
		ev.Metadata = meta
	}
	if err := m.recorder.Append(ctx, ev); err != nil {
		m.log.Warnw("event_record_failed", "type", typ, "err", err)
	}
}

func errMeta(err error) map[string]any {
	if err == nil {
		return nil
	}
	return map[string]any{"err": err.Error()}
}

func connectFailureMessage(kind models.ConnectionErrorKind) string {
	switch kind {
	case models.KindBadCredentials:
		return "connection refused: bad username or password"
	case models.KindServerUnavailable:
		return "connection failed: broker unavailable"
	case models.KindProtocolMismatch:
		return "connection refused: unsupported protocol version"
	case models.KindNotAuthorized:
		return "connection refused: not authorized"
	default:
		return "connection failed"
	}
}
