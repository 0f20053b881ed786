// Package metrics exports accepted telemetry to a Prometheus remote_write
// endpoint.
package metrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"controlling_incubator/internal/history"
	"controlling_incubator/internal/logger"
	"controlling_incubator/internal/models"

	"github.com/gogo/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPushInterval = 30 * time.Second
	defaultBatchSize    = 200
	defaultBufferSize   = 2000
	defaultJob          = "incubator"
	maxAttempts         = 3
	clientTimeout       = 30 * time.Second
	tracerName          = "controlling_incubator/metrics"
)

// Metric names written per reading.
const (
	MetricTemperature = "incubator_temperature_celsius"
	MetricHumidity    = "incubator_humidity_percent"
	MetricPower       = "incubator_heater_power_percent"
	MetricRotating    = "incubator_rotate_on"
	MetricSetpoint    = "incubator_device_setpoint_celsius"
)

var ErrNoURL = errors.New("metrics: remote write url is required")

type Config struct {
	URL          string
	Username     string
	Password     string
	Job          string
	PushInterval time.Duration
	BatchSize    int
	BufferSize   int
}

// Pusher queues readings in a ring and ships them in batches. When the
// remote end is down the ring keeps the newest BufferSize readings.
type Pusher struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
	buffer *history.Ring[models.SensorReading]

	// backoff returns the wait after a failed attempt (1-based).
	backoff func(attempt int) time.Duration

	mu       sync.Mutex
	lastPush time.Time
}

func New(cfg Config, log *logger.Logger) (*Pusher, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = defaultPushInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Job == "" {
		cfg.Job = defaultJob
	}
	if log == nil {
		log = logger.Nop()
	}

	client := &http.Client{
		Timeout: clientTimeout,
		Transport: otelhttp.NewTransport(
			http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(string, *http.Request) string {
				return "prometheus.remote_write"
			}),
		),
	}

	return &Pusher{
		cfg:    cfg,
		client: client,
		log:    log,
		buffer: history.NewRing[models.SensorReading](cfg.BufferSize),
		backoff: func(attempt int) time.Duration {
			// 1s, 2s, 4s
			return time.Duration(1<<(attempt-1)) * time.Second
		},
	}, nil
}

// Observe queues a reading. It never blocks; a full queue drops the oldest.
func (p *Pusher) Observe(r models.SensorReading) {
	if p.buffer.Add(r) {
		p.log.Debugw("metrics_buffer_overflow", "capacity", p.buffer.Capacity())
	}
}

// Pending is the number of queued readings.
func (p *Pusher) Pending() int { return p.buffer.Len() }

// LastPushTime returns the time of the last successful push.
func (p *Pusher) LastPushTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPush
}

// Run pushes on every interval until ctx is done.
func (p *Pusher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PushInterval)
	defer ticker.Stop()

	p.log.Infow("metrics_pusher_started",
		"url", p.cfg.URL,
		"push_interval", p.cfg.PushInterval,
		"batch_size", p.cfg.BatchSize,
	)

	for {
		select {
		case <-ctx.Done():
			p.log.Infow("metrics_pusher_stopped")
			return
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush drains the queue and pushes it batch by batch. On the first failed
// batch the rest is put back for the next round.
func (p *Pusher) Flush(ctx context.Context) {
	readings := p.buffer.Drain()
	if len(readings) == 0 {
		return
	}

	for start := 0; start < len(readings); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(readings))
		if err := p.Push(ctx, readings[start:end]); err != nil {
			dropped := p.buffer.Requeue(readings[start:])
			p.log.Errorw("metrics_push_failed",
				"err", err,
				"requeued", len(readings)-start-dropped,
				"dropped", dropped,
			)
			return
		}
	}
}

// Push sends one batch with up to three attempts.
func (p *Pusher) Push(ctx context.Context, readings []models.SensorReading) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "metrics.Push",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("metrics.readings", len(readings))),
	)
	defer span.End()

	if len(readings) == 0 {
		span.SetStatus(codes.Ok, "nothing to push")
		return nil
	}

	req := p.buildWriteRequest(readings)
	span.SetAttributes(attribute.Int("metrics.time_series", len(req.Timeseries)))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := p.pushOnce(ctx, req)
		if err == nil {
			p.mu.Lock()
			p.lastPush = time.Now()
			p.mu.Unlock()
			p.log.Debugw("metrics_pushed", "readings", len(readings), "attempt", attempt)
			span.SetStatus(codes.Ok, "pushed")
			return nil
		}
		lastErr = err
		p.log.Warnw("metrics_push_retry", "attempt", attempt, "err", err)
		span.AddEvent("push attempt failed", trace.WithAttributes(
			attribute.Int("metrics.attempt", attempt),
			attribute.String("error", err.Error()),
		))

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				span.SetStatus(codes.Error, "context done")
				return ctx.Err()
			case <-time.After(p.backoff(attempt)):
			}
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "attempts exhausted")
	return fmt.Errorf("push metrics after %d attempts: %w", maxAttempts, lastErr)
}

func (p *Pusher) buildWriteRequest(readings []models.SensorReading) *prompb.WriteRequest {
	temp := make([]prompb.Sample, 0, len(readings))
	hum := make([]prompb.Sample, 0, len(readings))
	power := make([]prompb.Sample, 0, len(readings))
	rotating := make([]prompb.Sample, 0, len(readings))
	var setpoint []prompb.Sample

	for _, r := range readings {
		ts := r.Timestamp.UnixMilli()
		temp = append(temp, prompb.Sample{Value: r.Temperature, Timestamp: ts})
		hum = append(hum, prompb.Sample{Value: r.Humidity, Timestamp: ts})
		power = append(power, prompb.Sample{Value: float64(r.Power), Timestamp: ts})
		rotating = append(rotating, prompb.Sample{Value: float64(r.RotateFlag), Timestamp: ts})
		if r.DeviceSetpoint != nil {
			setpoint = append(setpoint, prompb.Sample{Value: *r.DeviceSetpoint, Timestamp: ts})
		}
	}

	series := []prompb.TimeSeries{
		p.series(MetricTemperature, temp),
		p.series(MetricHumidity, hum),
		p.series(MetricPower, power),
		p.series(MetricRotating, rotating),
	}
	if len(setpoint) > 0 {
		series = append(series, p.series(MetricSetpoint, setpoint))
	}
	return &prompb.WriteRequest{Timeseries: series}
}

func (p *Pusher) series(name string, samples []prompb.Sample) prompb.TimeSeries {
	return prompb.TimeSeries{
		Labels: []prompb.Label{
			{Name: "__name__", Value: name},
			{Name: "job", Value: p.cfg.Job},
		},
		Samples: samples,
	}
}

func (p *Pusher) pushOnce(ctx context.Context, writeReq *prompb.WriteRequest) error {
	data, err := proto.Marshal(writeReq)
	if err != nil {
		return fmt.Errorf("marshal write request: %w", err)
	}
	compressed := snappy.Encode(nil, data)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.cfg.Username != "" && p.cfg.Password != "" {
		req.SetBasicAuth(p.cfg.Username, p.cfg.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote write status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
