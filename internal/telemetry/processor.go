package telemetry

import (
	"math"
	"time"

	"controlling_incubator/internal/history"
	"controlling_incubator/internal/logger"
	"controlling_incubator/internal/models"
)

// Default significant-change thresholds.
const (
	DefaultTemperatureDelta = 0.1
	DefaultHumidityDelta    = 0.5
)

type Options struct {
	TemperatureDelta float64
	HumidityDelta    float64
}

// Update is the outcome of one accepted payload.
type Update struct {
	Reading  models.SensorReading
	Fields   Fields
	Recorded bool
}

// Processor merges payloads into the current reading. It is owned by the
// connection manager loop and is not safe for concurrent use.
type Processor struct {
	buf  *history.Buffer
	opts Options
	log  *logger.Logger

	reading    models.SensorReading
	hasClimate bool
}

func NewProcessor(buf *history.Buffer, opts Options, log *logger.Logger) *Processor {
	if opts.TemperatureDelta <= 0 {
		opts.TemperatureDelta = DefaultTemperatureDelta
	}
	if opts.HumidityDelta <= 0 {
		opts.HumidityDelta = DefaultHumidityDelta
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{buf: buf, opts: opts, log: log}
}

// Reading returns the current merged reading.
func (p *Processor) Reading() models.SensorReading { return p.reading }

// Handle decodes raw and merges it over the current reading. It never
// panics; a malformed payload is logged and dropped and ok is false.
func (p *Processor) Handle(topic string, raw []byte, at time.Time) (Update, bool) {
	f, err := Decode(topic, raw)
	if err != nil {
		p.log.Warnw("telemetry_decode_failed", "topic", topic, "bytes", len(raw), "err", err)
		return Update{}, false
	}
	if len(f.Skipped) > 0 {
		p.log.Debugw("telemetry_fields_skipped", "topic", topic, "keys", f.Skipped)
	}
	if f.Empty() {
		p.log.Debugw("telemetry_no_known_fields", "topic", topic)
		return Update{}, false
	}

	prev, hadClimate := p.reading, p.hasClimate
	next := p.reading
	if f.Temperature != nil {
		next.Temperature = *f.Temperature
	}
	if f.Humidity != nil {
		next.Humidity = *f.Humidity
	}
	if f.Power != nil {
		next.Power = clampPower(*f.Power)
	}
	if f.RotateFlag != nil {
		next.RotateFlag = *f.RotateFlag
	}
	if f.Setpoint != nil {
		sp := *f.Setpoint
		next.DeviceSetpoint = &sp
	}
	next.Timestamp = at
	p.reading = next

	if f.Temperature != nil || f.Humidity != nil {
		p.hasClimate = true
	}

	recorded := false
	if p.hasClimate && (!hadClimate || p.significant(prev, next)) {
		p.buf.Append(models.HistoryPoint{Timestamp: at, Temperature: next.Temperature, Humidity: next.Humidity})
		recorded = true
	}
	return Update{Reading: next, Fields: f, Recorded: recorded}, true
}

// Reset clears the reading, e.g. for a new batch.
func (p *Processor) Reset() {
	p.reading = models.SensorReading{}
	p.hasClimate = false
}

// significant compares against the reading being replaced, not the last
// history point, so a slow drift in small steps records nothing.
func (p *Processor) significant(prev, next models.SensorReading) bool {
	return math.Abs(next.Temperature-prev.Temperature) > p.opts.TemperatureDelta ||
		math.Abs(next.Humidity-prev.Humidity) > p.opts.HumidityDelta
}

func clampPower(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
