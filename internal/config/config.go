// Package config loads service settings from configs/config.yml, an optional
// .env file and INCUBATOR_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "INCUBATOR"

type Config struct {
	Port        string            `mapstructure:"port"`
	DB          DBConfig          `mapstructure:"db"`
	Log         LogConfig         `mapstructure:"log"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
	Device      DeviceConfig      `mapstructure:"device"`
	History     HistoryConfig     `mapstructure:"history"`
	Incubation  IncubationConfig  `mapstructure:"incubation"`
	Profiles    ProfilesConfig    `mapstructure:"profiles"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Events      EventsConfig      `mapstructure:"events"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MQTTConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	KeepAlive      time.Duration `mapstructure:"keepalive"`
	QoS            int           `mapstructure:"qos"`
	ClientIDPrefix string        `mapstructure:"client_id_prefix"`
	StatusTopic    string        `mapstructure:"status_topic"`
	CommandTopic   string        `mapstructure:"command_topic"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	// AutoConnect connects at startup with remembered or configured credentials.
	AutoConnect bool   `mapstructure:"auto_connect"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type ScheduleConfig struct {
	HealthInterval    time.Duration `mapstructure:"health_interval"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	MilestoneInterval time.Duration `mapstructure:"milestone_interval"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	StaleAfter        time.Duration `mapstructure:"stale_after"`
}

type DeviceConfig struct {
	TargetTemperature float64       `mapstructure:"target_temperature"`
	TargetHumidity    float64       `mapstructure:"target_humidity"`
	RelayOnTime       time.Duration `mapstructure:"relay_on_time"`
	RelayInterval     time.Duration `mapstructure:"relay_interval"`
	Buzzer            string        `mapstructure:"buzzer"`
	TotalDays         int           `mapstructure:"total_days"`
}

type HistoryConfig struct {
	MaxPoints        int     `mapstructure:"max_points"`
	TemperatureDelta float64 `mapstructure:"temperature_delta"`
	HumidityDelta    float64 `mapstructure:"humidity_delta"`
}

type IncubationConfig struct {
	Path string `mapstructure:"path"`
}

type ProfilesConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type CredentialsConfig struct {
	Secret string `mapstructure:"secret"`
}

type MetricsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	Job          string        `mapstructure:"job"`
	PushInterval time.Duration `mapstructure:"push_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	BufferSize   int           `mapstructure:"buffer_size"`
}

type EventsConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	PruneSchedule string        `mapstructure:"prune_schedule"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "data/incubator.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("mqtt.host", "mqtt.teknohole.com")
	v.SetDefault("mqtt.port", 1884)
	v.SetDefault("mqtt.keepalive", "60s")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.client_id_prefix", "incubator-dashboard")
	v.SetDefault("mqtt.status_topic", "topic/penetasan/status")
	v.SetDefault("mqtt.command_topic", "topic/penetasan/command")
	v.SetDefault("mqtt.connect_timeout", "10s")
	v.SetDefault("mqtt.publish_timeout", "5s")
	v.SetDefault("mqtt.auto_connect", false)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")

	v.SetDefault("schedule.health_interval", "30s")
	v.SetDefault("schedule.refresh_interval", "1s")
	v.SetDefault("schedule.milestone_interval", "60s")
	v.SetDefault("schedule.max_attempts", 5)
	v.SetDefault("schedule.stale_after", "60s")

	v.SetDefault("device.target_temperature", 38.0)
	v.SetDefault("device.target_humidity", 60.0)
	v.SetDefault("device.relay_on_time", "6s")
	v.SetDefault("device.relay_interval", "3h")
	v.SetDefault("device.buzzer", "OFF")
	v.SetDefault("device.total_days", 21)

	v.SetDefault("history.max_points", 100)
	v.SetDefault("history.temperature_delta", 0.1)
	v.SetDefault("history.humidity_delta", 0.5)

	v.SetDefault("incubation.path", "data/incubation_data.json")
	v.SetDefault("profiles.path", "")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("credentials.secret", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.url", "")
	v.SetDefault("metrics.username", "")
	v.SetDefault("metrics.password", "")
	v.SetDefault("metrics.job", "incubator")
	v.SetDefault("metrics.push_interval", "30s")
	v.SetDefault("metrics.batch_size", 200)
	v.SetDefault("metrics.buffer_size", 2000)

	v.SetDefault("events.retention", "720h")
	v.SetDefault("events.prune_schedule", "@daily")
}

// Load reads config.yml from dir (missing file is fine), applies .env and
// environment overrides, and validates the result.
func Load(dir string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.MQTT.Host == "" {
		errs = append(errs, errors.New("mqtt.host is required"))
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		errs = append(errs, fmt.Errorf("mqtt.port %d out of range", c.MQTT.Port))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}
	if c.MQTT.StatusTopic == "" || c.MQTT.CommandTopic == "" {
		errs = append(errs, errors.New("mqtt status and command topics are required"))
	}
	for name, d := range map[string]time.Duration{
		"schedule.health_interval":    c.Schedule.HealthInterval,
		"schedule.refresh_interval":   c.Schedule.RefreshInterval,
		"schedule.milestone_interval": c.Schedule.MilestoneInterval,
		"schedule.stale_after":        c.Schedule.StaleAfter,
		"mqtt.keepalive":              c.MQTT.KeepAlive,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Schedule.MaxAttempts < 0 {
		errs = append(errs, errors.New("schedule.max_attempts must not be negative"))
	}
	if c.Device.TargetTemperature < 20 || c.Device.TargetTemperature > 50 {
		errs = append(errs, fmt.Errorf("device.target_temperature %g out of range [20, 50]", c.Device.TargetTemperature))
	}
	if c.Device.TotalDays < 1 {
		errs = append(errs, errors.New("device.total_days must be positive"))
	}
	if c.History.MaxPoints < 1 {
		errs = append(errs, errors.New("history.max_points must be positive"))
	}
	if c.Metrics.Enabled && c.Metrics.URL == "" {
		errs = append(errs, errors.New("metrics.url is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// BrokerAddr is host:port for logs and the connection view.
func (c *Config) BrokerAddr() string {
	return fmt.Sprintf("%s:%d", c.MQTT.Host, c.MQTT.Port)
}
