// Package config provides configuration types, defaults and loading for
// the cluster service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"cluster-service/internal/hardware"
	"cluster-service/internal/logger"
)

// Config holds all configuration options. Everything is fixed at startup.
type Config struct {
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"`
	Queue    QueueConfig    `mapstructure:"queue" yaml:"queue"`
	Router   RouterConfig   `mapstructure:"router" yaml:"router"`
	Health   HealthConfig   `mapstructure:"health" yaml:"health"`
	Actuator ActuatorConfig `mapstructure:"actuator" yaml:"actuator"`
	Bus      BusConfig      `mapstructure:"bus" yaml:"bus"`
	Loop     LoopConfig     `mapstructure:"loop" yaml:"loop"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	GPIO     GPIOConfig     `mapstructure:"gpio" yaml:"gpio"`
	Modbus   ModbusConfig   `mapstructure:"modbus" yaml:"modbus"`
	Tx       TxConfig       `mapstructure:"tx" yaml:"tx"`
}

type QueueConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

type RouterConfig struct {
	MaxSubscribers int `mapstructure:"max_subscribers" yaml:"max_subscribers"`
}

type HealthConfig struct {
	StalenessMs int `mapstructure:"staleness_ms" yaml:"staleness_ms"`
}

func (h HealthConfig) Staleness() time.Duration { return ms(h.StalenessMs) }

type ActuatorConfig struct {
	HalfPeriodMs int  `mapstructure:"half_period_ms" yaml:"half_period_ms"`
	FallbackMs   int  `mapstructure:"fallback_ms" yaml:"fallback_ms"`
	ActiveHigh   bool `mapstructure:"active_high" yaml:"active_high"`
}

func (a ActuatorConfig) HalfPeriod() time.Duration { return ms(a.HalfPeriodMs) }
func (a ActuatorConfig) Fallback() time.Duration   { return ms(a.FallbackMs) }

type BusConfig struct {
	Interface string `mapstructure:"interface" yaml:"interface"`
	FrameID   uint32 `mapstructure:"frame_id" yaml:"frame_id"`
}

type LoopConfig struct {
	TickMs int `mapstructure:"tick_ms" yaml:"tick_ms"`
}

func (l LoopConfig) Tick() time.Duration { return ms(l.TickMs) }

type RedisConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type GPIOConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Chip      string `mapstructure:"chip" yaml:"chip"`
	LeftLine  int    `mapstructure:"left_line" yaml:"left_line"`
	RightLine int    `mapstructure:"right_line" yaml:"right_line"`
}

// ModbusConfig configures the optional status mirror. An empty endpoint
// disables it.
type ModbusConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	UnitID    int    `mapstructure:"unit_id" yaml:"unit_id"`
	Address   int    `mapstructure:"address" yaml:"address"`
	TimeoutMs int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

func (m ModbusConfig) Enabled() bool            { return m.Endpoint != "" }
func (m ModbusConfig) Timeout() time.Duration { return ms(m.TimeoutMs) }

type TxConfig struct {
	PeriodMs int `mapstructure:"period_ms" yaml:"period_ms"`
}

func (t TxConfig) Period() time.Duration { return ms(t.PeriodMs) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Queue:    QueueConfig{Capacity: 10},
		Router:   RouterConfig{MaxSubscribers: 8},
		Health:   HealthConfig{StalenessMs: 1500},
		Actuator: ActuatorConfig{
			HalfPeriodMs: 500,
			FallbackMs:   1000,
			ActiveHigh:   true,
		},
		Bus: BusConfig{
			Interface: "can0",
			FrameID:   0x65,
		},
		Loop:  LoopConfig{TickMs: 10},
		Redis: RedisConfig{Host: "127.0.0.1", Port: 6379},
		GPIO: GPIOConfig{
			Enabled:   false,
			Chip:      hardware.DefaultChip,
			LeftLine:  hardware.DefaultLeftLine,
			RightLine: hardware.DefaultRightLine,
		},
		Modbus: ModbusConfig{
			UnitID:    1,
			TimeoutMs: 1000,
		},
		Tx: TxConfig{PeriodMs: 100},
	}
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("queue.capacity", d.Queue.Capacity)
	v.SetDefault("router.max_subscribers", d.Router.MaxSubscribers)
	v.SetDefault("health.staleness_ms", d.Health.StalenessMs)
	v.SetDefault("actuator.half_period_ms", d.Actuator.HalfPeriodMs)
	v.SetDefault("actuator.fallback_ms", d.Actuator.FallbackMs)
	v.SetDefault("actuator.active_high", d.Actuator.ActiveHigh)
	v.SetDefault("bus.interface", d.Bus.Interface)
	v.SetDefault("bus.frame_id", d.Bus.FrameID)
	v.SetDefault("loop.tick_ms", d.Loop.TickMs)
	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("gpio.enabled", d.GPIO.Enabled)
	v.SetDefault("gpio.chip", d.GPIO.Chip)
	v.SetDefault("gpio.left_line", d.GPIO.LeftLine)
	v.SetDefault("gpio.right_line", d.GPIO.RightLine)
	v.SetDefault("modbus.endpoint", d.Modbus.Endpoint)
	v.SetDefault("modbus.unit_id", d.Modbus.UnitID)
	v.SetDefault("modbus.address", d.Modbus.Address)
	v.SetDefault("modbus.timeout_ms", d.Modbus.TimeoutMs)
	v.SetDefault("tx.period_ms", d.Tx.PeriodMs)
}

// Load reads the configuration from defaults, the optional YAML file at
// path and CLUSTER_* environment variables, in increasing precedence.
// Flags bound to v before the call take precedence over all of them.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("CLUSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges. Zero capacities and durations are rejected.
func (c Config) Validate() error {
	var errs []error

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Queue.Capacity <= 0 {
		errs = append(errs, errors.New("queue.capacity must be positive"))
	}
	if c.Router.MaxSubscribers <= 0 {
		errs = append(errs, errors.New("router.max_subscribers must be positive"))
	}
	if c.Health.StalenessMs <= 0 {
		errs = append(errs, errors.New("health.staleness_ms must be positive"))
	}
	if c.Actuator.HalfPeriodMs <= 0 {
		errs = append(errs, errors.New("actuator.half_period_ms must be positive"))
	}
	if c.Actuator.FallbackMs <= 0 {
		errs = append(errs, errors.New("actuator.fallback_ms must be positive"))
	}
	if c.Bus.Interface == "" {
		errs = append(errs, errors.New("bus.interface is required"))
	}
	if c.Bus.FrameID > 0x7FF {
		errs = append(errs, fmt.Errorf("bus.frame_id 0x%X is not a standard identifier", c.Bus.FrameID))
	}
	if c.Loop.TickMs <= 0 {
		errs = append(errs, errors.New("loop.tick_ms must be positive"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("redis.port %d out of range", c.Redis.Port))
	}
	if c.GPIO.Enabled && c.GPIO.LeftLine == c.GPIO.RightLine {
		errs = append(errs, errors.New("gpio.left_line and gpio.right_line must differ"))
	}
	if c.Modbus.Enabled() {
		if c.Modbus.UnitID < 0 || c.Modbus.UnitID > 255 {
			errs = append(errs, fmt.Errorf("modbus.unit_id %d out of range", c.Modbus.UnitID))
		}
		if c.Modbus.Address < 0 || c.Modbus.Address > 0xFFFF {
			errs = append(errs, fmt.Errorf("modbus.address %d out of range", c.Modbus.Address))
		}
	}
	if c.Tx.PeriodMs <= 0 {
		errs = append(errs, errors.New("tx.period_ms must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// WriteDefault writes the default configuration as YAML to path, creating
// the parent directory if needed.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
