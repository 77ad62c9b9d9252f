// Package config loads vmcloop settings from defaults, an optional YAML or
// JSON file, and VMCLOOP_* environment variables, in increasing priority.
package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/logging"
	"github.com/SmitUplenchwar2687/vmcloop/internal/storage"
	"github.com/SmitUplenchwar2687/vmcloop/internal/vmc"
)

// EnvPrefix is prepended to environment overrides, e.g.
// VMCLOOP_PLAYBACK_TARGET.
const EnvPrefix = "VMCLOOP"

// DefaultCapturePort is where the recorder listens unless told otherwise.
const DefaultCapturePort = 39540

// Config is the top-level configuration.
type Config struct {
	Capture  CaptureConfig  `mapstructure:"capture"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Status   StatusConfig   `mapstructure:"status"`
}

// CaptureConfig holds recording settings.
type CaptureConfig struct {
	ListenAddr string        `mapstructure:"listen_addr"`
	Duration   time.Duration `mapstructure:"duration"` // zero records until interrupted
	Countdown  bool          `mapstructure:"countdown"`
	AllOSC     bool          `mapstructure:"all_osc"`
	GazeOnly   bool          `mapstructure:"gaze_only"`
}

// PlaybackConfig holds replay settings.
type PlaybackConfig struct {
	Target        string        `mapstructure:"target"`
	Period        time.Duration `mapstructure:"period"` // zero derives it from the recording
	ReplaceTiming bool          `mapstructure:"replace_timing"`
	GazeOnly      bool          `mapstructure:"gaze_only"`
}

// StorageConfig holds recording store settings.
type StorageConfig struct {
	Backend string             `mapstructure:"backend"`
	Dir     string             `mapstructure:"dir"`
	Redis   StorageRedisConfig `mapstructure:"redis"`
}

// StorageRedisConfig configures the Redis storage backend.
type StorageRedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Cluster      bool          `mapstructure:"cluster"`
	ClusterNodes []string      `mapstructure:"cluster_nodes"`
	PoolSize     int           `mapstructure:"pool_size"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// StatusConfig configures the HTTP status server. An empty Addr disables it.
// FeedRate caps dashboard events per second for each event type, 0 for no
// limit.
type StatusConfig struct {
	Addr     string `mapstructure:"addr"`
	FeedRate int    `mapstructure:"feed_rate"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Capture: CaptureConfig{
			ListenAddr: ":" + strconv.Itoa(DefaultCapturePort),
			Countdown:  true,
		},
		Playback: PlaybackConfig{
			Target: "localhost:" + strconv.Itoa(vmc.DefaultPerformerPort),
		},
		Storage: StorageConfig{
			Backend: storage.BackendFile,
			Dir:     "recordings",
			Redis: StorageRedisConfig{
				Host:        "localhost",
				Port:        6379,
				PoolSize:    20,
				MaxRetries:  3,
				DialTimeout: 5 * time.Second,
			},
		},
		Log: LogConfig{
			Level: logging.LevelInfo,
		},
		Status: StatusConfig{
			FeedRate: 30,
		},
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if err := validateAddr("capture.listen_addr", c.Capture.ListenAddr, true); err != nil {
		return err
	}
	if err := validateAddr("playback.target", c.Playback.Target, false); err != nil {
		return err
	}
	if c.Capture.Duration < 0 {
		return invalid("capture.duration must not be negative, got %s", c.Capture.Duration)
	}
	if c.Playback.Period < 0 {
		return invalid("playback.period must not be negative, got %s", c.Playback.Period)
	}
	switch c.Storage.Backend {
	case storage.BackendFile:
		if c.Storage.Dir == "" {
			return invalid("storage.dir is required for the file backend")
		}
	case storage.BackendMemory:
	case storage.BackendRedis:
		if !c.Storage.Redis.Cluster && c.Storage.Redis.Port <= 0 {
			return invalid("storage.redis.port must be positive, got %d", c.Storage.Redis.Port)
		}
	default:
		return invalid("unknown storage backend %q, must be one of: file, memory, redis", c.Storage.Backend)
	}
	if !logging.ValidLevel(c.Log.Level) {
		return invalid("unknown log level %q", c.Log.Level)
	}
	if c.Status.FeedRate < 0 {
		return invalid("status.feed_rate must not be negative, got %d", c.Status.FeedRate)
	}
	if c.Status.Addr != "" {
		if err := validateAddr("status.addr", c.Status.Addr, true); err != nil {
			return err
		}
	}
	return nil
}

func validateAddr(key, addr string, allowZero bool) error {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return invalid("%s %q: %v", key, addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return invalid("%s %q: port is not a number", key, addr)
	}
	lowest := 1
	if allowZero {
		lowest = 0
	}
	if port < lowest || port > 65535 {
		return invalid("%s %q: port out of range", key, addr)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(errdefs.ErrInvalidArgument, format, args...)
}

// New returns a viper instance seeded with Default and bound to the
// environment.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("capture.listen_addr", d.Capture.ListenAddr)
	v.SetDefault("capture.duration", d.Capture.Duration)
	v.SetDefault("capture.countdown", d.Capture.Countdown)
	v.SetDefault("capture.all_osc", d.Capture.AllOSC)
	v.SetDefault("capture.gaze_only", d.Capture.GazeOnly)

	v.SetDefault("playback.target", d.Playback.Target)
	v.SetDefault("playback.period", d.Playback.Period)
	v.SetDefault("playback.replace_timing", d.Playback.ReplaceTiming)
	v.SetDefault("playback.gaze_only", d.Playback.GazeOnly)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("storage.redis.host", d.Storage.Redis.Host)
	v.SetDefault("storage.redis.port", d.Storage.Redis.Port)
	v.SetDefault("storage.redis.password", d.Storage.Redis.Password)
	v.SetDefault("storage.redis.db", d.Storage.Redis.DB)
	v.SetDefault("storage.redis.cluster", d.Storage.Redis.Cluster)
	v.SetDefault("storage.redis.cluster_nodes", d.Storage.Redis.ClusterNodes)
	v.SetDefault("storage.redis.pool_size", d.Storage.Redis.PoolSize)
	v.SetDefault("storage.redis.max_retries", d.Storage.Redis.MaxRetries)
	v.SetDefault("storage.redis.dial_timeout", d.Storage.Redis.DialTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("status.addr", d.Status.Addr)
	v.SetDefault("status.feed_rate", d.Status.FeedRate)
}

// Load reads path, if non-empty, over the defaults and applies environment
// overrides. The result is validated.
func Load(path string) (Config, error) {
	return load(New(), path)
}

func load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Default(), errors.Wrapf(err, "reading config file %s", path)
		}
	}

	var cfg Config
	// viper's default decode hooks turn "250ms" into a time.Duration and
	// "a,b" into a []string.
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

const example = `# vmcloop configuration. Every key can be overridden with an environment
# variable, e.g. VMCLOOP_PLAYBACK_TARGET=192.168.1.20:39539.
capture:
  listen_addr: ":39540"
  duration: 0s        # 0 records until Enter or Ctrl-C
  countdown: true
  all_osc: false      # keep non-VMC OSC traffic
  gaze_only: false
playback:
  target: "localhost:39539"
  period: 0s          # 0 derives the loop length from the recording
  replace_timing: true
  gaze_only: false
storage:
  backend: file       # file, memory or redis
  dir: recordings
  redis:
    host: localhost
    port: 6379
    pool_size: 20
    max_retries: 3
    dial_timeout: 5s
log:
  level: info         # debug, info, warn, error or none
  file: ""
status:
  addr: ""            # e.g. ":8080" to serve /dashboard/
  feed_rate: 30       # dashboard events per second per type, 0 for no limit
`

// WriteExample writes an example YAML config file to the given path.
func WriteExample(path string) error {
	return os.WriteFile(path, []byte(example), 0o644)
}
