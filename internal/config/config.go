package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// APIConfig configures the readings API service.
type APIConfig struct {
	Env   string      `yaml:"env" env-default:"prod"`
	HTTP  HTTPConfig  `yaml:"http"`
	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
}

type HTTPConfig struct {
	Address      string        `yaml:"address" env-default:":3001"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"10s"`
}

type StoreConfig struct {
	Path string `yaml:"path" env-default:"/var/lib/aquamon/readings.json"`
}

// BridgeConfig configures the serial-to-HTTP bridge.
type BridgeConfig struct {
	Env     string        `yaml:"env" env-default:"prod"`
	Device  DeviceConfig  `yaml:"device"`
	Forward ForwardConfig `yaml:"forward"`
	Spool   SpoolConfig   `yaml:"spool"`
	Log     LogConfig     `yaml:"log"`
}

type DeviceConfig struct {
	Path         string        `yaml:"path" env:"AQUAMON_DEVICE" env-default:"/dev/ttyUSB0"`
	Candidates   []string      `yaml:"candidates" env-default:"/dev/ttyUSB0,/dev/ttyUSB1,/dev/ttyUSB2,/dev/ttyUSB3,/dev/ttyACM0,/dev/ttyACM1"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" env-default:"3s"`
	ReadInterval time.Duration `yaml:"read_interval" env-default:"5s"`
}

type ForwardConfig struct {
	Endpoints []string      `yaml:"endpoints" env-required:"true"`
	Timeout   time.Duration `yaml:"timeout" env-default:"10s"`
	Retry     RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" env-default:"3"`
	InitialDelay time.Duration `yaml:"initial_delay" env-default:"1s"`
	MaxDelay     time.Duration `yaml:"max_delay" env-default:"30s"`
}

type SpoolConfig struct {
	Enabled       bool          `yaml:"enabled" env-default:"true"`
	Path          string        `yaml:"path" env-default:"/var/lib/aquamon/spool.db"`
	MaxAge        time.Duration `yaml:"max_age" env-default:"24h"`
	FlushInterval time.Duration `yaml:"flush_interval" env-default:"30s"`
}

type LogConfig struct {
	Level  string `yaml:"level" env-default:"info"`
	Format string `yaml:"format" env-default:"json"`
}

func MustLoadAPI(configPath string) *APIConfig {
	var cfg APIConfig
	mustLoad(configPath, "config/api.yaml", &cfg)
	return &cfg
}

func MustLoadBridge(configPath string) *BridgeConfig {
	var cfg BridgeConfig
	mustLoad(configPath, "config/bridge.yaml", &cfg)
	return &cfg
}

func mustLoad(configPath, fallback string, cfg any) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath == "" {
		configPath = fallback
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}
}
