package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Influx   InfluxConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Auth     AuthConfig
	Images   ImagesConfig
	Control  ControlConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

type InfluxConfig struct {
	URL         string        `mapstructure:"url"`
	Token       string        `mapstructure:"token"`
	Org         string        `mapstructure:"org"`
	Bucket      string        `mapstructure:"bucket"`
	Measurement string        `mapstructure:"measurement"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	DataTopic      string        `mapstructure:"data_topic"`
	ConfTopic      string        `mapstructure:"conf_topic"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type ImagesConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
}

type ControlConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	Timezone         string        `mapstructure:"timezone"`
	SoilMoistureLow  float64       `mapstructure:"soil_moisture_low"`
	SoilMoistureHigh float64       `mapstructure:"soil_moisture_high"`
	LightLuxLow      float64       `mapstructure:"light_lux_low"`
	LightLuxHigh     float64       `mapstructure:"light_lux_high"`
	ActiveHourStart  int           `mapstructure:"active_hour_start"`
	ActiveHourEnd    int           `mapstructure:"active_hour_end"`
	PumpDurationSec  int           `mapstructure:"pump_duration_sec"`
	FlashOnLevel     int           `mapstructure:"flash_on_level"`
	NightFlashLevel  int           `mapstructure:"night_flash_level"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("GREENEYE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Load config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.path", "./data/greeneye_users.db")
	viper.SetDefault("database.busy_timeout", "5s")

	// Influx defaults
	viper.SetDefault("influx.measurement", "sensor_readings")
	viper.SetDefault("influx.timeout", "30s")

	// Redis defaults
	viper.SetDefault("redis.host", "redis")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	// MQTT defaults
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.client_id", "greeneye-hub")
	viper.SetDefault("mqtt.data_topic", "GreenEye/data/#")
	viper.SetDefault("mqtt.conf_topic", "GreenEye/conf")
	viper.SetDefault("mqtt.publish_timeout", "5s")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")

	// Images defaults
	viper.SetDefault("images.upload_dir", "./images")

	// Control defaults (thresholds in raw sensor units)
	viper.SetDefault("control.interval", "1m")
	viper.SetDefault("control.timezone", "Asia/Seoul")
	viper.SetDefault("control.soil_moisture_low", 300.0)
	viper.SetDefault("control.soil_moisture_high", 700.0)
	viper.SetDefault("control.light_lux_low", 500.0)
	viper.SetDefault("control.light_lux_high", 800.0)
	viper.SetDefault("control.active_hour_start", 7)
	viper.SetDefault("control.active_hour_end", 20)
	viper.SetDefault("control.pump_duration_sec", 5)
	viper.SetDefault("control.flash_on_level", 128)
	viper.SetDefault("control.night_flash_level", 180)
}

func validateConfig(config *Config) error {
	if config.Influx.URL == "" {
		return fmt.Errorf("influx url is required")
	}
	if config.Influx.Org == "" {
		return fmt.Errorf("influx org is required")
	}
	if config.Influx.Bucket == "" {
		return fmt.Errorf("influx bucket is required")
	}
	if config.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if config.Control.ActiveHourStart < 0 || config.Control.ActiveHourEnd > 23 ||
		config.Control.ActiveHourStart > config.Control.ActiveHourEnd {
		return fmt.Errorf("invalid control active hours window")
	}
	return nil
}
