// Package config loads arsync settings and marker descriptors through viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the settings file looked up in the config directory.
const FileName = "arsync.cfg.json"

// Rotation modes for content placed on a marker.
const (
	RotationAuto     = "auto"
	RotationPreserve = "preserve"
	RotationFollow   = "follow"
)

// Policy holds the presentation policy switches.
type Policy struct {
	SingleActive bool    `json:"singleActive" mapstructure:"singleActive"`
	Rotation     string  `json:"rotation" mapstructure:"rotation"`
	UpOffset     float32 `json:"upOffset" mapstructure:"upOffset"`
}

// FollowRotation resolves the rotation mode. Auto follows the tracking pose
// only on constrained (single-active) devices.
func (p Policy) FollowRotation() bool {
	switch p.Rotation {
	case RotationFollow:
		return true
	case RotationPreserve:
		return false
	default:
		return p.SingleActive
	}
}

// MemoryConfig holds in-memory/JSON journal settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the SQLite journal settings. With InMemory set the
// journal lives in memory and is dumped to Path every DumpInterval.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	InMemory     bool          `json:"inMemory" mapstructure:"inMemory"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds connection settings for the Postgres journal.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN renders a libpq key/value connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// InfluxConfig holds InfluxDB v2 settings.
type InfluxConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Token  string `json:"token" mapstructure:"token"`
	Org    string `json:"org" mapstructure:"org"`
	Bucket string `json:"bucket" mapstructure:"bucket"`

	// BackupPath receives gzipped line protocol while the server is unreachable.
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// WebSocketConfig holds the live journal stream settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the journal backend.
type StorageConfig struct {
	Type      string
	Memory    MemoryConfig
	SQLite    SQLiteConfig
	Postgres  PostgresConfig
	Influx    InfluxConfig
	WebSocket WebSocketConfig
}

// APIConfig holds the journal upload server settings.
type APIConfig struct {
	ServerURL string
	APIKey    string
	// Upload sends the exported session file after the session ends.
	Upload bool
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// GraylogConfig holds the optional GELF sink settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./arsynclogs")
	viper.SetDefault("markersFile", "markers.yaml")
	viper.SetDefault("platform", "web")
	viper.SetDefault("scene", "")

	viper.SetDefault("policy.singleActive", false)
	viper.SetDefault("policy.rotation", RotationAuto)
	viper.SetDefault("policy.upOffset", 0.1)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./sessions")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.path", "./arsync.db")
	viper.SetDefault("storage.sqlite.inMemory", false)
	viper.SetDefault("storage.sqlite.dumpInterval", "1m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "arsync")

	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "arsync")
	viper.SetDefault("influx.bucket", "sightings")
	viper.SetDefault("influx.backupPath", "./arsync_influx_backup.lp.gz")

	viper.SetDefault("websocket.url", "")
	viper.SetDefault("websocket.secret", "")

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "arsync")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configDir/arsync.cfg.json on top of the defaults.
// On error the defaults stay in effect.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// LoadDefaults installs defaults without reading a file.
func LoadDefaults() {
	setDefaults()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetPolicy returns the presentation policy.
func GetPolicy() Policy {
	return Policy{
		SingleActive: viper.GetBool("policy.singleActive"),
		Rotation:     viper.GetString("policy.rotation"),
		UpOffset:     float32(viper.GetFloat64("policy.upOffset")),
	}
}

// GetStorage returns the journal backend configuration.
func GetStorage() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			InMemory:     viper.GetBool("storage.sqlite.inMemory"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
		Influx: InfluxConfig{
			URL:        viper.GetString("influx.url"),
			Token:      viper.GetString("influx.token"),
			Org:        viper.GetString("influx.org"),
			Bucket:     viper.GetString("influx.bucket"),
			BackupPath: viper.GetString("influx.backupPath"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("websocket.url"),
			Secret: viper.GetString("websocket.secret"),
		},
	}
}

// GetOTel returns the OpenTelemetry configuration.
func GetOTel() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetAPI returns the upload server configuration.
func GetAPI() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Upload:    viper.GetBool("api.upload"),
	}
}

// GetGraylog returns the Graylog sink configuration.
func GetGraylog() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
