package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "firewatch.cfg.json"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host         string   `json:"host" mapstructure:"host"`
	Port         int      `json:"port" mapstructure:"port"`
	PortAttempts int      `json:"portAttempts" mapstructure:"portAttempts"`
	CORSOrigins  []string `json:"corsOrigins" mapstructure:"corsOrigins"`
	StaticDir    string   `json:"staticDir" mapstructure:"staticDir"`
}

// SimulationConfig holds engine settings.
type SimulationConfig struct {
	TickInterval time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	Latency      time.Duration `json:"latency" mapstructure:"latency"`
	StartDelay   time.Duration `json:"startDelay" mapstructure:"startDelay"`
	Seed         uint64        `json:"seed" mapstructure:"seed"` // 0 = unseeded
	ScenarioFile string        `json:"scenarioFile" mapstructure:"scenarioFile"`
}

// MemoryConfig holds in-memory storage backend settings
type MemoryConfig struct {
	Capacity int `json:"capacity" mapstructure:"capacity"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// InfluxConfig holds InfluxDB storage backend settings
type InfluxConfig struct {
	URL           string        `json:"url" mapstructure:"url"`
	Token         string        `json:"token" mapstructure:"token"`
	Org           string        `json:"org" mapstructure:"org"`
	Bucket        string        `json:"bucket" mapstructure:"bucket"`
	BackupPath    string        `json:"backupPath" mapstructure:"backupPath"`
	BatchSize     uint          `json:"batchSize" mapstructure:"batchSize"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
	Provision     bool          `json:"provision" mapstructure:"provision"`
}

// StorageConfig selects and configures the recorder backend.
type StorageConfig struct {
	Type       string       `json:"type" mapstructure:"type"`
	BufferSize int          `json:"bufferSize" mapstructure:"bufferSize"`
	Memory     MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite     SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	Postgres   DBConfig     `json:"db" mapstructure:"db"`
	Influx     InfluxConfig `json:"influx" mapstructure:"influx"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// LoggingConfig holds log sink settings.
type LoggingConfig struct {
	Level          string `json:"logLevel" mapstructure:"logLevel"`
	LogsDir        string `json:"logsDir" mapstructure:"logsDir"`
	GraylogEnabled bool   `json:"graylogEnabled" mapstructure:"graylogEnabled"`
	GraylogAddress string `json:"graylogAddress" mapstructure:"graylogAddress"`
}

// MonitorConfig holds status monitor settings.
type MonitorConfig struct {
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A missing file is
// returned as an error; the defaults stay in effect.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix("FIREWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("server.host", "")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.portAttempts", 20)
	viper.SetDefault("server.corsOrigins", []string{"*"})
	viper.SetDefault("server.staticDir", "")

	viper.SetDefault("simulation.tickInterval", "500ms")
	viper.SetDefault("simulation.latency", "50ms")
	viper.SetDefault("simulation.startDelay", "1s")
	viper.SetDefault("simulation.seed", 0)
	viper.SetDefault("simulation.scenarioFile", "")

	viper.SetDefault("storage.type", "none")
	viper.SetDefault("storage.bufferSize", 256)
	viper.SetDefault("storage.memory.capacity", 1200)
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "firewatch")
	viper.SetDefault("db.sslMode", "disable")

	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "firewatch")
	viper.SetDefault("influx.bucket", "telemetry")
	viper.SetDefault("influx.backupPath", "./logs/influx_backup.lp.gz")
	viper.SetDefault("influx.batchSize", 2500)
	viper.SetDefault("influx.flushInterval", "1s")
	viper.SetDefault("influx.provision", true)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "firewatch")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.interval", "5s")
	viper.SetDefault("monitor.statusFile", "")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetServerConfig returns the HTTP listener settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Host:         viper.GetString("server.host"),
		Port:         viper.GetInt("server.port"),
		PortAttempts: viper.GetInt("server.portAttempts"),
		CORSOrigins:  viper.GetStringSlice("server.corsOrigins"),
		StaticDir:    viper.GetString("server.staticDir"),
	}
}

// GetSimulationConfig returns the engine settings.
func GetSimulationConfig() SimulationConfig {
	return SimulationConfig{
		TickInterval: viper.GetDuration("simulation.tickInterval"),
		Latency:      viper.GetDuration("simulation.latency"),
		StartDelay:   viper.GetDuration("simulation.startDelay"),
		Seed:         viper.GetUint64("simulation.seed"),
		ScenarioFile: viper.GetString("simulation.scenarioFile"),
	}
}

// GetStorageConfig returns the recorder backend settings, including the
// shared db.* and influx.* sections.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:       viper.GetString("storage.type"),
		BufferSize: viper.GetInt("storage.bufferSize"),
		Memory: MemoryConfig{
			Capacity: viper.GetInt("storage.memory.capacity"),
		},
		SQLite: SQLiteConfig{
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
			SSLMode:  viper.GetString("db.sslMode"),
		},
		Influx: InfluxConfig{
			URL:           viper.GetString("influx.url"),
			Token:         viper.GetString("influx.token"),
			Org:           viper.GetString("influx.org"),
			Bucket:        viper.GetString("influx.bucket"),
			BackupPath:    viper.GetString("influx.backupPath"),
			BatchSize:     viper.GetUint("influx.batchSize"),
			FlushInterval: viper.GetDuration("influx.flushInterval"),
			Provision:     viper.GetBool("influx.provision"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetLoggingConfig returns the log sink settings.
func GetLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:          viper.GetString("logLevel"),
		LogsDir:        viper.GetString("logsDir"),
		GraylogEnabled: viper.GetBool("graylog.enabled"),
		GraylogAddress: viper.GetString("graylog.address"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}
