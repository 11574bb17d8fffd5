package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	RoleManager  = "manager"
	RoleExecutor = "executor"
	RoleBoth     = "both"
)

type Config struct {
	Environment string           `json:"environment"`
	Role        string           `json:"role"`
	Server      ServerConfig     `json:"server"`
	Database    DatabaseConfig   `json:"database"`
	Redis       RedisConfig      `json:"redis"`
	Connection  ConnectionConfig `json:"connection"`
	Dispatch    DispatchConfig   `json:"dispatch"`
}

type ServerConfig struct {
	Port           string        `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	MaxHeaderBytes int           `json:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	User         string        `json:"user"`
	Password     string        `json:"password"`
	DBName       string        `json:"dbname"`
	SSLMode      string        `json:"sslmode"`
	MaxOpenConns int           `json:"max_open_conns"`
	MaxIdleConns int           `json:"max_idle_conns"`
	MaxLifetime  time.Duration `json:"max_lifetime"`
	MaxIdleTime  time.Duration `json:"max_idle_time"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// ConnectionConfig is the shared protocol configuration between a Manager and
// an Executor instance pair.
type ConnectionConfig struct {
	InstanceID             string `json:"instance_id"`
	SharedSecret           string `json:"shared_secret"`
	ManagerBaseURL         string `json:"manager_base_url"`
	ExecutorBaseURL        string `json:"executor_base_url"`
	StorefrontBaseURL      string `json:"storefront_base_url"`
	StorefrontToken        string `json:"storefront_token"`
	TimestampWindowSeconds int    `json:"timestamp_window_seconds"`
	AllowedManagerIPs      string `json:"allowed_manager_ips"`
	EnableReceiveProducts  bool   `json:"enable_receive_products"`
	EnableReceiveOrders    bool   `json:"enable_receive_orders"`
	EnableManualPull       bool   `json:"enable_manual_pull"`
	RetryFailedAcks        bool   `json:"retry_failed_acks"`
}

type DispatchConfig struct {
	RetryMaxAttempts    int           `json:"retry_max_attempts"`
	RetryBackoffSeconds int           `json:"retry_backoff_seconds"`
	Workers             int           `json:"workers"`
	PollInterval        time.Duration `json:"poll_interval"`
	AttemptTimeout      time.Duration `json:"attempt_timeout"`
	PullRatePerSecond   float64       `json:"pull_rate_per_second"`
	PullBurst           int           `json:"pull_burst"`
}

func LoadConfig() (*Config, error) {
	config := &Config{}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	config.Environment = env

	configDir, err := filepath.Abs("config")
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.json")

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	config.loadFromEnv()
	config.setDefaults()

	return config, nil
}

func (c *Config) loadFromEnv() {
	if role := os.Getenv("BRIDGE_ROLE"); role != "" {
		c.Role = role
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Database.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		c.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		c.Database.DBName = dbname
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		c.Database.SSLMode = sslmode
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		c.Redis.Host = host
		c.Redis.Enabled = true
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Redis.Port = p
		}
	}

	if instanceID := os.Getenv("BRIDGE_INSTANCE_ID"); instanceID != "" {
		c.Connection.InstanceID = instanceID
	}
	if secret := os.Getenv("BRIDGE_SHARED_SECRET"); secret != "" {
		c.Connection.SharedSecret = secret
	}
	if url := os.Getenv("BRIDGE_MANAGER_URL"); url != "" {
		c.Connection.ManagerBaseURL = url
	}
	if url := os.Getenv("BRIDGE_EXECUTOR_URL"); url != "" {
		c.Connection.ExecutorBaseURL = url
	}
	if url := os.Getenv("STOREFRONT_URL"); url != "" {
		c.Connection.StorefrontBaseURL = url
	}
	if token := os.Getenv("STOREFRONT_TOKEN"); token != "" {
		c.Connection.StorefrontToken = token
	}

	if serverPort := os.Getenv("SERVER_PORT"); serverPort != "" {
		c.Server.Port = serverPort
	}
}

func (c *Config) setDefaults() {
	if c.Role == "" {
		c.Role = RoleBoth
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 50
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.MaxLifetime == 0 {
		c.Database.MaxLifetime = time.Hour
	}
	if c.Database.MaxIdleTime == 0 {
		c.Database.MaxIdleTime = 10 * time.Minute
	}
	if c.Connection.TimestampWindowSeconds == 0 {
		c.Connection.TimestampWindowSeconds = 300
	}
	if c.Dispatch.RetryMaxAttempts == 0 {
		c.Dispatch.RetryMaxAttempts = 5
	}
	if c.Dispatch.RetryBackoffSeconds == 0 {
		c.Dispatch.RetryBackoffSeconds = 30
	}
	if c.Dispatch.Workers == 0 {
		c.Dispatch.Workers = 4
	}
	if c.Dispatch.PollInterval == 0 {
		c.Dispatch.PollInterval = 5 * time.Second
	}
	if c.Dispatch.AttemptTimeout == 0 {
		c.Dispatch.AttemptTimeout = 30 * time.Second
	}
	if c.Dispatch.PullRatePerSecond == 0 {
		c.Dispatch.PullRatePerSecond = 1
	}
	if c.Dispatch.PullBurst == 0 {
		c.Dispatch.PullBurst = 3
	}
}

func (c *Config) Validate() error {
	switch c.Role {
	case RoleManager, RoleExecutor, RoleBoth:
	default:
		return fmt.Errorf("invalid role %q", c.Role)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database port is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Connection.InstanceID == "" {
		return fmt.Errorf("connection instance id is required")
	}
	if c.Connection.SharedSecret == "" {
		return fmt.Errorf("connection shared secret is required")
	}
	if c.IsManager() && c.Connection.ExecutorBaseURL == "" {
		return fmt.Errorf("executor base URL is required for manager role")
	}
	if c.IsExecutor() && c.Connection.ManagerBaseURL == "" {
		return fmt.Errorf("manager base URL is required for executor role")
	}
	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) IsManager() bool {
	return c.Role == RoleManager || c.Role == RoleBoth
}

func (c *Config) IsExecutor() bool {
	return c.Role == RoleExecutor || c.Role == RoleBoth
}

func (cc *ConnectionConfig) TimestampWindow() time.Duration {
	return time.Duration(cc.TimestampWindowSeconds) * time.Second
}

func (cc *ConnectionConfig) AllowedIPs() []string {
	if cc.AllowedManagerIPs == "" {
		return nil
	}
	parts := strings.Split(cc.AllowedManagerIPs, ",")
	ips := make([]string, 0, len(parts))
	for _, part := range parts {
		if ip := strings.TrimSpace(part); ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}
