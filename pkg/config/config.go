package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the single source of truth for all environment-derived
// deployment parameters. It is constructed once by Load (or Default plus
// ApplyEnv) and treated as read-only for the rest of the run; no stage
// mutates it.
type Config struct {
	// Cluster identity
	ClusterName string `yaml:"cluster_name"`
	TenantName  string `yaml:"tenant_name"`

	// Credentials
	RootPassword    string `yaml:"root_password"`
	TenantPassword  string `yaml:"tenant_password"`
	ProxyroPassword string `yaml:"proxyro_password"`

	// Network
	Host       string `yaml:"host"`
	ClientPort int    `yaml:"client_port"`
	RPCPort    int    `yaml:"rpc_port"`
	ProxyPort  int    `yaml:"proxy_port"`

	// Filesystem layout
	HomePath    string `yaml:"home_path"`
	DataDir     string `yaml:"data_dir"`
	LogproxyDir string `yaml:"logproxy_dir"`

	// Resource sizing passed through to the storage engine
	MemoryLimit  string `yaml:"memory_limit"`
	DatafileSize string `yaml:"datafile_size"`
	LogDiskSize  string `yaml:"log_disk_size"`
	CPUCount     int    `yaml:"cpu_count"`

	// External binaries driven by the pipeline
	ObserverBin string `yaml:"observer_bin"`
	ObproxyBin  string `yaml:"obproxy_bin"`
	MySQLBin    string `yaml:"mysql_bin"`

	// Readiness probe tuning
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`

	// Per-command execution timeout
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// Default returns a Config with sensible defaults for a single-node
// bring-up. Callers typically layer ApplyEnv and Validate on top.
func Default() *Config {
	return &Config{
		ClusterName:    "obcluster",
		TenantName:     "test",
		Host:           "127.0.0.1",
		ClientPort:     2881,
		RPCPort:        2882,
		ProxyPort:      2883,
		HomePath:       "/root/ob",
		DataDir:        "/root/ob/store",
		LogproxyDir:    "/root/oblogproxy",
		MemoryLimit:    "6G",
		DatafileSize:   "5G",
		LogDiskSize:    "5G",
		CPUCount:       4,
		ObserverBin:    "/root/ob/bin/observer",
		ObproxyBin:     "/opt/obproxy/bin/obproxy",
		MySQLBin:       "mysql",
		ProbeInterval:  2 * time.Second,
		ProbeTimeout:   2 * time.Minute,
		CommandTimeout: 1 * time.Minute,
	}
}

// Load builds a Config from defaults, an optional YAML file, and OB_*
// environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from OB_* environment variables. Unset
// variables leave the current value untouched.
func (c *Config) ApplyEnv() {
	setString(&c.ClusterName, "OB_CLUSTER_NAME")
	setString(&c.TenantName, "OB_TENANT_NAME")
	setString(&c.RootPassword, "OB_ROOT_PASSWORD")
	setString(&c.TenantPassword, "OB_TENANT_PASSWORD")
	setString(&c.ProxyroPassword, "OB_PROXYRO_PASSWORD")
	setString(&c.Host, "OB_HOST")
	setInt(&c.ClientPort, "OB_MYSQL_PORT")
	setInt(&c.RPCPort, "OB_RPC_PORT")
	setInt(&c.ProxyPort, "OB_PROXY_PORT")
	setString(&c.HomePath, "OB_HOME_PATH")
	setString(&c.DataDir, "OB_DATA_DIR")
	setString(&c.LogproxyDir, "OB_LOGPROXY_DIR")
	setString(&c.MemoryLimit, "OB_MEMORY_LIMIT")
	setString(&c.DatafileSize, "OB_DATAFILE_SIZE")
	setString(&c.LogDiskSize, "OB_LOG_DISK_SIZE")
	setInt(&c.CPUCount, "OB_CPU_COUNT")
	setString(&c.ObserverBin, "OB_OBSERVER_BIN")
	setString(&c.ObproxyBin, "OB_OBPROXY_BIN")
	setString(&c.MySQLBin, "OB_MYSQL_BIN")
}

// Validate rejects a structurally invalid config before any stage is
// built. Domain-level legality of the values (is the port actually free,
// does the binary exist) is the collaborators' problem, surfaced later as
// stage failures.
func (c *Config) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("cluster_name is required")
	}
	if c.TenantName == "" {
		return fmt.Errorf("tenant_name is required")
	}
	if c.ClientPort <= 0 {
		return fmt.Errorf("client_port must be positive, got %d", c.ClientPort)
	}
	if c.RPCPort <= 0 {
		return fmt.Errorf("rpc_port must be positive, got %d", c.RPCPort)
	}
	if c.ProxyPort <= 0 {
		return fmt.Errorf("proxy_port must be positive, got %d", c.ProxyPort)
	}
	if c.HomePath == "" {
		return fmt.Errorf("home_path is required")
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("probe_interval must be positive, got %v", c.ProbeInterval)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive, got %v", c.ProbeTimeout)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be positive, got %v", c.CommandTimeout)
	}
	return nil
}

// Vars exposes the config as template variables for the renderer. Keys
// follow the upper-snake naming of the original environment contract.
func (c *Config) Vars() map[string]string {
	return map[string]string{
		"CLUSTER_NAME":     c.ClusterName,
		"TENANT_NAME":      c.TenantName,
		"ROOT_PASSWORD":    c.RootPassword,
		"TENANT_PASSWORD":  c.TenantPassword,
		"PROXYRO_PASSWORD": c.ProxyroPassword,
		"HOST":             c.Host,
		"MYSQL_PORT":       strconv.Itoa(c.ClientPort),
		"RPC_PORT":         strconv.Itoa(c.RPCPort),
		"PROXY_PORT":       strconv.Itoa(c.ProxyPort),
		"HOME_PATH":        c.HomePath,
		"DATA_DIR":         c.DataDir,
		"LOGPROXY_DIR":     c.LogproxyDir,
		"MEMORY_LIMIT":     c.MemoryLimit,
		"DATAFILE_SIZE":    c.DatafileSize,
		"LOG_DISK_SIZE":    c.LogDiskSize,
		"CPU_COUNT":        strconv.Itoa(c.CPUCount),
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
