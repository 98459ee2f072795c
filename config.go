package ircreactor

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

type Global struct {
	LogLevel       string `yaml:"log_level" toml:"log_level"`
	LogFile        string `yaml:"log_file" toml:"log_file"`
	LogMaxSizeMB   int    `yaml:"log_max_size_mb" toml:"log_max_size_mb"`
	LogMaxBackups  int    `yaml:"log_max_backups" toml:"log_max_backups"`
	StatsPeriodSec int    `yaml:"stats_period_sec" toml:"stats_period_sec"`
}

type ReactorConfig struct {
	Name                string `yaml:"name" toml:"name"`
	LockOsThread        bool   `yaml:"lock_os_thread" toml:"lock_os_thread"`
	EventBufferSize     int    `yaml:"event_buffer_size" toml:"event_buffer_size"`
	ActionQueueSize     int    `yaml:"action_queue_size" toml:"action_queue_size"`
	MaxSessions         int    `yaml:"max_sessions" toml:"max_sessions"`
	SendRetries         int    `yaml:"send_retries" toml:"send_retries"`
	SendRetryIntervalMs int    `yaml:"send_retry_interval_ms" toml:"send_retry_interval_ms"`
}

type ServerConfig struct {
	Name           string   `yaml:"name" toml:"name"`
	Net            string   `yaml:"net" toml:"net"`
	Address        string   `yaml:"address" toml:"address"`
	Nick           string   `yaml:"nick" toml:"nick"`
	User           string   `yaml:"user" toml:"user"`
	RealName       string   `yaml:"real_name" toml:"real_name"`
	Channels       []string `yaml:"channels" toml:"channels"`
	DialTimeoutSec int      `yaml:"dial_timeout_sec" toml:"dial_timeout_sec"`
	RcvBuf         int      `yaml:"rcv_buf" toml:"rcv_buf"`
	SndBuf         int      `yaml:"snd_buf" toml:"snd_buf"`
}

type Config struct {
	Global  Global         `yaml:"global" toml:"global"`
	Reactor ReactorConfig  `yaml:"reactor" toml:"reactor"`
	Servers []ServerConfig `yaml:"servers" toml:"servers"`
}

// LoadConfig reads a .toml or .yaml/.yml file, fills in defaults and
// validates the result.
func LoadConfig(filePath string) (*Config, error) {
	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	config := &Config{}
	switch {
	case strings.HasSuffix(filePath, ".toml"):
		err = toml.Unmarshal(file, config)
	case strings.HasSuffix(filePath, ".yaml"), strings.HasSuffix(filePath, ".yml"):
		err = yaml.Unmarshal(file, config)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	config.Reactor = config.Reactor.withDefaults()
	for i := range config.Servers {
		config.Servers[i] = config.Servers[i].withDefaults()
	}
	if config.Global.LogLevel == "" {
		config.Global.LogLevel = "info"
	}
	err = validateConfig(config)
	if err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if len(config.Servers) == 0 {
		return fmt.Errorf("no servers configured")
	}
	if config.Reactor.MaxSessions < len(config.Servers) {
		return fmt.Errorf("max_sessions %d is lower than the %d configured servers", config.Reactor.MaxSessions, len(config.Servers))
	}
	names := make(map[string]bool)
	for _, server := range config.Servers {
		if server.Address == "" {
			return fmt.Errorf("server %q has no address", server.Name)
		}
		if server.Nick == "" {
			return fmt.Errorf("server %q has no nick", server.Name)
		}
		if names[server.Name] {
			return fmt.Errorf("duplicate server name %q", server.Name)
		}
		names[server.Name] = true
	}
	return checkLoginCapacity(len(config.Servers), config.Reactor.ActionQueueSize)
}

// loginMessages is the number of actions queued per server before the
// reactor starts consuming the action queue.
const loginMessages = 2

func checkLoginCapacity(servers, actionQueueSize int) error {
	if servers*loginMessages > actionQueueSize {
		return fmt.Errorf("action_queue_size %d can't hold the login messages of %d servers", actionQueueSize, servers)
	}
	return nil
}

func DefaultReactorConfig() ReactorConfig {
	return ReactorConfig{}.withDefaults()
}

func (c ReactorConfig) withDefaults() ReactorConfig {
	if c.Name == "" {
		c.Name = "reactor"
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = defEventsBufferSize
	}
	if c.ActionQueueSize <= 0 {
		c.ActionQueueSize = DefaultActionQueueSize
	}
	if c.MaxSessions <= 0 || c.MaxSessions > actionQueueToken {
		c.MaxSessions = actionQueueToken
	}
	if c.SendRetries < 0 {
		c.SendRetries = 0
	}
	if c.SendRetryIntervalMs <= 0 {
		c.SendRetryIntervalMs = 10
	}
	return c
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Net == "" {
		c.Net = "tcp"
	}
	if c.Name == "" {
		c.Name = c.Address
	}
	if c.User == "" {
		c.User = c.Nick
	}
	if c.RealName == "" {
		c.RealName = c.Nick
	}
	if c.DialTimeoutSec <= 0 {
		c.DialTimeoutSec = 10
	}
	return c
}
