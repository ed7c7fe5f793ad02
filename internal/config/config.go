package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Server struct {
		Addr                string   `yaml:"addr"`
		Pprof               bool     `yaml:"pprof"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
	} `yaml:"server"`
	Book struct {
		Symbol        string  `yaml:"symbol"`
		TickSize      float64 `yaml:"tick_size"`
		QueueCapacity int     `yaml:"queue_capacity"`
		IdleSleepUs   int     `yaml:"idle_sleep_us"`
	} `yaml:"book"`
	Replay struct {
		File       string `yaml:"file"`
		ChunkBytes int    `yaml:"chunk_bytes"`
		OnFull     string `yaml:"on_full"` // wait or drop
	} `yaml:"replay"`
}

func defaultConfig() Config {
	var c Config
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Server.Addr = ":9090"
	c.Server.Pprof = false
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128"}
	c.Book.Symbol = "TSLA"
	c.Book.TickSize = 0.01
	c.Book.QueueCapacity = 10000
	c.Book.IdleSleepUs = 1
	c.Replay.File = ""
	c.Replay.ChunkBytes = 64 * 1024
	c.Replay.OnFull = "wait"
	return c
}

func Load() Config {
	c := defaultConfig()
	if path := os.Getenv("ITCHBOOK_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	if v := os.Getenv("ITCHBOOK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ITCHBOOK_LOG_PRETTY"); v == "1" || v == "true" {
		c.Logging.Pretty = true
	}
	if v := os.Getenv("ITCHBOOK_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ITCHBOOK_PPROF"); v == "1" || v == "true" {
		c.Server.Pprof = true
	}
	if v := os.Getenv("ITCHBOOK_ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("ITCHBOOK_SYMBOL"); v != "" {
		c.Book.Symbol = v
	}
	if v := os.Getenv("ITCHBOOK_TICK_SIZE"); v != "" {
		var f float64
		_, _ = fmt.Sscan(v, &f)
		if f > 0 {
			c.Book.TickSize = f
		}
	}
	if v := os.Getenv("ITCHBOOK_QUEUE_CAPACITY"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Book.QueueCapacity = n
		}
	}
	if v := os.Getenv("ITCHBOOK_IDLE_SLEEP_US"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Book.IdleSleepUs = n
		}
	}
	if v := os.Getenv("ITCHBOOK_REPLAY_FILE"); v != "" {
		c.Replay.File = v
	}
	if v := os.Getenv("ITCHBOOK_REPLAY_CHUNK_BYTES"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Replay.ChunkBytes = n
		}
	}
	if v := os.Getenv("ITCHBOOK_REPLAY_ON_FULL"); v != "" {
		c.Replay.OnFull = strings.ToLower(v)
	}
	return c
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
