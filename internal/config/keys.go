package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "api.base_url", typ: kString, env: "PLAGCTL_API_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.API.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.API.BaseURL },
	},
	{
		key: "api.timeout", typ: kInt, env: "PLAGCTL_API_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.API.Timeout = v.(int) },
		extract: func(cfg Config) any { return cfg.API.Timeout },
	},
	{
		key: "reports.per_page", typ: kInt, env: "PLAGCTL_REPORTS_PER_PAGE",
		apply:   func(cfg *Config, v any) { cfg.Reports.PerPage = v.(int) },
		extract: func(cfg Config) any { return cfg.Reports.PerPage },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PLAGCTL_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "downloads.dir", typ: kString, env: "PLAGCTL_DOWNLOADS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Downloads.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Downloads.Dir },
	},
	{
		key: "serve.port", typ: kInt, env: "PLAGCTL_SERVE_PORT",
		apply:   func(cfg *Config, v any) { cfg.Serve.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Serve.Port },
	},
	{
		key: "serve.token", typ: kString, env: "PLAGCTL_SERVE_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Serve.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Serve.Token },
	},
	{
		key: "log.level", typ: kString, env: "PLAGCTL_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
