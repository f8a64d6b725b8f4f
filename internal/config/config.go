package config

import (
	"github.com/joho/godotenv"
)

type Config struct {
	API       APIConfig
	Reports   ReportsConfig
	Storage   StorageConfig
	Downloads DownloadsConfig
	Serve     ServeConfig
	Log       LogConfig
}

type APIConfig struct {
	BaseURL string
	Timeout int // seconds
}

type ReportsConfig struct {
	PerPage int
}

type StorageConfig struct {
	DataDir string
}

type DownloadsConfig struct {
	Dir string
}

type ServeConfig struct {
	Port  int
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 30,
		},
		Reports: ReportsConfig{
			PerPage: 10,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Downloads: DownloadsConfig{
			Dir: ".",
		},
		Serve: ServeConfig{
			Port: 4600,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a .env file in the working directory (if
// present), the platform-native backend, and environment variables.
//
// On macOS the backend is UserDefaults (domain: com.plagiaguard.plagctl).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/plagctl/config.json.
//
// Environment variables (PLAGCTL_*) override backend values on all platforms.
func Load() (Config, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
