package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the site server and compiler.
type Config struct {
	DBPath               string
	Webroot              string
	Langs                []string
	ServerPort           int
	LogLevel             string
	SentryDSN            string
	Environment          string
	SeedPath             string
	CompileRateBurst     int
	CompileRatePerSecond float64
	ShutdownGrace        time.Duration
}

const (
	defaultDBPath               = "./data/cms.db"
	defaultWebroot              = "./webroot"
	defaultServerPort           = 8080
	defaultLogLevel             = "info"
	defaultEnvironment          = "development"
	defaultCompileRateBurst     = 3
	defaultCompileRatePerSecond = 0.2
	defaultShutdownGrace        = 10 * time.Second
)

var defaultLangs = []string{"en"}

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		Webroot:       getEnv("WEBROOT", defaultWebroot),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		SeedPath:      os.Getenv("SEED_PATH"),
		Langs:         append([]string(nil), defaultLangs...),
		ShutdownGrace: defaultShutdownGrace,
	}

	if langsJSON := os.Getenv("LANGS"); langsJSON != "" {
		langs, err := parseLangs(langsJSON)
		if err != nil {
			return nil, eris.Wrap(err, "parsing LANGS")
		}
		cfg.Langs = langs
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	burstValue := getEnv("COMPILE_RATE_BURST", strconv.Itoa(defaultCompileRateBurst))
	burst, err := strconv.Atoi(burstValue)
	if err != nil || burst <= 0 {
		return nil, eris.Errorf("invalid COMPILE_RATE_BURST value: %s", burstValue)
	}
	cfg.CompileRateBurst = burst

	rateValue := getEnv("COMPILE_RATE_PER_SECOND", strconv.FormatFloat(defaultCompileRatePerSecond, 'f', -1, 64))
	rate, err := strconv.ParseFloat(rateValue, 64)
	if err != nil || rate <= 0 {
		return nil, eris.Errorf("invalid COMPILE_RATE_PER_SECOND value: %s", rateValue)
	}
	cfg.CompileRatePerSecond = rate

	return cfg, nil
}

// DefaultLang returns the fallback language, which is the first configured one.
func (c *Config) DefaultLang() string {
	if len(c.Langs) == 0 {
		return defaultLangs[0]
	}
	return c.Langs[0]
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLangs(raw string) ([]string, error) {
	// Accept either a JSON array of strings or an object with a `langs` field.
	var langs []string
	if err := json.Unmarshal([]byte(raw), &langs); err != nil {
		var objectInput struct {
			Langs []string `json:"langs"`
		}
		if err := json.Unmarshal([]byte(raw), &objectInput); err != nil {
			return nil, eris.Wrap(err, "decoding JSON")
		}
		langs = objectInput.Langs
	}

	cleaned := make([]string, 0, len(langs))
	seen := make(map[string]struct{}, len(langs))
	for _, lang := range langs {
		trimmed := strings.TrimSpace(lang)
		if trimmed == "" {
			return nil, eris.New("language code is empty")
		}
		if _, dup := seen[trimmed]; dup {
			return nil, eris.Errorf("language %s is listed twice", trimmed)
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}

	if len(cleaned) == 0 {
		return nil, eris.New("langs list is empty")
	}

	return cleaned, nil
}
