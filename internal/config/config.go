package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"retailcast/internal/models"
	"retailcast/internal/routing"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// DefaultHistoryStart is the earliest transaction date admitted into any skeleton.
var DefaultHistoryStart = time.Date(2016, 8, 1, 0, 0, 0, 0, time.UTC)

// RouterConfig is the TOML-backed tuning surface for routing thresholds and model fitting.
type RouterConfig struct {
	Sales   routing.Thresholds `toml:"sales"`
	Returns routing.Thresholds `toml:"returns"`
	Models  models.Options     `toml:"models"`
}

// DefaultRouterConfig returns the thresholds each subsystem ships with.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Sales:   routing.SalesThresholds(),
		Returns: routing.ReturnsThresholds(),
		Models:  models.DefaultOptions(),
	}
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath         string
	CleanedDir       string
	ModelsDir        string
	OutputDir        string
	EncoderPath      string
	LogDir           string
	HorizonDays      int
	WindowDays       int
	HistoryStart     time.Time
	Workers          int
	PersistColdStart bool
	WarehouseDSN     string
	Router           RouterConfig
}

// SalesModelsDir is where sales artifacts live.
func (c *AppConfig) SalesModelsDir() string {
	return filepath.Join(c.ModelsDir, "sales_forecast")
}

// ReturnsModelsDir is where returns artifacts live.
func (c *AppConfig) ReturnsModelsDir() string {
	return filepath.Join(c.ModelsDir, "returns_forecast")
}

// SalesOutputDir holds the sales forecast and the downstream reports.
func (c *AppConfig) SalesOutputDir() string {
	return filepath.Join(c.OutputDir, "sales_forecast")
}

// ReturnsOutputDir holds the returns forecast.
func (c *AppConfig) ReturnsOutputDir() string {
	return filepath.Join(c.OutputDir, "returns_forecast")
}

// SalesForecastPath is the sales JSON consumed by the returns pipeline.
func (c *AppConfig) SalesForecastPath() string {
	return filepath.Join(c.SalesOutputDir(), "latest_sales_forecast.json")
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = "."
	}

	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))
	outputDir := filepath.Join(dataPath, "json_files")

	cfg := &AppConfig{
		DataPath:         dataPath,
		CleanedDir:       getEnv("CLEANED_DIR", filepath.Join(dataPath, "cleaned")),
		ModelsDir:        filepath.Join(dataPath, "models"),
		OutputDir:        outputDir,
		EncoderPath:      filepath.Join(outputDir, "encoder", "encoder.json"),
		LogDir:           logDir,
		HorizonDays:      getEnvInt("HORIZON_DAYS", 30),
		WindowDays:       getEnvInt("WINDOW_DAYS", 365),
		HistoryStart:     getEnvDate("HISTORY_START", DefaultHistoryStart),
		Workers:          getEnvInt("TRAIN_WORKERS", 4),
		PersistColdStart: getEnvBool("PERSIST_COLDSTART", false),
		WarehouseDSN:     getEnv("WAREHOUSE_DSN", ""),
		Router:           DefaultRouterConfig(),
	}

	if cfg.HorizonDays <= 0 {
		return nil, fmt.Errorf("HORIZON_DAYS must be positive, got %d", cfg.HorizonDays)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	// 4. Optional router thresholds
	routerPath := getEnv("ROUTER_CONFIG", filepath.Join(dataPath, "router.toml"))
	router, err := LoadRouterConfig(routerPath)
	if err != nil {
		return nil, err
	}
	cfg.Router = router

	for _, dir := range []string{cfg.ModelsDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to create data directory")
		}
	}

	return cfg, nil
}

// LoadRouterConfig overlays the TOML file at path onto the defaults.
// A missing file yields the defaults; a malformed one is an error.
func LoadRouterConfig(path string) (RouterConfig, error) {
	cfg := DefaultRouterConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read router config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse router config %s: %w", path, err)
	}

	for name, th := range map[string]routing.Thresholds{"sales": cfg.Sales, "returns": cfg.Returns} {
		if err := th.Validate(); err != nil {
			return cfg, fmt.Errorf("invalid %s thresholds: %w", name, err)
		}
	}

	log.Debug().Str("path", path).Msg("Loaded router configuration")
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer setting")
	}
	return fallback
}

func getEnvDate(key string, fallback time.Time) time.Time {
	if value, ok := os.LookupEnv(key); ok {
		if t, err := time.Parse("2006-01-02", value); err == nil {
			return t
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring malformed date setting")
	}
	return fallback
}
