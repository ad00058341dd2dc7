package engine

import (
	"bytes"
	"errors"
	"fmt"
	"hurlfix/pkg/fixture"
	"hurlfix/pkg/journal"
	"hurlfix/pkg/metrics"
	"hurlfix/pkg/models"
	"hurlfix/pkg/ratelimit"
	"hurlfix/pkg/ratelimitmanager"
	"hurlfix/pkg/utils/fs"
	"hurlfix/pkg/utils/hash"
	"hurlfix/pkg/utils/logger"
	"hurlfix/pkg/utils/regex"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = 8080
	defaultAdminPrefix  = "/__hurlfix"
	defaultMetricsPath  = "/metrics"
	defaultJournalSize  = 1000
	defaultMaxBodySize  = 64 * 1024
	defaultIOTimeout    = 30 * time.Second
	defaultReloadWindow = 250 * time.Millisecond
)

var (
	// ErrReservedPath marks a fixture that the admin or metrics handlers
	// would shadow.
	ErrReservedPath = errors.New("fixture path is reserved")
	// ErrRateLimitDisabled marks a fixture rate limit configured while the
	// global rate limiter is off.
	ErrRateLimitDisabled = errors.New("fixture rate limit requires rateLimit.enabled")
)

type HurlfixEngine struct {
	config           *models.HurlfixConfig
	configPath       string
	baseDir          string
	logger           *logger.Logger
	registry         *fixture.Registry
	journal          journal.IJournal
	rateLimitManager *ratelimitmanager.RateLimitManager
	rateLimitExclude *regexp.Regexp
	reloadDebounce   time.Duration
	pid              int
}

// LoadConfig reads a config file. Unknown keys are rejected so typos in
// fixture definitions surface at startup.
func LoadConfig(configPath string) (*models.HurlfixConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read the config-path %s: %w", configPath, err)
	}

	var config models.HurlfixConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to parse the config at %s: %w", configPath, err)
	}

	return &config, nil
}

// ApplyDefaults fills in everything the config leaves unset.
func ApplyDefaults(config *models.HurlfixConfig) {
	if config.Server == nil {
		config.Server = &models.ServerConfig{}
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaultPort
	}
	if config.Server.Name == "" {
		config.Server.Name = "hurlfix"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = defaultIOTimeout
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = defaultIOTimeout
	}

	if config.Log == nil {
		config.Log = &models.LogConfig{ToStdout: true}
	}

	if config.Admin == nil {
		config.Admin = &models.AdminConfig{}
	}
	if config.Admin.Prefix == "" {
		config.Admin.Prefix = defaultAdminPrefix
	}
	config.Admin.Prefix = "/" + strings.Trim(config.Admin.Prefix, "/")

	if config.Metrics == nil {
		config.Metrics = &models.MetricsConfig{}
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = defaultMetricsPath
	}

	if config.Journal == nil {
		config.Journal = &models.JournalConfig{Enabled: true, Storage: models.JOURNAL_STORAGE_MEMORY}
	}
	if config.Journal.Capacity == 0 {
		config.Journal.Capacity = defaultJournalSize
	}
	if config.Journal.MaxBodySize == 0 {
		config.Journal.MaxBodySize = defaultMaxBodySize
	}
}

// ResolveStorageDir returns where the pid file lives: the configured path, or
// a per-config directory under the user's app data dir.
func ResolveStorageDir(config *models.HurlfixConfig, configPath string) (string, error) {
	if config.Storage != nil && config.Storage.Path != "" {
		return config.Storage.Path, nil
	}

	appData, err := fs.GetUserAppDataDir("hurlfix")
	if err != nil {
		return "", fmt.Errorf("failed to determine app data dir: %w", err)
	}
	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute config path: %w", err)
	}
	return filepath.Join(appData, hash.HashString(absConfigPath)), nil
}

func InstantiateHurlfixEngine(configPath string) (*HurlfixEngine, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve config path: %w", err)
	}

	config, err := LoadConfig(absPath)
	if err != nil {
		return nil, err
	}

	return NewHurlfixEngine(config, absPath)
}

// NewHurlfixEngine wires an engine from an in-memory config. configPath may
// be empty; it is only used for relative body files, the pid file and
// reloading.
func NewHurlfixEngine(config *models.HurlfixConfig, configPath string) (*HurlfixEngine, error) {
	ApplyDefaults(config)

	baseDir := ""
	if configPath != "" {
		baseDir = filepath.Dir(configPath)
	}

	log, err := logger.NewLogger(config.Log)
	if err != nil {
		return nil, fmt.Errorf("unable to instantiate the logger: %w", err)
	}

	engine := &HurlfixEngine{
		config:         config,
		configPath:     configPath,
		baseDir:        baseDir,
		logger:         log,
		reloadDebounce: defaultReloadWindow,
	}

	if err := engine.init(); err != nil {
		engine.cleanup()
		return nil, err
	}
	return engine, nil
}

func (engine *HurlfixEngine) init() error {
	var err error
	engine.journal, err = journal.New(engine.config.Journal)
	if err != nil {
		return fmt.Errorf("unable to create the journal: %w", err)
	}

	limiter, err := ratelimit.NewRateLimiter(engine.config.RateLimit, engine.logger)
	if err != nil {
		return fmt.Errorf("unable to create the rate limiter: %w", err)
	}
	if limiter != nil {
		engine.rateLimitManager = ratelimitmanager.NewRateLimitManager(limiter, engine.logger)
		engine.rateLimitExclude, err = regex.CombinePatterns(engine.config.RateLimit.Exclude)
		if err != nil {
			return fmt.Errorf("invalid rate limit exclude list: %w", err)
		}
	}

	catalog, err := engine.buildCatalog(engine.config)
	if err != nil {
		return err
	}
	engine.registry, err = fixture.NewRegistry(catalog)
	if err != nil {
		return fmt.Errorf("invalid fixtures: %w", err)
	}
	metrics.FixturesLoaded.Set(float64(engine.registry.Len()))

	engine.logger.Info().
		Int("fixtures", engine.registry.Len()).
		Bool("journal", engine.journal != nil).
		Bool("rateLimit", engine.rateLimitManager != nil).
		Msg("hurlfix engine initialised")
	return nil
}

// Reload rebuilds the fixture catalog from the config file. Only fixtures
// are reloaded; the server, journal and limiter keep their startup settings.
// On failure the current catalog stays active.
func (engine *HurlfixEngine) Reload() (err error) {
	defer func() { metrics.ObserveReload(err) }()

	if engine.configPath == "" {
		return errors.New("engine has no config file to reload")
	}

	config, err := LoadConfig(engine.configPath)
	if err != nil {
		return err
	}

	catalog, err := engine.buildCatalog(config)
	if err != nil {
		return err
	}
	if err := engine.registry.Replace(catalog); err != nil {
		return fmt.Errorf("invalid fixtures: %w", err)
	}

	metrics.FixturesLoaded.Set(float64(engine.registry.Len()))
	engine.logger.Info().Int("fixtures", engine.registry.Len()).Msg("fixture catalog reloaded")
	return nil
}

// buildCatalog builds the fixtures of config and checks them against the
// running engine: admin and metrics paths are answered before fixtures, and
// per-fixture rate limits run on the global limiter.
func (engine *HurlfixEngine) buildCatalog(config *models.HurlfixConfig) ([]fixture.Fixture, error) {
	catalog, err := fixture.Build(config.Fixtures, !config.DisableBuiltins, engine.baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid fixtures: %w", err)
	}

	for _, f := range catalog {
		if engine.config.Metrics.IsEnabled() && f.Path == engine.config.Metrics.Path {
			return nil, fmt.Errorf("%w: fixture %q uses the metrics path %s", ErrReservedPath, f.Name, f.Path)
		}
		if engine.config.Admin.IsEnabled() && strings.HasPrefix(f.Path, engine.config.Admin.Prefix+"/") {
			return nil, fmt.Errorf("%w: fixture %q is under the admin prefix %s", ErrReservedPath, f.Name, engine.config.Admin.Prefix)
		}
		if f.RateLimit != nil && f.RateLimit.Enabled && engine.rateLimitManager == nil {
			return nil, fmt.Errorf("%w: fixture %q", ErrRateLimitDisabled, f.Name)
		}
	}

	return catalog, nil
}
