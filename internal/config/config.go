package config

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/vango-stream/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vango-stream.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultArchiveDir is the default prerender output directory.
	DefaultArchiveDir = "dist"

	// DefaultMetricsPath is the default metrics endpoint.
	DefaultMetricsPath = "/metrics"
)

// Config represents the complete vango-stream.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	Server  ServerConfig  `json:"server"`
	Stream  StreamConfig  `json:"stream"`
	Archive ArchiveConfig `json:"archive"`
	Metrics MetricsConfig `json:"metrics"`
	Tracing TracingConfig `json:"tracing"`
	Log     LogConfig     `json:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// AllowedOrigins lists extra origins accepted for WebSocket streams.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`

	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers
	// are believed when logging client addresses.
	TrustedProxies []string `json:"trustedProxies,omitempty"`
}

// StreamConfig contains rendering and streaming settings.
type StreamConfig struct {
	// Mode is the default render mode: "streaming" or "static".
	Mode string `json:"mode,omitempty"`

	// Timeout bounds a single stream (e.g., "30s"). Empty disables it.
	Timeout string `json:"timeout,omitempty"`

	// WriteTimeout bounds each WebSocket message write.
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// DispatchQueue is the renderer work queue size. 0 uses the default.
	DispatchQueue int `json:"dispatchQueue,omitempty"`

	// Document wraps streamed pages in a full HTML document.
	Document bool `json:"document,omitempty"`

	// Title is the document title when Document is set.
	Title string `json:"title,omitempty"`
}

// ArchiveConfig selects where prerendered pages are stored.
type ArchiveConfig struct {
	// Backend is "disk" or "s3".
	Backend string `json:"backend,omitempty"`

	// Dir is the output directory for the disk backend.
	Dir string `json:"dir,omitempty"`

	Bucket       string `json:"bucket,omitempty"`
	Prefix       string `json:"prefix,omitempty"`
	Region       string `json:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	UsePathStyle bool   `json:"usePathStyle,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Path      string `json:"path,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
// It looks for vango-stream.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads and validates configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrConfigNotFound).
				WithDetail("No " + ConfigFileName + " found at " + path)
		}
		return nil, errors.New(errors.ErrConfigRead).Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		ve := errors.New(errors.ErrConfigSyntax).Wrap(err)
		if offset, ok := errorOffset(err); ok {
			line, col := position(data, offset)
			ve.WithLocation(path, line, col)
		}
		return nil, ve
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// errorOffset extracts the byte offset of a JSON decoding error.
func errorOffset(err error) (int64, bool) {
	var syntaxErr *json.SyntaxError
	if stderrors.As(err, &syntaxErr) {
		return syntaxErr.Offset, true
	}
	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &typeErr) {
		return typeErr.Offset, true
	}
	return 0, false
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col = 1, 1
	for _, c := range data[:offset] {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	// Offsets point just past the offending byte.
	if col > 1 {
		col--
	}
	return line, col
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.ErrConfigRead).Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.ErrConfigRead).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	if c.Stream.Mode == "" {
		c.Stream.Mode = "streaming"
	}
	if c.Stream.Timeout == "" {
		c.Stream.Timeout = "30s"
	}
	if c.Stream.WriteTimeout == "" {
		c.Stream.WriteTimeout = "10s"
	}

	if c.Archive.Backend == "" {
		c.Archive.Backend = "disk"
	}
	if c.Archive.Backend == "disk" && c.Archive.Dir == "" {
		c.Archive.Dir = DefaultArchiveDir
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "vango"
	}

	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = "vango-stream"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New(errors.ErrConfigPort).
			WithDetail("server.port is " + strconv.Itoa(c.Server.Port) + "; it must be between 1 and 65535.")
	}

	for field, value := range map[string]string{
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"stream.timeout":         c.Stream.Timeout,
		"stream.writeTimeout":    c.Stream.WriteTimeout,
	} {
		if _, err := parseDuration(value); err != nil {
			return errors.Newf(errors.CategoryConfig, "%s: invalid duration %q", field, value).
				WithSuggestion(`Use Go duration syntax such as "30s" or "1m".`)
		}
	}

	switch c.Stream.Mode {
	case "streaming", "static":
	default:
		return errors.New(errors.ErrConfigMode).
			WithDetail("stream.mode is " + strconv.Quote(c.Stream.Mode) + ".")
	}

	if c.Stream.DispatchQueue < 0 {
		return errors.New(errors.ErrConfigQueue)
	}

	switch c.Archive.Backend {
	case "disk":
		if c.Archive.Dir == "" {
			return errors.New(errors.ErrConfigArchive)
		}
	case "s3":
		if c.Archive.Bucket == "" || c.Archive.Region == "" {
			return errors.New(errors.ErrConfigArchive).
				WithSuggestion("Set archive.bucket and archive.region.")
		}
	default:
		return errors.New(errors.ErrConfigArchive).
			WithSuggestion("archive.backend is " + strconv.Quote(c.Archive.Backend) + `; use "disk" or "s3".`)
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New(errors.ErrConfigMetricsPath)
	}

	if _, ok := logLevels[strings.ToLower(c.Log.Level)]; !ok {
		return errors.New(errors.ErrConfigLogLevel)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New(errors.ErrConfigLogFormat)
	}
	return nil
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// parseDuration parses a duration; the empty string and "0" mean none.
func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the base URL of the server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// ShutdownTimeout returns the parsed server.shutdownTimeout.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := parseDuration(c.Server.ShutdownTimeout)
	return d
}

// StreamTimeout returns the parsed stream.timeout. Zero means no limit.
func (c *Config) StreamTimeout() time.Duration {
	d, _ := parseDuration(c.Stream.Timeout)
	return d
}

// WriteTimeout returns the parsed stream.writeTimeout.
func (c *Config) WriteTimeout() time.Duration {
	d, _ := parseDuration(c.Stream.WriteTimeout)
	return d
}

// LogLevel returns the slog level for log.level.
func (c *Config) LogLevel() slog.Level {
	if lvl, ok := logLevels[strings.ToLower(c.Log.Level)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// ArchivePath returns the disk archive directory, relative paths being
// resolved against the config file directory.
func (c *Config) ArchivePath() string {
	if filepath.IsAbs(c.Archive.Dir) {
		return c.Archive.Dir
	}
	return filepath.Join(c.Dir(), c.Archive.Dir)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing vango-stream.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.ErrConfigNotFound).
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory.")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}
