package main

import (
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/vango-dev/vango-stream/internal/config"
	"github.com/vango-dev/vango-stream/internal/demo"
	"github.com/vango-dev/vango-stream/internal/errors"
	"github.com/vango-dev/vango-stream/pkg/archive"
	"github.com/vango-dev/vango-stream/pkg/component"
	"github.com/vango-dev/vango-stream/pkg/frame"
	"github.com/vango-dev/vango-stream/pkg/stream"
)

const configFileHint = config.ConfigFileName + " (default: search upwards from the working directory)"

// loadConfig reads the configuration named by --config, or the nearest
// project config. Without any config file the defaults are used.
func loadConfig(g *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		var ve *errors.VangoError
		if stderrors.As(err, &ve) && ve.Code == errors.ErrConfigNotFound {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// newRegistry returns a registry holding the demo components.
func newRegistry() (*component.Registry, error) {
	reg := component.NewRegistry()
	if err := demo.Register(reg, demo.Options{}); err != nil {
		return nil, err
	}
	return reg, nil
}

// lookup resolves a component name or returns E201.
func lookup(reg *component.Registry, name string) (frame.Factory, error) {
	factory, ok := reg.Lookup(name)
	if !ok {
		return nil, errors.New(errors.ErrUnknownComponent).
			WithDetail("No component is registered as " + `"` + name + `".`)
	}
	return factory, nil
}

// document returns the page wrapper, or nil when pages are bare.
func document(cfg *config.Config) *stream.Document {
	if !cfg.Stream.Document {
		return nil
	}
	return &stream.Document{Title: cfg.Stream.Title}
}

// newStore opens the archive backend named in the archive section.
func newStore(cfg *config.Config) (archive.Store, error) {
	switch cfg.Archive.Backend {
	case "s3":
		client := archive.NewS3Client(archive.S3Config{
			Region:       cfg.Archive.Region,
			Endpoint:     cfg.Archive.Endpoint,
			UsePathStyle: cfg.Archive.UsePathStyle,
		})
		return archive.NewS3Store(client, cfg.Archive.Bucket, cfg.Archive.Prefix), nil
	case "disk":
		store, err := archive.NewDiskStore(cfg.ArchivePath())
		if err != nil {
			return nil, errors.New(errors.ErrArchiveWrite).Wrap(err)
		}
		return store, nil
	default:
		return nil, errors.New(errors.ErrArchiveBackend).
			WithDetail("Unknown archive backend " + `"` + cfg.Archive.Backend + `".`)
	}
}

// parseParams turns key=value arguments into component parameters.
func parseParams(args []string) (frame.Params, error) {
	params := frame.Params{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Newf(errors.CategoryCLI, "invalid parameter %q", arg).
				WithSuggestion("Pass parameters as key=value, for example name=Ada.")
		}
		params[key] = value
	}
	return params, nil
}

// originCheck accepts same-origin WebSocket upgrades plus the listed origins.
func originCheck(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return stream.SameOriginCheck
	}
	hosts := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			hosts[strings.ToLower(u.Host)] = true
		}
	}
	return func(r *http.Request) bool {
		if stream.SameOriginCheck(r) {
			return true
		}
		u, err := url.Parse(r.Header.Get("Origin"))
		return err == nil && hosts[strings.ToLower(u.Host)]
	}
}

// stderr is where diagnostics go; tests replace it.
var stderr io.Writer = os.Stderr
