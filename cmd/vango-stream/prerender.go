package main

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/vango-stream/internal/config"
	"github.com/vango-dev/vango-stream/internal/errors"
	"github.com/vango-dev/vango-stream/pkg/archive"
	"github.com/vango-dev/vango-stream/pkg/frame"
	"github.com/vango-dev/vango-stream/pkg/stream"
)

type prerenderOptions struct {
	concurrency int
	backend     string
	dir         string
}

func prerenderCmd(g *globalFlags) *cobra.Command {
	opts := &prerenderOptions{}

	cmd := &cobra.Command{
		Use:   "prerender [component...]",
		Short: "Render components to static HTML files",
		Long: `Render components to quiescence and store the final markup.

Every registered component is rendered when none are named. Pages are
stored as <name>.html in the archive configured in ` + config.ConfigFileName + `.

Examples:
  vango-stream prerender
  vango-stream prerender hello dashboard --dir=public
  vango-stream prerender --backend=s3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if opts.backend != "" {
				cfg.Archive.Backend = opts.backend
			}
			if opts.dir != "" {
				dir, err := filepath.Abs(opts.dir)
				if err != nil {
					return err
				}
				cfg.Archive.Dir = dir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := newStore(cfg)
			if err != nil {
				return err
			}
			results, err := runPrerender(cmd.Context(), cfg, store, args, opts.concurrency)
			for _, r := range results {
				success("%s → %s", r.name, r.location)
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 4, "Components rendered in parallel")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Archive backend: disk, s3 (default from config)")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "Output directory for the disk backend")

	return cmd
}

// prerendered records where one page was stored.
type prerendered struct {
	name     string
	location string
}

func runPrerender(ctx context.Context, cfg *config.Config, store archive.Store, names []string, concurrency int) ([]prerendered, error) {
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = reg.Names()
	}

	logger := newLogger(cfg, stderr)
	scfg := &stream.Config{Logger: logger, Document: document(cfg)}

	factories := make([]frame.Factory, len(names))
	for i, name := range names {
		if factories[i], err = lookup(reg, name); err != nil {
			return nil, err
		}
	}

	var (
		mu      sync.Mutex
		results = make([]prerendered, 0, len(names))
	)
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, name := range names {
		factory := factories[i]
		g.Go(func() error {
			rctx := ctx
			if d := cfg.StreamTimeout(); d > 0 {
				var cancel context.CancelFunc
				rctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			html, err := stream.Prerender(rctx, scfg, stream.Request{Name: name, Factory: factory})
			if err != nil {
				return renderError(rctx, err).WithDetail("Prerendering " + name + " failed.")
			}
			loc, err := store.Put(ctx, archive.PageKey(name), "text/html; charset=utf-8", strings.NewReader(html))
			if err != nil {
				return archiveError(cfg, err)
			}
			logger.Debug("page stored", "component", name, "location", loc, "bytes", len(html))

			mu.Lock()
			results = append(results, prerendered{name: name, location: loc})
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	return results, err
}

// archiveError maps a store failure to a coded error.
func archiveError(cfg *config.Config, err error) error {
	if cfg.Archive.Backend == "s3" {
		return errors.New(errors.ErrArchiveBackend).Wrap(err)
	}
	return errors.New(errors.ErrArchiveWrite).Wrap(err)
}
