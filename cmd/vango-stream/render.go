package main

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-stream/internal/config"
	"github.com/vango-dev/vango-stream/internal/errors"
	"github.com/vango-dev/vango-stream/pkg/component"
	"github.com/vango-dev/vango-stream/pkg/render"
	"github.com/vango-dev/vango-stream/pkg/server"
	"github.com/vango-dev/vango-stream/pkg/stream"
)

type renderOptions struct {
	mode   string
	output string
}

func renderCmd(g *globalFlags) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <component> [key=value...]",
		Short: "Render a component to stdout",
		Long: `Render one component and write the response body to stdout.

In streaming mode the output is exactly what an HTTP client would
receive: the first paint followed by one fragment per completed load.

Examples:
  vango-stream render hello name=Ada
  vango-stream render dashboard --mode=static
  vango-stream render feed delay=50ms -o feed.html`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if opts.mode != "" {
				cfg.Stream.Mode = opts.mode
			}

			w := cmd.OutOrStdout()
			if opts.output != "" && opts.output != "-" {
				f, err := os.Create(opts.output)
				if err != nil {
					return errors.New(errors.ErrArchiveWrite).Wrap(err)
				}
				defer f.Close()
				w = f
			}
			return runRender(cmd.Context(), cfg, w, args[0], args[1:])
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Render mode: streaming, static (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

func runRender(ctx context.Context, cfg *config.Config, w io.Writer, name string, args []string) error {
	mode, err := component.ParseMode(cfg.Stream.Mode)
	if err != nil {
		return errors.New(errors.ErrConfigMode).Wrap(err)
	}
	params, err := parseParams(args)
	if err != nil {
		return err
	}
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	factory, err := lookup(reg, name)
	if err != nil {
		return err
	}

	if d := cfg.StreamTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	logger := newLogger(cfg, stderr)
	r := server.New(&server.Config{
		DispatchQueue: cfg.Stream.DispatchQueue,
		Logger:        logger,
		Materialize:   render.Options{Boundaries: mode == component.ModeStreaming},
	})
	defer r.Close()

	s := stream.New(&stream.Config{Logger: logger, Document: document(cfg)})
	err = s.Stream(ctx, r, &stream.WriterSink{Writer: w}, stream.Request{
		ID:      uuid.NewString(),
		Name:    name,
		Factory: factory,
		Params:  params,
		Mode:    mode,
	})
	if err != nil {
		return renderError(ctx, err)
	}
	return nil
}

// renderError maps a stream failure to a coded error.
func renderError(ctx context.Context, err error) *errors.VangoError {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.New(errors.ErrRenderTimeout).Wrap(err)
	}
	return errors.New(errors.ErrRenderFault).Wrap(err)
}
