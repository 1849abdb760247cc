package cli

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/imagebuilder/internal/builder"
	"github.com/me/imagebuilder/internal/config"
	"github.com/me/imagebuilder/internal/engine"
	"github.com/me/imagebuilder/internal/scenefile"
	"github.com/me/imagebuilder/internal/sink"
	"github.com/me/imagebuilder/internal/surface"
	"github.com/me/imagebuilder/pkg/model"
)

type rendered struct {
	name string
	img  image.Image
}

func newRenderCmd() *cobra.Command {
	var (
		configPath string
		outDir     string
		demo       int
		label      string
		budget     time.Duration
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "render [scene-file]",
		Short: "Render scenes in-process and store the images",
		Long: "Renders every scene of a YAML, JSON or HCL scene file with a local engine " +
			"and writes the images to --out or to the sink configured in --config. " +
			"With --demo N, renders N chain scenes of increasing length instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Sink = config.SinkConfig{Dir: outDir}
			}
			if budget > 0 {
				cfg.Render.Budget = budget
			}
			if !cfg.Sink.Enabled() {
				return errors.New("no destination: pass --out or configure a sink")
			}

			var specs []model.SceneSpec
			switch {
			case demo > 0:
				specs = scenefile.Chains(demo, label)
			case len(args) == 1:
				if specs, err = scenefile.Load(args[0]); err != nil {
					return err
				}
			default:
				return errors.New("a scene file or --demo is required")
			}
			if len(specs) == 0 {
				return errors.New("no scenes to render")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return renderAll(ctx, cfg, specs, cmd)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file (render and sink sections)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write images to this directory")
	cmd.Flags().IntVar(&demo, "demo", 0, "Render N chain scenes instead of a scene file")
	cmd.Flags().StringVar(&label, "label", "No time", "Label of the last block in --demo scenes")
	cmd.Flags().DurationVar(&budget, "budget", 0, "Per-cycle time budget (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits forever)")
	return cmd
}

// renderAll queues every scene on a local engine and stores the images in
// completion order. Encoding and upload happen here, off the cycle goroutine.
func renderAll(ctx context.Context, cfg config.ServerConfig, specs []model.SceneSpec, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	dst, err := sink.New(ctx, cfg.Sink, logger)
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg.Render, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	loopCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Start(loopCtx)
	}()
	defer func() {
		stop()
		<-done
	}()

	start := time.Now()
	results := make(chan rendered, len(specs))
	for _, spec := range specs {
		name := spec.Name
		factory := scenefile.Factory(spec, eng.Builder(), logger,
			scenefile.WithScriptTimeout(cfg.Render.ScriptTimeout))
		eng.Enqueue(factory, builder.CallbackFunc(func(img image.Image) {
			results <- rendered{name: name, img: img}
		}))
	}

	var total uint64
	for i := 0; i < len(specs); i++ {
		var r rendered
		select {
		case <-ctx.Done():
			return fmt.Errorf("rendered %d of %d scenes: %w", i, len(specs), ctx.Err())
		case r = <-results:
		}

		data, err := surface.PNG(r.img)
		if err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		loc, err := dst.Put(ctx, sink.FileName(r.name), data)
		if err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		total += uint64(len(data))
		fmt.Fprintf(out, "%-20s  %-8s  %s\n", r.name, humanize.Bytes(uint64(len(data))), loc)
	}

	fmt.Fprintf(out, "Rendered %d image(s), %s in %s\n",
		len(specs), humanize.Bytes(total), time.Since(start).Round(time.Millisecond))
	return nil
}
