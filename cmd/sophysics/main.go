package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/sophysics/internal/config"
	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/injector"
	"github.com/zeusync/sophysics/internal/runner"
	"github.com/zeusync/sophysics/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "sophysics:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("sophysics", flag.ContinueOnError)
	configPath := flags.String("config", "", "TOML config file (default $"+config.EnvPath+")")
	frames := flags.Int("frames", -1, "frames to simulate per scene, overrides the config")
	stream := flags.Bool("stream", false, "stream the first scene over websocket until interrupted")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), "usage: sophysics [flags] scene.{json,yaml}...")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errors.New("no scene files given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := injector.InitializeApp(config.Resolve(*configPath))
	if err != nil {
		return err
	}
	defer func() { _ = app.Logger.Sync() }()

	if *frames >= 0 {
		app.Config.Simulation.Frames = *frames
	}
	if *stream {
		app.Config.Stream.Enabled = true
	}

	jobs := make([]runner.Job, 0, flags.NArg())
	for _, path := range flags.Args() {
		job, err := runner.JobFromFile(path)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	if app.Config.Stream.Enabled {
		return streamFirst(ctx, app, jobs, out)
	}
	summaries, err := app.Runner.Run(ctx, jobs...)
	if err != nil {
		return err
	}
	return report(out, summaries)
}

// streamFirst plays the first scene in real time for websocket viewers while
// the remaining scenes run headless.
func streamFirst(ctx context.Context, app *injector.App, jobs []runner.Job, out io.Writer) error {
	srv := server.New(app.Config.Stream, app.Logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			app.Logger.Warn("stop frame stream", log.Error(err))
		}
	}()

	live, err := app.Runner.Build(jobs[0], srv.Hub())
	if err != nil {
		return err
	}
	defer func() { _ = live.Close() }()

	var rest []runner.Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return live.Play(gctx, app.Config.Stream.FrameRate)
	})
	if len(jobs) > 1 {
		g.Go(func() error {
			var err error
			rest, err = app.Runner.Run(gctx, jobs[1:]...)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	first, err := live.Summary()
	if err != nil {
		return err
	}
	return report(out, append([]runner.Summary{first}, rest...))
}

func report(out io.Writer, summaries []runner.Summary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCENE\tFRAMES\tSTEPS\tBODIES\tDIGEST\tELAPSED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%016x\t%s\n",
			s.Name, s.Frames, s.Steps, s.Objects, s.Digest, s.Elapsed.Round(time.Millisecond))
	}
	return w.Flush()
}
