package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"hosttest/internal/suite"
	"hosttest/pkg/hosttest/host"
	"hosttest/pkg/hosttest/session"
	"hosttest/pkg/hosttest/stream"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

type RunCmd struct {
	Package string   `arg:"" name:"package-dir" help:"Directory of the package to test" type:"existingdir"`
	Filter  []string `short:"f" help:"Only run cases whose dotted name starts with one of these"`

	suite.Flags `embed:""`
}

func (cmd *RunCmd) Run(ctx suite.Context) error {
	pkg, err := cmd.Flags.Resolve(cmd.Package)
	if err != nil {
		return err
	}

	run, err := execute(ctx, pkg, cmd.Filter)
	if err != nil {
		return err
	}

	return runError(pkg, run)
}

func runError(pkg suite.Package, run *session.Run) error {
	switch {
	case run.Err() != nil:
		return errors.Wrapf(run.Err(), "run of '%s' failed", pkg.Name)
	case !run.Successful():
		return fmt.Errorf("run of '%s' failed: %s", pkg.Name, run.Summary())
	default:
		return nil
	}
}

// execute runs pkg inside a fresh host loop on the calling goroutine and
// returns once the run was torn down.
func execute(ctx suite.Context, pkg suite.Package, filter []string) (*session.Run, error) {
	log := ctx.Logger()

	out, err := openStream(pkg)
	if err != nil {
		return nil, err
	}

	var loopOpts []host.LoopOption
	if term.IsTerminal(int(os.Stderr.Fd())) {
		loopOpts = append(loopOpts, host.WithStatusOutput(os.Stderr))
	}
	loop := host.NewLoop(log, loopOpts...)

	loopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan *session.Run, 1)
	done := make(chan *session.Run, 1)
	go func() {
		run := <-started
		<-run.Done()
		done <- run
		cancel()
	}()

	loop.Post(func() {
		started <- session.New(loop, log).Start(session.Options{
			Package:     pkg.Name,
			Root:        pkg.Root,
			Config:      pkg.Config,
			Stream:      out,
			AzureDevops: ctx.AzureDevops(),
			Filter:      filter,
		})
	})

	if err := loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	return <-done, nil
}

// openStream returns the report file configured for pkg, or the console.
// Relative paths from the settings file are taken from the package root.
func openStream(pkg suite.Package) (stream.Stream, error) {
	path := pkg.Config.Output
	if path == "" {
		return stream.NewConsole(os.Stdout), nil
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(pkg.Root, path)
	}

	f, err := stream.CreateFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create report file")
	}
	return f, nil
}
