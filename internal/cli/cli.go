package cli

import (
	"os"

	"hosttest/internal/cli/list"
	"hosttest/internal/cli/run"
	"hosttest/internal/devops"
	"hosttest/internal/suite"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"
)

type GlobalOpts struct {
	Verbosity   log.Level `short:"v" help:"Set log level" default:"info"`
	AzureDevops bool      `short:"a" help:"Enable Azure DevOps integration" env:"TF_BUILD"`
}

type cli struct {
	Global GlobalOpts   `embed:""`
	Run    run.RunCmd   `cmd:"" help:"Run the tests of a package"`
	Watch  run.WatchCmd `cmd:"" help:"Run the tests of a package again whenever they change"`
	List   list.ListCmd `cmd:"" help:"List the test cases of a package"`
}

func ParseCommandLine(name string) (*kong.Context, GlobalOpts) {
	// Force display help if no arguments are provided
	if len(os.Args) < 2 {
		os.Args = append(os.Args, "--help")
	}

	cli := cli{}
	ctx := kong.Parse(&cli, kong.Name(name))
	return ctx, cli.Global
}

type context struct {
	log         *log.Logger
	azureDevops bool
}

func (c *context) Logger() *log.Logger {
	return c.log
}

func (c *context) AzureDevops() bool {
	return c.azureDevops
}

// Main parses the command line and runs the selected command. It exits the
// process with a non-zero status when the command fails.
func Main(name string) {
	ctx, global := ParseCommandLine(name)

	logger := log.New()
	logger.SetLevel(global.Verbosity)
	logger.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})

	ctx.BindTo(&context{log: logger, azureDevops: global.AzureDevops}, (*suite.Context)(nil))
	err := ctx.Run()
	if err != nil && global.AzureDevops {
		devops.NewPrinter(os.Stdout).LogError("%s failed: %s", name, err)
	}
	ctx.FatalIfErrorf(err)
}
