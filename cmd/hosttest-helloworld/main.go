package main

import (
	"path/filepath"

	"hosttest/internal/cli"
	"hosttest/pkg/hosttest"
	"hosttest/suites/helloworld"
)

func main() {
	// Go modules are compiled in, so they are registered for the tests
	// directory of their package before the command line is handled.
	hosttest.Register(filepath.Join(helloworld.Dir, "tests"), &helloworld.HelloWorldModule{})

	cli.Main("hosttest-helloworld")
}
