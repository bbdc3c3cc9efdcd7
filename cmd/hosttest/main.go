package main

import "hosttest/internal/cli"

func main() {
	cli.Main("hosttest")
}
