package main

import "github.com/pulsehq/cli/cmd/pulse/cli"

func main() {
	cli.Execute()
}
