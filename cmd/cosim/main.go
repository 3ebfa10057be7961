// Command cosim is the driver CLI for running co-simulation scenarios.
package main

import "github.com/corosim/corosim/internal/cli"

func main() {
	cli.Execute()
}
