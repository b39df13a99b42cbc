// Package main is the single-binary entrypoint for the reward engine.
package main

import "github.com/finova-network/reward-engine/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
