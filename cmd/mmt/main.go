// Command mmt upgrades meta.lsx versions to Version64 and packs mod folders.
package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mmt/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, environ(), sigCh)
}

// environ returns the process environment keyed by name.
func environ() map[string]string {
	env := make(map[string]string)

	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			env[name] = value
		}
	}

	return env
}
