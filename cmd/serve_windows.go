//go:build windows

package cmd

import (
	"os"
	"os/exec"
)

// setDaemonAttrs is a no-op on Windows (no Setsid equivalent).
func setDaemonAttrs(_ *exec.Cmd) {}

// shutdownSignals are the signals that stop a running analysis or server.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
