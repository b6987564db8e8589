//go:build !windows

package lifecycle

import (
	"os"

	"golang.org/x/sys/unix"
)

func terminalSignals() []os.Signal {
	return []os.Signal{unix.SIGINT, unix.SIGTERM}
}

func reloadSignals() []os.Signal {
	return []os.Signal{unix.SIGHUP}
}
