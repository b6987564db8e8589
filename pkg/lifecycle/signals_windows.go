//go:build windows

package lifecycle

import "os"

func terminalSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// Windows has no reload signal; use the admin API or the config watcher.
func reloadSignals() []os.Signal {
	return nil
}
