//go:build windows

package commands

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// processAlive reports whether pid names a live process.
func processAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer func() { _ = windows.CloseHandle(h) }()

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	const stillActive = 259
	return code == stillActive
}

// stopProcess terminates the server process. Force mode uses Kill;
// graceful mode sends os.Interrupt.
func stopProcess(pid int, force bool) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if force {
		fmt.Printf("Killing process %d...\n", pid)
		err = process.Kill()
	} else {
		fmt.Printf("Sending interrupt to process %d...\n", pid)
		err = process.Signal(os.Interrupt)
	}

	if errors.Is(err, os.ErrProcessDone) {
		return errProcessDone
	}
	if err != nil {
		return fmt.Errorf("failed to stop process: %w", err)
	}
	return nil
}

// reloadProcess is not available on Windows, which has no reload signal.
func reloadProcess(pid int) error {
	return fmt.Errorf("signal-based reload is not supported on Windows, use 'dittocore reload --api'")
}
