//go:build !windows

package commands

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// processAlive reports whether pid names a live process.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	// EPERM means it exists but belongs to someone else.
	return err == nil || errors.Is(err, unix.EPERM)
}

func signalProcess(pid int, sig unix.Signal, name string) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	fmt.Printf("Sending %s to process %d...\n", name, pid)

	err = process.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return errProcessDone
	}
	if err != nil {
		return fmt.Errorf("failed to send signal: %w", err)
	}
	return nil
}

// stopProcess sends SIGTERM, or SIGKILL when force is set.
func stopProcess(pid int, force bool) error {
	if force {
		return signalProcess(pid, unix.SIGKILL, "SIGKILL")
	}
	return signalProcess(pid, unix.SIGTERM, "SIGTERM")
}

// reloadProcess sends SIGHUP, which the server maps to a restart in place.
func reloadProcess(pid int) error {
	return signalProcess(pid, unix.SIGHUP, "SIGHUP")
}
