//go:build e2e

package helpers

import (
	"bytes"
	"fmt"
	"os/exec"
	"testing"
)

// RunCLI runs the dittocore binary against sp and returns its stdout.
// The server's config file and API URL are passed automatically.
func RunCLI(t *testing.T, sp *ServerProcess, args ...string) ([]byte, error) {
	t.Helper()

	full := append([]string{"--config", sp.ConfigFile(), "--api-url", sp.APIURL()}, args...)
	cmd := exec.Command(FindBinary(t), full...)
	cmd.Env = cleanEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("dittocore %v: %w\n%s", args, err, stderr.String())
	}
	return stdout.Bytes(), nil
}
