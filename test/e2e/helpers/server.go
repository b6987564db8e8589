//go:build e2e

package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/marmos91/dittocore/pkg/config"
)

// AdminSecret signs the tokens of every server started by the helpers.
const AdminSecret = "e2e-secret-key-for-testing-only-32chars"

// ServerProcess manages a dittocore server subprocess.
type ServerProcess struct {
	cmd           *exec.Cmd
	pidFile       string
	apiPort       int
	logFile       string
	configFile    string
	process       *os.Process
	logFileHandle *os.File
	exited        chan struct{}
}

// HealthResponse is the /health and /health/ready envelope.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   struct {
		Service  string `json:"service,omitempty"`
		Instance string `json:"instance,omitempty"`
		Phase    string `json:"phase,omitempty"`
	} `json:"data,omitempty"`
}

// FindFreePort finds an available TCP port by binding to :0.
func FindFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}

// WriteConfig writes a server configuration listening on apiPort, with
// metrics disabled and logs going to stdout.
func WriteConfig(t *testing.T, apiPort int, mutate func(*config.Config)) string {
	t.Helper()

	cfg := config.GetDefaultConfig()
	cfg.Admin.Port = apiPort
	cfg.Admin.JWT.Secret = AdminSecret
	cfg.Metrics.Enabled = false
	cfg.Logging.Output = "stdout"
	cfg.Logging.Level = "DEBUG"
	cfg.ShutdownTimeout = 3 * time.Second
	if mutate != nil {
		mutate(cfg)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// StartServerProcess starts dittocore in foreground mode and waits for the
// admin API to answer /health.
func StartServerProcess(t *testing.T, mutate func(*config.Config)) *ServerProcess {
	t.Helper()

	stateDir := t.TempDir()
	apiPort := FindFreePort(t)
	configFile := WriteConfig(t, apiPort, mutate)
	pidFile := filepath.Join(stateDir, "dittocore.pid")
	logFile := filepath.Join(stateDir, "dittocore.log")

	cmd := exec.Command(FindBinary(t), "start", "--foreground",
		"--config", configFile,
		"--pid-file", pidFile)
	cmd.Env = cleanEnv()

	logFileHandle, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}
	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		t.Fatalf("Failed to start dittocore: %v", err)
	}

	sp := &ServerProcess{
		cmd:           cmd,
		pidFile:       pidFile,
		apiPort:       apiPort,
		logFile:       logFile,
		configFile:    configFile,
		process:       cmd.Process,
		logFileHandle: logFileHandle,
		exited:        make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(sp.exited)
	}()

	if err := sp.WaitHealthy(5 * time.Second); err != nil {
		sp.DumpLogs(t)
		sp.ForceKill()
		t.Fatalf("Server failed to become healthy: %v", err)
	}
	return sp
}

// cleanEnv drops DITTOCORE_* variables so the config file decides.
func cleanEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "DITTOCORE_") {
			env = append(env, e)
		}
	}
	return env
}

// WaitHealthy polls /health until it returns 200 or timeout elapses.
func (sp *ServerProcess) WaitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		_, err := sp.CheckHealth()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not healthy after %v: %w", timeout, lastErr)
}

// CheckHealth performs GET /health.
func (sp *ServerProcess) CheckHealth() (*HealthResponse, error) {
	resp, status, err := sp.probe("/health")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return resp, fmt.Errorf("health check returned %d", status)
	}
	return resp, nil
}

// CheckReady performs GET /health/ready and returns the status code.
func (sp *ServerProcess) CheckReady() (*HealthResponse, int, error) {
	return sp.probe("/health/ready")
}

func (sp *ServerProcess) probe(path string) (*HealthResponse, int, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(sp.APIURL() + path)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	var out HealthResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return &out, resp.StatusCode, nil
}

// SendSignal sends sig to the server process.
func (sp *ServerProcess) SendSignal(sig syscall.Signal) error {
	if sp.process == nil {
		return fmt.Errorf("no process to signal")
	}
	return sp.process.Signal(sig)
}

// WaitForExit waits for the process to exit within timeout and returns
// its exit error.
func (sp *ServerProcess) WaitForExit(timeout time.Duration) error {
	select {
	case <-sp.exited:
		if state := sp.cmd.ProcessState; state != nil && !state.Success() {
			return fmt.Errorf("process exited with %s", state)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("process did not exit within %v", timeout)
	}
}

// ForceKill terminates the server process: SIGTERM first, SIGKILL after
// two seconds.
func (sp *ServerProcess) ForceKill() {
	if sp.process == nil {
		return
	}

	_ = sp.process.Signal(syscall.SIGTERM)
	select {
	case <-sp.exited:
	case <-time.After(2 * time.Second):
		_ = sp.process.Kill()
		<-sp.exited
	}

	if sp.logFileHandle != nil {
		_ = sp.logFileHandle.Close()
		sp.logFileHandle = nil
	}
}

// StopGracefully sends SIGTERM and waits for a clean exit.
func (sp *ServerProcess) StopGracefully() error {
	if err := sp.SendSignal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}
	return sp.WaitForExit(10 * time.Second)
}

// Running reports whether the process has not exited yet.
func (sp *ServerProcess) Running() bool {
	select {
	case <-sp.exited:
		return false
	default:
		return true
	}
}

// APIPort returns the admin API port.
func (sp *ServerProcess) APIPort() int { return sp.apiPort }

// APIURL returns the admin API base URL.
func (sp *ServerProcess) APIURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", sp.apiPort)
}

// PidFile returns the path of the server PID file.
func (sp *ServerProcess) PidFile() string { return sp.pidFile }

// ConfigFile returns the path of the server config file.
func (sp *ServerProcess) ConfigFile() string { return sp.configFile }

// LogFile returns the path capturing the server's stdout and stderr.
func (sp *ServerProcess) LogFile() string { return sp.logFile }

// PID returns the server process ID.
func (sp *ServerProcess) PID() int {
	if sp.process == nil {
		return 0
	}
	return sp.process.Pid
}

// DumpLogs prints the captured server output.
func (sp *ServerProcess) DumpLogs(t *testing.T) {
	t.Helper()

	content, err := os.ReadFile(sp.logFile)
	if err != nil {
		t.Logf("Could not read log file: %v", err)
		return
	}
	t.Logf("Server logs:\n%s", string(content))
}

// FindBinary locates the dittocore binary, building it if necessary.
func FindBinary(t *testing.T) string {
	t.Helper()

	if path, err := exec.LookPath("dittocore"); err == nil {
		return path
	}

	projectRoot := findProjectRoot(t)
	localBinary := filepath.Join(projectRoot, "dittocore")
	if _, err := os.Stat(localBinary); err == nil {
		return localBinary
	}

	t.Log("Building dittocore binary...")
	cmd := exec.Command("go", "build", "-o", localBinary, "./cmd/dittocore/")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build dittocore: %v\n%s", err, output)
	}
	return localBinary
}

// findProjectRoot walks up from the working directory to go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("Could not find project root (go.mod not found)")
		}
		dir = parent
	}
}
