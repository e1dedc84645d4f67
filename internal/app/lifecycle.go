package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
)

// PIDFileName is the pid file written into the data directory
const PIDFileName = "assistant.pid"

// LifecycleManager owns the pid file of a running assistant. Without a data
// directory it does nothing.
type LifecycleManager struct {
	dataDir string
	pidFile string
	logger  zerolog.Logger
}

// NewLifecycleManager creates a lifecycle manager for dataDir
func NewLifecycleManager(dataDir string, logger zerolog.Logger) *LifecycleManager {
	l := &LifecycleManager{dataDir: dataDir, logger: logger}
	if dataDir != "" {
		l.pidFile = filepath.Join(dataDir, PIDFileName)
	}
	return l
}

// Start writes the pid file, refusing to overwrite one of a live process
func (l *LifecycleManager) Start() error {
	if l.pidFile == "" {
		return nil
	}

	if err := os.MkdirAll(l.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if pid, err := l.GetPID(); err == nil && pid != os.Getpid() && processAlive(pid) {
		return fmt.Errorf("assistant is already running with pid %d", pid)
	}

	if err := os.WriteFile(l.pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	l.logger.Info().
		Str("pid_file", l.pidFile).
		Int("pid", os.Getpid()).
		Msg("Lifecycle manager started")
	return nil
}

// Stop removes the pid file
func (l *LifecycleManager) Stop() error {
	if l.pidFile == "" {
		return nil
	}
	if err := os.Remove(l.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// PIDFile returns the pid file path, empty without a data directory
func (l *LifecycleManager) PIDFile() string {
	return l.pidFile
}

// GetPID reads the pid file
func (l *LifecycleManager) GetPID() (int, error) {
	if l.pidFile == "" {
		return 0, fmt.Errorf("no data directory configured")
	}
	data, err := os.ReadFile(l.pidFile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// IsRunning reports whether the process named in the pid file is alive
func (l *LifecycleManager) IsRunning() bool {
	pid, err := l.GetPID()
	if err != nil {
		return false
	}
	return processAlive(pid)
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 only checks that the process exists
	return process.Signal(syscall.Signal(0)) == nil
}
