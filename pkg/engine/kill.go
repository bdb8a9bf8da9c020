package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// KillTargetAPI sends SIGTERM to the server started with configPath.
func KillTargetAPI(configPath string, mustExist bool) (int, error) {
	config, err := LoadConfig(configPath, mustExist)
	if err != nil {
		return 0, err
	}

	pidPath := filepath.Join(config.Storage.Path, PID_FILE)
	pidData, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID content in %s: %w", pidPath, err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("failed to find process with PID %d: %w", pid, err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return 0, fmt.Errorf("failed to send SIGTERM to process %d: %w", pid, err)
	}

	return pid, nil
}
