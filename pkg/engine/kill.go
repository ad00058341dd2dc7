package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// KillHurlfix sends SIGTERM to the server started with configPath.
func KillHurlfix(configPath string) error {
	config, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	storageDir, err := ResolveStorageDir(config, configPath)
	if err != nil {
		return err
	}

	pidPath := filepath.Join(storageDir, "hurlfix.pid")
	pidData, err := os.ReadFile(pidPath)
	if err != nil {
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return fmt.Errorf("invalid PID content in %s: %w", pidPath, err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process with PID %d: %w", pid, err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process %d: %w", pid, err)
	}

	return nil
}
