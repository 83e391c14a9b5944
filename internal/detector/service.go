package detector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// stopGrace is how long Stop waits after an interrupt before killing.
const stopGrace = 3 * time.Second

// Service supervises a detection service started as a child process.
type Service struct {
	command []string
	logger  *zap.SugaredLogger

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
}

// NewService prepares a launcher for command, e.g. ["python3", "yolo_server.py"].
// A bare python interpreter is swapped for a virtual environment's when one is found.
func NewService(command []string, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{command: command, logger: logger}
}

// Start launches the process and streams its stderr into the log.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return nil
	}
	if len(s.command) == 0 {
		return errors.New("detection service command is empty")
	}

	name := s.command[0]
	if name == "python" || name == "python3" {
		if venv := findVenvPython(); venv != "" {
			name = venv
		}
	}

	cmd := exec.Command(name, s.command[1:]...)
	cmd.Stdout = io.Discard

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detection service: %w", err)
	}

	logger := s.logger.With("pid", cmd.Process.Pid)
	logger.Infow("detection service started", "command", append([]string{name}, s.command[1:]...))

	exited := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Debugw("detection service", "line", scanner.Text())
		}
		err := cmd.Wait()
		close(exited)
		logger.Infow("detection service exited", "error", err)
	}()

	s.cmd = cmd
	s.exited = exited
	return nil
}

// Running reports whether the child process is still alive.
func (s *Service) Running() bool {
	s.mu.Lock()
	exited := s.exited
	s.mu.Unlock()

	if exited == nil {
		return false
	}
	select {
	case <-exited:
		return false
	default:
		return true
	}
}

// Stop interrupts the process and kills it if it does not exit in time.
func (s *Service) Stop() error {
	s.mu.Lock()
	cmd, exited := s.cmd, s.exited
	s.cmd, s.exited = nil, nil
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}

	select {
	case <-exited:
		return nil
	default:
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}

	select {
	case <-exited:
	case <-time.After(stopGrace):
		if err := cmd.Process.Kill(); err != nil {
			return fmt.Errorf("kill detection service: %w", err)
		}
		<-exited
	}
	return nil
}

// findVenvPython looks for a Python interpreter in a virtual environment
// next to the working directory or the executable.
func findVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		".venv/bin/python",
	}
	if execDir != "" {
		candidates = append(candidates, filepath.Join(execDir, "venv/bin/python"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".depthlens/venv/bin/python"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
