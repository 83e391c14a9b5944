package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// ErrHookTimeout is returned when a hook outlives the executor timeout.
var ErrHookTimeout = errors.New("hook timed out")

// Executor runs hooks with a bounded run time.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor that kills hooks after timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute runs h with ev as JSON on stdin and parses its stdout as a
// Response. A hook that exits non-zero or reports failure is an error.
func (e *Executor) Execute(ctx context.Context, h *Hook, ev *Event) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.Executable)
	cmd.Dir = h.Path

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.Wrap(err, "marshal event")
	}
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, errors.Wrapf(ErrHookTimeout, "%s after %s", h.Manifest.Name, e.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, errors.Wrapf(err, "hook %s failed, stderr: %s", h.Manifest.Name, s)
		}
		return nil, errors.Wrapf(err, "hook %s failed", h.Manifest.Name)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, errors.Wrapf(err, "parse %s response %q", h.Manifest.Name, stdout.String())
	}
	if !resp.Success {
		return &resp, errors.Errorf("hook %s reported failure: %s", h.Manifest.Name, resp.Error)
	}
	return &resp, nil
}
