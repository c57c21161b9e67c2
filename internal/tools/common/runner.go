package common

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
)

// ExitCodeFailure is returned by tool commands whose action failed.
const ExitCodeFailure = 3

// ErrActionFailed wraps a failed action so main can map it to ExitCodeFailure.
var ErrActionFailed = errors.New("tool action failed")

type Action func(ctx context.Context) ([]string, error)

// Interactive renders an action for a terminal. It is swapped out in tests.
type Interactive func(title string, action func(context.Context) ([]string, error)) ([]string, error)

type Runner struct {
	Tool        string
	CI          bool
	Timeout     time.Duration
	Interactive Interactive
}

// Run executes action, records the outcome and prints a CI result when CI is
// set. The returned error wraps ErrActionFailed when the action failed.
func (r Runner) Run(command string, action Action) error {
	title := r.Tool + " " + command
	var (
		details []string
		err     error
	)
	if r.CI || r.Interactive == nil {
		timeout := r.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		details, err = action(ctx)
		cancel()
	} else {
		details, err = r.Interactive(title, action)
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	observability.RecordToolCommandRun(context.Background(), r.Tool, command, outcome)
	if r.CI {
		PrintCIResult(err == nil, title, details, err)
	}
	if err != nil {
		return errors.Join(ErrActionFailed, err)
	}
	return nil
}
