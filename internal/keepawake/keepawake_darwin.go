package keepawake

import (
	"errors"
	"os/exec"
)

// acquire spawns caffeinate, the system utility macOS ships for exactly this
// purpose, and holds it alive for the duration of the inhibition. Killing it
// on Release hands control back to the OS's normal sleep policy.
func acquire() (*Token, error) {
	cmd := exec.Command("caffeinate", "-disu")
	if err := cmd.Start(); err != nil {
		// Best-effort: a missing caffeinate binary should not fail the upmix.
		return nil, nil
	}

	return &Token{release: func() error {
		if cmd.Process == nil {
			return nil
		}
		_ = cmd.Process.Kill()
		// The exit status Wait reports is the kill above, not a failure.
		var exitErr *exec.ExitError
		if err := cmd.Wait(); err != nil && !errors.As(err, &exitErr) {
			return err
		}
		return nil
	}}, nil
}
