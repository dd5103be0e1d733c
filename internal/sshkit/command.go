package sshkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// CommandResult holds the captured output and exit status of one remote
// command. A non-zero exit status is data, not an error; only transport
// faults surface as errors from RunCommand.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunCommand executes a shell command on the remote host over a fresh SSH
// session and waits for it to finish.
func (c *Client) RunCommand(ctx context.Context, command string) (CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return CommandResult{}, fmt.Errorf("operation cancelled: %w", err)
	}

	session, err := c.sshClient.NewSession()
	if err != nil {
		return CommandResult{}, fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		return CommandResult{}, fmt.Errorf("command cancelled: %w", ctx.Err())
	case err := <-done:
		result := CommandResult{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				result.ExitCode = exitErr.ExitStatus()
				return result, nil
			}
			return result, fmt.Errorf("failed to run remote command: %w", err)
		}
		return result, nil
	}
}
