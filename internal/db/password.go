package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"
)

// passwordCommandTimeout bounds DB_PASSWORD_COMMAND execution.
const passwordCommandTimeout = 5 * time.Second

// RunPasswordCommand executes command and returns its trimmed stdout.
// The command is split on whitespace; no shell is involved.
func RunPasswordCommand(command string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), passwordCommandTimeout)
	defer cancel()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", fmt.Errorf("empty password command")
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("password command timed out after %s", passwordCommandTimeout)
		}
		return "", fmt.Errorf("password command failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	password := strings.TrimSpace(stdout.String())
	if password == "" {
		return "", fmt.Errorf("password command returned empty password")
	}

	return password, nil
}

// PromptPassword reads a password from the terminal without echo.
// The prompt is written to w.
func PromptPassword(w io.Writer, prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal")
	}

	fmt.Fprint(w, prompt)
	passwordBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := string(passwordBytes)
	if password == "" {
		return "", fmt.Errorf("empty password entered")
	}

	return password, nil
}
