package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// RunCommand executes a shell command and returns its combined output.
// The caller controls the deadline through ctx.
func RunCommand(ctx context.Context, command string) (string, error) {
	Debug("run", "command", command)

	cmd := exec.CommandContext(ctx, "bash", "-lc", command)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if Verbose && output.Len() > 0 {
			Debug("command output (error)", "output", strings.TrimRight(output.String(), "\n"))
		}
		return output.String(), fmt.Errorf("command failed: %w", err)
	}
	if Verbose && output.Len() > 0 {
		Debug("command output", "output", strings.TrimRight(output.String(), "\n"))
	}
	return output.String(), nil
}

func ShellEscape(value string) string {
	if value == "" {
		return "''"
	}
	escaped := strings.ReplaceAll(value, "'", "'\"'\"'")
	return "'" + escaped + "'"
}
