package content

import (
	"context"
	"fmt"
	"strings"

	"viralops/manager-go/internal/utils"
)

// CommandGenerator shells out to an external script generator. The command
// receives the brief on its flags and must print the markdown script on
// stdout.
type CommandGenerator struct {
	Command string
}

func NewCommandGenerator(command string) (*CommandGenerator, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("generate command is required")
	}
	return &CommandGenerator{Command: command}, nil
}

func (g *CommandGenerator) Generate(ctx context.Context, brief Brief) (string, error) {
	var b strings.Builder
	b.WriteString(g.Command)
	if brief.Title != "" {
		b.WriteString(" --title " + utils.ShellEscape(brief.Title))
	}
	if brief.CategoryName != "" {
		b.WriteString(" --category " + utils.ShellEscape(brief.CategoryName))
	}
	if len(brief.Tags) > 0 {
		b.WriteString(" --tags " + utils.ShellEscape(strings.Join(brief.Tags, ",")))
	}
	b.WriteString(fmt.Sprintf(" --max-words %d", MaxWords))

	utils.Debug("running generate command", "title", brief.Title)
	out, err := utils.RunCommand(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("generate command: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("generate command produced no output")
	}
	return out, nil
}
