package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Prompt represents a simple interactive prompt configuration
type Prompt struct {
	Message     string
	Default     string
	Placeholder string
	Required    bool
}

// Prompter asks the user for values. On a terminal it renders huh forms;
// otherwise it reads plain lines from its input.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	fd          int
	interactive bool
}

// NewPrompter prompts on stdin, writing line-mode prompts to stderr.
func NewPrompter() *Prompter {
	return &Prompter{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stderr,
		fd:          int(os.Stdin.Fd()),
		interactive: ShouldPrompt(),
	}
}

// NewLinePrompter never renders forms. Used for piped input and tests.
func NewLinePrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
}

// Interactive reports whether forms are rendered.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// String asks for a single line.
func (p *Prompter) String(pr Prompt) (string, error) {
	value := pr.Default
	if p.interactive {
		input := huh.NewInput().
			Title(pr.Message).
			Placeholder(pr.Placeholder).
			Value(&value)
		if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
			return "", fmt.Errorf("prompt failed: %w", err)
		}
	} else {
		line, err := p.readLine(pr.Message)
		if err != nil {
			return "", err
		}
		if line != "" {
			value = line
		}
	}
	return required(pr, strings.TrimSpace(value))
}

// Password asks for a secret without echoing it.
func (p *Prompter) Password(message string) (string, error) {
	var value string
	switch {
	case p.interactive:
		input := huh.NewInput().
			Title(message).
			EchoMode(huh.EchoModePassword).
			Value(&value)
		if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
			return "", fmt.Errorf("prompt failed: %w", err)
		}
	case p.fd >= 0 && term.IsTerminal(p.fd):
		fmt.Fprintf(p.out, "%s: ", message)
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		value = string(b)
	default:
		line, err := p.readLine(message)
		if err != nil {
			return "", err
		}
		value = line
	}
	if value == "" {
		return "", fmt.Errorf("value is required")
	}
	return value, nil
}

// Text asks for a multi-line value. In line mode input ends at a line
// holding a single "." or at end of input.
func (p *Prompter) Text(pr Prompt) (string, error) {
	value := pr.Default
	if p.interactive {
		text := huh.NewText().
			Title(pr.Message).
			Placeholder(pr.Placeholder).
			Value(&value)
		if err := huh.NewForm(huh.NewGroup(text)).Run(); err != nil {
			return "", fmt.Errorf("prompt failed: %w", err)
		}
		return required(pr, strings.TrimSpace(value))
	}

	fmt.Fprintf(p.out, "%s (end with a single '.'):\n", pr.Message)
	var lines []string
	for {
		line, err := p.in.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "." {
			break
		}
		if line != "" || err == nil {
			lines = append(lines, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
	}
	if len(lines) > 0 {
		value = strings.Join(lines, "\n")
	}
	return required(pr, strings.TrimSpace(value))
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue
	if p.interactive {
		confirm := huh.NewConfirm().
			Title(message).
			Value(&confirmed)
		if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
			return false, fmt.Errorf("prompt failed: %w", err)
		}
		return confirmed, nil
	}

	line, err := p.readLine(message + " [y/n]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes", "s", "si", "sí":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return defaultValue, nil
	}
}

// Select asks the user to pick one option.
func (p *Prompter) Select(message string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no options provided")
	}

	if !p.interactive {
		line, err := p.readLine(fmt.Sprintf("%s (%s)", message, strings.Join(options, ", ")))
		if err != nil {
			return "", err
		}
		for _, opt := range options {
			if opt == line {
				return opt, nil
			}
		}
		return "", fmt.Errorf("invalid choice %q", line)
	}

	huhOptions := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt, opt)
	}

	var selected string
	selectField := huh.NewSelect[string]().
		Title(message).
		Options(huhOptions...).
		Value(&selected)

	if err := huh.NewForm(huh.NewGroup(selectField)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return selected, nil
}

func (p *Prompter) readLine(message string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", message)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", fmt.Errorf("no input")
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func required(pr Prompt, value string) (string, error) {
	if pr.Required && value == "" {
		return "", fmt.Errorf("value is required")
	}
	return value, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ShouldPrompt returns true if prompts should be shown based on environment
// Prompts are disabled in CI environments or when stdin is not a terminal
func ShouldPrompt() bool {
	ciEnvVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"TRAVIS",
		"CIRCLECI",
		"BUILDKITE",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}

	return IsInteractive()
}
