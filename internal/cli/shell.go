package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

const (
	shellPrompt      = "cms> "
	shellHistoryFile = ".cms_history"
)

// shellExcluded are commands that make no sense inside the shell.
var shellExcluded = map[string]bool{"shell": true, "watch": true}

func shellCmd(a *app) *Command {
	return &Command{
		Flags: newFlags("shell"),
		Usage: "shell",
		Short: "Interactive prompt",
		Long: `Start an interactive prompt that runs cms commands against one loaded
config. Type "help" for commands and "exit" to leave. On a terminal the
prompt has line editing, completion and history in ~/.cms_history.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args); err != nil {
				return err
			}

			if _, err := a.open(); err != nil {
				return err
			}

			// Commands inside the shell must not read the shell's own input.
			sh := &shell{app: a, o: NewIO(nil, o.out, o.errOut)}

			if f, ok := o.In().(*os.File); ok && f == os.Stdin {
				return sh.runInteractive(ctx)
			}

			if o.In() == nil {
				return fmt.Errorf("%w: shell needs stdin", ErrNoInput)
			}

			return sh.loop(ctx, &scanPrompter{sc: bufio.NewScanner(o.In())})
		},
	}
}

// prompter yields input lines. [*liner.State] implements it.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

type scanPrompter struct {
	sc *bufio.Scanner
}

func (p *scanPrompter) Prompt(string) (string, error) {
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return p.sc.Text(), nil
}

func (*scanPrompter) AppendHistory(string) {}

type shell struct {
	app *app
	o   *IO
}

func (s *shell) runInteractive(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(s.complete)

	history := s.historyPath()
	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = line.ReadHistory(f)
			_ = f.Close()
		}
	}

	s.o.Println("cms shell for", s.app.api.Config().RepoID, "- type 'help' for commands.")

	err := s.loop(ctx, line)

	if history != "" {
		if f, createErr := os.Create(history); createErr == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}

	return err
}

func (s *shell) loop(ctx context.Context, p prompter) error {
	for ctx.Err() == nil {
		line, err := p.Prompt(shellPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p.AppendHistory(line)

		if !s.exec(ctx, line) {
			return nil
		}
	}

	return nil
}

// exec runs one shell line and reports whether the shell should continue.
// Command failures are printed and do not end the shell.
func (s *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "exit", "quit", "q":
		return false
	case "help", "?":
		s.printHelp()
		return true
	}

	cmd, ok := findCommand(s.app.commands(), name)
	if !ok || shellExcluded[name] {
		s.o.ErrPrintln("error:", fmt.Errorf("%w: %s (type 'help' for commands)", ErrUnknownCommand, name))
		return true
	}

	cmd.Run(ctx, s.o, args)

	return true
}

func (s *shell) commandNames() []string {
	names := []string{"help", "exit"}

	for _, c := range s.app.commands() {
		if !shellExcluded[c.Name()] {
			names = append(names, c.Name())
		}
	}

	return names
}

// complete completes command names, then static and collection names.
func (s *shell) complete(line string) []string {
	var candidates []string

	prefix, word := "", line
	if i := strings.LastIndexByte(line, ' '); i >= 0 {
		prefix, word = line[:i+1], line[i+1:]

		cfg := s.app.api.Config()
		candidates = append(cfg.StaticNames(), cfg.CollectionNames()...)
	} else {
		candidates = s.commandNames()
	}

	var out []string

	for _, c := range candidates {
		if strings.HasPrefix(c, word) {
			out = append(out, prefix+c)
		}
	}

	return out
}

func (s *shell) printHelp() {
	s.o.Println("Commands:")

	for _, c := range s.app.commands() {
		if !shellExcluded[c.Name()] {
			s.o.Println(c.HelpLine())
		}
	}

	s.o.Println("  help                               Show this help")
	s.o.Println("  exit                               Leave the shell")
}

func (s *shell) historyPath() string {
	home := s.app.env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, shellHistoryFile)
}
