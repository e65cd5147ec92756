// Package cli implements the cms command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/cms/internal/metrics"
	"github.com/calvinalkan/cms/pkg/cms"
	"github.com/calvinalkan/cms/pkg/config"
	"github.com/calvinalkan/cms/pkg/content"
)

const defaultLogLevel = "warn"

// Run is the main entry point. args includes the program name. Returns the
// exit code. A value on sigCh cancels the running command.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := newGlobalFlags()

	if len(args) > 0 {
		args = args[1:]
	}

	if err := globals.set.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(out, nil)
			return 0
		}

		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printGlobalFlags(errOut, globals.set)

		return 1
	}

	rest := globals.set.Args()
	if len(rest) == 0 {
		printUsage(out, globals.set)
		return 0
	}

	logger, err := newLogger(errOut, globals.logLevel)
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case sig := <-sigCh:
			logger.Debug().Str("signal", fmt.Sprint(sig)).Msg("interrupted")
			cancel()
		case <-ctx.Done():
		}
	}()

	a := &app{
		workDir:    globals.workDir,
		configPath: globals.configPath,
		env:        env,
		log:        logger,
		metrics:    metrics.New(),
	}

	cmd, ok := findCommand(a.commands(), rest[0])
	if !ok {
		fprintln(errOut, "error:", fmt.Errorf("%w: %s", ErrUnknownCommand, rest[0]))
		printUsage(errOut, globals.set)

		return 1
	}

	code := cmd.Run(ctx, NewIO(in, out, errOut), rest[1:])

	if path := globals.metricsFile; path != "" {
		if !filepath.IsAbs(path) && globals.workDir != "" {
			path = filepath.Join(globals.workDir, path)
		}

		if err := a.metrics.WriteTextfile(path); err != nil {
			fprintln(errOut, "error:", err)
			return 1
		}
	}

	return code
}

type globalFlags struct {
	set         *flag.FlagSet
	workDir     string
	configPath  string
	logLevel    string
	metricsFile string
}

func newGlobalFlags() *globalFlags {
	g := &globalFlags{set: flag.NewFlagSet("cms", flag.ContinueOnError)}

	g.set.SetInterspersed(false)
	g.set.SetOutput(io.Discard)
	g.set.StringVarP(&g.workDir, "cwd", "C", "", "Run as if started in `dir`")
	g.set.StringVarP(&g.configPath, "config", "c", "", "Use the config `file` instead of searching cms.{json,jsonc,yaml,yml}")
	g.set.StringVar(&g.logLevel, "log-level", defaultLogLevel, "Log `level` (debug, info, warn, error, disabled)")
	g.set.StringVar(&g.metricsFile, "metrics-textfile", "", "Write Prometheus metrics to `file` on exit")

	return g
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}

	console := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.TimeOnly}

	return zerolog.New(console).Level(lvl).With().Timestamp().Logger(), nil
}

// app holds what every command shares. The config and API are loaded on
// first use so help and usage errors work without a config file.
type app struct {
	workDir    string
	configPath string
	env        map[string]string
	log        zerolog.Logger
	metrics    *metrics.Collector

	api *cms.API
}

func (a *app) loadInput() config.LoadInput {
	return config.LoadInput{WorkDir: a.workDir, ConfigPath: a.configPath, Env: a.env}
}

func (a *app) open() (*cms.API, error) {
	if a.api != nil {
		return a.api, nil
	}

	cfg, err := config.Load(a.loadInput())
	if err != nil {
		return nil, err
	}

	api, err := a.build(cfg)
	if err != nil {
		return nil, err
	}

	a.api = api

	return api, nil
}

func (a *app) build(cfg *config.Config) (*cms.API, error) {
	adapter, err := content.New(cfg.Layout(),
		content.WithLogger(a.log),
		content.WithObserver(a.metrics),
	)
	if err != nil {
		return nil, err
	}

	return cms.New(cfg, adapter, cms.WithLogger(a.log))
}

// commands returns fresh commands. Parsed flag values stick to a FlagSet,
// so every invocation needs its own.
func (a *app) commands() []*Command {
	return []*Command{
		getCmd(a),
		lsCmd(a),
		showCmd(a),
		putCmd(a),
		newCmd(a),
		rmCmd(a),
		checkCmd(a),
		printConfigCmd(a),
		watchCmd(a),
		shellCmd(a),
	}
}

func findCommand(commands []*Command, name string) (*Command, bool) {
	for _, c := range commands {
		if c.Name() == name {
			return c, true
		}
	}

	return nil, false
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printGlobalFlags(w io.Writer, set *flag.FlagSet) {
	fprintln(w, "Global flags:")
	fprintln(w, "  -h, --help                     Show help")
	fprintln(w, strings.TrimRight(set.FlagUsages(), "\n"))
}

func printUsage(w io.Writer, set *flag.FlagSet) {
	if set == nil {
		set = newGlobalFlags().set
	}

	fprintln(w, `cms - schema-checked JSON content in a git checkout

Usage: cms [flags] <command> [args]`)
	fprintln(w)
	printGlobalFlags(w, set)
	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range (&app{}).commands() {
		fprintln(w, c.HelpLine())
	}
}
