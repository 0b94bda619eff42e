// Package cmd wires the scatter CLI: config resolution, task intake,
// pool assembly, and the choice of console surface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/zjrosen/scatter/internal/config"
	"github.com/zjrosen/scatter/internal/console"
	"github.com/zjrosen/scatter/internal/log"
	"github.com/zjrosen/scatter/internal/pool"
	"github.com/zjrosen/scatter/internal/queue"
	"github.com/zjrosen/scatter/internal/runner"
	"github.com/zjrosen/scatter/internal/tasks"
	"github.com/zjrosen/scatter/internal/tracing"
	uiconsole "github.com/zjrosen/scatter/internal/ui/console"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

// execPool is the concrete pool the CLI drives: shell command lines in,
// exec results out.
type execPool = pool.Pool[string, runner.ExecResult]

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "scatter [task ...]",
	Short:   "Run shell tasks across a pool of parallel workers",
	Long:    `Scatter pulls task lines from a shared queue and runs them across a fixed pool of workers. An interactive console pauses, resumes, and stops individual workers while results stream in.`,
	Version: version,
	Args:    cobra.ArbitraryArgs,
	RunE:    runRoot,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "scatter %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .scatter/config.yaml, then ~/.config/scatter/config.yaml)")
	rootCmd.PersistentFlags().StringP("tasks", "t", "",
		"task file with one shell command per line ('-' reads stdin)")
	rootCmd.PersistentFlags().Bool("follow", false,
		"watch the task file and enqueue lines appended to it")
	rootCmd.PersistentFlags().IntP("workers", "w", 0,
		"number of pool workers")
	rootCmd.PersistentFlags().String("shell", "",
		"shell used to run each task")
	rootCmd.PersistentFlags().Bool("plain", false,
		"use the raw-terminal line console instead of the TUI")
	rootCmd.PersistentFlags().Bool("debug", false,
		"log at debug level")
	rootCmd.PersistentFlags().String("log", "",
		"log file path")

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("workers", defaults.Workers)
	viper.SetDefault("shell", defaults.Shell)
	viper.SetDefault("poll_interval", defaults.PollInterval)
	viper.SetDefault("paused_backoff", defaults.PausedBackoff)
	viper.SetDefault("console.mode", defaults.Console.Mode)
	viper.SetDefault("log.path", defaults.Log.Path)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .scatter/config.yaml (current directory)
		// 2. ~/.config/scatter/config.yaml (user config)
		if _, err := os.Stat(".scatter/config.yaml"); err == nil {
			viper.SetConfigFile(".scatter/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "scatter"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .scatter/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".scatter/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// rootFlags captures the command-line overrides that participate in
// config precedence.
type rootFlags struct {
	workers    int
	workersSet bool
	shell      string
	shellSet   bool
	logPath    string
	logSet     bool
	debug      bool
	plain      bool
}

func readRootFlags(cmd *cobra.Command) rootFlags {
	fl := cmd.Flags()
	workers, _ := fl.GetInt("workers")
	shell, _ := fl.GetString("shell")
	logPath, _ := fl.GetString("log")
	debug, _ := fl.GetBool("debug")
	plain, _ := fl.GetBool("plain")
	return rootFlags{
		workers:    workers,
		workersSet: fl.Changed("workers"),
		shell:      shell,
		shellSet:   fl.Changed("shell"),
		logPath:    logPath,
		logSet:     fl.Changed("log"),
		debug:      debug,
		plain:      plain,
	}
}

// resolveConfig layers task-file front matter and explicit flags over the
// base config. Precedence, lowest to highest: built-in defaults, config
// file, front matter, command-line flags.
func resolveConfig(base config.Config, opts *tasks.Options, fl rootFlags) config.Config {
	out := base
	if opts != nil {
		if opts.Workers > 0 {
			out.Workers = opts.Workers
		}
		if opts.Shell != "" {
			out.Shell = opts.Shell
		}
	}
	if fl.workersSet {
		out.Workers = fl.workers
	}
	if fl.shellSet {
		out.Shell = fl.shell
	}
	if fl.logSet {
		out.Log.Path = fl.logPath
	}
	if fl.debug {
		out.Log.Level = "debug"
		if out.Log.Path == "" {
			out.Log.Path = config.DefaultLogFilePath()
		}
	}
	if fl.plain {
		out.Console.Mode = "plain"
	}
	return out
}

// intake describes where task lines come from for one run.
type intake struct {
	file   string
	follow bool
	args   []string
	stdin  io.Reader
}

// loadTasks fills src from the configured intake and reports the task
// file's front matter, if any. The source is sealed unless a follower
// keeps it open for appended lines.
func loadTasks(src *queue.Source[string], in intake) (*tasks.Options, *tasks.Follower, error) {
	if in.follow && (in.file == "" || in.file == "-") {
		return nil, nil, errors.New("--follow requires --tasks <file>")
	}

	switch {
	case in.file == "-":
		if _, err := tasks.Load(src, in.stdin); err != nil {
			return nil, nil, fmt.Errorf("reading tasks from stdin: %w", err)
		}
	case in.file != "":
		res, err := tasks.LoadFile(src, in.file)
		if err != nil {
			return nil, nil, fmt.Errorf("loading tasks: %w", err)
		}
		if in.follow {
			f, err := tasks.NewFollower(src, in.file, res.Offset)
			if err != nil {
				return nil, nil, fmt.Errorf("following %s: %w", in.file, err)
			}
			return res.Options, f, nil
		}
		src.Seal()
		return res.Options, nil, nil
	case len(in.args) > 0:
		if _, err := tasks.FromArgs(src, in.args); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, errors.New("no tasks: pass tasks as arguments or use --tasks <file>")
	}

	src.Seal()
	return nil, nil, nil
}

// surface is the presentation a run is driven through.
type surface int

const (
	surfaceTUI surface = iota
	surfaceLine
	surfaceBatch
)

// pickSurface decides how the run is presented. Without a terminal the
// interactive surfaces degrade to batch so piped invocations still work.
func pickSurface(mode string, interactive bool) surface {
	if !interactive {
		return surfaceBatch
	}
	if mode == "plain" {
		return surfaceLine
	}
	return surfaceTUI
}

func runRoot(cmd *cobra.Command, args []string) error {
	return run(cmd, args, false)
}

// run assembles the source, runner, and pool, then drives the run
// through the selected surface. batch forces the non-interactive path.
func run(cmd *cobra.Command, args []string, batch bool) error {
	fl := readRootFlags(cmd)
	taskFile, _ := cmd.Flags().GetString("tasks")
	follow, _ := cmd.Flags().GetBool("follow")

	src := queue.NewSource[string]()
	opts, follower, err := loadTasks(src, intake{
		file:   taskFile,
		follow: follow,
		args:   args,
		stdin:  os.Stdin,
	})
	if err != nil {
		return err
	}

	resolved := resolveConfig(cfg, opts, fl)
	if err := config.Validate(resolved); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if resolved.Log.Path != "" {
		closeLog, err := log.Init(resolved.Log.Path)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer closeLog()
		if level, err := log.ParseLevel(resolved.Log.Level); err == nil {
			log.SetMinLevel(level)
		}
	}

	provider, err := tracing.NewProvider(tracing.Config{
		Enabled:      resolved.Tracing.Enabled,
		Exporter:     resolved.Tracing.Exporter,
		FilePath:     resolved.Tracing.FilePath,
		OTLPEndpoint: resolved.Tracing.OTLPEndpoint,
		SampleRate:   resolved.Tracing.SampleRate,
		ServiceName:  "scatter",
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	p, err := pool.New(pool.Config[string, runner.ExecResult]{
		Runner:        runner.NewShell(resolved.Shell),
		Source:        src,
		Workers:       resolved.Workers,
		PollInterval:  resolved.PollInterval,
		PausedBackoff: resolved.PausedBackoff,
		Tracer:        provider.Tracer(),
	})
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("starting pool: %w", err)
	}
	if follower != nil {
		if err := follower.Start(); err != nil {
			return fmt.Errorf("watching %s: %w", taskFile, err)
		}
		defer func() { _ = follower.Stop() }()
	}

	mode := surfaceBatch
	if !batch {
		mode = pickSurface(resolved.Console.Mode, term.IsTerminal(int(os.Stdin.Fd())))
	}

	var runErr error
	switch mode {
	case surfaceTUI:
		runErr = runTUI(p, resolved.PollInterval)
	case surfaceLine:
		runErr = runLineConsole(ctx, p, resolved.PollInterval)
	default:
		runErr = runBatch(ctx, p)
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), p.Stats().FormatSummary())
	return runErr
}

func runTUI(p *execPool, poll time.Duration) error {
	zone.NewGlobal()
	model := uiconsole.New(uiconsole.Config{
		Pool:       p,
		ResultPoll: poll,
		ConfigFile: viper.ConfigFileUsed(),
	})
	defer model.Cleanup()

	prog := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("running console: %w", err)
	}
	return nil
}

func runLineConsole(ctx context.Context, p *execPool, poll time.Duration) error {
	editor, err := console.NewTerminalEditor()
	if err != nil {
		return err
	}
	c, err := console.New(console.Config[string, runner.ExecResult]{
		Pool:         p,
		Lines:        editor,
		OnResult:     printResultRaw,
		PollInterval: poll,
	})
	if err != nil {
		return err
	}
	return c.Listen(ctx)
}

func runBatch(ctx context.Context, p *execPool) error {
	c, err := console.New(console.Config[string, runner.ExecResult]{
		Pool: p,
		OnResult: func(res runner.ExecResult) {
			fmt.Println(res.String())
		},
		Out: io.Discard,
	})
	if err != nil {
		return err
	}
	return c.Listen(ctx)
}

// printResultRaw writes one result under raw-mode line discipline, where
// a bare newline does not return the carriage.
func printResultRaw(res runner.ExecResult) {
	fmt.Print(strings.ReplaceAll(res.String(), "\n", "\r\n") + "\r\n")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
