package console

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/mattn/go-shellwords"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"lab0/config"
	"lab0/errors"
	"lab0/logutil"
	"lab0/queues"
)

const (
	prompt = "cmd> "
	// scripts may source other scripts up to this depth
	maxSourceDepth = 8
	// show prints at most this many values
	maxShowValues = 30
)

// verbosity levels of console output
const (
	levelError = iota
	levelWarn
	levelInfo
	levelDetail
)

var (
	errorColor = color.New(color.FgHiRed, color.Bold)
	warnColor  = color.New(color.FgHiYellow)
)

// Console executes queue commands against a single queue. It tracks the
// size the queue should have, validates the queue after every command and
// counts the errors it reports.
// Attention, it's not thread-safe.
type Console struct {
	cfg    *config.Config
	alloc  *queues.CountingAllocator
	q      *queues.Queue
	logger *zap.Logger
	rnd    *rand.Rand

	out     io.Writer
	stdout  io.Writer
	logFile *os.File

	// expected is the number of elements the queue should hold
	expected int
	errCount int
	quit     bool
	depth    int
	// sourceErrs holds the errors of the script run by the current source
	// command, they were counted when they happened
	sourceErrs error
}

// New creates a console writing to out. cfg must already be adjusted.
func New(cfg *config.Config, out io.Writer) *Console {
	return &Console{
		cfg:    cfg,
		alloc:  queues.NewCountingAllocator(cfg.FailProbability, cfg.Seed),
		logger: logutil.NewLogger4Component("console"),
		rnd:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1)),
		out:    out,
		stdout: out,
	}
}

// Errors returns the number of errors reported so far.
func (c *Console) Errors() int {
	return c.errCount
}

// Done reports whether the console stopped accepting commands, either
// because quit was executed or the error limit was reached.
func (c *Console) Done() bool {
	return c.quit || c.errCount >= c.cfg.ErrorLimit
}

// Queue returns the queue under test, nil if none exists.
func (c *Console) Queue() *queues.Queue {
	return c.q
}

func (c *Console) printf(level int, format string, args ...interface{}) {
	if level > c.cfg.Verbose {
		return
	}
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) warnf(format string, args ...interface{}) {
	if levelWarn > c.cfg.Verbose {
		return
	}
	warnColor.Fprintf(c.out, "WARNING: "+format+"\n", args...)
}

// reportError prints and counts err.
func (c *Console) reportError(err error) {
	c.errCount++
	c.logger.Warn("command failed", logutil.ShortError(err), zap.Int("errors", c.errCount))
	errorColor.Fprintf(c.out, "ERROR: %s\n", err.Error())
	if c.errCount >= c.cfg.ErrorLimit {
		limitErr := errors.ErrErrorLimitReached.GenWithStackByArgs(c.cfg.ErrorLimit)
		c.logger.Error("console stopped", logutil.ShortError(limitErr))
		errorColor.Fprintf(c.out, "ERROR: %s\n", limitErr.Error())
	}
}

// Exec parses and runs one command line. A returned error has already
// been reported and counted.
func (c *Console) Exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	if c.Done() {
		return nil
	}
	if c.cfg.Echo {
		fmt.Fprintf(c.out, "%s%s\n", prompt, line)
	}

	args, err := shellwords.Parse(line)
	if err != nil {
		err = errors.WrapError(errors.ErrParseCommandLine, err)
		c.reportError(err)
		return err
	}
	if len(args) == 0 {
		return nil
	}
	c.logger.Debug("execute command", zap.Strings("args", args))

	root := newCmdRoot(c)
	cmd, _, err := root.Find(args)
	if err != nil || cmd == root {
		err = errors.ErrUnknownCommand.GenWithStackByArgs(args[0])
		c.reportError(err)
		return err
	}
	root.SetArgs(args)
	err = root.Execute()
	sourceErrs := c.sourceErrs
	c.sourceErrs = nil
	if err != nil {
		c.reportError(err)
		return multierr.Append(err, sourceErrs)
	}
	if sourceErrs != nil {
		return sourceErrs
	}
	if cmd.Annotations[annotationCheck] == "" {
		return nil
	}
	if err = c.checkQueue(); err != nil {
		c.reportError(err)
		return err
	}
	return nil
}

// checkQueue validates the queue structure and compares its size with the
// number of elements the console expects.
func (c *Console) checkQueue() error {
	if err := c.q.Validate(); err != nil {
		return errors.Trace(err)
	}
	if c.q == nil {
		return nil
	}
	if size := c.q.Size(); size != c.expected {
		return errors.ErrQueueSizeMismatch.GenWithStackByArgs(size, c.expected)
	}
	return nil
}

// RunScript executes the commands in the file at path. It returns the
// errors of the failed commands combined.
func (c *Console) RunScript(path string) error {
	cmdErrs, err := c.runScript(path)
	if err != nil {
		return multierr.Append(err, cmdErrs)
	}
	if cmdErrs != nil {
		return errors.WrapError(errors.ErrSourceScript, cmdErrs)
	}
	return nil
}

// runScript returns the combined command errors separately from the
// errors of reading the script itself.
func (c *Console) runScript(path string) (cmdErrs error, err error) {
	if c.depth >= maxSourceDepth {
		return nil, errors.ErrInvalidArgument.GenWithStackByArgs("source", "scripts nested too deeply")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapError(errors.ErrSourceScript, err)
	}
	defer f.Close()

	c.depth++
	defer func() { c.depth-- }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() && !c.Done() {
		cmdErrs = multierr.Append(cmdErrs, c.Exec(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return cmdErrs, errors.WrapError(errors.ErrSourceScript, err)
	}
	return cmdErrs, nil
}

// RunInteractive reads commands with readline until EOF, interrupt, quit
// or the error limit.
func (c *Console) RunInteractive() error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       filepath.Join(os.TempDir(), "qtest.history"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "^D",
		HistorySearchFold: true,
	})
	if err != nil {
		return errors.Trace(err)
	}
	defer l.Close()

	// readline echoes the typed line itself
	echo := c.cfg.Echo
	c.cfg.Echo = false
	defer func() { c.cfg.Echo = echo }()

	for !c.Done() {
		line, err := l.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				break
			}
			continue
		}
		_ = c.Exec(line)
	}
	return nil
}

// setLogFile mirrors console output into the file at path.
func (c *Console) setLogFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			c.logger.Warn("close console log file failed", logutil.ShortError(err))
		}
	}
	c.logFile = f
	c.out = io.MultiWriter(c.stdout, f)
	return nil
}

// Close frees the queue, checks that no storage is left allocated and
// closes the console log file.
func (c *Console) Close() error {
	var errs error
	if c.q != nil {
		c.printf(levelInfo, "Freeing queue")
		errs = multierr.Append(errs, c.freeQueue())
	}
	if c.logFile != nil {
		errs = multierr.Append(errs, c.logFile.Close())
		c.logFile = nil
		c.out = c.stdout
	}
	return errs
}
