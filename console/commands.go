package console

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/thanhpk/randstr"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"lab0/errors"
	"lab0/queues"
)

const (
	// annotationCheck marks commands after which the queue is validated
	annotationCheck = "check-queue"

	// randomString is the ih/it argument replaced by random strings
	randomString     = "RAND"
	randomLetters    = "abcdefghijklmnopqrstuvwxyz"
	minRandomLen     = 5
	maxRandomLen     = 10
	defaultRepeatArg = 1
)

// newCmdRoot creates the command tree for one console line. Every line gets
// a fresh tree bound to the same console state.
func newCmdRoot(c *Console) *cobra.Command {
	root := &cobra.Command{
		Use:           "qtest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(c.out)
	root.SetErr(c.out)

	root.AddCommand(
		newCmdNew(c),
		newCmdFree(c),
		newCmdInsert(c, "ih", "Insert string at head of queue", true),
		newCmdInsert(c, "it", "Insert string at tail of queue", false),
		newCmdRemoveHead(c),
		newCmdRemoveHeadQuiet(c),
		newCmdSize(c),
		newCmdReverse(c),
		newCmdSort(c),
		newCmdShow(c),
		newCmdOption(c),
		newCmdSource(c),
		newCmdLog(c),
		newCmdQuit(c),
	)
	root.SetHelpCommand(newCmdHelp(c, root))
	root.InitDefaultHelpCmd()
	return root
}

// newQueueCmd returns a command whose arguments are all positional and
// after which the queue is validated.
func newQueueCmd(use, short string, args cobra.PositionalArgs, run func(args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		Args:               args,
		DisableFlagParsing: true,
		Annotations:        map[string]string{annotationCheck: "true"},
		RunE: func(_ *cobra.Command, args []string) error {
			return run(args)
		},
	}
}

func newCmdNew(c *Console) *cobra.Command {
	return newQueueCmd("new", "Create new queue", cobra.NoArgs, func([]string) error {
		var leakErr error
		if c.q != nil {
			c.printf(levelInfo, "Freeing old queue")
			leakErr = c.freeQueue()
		}
		c.q = queues.New(queues.WithAllocator(c.alloc))
		c.expected = 0
		if c.q == nil {
			if c.alloc.FailProbability() == 0 {
				return multierr.Append(leakErr, errors.ErrQueueAllocFailed.GenWithStackByArgs("new"))
			}
			c.warnf("new failed to allocate, queue is NULL")
		}
		c.showQueue(levelDetail)
		return leakErr
	})
}

func newCmdFree(c *Console) *cobra.Command {
	return newQueueCmd("free", "Delete queue", cobra.NoArgs, func([]string) error {
		if c.q == nil {
			c.warnf("Calling free on null queue")
		}
		return c.freeQueue()
	})
}

// freeQueue frees the queue and reports storage still held by the allocator.
func (c *Console) freeQueue() error {
	c.q.Free()
	c.q = nil
	c.expected = 0
	if blocks := c.alloc.Blocks(); blocks != 0 {
		err := errors.ErrLeakedBlocks.GenWithStackByArgs(blocks, humanize.Bytes(uint64(max(c.alloc.Bytes(), 0))))
		c.alloc.ResetBlocks()
		return err
	}
	return nil
}

func newCmdInsert(c *Console, use, short string, atHead bool) *cobra.Command {
	return newQueueCmd(use+" str [n]", short, cobra.RangeArgs(1, 2), func(args []string) error {
		n, err := parseRepeat(use, args, 1)
		if err != nil {
			return err
		}
		if c.q == nil {
			c.warnf("Calling %s on null queue", use)
		}

		insert := c.q.InsertTail
		if atHead {
			insert = c.q.InsertHead
		}
		for i := 0; i < n; i++ {
			s := args[0]
			if s == randomString {
				s = c.randomString()
			}
			if insert(s) {
				c.expected++
				continue
			}
			if c.q == nil {
				continue
			}
			if c.alloc.FailProbability() == 0 {
				return errors.ErrQueueAllocFailed.GenWithStackByArgs(fmt.Sprintf("%s %q", use, s))
			}
			c.printf(levelDetail, "%s of %q failed to allocate", use, s)
		}
		c.showQueue(levelDetail)
		return nil
	})
}

func (c *Console) randomString() string {
	return randstr.String(minRandomLen+c.rnd.IntN(maxRandomLen-minRandomLen+1), randomLetters)
}

// parseRepeat parses the optional repeat count at args[idx].
func parseRepeat(use string, args []string, idx int) (int, error) {
	if len(args) <= idx {
		return defaultRepeatArg, nil
	}
	n, err := strconv.Atoi(args[idx])
	if err != nil || n < 1 {
		return 0, errors.ErrInvalidArgument.GenWithStackByArgs(use, args[idx])
	}
	return n, nil
}

func newCmdRemoveHead(c *Console) *cobra.Command {
	return newQueueCmd("rh [str]", "Remove from head of queue, optionally compare to expected value str", cobra.MaximumNArgs(1), func(args []string) error {
		var want *string
		if len(args) == 1 {
			want = &args[0]
		}
		return c.removeHead("rh", true, want)
	})
}

func newCmdRemoveHeadQuiet(c *Console) *cobra.Command {
	return newQueueCmd("rhq", "Remove from head of queue without reporting value", cobra.NoArgs, func([]string) error {
		return c.removeHead("rhq", false, nil)
	})
}

func (c *Console) removeHead(use string, withBuffer bool, want *string) error {
	var buf []byte
	if withBuffer {
		buf = bytes.Repeat([]byte{'X'}, c.cfg.StringLength)
	}

	state := ""
	if c.q == nil {
		state = "null"
	} else if c.q.IsEmpty() {
		state = "empty"
	}
	if state != "" {
		c.warnf("Calling %s on %s queue", use, state)
	}

	n, ok := c.q.RemoveHeadInto(buf)
	if state != "" {
		if ok {
			return errors.ErrQueueOpSucceeded.GenWithStackByArgs(use, state)
		}
		return nil
	}
	if !ok {
		return errors.ErrQueueOpFailed.GenWithStackByArgs(use)
	}
	c.expected--

	if !withBuffer {
		c.showQueue(levelDetail)
		return nil
	}
	if bytes.IndexByte(buf, 0) != n {
		return errors.ErrRemoveBufferCorrupted.GenWithStackByArgs(len(buf))
	}
	got := string(buf[:n])
	c.printf(levelInfo, "Removed %s from queue", got)
	if want != nil {
		// the expected value is compared as far as it fits in the buffer
		exp := *want
		if len(exp) > len(buf)-1 {
			exp = exp[:len(buf)-1]
		}
		if got != exp {
			return errors.ErrRemoveMismatch.GenWithStackByArgs(got, exp)
		}
	}
	c.showQueue(levelDetail)
	return nil
}

func newCmdSize(c *Console) *cobra.Command {
	return newQueueCmd("size [n]", "Compute queue size n times (default: n == 1)", cobra.MaximumNArgs(1), func(args []string) error {
		n, err := parseRepeat("size", args, 0)
		if err != nil {
			return err
		}
		if c.q == nil {
			c.warnf("Calling size on null queue")
		}
		for i := 0; i < n; i++ {
			if size := c.q.Size(); size != c.expected {
				return errors.ErrQueueSizeMismatch.GenWithStackByArgs(size, c.expected)
			}
		}
		c.printf(levelInfo, "Queue size = %d", c.expected)
		c.showQueue(levelDetail)
		return nil
	})
}

// noAllocate runs op and fails if it touched the allocator.
func (c *Console) noAllocate(use string, op func()) error {
	c.alloc.ResetViolations()
	c.alloc.SetNoAllocate(true)
	op()
	c.alloc.SetNoAllocate(false)
	if v := c.alloc.Violations(); v != 0 {
		return errors.ErrUnexpectedAllocation.GenWithStackByArgs(use, v)
	}
	return nil
}

func newCmdReverse(c *Console) *cobra.Command {
	return newQueueCmd("reverse", "Reverse queue", cobra.NoArgs, func([]string) error {
		if c.q == nil {
			c.warnf("Calling reverse on null queue")
		}
		if err := c.noAllocate("reverse", c.q.Reverse); err != nil {
			return err
		}
		c.showQueue(levelDetail)
		return nil
	})
}

func newCmdSort(c *Console) *cobra.Command {
	return newQueueCmd("sort", "Sort queue in ascending order", cobra.NoArgs, func([]string) error {
		if c.q == nil {
			c.warnf("Calling sort on null queue")
		}
		if err := c.noAllocate("sort", c.q.Sort); err != nil {
			return err
		}

		i := 0
		var prev string
		for v := range c.q.Values() {
			if i > 0 && strings.Compare(prev, v) > 0 {
				return errors.ErrQueueNotSorted.GenWithStackByArgs(i, prev, v)
			}
			prev = v
			i++
		}
		c.showQueue(levelDetail)
		return nil
	})
}

func newCmdShow(c *Console) *cobra.Command {
	return newQueueCmd("show", "Show queue contents", cobra.NoArgs, func([]string) error {
		c.showQueue(levelError)
		return nil
	})
}

// showQueue prints the queue if the verbosity allows it.
func (c *Console) showQueue(level int) {
	if level > c.cfg.Verbose {
		return
	}
	if c.q == nil {
		c.printf(level, "q = NULL")
		return
	}
	var b strings.Builder
	b.WriteString("q = [")
	i := 0
	for v := range c.q.Values() {
		if i == maxShowValues {
			b.WriteString(" ...")
			break
		}
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(v)
		i++
	}
	b.WriteString("]")
	c.printf(level, "%s", b.String())
}

// option is a console parameter adjustable with the option command.
type option struct {
	name string
	doc  string
	get  func() int
	set  func(v int) error
}

func (c *Console) options() []option {
	return []option{
		{
			name: "verbose",
			doc:  "Verbosity level",
			get:  func() int { return c.cfg.Verbose },
			set: func(v int) error {
				if v < 0 || v > 5 {
					return errors.ErrInvalidArgument.GenWithStackByArgs("verbose", v)
				}
				c.cfg.Verbose = v
				return nil
			},
		},
		{
			name: "fail",
			doc:  "Percentage of allocations that fail",
			get:  func() int { return c.cfg.FailProbability },
			set: func(v int) error {
				if v < 0 || v > 100 {
					return errors.ErrInvalidArgument.GenWithStackByArgs("fail", v)
				}
				c.cfg.FailProbability = v
				c.alloc.SetFailProbability(v)
				return nil
			},
		},
		{
			name: "length",
			doc:  "Buffer size for removed strings, terminator included",
			get:  func() int { return c.cfg.StringLength },
			set: func(v int) error {
				if v < 1 {
					return errors.ErrInvalidArgument.GenWithStackByArgs("length", v)
				}
				c.cfg.StringLength = v
				return nil
			},
		},
		{
			name: "error",
			doc:  "Number of errors until exit",
			get:  func() int { return c.cfg.ErrorLimit },
			set: func(v int) error {
				if v < 1 {
					return errors.ErrInvalidArgument.GenWithStackByArgs("error", v)
				}
				c.cfg.ErrorLimit = v
				return nil
			},
		},
		{
			name: "echo",
			doc:  "Do/don't echo commands",
			get: func() int {
				if c.cfg.Echo {
					return 1
				}
				return 0
			},
			set: func(v int) error {
				c.cfg.Echo = v != 0
				return nil
			},
		},
	}
}

func newCmdOption(c *Console) *cobra.Command {
	return &cobra.Command{
		Use:                "option [name val]",
		Short:              "Display or set options",
		Args:               cobra.RangeArgs(0, 2),
		DisableFlagParsing: true,
		RunE: func(_ *cobra.Command, args []string) error {
			opts := c.options()
			if len(args) == 0 {
				c.printf(levelError, "Options:")
				for _, o := range opts {
					c.printf(levelError, "\t%s\t%d\t%s", o.name, o.get(), o.doc)
				}
				return nil
			}
			if len(args) != 2 {
				return errors.ErrInvalidArgument.GenWithStackByArgs("option", strings.Join(args, " "))
			}
			v, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.ErrInvalidArgument.GenWithStackByArgs(args[0], args[1])
			}
			for _, o := range opts {
				if o.name != args[0] {
					continue
				}
				if err := o.set(v); err != nil {
					return err
				}
				c.logger.Info("option changed", zap.String("name", o.name), zap.Int("value", v))
				return nil
			}
			return errors.ErrUnknownOption.GenWithStackByArgs(args[0])
		},
	}
}

func newCmdSource(c *Console) *cobra.Command {
	return &cobra.Command{
		Use:                "source file",
		Short:              "Read commands from source file",
		Args:               cobra.ExactArgs(1),
		DisableFlagParsing: true,
		RunE: func(_ *cobra.Command, args []string) error {
			cmdErrs, err := c.runScript(args[0])
			c.sourceErrs = cmdErrs
			return err
		},
	}
}

func newCmdLog(c *Console) *cobra.Command {
	return &cobra.Command{
		Use:                "log file",
		Short:              "Copy output to file",
		Args:               cobra.ExactArgs(1),
		DisableFlagParsing: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return c.setLogFile(args[0])
		},
	}
}

func newCmdQuit(c *Console) *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Exit program",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			c.quit = true
			return nil
		},
	}
}

func newCmdHelp(c *Console, root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "help",
		Short: "Show documentation",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			c.printf(levelError, "Commands:")
			for _, cmd := range root.Commands() {
				c.printf(levelError, "\t%-18s | %s", cmd.Use, cmd.Short)
			}
			return nil
		},
	}
}
