// Package maincmd implements the ippcode command: it resolves the source and
// input streams from the command line, loads the XML source document and
// executes it, mapping every outcome to the documented process exit codes.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/ippcode/lang/machine"
	"github.com/mna/ippcode/lang/parser"
	"github.com/mna/ippcode/lang/types"
)

const binName = "ippcode"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [--source=<path>] [--input=<path>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [--source=<path>] [--input=<path>]
       %[1]s --help
       %[1]s --version

Interpreter for the IPPcode22 language. The program is read as an XML
document from the source path and executed; the READ instruction consumes
lines from the input path. At least one of the two paths must be given, the
other defaults to standard input.

Valid flag options are:
       --source=<path>           XML source document of the program.
       --input=<path>            Input stream for the READ instruction.
       --help                    Show this help and exit.
       --version                 Print version and exit.
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"help"`
	Version bool `flag:"version"`

	Source string `flag:"source"`
	Input  string `flag:"input"`

	args  []string
	flags map[string]bool
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		// must appear alone
		if len(c.flags) != 1 || len(c.args) != 0 {
			return errors.New("--help and --version do not accept other arguments")
		}
		return nil
	}

	if len(c.args) != 0 {
		return fmt.Errorf("unexpected argument: %s", c.args[0])
	}
	if !c.flags["source"] && !c.flags["input"] {
		return errors.New("at least one of --source and --input is required")
	}
	if c.flags["source"] && c.Source == "" {
		return errors.New("--source requires a path")
	}
	if c.flags["input"] && c.Input == "" {
		return errors.New("--input requires a path")
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	var p mainer.Parser
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.ExitCode(types.ExitUsage)
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	code, err := c.run(ctx, stdio)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.ExitCode(types.CodeOf(err))
	}
	return mainer.ExitCode(code)
}

// run resolves the streams and drives the load-sort-scan-execute pipeline.
// It returns the process exit code of a clean execution (0 or the operand of
// a reached EXIT instruction).
func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio) (int, error) {
	source, err := c.openStream(c.Source, stdio.Stdin)
	if err != nil {
		return 0, err
	}
	defer source.Close()

	input, err := c.openStream(c.Input, stdio.Stdin)
	if err != nil {
		return 0, err
	}
	defer input.Close()

	prog, err := parser.Parse(source)
	if err != nil {
		return 0, err
	}
	if err := prog.Sort(); err != nil {
		return 0, err
	}
	labels, err := prog.ScanLabels()
	if err != nil {
		return 0, err
	}

	m := machine.New(prog, labels)
	m.Stdout = stdio.Stdout
	m.Stderr = stdio.Stderr
	m.Stdin = input
	return m.Run(ctx)
}

// openStream opens the given path, or falls back to the process input when
// the path is empty. An unopenable file is error 11.
func (c *Cmd) openStream(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, types.Errorf(types.ExitFileOpen, "cannot open %s", path)
	}
	return f, nil
}
