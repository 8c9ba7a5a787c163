package machine_test

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/ippcode/internal/filetest"
	"github.com/mna/ippcode/lang/machine"
	"github.com/mna/ippcode/lang/parser"
	"github.com/mna/ippcode/lang/program"
	"github.com/mna/ippcode/lang/types"
)

var testUpdateExecTests = flag.Bool("test.update-exec-tests", false, "If set, updates the expected results of the execution tests.")

// TestExecFiles runs the programs in testdata/progs/*.xml and compares the
// results with the golden files in testdata/results: <name>.want for stdout
// and <name>.err for the stderr diagnostics followed by an "exit: N" line.
// When a <name>.in file exists next to the program, it is used as the READ
// input stream.
func TestExecFiles(t *testing.T) {
	dir := filepath.Join("testdata", "progs")
	resultDir := filepath.Join("testdata", "results")

	for _, fi := range filetest.SourceFiles(t, dir, ".xml") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			srcb, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			require.NoError(t, err)

			var input []byte
			inFile := strings.TrimSuffix(fi.Name(), ".xml") + ".in"
			if b, err := os.ReadFile(filepath.Join(dir, inFile)); err == nil {
				input = b
			}

			var stdout, stderr bytes.Buffer
			code := execDoc(bytes.NewReader(srcb), input, &stdout, &stderr)
			fmt.Fprintf(&stderr, "exit: %d\n", code)

			filetest.DiffOutput(t, fi, stdout.String(), resultDir, testUpdateExecTests)
			filetest.DiffErrors(t, fi, stderr.String(), resultDir, testUpdateExecTests)
		})
	}
}

// execDoc mirrors the front-end pipeline: parse, sort, scan labels, run, and
// map any failure to its exit code after writing the diagnostic.
func execDoc(src *bytes.Reader, input []byte, stdout, stderr *bytes.Buffer) int {
	prog, err := parser.Parse(src)
	if err == nil {
		err = prog.Sort()
	}
	var labels *program.Labels
	if err == nil {
		var lerr error
		labels, lerr = prog.ScanLabels()
		err = lerr
	}
	if err == nil {
		m := machine.New(prog, labels)
		m.Stdout = stdout
		m.Stderr = stderr
		m.Stdin = bytes.NewReader(input)
		code, rerr := m.Run(context.Background())
		if rerr == nil {
			return code
		}
		err = rerr
	}
	fmt.Fprintln(stderr, err)
	return int(types.CodeOf(err))
}
