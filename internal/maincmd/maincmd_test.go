package maincmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runMain(t *testing.T, stdin string, args ...string) (code mainer.ExitCode, stdout, stderr string) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	stdio := mainer.Stdio{
		Stdin:  strings.NewReader(stdin),
		Stdout: &outBuf,
		Stderr: &errBuf,
	}
	c := Cmd{BuildVersion: "0.0", BuildDate: "2022-04-01"}
	code = c.Main(append([]string{binName}, args...), stdio)
	return code, outBuf.String(), errBuf.String()
}

func writeSource(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.xml")
	src := `<?xml version="1.0" encoding="UTF-8"?><program language="IPPcode22">` + body + `</program>`
	require.NoError(t, os.WriteFile(path, []byte(src), 0600))
	return path
}

func TestHelp(t *testing.T) {
	code, stdout, _ := runMain(t, "", "--help")
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, stdout, "usage: "+binName)
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runMain(t, "", "--version")
	assert.Equal(t, mainer.Success, code)
	assert.Equal(t, binName+" 0.0 2022-04-01\n", stdout)
}

func TestUsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"help with other flag", []string{"--help", "--source=x"}},
		{"version with other flag", []string{"--version", "--input=x"}},
		{"positional argument", []string{"--source=x", "prog.xml"}},
		{"unknown flag", []string{"--verbose"}},
		{"empty source path", []string{"--source="}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			code, _, stderr := runMain(t, "", c.args...)
			assert.Equal(t, mainer.ExitCode(10), code)
			assert.Contains(t, stderr, "invalid arguments")
		})
	}
}

func TestUnopenableFiles(t *testing.T) {
	code, _, stderr := runMain(t, "", "--source="+filepath.Join(t.TempDir(), "nope.xml"))
	assert.Equal(t, mainer.ExitCode(11), code)
	assert.Contains(t, stderr, "cannot open")

	src := writeSource(t, ``)
	code, _, _ = runMain(t, "", "--source="+src, "--input="+filepath.Join(t.TempDir(), "nope.in"))
	assert.Equal(t, mainer.ExitCode(11), code)
}

func TestRunProgram(t *testing.T) {
	src := writeSource(t, `
		<instruction order="1" opcode="DEFVAR"><arg1 type="var">GF@x</arg1></instruction>
		<instruction order="2" opcode="MOVE"><arg1 type="var">GF@x</arg1><arg2 type="int">7</arg2></instruction>
		<instruction order="3" opcode="WRITE"><arg1 type="var">GF@x</arg1></instruction>
	`)
	code, stdout, stderr := runMain(t, "", "--source="+src)
	assert.Equal(t, mainer.Success, code)
	assert.Equal(t, "7", stdout)
	assert.Empty(t, stderr)
}

func TestRunProgramReadsStdin(t *testing.T) {
	src := writeSource(t, `
		<instruction order="1" opcode="DEFVAR"><arg1 type="var">GF@x</arg1></instruction>
		<instruction order="2" opcode="READ"><arg1 type="var">GF@x</arg1><arg2 type="type">int</arg2></instruction>
		<instruction order="3" opcode="WRITE"><arg1 type="var">GF@x</arg1></instruction>
	`)
	code, stdout, _ := runMain(t, "-42\n", "--source="+src)
	assert.Equal(t, mainer.Success, code)
	assert.Equal(t, "-42", stdout)
}

func TestRunProgramInputFile(t *testing.T) {
	src := writeSource(t, `
		<instruction order="1" opcode="DEFVAR"><arg1 type="var">GF@x</arg1></instruction>
		<instruction order="2" opcode="READ"><arg1 type="var">GF@x</arg1><arg2 type="type">string</arg2></instruction>
		<instruction order="3" opcode="WRITE"><arg1 type="var">GF@x</arg1></instruction>
	`)
	in := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello\n"), 0600))

	code, stdout, _ := runMain(t, "", "--source="+src, "--input="+in)
	assert.Equal(t, mainer.Success, code)
	assert.Equal(t, "hello", stdout)
}

func TestExitCodePassthrough(t *testing.T) {
	src := writeSource(t, `<instruction order="1" opcode="EXIT"><arg1 type="int">7</arg1></instruction>`)
	code, _, stderr := runMain(t, "", "--source="+src)
	assert.Equal(t, mainer.ExitCode(7), code)
	assert.Empty(t, stderr)
}

func TestRuntimeErrorDiagnostic(t *testing.T) {
	src := writeSource(t, `
		<instruction order="1" opcode="DEFVAR"><arg1 type="var">GF@x</arg1></instruction>
		<instruction order="2" opcode="WRITE"><arg1 type="var">GF@x</arg1></instruction>
	`)
	code, _, stderr := runMain(t, "", "--source="+src)
	assert.Equal(t, mainer.ExitCode(56), code)
	assert.Contains(t, stderr, "instruction WRITE 2")
}

func TestMalformedSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<program language="IPPcode22"><instruction>`), 0600))
	code, _, stderr := runMain(t, "", "--source="+path)
	assert.Equal(t, mainer.ExitCode(31), code)
	assert.NotEmpty(t, stderr)
}

func TestStructuralError(t *testing.T) {
	src := writeSource(t, `<instruction order="1" opcode="NOPE"/>`)
	code, _, _ := runMain(t, "", "--source="+src)
	assert.Equal(t, mainer.ExitCode(32), code)
}
