package main

import (
	"bytes"
	"embed"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeds the test folder
//
//go:embed testdata
var testSet embed.FS

type directive struct {
	args     []string
	wantFail bool
	// lines the output must contain, in order
	lines []string
}

// format is as follows:
//
//	# tyrel:endToEnd subcommand [flags] | pass or fail
//	#> a line of expected output
func extractDirective(t *testing.T, str string) directive {
	rows := strings.Split(str, "\n")
	firstLine := rows[0]
	trimmed, ok := strings.CutPrefix(firstLine, "# tyrel:endToEnd ")
	if !ok {
		t.Fatalf("could not parse directive: '%v'", firstLine)
	}
	args, outcome, ok := strings.Cut(trimmed, "|")
	if !ok {
		t.Fatalf("could not parse directive: '%v'", firstLine)
	}
	d := directive{args: strings.Fields(args), wantFail: strings.TrimSpace(outcome) == "fail"}
	for _, row := range rows[1:] {
		expected, ok := strings.CutPrefix(row, "#> ")
		if !ok {
			break
		}
		d.lines = append(d.lines, expected)
	}
	return d
}

func TestOverlapEndToEnd(t *testing.T) {
	testDir(t, "overlap")
}

func TestOrphanEndToEnd(t *testing.T) {
	testDir(t, "orphan")
}

func TestProveEndToEnd(t *testing.T) {
	testDir(t, "prove")
}

func testDir(t *testing.T, at string) {
	files, err := testSet.ReadDir(path.Join("testdata", at))
	require.NoError(t, err)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}
		testFile(t, at, f)
	}
}

// resetFlags undoes the flags set by a previous run, as cobra keeps them between
// executions
func resetFlags(c *cobra.Command) {
	for _, sub := range c.Commands() {
		sub.Flags().VisitAll(func(f *pflag.Flag) {
			if slice, ok := f.Value.(pflag.SliceValue); ok {
				_ = slice.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
}

func testFile(t *testing.T, at string, f fs.DirEntry) bool {
	return t.Run(f.Name(), func(t *testing.T) {
		content, err := testSet.ReadFile(path.Join("testdata", at, f.Name()))
		require.NoError(t, err)
		d := extractDirective(t, string(content))

		// the CLI reads fixtures from disk
		fixturePath := filepath.Join(t.TempDir(), f.Name())
		require.NoError(t, os.WriteFile(fixturePath, content, 0o600))

		out := &bytes.Buffer{}
		resetFlags(rootCmd)
		rootCmd.SetOut(out)
		rootCmd.SetErr(io.Discard)
		rootCmd.SetArgs(append(d.args, fixturePath))
		err = rootCmd.Execute()
		if d.wantFail {
			assert.Error(t, err, "output:\n%s", out)
		} else {
			assert.NoError(t, err, "output:\n%s", out)
		}

		rest := out.String()
		for _, line := range d.lines {
			i := strings.Index(rest, line)
			if !assert.GreaterOrEqual(t, i, 0, "missing %q in output:\n%s", line, out) {
				return
			}
			rest = rest[i+len(line):]
		}
	})
}
