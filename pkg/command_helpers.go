package pkg

import (
	"bufio"
	"flag"
	"io"
	"os/exec"
	"strings"
)

// ParseCommandLineFlags parsed flags defined by `flag` package. Required to work with sub-commands
func ParseCommandLineFlags(args []string) error {
	// If a commandline app works like this: ./app subcommand -flag -flag2
	// `flag.Parse` won't parse anything after `subcommand`.
	// To still be able to use `flag.String/flag.Int64` etc without creating
	// a new `flag.FlagSet`, we need this hack to find the first arg that has a dash
	// so we know when to start parsing
	firstArgWithDash := len(args)
	for i := 0; i < len(args); i++ {
		if len(args[i]) > 0 && args[i][0] == '-' {
			firstArgWithDash = i
			break
		}
	}

	return flag.CommandLine.Parse(args[firstArgWithDash:])
}

// IsBinaryInstalled checks whether a binary can be found on PATH
func IsBinaryInstalled(binaryName string) bool {
	_, err := exec.LookPath(binaryName)
	return err == nil
}

// lineCollector keeps the last lines written to it, for error messages
type lineCollector struct {
	lines []string
	limit int
}

func newLineCollector(limit int) *lineCollector {
	return &lineCollector{limit: limit}
}

func (c *lineCollector) consume(reader io.Reader) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		Log.Debug(line)
		c.lines = append(c.lines, line)
		if len(c.lines) > c.limit*4 {
			c.lines = c.lines[len(c.lines)-c.limit:]
		}
	}
}

func (c *lineCollector) String() string {
	return lastLines(c.lines, c.limit)
}

func lastLines(lines []string, count int) string {
	if len(lines) > count {
		lines = lines[len(lines)-count:]
	}
	return strings.Join(lines, "\n")
}
