package cli_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/cms/internal/cli"
)

func Test_Shell_Runs_Commands_Until_Exit(t *testing.T) {
	t.Parallel()

	c := newSite(t)
	c.WriteFile("content/static/home.json", `{"title":"Welcome"}`)

	input := strings.Join([]string{
		"# comment",
		"get home",
		"",
		"bogus",
		"watch",
		"get about",
		"ls posts --ids",
		"exit",
		"get home",
	}, "\n")

	stdout, stderr, code := c.RunWithInput(input, "shell")
	require.Equal(t, 0, code, stderr)

	require.Equal(t, 1, strings.Count(stdout, `"title": "Welcome"`), stdout)
	cli.AssertContains(t, stderr, "unknown command: bogus")
	cli.AssertContains(t, stderr, "unknown command: watch")
	cli.AssertContains(t, stderr, `unknown entry: static "about"`)
	cli.AssertContains(t, stderr, "not found")
}

func Test_Shell_Stops_At_End_Of_Input(t *testing.T) {
	t.Parallel()

	c := newSite(t)

	stdout := c.MustRunWithInput("help\n", "shell")

	cli.AssertContains(t, stdout, "Commands:")
	cli.AssertContains(t, stdout, "print-config")
	cli.AssertNotContains(t, stdout, "watch [flags]")
}

func Test_Shell_Put_Does_Not_Consume_Shell_Input(t *testing.T) {
	t.Parallel()

	c := newSite(t)
	c.WriteFile("home.json", `{"title":"from file"}`)

	stdout, stderr, code := c.RunWithInput("put home\nput home --file home.json\nget home\n", "shell")
	require.Equal(t, 0, code, stderr)

	cli.AssertContains(t, stderr, "no input")
	cli.AssertContains(t, stdout, `"title": "from file"`)
}
