package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/ballot/polls"
	"github.com/s0up4200/ballot/polls/polltest"
)

// resetFlags restores every flag to its default between runs
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetFlags(child)
	}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--log-level", "error"))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRegisterCommand(t *testing.T) {
	srv := polltest.NewServer(t)

	out, err := runCLI(t, "", "register", "alice", "--password", "pw123", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Registered user alice")

	_, err = runCLI(t, "", "register", "alice", "--password", "pw123", "--base-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `username "alice" is already taken`)
}

func TestRegisterCommandReadsStdin(t *testing.T) {
	srv := polltest.NewServer(t)

	_, err := runCLI(t, "s3cret\n", "register", "bob", "--base-url", srv.URL)
	require.NoError(t, err)

	req, ok := srv.LastRequest()
	require.True(t, ok)
	assert.JSONEq(t, `{"username":"bob","password":"s3cret"}`, string(req.Body))

	_, err = runCLI(t, "", "register", "carol", "--base-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no password given")
}

func TestVoteCommand(t *testing.T) {
	srv := polltest.NewServer(t)
	userID, tok := srv.AddUser("alice", "pw123")
	poll := srv.AddPoll(userID, "Lunch?", "Pizza", "Sushi")

	pollArg := fmt.Sprint(poll.ID)
	optionArg := fmt.Sprint(poll.Options[0].ID)

	out, err := runCLI(t, "", "vote", pollArg, optionArg, "--token", tok, "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Vote recorded")

	_, err = runCLI(t, "", "vote", pollArg, optionArg, "--base-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access token")

	t.Setenv("BALLOT_AUTH_TOKEN", "expired")
	_, err = runCLI(t, "", "vote", pollArg, optionArg, "--base-url", srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, polls.ErrUnauthorized)

	_, err = runCLI(t, "", "vote", "abc", optionArg, "--token", tok, "--base-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid poll ID 'abc'")
}

func TestPollsCommand(t *testing.T) {
	srv := polltest.NewServer(t)
	srv.AddPoll(1, "Where should we go for lunch?", "Pizza", "Sushi", "Tacos")
	srv.AddPoll(2, "Tabs or spaces?", "Tabs", "Spaces")

	out, err := runCLI(t, "", "polls", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 polls:")
	assert.Contains(t, out, "Tabs or spaces?")
	assert.Contains(t, out, "- Sushi (ID:")

	out, err = runCLI(t, "", "polls", "--all", "--limit", "1", "--filter", `hasOption("sushi")`, "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 poll:")
	assert.NotContains(t, out, "Tabs or spaces?")

	_, err = runCLI(t, "", "polls", "--preset", "missing", "--base-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preset 'missing' not found")

	_, err = runCLI(t, "", "polls", "--filter", `OptionCount +`, "--base-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter expression")
}

func TestResultsCommand(t *testing.T) {
	srv := polltest.NewServer(t)
	first := srv.AddPoll(1, "First?", "Yes", "No")
	second := srv.AddPoll(1, "Second?", "Up", "Down")
	_, tok := srv.AddUser("alice", "pw")

	api, err := polls.NewClient(srv.URL, zerolog.Nop())
	require.NoError(t, err)
	_, err = api.CastVote(context.Background(), second.ID, second.Options[1].ID, tok)
	require.NoError(t, err)

	out, err := runCLI(t, "", "results", fmt.Sprint(second.ID), fmt.Sprint(first.ID), "--concurrency", "2", "--base-url", srv.URL)
	require.NoError(t, err)

	secondAt := strings.Index(out, "Poll "+fmt.Sprint(second.ID)+": Second?")
	firstAt := strings.Index(out, "Poll "+fmt.Sprint(first.ID)+": First?")
	require.GreaterOrEqual(t, secondAt, 0)
	require.GreaterOrEqual(t, firstAt, 0)
	assert.Less(t, secondAt, firstAt)
	assert.Contains(t, out, "Total: 1 vote\n")

	_, err = runCLI(t, "", "results", "999", "--base-url", srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, polls.ErrNotFound)
}

func TestWatchCommand(t *testing.T) {
	srv := polltest.NewServer(t)
	poll := srv.AddPoll(1, "Coffee?", "Yes", "No")

	out, err := runCLI(t, "", "watch", fmt.Sprint(poll.ID), "--interval", "10ms", "--count", "2", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "── "))
	assert.Equal(t, 2, strings.Count(out, "Coffee?"))
}

func TestVersionCommand(t *testing.T) {
	t.Cleanup(func() { SetVersion("dev", "unknown") })

	SetVersion("1.2.3", "2024-05-01")
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "ballot v1.2.3 (built 2024-05-01)\n", out)

	SetVersion("dev", "unknown")
	out, err = runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "development build")
}

func TestFetchResults(t *testing.T) {
	srv := polltest.NewServer(t)
	var ids []int64
	for i := 0; i < 6; i++ {
		ids = append(ids, srv.AddPoll(1, fmt.Sprintf("Q%d?", i), "A", "B").ID)
	}
	api, err := polls.NewClient(srv.URL, zerolog.Nop())
	require.NoError(t, err)

	results, err := fetchResults(context.Background(), api, ids, 3)
	require.NoError(t, err)
	require.Len(t, results, len(ids))
	for i, r := range results {
		assert.Equal(t, ids[i], r.PollID)
	}

	_, err = fetchResults(context.Background(), api, append(ids, 12345), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll 12345")
	assert.ErrorIs(t, err, polls.ErrNotFound)
}

func TestRenderResults(t *testing.T) {
	var buf bytes.Buffer
	renderResults(&buf, &polls.PollResults{
		PollID:   1,
		Question: "Q?",
		Results: []polls.OptionResult{
			{OptionID: 2, Text: "Yes", VoteCount: 1500},
			{OptionID: 3, Text: "No", VoteCount: 500},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Poll 1: Q?")
	assert.Contains(t, out, "★ Yes")
	assert.Contains(t, out, "1,500 votes")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "Total: 2,000 votes")
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", " 22 "})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 22}, ids)

	for _, bad := range []string{"0", "-3", "x", "1.5"} {
		_, err := parseIDs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestDescribeTimestamp(t *testing.T) {
	assert.Equal(t, "unknown", describeTimestamp(""))
	assert.Equal(t, "last tuesday", describeTimestamp("last tuesday"))
	assert.True(t, strings.HasPrefix(describeTimestamp("2020-01-01T00:00:00Z"), "2020-01-01T00:00:00Z ("))
}

// chdir changes the working directory for the duration of the test,
// matching testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
