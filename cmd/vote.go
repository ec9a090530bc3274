package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/ballot/polls"
)

var (
	password string
	token    string
)

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Register a new user",
	Long: `Register a new user account. The password is read from --password or,
when omitted, from the first line of standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

// voteCmd represents the vote command
var voteCmd = &cobra.Command{
	Use:   "vote <poll-id> <option-id>",
	Short: "Cast a vote on a poll",
	Long: `Cast a vote for an option of a poll. The access token comes from --token,
auth.token in the config file or the BALLOT_AUTH_TOKEN environment variable.`,
	Args: cobra.ExactArgs(2),
	RunE: runVote,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(voteCmd)

	registerCmd.Flags().StringVar(&password, "password", "", "password for the new user")
	voteCmd.Flags().StringVar(&token, "token", "", "access token (overrides auth.token)")
}

func runRegister(cmd *cobra.Command, args []string) error {
	username := args[0]

	pw := password
	if pw == "" {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			return fmt.Errorf("no password given: use --password or pipe it on stdin")
		}
		pw = strings.TrimRight(scanner.Text(), "\r\n")
	}

	user, err := client.Register(cmd.Context(), username, pw)
	if err != nil {
		if errors.Is(err, polls.ErrDuplicateUsername) {
			return fmt.Errorf("username %q is already taken", username)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered user %s (ID: %d)\n", user.Username, user.ID)
	return nil
}

func runVote(cmd *cobra.Command, args []string) error {
	pollID, err := parseID("poll", args[0])
	if err != nil {
		return err
	}
	optionID, err := parseID("option", args[1])
	if err != nil {
		return err
	}

	accessToken := cfg.Auth.Token
	if cmd.Flags().Changed("token") {
		accessToken = token
	}
	if accessToken == "" {
		return fmt.Errorf("no access token: set --token, auth.token or BALLOT_AUTH_TOKEN")
	}

	vote, err := client.CastVote(cmd.Context(), pollID, optionID, accessToken)
	if err != nil {
		var apiErr *polls.APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
			logger.Warn().Msg("Access token rejected; obtain a new token and try again")
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Vote recorded (vote ID %d, option %d, at %s)\n", vote.ID, vote.OptionID, vote.CreatedAt)
	return nil
}

// parseID parses a positive integer identifier argument
func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s ID '%s': must be a positive integer", kind, raw)
	}
	return id, nil
}
