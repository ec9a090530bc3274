package polls

import (
	"context"

	"github.com/rs/zerolog"
)

// Package-level helpers for one-off calls. Each builds a client for
// baseURL with default options; an empty baseURL means DefaultBaseURL.

// Register creates a user account on the API at baseURL
func Register(ctx context.Context, username, password, baseURL string) (*User, error) {
	c, err := NewClient(baseURL, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	return c.Register(ctx, username, password)
}

// FetchPolls retrieves one page of polls from the API at baseURL
func FetchPolls(ctx context.Context, skip, limit int, baseURL string) ([]Poll, error) {
	c, err := NewClient(baseURL, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	return c.FetchPolls(ctx, skip, limit)
}

// FetchPollsValidated retrieves and validates one page of polls from the
// API at baseURL
func FetchPollsValidated(ctx context.Context, skip, limit int, baseURL string) ([]Poll, error) {
	c, err := NewClient(baseURL, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	return c.FetchPollsValidated(ctx, skip, limit)
}

// CastVote votes on a poll on the API at baseURL
func CastVote(ctx context.Context, pollID, optionID int64, accessToken, baseURL string) (*Vote, error) {
	c, err := NewClient(baseURL, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	return c.CastVote(ctx, pollID, optionID, accessToken)
}

// GetResults retrieves poll results from the API at baseURL
func GetResults(ctx context.Context, pollID int64, baseURL string) (*PollResults, error) {
	c, err := NewClient(baseURL, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	return c.GetResults(ctx, pollID)
}
