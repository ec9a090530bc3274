package polls

import (
	"context"
)

// API defines the interface for polling API operations
type API interface {
	// Register creates a user account
	Register(ctx context.Context, username, password string) (*User, error)

	// FetchPolls retrieves one page of polls
	FetchPolls(ctx context.Context, skip, limit int) ([]Poll, error)

	// FetchPollsValidated retrieves one page of polls with schema checks
	FetchPollsValidated(ctx context.Context, skip, limit int) ([]Poll, error)

	// CastVote votes on a poll with a bearer token
	CastVote(ctx context.Context, pollID, optionID int64, accessToken string) (*Vote, error)

	// GetResults retrieves aggregated vote counts for a poll
	GetResults(ctx context.Context, pollID int64) (*PollResults, error)
}

var _ API = (*Client)(nil)
