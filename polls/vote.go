package polls

import (
	"context"
	"fmt"
	"net/http"
)

const (
	opVote       = "vote"
	opGetResults = "get results"
)

// CastVote votes for optionID on pollID on behalf of the token's owner
func (c *Client) CastVote(ctx context.Context, pollID, optionID int64, accessToken string) (*Vote, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+accessToken)

	endpoint := fmt.Sprintf("/polls/%d/vote", pollID)
	resp, err := c.doRequest(ctx, opVote, http.MethodPost, endpoint, nil, voteRequest{OptionID: optionID}, header)
	if err != nil {
		return nil, err
	}

	switch resp.statusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, apiError(opVote, resp, ErrUnauthorized)
	case http.StatusNotFound:
		return nil, apiError(opVote, resp, ErrNotFound)
	default:
		return nil, apiError(opVote, resp, ErrRequestFailed)
	}

	doc, err := decodeDocument(resp.body)
	if err != nil {
		return nil, malformed(opVote, err)
	}
	if err := validateVote(opVote, doc); err != nil {
		return nil, err
	}

	var vote Vote
	if err := decodeInto(opVote, resp.body, &vote); err != nil {
		return nil, err
	}

	c.logger.Info().
		Int64("poll_id", pollID).
		Int64("option_id", vote.OptionID).
		Int64("vote_id", vote.ID).
		Msg("Vote cast")

	return &vote, nil
}

// GetResults retrieves the vote count of every option of pollID
func (c *Client) GetResults(ctx context.Context, pollID int64) (*PollResults, error) {
	endpoint := fmt.Sprintf("/polls/%d/results", pollID)
	resp, err := c.doRequest(ctx, opGetResults, http.MethodGet, endpoint, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	switch resp.statusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apiError(opGetResults, resp, ErrNotFound)
	default:
		return nil, apiError(opGetResults, resp, ErrRequestFailed)
	}

	doc, err := decodeDocument(resp.body)
	if err != nil {
		return nil, malformed(opGetResults, err)
	}
	if err := validateResults(opGetResults, doc); err != nil {
		return nil, err
	}

	var results PollResults
	if err := decodeInto(opGetResults, resp.body, &results); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int64("poll_id", pollID).
		Int("options", len(results.Results)).
		Int64("total_votes", results.TotalVotes()).
		Msg("Retrieved poll results")

	return &results, nil
}
