package polls

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const opFetchPolls = "fetch polls"

const (
	// DefaultSkip is the default number of polls to skip
	DefaultSkip = 0
	// DefaultLimit is the default page size of the poll listing
	DefaultLimit = 10

	// maxPages stops FetchAllPolls against a server that ignores skip
	maxPages = 1000
)

// fetchPollList requests one page of polls and checks the payload is a
// JSON array. It returns both the raw body and the decoded document.
func (c *Client) fetchPollList(ctx context.Context, skip, limit int) ([]byte, any, error) {
	params := url.Values{}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))

	resp, err := c.doRequest(ctx, opFetchPolls, http.MethodGet, "/polls", params, nil, nil)
	if err != nil {
		return nil, nil, err
	}

	if resp.statusCode != http.StatusOK {
		return nil, nil, apiError(opFetchPolls, resp, ErrRequestFailed)
	}

	doc, err := decodeDocument(resp.body)
	if err != nil {
		return nil, nil, malformed(opFetchPolls, err)
	}
	if _, ok := doc.([]any); !ok {
		return nil, nil, &SchemaError{Op: opFetchPolls, Index: -1, OptionIndex: -1, Reason: "expected a list of polls"}
	}

	return resp.body, doc, nil
}

// FetchPolls retrieves one page of polls. Only the top-level shape of the
// response is checked.
func (c *Client) FetchPolls(ctx context.Context, skip, limit int) ([]Poll, error) {
	body, _, err := c.fetchPollList(ctx, skip, limit)
	if err != nil {
		return nil, err
	}

	var polls []Poll
	if err := decodeInto(opFetchPolls, body, &polls); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("skip", skip).
		Int("limit", limit).
		Int("count", len(polls)).
		Msg("Retrieved polls")

	return polls, nil
}

// FetchPollsValidated retrieves one page of polls and checks every poll and
// option for its required fields. The first violation fails the whole call.
func (c *Client) FetchPollsValidated(ctx context.Context, skip, limit int) ([]Poll, error) {
	body, doc, err := c.fetchPollList(ctx, skip, limit)
	if err != nil {
		return nil, err
	}

	if err := validatePollList(opFetchPolls, doc); err != nil {
		c.logger.Debug().Err(err).Msg("Poll listing failed validation")
		return nil, err
	}

	var polls []Poll
	if err := decodeInto(opFetchPolls, body, &polls); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("skip", skip).
		Int("limit", limit).
		Int("count", len(polls)).
		Msg("Retrieved and validated polls")

	return polls, nil
}

// FetchAllPolls walks the listing page by page until a short page is
// returned. Pages are fetched sequentially and validated.
func (c *Client) FetchAllPolls(ctx context.Context, pageSize int) ([]Poll, error) {
	if pageSize <= 0 {
		pageSize = DefaultLimit
	}

	var all []Poll
	skip := 0
	for page := 1; ; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("%s: gave up after %d pages", opFetchPolls, maxPages)
		}

		polls, err := c.FetchPollsValidated(ctx, skip, pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		all = append(all, polls...)

		c.logger.Debug().
			Int("page", page).
			Int("count", len(polls)).
			Int("total", len(all)).
			Msg("Retrieved poll page")

		if len(polls) < pageSize {
			break
		}
		skip += len(polls)
	}

	return all, nil
}
