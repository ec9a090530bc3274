package polls

import (
	"bytes"
	"encoding/json"
	"errors"
)

// unmarshalLenient decodes data into v on a best-effort basis. Fields whose
// JSON type does not match the Go type keep their zero value.
func unmarshalLenient(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return nil
	}
	return err
}

// Timestamp is a server timestamp kept exactly as sent. The client never
// parses it.
type Timestamp string

// UnmarshalJSON accepts a JSON string or any other scalar, keeping the
// latter as its literal text.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Timestamp(s)
		return nil
	}
	*t = Timestamp(bytes.TrimSpace(data))
	return nil
}

// String returns the timestamp text
func (t Timestamp) String() string {
	return string(t)
}

// User is the payload returned by a successful registration
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	// Raw holds the response body exactly as received.
	Raw json.RawMessage `json:"-"`
}

// Poll represents a question with its selectable options
type Poll struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	CreatedAt Timestamp `json:"created_at"`
	OwnerID   int64     `json:"owner_id"`
	Options   []Option  `json:"options"`
	// Raw holds the poll object exactly as received.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes a poll leniently and keeps the input in Raw
func (p *Poll) UnmarshalJSON(data []byte) error {
	type plain Poll
	if err := unmarshalLenient(data, (*plain)(p)); err != nil {
		return err
	}
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// OptionByID returns the option with the given ID
func (p *Poll) OptionByID(id int64) (Option, bool) {
	for _, opt := range p.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Option is one selectable choice of a poll
type Option struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	PollID int64  `json:"poll_id"`
}

// Vote is the record created when a user selects an option
type Vote struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	OptionID  int64     `json:"option_id"`
	CreatedAt Timestamp `json:"created_at"`
	// Raw holds the vote object exactly as received.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes a vote leniently and keeps the input in Raw
func (v *Vote) UnmarshalJSON(data []byte) error {
	type plain Vote
	if err := unmarshalLenient(data, (*plain)(v)); err != nil {
		return err
	}
	v.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// PollResults holds aggregated vote counts for a poll
type PollResults struct {
	PollID   int64          `json:"poll_id"`
	Question string         `json:"question"`
	Results  []OptionResult `json:"results"`
	// Raw holds the results object exactly as received.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes results leniently and keeps the input in Raw
func (r *PollResults) UnmarshalJSON(data []byte) error {
	type plain PollResults
	if err := unmarshalLenient(data, (*plain)(r)); err != nil {
		return err
	}
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// TotalVotes returns the sum of all option vote counts
func (r *PollResults) TotalVotes() int64 {
	var total int64
	for _, res := range r.Results {
		total += res.VoteCount
	}
	return total
}

// Winners returns the options with the highest vote count. Ties return
// every leader in server order; a poll without votes has no winners.
func (r *PollResults) Winners() []OptionResult {
	var best int64
	var winners []OptionResult
	for _, res := range r.Results {
		switch {
		case res.VoteCount > best:
			best = res.VoteCount
			winners = []OptionResult{res}
		case res.VoteCount == best && best > 0:
			winners = append(winners, res)
		}
	}
	return winners
}

// OptionResult is the vote count of a single option
type OptionResult struct {
	OptionID  int64  `json:"option_id"`
	Text      string `json:"text"`
	VoteCount int64  `json:"vote_count"`
}

// Share returns the option's percentage of total, or 0 when total is 0
func (o OptionResult) Share(total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(o.VoteCount) * 100 / float64(total)
}

// registerRequest is the body sent to /register
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// voteRequest is the body sent to /polls/{id}/vote
type voteRequest struct {
	OptionID int64 `json:"option_id"`
}
