package polls

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const opRegister = "register"

// duplicateUsernameDetail is the detail text the API uses for taken names
const duplicateUsernameDetail = "Username already registered"

// Register creates a new user account. The response payload is not
// validated: whatever the server returned is decoded on a best-effort
// basis and kept verbatim in User.Raw.
func (c *Client) Register(ctx context.Context, username, password string) (*User, error) {
	resp, err := c.doRequest(ctx, opRegister, http.MethodPost, "/register", nil,
		registerRequest{Username: username, Password: password}, nil)
	if err != nil {
		return nil, err
	}

	if resp.statusCode != http.StatusOK {
		apiErr := apiError(opRegister, resp, ErrRegistrationFailed)
		if resp.statusCode == http.StatusBadRequest && strings.Contains(apiErr.Detail, duplicateUsernameDetail) {
			apiErr.Kind = ErrDuplicateUsername
		}
		c.logger.Debug().
			Str("username", username).
			Int("status", resp.statusCode).
			Str("detail", apiErr.Detail).
			Msg("Registration rejected")
		return nil, apiErr
	}

	if _, err := decodeDocument(resp.body); err != nil {
		return nil, malformed(opRegister, err)
	}

	var user User
	if err := unmarshalLenient(resp.body, &user); err != nil {
		return nil, malformed(opRegister, err)
	}
	user.Raw = json.RawMessage(resp.body)

	c.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("Registered user")
	return &user, nil
}
