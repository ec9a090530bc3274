// Package polls provides a client for the polling HTTP API.
//
// The API exposes four endpoints: user registration, a paginated poll
// listing, voting and per-poll results. Every operation on Client issues
// exactly one HTTP request, maps the status code onto an error and checks
// that the JSON payload has the fields callers rely on before decoding it.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := polls.NewClient("http://localhost:8000", logger,
//		polls.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	list, err := client.FetchPollsValidated(ctx, 0, 10)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	vote, err := client.CastVote(ctx, list[0].ID, list[0].Options[0].ID, token)
//
// For one-off calls the package-level functions (Register, FetchPolls,
// FetchPollsValidated, Vote, GetResults) take the base URL per call.
//
// # Error Handling
//
//   - *TransportError: the request never produced a response (DNS,
//     connection refused, timeout, cancelled context). Matches ErrTransport.
//   - ErrInvalidResponse: status 200 but the payload has the wrong shape.
//     Schema violations are reported as *SchemaError naming the index and
//     field that failed.
//   - *APIError: any other non-200 response. Its Kind is one of
//     ErrRequestFailed, ErrUnauthorized, ErrNotFound, ErrDuplicateUsername
//     or ErrRegistrationFailed, so errors.Is works on all of them.
//
// Nothing is retried. Validation stops at the first violation.
package polls
