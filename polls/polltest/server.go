// Package polltest provides an in-memory polling API server for tests.
//
// The server speaks the same endpoints as the real API and reports errors
// as {"detail": ...} bodies. Individual routes can be overridden with a
// canned response to exercise malformed payloads and unusual status codes.
package polltest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Poll mirrors the API's poll payload
type Poll struct {
	ID        int64    `json:"id"`
	Question  string   `json:"question"`
	CreatedAt string   `json:"created_at"`
	OwnerID   int64    `json:"owner_id"`
	Options   []Option `json:"options"`
}

// Option mirrors the API's option payload
type Option struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	PollID int64  `json:"poll_id"`
}

// Request is a recorded incoming request
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type user struct {
	id       int64
	username string
	password string
}

type vote struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	OptionID  int64  `json:"option_id"`
	CreatedAt string `json:"created_at"`
}

type override struct {
	status int
	body   string
}

// Server is a fake polling API backed by memory
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	nextID    int64
	users     map[string]*user
	tokens    map[string]int64
	polls     []*Poll
	votes     map[int64][]vote // poll ID -> votes
	overrides map[string]override
	requests  []Request
}

// NewServer starts a server that is closed when the test ends
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		users:     make(map[string]*user),
		tokens:    make(map[string]int64),
		votes:     make(map[int64][]vote),
		overrides: make(map[string]override),
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)

	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Post("/register", s.handleRegister)
	r.Get("/polls", s.handleListPolls)
	r.Post("/polls/{id}/vote", s.handleVote)
	r.Get("/polls/{id}/results", s.handleResults)

	return r
}

// AddUser creates a user and returns its ID and a valid access token
func (s *Server) AddUser(username, password string) (int64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.addUserLocked(username, password)
	token := fmt.Sprintf("token-%d-%s", u.id, username)
	s.tokens[token] = u.id
	return u.id, token
}

// AddPoll creates a poll owned by ownerID with the given option texts
func (s *Server) AddPoll(ownerID int64, question string, options ...string) Poll {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p := &Poll{
		ID:        s.nextID,
		Question:  question,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, int(s.nextID), 0, time.UTC).Format(time.RFC3339),
		OwnerID:   ownerID,
		Options:   make([]Option, 0, len(options)),
	}
	for _, text := range options {
		s.nextID++
		p.Options = append(p.Options, Option{ID: s.nextID, Text: text, PollID: p.ID})
	}
	s.polls = append(s.polls, p)

	return *p
}

// Override makes method+path answer with a fixed status and raw body
func (s *Server) Override(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = override{status: status, body: body}
}

// Requests returns every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		ov, ok := s.overrides[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(ov.status)
			_, _ = w.Write([]byte(ov.body))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body"}, "msg": "invalid JSON", "type": "value_error"}},
		})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "username"}, "msg": "field required", "type": "value_error.missing"}},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Username]; exists {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	u := s.addUserLocked(req.Username, req.Password)
	writeJSON(w, http.StatusOK, map[string]any{"id": u.id, "username": u.username})
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	page := make([]Poll, 0, limit)
	for i := skip; i < len(s.polls) && len(page) < limit; i++ {
		page = append(page, *s.polls[i])
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	userID, ok := s.tokens[token]
	if !ok || token == "" {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	poll := s.pollLocked(chi.URLParam(r, "id"))
	if poll == nil {
		writeDetail(w, http.StatusNotFound, "Poll not found")
		return
	}

	var req struct {
		OptionID int64 `json:"option_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid vote body")
		return
	}

	found := false
	for _, opt := range poll.Options {
		if opt.ID == req.OptionID {
			found = true
			break
		}
	}
	if !found {
		writeDetail(w, http.StatusNotFound, "Option not found")
		return
	}

	for _, v := range s.votes[poll.ID] {
		if v.UserID == userID {
			writeDetail(w, http.StatusBadRequest, "User has already voted on this poll")
			return
		}
	}

	s.nextID++
	v := vote{
		ID:        s.nextID,
		UserID:    userID,
		OptionID:  req.OptionID,
		CreatedAt: time.Date(2024, 1, 2, 0, 0, int(s.nextID), 0, time.UTC).Format(time.RFC3339),
	}
	s.votes[poll.ID] = append(s.votes[poll.ID], v)
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll := s.pollLocked(chi.URLParam(r, "id"))
	if poll == nil {
		writeDetail(w, http.StatusNotFound, "Poll not found")
		return
	}

	counts := make(map[int64]int64)
	for _, v := range s.votes[poll.ID] {
		counts[v.OptionID]++
	}

	type entry struct {
		OptionID  int64  `json:"option_id"`
		Text      string `json:"text"`
		VoteCount int64  `json:"vote_count"`
	}
	results := make([]entry, 0, len(poll.Options))
	for _, opt := range poll.Options {
		results = append(results, entry{OptionID: opt.ID, Text: opt.Text, VoteCount: counts[opt.ID]})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"poll_id":  poll.ID,
		"question": poll.Question,
		"results":  results,
	})
}

func (s *Server) addUserLocked(username, password string) *user {
	s.nextID++
	u := &user{id: s.nextID, username: username, password: password}
	s.users[username] = u
	return u
}

func (s *Server) pollLocked(rawID string) *Poll {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil
	}
	for _, p := range s.polls {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("query parameter %s must be a non-negative integer", name)
	}
	return v, nil
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
