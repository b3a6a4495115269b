package client

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/opus-domini/mergington/internal/api"
	"github.com/opus-domini/mergington/internal/registry"
	"github.com/opus-domini/mergington/internal/store"
)

func newTestServer(t *testing.T) *Client {
	t.Helper()
	reg, err := registry.New(registry.DefaultSeed())
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}
	st, err := store.New("")
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	mux := http.NewServeMux()
	api.Register(mux, reg, api.Options{Journal: st})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 0)
}

func TestList(t *testing.T) {
	t.Parallel()
	c := newTestServer(t)

	all, err := c.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 9 {
		t.Fatalf("len = %d, want 9", len(all))
	}
	chess := all["Chess Club"]
	if chess.Name != "Chess Club" || chess.MaxParticipants != 12 {
		t.Fatalf("Chess Club = %+v", chess)
	}
}

func TestSignupAndUnregister(t *testing.T) {
	t.Parallel()
	c := newTestServer(t)
	email := "student+lab@mergington.edu"

	msg, err := c.Signup("Art Studio", email)
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if msg != "Signed up "+email+" for Art Studio" {
		t.Fatalf("message = %q", msg)
	}
	all, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(all["Art Studio"].Participants, email) {
		t.Fatalf("participants = %v, want %s", all["Art Studio"].Participants, email)
	}

	msg, err = c.Unregister("Art Studio", email)
	if err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if msg != "Unregistered "+email+" from Art Studio" {
		t.Fatalf("message = %q", msg)
	}

	entries, err := c.Journal(store.EnrollmentQuery{Email: email})
	if err != nil {
		t.Fatalf("Journal() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Action != registry.ActionUnregister {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestErrorsCarryDetail(t *testing.T) {
	t.Parallel()
	c := newTestServer(t)

	tests := []struct {
		name       string
		call       func() error
		wantStatus int
		wantDetail string
	}{
		{
			name: "unknown activity",
			call: func() error {
				_, err := c.Signup("Nonexistent Activity", "a@mergington.edu")
				return err
			},
			wantStatus: http.StatusNotFound,
			wantDetail: "Activity not found",
		},
		{
			name: "duplicate signup",
			call: func() error {
				_, err := c.Signup("Chess Club", "michael@mergington.edu")
				return err
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Student is already signed up",
		},
		{
			name: "not registered",
			call: func() error {
				_, err := c.Unregister("Chess Club", "ghost@mergington.edu")
				return err
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Student is not registered for this activity",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !IsStatus(err, tt.wantStatus) {
				t.Fatalf("error = %v, want status %d", err, tt.wantStatus)
			}
			apiErr := err.(*APIError) //nolint:errorlint // IsStatus checked the type
			if apiErr.Detail != tt.wantDetail {
				t.Fatalf("detail = %q, want %q", apiErr.Detail, tt.wantDetail)
			}
		})
	}
}

func TestUnreachableServer(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := New(url, 0).List(); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	t.Parallel()

	if got := (&APIError{Status: 503}).Error(); got != "server returned 503" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&APIError{Status: 404, Detail: "Activity not found"}).Error(); got != "Activity not found (404)" {
		t.Errorf("Error() = %q", got)
	}
}
