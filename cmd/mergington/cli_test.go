package main

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/opus-domini/mergington/internal/client"
	"github.com/opus-domini/mergington/internal/config"
	"github.com/opus-domini/mergington/internal/registry"
	"github.com/opus-domini/mergington/internal/store"
)

type fakeClient struct {
	baseURL      string
	activities   map[string]registry.Activity
	err          error
	signups      [][2]string
	unregisters  [][2]string
	journalQuery store.EnrollmentQuery
	entries      []store.Enrollment
}

func (f *fakeClient) List() (map[string]registry.Activity, error) {
	return f.activities, f.err
}

func (f *fakeClient) Signup(activity, email string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.signups = append(f.signups, [2]string{activity, email})
	return "Signed up " + email + " for " + activity, nil
}

func (f *fakeClient) Unregister(activity, email string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.unregisters = append(f.unregisters, [2]string{activity, email})
	return "Unregistered " + email + " from " + activity, nil
}

func (f *fakeClient) Journal(query store.EnrollmentQuery) ([]store.Enrollment, error) {
	f.journalQuery = query
	return f.entries, f.err
}

func installFakeClient(t *testing.T, fake *fakeClient) {
	t.Helper()
	origClient := newClientFn
	origConfig := loadConfigFn
	t.Cleanup(func() {
		newClientFn = origClient
		loadConfigFn = origConfig
	})
	loadConfigFn = func() config.Config {
		return config.Config{ListenAddr: "0.0.0.0:9100"}
	}
	newClientFn = func(baseURL string) activityClient {
		fake.baseURL = baseURL
		return fake
	}
}

func TestRunCLIDefaultServe(t *testing.T) {
	origServe := serveFn
	t.Cleanup(func() { serveFn = origServe })

	called := false
	serveFn = func() int {
		called = true
		return 0
	}

	var out bytes.Buffer
	var errOut bytes.Buffer
	code := runCLI(nil, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !called {
		t.Fatal("serveFn was not called")
	}
}

func TestRunCLIServeRejectsArgs(t *testing.T) {
	origServe := serveFn
	t.Cleanup(func() { serveFn = origServe })
	serveFn = func() int {
		t.Fatal("serveFn should not be called")
		return 0
	}

	var out bytes.Buffer
	var errOut bytes.Buffer
	if code := runCLI([]string{"serve", "extra"}, &out, &errOut); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(errOut.String(), "unexpected argument(s): extra") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunCLIVersion(t *testing.T) {
	origVersion := currentVersionFn
	t.Cleanup(func() { currentVersionFn = origVersion })
	currentVersionFn = func() string { return "1.2.3" }

	for _, arg := range []string{"version", "--version", "-v"} {
		var out bytes.Buffer
		var errOut bytes.Buffer
		if code := runCLI([]string{arg}, &out, &errOut); code != 0 {
			t.Fatalf("%s exit code = %d, want 0", arg, code)
		}
		if got := out.String(); got != "mergington version 1.2.3\n" {
			t.Fatalf("%s output = %q", arg, got)
		}
	}
}

func TestRunCLIHelpAndUnknown(t *testing.T) {
	var out bytes.Buffer
	var errOut bytes.Buffer
	if code := runCLI([]string{"help"}, &out, &errOut); code != 0 {
		t.Fatalf("help exit code = %d, want 0", code)
	}
	if !strings.Contains(out.String(), "mergington signup [-server URL] ACTIVITY EMAIL") {
		t.Fatalf("help output = %q", out.String())
	}

	out.Reset()
	if code := runCLI([]string{"bogus"}, &out, &errOut); code != 2 {
		t.Fatalf("unknown exit code = %d, want 2", code)
	}
	if !strings.Contains(errOut.String(), "unknown command: bogus") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunCLIList(t *testing.T) {
	fake := &fakeClient{activities: map[string]registry.Activity{
		"Chess Club": {
			Description:     "Learn strategies",
			Schedule:        "Fridays",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		"Art Studio": {
			Description:     "Painting",
			Schedule:        "Tuesdays",
			MaxParticipants: 18,
			Participants:    []string{},
		},
	}}
	installFakeClient(t, fake)

	var out bytes.Buffer
	var errOut bytes.Buffer
	if code := runCLI([]string{"list"}, &out, &errOut); code != 0 {
		t.Fatalf("exit code = %d, want 0 (stderr: %s)", code, errOut.String())
	}
	if fake.baseURL != "http://127.0.0.1:9100" {
		t.Fatalf("baseURL = %q, want derived from listen address", fake.baseURL)
	}
	text := out.String()
	for _, fragment := range []string{
		"Chess Club",
		"enrolled: 2/12",
		"participants: michael@mergington.edu, daniel@mergington.edu",
		"participants: -",
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("output missing %q:\n%s", fragment, text)
		}
	}
	if strings.Index(text, "Art Studio") > strings.Index(text, "Chess Club") {
		t.Fatalf("activities not sorted:\n%s", text)
	}
}

func TestRunCLIListSingleActivity(t *testing.T) {
	fake := &fakeClient{activities: map[string]registry.Activity{
		"Chess Club": {MaxParticipants: 12},
		"Art Studio": {MaxParticipants: 18},
	}}
	installFakeClient(t, fake)

	var out bytes.Buffer
	var errOut bytes.Buffer
	if code := runCLI([]string{"list", "-server", "http://school:8000", "Art Studio"}, &out, &errOut); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if fake.baseURL != "http://school:8000" {
		t.Fatalf("baseURL = %q", fake.baseURL)
	}
	if strings.Contains(out.String(), "Chess Club") {
		t.Fatalf("unexpected activity in output:\n%s", out.String())
	}

	errOut.Reset()
	if code := runCLI([]string{"list", "Robotics"}, &out, &errOut); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "activity not found: Robotics") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunCLISignupAndUnregister(t *testing.T) {
	fake := &fakeClient{}
	installFakeClient(t, fake)

	var out bytes.Buffer
	var errOut bytes.Buffer
	if code := runCLI([]string{"signup", "Chess Club", "new@mergington.edu"}, &out, &errOut); code != 0 {
		t.Fatalf("signup exit code = %d (stderr: %s)", code, errOut.String())
	}
	if code := runCLI([]string{"unregister", "Chess Club", "new@mergington.edu"}, &out, &errOut); code != 0 {
		t.Fatalf("unregister exit code = %d (stderr: %s)", code, errOut.String())
	}
	if len(fake.signups) != 1 || fake.signups[0] != [2]string{"Chess Club", "new@mergington.edu"} {
		t.Fatalf("signups = %v", fake.signups)
	}
	if len(fake.unregisters) != 1 {
		t.Fatalf("unregisters = %v", fake.unregisters)
	}
	for _, fragment := range []string{
		"Signed up new@mergington.edu for Chess Club",
		"Unregistered new@mergington.edu from Chess Club",
	} {
		if !strings.Contains(out.String(), fragment) {
			t.Fatalf("output missing %q:\n%s", fragment, out.String())
		}
	}
}

func TestRunCLISignupErrors(t *testing.T) {
	fake := &fakeClient{err: &client.APIError{Status: http.StatusBadRequest, Detail: "Student is already signed up"}}
	installFakeClient(t, fake)

	var out bytes.Buffer
	var errOut bytes.Buffer
	if code := runCLI([]string{"signup", "Chess Club"}, &out, &errOut); code != 2 {
		t.Fatalf("missing email exit code = %d, want 2", code)
	}
	if !strings.Contains(errOut.String(), "activity and email are required") {
		t.Fatalf("stderr = %q", errOut.String())
	}

	errOut.Reset()
	if code := runCLI([]string{"signup", "Chess Club", "michael@mergington.edu"}, &out, &errOut); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "signup failed: Student is already signed up (400)") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunCLIJournal(t *testing.T) {
	fake := &fakeClient{entries: []store.Enrollment{{
		ID:        "abc",
		Activity:  "Chess Club",
		Email:     "new@mergington.edu",
		Action:    registry.ActionSignup,
		CreatedAt: "2026-01-02T03:04:05.000000000Z",
	}}}
	installFakeClient(t, fake)

	var out bytes.Buffer
	var errOut bytes.Buffer
	code := runCLI([]string{"journal", "-activity", "Chess Club", "-limit", "5"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit code = %d (stderr: %s)", code, errOut.String())
	}
	if fake.journalQuery.Activity != "Chess Club" || fake.journalQuery.Limit != 5 {
		t.Fatalf("query = %+v", fake.journalQuery)
	}
	want := "2026-01-02T03:04:05.000000000Z\tsignup\tChess Club\tnew@mergington.edu\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}

	if code := runCLI([]string{"journal", "-limit", "0"}, &out, &errOut); code != 2 {
		t.Fatalf("limit=0 exit code = %d, want 2", code)
	}

	fake.entries = nil
	out.Reset()
	if code := runCLI([]string{"journal"}, &out, &errOut); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "no journal entries found") {
		t.Fatalf("output = %q", out.String())
	}

	fake.err = errors.New("connection refused")
	errOut.Reset()
	if code := runCLI([]string{"journal"}, &out, &errOut); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestServerURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		listen string
		want   string
	}{
		{"127.0.0.1:8000", "http://127.0.0.1:8000"},
		{"0.0.0.0:9000", "http://127.0.0.1:9000"},
		{":7000", "http://127.0.0.1:7000"},
		{"[::]:7000", "http://127.0.0.1:7000"},
		{"school.local:80", "http://school.local:80"},
		{"garbage", "http://127.0.0.1:8000"},
		{"host:http", "http://127.0.0.1:8000"},
	}
	for _, tt := range tests {
		if got := serverURL(tt.listen); got != tt.want {
			t.Errorf("serverURL(%q) = %q, want %q", tt.listen, got, tt.want)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	for level, want := range map[string]string{
		"debug": "DEBUG",
		"warn":  "WARN",
		"error": "ERROR",
		"info":  "INFO",
		"":      "INFO",
		"loud":  "INFO",
	} {
		if got := parseLogLevel(level).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", level, got, want)
		}
	}
}
