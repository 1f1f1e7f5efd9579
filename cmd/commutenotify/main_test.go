package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okDirections = `{"status": "OK", "routes": [{"summary": "I-280 N",
	"legs": [{"distance": {"text": "18.2 mi", "value": 29290}, "duration": {"text": "27 mins", "value": 1620}}]}]}`

// isolatedEnv points every variable the commands read at test-owned values.
func isolatedEnv(t *testing.T, profilesJSON, directionsURL string) []string {
	t.Helper()
	dir := t.TempDir()
	profiles := filepath.Join(dir, "profiles.json")
	require.NoError(t, os.WriteFile(profiles, []byte(profilesJSON), 0o600))

	env := map[string]string{
		"SCHEDULE_CRON":           "*/15 8-11 * * 1-5",
		"SCHEDULE_TIMEZONE":       "UTC",
		"PROFILE_SOURCE":          "file",
		"PROFILES_FILE":           profiles,
		"DATABASE_URL":            "",
		"GOOGLE_MAPS_API_KEY":     "test-key",
		"DIRECTIONS_BASE_URL":     directionsURL,
		"DIRECTIONS_MAX_ATTEMPTS": "1",
		"MAIL_PROVIDER":           "log",
		"MAIL_FROM":               "commute@example.com",
		"REDIS_ADDR":              "",
		"LEADER_ELECTION_ENABLED": "",
		"METRICS_ENABLED":         "",
		"LOG_LEVEL":               "error",
		"LOG_FORMAT":              "json",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	return []string{"--env-file", filepath.Join(dir, "absent.env")}
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func directionsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVersion(t *testing.T) {
	code, out, _ := run("version")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, out, "commutenotify version dev")
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := run("frobnicate")
	assert.Equal(t, exitRuntimeError, code)
	assert.Contains(t, errOut, "unknown command")
}

func TestValidate(t *testing.T) {
	flags := isolatedEnv(t, "[]", "")

	code, out, _ := run(append(flags, "validate")...)
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, out, "configuration valid")

	t.Setenv("GOOGLE_MAPS_API_KEY", "")
	t.Setenv("MAIL_PROVIDER", "pigeon")
	code, _, errOut := run(append(flags, "validate")...)
	assert.Equal(t, exitInvalidConfig, code)
	assert.Contains(t, errOut, "GOOGLE_MAPS_API_KEY")
	assert.Contains(t, errOut, "MAIL_PROVIDER")
}

func TestConfig_MasksSecrets(t *testing.T) {
	flags := isolatedEnv(t, "[]", "")
	t.Setenv("RESEND_API_KEY", "re_supersecret")

	code, out, _ := run(append(flags, "config")...)
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, out, `"schedule_timezone": "UTC"`)
	assert.NotContains(t, out, "re_supersecret")
	assert.NotContains(t, out, "test-key")
}

func TestEnvFileIsLoaded(t *testing.T) {
	flags := isolatedEnv(t, "[]", "")
	os.Unsetenv("MAIL_FROM")
	envFile := filepath.Join(t.TempDir(), "custom.env")
	require.NoError(t, os.WriteFile(envFile, []byte("MAIL_FROM=dotenv@example.com\n"), 0o600))
	flags[1] = envFile

	code, out, _ := run(append(flags, "config")...)
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, out, "dotenv@example.com")
}

func TestRunOnce_SendsToDueUsers(t *testing.T) {
	srv := directionsServer(t, okDirections)
	flags := isolatedEnv(t, `[
		{"id": "ada", "email": "ada@example.com", "home": "1 Home St", "work": "2 Work Ave", "departureTime": "08:30"},
		{"id": "bob", "email": "bob@example.com", "home": "3 Home St", "work": "4 Work Ave", "departureTime": "09:00"},
		{"id": "cy", "email": "cy@example.com", "home": "5 Home St"}
	]`, srv.URL)

	code, out, errOut := run(append(flags, "run-once", "--at", "08:30")...)

	require.Equal(t, exitSuccess, code, errOut)
	assert.Contains(t, out, "08:30 UTC")
	assert.Regexp(t, `sent\s+1`, out)
	assert.Regexp(t, `not_due\s+1`, out)
	assert.Regexp(t, `skipped_incomplete\s+1`, out)
}

func TestRunOnce_RouteFailureStillCompletes(t *testing.T) {
	srv := directionsServer(t, `{"status": "ZERO_RESULTS", "routes": []}`)
	flags := isolatedEnv(t, `[
		{"id": "ada", "email": "ada@example.com", "home": "Atlantis", "work": "2 Work Ave", "departureTime": "08:30"}
	]`, srv.URL)

	code, out, errOut := run(append(flags, "run-once", "--at", "08:30")...)

	assert.Equal(t, exitSuccess, code, errOut)
	assert.Regexp(t, `route_failed\s+1`, out)
	assert.Contains(t, out, "failed ada (route_failed)")
}

func TestRunOnce_StrictExitsNonZeroOnFailure(t *testing.T) {
	srv := directionsServer(t, `{"status": "ZERO_RESULTS", "routes": []}`)
	flags := isolatedEnv(t, `[
		{"id": "ada", "email": "ada@example.com", "home": "Atlantis", "work": "2 Work Ave", "departureTime": "08:30"}
	]`, srv.URL)

	code, out, errOut := run(append(flags, "run-once", "--at", "08:30", "--strict")...)

	assert.Equal(t, exitRuntimeError, code)
	assert.Regexp(t, `route_failed\s+1`, out)
	assert.True(t, strings.Contains(errOut, "1 of 1 users"), errOut)
}

func TestRunOnce_BadAt(t *testing.T) {
	flags := isolatedEnv(t, "[]", "http://127.0.0.1:1")

	code, _, errOut := run(append(flags, "run-once", "--at", "8am")...)

	assert.Equal(t, exitInvalidConfig, code)
	assert.Contains(t, errOut, "HH:MM")
}

func TestRunOnce_MissingProfilesFile(t *testing.T) {
	flags := isolatedEnv(t, "[]", "http://127.0.0.1:1")
	t.Setenv("PROFILES_FILE", filepath.Join(t.TempDir(), "nope.json"))

	code, out, errOut := run(append(flags, "run-once")...)
	assert.Equal(t, exitSuccess, code, errOut)
	assert.Contains(t, out, "profiles could not be fetched")

	code, _, errOut = run(append(flags, "run-once", "--strict")...)
	assert.Equal(t, exitRuntimeError, code)
	assert.Contains(t, errOut, "fetch")
}
