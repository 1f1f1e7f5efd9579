package file

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestStore_ListProfiles_Array(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/profiles.json", `[
		{"id": "u1", "email": "ada@example.com", "displayName": "Ada", "home": "1 Home St", "work": "2 Work Ave", "departureTime": "08:30"},
		{"email": "bob@example.com", "home": "3 Home St"}
	]`)

	got, err := New(fs, "/data/profiles.json").ListProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Profile{
		ID: "u1", Email: "ada@example.com", DisplayName: "Ada",
		Home: "1 Home St", Work: "2 Work Ave", DepartureTime: "08:30",
	}, got[0])
	assert.False(t, got[1].Eligible())
}

func TestStore_ListProfiles_KeyedByID(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/profiles.json", `{
		"zed": {"email": "z@example.com", "home": "h", "work": "w", "departureTime": "09:00"},
		"amy": {"email": "a@example.com", "home": "h", "work": "w", "departureTime": "08:15"}
	}`)

	got, err := New(fs, "/profiles.json").ListProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "amy", got[0].ID)
	assert.Equal(t, "zed", got[1].ID)
}

func TestStore_ListProfiles_Empty(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/profiles.json", "  \n")

	got, err := New(fs, "/profiles.json").ListProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_ListProfiles_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/bad.json", `{"u1": [`)

	_, err := New(fs, "/missing.json").ListProfiles(context.Background())
	assert.Error(t, err)

	_, err = New(fs, "/bad.json").ListProfiles(context.Background())
	assert.Error(t, err)
}

func TestStore_ListProfiles_SkipsMalformedRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"array", `[
			{"id": "ok", "email": "ok@example.com", "home": "h", "work": "w", "departureTime": "08:30"},
			{"id": "ts", "email": "ts@example.com", "home": "h", "work": "w", "departureTime": {"_seconds": 1704126600, "_nanoseconds": 0}},
			{"id": "num", "email": "num@example.com", "home": 42, "work": "w", "departureTime": "08:30"}
		]`},
		{"keyed", `{
			"ok": {"email": "ok@example.com", "home": "h", "work": "w", "departureTime": "08:30"},
			"ts": {"email": "ts@example.com", "home": "h", "work": "w", "departureTime": {"_seconds": 1704126600}},
			"num": {"email": "num@example.com", "home": 42, "work": "w", "departureTime": "08:30"}
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFile(t, fs, "/profiles.json", tt.content)

			got, err := New(fs, "/profiles.json").ListProfiles(context.Background())
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "ok", got[0].ID)
			assert.True(t, got[0].Eligible())
		})
	}
}

func TestStore_PingContext(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/profiles.json", "[]")

	assert.NoError(t, New(fs, "/profiles.json").PingContext(context.Background()))
	assert.Error(t, New(fs, "/nope.json").PingContext(context.Background()))
}
