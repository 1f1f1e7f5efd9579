package directions

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticMapURL(t *testing.T) {
	raw := StaticMapURL("1 Home St, Seattle", "2 Work Ave", "k")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "maps.googleapis.com", u.Host)
	assert.Equal(t, "/maps/api/staticmap", u.Path)

	q := u.Query()
	assert.Equal(t, "1 Home St, Seattle", q.Get("center"))
	assert.Equal(t, "10", q.Get("zoom"))
	assert.Equal(t, "800x600", q.Get("size"))
	assert.Equal(t, "roadmap", q.Get("maptype"))
	assert.Equal(t, []string{
		"color:blue|label:S|1 Home St, Seattle",
		"color:red|label:C|2 Work Ave",
	}, q["markers"])
	assert.Equal(t, "k", q.Get("key"))

	assert.Equal(t, raw, StaticMapURL("1 Home St, Seattle", "2 Work Ave", "k"))
}

func TestStaticMapURL_NoKey(t *testing.T) {
	u, err := url.Parse(StaticMapURL("a", "b", ""))
	require.NoError(t, err)
	_, ok := u.Query()["key"]
	assert.False(t, ok)
}

func TestDirectionsURL(t *testing.T) {
	raw := DirectionsURL("1 Home St & Co", "2 Work Ave #5")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.google.com", u.Host)
	assert.Equal(t, "/maps/dir/", u.Path)

	q := u.Query()
	assert.Equal(t, "1", q.Get("api"))
	assert.Equal(t, "1 Home St & Co", q.Get("origin"))
	assert.Equal(t, "2 Work Ave #5", q.Get("destination"))
	assert.NotContains(t, raw, " ")
}
