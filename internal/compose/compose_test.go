package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

func testRoute() domain.RouteSummary {
	return domain.RouteSummary{
		Summary:     "I-5 N",
		Duration:    domain.Measure{Value: 1440, Text: "24 mins"},
		Distance:    domain.Measure{Value: 19795, Text: "12.3 mi"},
		MapImageURL: "https://maps.example/static.png",
	}
}

func testProfile() domain.Profile {
	return domain.Profile{
		Email:         "ada@example.com",
		DisplayName:   "Ada",
		Home:          "1 Home St",
		Work:          "2 Work Ave",
		DepartureTime: "08:30",
	}
}

func TestCompose_Personalized(t *testing.T) {
	n := New("commute@example.com", "").Compose(testProfile(), testRoute())

	assert.Equal(t, "ada@example.com", n.To)
	assert.Equal(t, "commute@example.com", n.From)
	assert.Equal(t, DefaultSubject, n.Subject)
	assert.Contains(t, n.HTML, "<p>Hi Ada,</p>")
	assert.Contains(t, n.HTML, "Work Address: 2 Work Ave")
	assert.Contains(t, n.HTML, "Best route: I-5 N")
	assert.Contains(t, n.HTML, "Time Estimate: 24 mins")
	assert.Contains(t, n.HTML, `src="https://maps.example/static.png"`)
	assert.Contains(t, n.HTML, `href="https://www.google.com/maps/dir/?api=1&amp;destination=2+Work+Ave&amp;origin=1+Home+St"`)
	assert.Contains(t, n.HTML, `target="_blank"`)
}

func TestCompose_AnonymousSalutation(t *testing.T) {
	p := testProfile()
	p.DisplayName = ""

	n := New("commute@example.com", "").Compose(p, testRoute())

	assert.NotContains(t, n.HTML, "Hi ")
	assert.NotContains(t, n.HTML, "Hi ,")
	assert.Contains(t, n.HTML, "<p>This is your daily commute information:</p>")
}

func TestCompose_Deterministic(t *testing.T) {
	c := New("commute@example.com", "Heads up")
	first := c.Compose(testProfile(), testRoute())
	second := c.Compose(testProfile(), testRoute())

	assert.Equal(t, first, second)
	assert.Equal(t, "Heads up", first.Subject)
}

func TestCompose_EscapesUserInput(t *testing.T) {
	p := testProfile()
	p.DisplayName = "<script>x</script>"
	p.Work = "Smith & Sons"

	n := New("commute@example.com", "").Compose(p, testRoute())

	assert.NotContains(t, n.HTML, "<script>")
	assert.Contains(t, n.HTML, "&lt;script&gt;")
	assert.Contains(t, n.HTML, "Smith &amp; Sons")
}
