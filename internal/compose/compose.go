// Package compose renders the commute email for one due user.
//
// Compose is a total, pure function of its inputs: it reads no clock, performs
// no I/O and always yields the same payload for the same profile and route.
package compose

import (
	"strings"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/directions"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

const DefaultSubject = "Your Daily Commute Information"

type Composer struct {
	from    string
	subject string
}

func New(from, subject string) *Composer {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Composer{from: from, subject: subject}
}

func (c *Composer) Compose(p domain.Profile, route domain.RouteSummary) domain.Notification {
	var b strings.Builder
	// strings.Builder never returns a write error.
	_ = body(p, route).Render(&b)

	return domain.Notification{
		To:      p.Email,
		From:    c.from,
		Subject: c.subject,
		HTML:    b.String(),
	}
}

func body(p domain.Profile, route domain.RouteSummary) g.Node {
	return h.Div(
		g.If(p.DisplayName != "", h.P(g.Textf("Hi %s,", p.DisplayName))),
		h.P(g.Text("This is your daily commute information:")),
		detail("Work Address", p.Work),
		detail("Best route", route.Summary),
		detail("Time Estimate", route.Duration.Text),
		h.A(
			h.Href(directions.DirectionsURL(p.Home, p.Work)),
			h.Target("_blank"),
			h.Img(
				h.Src(route.MapImageURL),
				h.Alt("Map Image"),
				h.Width("800"),
				h.Height("600"),
			),
		),
		h.P(g.Text("Thanks from your commuting team!")),
	)
}

func detail(label, value string) g.Node {
	return h.P(g.Raw("&emsp;"), g.Text(label+": "+value))
}
