package directions

import "net/url"

const (
	staticMapBase  = "https://maps.googleapis.com/maps/api/staticmap"
	directionsBase = "https://www.google.com/maps/dir/"
)

// StaticMapURL builds an 800x600 roadmap centered on origin with a blue "S"
// marker at origin and a red "C" marker at destination. It makes no network call.
func StaticMapURL(origin, destination, apiKey string) string {
	q := url.Values{}
	q.Set("center", origin)
	q.Set("zoom", "10")
	q.Set("size", "800x600")
	q.Set("maptype", "roadmap")
	q.Add("markers", "color:blue|label:S|"+origin)
	q.Add("markers", "color:red|label:C|"+destination)
	if apiKey != "" {
		q.Set("key", apiKey)
	}
	return staticMapBase + "?" + q.Encode()
}

// DirectionsURL is the user-facing interactive directions link.
func DirectionsURL(origin, destination string) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("origin", origin)
	q.Set("destination", destination)
	return directionsBase + "?" + q.Encode()
}
