package domain

// Measure is a provider quantity with both its numeric value and display text.
// Value is seconds for durations and meters for distances.
type Measure struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

// RouteSummary is the normalized result of one directions lookup.
type RouteSummary struct {
	Summary     string  `json:"summary"`
	Duration    Measure `json:"duration"`
	Distance    Measure `json:"distance"`
	MapImageURL string  `json:"mapImageUrl"`
}
