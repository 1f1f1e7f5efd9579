package domain

// Notification is the email payload for one due user.
type Notification struct {
	To      string
	From    string
	Subject string
	HTML    string
}
