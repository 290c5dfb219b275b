package mailer

// Recipient identifies one addressee.
type Recipient struct {
	Name    string
	Address string
}

// Message is a plain templated-by-caller email payload.
type Message struct {
	To       []Recipient
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a single message. Implementations must be safe for
// concurrent use; delivery failures are returned to the caller, who decides
// whether they matter.
type Sender interface {
	Send(msg Message) error
}
