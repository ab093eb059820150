package mailer

// Message is one outbound email.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
}

// Sender delivers notification emails. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(msg Message) error
}
