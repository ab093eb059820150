package mailer

import "log"

// Console logs mail instead of sending it; the dev fallback when no
// SendGrid key is configured.
type Console struct{}

// Send logs the message.
func (Console) Send(msg Message) error {
	log.Printf("mail to %s <%s>: %s\n%s", msg.ToName, msg.ToEmail, msg.Subject, msg.Text)
	return nil
}
