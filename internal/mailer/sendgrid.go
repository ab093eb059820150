package mailer

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sendgrid delivers mail through the SendGrid API.
type Sendgrid struct {
	key  string
	from *sgmail.Email
}

// NewSendgrid creates a SendGrid sender.
func NewSendgrid(key, fromName, fromEmail string) *Sendgrid {
	return &Sendgrid{key: key, from: sgmail.NewEmail(fromName, fromEmail)}
}

// Send delivers one message.
func (s *Sendgrid) Send(msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToEmail)
	m := sgmail.NewSingleEmail(s.from, msg.Subject, to, msg.Text, "")
	resp, err := sendgrid.NewSendClient(s.key).Send(m)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
