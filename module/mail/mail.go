package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"chatwave/global/config"

	"github.com/pkg/errors"
)

// Sender delivers one outbound mail.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends over authenticated SMTP with STARTTLS (what port 587
// providers expect).
type SMTPSender struct {
	cfg config.SMTP
}

func NewSMTPSender(cfg config.SMTP) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	from := s.cfg.User
	msg := buildMessage(s.cfg.From, from, to, subject, body)

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	addr := s.cfg.Host + ":" + s.cfg.Port
	if err := smtp.SendMail(addr, auth, from, []string{to}, msg); err != nil {
		return errors.Wrapf(err, "send mail to %s", to)
	}
	return nil
}

func buildMessage(fromName, fromAddr, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, fromAddr)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
