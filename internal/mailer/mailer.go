// Package mailer delivers one-time codes over SMTP.
package mailer

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Sender is the delivery contract the verification flows consume. Send
// reports false for ordinary delivery failures instead of returning an
// error; callers treat false as "delivery failed".
type Sender interface {
	Send(email, code string) bool
}

// SMTPSender sends verification codes through a STARTTLS SMTP relay.
type SMTPSender struct {
	host     string
	port     string
	user     string
	password string
	from     string
	fromName string
}

func NewSMTPSender(host, port, user, password, from, fromName string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		fromName: fromName,
	}
}

func (s *SMTPSender) Send(email, code string) bool {
	fromHeader := fmt.Sprintf("%s <%s>", s.fromName, s.from)

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", email),
		"Subject: Your verification code",
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		fmt.Sprintf("Your one-time verification code is %s.", code),
		"The code is valid for a short time only. If you did not request it, ignore this message.",
	}, "\r\n")

	log.Printf("[MAIL] smtp sending to=%s via=%s:%s", email, s.host, s.port)

	if err := s.sendWithTimeout(email, []byte(msg)); err != nil {
		log.Printf("[MAIL] [ERROR] delivery failed to=%s: %v", email, err)
		return false
	}

	log.Printf("[MAIL] sent to=%s", email)
	return true
}

func (s *SMTPSender) sendWithTimeout(to string, msg []byte) error {
	addr := net.JoinHostPort(s.host, s.port)

	conn, err := net.DialTimeout("tcp", addr, 8*time.Second)
	if err != nil {
		return err
	}
	// deadline covers the whole exchange, not just the dial
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer func() { _ = c.Quit() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return err
		}
	}

	if s.user != "" {
		auth := smtp.PlainAuth("", s.user, s.password, s.host)
		if err := c.Auth(auth); err != nil {
			return err
		}
	}

	if err := c.Mail(s.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
