// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dispatch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Email is one message to deliver.
type Email struct {
	To      []string
	Subject string
	Body    string
	HTML    bool
}

// Mailer delivers email.
type Mailer interface {
	// Send delivers one message with every address visible in To.
	Send(ctx context.Context, email Email) error

	// SendBatch delivers one message to every address in a single
	// transaction without disclosing recipients to each other.
	SendBatch(ctx context.Context, email Email) error
}

// DefaultSMTPTimeout bounds one SMTP transaction when [SMTPConfig.Timeout] is unset.
const DefaultSMTPTimeout = 30 * time.Second

// SMTPConfig addresses the relay used by [SMTPMailer].
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// Timeout bounds a whole transaction from dial to QUIT.
	Timeout time.Duration
}

// SMTPMailer is a [Mailer] over SMTP. STARTTLS is used when offered, and
// PLAIN auth when a username is configured.
type SMTPMailer struct {
	config SMTPConfig
	now    func() time.Time
}

// NewSMTPMailer creates an [SMTPMailer].
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	if config.Timeout <= 0 {
		config.Timeout = DefaultSMTPTimeout
	}
	return &SMTPMailer{config: config, now: time.Now}
}

// Send implements [Mailer].
func (mailer *SMTPMailer) Send(ctx context.Context, email Email) error {
	return mailer.deliver(ctx, email, strings.Join(email.To, ", "))
}

// SendBatch implements [Mailer].
func (mailer *SMTPMailer) SendBatch(ctx context.Context, email Email) error {
	return mailer.deliver(ctx, email, "undisclosed-recipients:;")
}

func (mailer *SMTPMailer) deliver(ctx context.Context, email Email, toHeader string) error {
	if len(email.To) == 0 {
		return errors.New("smtp: no recipients")
	}

	ctx, cancel := context.WithTimeout(ctx, mailer.config.Timeout)
	defer cancel()

	host := mailer.config.Host
	address := net.JoinHostPort(host, strconv.Itoa(mailer.config.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("smtp: dial %s: %w", address, err)
	}

	// net/smtp ignores ctx, so the deadline is what stops a silent relay.
	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp: handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("smtp: starttls: %w", err)
		}
	}
	if mailer.config.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", mailer.config.Username, mailer.config.Password, host)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}

	if err := client.Mail(mailer.config.From); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	for _, recipient := range email.To {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("smtp: rcpt %s: %w", recipient, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := writer.Write(mailer.compose(email, toHeader)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("smtp: write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp: end data: %w", err)
	}

	return client.Quit()
}

// compose renders headers and body with CRLF line endings.
func (mailer *SMTPMailer) compose(email Email, toHeader string) []byte {
	contentType := "text/plain; charset=UTF-8"
	if email.HTML {
		contentType = "text/html; charset=UTF-8"
	}

	var message bytes.Buffer
	writeHeader := func(name, value string) {
		message.WriteString(name + ": " + value + "\r\n")
	}
	writeHeader("From", mailer.config.From)
	writeHeader("To", toHeader)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", email.Subject))
	writeHeader("Date", mailer.now().UTC().Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", contentType)
	message.WriteString("\r\n")

	body := strings.ReplaceAll(email.Body, "\r\n", "\n")
	message.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return message.Bytes()
}
