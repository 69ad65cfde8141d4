// Package email formats visit notifications and sends them over SMTP.
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evcraddock/visit-scheduler/internal/config"
	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/slot"
)

// FormatProposal builds the body sent to a tenant when visit slots are
// proposed. Slots are listed by date.
func FormatProposal(p *property.Property, groups []slot.DateGroup, message, link string) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Hello,\n\nThe owner of %s proposes the following visit times:\n\n", p.Label())

	for _, g := range groups {
		fmt.Fprintf(&buf, "%s\n", formatDate(g.Date))
		for _, s := range g.Slots {
			fmt.Fprintf(&buf, "  - %s\n", formatSlot(s))
		}
		fmt.Fprintln(&buf)
	}

	if msg := strings.TrimSpace(message); msg != "" {
		fmt.Fprintf(&buf, "Message from the owner:\n%s\n\n", msg)
	}
	if link != "" {
		fmt.Fprintf(&buf, "Pick one here: %s\n\n", link)
	}

	fmt.Fprintf(&buf, "Thanks!\n")

	return buf.String()
}

// FormatScheduled builds the confirmation sent once a tenant picks a slot.
func FormatScheduled(p *property.Property, s *slot.VisitSlot) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Hello,\n\nA visit of %s is booked:\n\n", p.Label())
	fmt.Fprintf(&buf, "  %s, %s\n", formatDate(s.Date), formatSlot(s))
	if p.City != "" {
		fmt.Fprintf(&buf, "  %s, %s\n", p.Address, p.City)
	} else {
		fmt.Fprintf(&buf, "  %s\n", p.Address)
	}
	if s.Notes != "" {
		fmt.Fprintf(&buf, "  Note: %s\n", s.Notes)
	}
	fmt.Fprintf(&buf, "\nThanks!\n")

	return buf.String()
}

// FormatStatus builds a short notice for other status changes.
func FormatStatus(p *property.Property, status string) string {
	return fmt.Sprintf("Hello,\n\nYour application for %s is now: %s.\n\nThanks!\n", p.Label(), status)
}

func formatSlot(s *slot.VisitSlot) string {
	kind := "individual visit"
	if s.IsGroupVisit {
		kind = fmt.Sprintf("group visit, %d places left", s.Remaining())
	}
	return fmt.Sprintf("%s to %s (%s)", s.StartTime, s.EndTime, kind)
}

func formatDate(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.Format("Monday 2 January 2006")
}

// Notifier sends notification emails. When SMTP is not configured the
// message is logged instead.
type Notifier struct {
	cfg  config.SMTPConfig
	log  *zap.Logger
	send func(cfg config.SMTPConfig, to []string, subject, body string) error
}

// NewNotifier creates a notifier.
func NewNotifier(cfg config.SMTPConfig, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{cfg: cfg, log: log, send: Send}
}

// Notify emails one recipient.
func (n *Notifier) Notify(to, subject, body string) error {
	if to == "" {
		return nil
	}
	if !n.cfg.IsConfigured() {
		n.log.Info("email not sent, SMTP not configured",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return nil
	}
	if err := n.send(n.cfg, []string{to}, subject, body); err != nil {
		return err
	}
	n.log.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// Send sends an email via SMTP.
// Supports both port 465 (implicit TLS) and port 587 (STARTTLS).
func Send(cfg config.SMTPConfig, to []string, subject, body string) error {
	if !cfg.IsConfigured() {
		return fmt.Errorf("SMTP not configured")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		cfg.From,
		strings.Join(to, ", "),
		subject,
		body,
	)

	addr := cfg.Host + ":" + cfg.Port

	if cfg.Port == "465" {
		return sendImplicitTLS(cfg, addr, to, msg)
	}
	return sendSTARTTLS(cfg, addr, to, msg)
}

// sendImplicitTLS connects over TLS directly (port 465/SMTPS).
func sendImplicitTLS(cfg config.SMTPConfig, addr string, to []string, msg string) (err error) {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() {
		if quitErr := c.Quit(); quitErr != nil && err == nil {
			err = fmt.Errorf("quit: %w", quitErr)
		}
	}()

	if cfg.User != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return nil
}

// sendSTARTTLS connects plain then upgrades to TLS (port 587).
func sendSTARTTLS(cfg config.SMTPConfig, addr string, to []string, msg string) error {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, cfg.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
