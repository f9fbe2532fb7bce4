// Package email delivers templated messages over SMTP.
package email

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Template names
const (
	TemplateWelcome             = "welcome"
	TemplateAccountVerified     = "account-verified"
	TemplateAccountRejected     = "account-rejected"
	TemplateDepositApproved     = "deposit-approved"
	TemplateWithdrawalApproved  = "withdrawal-approved"
	TemplateTransactionRejected = "transaction-rejected"
	TemplateFundsAdded          = "funds-added"
	TemplateAdminMessage        = "admin-message"
)

// Config holds SMTP relay settings
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	Platform      string
	TemplatesFile string // optional YAML override of the embedded templates
}

type templateFile struct {
	Templates map[string]struct {
		Subject string `yaml:"subject"`
		Body    string `yaml:"body"`
	} `yaml:"templates"`
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender renders templates and relays them through SMTP
type Sender struct {
	cfg       Config
	enabled   bool
	templates map[string]compiled
	send      sendFunc
}

// NewSender loads templates and prepares the relay. Delivery is disabled when no host is set.
func NewSender(cfg Config) (*Sender, error) {
	raw := defaultTemplates
	if cfg.TemplatesFile != "" {
		data, err := os.ReadFile(cfg.TemplatesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read email templates: %w", err)
		}
		raw = data
	}

	templates, err := parseTemplates(raw)
	if err != nil {
		return nil, err
	}

	if cfg.Platform == "" {
		cfg.Platform = "BrokerDesk"
	}

	s := &Sender{
		cfg:       cfg,
		enabled:   cfg.Host != "",
		templates: templates,
		send:      smtp.SendMail,
	}
	if !s.enabled {
		zap.L().Info("SMTP host not configured, email delivery disabled")
	}
	return s, nil
}

func parseTemplates(raw []byte) (map[string]compiled, error) {
	var file templateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	out := make(map[string]compiled, len(file.Templates))
	for name, t := range file.Templates {
		subject, err := template.New(name + ".subject").Parse(t.Subject)
		if err != nil {
			return nil, fmt.Errorf("template %s subject: %w", name, err)
		}
		body, err := template.New(name + ".body").Parse(t.Body)
		if err != nil {
			return nil, fmt.Errorf("template %s body: %w", name, err)
		}
		out[name] = compiled{subject: subject, body: body}
	}
	return out, nil
}

// Enabled reports whether messages are actually relayed
func (s *Sender) Enabled() bool {
	return s.enabled
}

// Render produces the subject and body of a template
func (s *Sender) Render(name string, data map[string]any) (string, string, error) {
	t, ok := s.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}

	vars := map[string]any{"Platform": s.cfg.Platform}
	for k, v := range data {
		vars[k] = v
	}

	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, vars); err != nil {
		return "", "", fmt.Errorf("failed to render %s subject: %w", name, err)
	}
	if err := t.body.Execute(&body, vars); err != nil {
		return "", "", fmt.Errorf("failed to render %s body: %w", name, err)
	}
	return strings.TrimSpace(subject.String()), body.String(), nil
}

// Send renders a template and relays it to one recipient
func (s *Sender) Send(ctx context.Context, to, name string, data map[string]any) error {
	if !s.enabled {
		return nil // Silently skip if SMTP is not configured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := s.Render(name, data)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(addr, auth, s.cfg.From, []string{to}, buildMessage(s.cfg.From, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send email %s to %s: %w", name, to, err)
	}

	zap.L().Debug("Email sent", zap.String("template", name), zap.String("to", to))
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
