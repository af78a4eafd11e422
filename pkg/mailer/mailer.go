package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Config holds SMTP settings.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Mailer sends HTML mail over SMTP.
type Mailer struct {
	cfg    Config
	tmpl   *template.Template
	logger *zap.Logger
}

// New creates a mailer, parsing the embedded templates once.
func New(cfg Config, logger *zap.Logger) (*Mailer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Mailer{cfg: cfg, tmpl: tmpl, logger: logger}, nil
}

// Send delivers an HTML email to a single recipient.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	from := m.cfg.FromAddress
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress)
	}
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n"
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n%s\r\n%s", from, to, subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{to}, msg)
}

// InviteData fills the invite template.
type InviteData struct {
	ScopeName string
	Role      string
	AcceptURL string
}

// SendInvite renders and sends the invitation email.
func (m *Mailer) SendInvite(to string, data InviteData) error {
	var body bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&body, "invite.html", data); err != nil {
		return fmt.Errorf("render invite template: %w", err)
	}
	subject := fmt.Sprintf("You're invited to join %s", data.ScopeName)
	return m.Send(to, subject, body.String())
}
