package sendgrid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"medivault/internal/domain/otp"
	"medivault/internal/platform/httpclient"
)

const (
	DefaultBaseURL = "https://api.sendgrid.com"
	sendPath       = "/v3/mail/send"

	accessSubject   = "Doctor Access Request - OTP Verification"
	deletionSubject = "Document Deletion Request - OTP Verification"
)

var ErrNoRecipient = errors.New("recipient has no email address")

type Config struct {
	APIKey    string
	BaseURL   string
	FromEmail string
	FromName  string
	Timeout   time.Duration

	Transport http.RoundTripper
}

// Sender entrega el OTP por email vía la API v3 de SendGrid.
type Sender struct {
	client *httpclient.Client
	from   address
	now    func() time.Time
}

func New(cfg Config) (*Sender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key required")
	}
	base := cfg.BaseURL
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}
	from := address{Email: cfg.FromEmail, Name: cfg.FromName}
	if from.Email == "" {
		from.Email = "noreply@medivault.com"
	}
	if from.Name == "" {
		from.Name = "MediVault"
	}

	c, err := httpclient.New(httpclient.Config{
		BaseURL:   base,
		Timeout:   cfg.Timeout,
		Headers:   map[string]string{"Authorization": "Bearer " + cfg.APIKey},
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, err
	}
	return &Sender{client: c, from: from, now: time.Now}, nil
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To      []address `json:"to"`
	Subject string    `json:"subject"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSend struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Content          []content         `json:"content"`
}

func (s *Sender) Send(ctx context.Context, msg otp.Message) error {
	to := strings.TrimSpace(msg.To.Email)
	if to == "" {
		return ErrNoRecipient
	}

	body, err := s.render(msg)
	if err != nil {
		return err
	}

	subject := accessSubject
	if msg.Purpose == otp.PurposeDocumentDeletion {
		subject = deletionSubject
	}

	req := mailSend{
		Personalizations: []personalization{{
			To:      []address{{Email: to, Name: msg.To.Name}},
			Subject: subject,
		}},
		From:    s.from,
		Content: []content{{Type: "text/html", Value: body}},
	}

	if err := s.client.DoJSON(ctx, http.MethodPost, sendPath, nil, req, nil); err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	return nil
}

type emailData struct {
	PatientName   string
	RequesterName string
	Code          string
	Minutes       int
	Deletion      bool
}

func (s *Sender) render(msg otp.Message) (string, error) {
	minutes := int(msg.ExpiresAt.Sub(s.now()).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	name := msg.To.Name
	if name == "" {
		name = msg.To.Email
	}

	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, emailData{
		PatientName:   name,
		RequesterName: msg.RequesterName,
		Code:          msg.Code,
		Minutes:       minutes,
		Deletion:      msg.Purpose == otp.PurposeDocumentDeletion,
	})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

var emailTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: #667eea; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
    <h1 style="color: white; margin: 0;">MediVault</h1>
    <p style="color: white; margin: 10px 0 0 0;">Secure Medical Records Access</p>
  </div>
  <div style="padding: 30px; border: 1px solid #e0e0e0; border-top: none;">
    {{if .Deletion}}
    <h2 style="color: #667eea; margin-top: 0;">Document Deletion Request</h2>
    <p>Hello <strong>{{.PatientName}}</strong>,</p>
    <p><strong>{{.RequesterName}}</strong> is processing your request to delete a document from your medical records. To confirm the deletion, please share the following One-Time Password (OTP) with the hospital administrator:</p>
    {{else}}
    <h2 style="color: #667eea; margin-top: 0;">Doctor Access Request</h2>
    <p>Hello <strong>{{.PatientName}}</strong>,</p>
    <p><strong>Dr. {{.RequesterName}}</strong> has requested access to your medical records. To authorize this access, please share the following One-Time Password (OTP) with the doctor:</p>
    {{end}}
    <div style="background-color: #f8f9fa; border-left: 4px solid #667eea; padding: 20px; margin: 25px 0; text-align: center;">
      <p style="margin: 0 0 10px 0; color: #666; font-size: 14px;">Your OTP Code</p>
      <p style="font-size: 32px; font-weight: bold; color: #667eea; letter-spacing: 8px; margin: 0; font-family: 'Courier New', monospace;">{{.Code}}</p>
    </div>
    <p style="color: #856404; font-size: 14px;"><strong>Important:</strong> This OTP will expire in {{.Minutes}} minutes. Only share this code if you authorize this request.</p>
    <p style="color: #666; font-size: 13px;">If you did not expect this request or have concerns, please contact our support team immediately.</p>
  </div>
  <div style="background-color: #f8f9fa; padding: 20px; text-align: center;">
    <p style="color: #666; font-size: 12px; margin: 0;">This is an automated message from MediVault. Please do not reply to this email.</p>
  </div>
</body>
</html>
`))
