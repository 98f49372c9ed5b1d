package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medivault/internal/domain/otp"
)

type captured struct {
	auth string
	body mailSend
}

func newFakeSendGrid(t *testing.T, status int, got *captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != sendPath || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		got.auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.WriteHeader(status)
	}))
}

func TestSender_Send_AccessEmail(t *testing.T) {
	var got captured
	srv := newFakeSendGrid(t, http.StatusAccepted, &got)
	defer srv.Close()

	s, err := New(Config{APIKey: "SG.key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	err = s.Send(context.Background(), otp.Message{
		Purpose:       otp.PurposeDocumentAccess,
		To:            otp.Recipient{Name: "Ana <script>", Email: "ana@example.com"},
		RequesterName: "House",
		Code:          "123456",
		ExpiresAt:     now.Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if got.auth != "Bearer SG.key" {
		t.Fatalf("unexpected auth header %q", got.auth)
	}
	if got.body.From.Email != "noreply@medivault.com" || got.body.From.Name != "MediVault" {
		t.Fatalf("unexpected from: %+v", got.body.From)
	}
	p := got.body.Personalizations[0]
	if p.Subject != accessSubject || p.To[0].Email != "ana@example.com" {
		t.Fatalf("unexpected personalization: %+v", p)
	}

	html := got.body.Content[0].Value
	for _, want := range []string{"123456", "Dr. House", "10 minutes", "Ana &lt;script&gt;"} {
		if !strings.Contains(html, want) {
			t.Fatalf("email body missing %q", want)
		}
	}
}

func TestSender_Send_DeletionSubject(t *testing.T) {
	var got captured
	srv := newFakeSendGrid(t, http.StatusAccepted, &got)
	defer srv.Close()

	s, _ := New(Config{APIKey: "k", BaseURL: srv.URL, FromEmail: "ops@h.org", FromName: "Hospital"})
	if err := s.Send(context.Background(), otp.Message{
		Purpose:       otp.PurposeDocumentDeletion,
		To:            otp.Recipient{Email: "p@example.com"},
		RequesterName: "Admin",
		Code:          "654321",
		ExpiresAt:     time.Now().Add(10 * time.Minute),
	}); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if got.body.Personalizations[0].Subject != deletionSubject || got.body.From.Email != "ops@h.org" {
		t.Fatalf("unexpected request: %+v", got.body)
	}
	if !strings.Contains(got.body.Content[0].Value, "Document Deletion Request") {
		t.Fatalf("expected deletion wording")
	}
}

func TestSender_Send_Failures(t *testing.T) {
	var got captured
	srv := newFakeSendGrid(t, http.StatusBadRequest, &got)
	defer srv.Close()

	s, _ := New(Config{APIKey: "k", BaseURL: srv.URL})
	if err := s.Send(context.Background(), otp.Message{To: otp.Recipient{Email: "p@example.com"}}); err == nil {
		t.Fatalf("expected error on provider 400")
	}
	if err := s.Send(context.Background(), otp.Message{To: otp.Recipient{Phone: "+1555"}}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}
