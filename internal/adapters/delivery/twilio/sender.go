package twilio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medivault/internal/domain/otp"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrNoRecipient = errors.New("recipient has no phone number")

type Config struct {
	AccountSID string
	AuthToken  string
	From       string
}

// messageAPI es la parte de twilio.RestClient.Api que usamos.
type messageAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Sender entrega el OTP por SMS.
type Sender struct {
	api  messageAPI
	from string
	now  func() time.Time
}

func New(cfg Config) (*Sender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, errors.New("twilio credentials and from number required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Sender{api: client.Api, from: cfg.From, now: time.Now}, nil
}

// El cliente de twilio no recibe ctx; el timeout lo pone su http.Client.
func (s *Sender) Send(ctx context.Context, msg otp.Message) error {
	to := strings.TrimSpace(msg.To.Phone)
	if to == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(to)
	params.SetBody(s.body(msg))

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	return nil
}

func (s *Sender) body(msg otp.Message) string {
	minutes := int(msg.ExpiresAt.Sub(s.now()).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if msg.Purpose == otp.PurposeDocumentDeletion {
		return fmt.Sprintf("MediVault: %s needs your confirmation to delete a document. Code: %s (expires in %d min). Share it only if you requested the deletion.",
			msg.RequesterName, msg.Code, minutes)
	}
	return fmt.Sprintf("MediVault: Dr. %s requested access to your medical records. Code: %s (expires in %d min). Share it only if you authorize this access.",
		msg.RequesterName, msg.Code, minutes)
}
