package devlog

import (
	"context"

	"medivault/internal/domain/otp"
	"medivault/internal/platform/logger"
)

// Sender escribe el código en el log. Solo para ENV=development.
type Sender struct {
	log logger.Logger
}

func New(log logger.Logger) *Sender {
	if log == nil {
		log = logger.Nop()
	}
	return &Sender{log: log.With(map[string]any{"component": "devlog_sender"})}
}

func (s *Sender) Send(ctx context.Context, msg otp.Message) error {
	s.log.Warn("otp delivered to log (development only)", map[string]any{
		"purpose":    string(msg.Purpose),
		"to_email":   msg.To.Email,
		"to_phone":   msg.To.Phone,
		"requester":  msg.RequesterName,
		"code":       msg.Code,
		"expires_at": msg.ExpiresAt,
	})
	return nil
}
