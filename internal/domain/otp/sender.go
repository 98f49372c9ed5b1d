package otp

import "context"

// Sender es el Delivery Service externo. Se llama sincrónicamente desde Issue.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
