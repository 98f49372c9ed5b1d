package deletionrequests

import (
	"fmt"
	"time"
)

// Status del pedido de borrado.
// @Enum pending, approved, rejected
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Request struct {
	ID string

	DocumentID string
	PatientID  string // quien pide (dueño del documento)
	Reason     string

	Status      Status
	RequestedAt time.Time
	ProcessedAt *time.Time
	ProcessedBy string
}

// transition aplica pending -> approved|rejected. approved y rejected son terminales.
func (r Request) transition(to Status, by string, at time.Time) (Request, error) {
	switch r.Status {
	case StatusPending:
		switch to {
		case StatusApproved, StatusRejected:
		case StatusPending:
			return Request{}, fmt.Errorf("%w: already pending", ErrBadState)
		default:
			return Request{}, fmt.Errorf("%w: unknown status %q", ErrBadState, to)
		}
	case StatusApproved, StatusRejected:
		return Request{}, fmt.Errorf("%w: request already %s", ErrBadState, r.Status)
	default:
		return Request{}, fmt.Errorf("%w: unknown status %q", ErrBadState, r.Status)
	}

	r.Status = to
	r.ProcessedAt = &at
	r.ProcessedBy = by
	return r, nil
}
