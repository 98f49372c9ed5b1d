package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"medivault/internal/domain/accesspermissions"
	"medivault/internal/domain/deletionrequests"
	"medivault/internal/domain/otp"
	"medivault/internal/domain/profiles"
)

var t0 = time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)

func TestOTPRepo_ConsumeIsCompareAndSet(t *testing.T) {
	repo := NewOTPRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, otp.Verification{ID: "v1", SubjectID: "p1", Code: "123456", ExpiresAt: t0.Add(time.Minute)}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Consume(ctx, "v1", t0); err == nil {
				wins.Add(1)
			} else if !errors.Is(err, otp.ErrAlreadyConsumed) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one consume to win, got %d", wins.Load())
	}
	if err := repo.Consume(ctx, "missing", t0); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOTPRepo_FindLatestEligible_TieGoesToLastInserted(t *testing.T) {
	repo := NewOTPRepo()
	ctx := context.Background()
	m := otp.Match{RequesterID: "d1", SubjectID: "p1", Purpose: otp.PurposeDocumentAccess}

	for _, id := range []string{"first", "second"} {
		_ = repo.Create(ctx, otp.Verification{
			ID: id, RequesterID: "d1", SubjectID: "p1", Purpose: otp.PurposeDocumentAccess,
			Code: "111111", IssuedAt: t0, ExpiresAt: t0.Add(time.Minute), Delivery: otp.DeliverySent,
		})
	}
	_ = repo.Create(ctx, otp.Verification{
		ID: "failed", RequesterID: "d1", SubjectID: "p1", Purpose: otp.PurposeDocumentAccess,
		Code: "111111", IssuedAt: t0.Add(time.Second), ExpiresAt: t0.Add(time.Minute), Delivery: otp.DeliveryFailed,
	})

	v, err := repo.FindLatestEligible(ctx, m, "111111", t0)
	if err != nil {
		t.Fatalf("FindLatestEligible error: %v", err)
	}
	if v.ID != "second" {
		t.Fatalf("expected second (failed delivery excluded), got %s", v.ID)
	}

	if _, err := repo.FindLatestEligible(ctx, m, "111111", t0.Add(time.Minute)); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("expected expired rows excluded, got %v", err)
	}

	list, _ := repo.ListBySubject(ctx, "p1")
	if len(list) != 3 || list[0].ID != "failed" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestPermissionsRepo_GrantKeepsOneCurrentRowPerPair(t *testing.T) {
	repo := NewPermissionsRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Grant(ctx, accesspermissions.Permission{
				ID:          "perm-" + string(rune('a'+i)),
				SubjectID:   "p1",
				GrantedToID: "d1",
				Scope:       accesspermissions.ScopeViewOnly,
				GrantedAt:   t0,
				Active:      true,
			}, t0)
			if err != nil {
				t.Errorf("Grant error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	list, _ := repo.ListBySubject(ctx, "p1")
	if len(list) != 1 {
		t.Fatalf("expected a single row for the pair, got %d", len(list))
	}

	// revocado: el siguiente grant inserta fila nueva y conserva la historia
	p := list[0]
	p.Active = false
	revokedAt := t0.Add(time.Minute)
	p.RevokedAt = &revokedAt
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if _, err := repo.FindCurrent(ctx, "p1", "d1", t0.Add(time.Minute)); !errors.Is(err, accesspermissions.ErrNotFound) {
		t.Fatalf("expected no current permission after revoke, got %v", err)
	}

	if _, err := repo.Grant(ctx, accesspermissions.Permission{
		ID: "perm-new", SubjectID: "p1", GrantedToID: "d1", GrantedAt: t0.Add(2 * time.Minute), Active: true,
	}, t0.Add(2*time.Minute)); err != nil {
		t.Fatalf("Grant error: %v", err)
	}
	list, _ = repo.ListBySubject(ctx, "p1")
	if len(list) != 2 || list[0].ID != "perm-new" {
		t.Fatalf("expected new row first plus revoked history, got %+v", list)
	}
}

func TestDeletionRequestsRepo_OnePendingPerDocumentAndCAS(t *testing.T) {
	repo := NewDeletionRequestsRepo()
	ctx := context.Background()

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Create(ctx, deletionrequests.Request{
				ID:          "req-" + string(rune('a'+i)),
				DocumentID:  "doc-1",
				PatientID:   "p1",
				Status:      deletionrequests.StatusPending,
				RequestedAt: t0,
			})
			switch {
			case err == nil:
				created.Add(1)
			case !errors.Is(err, deletionrequests.ErrConflictingRequest):
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if created.Load() != 1 {
		t.Fatalf("expected one pending request, got %d", created.Load())
	}

	pending, _ := repo.ListByStatus(ctx, deletionrequests.StatusPending)
	req := pending[0]

	approved := req
	approved.Status = deletionrequests.StatusApproved
	if err := repo.UpdateFrom(ctx, approved, deletionrequests.StatusPending); err != nil {
		t.Fatalf("UpdateFrom error: %v", err)
	}

	rejected := req
	rejected.Status = deletionrequests.StatusRejected
	if err := repo.UpdateFrom(ctx, rejected, deletionrequests.StatusPending); !errors.Is(err, deletionrequests.ErrBadState) {
		t.Fatalf("expected ErrBadState on stale update, got %v", err)
	}

	got, _ := repo.GetByID(ctx, req.ID)
	if got.Status != deletionrequests.StatusApproved {
		t.Fatalf("expected approved to stick, got %s", got.Status)
	}
}

func TestProfilesRepo_PatientCodeUnique(t *testing.T) {
	repo := NewProfilesRepo()
	ctx := context.Background()

	if err := repo.Upsert(ctx, profiles.Profile{UserID: "u1", Email: "Ana@Example.com", PatientCode: "PAT-00000001"}); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if err := repo.Upsert(ctx, profiles.Profile{UserID: "u2", PatientCode: "PAT-00000001"}); !errors.Is(err, profiles.ErrPatientCodeTaken) {
		t.Fatalf("expected ErrPatientCodeTaken, got %v", err)
	}
	// el mismo usuario puede re-guardar su código
	if err := repo.Upsert(ctx, profiles.Profile{UserID: "u1", FullName: "Ana", PatientCode: "PAT-00000001"}); err != nil {
		t.Fatalf("re-upsert error: %v", err)
	}

	if _, err := repo.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, profiles.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	p, err := repo.FindByPatientCode(ctx, "PAT-00000001")
	if err != nil || p.UserID != "u1" || p.FullName != "Ana" {
		t.Fatalf("unexpected lookup: %+v err=%v", p, err)
	}
}
