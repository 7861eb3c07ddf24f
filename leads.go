package erpsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LeadController extends the generic controller with the lead-only
// operations: batch transfer to another company and conversion to client.
type LeadController struct {
	*SyncController[Lead]
	remote *LeadsClient
}

// NewLeadController creates a lead controller over a store and the leads
// sub-client.
func NewLeadController(store *Store[Lead], remote *LeadsClient, opts ...ControllerOption) *LeadController {
	return &LeadController{
		SyncController: NewSyncController[Lead](store, RemoteService[Lead](remote), opts...),
		remote:         remote,
	}
}

// TransferMany moves a batch of leads to the target company, one remote call
// per id, counting successes and failures. Ownership change is
// server-authoritative, so a full refresh runs on completion regardless of
// partial failure.
func (lc *LeadController) TransferMany(ctx context.Context, ids []string, targetCompanyID string) Outcome {
	op := uuid.NewString()
	if len(ids) == 0 || targetCompanyID == "" {
		return Outcome{
			Status:  OutcomeRolledBack,
			Message: "Veuillez sélectionner une entreprise de destination.",
			OpID:    op,
		}
	}

	var acquired []string
	failed := 0
	for _, id := range ids {
		if lc.acquire(id) {
			acquired = append(acquired, id)
		} else {
			failed++
		}
	}
	defer func() {
		for _, id := range acquired {
			lc.release(id)
		}
	}()

	succeeded := 0
	for _, id := range acquired {
		res := lc.remote.Transfer(ctx, id, targetCompanyID)
		if res.Success {
			succeeded++
		} else {
			failed++
		}
	}

	refreshErr := lc.resync(ctx)

	message := fmt.Sprintf("%d prospect(s) transféré(s).", succeeded)
	level := FeedbackInfo
	if failed > 0 {
		message = fmt.Sprintf("%d prospect(s) transféré(s). %d prospect(s) n'ont pas pu être transféré(s).", succeeded, failed)
		level = FeedbackError
	}
	return lc.finish(Outcome{
		Status:    OutcomeResynced,
		Message:   message,
		OpID:      op,
		Succeeded: succeeded,
		Failed:    failed,
		Err:       refreshErr,
	}, level)
}

// Convert marks a lead as won as part of converting it to a client. The
// status is forced to "Gagné" whatever it was before.
func (lc *LeadController) Convert(ctx context.Context, id string) (Lead, Outcome) {
	lead, ok := lc.Store().Get(id)
	if !ok {
		return Lead{}, Outcome{
			Status:  OutcomeRolledBack,
			Message: "Prospect introuvable.",
			OpID:    uuid.NewString(),
		}
	}
	lead.Status = LeadWon
	return lc.Update(ctx, id, lead)
}

// ============================================================================
// Duplicate detection
// ============================================================================

// HasDuplicateEmail reports whether another lead already uses the email,
// case-insensitively. excludeID skips the lead currently being edited.
func HasDuplicateEmail(leads []Lead, email, excludeID string) bool {
	value := strings.ToLower(strings.TrimSpace(email))
	if value == "" {
		return false
	}
	for _, l := range leads {
		if l.ID != excludeID && strings.ToLower(l.Email) == value {
			return true
		}
	}
	return false
}

// HasDuplicatePhone reports whether another lead already uses the phone
// number, comparing digits only. excludeID skips the lead being edited.
func HasDuplicatePhone(leads []Lead, phone, excludeID string) bool {
	value := NormalizePhone(phone)
	if value == "" {
		return false
	}
	for _, l := range leads {
		if l.ID != excludeID && NormalizePhone(l.Phone) == value {
			return true
		}
	}
	return false
}

// NormalizePhone strips everything but digits, mapping the international
// +33 prefix to the national 0.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "33") && len(digits) == 11 {
		digits = "0" + digits[2:]
	}
	return digits
}
