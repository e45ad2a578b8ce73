package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodbridge/internal/donation"
	"foodbridge/internal/logging"
)

// ErrInvalidTransition is returned when a claim or complete is attempted
// against a record whose state does not allow it. Reverse transitions are
// never sent to the server.
var ErrInvalidTransition = errors.New("donation state does not allow this transition")

// ErrNoIdentity is returned when a mutation needs the acting user but no
// session is established.
var ErrNoIdentity = errors.New("no authenticated user")

// Create posts a new donation. No speculation: the record enters the store
// only once the server has assigned it an id.
func (e *Engine) Create(ctx context.Context, d donation.Draft) (donation.Donation, error) {
	if err := d.Validate(); err != nil {
		return donation.Donation{}, err
	}
	rec, err := e.svc.CreateDonation(ctx, d)
	if err != nil {
		logging.SyncError("create failed: %v", err)
		return donation.Donation{}, err
	}

	e.mu.Lock()
	e.records[rec.ID] = rec
	e.prependToViewLocked(ViewAll, rec.ID)
	e.prependToViewLocked(viewForStatus(rec.Status), rec.ID)
	e.counts.SetStatus(rec.Status, e.counts.ByStatus(rec.Status)+1)
	e.mu.Unlock()

	logging.Sync("created donation %d (%s)", rec.ID, rec.Title)
	return rec, nil
}

// Update edits an existing donation in place. No speculation: the local
// record is patched only from the server's response.
func (e *Engine) Update(ctx context.Context, id int64, d donation.Draft) (donation.Donation, error) {
	if err := d.Validate(); err != nil {
		return donation.Donation{}, err
	}
	rec, err := e.svc.UpdateDonation(ctx, id, d)
	if err != nil {
		logging.SyncError("update of %d failed: %v", id, err)
		return donation.Donation{}, err
	}

	e.mu.Lock()
	if prev, ok := e.records[id]; ok {
		rec = mergeClaimant(rec, prev)
	}
	e.records[id] = rec
	e.mu.Unlock()
	return rec, nil
}

// Delete removes a donation. The caller confirms beforehand; the record
// leaves the store only after the server acknowledges.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	if err := e.svc.DeleteDonation(ctx, id); err != nil {
		logging.SyncError("delete of %d failed: %v", id, err)
		return err
	}

	e.mu.Lock()
	if rec, ok := e.records[id]; ok {
		e.counts.SetStatus(rec.Status, e.counts.ByStatus(rec.Status)-1)
	}
	delete(e.records, id)
	for v := range e.views {
		e.removeFromViewLocked(v, id)
	}
	e.mu.Unlock()

	logging.Sync("deleted donation %d", id)
	return nil
}

// Claim moves a donation AVAILABLE -> CLAIMED optimistically: the local
// record transitions at once with the acting user as provisional claimant,
// then the server's record replaces it. On failure ground truth is
// restored by refetching the affected views. Counts are re-pulled from the
// server either way.
func (e *Engine) Claim(ctx context.Context, id int64) error {
	return e.transition(ctx, id,
		donation.StatusAvailable, donation.StatusClaimed,
		e.svc.ClaimDonation)
}

// Complete moves a donation CLAIMED -> COMPLETED, with the same
// speculate/commit/revert shape as Claim.
func (e *Engine) Complete(ctx context.Context, id int64) error {
	return e.transition(ctx, id,
		donation.StatusClaimed, donation.StatusCompleted,
		e.svc.CompleteDonation)
}

func (e *Engine) transition(ctx context.Context, id int64, from, to donation.Status,
	call func(ctx context.Context, id, claimantID int64) (donation.Donation, error)) error {

	user, ok := e.who.User()
	if !ok {
		return ErrNoIdentity
	}

	e.mu.Lock()
	rec, known := e.records[id]
	if known && !rec.Status.CanTransitionTo(to) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, rec.Title, rec.Status)
	}
	if known {
		rec.Status = to
		switch to {
		case donation.StatusClaimed:
			rec.ClaimedByID = user.ID
			rec.ClaimedByName = user.Name
			rec.ClaimedAt = time.Now()
		case donation.StatusCompleted:
			rec.CompletedAt = time.Now()
		}
		e.records[id] = rec
		e.removeFromViewLocked(viewForStatus(from), id)
		e.prependToViewLocked(viewForStatus(to), id)
		e.counts.Shift(from, to)
	}
	e.mu.Unlock()

	// Speculative drift self-heals here regardless of the outcome below.
	defer func() {
		if err := e.FetchCounts(ctx); err != nil {
			logging.SyncError("count refresh after %s->%s failed: %v", from, to, err)
		}
	}()

	server, err := call(ctx, id, user.ID)
	if err != nil {
		logging.SyncError("transition %d %s->%s rejected, refetching: %v", id, from, to, err)
		for _, v := range []View{viewForStatus(from), viewForStatus(to), ViewAll} {
			if ferr := e.FetchPage(ctx, v); ferr != nil {
				logging.SyncError("revert refetch of %s failed: %v", v, ferr)
			}
		}
		return err
	}

	e.mu.Lock()
	if known {
		server = mergeClaimant(server, e.records[id])
	}
	e.records[id] = server
	e.mu.Unlock()
	logging.Sync("donation %d now %s", id, server.Status)
	return nil
}

// mergeClaimant fills claimant identity the server omitted from the copy
// we already hold. Some responses drop the resolved name on transitions.
func mergeClaimant(server, local donation.Donation) donation.Donation {
	if server.ClaimedByID == 0 {
		server.ClaimedByID = local.ClaimedByID
	}
	if server.ClaimedByName == "" {
		server.ClaimedByName = local.ClaimedByName
	}
	return server
}
