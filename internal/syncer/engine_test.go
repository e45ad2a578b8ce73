package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"foodbridge/internal/api"
	"foodbridge/internal/donation"
	"foodbridge/internal/query"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeService struct {
	filter   func(ctx context.Context, q query.State) (api.Page, error)
	count    func(ctx context.Context, st donation.Status) (int, error)
	create   func(ctx context.Context, d donation.Draft) (donation.Donation, error)
	update   func(ctx context.Context, id int64, d donation.Draft) (donation.Donation, error)
	remove   func(ctx context.Context, id int64) error
	claim    func(ctx context.Context, id, claimantID int64) (donation.Donation, error)
	complete func(ctx context.Context, id, claimantID int64) (donation.Donation, error)
}

func (f *fakeService) FilterDonations(ctx context.Context, q query.State) (api.Page, error) {
	if f.filter == nil {
		return api.Page{}, nil
	}
	return f.filter(ctx, q)
}

func (f *fakeService) CountByStatus(ctx context.Context, st donation.Status) (int, error) {
	if f.count == nil {
		return 0, nil
	}
	return f.count(ctx, st)
}

func (f *fakeService) CreateDonation(ctx context.Context, d donation.Draft) (donation.Donation, error) {
	return f.create(ctx, d)
}

func (f *fakeService) UpdateDonation(ctx context.Context, id int64, d donation.Draft) (donation.Donation, error) {
	return f.update(ctx, id, d)
}

func (f *fakeService) DeleteDonation(ctx context.Context, id int64) error {
	return f.remove(ctx, id)
}

func (f *fakeService) ClaimDonation(ctx context.Context, id, claimantID int64) (donation.Donation, error) {
	return f.claim(ctx, id, claimantID)
}

func (f *fakeService) CompleteDonation(ctx context.Context, id, claimantID int64) (donation.Donation, error) {
	return f.complete(ctx, id, claimantID)
}

type fakeIdentity struct {
	user donation.User
}

func (f fakeIdentity) User() (donation.User, bool) {
	if f.user.ID == 0 {
		return donation.User{}, false
	}
	return f.user, true
}

var ngo = donation.User{ID: 42, Name: "City Shelter", Email: "ngo@example.com", Role: donation.RoleNGO}

func available(id int64, title string) donation.Donation {
	return donation.Donation{
		ID:       id,
		Title:    title,
		Quantity: 5,
		Unit:     donation.UnitKG,
		FoodType: donation.FoodBakedGoods,
		Location: "Lisbon",
		Status:   donation.StatusAvailable,
		DonorID:  1,
	}
}

// pageFor serves the fake's in-memory records honoring the status filter,
// close enough to the real listing endpoint for revert tests.
func pageFor(recs []donation.Donation, q query.State) api.Page {
	var items []donation.Donation
	for _, r := range recs {
		if q.Filter.Status != "" && r.Status != q.Filter.Status {
			continue
		}
		items = append(items, r)
	}
	return api.Page{Items: items, TotalElements: len(items), TotalPages: 1}
}

func newTestEngine(svc Service) *Engine {
	e := NewEngine(svc, fakeIdentity{user: ngo})
	e.RegisterView(ViewAll, query.New())
	e.RegisterView(ViewAvailable, query.New().WithStatus(donation.StatusAvailable))
	e.RegisterView(ViewClaimed, query.New().WithStatus(donation.StatusClaimed))
	e.RegisterView(ViewCompleted, query.New().WithStatus(donation.StatusCompleted))
	return e
}

func TestFetchPagePopulatesView(t *testing.T) {
	svc := &fakeService{
		filter: func(ctx context.Context, q query.State) (api.Page, error) {
			return api.Page{
				Items:         []donation.Donation{available(1, "Bread"), available(2, "Apples")},
				TotalElements: 11,
				TotalPages:    2,
			}, nil
		},
	}
	e := newTestEngine(svc)
	if err := e.FetchPage(context.Background(), ViewAvailable); err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	snap := e.Snapshot(ViewAvailable)
	if len(snap.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(snap.Items))
	}
	if snap.Items[0].Title != "Bread" || snap.Items[1].Title != "Apples" {
		t.Errorf("order not preserved: %q, %q", snap.Items[0].Title, snap.Items[1].Title)
	}
	if snap.Total != 11 || snap.Pages != 2 {
		t.Errorf("expected totals 11/2, got %d/%d", snap.Total, snap.Pages)
	}
	if snap.Loading {
		t.Error("expected loading cleared after fetch")
	}
}

func TestFetchPageRetainsDataOnError(t *testing.T) {
	calls := 0
	svc := &fakeService{
		filter: func(ctx context.Context, q query.State) (api.Page, error) {
			calls++
			if calls == 1 {
				return api.Page{Items: []donation.Donation{available(1, "Bread")}, TotalElements: 1, TotalPages: 1}, nil
			}
			return api.Page{}, errors.New("boom")
		},
	}
	e := newTestEngine(svc)
	if err := e.FetchPage(context.Background(), ViewAvailable); err != nil {
		t.Fatal(err)
	}
	if err := e.FetchPage(context.Background(), ViewAvailable); err == nil {
		t.Fatal("expected second fetch to fail")
	}

	snap := e.Snapshot(ViewAvailable)
	if len(snap.Items) != 1 || snap.Items[0].Title != "Bread" {
		t.Errorf("expected previous page retained, got %d items", len(snap.Items))
	}
	if snap.Err == nil {
		t.Error("expected error recorded on view")
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	svc := &fakeService{
		filter: func(ctx context.Context, q query.State) (api.Page, error) {
			calls++
			if calls == 1 {
				close(started)
				<-release
				return api.Page{Items: []donation.Donation{available(1, "Stale")}, TotalElements: 1, TotalPages: 1}, nil
			}
			return api.Page{Items: []donation.Donation{available(2, "Fresh")}, TotalElements: 1, TotalPages: 1}, nil
		},
	}
	e := newTestEngine(svc)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.FetchPage(context.Background(), ViewAvailable)
	}()
	<-started

	// A newer fetch supersedes the blocked one.
	if err := e.FetchPage(context.Background(), ViewAvailable); err != nil {
		t.Fatal(err)
	}
	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first fetch never returned")
	}

	snap := e.Snapshot(ViewAvailable)
	if len(snap.Items) != 1 || snap.Items[0].Title != "Fresh" {
		t.Errorf("stale response overwrote the newer one: %+v", snap.Items)
	}
}

func TestFetchCounts(t *testing.T) {
	svc := &fakeService{
		count: func(ctx context.Context, st donation.Status) (int, error) {
			switch st {
			case donation.StatusAvailable:
				return 5, nil
			case donation.StatusClaimed:
				return 3, nil
			default:
				return 2, nil
			}
		},
	}
	e := newTestEngine(svc)
	if err := e.FetchCounts(context.Background()); err != nil {
		t.Fatal(err)
	}
	c := e.Counts()
	if c.Available != 5 || c.Claimed != 3 || c.Completed != 2 || c.Total != 10 {
		t.Errorf("unexpected counts: %+v", c)
	}
}

func TestClaimSpeculatesThenCommits(t *testing.T) {
	var countsDuringCall donation.Counts
	svc := &fakeService{
		count: func(ctx context.Context, st donation.Status) (int, error) {
			// Authoritative numbers after reconciliation.
			if st == donation.StatusClaimed {
				return 1, nil
			}
			return 0, nil
		},
	}
	e := newTestEngine(svc)
	svc.filter = func(ctx context.Context, q query.State) (api.Page, error) {
		return pageFor([]donation.Donation{available(1, "Bread")}, q), nil
	}
	svc.claim = func(ctx context.Context, id, claimantID int64) (donation.Donation, error) {
		if claimantID != ngo.ID {
			t.Errorf("expected claimant %d, got %d", ngo.ID, claimantID)
		}
		// The local transition is already visible while the call runs.
		countsDuringCall = e.Counts()
		if rec, ok := e.Record(id); !ok || rec.Status != donation.StatusClaimed {
			t.Error("expected speculative CLAIMED state during server call")
		}
		d := available(id, "Bread")
		d.Status = donation.StatusClaimed
		d.ClaimedByID = claimantID
		// Name deliberately omitted: the provisional one must survive.
		return d, nil
	}

	if err := e.FetchPage(context.Background(), ViewAvailable); err != nil {
		t.Fatal(err)
	}
	if err := e.Claim(context.Background(), 1); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	if countsDuringCall.Claimed != 1 || countsDuringCall.Available != -1 {
		t.Errorf("expected speculative shift during call, got %+v", countsDuringCall)
	}
	rec, ok := e.Record(1)
	if !ok {
		t.Fatal("record vanished")
	}
	if rec.Status != donation.StatusClaimed {
		t.Errorf("expected CLAIMED, got %s", rec.Status)
	}
	if rec.ClaimedByName != ngo.Name {
		t.Errorf("expected provisional claimant name merged, got %q", rec.ClaimedByName)
	}
	if got := e.Snapshot(ViewAvailable).Items; len(got) != 0 {
		t.Errorf("expected available view emptied, got %d items", len(got))
	}
	if got := e.Snapshot(ViewClaimed).Items; len(got) != 1 || got[0].ID != 1 {
		t.Errorf("expected claimed view to hold the donation, got %+v", got)
	}
	// Counts settle on the authoritative values.
	if c := e.Counts(); c.Claimed != 1 || c.Available != 0 {
		t.Errorf("expected reconciled counts, got %+v", c)
	}
}

func TestClaimFailureRevertsByRefetch(t *testing.T) {
	serverRecords := []donation.Donation{available(1, "Bread")}
	svc := &fakeService{
		filter: func(ctx context.Context, q query.State) (api.Page, error) {
			return pageFor(serverRecords, q), nil
		},
		count: func(ctx context.Context, st donation.Status) (int, error) {
			if st == donation.StatusAvailable {
				return 1, nil
			}
			return 0, nil
		},
		claim: func(ctx context.Context, id, claimantID int64) (donation.Donation, error) {
			return donation.Donation{}, &api.Error{Status: 409, Message: "already claimed"}
		},
	}
	e := newTestEngine(svc)
	if err := e.FetchPage(context.Background(), ViewAvailable); err != nil {
		t.Fatal(err)
	}

	if err := e.Claim(context.Background(), 1); err == nil {
		t.Fatal("expected claim to fail")
	}

	rec, ok := e.Record(1)
	if !ok || rec.Status != donation.StatusAvailable {
		t.Errorf("expected refetch to restore AVAILABLE, got %+v", rec)
	}
	if got := e.Snapshot(ViewAvailable).Items; len(got) != 1 {
		t.Errorf("expected available view restored, got %d items", len(got))
	}
	if got := e.Snapshot(ViewClaimed).Items; len(got) != 0 {
		t.Errorf("expected claimed view emptied, got %d items", len(got))
	}
	if c := e.Counts(); c.Available != 1 || c.Claimed != 0 {
		t.Errorf("expected counts restored from server, got %+v", c)
	}
}

func TestClaimRejectsInvalidTransition(t *testing.T) {
	svc := &fakeService{
		filter: func(ctx context.Context, q query.State) (api.Page, error) {
			d := available(1, "Bread")
			d.Status = donation.StatusCompleted
			return api.Page{Items: []donation.Donation{d}, TotalElements: 1, TotalPages: 1}, nil
		},
		claim: func(ctx context.Context, id, claimantID int64) (donation.Donation, error) {
			t.Error("server must not be called for an invalid transition")
			return donation.Donation{}, nil
		},
	}
	e := newTestEngine(svc)
	if err := e.FetchPage(context.Background(), ViewAll); err != nil {
		t.Fatal(err)
	}
	if err := e.Claim(context.Background(), 1); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCompleteMovesClaimedRecord(t *testing.T) {
	claimed := available(1, "Bread")
	claimed.Status = donation.StatusClaimed
	claimed.ClaimedByID = ngo.ID
	claimed.ClaimedByName = ngo.Name

	svc := &fakeService{
		filter: func(ctx context.Context, q query.State) (api.Page, error) {
			return pageFor([]donation.Donation{claimed}, q), nil
		},
		complete: func(ctx context.Context, id, claimantID int64) (donation.Donation, error) {
			d := claimed
			d.Status = donation.StatusCompleted
			return d, nil
		},
	}
	e := newTestEngine(svc)
	if err := e.FetchPage(context.Background(), ViewClaimed); err != nil {
		t.Fatal(err)
	}
	if err := e.Complete(context.Background(), 1); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	rec, _ := e.Record(1)
	if rec.Status != donation.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", rec.Status)
	}
	if got := e.Snapshot(ViewCompleted).Items; len(got) != 1 {
		t.Errorf("expected completed view to hold the donation")
	}
}

func TestCreateEntersStoreAfterAck(t *testing.T) {
	svc := &fakeService{
		create: func(ctx context.Context, d donation.Draft) (donation.Donation, error) {
			out := available(9, d.Title)
			return out, nil
		},
	}
	e := newTestEngine(svc)
	draft := donation.Draft{
		Title:       "Soup",
		Description: "Vegetable soup",
		Quantity:    3,
		Unit:        donation.UnitLiters,
		FoodType:    donation.FoodOther,
		Location:    "Porto",
		ExpiryDate:  time.Now().AddDate(0, 0, 7),
	}
	rec, err := e.Create(context.Background(), draft)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.ID != 9 {
		t.Fatalf("expected server id, got %d", rec.ID)
	}
	if got := e.Snapshot(ViewAll).Items; len(got) != 1 || got[0].ID != 9 {
		t.Errorf("expected new record prepended to the all view")
	}
	if got := e.Snapshot(ViewAvailable).Items; len(got) != 1 {
		t.Errorf("expected new record in the available view")
	}
	if c := e.Counts(); c.Available != 1 {
		t.Errorf("expected available count incremented, got %+v", c)
	}
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	svc := &fakeService{
		create: func(ctx context.Context, d donation.Draft) (donation.Donation, error) {
			t.Error("server must not be called for an invalid draft")
			return donation.Donation{}, nil
		},
	}
	e := newTestEngine(svc)
	if _, err := e.Create(context.Background(), donation.Draft{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDeleteRemovesOnlyAfterAck(t *testing.T) {
	fail := true
	svc := &fakeService{
		filter: func(ctx context.Context, q query.State) (api.Page, error) {
			return pageFor([]donation.Donation{available(1, "Bread")}, q), nil
		},
		remove: func(ctx context.Context, id int64) error {
			if fail {
				return errors.New("boom")
			}
			return nil
		},
	}
	e := newTestEngine(svc)
	if err := e.FetchPage(context.Background(), ViewAvailable); err != nil {
		t.Fatal(err)
	}

	if err := e.Delete(context.Background(), 1); err == nil {
		t.Fatal("expected delete to fail")
	}
	if _, ok := e.Record(1); !ok {
		t.Error("record must survive a failed delete")
	}

	fail = false
	if err := e.Delete(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Record(1); ok {
		t.Error("record must be gone after acknowledged delete")
	}
	if got := e.Snapshot(ViewAvailable).Items; len(got) != 0 {
		t.Errorf("expected view emptied, got %d items", len(got))
	}
}

func TestCreateThenEditThenFetchRoundTrip(t *testing.T) {
	// The fake plays server of record: create stores, update mutates,
	// filter serves whatever is stored.
	var recs []donation.Donation
	svc := &fakeService{
		create: func(ctx context.Context, d donation.Draft) (donation.Donation, error) {
			rec := available(7, d.Title)
			recs = append(recs, rec)
			return rec, nil
		},
		update: func(ctx context.Context, id int64, d donation.Draft) (donation.Donation, error) {
			for i := range recs {
				if recs[i].ID == id {
					recs[i].Title = d.Title
					return recs[i], nil
				}
			}
			return donation.Donation{}, errors.New("no such donation")
		},
		filter: func(ctx context.Context, q query.State) (api.Page, error) {
			return pageFor(recs, q), nil
		},
	}
	e := newTestEngine(svc)

	draft := donation.Draft{
		Title:       "Bread",
		Description: "Day-old loaves",
		Quantity:    5,
		Unit:        donation.UnitKG,
		FoodType:    donation.FoodBakedGoods,
		Location:    "Lisbon",
		ExpiryDate:  time.Now().AddDate(0, 0, 2),
	}
	created, err := e.Create(context.Background(), draft)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	draft.Title = "Sourdough loaves"
	if _, err := e.Update(context.Background(), created.ID, draft); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := e.FetchPage(context.Background(), ViewAvailable); err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	snap := e.Snapshot(ViewAvailable)
	if len(snap.Items) != 1 || snap.Items[0].Title != "Sourdough loaves" {
		t.Fatalf("expected the edited title after refetch, got %+v", snap.Items)
	}
	if rec, ok := e.Record(created.ID); !ok || rec.Title != "Sourdough loaves" {
		t.Errorf("expected the store to hold the edited record, got %+v", rec)
	}
}

func TestUpdatePatchesInPlace(t *testing.T) {
	svc := &fakeService{
		filter: func(ctx context.Context, q query.State) (api.Page, error) {
			return pageFor([]donation.Donation{available(1, "Bread")}, q), nil
		},
		update: func(ctx context.Context, id int64, d donation.Draft) (donation.Donation, error) {
			out := available(id, d.Title)
			out.Quantity = d.Quantity
			return out, nil
		},
	}
	e := newTestEngine(svc)
	if err := e.FetchPage(context.Background(), ViewAvailable); err != nil {
		t.Fatal(err)
	}

	draft := donation.Draft{
		Title:       "Sourdough",
		Description: "Day-old loaves",
		Quantity:    12,
		Unit:        donation.UnitPieces,
		FoodType:    donation.FoodBakedGoods,
		Location:    "Lisbon",
		ExpiryDate:  time.Now().AddDate(0, 0, 2),
	}
	if _, err := e.Update(context.Background(), 1, draft); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	rec, _ := e.Record(1)
	if rec.Title != "Sourdough" || rec.Quantity != 12 {
		t.Errorf("expected patched record, got %+v", rec)
	}
	if got := e.Snapshot(ViewAvailable).Items; len(got) != 1 || got[0].Title != "Sourdough" {
		t.Errorf("expected view to reflect the patch")
	}
}
