package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"foodbridge/internal/donation"
	"foodbridge/internal/query"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Options{
		BaseURL: srv.URL,
		Tokens:  func() string { return "test-token" },
	})
	return c, srv
}

func TestDecodePageBareArray(t *testing.T) {
	raw := json.RawMessage(`[
		{"id": 1, "title": "Bread", "status": "AVAILABLE"},
		{"id": 2, "title": "Apples", "status": "AVAILABLE"}
	]`)
	page, err := decodePage(raw, 9)
	if err != nil {
		t.Fatalf("decodePage failed: %v", err)
	}
	if len(page.Items) != 2 || page.TotalElements != 2 || page.TotalPages != 1 {
		t.Errorf("unexpected page: %d items, totals %d/%d", len(page.Items), page.TotalElements, page.TotalPages)
	}
}

func TestDecodePageEnvelope(t *testing.T) {
	raw := json.RawMessage(`{
		"content": [{"id": 1, "title": "Bread"}],
		"totalElements": 19,
		"totalPages": 3
	}`)
	page, err := decodePage(raw, 9)
	if err != nil {
		t.Fatalf("decodePage failed: %v", err)
	}
	if page.TotalElements != 19 || page.TotalPages != 3 {
		t.Errorf("envelope totals not honored: %d/%d", page.TotalElements, page.TotalPages)
	}
}

func TestDecodePageEnvelopeMissingTotals(t *testing.T) {
	raw := json.RawMessage(`{"content": [{"id": 1}, {"id": 2}]}`)
	page, err := decodePage(raw, 9)
	if err != nil {
		t.Fatalf("decodePage failed: %v", err)
	}
	if page.TotalElements != 2 || page.TotalPages != 1 {
		t.Errorf("expected derived totals 2/1, got %d/%d", page.TotalElements, page.TotalPages)
	}
}

func TestDecodePageRejectsGarbage(t *testing.T) {
	if _, err := decodePage(json.RawMessage(`"nope"`), 9); err == nil {
		t.Fatal("expected an error for a non-page body")
	}
}

func TestDonationNormalization(t *testing.T) {
	// Quantity as a string, expiry under its alternate name, claimant id
	// under ngoId, and no unit at all.
	raw := json.RawMessage(`[{
		"id": "7",
		"title": "Milk",
		"quantity": "2.5",
		"expirationDate": "2026-09-15",
		"ngoId": 42,
		"status": "CLAIMED"
	}]`)
	page, err := decodePage(raw, 9)
	if err != nil {
		t.Fatal(err)
	}
	d := page.Items[0]
	if d.ID != 7 {
		t.Errorf("string id not coerced: %d", d.ID)
	}
	if d.Quantity != 2.5 {
		t.Errorf("string quantity not coerced: %v", d.Quantity)
	}
	if d.Unit != donation.UnitKG {
		t.Errorf("missing unit must default to KG, got %q", d.Unit)
	}
	if d.ExpiryDate.IsZero() || d.ExpiryDate.Format("2006-01-02") != "2026-09-15" {
		t.Errorf("alternate expiry field not read: %v", d.ExpiryDate)
	}
	if d.ClaimedByID != 42 {
		t.Errorf("ngoId not mapped to the claimant: %d", d.ClaimedByID)
	}
}

func TestFilterDonationsRequest(t *testing.T) {
	var gotPath, gotAuth, gotReqID string
	var gotQuery map[string][]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`[]`))
	})

	q := query.New().WithStatus(donation.StatusAvailable)
	if _, err := c.FilterDonations(context.Background(), q); err != nil {
		t.Fatalf("FilterDonations failed: %v", err)
	}
	if gotPath != "/donations/filter" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotQuery["status"][0] != "AVAILABLE" || gotQuery["size"][0] != "9" || gotQuery["direction"][0] != "DESC" {
		t.Errorf("unexpected query: %v", gotQuery)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("missing bearer token, got %q", gotAuth)
	}
	if gotReqID == "" {
		t.Error("expected a request correlation id")
	}
}

func TestCountByStatusUsesSizeOne(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("size") != "1" {
			t.Errorf("expected size=1, got %q", r.URL.Query().Get("size"))
		}
		w.Write([]byte(`{"content": [{"id": 1}], "totalElements": 37, "totalPages": 37}`))
	})
	n, err := c.CountByStatus(context.Background(), donation.StatusAvailable)
	if err != nil {
		t.Fatal(err)
	}
	if n != 37 {
		t.Errorf("expected the reported total, got %d", n)
	}
}

func TestUnauthorizedFiresHookOnce(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := New(Options{
		BaseURL:        srv.URL,
		OnUnauthorized: func() { calls++ },
	})

	_, err := c.FilterDonations(context.Background(), query.New())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if calls != 1 {
		t.Errorf("hook must fire exactly once per response, fired %d times", calls)
	}
}

func TestServerRejectionMapsToError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "quantity must be positive"}`))
	})
	_, err := c.CreateDonation(context.Background(), donation.Draft{Title: "x"})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Status != 400 || apiErr.Message != "quantity must be positive" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	if got := apiErr.UserMessage(); got != "Invalid request. Please check your input." {
		t.Errorf("unexpected user message %q", got)
	}
}

func TestClaimSendsVolunteerID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/donations/5/claim" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("volunteerId") != "42" {
			t.Errorf("expected volunteerId=42, got %q", r.URL.Query().Get("volunteerId"))
		}
		w.Write([]byte(`{"id": 5, "status": "CLAIMED", "claimedById": 42}`))
	})
	d, err := c.ClaimDonation(context.Background(), 5, 42)
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != donation.StatusClaimed || d.ClaimedByID != 42 {
		t.Errorf("unexpected donation: %+v", d)
	}
}

func TestGetDonationByID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/donations/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id": 7, "title": "Milk", "quantity": "2.5", "status": "AVAILABLE"}`))
	})
	d, err := c.GetDonation(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if d.ID != 7 || d.Title != "Milk" || d.Quantity != 2.5 {
		t.Errorf("unexpected donation: %+v", d)
	}
}

func TestUpdateStatusSendsStatusParam(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/donations/5/status" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("status") != "COMPLETED" {
			t.Errorf("expected status=COMPLETED, got %q", r.URL.Query().Get("status"))
		}
		w.Write([]byte(`{"id": 5, "status": "COMPLETED"}`))
	})
	d, err := c.UpdateStatus(context.Background(), 5, donation.StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != donation.StatusCompleted {
		t.Errorf("unexpected donation: %+v", d)
	}
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.DeleteDonation(context.Background(), 3); err != nil {
		t.Fatalf("DeleteDonation failed: %v", err)
	}
}

func TestLoginTolerantResponseShapes(t *testing.T) {
	// The identity under "userResponse" and the token under "accessToken".
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@example.com" {
			t.Errorf("unexpected body: %v", body)
		}
		w.Write([]byte(`{
			"accessToken": "tok-9",
			"userResponse": {"id": 3, "name": "Ada", "email": "a@example.com", "role": "role_donor"}
		}`))
	})
	creds, err := c.Login(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if creds.Token != "tok-9" {
		t.Errorf("accessToken not read: %q", creds.Token)
	}
	if creds.User.ID != 3 || creds.User.Role != donation.RoleDonor {
		t.Errorf("unexpected user: %+v", creds.User)
	}
}

func TestRegisterSendsRole(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["role"] != "ROLE_NGO" {
			t.Errorf("expected ROLE_NGO, got %q", body["role"])
		}
		w.Write([]byte(`{"token": "tok", "user": {"id": 8, "role": "ROLE_NGO"}}`))
	})
	creds, err := c.Register(context.Background(), "N", "n@example.com", "pw", donation.RoleNGO)
	if err != nil {
		t.Fatal(err)
	}
	if creds.User.ID != 8 {
		t.Errorf("unexpected user id %d", creds.User.ID)
	}
}

func TestServerMessageBareString(t *testing.T) {
	if got := serverMessage([]byte("Donation not found")); got != "Donation not found" {
		t.Errorf("bare string body not extracted: %q", got)
	}
	if got := serverMessage([]byte(`{"message": "boom"}`)); got != "boom" {
		t.Errorf("message envelope not extracted: %q", got)
	}
	if got := serverMessage([]byte(`{"unrelated": true}`)); got != "" {
		t.Errorf("expected empty message, got %q", got)
	}
}
