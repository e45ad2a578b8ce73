package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"foodbridge/internal/donation"
	"foodbridge/internal/query"
)

// pageEnvelope is the Spring-style paginated response shape.
type pageEnvelope struct {
	Content       []donationDTO `json:"content"`
	TotalElements int           `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
}

// decodePage is the single adapter for the service's two response shapes:
// a paging envelope, or a bare array. For a bare array the totals are
// derived locally: totalElements = len(items), totalPages = ceil(total/size).
func decodePage(raw json.RawMessage, size int) (Page, error) {
	if size <= 0 {
		size = query.DefaultSize
	}

	trimmed := firstNonSpace(raw)
	switch trimmed {
	case '[':
		var dtos []donationDTO
		if err := json.Unmarshal(raw, &dtos); err != nil {
			return Page{}, fmt.Errorf("failed to parse donation list: %w", err)
		}
		page := Page{
			Items:         dtosToDomain(dtos),
			TotalElements: len(dtos),
		}
		page.TotalPages = (page.TotalElements + size - 1) / size
		return page, nil

	case '{':
		var env pageEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return Page{}, fmt.Errorf("failed to parse donation page: %w", err)
		}
		page := Page{
			Items:         dtosToDomain(env.Content),
			TotalElements: env.TotalElements,
			TotalPages:    env.TotalPages,
		}
		if page.TotalElements == 0 && len(page.Items) > 0 {
			page.TotalElements = len(page.Items)
		}
		if page.TotalPages == 0 && page.TotalElements > 0 {
			page.TotalPages = (page.TotalElements + size - 1) / size
		}
		return page, nil
	}

	return Page{}, fmt.Errorf("unrecognized donation page shape")
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

func dtosToDomain(dtos []donationDTO) []donation.Donation {
	items := make([]donation.Donation, 0, len(dtos))
	for _, dto := range dtos {
		items = append(items, dto.toDomain())
	}
	return items
}

// FilterDonations fetches one page of donations matching the query state.
func (c *Client) FilterDonations(ctx context.Context, q query.State) (Page, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/donations/filter", q.Params(), nil, &raw); err != nil {
		return Page{}, err
	}
	return decodePage(raw, q.Size)
}

// CountByStatus obtains the authoritative total for one status without
// transferring a full page: a size=1 request used purely for its reported
// total.
func (c *Client) CountByStatus(ctx context.Context, status donation.Status) (int, error) {
	q := query.New()
	q.Size = 1
	q.Filter.Status = status
	page, err := c.FilterDonations(ctx, q)
	if err != nil {
		return 0, err
	}
	return page.TotalElements, nil
}

// GetDonation fetches a single donation by id.
func (c *Client) GetDonation(ctx context.Context, id int64) (donation.Donation, error) {
	var dto donationDTO
	if err := c.do(ctx, http.MethodGet, "/donations/"+strconv.FormatInt(id, 10), nil, nil, &dto); err != nil {
		return donation.Donation{}, err
	}
	return dto.toDomain(), nil
}

// CreateDonation posts a new donation. The server assigns the id and the
// AVAILABLE status.
func (c *Client) CreateDonation(ctx context.Context, d donation.Draft) (donation.Donation, error) {
	var dto donationDTO
	if err := c.do(ctx, http.MethodPost, "/donations", nil, draftToBody(d), &dto); err != nil {
		return donation.Donation{}, err
	}
	return dto.toDomain(), nil
}

// UpdateDonation replaces the editable fields of an existing donation.
func (c *Client) UpdateDonation(ctx context.Context, id int64, d donation.Draft) (donation.Donation, error) {
	var dto donationDTO
	if err := c.do(ctx, http.MethodPut, "/donations/"+strconv.FormatInt(id, 10), nil, draftToBody(d), &dto); err != nil {
		return donation.Donation{}, err
	}
	return dto.toDomain(), nil
}

// DeleteDonation removes a donation. The service replies 204.
func (c *Client) DeleteDonation(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/donations/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// ClaimDonation claims an AVAILABLE donation for the given organization.
func (c *Client) ClaimDonation(ctx context.Context, id, claimantID int64) (donation.Donation, error) {
	q := url.Values{"volunteerId": {strconv.FormatInt(claimantID, 10)}}
	var dto donationDTO
	if err := c.do(ctx, http.MethodPost, "/donations/"+strconv.FormatInt(id, 10)+"/claim", q, nil, &dto); err != nil {
		return donation.Donation{}, err
	}
	return dto.toDomain(), nil
}

// CompleteDonation marks a CLAIMED donation completed.
func (c *Client) CompleteDonation(ctx context.Context, id, claimantID int64) (donation.Donation, error) {
	q := url.Values{"volunteerId": {strconv.FormatInt(claimantID, 10)}}
	var dto donationDTO
	if err := c.do(ctx, http.MethodPost, "/donations/"+strconv.FormatInt(id, 10)+"/complete", q, nil, &dto); err != nil {
		return donation.Donation{}, err
	}
	return dto.toDomain(), nil
}

// UpdateStatus sets a donation's status directly. The client only ever
// issues forward transitions.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status donation.Status) (donation.Donation, error) {
	q := url.Values{"status": {string(status)}}
	var dto donationDTO
	if err := c.do(ctx, http.MethodPut, "/donations/"+strconv.FormatInt(id, 10)+"/status", q, nil, &dto); err != nil {
		return donation.Donation{}, err
	}
	return dto.toDomain(), nil
}
