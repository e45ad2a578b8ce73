package api

import (
	"strconv"
	"strings"
	"time"

	"foodbridge/internal/donation"
)

// flexNumber decodes a JSON number that the service sometimes sends as a
// quoted string. The zero value means absent.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "null" {
		s = ""
	}
	*n = flexNumber(s)
	return nil
}

// Page is one fetched page of donations with the server-reported totals.
// Totals must be treated as possibly stale immediately after a local
// mutation until the next refresh.
type Page struct {
	Items         []donation.Donation
	TotalElements int
	TotalPages    int
}

// donationDTO is the tolerant wire form of a donation. The service is
// inconsistent on several fields: ids and quantities arrive as numbers or
// numeric strings, the expiry date under two names, and the claiming
// organization id under three. Normalization happens in exactly one place,
// toDomain.
type donationDTO struct {
	ID          flexNumber `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Quantity    flexNumber `json:"quantity"`
	Unit        string     `json:"quantityUnit"`
	FoodType    string     `json:"foodType"`
	Location    string     `json:"location"`
	Status      string     `json:"status"`

	CreatedAt      string `json:"createdAt"`
	ExpiryDate     string `json:"expiryDate"`
	ExpirationDate string `json:"expirationDate"`
	ClaimedAt      string `json:"claimedAt"`
	CompletedAt    string `json:"completedAt"`

	DonorID       flexNumber `json:"donorId"`
	DonorName     string     `json:"donorName"`
	ClaimedByID   flexNumber `json:"claimedById"`
	NgoID         flexNumber `json:"ngoId"`
	VolunteerID   flexNumber `json:"volunteerId"`
	ClaimedByName string     `json:"claimedByName"`
}

// wireTimeLayouts are the timestamp formats observed from the service.
var wireTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02",
}

func parseWireTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func numToInt64(n flexNumber) int64 {
	if n == "" {
		return 0
	}
	if v, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return int64(f)
	}
	return 0
}

func numToFloat64(n flexNumber) float64 {
	if n == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return f
	}
	return 0
}

// toDomain normalizes the wire form: quantity coerced to a number, a
// missing unit defaulted to KG, the expiry read from either field name,
// and the claiming organization id taken from whichever field is set.
func (d donationDTO) toDomain() donation.Donation {
	unit := donation.Unit(d.Unit)
	if unit == "" {
		unit = donation.UnitKG
	}

	expiry := d.ExpiryDate
	if expiry == "" {
		expiry = d.ExpirationDate
	}

	claimedBy := numToInt64(d.ClaimedByID)
	if claimedBy == 0 {
		claimedBy = numToInt64(d.NgoID)
	}
	if claimedBy == 0 {
		claimedBy = numToInt64(d.VolunteerID)
	}

	return donation.Donation{
		ID:          numToInt64(d.ID),
		Title:       d.Title,
		Description: d.Description,
		Quantity:    numToFloat64(d.Quantity),
		Unit:        unit,
		FoodType:    donation.FoodType(d.FoodType),
		Location:    d.Location,
		Status:      donation.Status(d.Status),

		CreatedAt:   parseWireTime(d.CreatedAt),
		ExpiryDate:  parseWireTime(expiry),
		ClaimedAt:   parseWireTime(d.ClaimedAt),
		CompletedAt: parseWireTime(d.CompletedAt),

		DonorID:       numToInt64(d.DonorID),
		DonorName:     d.DonorName,
		ClaimedByID:   claimedBy,
		ClaimedByName: d.ClaimedByName,
	}
}

// draftBody is the outbound create/update payload.
type draftBody struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"quantityUnit"`
	FoodType    string  `json:"foodType"`
	Location    string  `json:"location"`
	ExpiryDate  string  `json:"expiryDate,omitempty"`
}

func draftToBody(d donation.Draft) draftBody {
	body := draftBody{
		Title:       d.Title,
		Description: d.Description,
		Quantity:    d.Quantity,
		Unit:        string(d.Unit),
		FoodType:    string(d.FoodType),
		Location:    d.Location,
	}
	if body.Unit == "" {
		body.Unit = string(donation.UnitKG)
	}
	if !d.ExpiryDate.IsZero() {
		body.ExpiryDate = d.ExpiryDate.Format("2006-01-02")
	}
	return body
}

// userDTO tolerates the service's id-as-number-or-string habit for the
// authenticated identity too.
type userDTO struct {
	ID    flexNumber `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  string     `json:"role"`
}

func (u userDTO) toDomain() donation.User {
	return donation.User{
		ID:    numToInt64(u.ID),
		Name:  u.Name,
		Email: u.Email,
		Role:  donation.Role(strings.ToUpper(strings.TrimSpace(u.Role))),
	}
}
