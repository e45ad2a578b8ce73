// Package donation defines the domain model shared by the API client, the
// sync engine and the UI: the Donation entity, its enumerations, and
// client-side draft validation.
package donation

import (
	"time"
)

// Status is the lifecycle state of a donation. Transitions are strictly
// forward: AVAILABLE -> CLAIMED -> COMPLETED. The client never issues a
// reverse transition.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusClaimed   Status = "CLAIMED"
	StatusCompleted Status = "COMPLETED"
)

// AllStatuses lists the lifecycle states in forward order.
var AllStatuses = []Status{StatusAvailable, StatusClaimed, StatusCompleted}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusClaimed, StatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the forward step s -> next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusAvailable:
		return next == StatusClaimed
	case StatusClaimed:
		return next == StatusCompleted
	}
	return false
}

// Label returns a human-readable name for the status.
func (s Status) Label() string {
	return titleFromEnum(string(s))
}

// Unit is the quantity unit of a donation.
type Unit string

const (
	UnitKG      Unit = "KG"
	UnitPieces  Unit = "PIECES"
	UnitLiters  Unit = "LITERS"
	UnitPackets Unit = "PACKETS"
	UnitCans    Unit = "CANS"
)

// AllUnits lists the quantity units in form order.
var AllUnits = []Unit{UnitKG, UnitPieces, UnitLiters, UnitPackets, UnitCans}

// FoodType categorizes the donated goods.
type FoodType string

const (
	FoodFruitsVegetables FoodType = "FRUITS_VEGETABLES"
	FoodDairy            FoodType = "DAIRY"
	FoodBakedGoods       FoodType = "BAKED_GOODS"
	FoodMeatFish         FoodType = "MEAT_FISH"
	FoodCannedFood       FoodType = "CANNED_FOOD"
	FoodOther            FoodType = "OTHER"
)

// AllFoodTypes lists the food categories in form order.
var AllFoodTypes = []FoodType{
	FoodFruitsVegetables,
	FoodDairy,
	FoodBakedGoods,
	FoodMeatFish,
	FoodCannedFood,
	FoodOther,
}

// Label returns a human-readable name for the food type
// ("FRUITS_VEGETABLES" -> "Fruits Vegetables").
func (f FoodType) Label() string {
	return titleFromEnum(string(f))
}

// Label returns a human-readable name for the unit.
func (u Unit) Label() string {
	return titleFromEnum(string(u))
}

func titleFromEnum(s string) string {
	out := make([]byte, 0, len(s))
	upper := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			out = append(out, ' ')
			upper = true
			continue
		}
		if upper {
			out = append(out, c)
			upper = false
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// Role is the fixed identity role assigned at registration. It determines
// which dashboard renders and which mutation verbs are available.
type Role string

const (
	RoleDonor Role = "ROLE_DONOR"
	RoleNGO   Role = "ROLE_NGO"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleDonor || r == RoleNGO
}

// User is an authenticated identity.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Donation is the central entity: a posted offer of food goods moving
// through AVAILABLE -> CLAIMED -> COMPLETED.
type Donation struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	Unit        Unit     `json:"quantityUnit"`
	FoodType    FoodType `json:"foodType"`
	Location    string   `json:"location"`
	Status      Status   `json:"status"`

	CreatedAt   time.Time `json:"createdAt,omitzero"`
	ExpiryDate  time.Time `json:"expiryDate,omitzero"`
	ClaimedAt   time.Time `json:"claimedAt,omitzero"`
	CompletedAt time.Time `json:"completedAt,omitzero"`

	DonorID       int64  `json:"donorId,omitempty"`
	DonorName     string `json:"donorName,omitempty"`
	ClaimedByID   int64  `json:"claimedById,omitempty"`
	ClaimedByName string `json:"claimedByName,omitempty"`
}

// Expired reports whether the donation carries an expiry date that has
// already passed.
func (d Donation) Expired() bool {
	return !d.ExpiryDate.IsZero() && d.ExpiryDate.Before(time.Now())
}

// Counts aggregates donations by lifecycle state for a dashboard.
type Counts struct {
	Available int
	Claimed   int
	Completed int
	Total     int
}

// ByStatus returns the count for a single state.
func (c Counts) ByStatus(s Status) int {
	switch s {
	case StatusAvailable:
		return c.Available
	case StatusClaimed:
		return c.Claimed
	case StatusCompleted:
		return c.Completed
	}
	return 0
}

// SetStatus sets the count for a single state and recomputes Total.
func (c *Counts) SetStatus(s Status, n int) {
	switch s {
	case StatusAvailable:
		c.Available = n
	case StatusClaimed:
		c.Claimed = n
	case StatusCompleted:
		c.Completed = n
	}
	c.Total = c.Available + c.Claimed + c.Completed
}

// Shift moves one donation between states in the speculative count view.
// Total is unchanged: the donation still exists, only its bucket moved.
func (c *Counts) Shift(from, to Status) {
	c.SetStatus(from, c.ByStatus(from)-1)
	c.SetStatus(to, c.ByStatus(to)+1)
}
