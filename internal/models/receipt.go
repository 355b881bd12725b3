package models

import (
	"maps"
	"slices"

	"github.com/mmynk/receiptsplit/internal/calculator"
)

// Receipt statuses.
const (
	StatusPending   = "pending"
	StatusFinalized = "finalized"
)

// Receipt is a captured bill belonging to a group.
type Receipt struct {
	// ID is the unique identifier for the receipt (UUID format).
	ID string

	GroupID string

	// CreatedBy is the user who captured the receipt. They fronted the bill,
	// so balances treat them as the payer.
	CreatedBy string

	MerchantName string
	Description  string

	// ImageURL points at the receipt photo in the blob store, if any.
	ImageURL string

	// Subtotal is the printed pre-tax amount. Nil means the sum of the items.
	Subtotal *int64

	Tax int64
	Tip int64

	// Status is StatusPending until the split is finalized.
	Status string

	Items  []ReceiptItem
	Claims []ItemClaim

	// Participants holds the finalized split, empty while pending.
	Participants []Participant

	CreatedAt int64
	UpdatedAt int64
}

// ReceiptItem is one priced line on a receipt.
type ReceiptItem struct {
	ID        string
	ReceiptID string
	Name      string

	// UnitPrice is in minor units.
	UnitPrice int64

	Quantity int64

	// Position keeps items in the order they were entered.
	Position int
}

// ItemClaim is a member's stake in an item.
type ItemClaim struct {
	ItemID string
	UserID string

	// Mode is calculator.ShareUnits or calculator.ShareEqual.
	Mode string

	Units int64
}

// Participant is one member's finalized amount owed on a receipt.
type Participant struct {
	ReceiptID string
	UserID    string
	Amount    int64
	IsPaid    bool
}

// Item returns the item with the given ID, or nil.
func (r *Receipt) Item(itemID string) *ReceiptItem {
	for i := range r.Items {
		if r.Items[i].ID == itemID {
			return &r.Items[i]
		}
	}
	return nil
}

// LineItems converts the receipt's items for the calculator.
func (r *Receipt) LineItems() []calculator.LineItem {
	items := make([]calculator.LineItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = calculator.LineItem{
			ID:        it.ID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		}
	}
	return items
}

// Assignments groups the stored claims by item for the calculator.
func (r *Receipt) Assignments() calculator.Assignments {
	out := make(calculator.Assignments)
	for _, c := range r.Claims {
		ic := out[c.ItemID]
		ic.Mode = calculator.ShareMode(c.Mode)
		ic.Claims = append(ic.Claims, calculator.Claim{MemberID: c.UserID, Units: c.Units})
		out[c.ItemID] = ic
	}
	return out
}

// Totals returns the receipt-level amounts for the calculator.
func (r *Receipt) Totals() calculator.ReceiptTotals {
	return calculator.ReceiptTotals{
		Subtotal: r.Subtotal,
		Tax:      r.Tax,
		Tip:      r.Tip,
	}
}

// Split computes the current split from the stored items and claims.
func (r *Receipt) Split() (*calculator.SplitResult, error) {
	return calculator.ComputeSplit(r.LineItems(), r.Assignments(), r.Totals())
}

// ClaimsFromTable flattens an assignment table into storable claims.
func ClaimsFromTable(t *calculator.AssignmentTable) []ItemClaim {
	var claims []ItemClaim
	snap := t.Snapshot()
	for _, itemID := range slices.Sorted(maps.Keys(snap)) {
		ic := snap[itemID]
		for _, c := range ic.Claims {
			claims = append(claims, ItemClaim{
				ItemID: itemID,
				UserID: c.MemberID,
				Mode:   string(ic.Mode),
				Units:  c.Units,
			})
		}
	}
	return claims
}
