package calculator

import (
	"fmt"
	"math"
	"strings"
)

// LineItem is one priced entry on a receipt.
// Amounts are integer minor currency units (cents).
type LineItem struct {
	ID        string
	Name      string
	UnitPrice int64
	Quantity  int64
}

// LineTotal returns UnitPrice * Quantity.
func (i LineItem) LineTotal() int64 {
	return i.UnitPrice * i.Quantity
}

// Validate checks the item is well formed.
func (i LineItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: item %q has an empty name", ErrInvalidItem, i.ID)
	}
	if i.UnitPrice < 0 {
		return fmt.Errorf("%w: item %q has negative unit price %d", ErrInvalidItem, i.ID, i.UnitPrice)
	}
	if i.Quantity <= 0 {
		return fmt.Errorf("%w: item %q has quantity %d", ErrInvalidItem, i.ID, i.Quantity)
	}
	if i.UnitPrice > 0 && i.Quantity > math.MaxInt64/i.UnitPrice {
		return fmt.Errorf("%w: item %q line total overflows", ErrInvalidItem, i.ID)
	}
	return nil
}

// validateItems validates every item and indexes them by id.
func validateItems(items []LineItem) (map[string]LineItem, error) {
	byID := make(map[string]LineItem, len(items))
	var sum int64
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %q", ErrInvalidItem, item.ID)
		}
		if sum > math.MaxInt64-item.LineTotal() {
			return nil, fmt.Errorf("%w: receipt item total overflows", ErrInvalidItem)
		}
		sum += item.LineTotal()
		byID[item.ID] = item
	}
	return byID, nil
}
