package calculator

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"math/bits"
	"slices"
)

// ReceiptTotals carries the receipt-level amounts. A nil Subtotal means the
// sum of the line totals.
type ReceiptTotals struct {
	Subtotal *int64
	Tax      int64
	Tip      int64
}

// ItemPortion is one member's part of one item.
type ItemPortion struct {
	ItemID string
	Name   string
	Units  int64
	Amount int64
}

// MemberShare is one member's calculated share of a receipt.
type MemberShare struct {
	MemberID string

	// ItemSubtotal is this member's part of the receipt subtotal. It equals
	// the sum of Items unless a stated subtotal rescales the item prices.
	ItemSubtotal int64

	// Extras is this member's proportional share of tax and tip.
	Extras int64

	// Total is ItemSubtotal + Extras.
	Total int64

	Items []ItemPortion
}

// SplitResult is the output of ComputeSplit. Every call builds a new one.
type SplitResult struct {
	// PerMember maps member id to the amount owed.
	PerMember map[string]int64

	// Shares is the per-member breakdown, sorted by member id.
	Shares []MemberShare

	// UnassignedItems lists, in id order, items with an unclaimed portion.
	UnassignedItems []string

	// UnallocatedAmount is the part of Total not owed by any member.
	UnallocatedAmount int64

	Subtotal int64
	Tax      int64
	Tip      int64
	Total    int64
}

// Ready reports whether the whole receipt is owed by members.
func (r *SplitResult) Ready() bool {
	return r.UnallocatedAmount == 0 && len(r.UnassignedItems) == 0 && len(r.PerMember) > 0
}

// ComputeSplit turns items and claims into per-member owed amounts.
//
// Each item's line total is divided among its claimants by share units, floored
// to whole minor units, with the leftover units handed out one at a time by
// largest fractional remainder (ties go to the lower member id). The unclaimed
// part of an item takes part in the same division but is owed by nobody.
// A stated subtotal that differs from the item sum is spread pro rata over
// the item portions, the unclaimed ones included. Tax and tip are then
// spread over members in proportion to their item portions with the same
// rule. The result always satisfies
//
//	sum(PerMember) + UnallocatedAmount == Subtotal + Tax + Tip
//
// ComputeSplit is pure and safe for concurrent use.
func ComputeSplit(items []LineItem, assignments Assignments, totals ReceiptTotals) (*SplitResult, error) {
	byID, err := validateItems(items)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	if err := validateAssignments(byID, assignments); err != nil {
		return nil, &ValidationError{Err: err}
	}

	var itemsTotal int64
	for _, item := range items {
		itemsTotal += item.LineTotal()
	}
	subtotal := itemsTotal
	if totals.Subtotal != nil {
		subtotal = *totals.Subtotal
	}
	total, err := grandTotal(subtotal, totals.Tax, totals.Tip)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}

	result := &SplitResult{
		PerMember:       make(map[string]int64),
		UnassignedItems: []string{},
		Subtotal:        subtotal,
		Tax:             totals.Tax,
		Tip:             totals.Tip,
		Total:           total,
	}

	shares := make(map[string]*MemberShare)
	var assigned int64
	for _, itemID := range slices.Sorted(maps.Keys(byID)) {
		item := byID[itemID]
		entries, denom, unclaimed := itemEntries(item, assignments[itemID])
		if unclaimed {
			result.UnassignedItems = append(result.UnassignedItems, itemID)
		}
		amounts := apportion(item.LineTotal(), entries, denom)
		for i, e := range entries {
			if e.unclaimed {
				continue
			}
			share, ok := shares[e.key]
			if !ok {
				share = &MemberShare{MemberID: e.key}
				shares[e.key] = share
			}
			share.ItemSubtotal += amounts[i]
			share.Items = append(share.Items, ItemPortion{
				ItemID: itemID,
				Name:   item.Name,
				Units:  e.weight,
				Amount: amounts[i],
			})
			assigned += amounts[i]
		}
	}

	if assigned == 0 {
		result.UnallocatedAmount = total
		return result, nil
	}

	members := slices.Sorted(maps.Keys(shares))
	entries := make([]entry, len(members))
	for i, m := range members {
		entries[i] = entry{key: m, weight: shares[m].ItemSubtotal}
	}
	extras := apportion(totals.Tax+totals.Tip, entries, assigned)

	if subtotal != itemsTotal {
		scaled := apportion(subtotal, append(slices.Clone(entries),
			entry{weight: itemsTotal - assigned, unclaimed: true}), itemsTotal)
		for i, m := range members {
			shares[m].ItemSubtotal = scaled[i]
		}
	}

	var owed int64
	result.Shares = make([]MemberShare, len(members))
	for i, m := range members {
		share := shares[m]
		share.Extras = extras[i]
		share.Total = share.ItemSubtotal + share.Extras
		result.PerMember[m] = share.Total
		result.Shares[i] = *share
		owed += share.Total
	}
	result.UnallocatedAmount = total - owed
	return result, nil
}

// entry is one recipient in an apportionment.
type entry struct {
	key       string
	weight    int64
	unclaimed bool
}

// itemEntries lists an item's claimants plus, when part of the item is not
// claimed, an unclaimed entry. The weights always sum to the returned denominator.
func itemEntries(item LineItem, ic ItemClaims) ([]entry, int64, bool) {
	if len(ic.Claims) == 0 {
		return []entry{{weight: item.Quantity, unclaimed: true}}, item.Quantity, true
	}

	entries := make([]entry, 0, len(ic.Claims)+1)
	if ic.Mode == ShareEqual {
		for _, c := range ic.Claims {
			entries = append(entries, entry{key: c.MemberID, weight: 1})
		}
		return entries, int64(len(entries)), false
	}

	var claimed int64
	for _, c := range ic.Claims {
		entries = append(entries, entry{key: c.MemberID, weight: c.Units})
		claimed += c.Units
	}
	if claimed < item.Quantity {
		entries = append(entries, entry{weight: item.Quantity - claimed, unclaimed: true})
		return entries, item.Quantity, true
	}
	return entries, item.Quantity, false
}

// apportion divides amount across entries in proportion weight/denom.
// The weights must sum to denom. Each entry gets the floor of its exact share;
// the remaining minor units go one each to the entries with the largest
// remainders, members before the unclaimed entry, then by ascending key.
func apportion(amount int64, entries []entry, denom int64) []int64 {
	out := make([]int64, len(entries))
	if amount == 0 || denom == 0 {
		return out
	}

	rems := make([]int64, len(entries))
	var given int64
	for i, e := range entries {
		q, r := mulDiv(amount, e.weight, denom)
		out[i] = q
		rems[i] = r
		given += q
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if c := cmp.Compare(rems[b], rems[a]); c != 0 {
			return c
		}
		if entries[a].unclaimed != entries[b].unclaimed {
			if entries[a].unclaimed {
				return 1
			}
			return -1
		}
		return cmp.Compare(entries[a].key, entries[b].key)
	})

	for i := int64(0); i < amount-given; i++ {
		out[order[i]]++
	}
	return out
}

// mulDiv returns a*b/d and a*b%d without overflowing. It requires
// 0 <= b <= d and a >= 0, which bounds the quotient by a.
func mulDiv(a, b, d int64) (int64, int64) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, r := bits.Div64(hi, lo, uint64(d))
	return int64(q), int64(r)
}

func grandTotal(subtotal, tax, tip int64) (int64, error) {
	if subtotal < 0 || tax < 0 || tip < 0 {
		return 0, fmt.Errorf("%w: subtotal %d, tax %d, tip %d must not be negative",
			ErrInvalidTotals, subtotal, tax, tip)
	}
	if tax > math.MaxInt64-tip || subtotal > math.MaxInt64-tax-tip {
		return 0, fmt.Errorf("%w: total overflows", ErrInvalidTotals)
	}
	return subtotal + tax + tip, nil
}

// validateAssignments checks externally built claims against the item set.
func validateAssignments(items map[string]LineItem, assignments Assignments) error {
	for _, itemID := range slices.Sorted(maps.Keys(assignments)) {
		item, ok := items[itemID]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
		}
		ic := assignments[itemID]
		if ic.Mode != "" && !ic.Mode.Valid() {
			return fmt.Errorf("%w: item %q has unknown mode %q", ErrInvalidShare, itemID, ic.Mode)
		}

		seen := make(map[string]bool, len(ic.Claims))
		var claimed int64
		for _, c := range ic.Claims {
			if c.MemberID == "" {
				return fmt.Errorf("%w: empty member id on item %q", ErrInvalidShare, itemID)
			}
			if seen[c.MemberID] {
				return fmt.Errorf("%w: member %q appears twice on item %q", ErrInvalidShare, c.MemberID, itemID)
			}
			seen[c.MemberID] = true
			if ic.Mode == ShareEqual {
				continue
			}
			if c.Units <= 0 {
				return fmt.Errorf("%w: %d units for %q on item %q", ErrInvalidShare, c.Units, c.MemberID, itemID)
			}
			if c.Units > item.Quantity-claimed {
				return fmt.Errorf("%w: claims on item %q exceed quantity %d", ErrInvalidShare, itemID, item.Quantity)
			}
			claimed += c.Units
		}
	}
	return nil
}
