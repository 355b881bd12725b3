package calculator

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// ShareMode says how an item's claims are interpreted.
type ShareMode string

const (
	// ShareUnits splits an item by explicit units out of its quantity.
	ShareUnits ShareMode = "units"
	// ShareEqual splits the whole item equally among a set of members.
	ShareEqual ShareMode = "equal"
)

// Valid reports whether m is a known mode.
func (m ShareMode) Valid() bool {
	return m == ShareUnits || m == ShareEqual
}

// Claim is one member's stake in an item.
// Units is ignored in ShareEqual mode.
type Claim struct {
	MemberID string
	Units    int64
}

// ItemClaims holds every claim on a single item.
type ItemClaims struct {
	Mode   ShareMode
	Claims []Claim
}

// Assignments is an immutable snapshot of claims keyed by item id.
// It can also be built by hand; ComputeSplit re-validates it either way.
type Assignments map[string]ItemClaims

// AssignmentTable holds the interactive item -> member distribution for one
// receipt. It is not safe for concurrent mutation; callers own their instance.
type AssignmentTable struct {
	quantities map[string]int64
	modes      map[string]ShareMode
	claims     map[string]map[string]int64
}

// NewAssignmentTable creates an empty table over the given item set.
func NewAssignmentTable(items []LineItem) *AssignmentTable {
	t := &AssignmentTable{
		quantities: make(map[string]int64, len(items)),
		modes:      make(map[string]ShareMode),
		claims:     make(map[string]map[string]int64),
	}
	for _, item := range items {
		t.quantities[item.ID] = item.Quantity
	}
	return t
}

// LoadAssignmentTable rebuilds a table from stored claims, applying the same
// checks as Assign and Share. An empty mode loads as units, as in ComputeSplit.
func LoadAssignmentTable(items []LineItem, assignments Assignments) (*AssignmentTable, error) {
	t := NewAssignmentTable(items)
	for _, itemID := range slices.Sorted(maps.Keys(assignments)) {
		ic := assignments[itemID]
		if ic.Mode != "" && !ic.Mode.Valid() {
			return nil, fmt.Errorf("%w: item %q has unknown mode %q", ErrInvalidShare, itemID, ic.Mode)
		}
		for _, c := range ic.Claims {
			var err error
			if ic.Mode == ShareEqual {
				err = t.Share(itemID, c.MemberID)
			} else {
				err = t.Assign(itemID, c.MemberID, c.Units)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// Assign adds or replaces memberID's claim of shareUnits on an item.
func (t *AssignmentTable) Assign(itemID, memberID string, shareUnits int64) error {
	qty, ok := t.quantities[itemID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	if memberID == "" {
		return fmt.Errorf("%w: empty member id on item %q", ErrInvalidShare, itemID)
	}
	if shareUnits <= 0 {
		return fmt.Errorf("%w: %d units for %q on item %q", ErrInvalidShare, shareUnits, memberID, itemID)
	}
	if mode, ok := t.modes[itemID]; ok && mode != ShareUnits {
		return fmt.Errorf("%w: item %q is already shared equally", ErrInvalidShare, itemID)
	}

	claims := t.claims[itemID]
	others := t.claimedUnits(itemID) - claims[memberID]
	if shareUnits > qty-others {
		return fmt.Errorf("%w: item %q has %d of %d units claimed, cannot add %d",
			ErrInvalidShare, itemID, others, qty, shareUnits)
	}

	if claims == nil {
		claims = make(map[string]int64)
		t.claims[itemID] = claims
	}
	claims[memberID] = shareUnits
	t.modes[itemID] = ShareUnits
	return nil
}

// Share adds memberID to the set of members splitting the whole item equally.
// Sharing an item the member already shares is a no-op.
func (t *AssignmentTable) Share(itemID, memberID string) error {
	if _, ok := t.quantities[itemID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	if memberID == "" {
		return fmt.Errorf("%w: empty member id on item %q", ErrInvalidShare, itemID)
	}
	if mode, ok := t.modes[itemID]; ok && mode != ShareEqual {
		return fmt.Errorf("%w: item %q is already split by units", ErrInvalidShare, itemID)
	}

	claims := t.claims[itemID]
	if claims == nil {
		claims = make(map[string]int64)
		t.claims[itemID] = claims
	}
	claims[memberID] = 1
	t.modes[itemID] = ShareEqual
	return nil
}

// Unassign removes memberID's claim on an item. Missing claims are ignored.
func (t *AssignmentTable) Unassign(itemID, memberID string) {
	claims, ok := t.claims[itemID]
	if !ok {
		return
	}
	delete(claims, memberID)
	if len(claims) == 0 {
		delete(t.claims, itemID)
		delete(t.modes, itemID)
	}
}

// ClaimsFor yields (memberID, shareUnits) for an item in member id order.
// The sequence reads the table when iterated, so it can be ranged over again.
func (t *AssignmentTable) ClaimsFor(itemID string) iter.Seq2[string, int64] {
	return func(yield func(string, int64) bool) {
		claims := t.claims[itemID]
		for _, member := range slices.Sorted(maps.Keys(claims)) {
			if !yield(member, claims[member]) {
				return
			}
		}
	}
}

// Mode returns the share mode of an item, or "" when it has no claims.
func (t *AssignmentTable) Mode(itemID string) ShareMode {
	return t.modes[itemID]
}

// ClaimedUnits returns the number of units claimed on an item.
// Equal-share items count as fully claimed once anyone shares them.
func (t *AssignmentTable) ClaimedUnits(itemID string) int64 {
	if t.modes[itemID] == ShareEqual {
		return t.quantities[itemID]
	}
	return t.claimedUnits(itemID)
}

func (t *AssignmentTable) claimedUnits(itemID string) int64 {
	var sum int64
	for _, units := range t.claims[itemID] {
		sum += units
	}
	return sum
}

// IsFullyAssigned reports whether every unit of the item is claimed.
func (t *AssignmentTable) IsFullyAssigned(itemID string) bool {
	qty, ok := t.quantities[itemID]
	if !ok {
		return false
	}
	return t.ClaimedUnits(itemID) == qty
}

// Snapshot copies the table into an Assignments value with claims sorted by member.
func (t *AssignmentTable) Snapshot() Assignments {
	out := make(Assignments, len(t.claims))
	for itemID, claims := range t.claims {
		ic := ItemClaims{Mode: t.modes[itemID], Claims: make([]Claim, 0, len(claims))}
		for member, units := range t.ClaimsFor(itemID) {
			ic.Claims = append(ic.Claims, Claim{MemberID: member, Units: units})
		}
		out[itemID] = ic
	}
	return out
}
