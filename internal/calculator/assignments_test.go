package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *AssignmentTable, itemID string) map[string]int64 {
	out := map[string]int64{}
	for m, units := range t.ClaimsFor(itemID) {
		out[m] = units
	}
	return out
}

func TestAssignmentTable(t *testing.T) {
	items := []LineItem{
		{ID: "wings", Name: "Wings", UnitPrice: 300, Quantity: 3},
		{ID: "pitcher", Name: "Pitcher", UnitPrice: 1800, Quantity: 1},
	}

	t.Run("assign and update claims", func(t *testing.T) {
		table := NewAssignmentTable(items)
		require.NoError(t, table.Assign("wings", "alice", 2))
		require.NoError(t, table.Assign("wings", "bob", 1))
		assert.True(t, table.IsFullyAssigned("wings"))

		// Replacing alice's claim frees a unit rather than double counting.
		require.NoError(t, table.Assign("wings", "alice", 1))
		assert.False(t, table.IsFullyAssigned("wings"))
		assert.Equal(t, int64(2), table.ClaimedUnits("wings"))
		assert.Equal(t, map[string]int64{"alice": 1, "bob": 1}, collect(table, "wings"))
	})

	t.Run("over allocation is rejected", func(t *testing.T) {
		table := NewAssignmentTable(items)
		require.NoError(t, table.Assign("wings", "alice", 2))
		err := table.Assign("wings", "bob", 2)
		assert.ErrorIs(t, err, ErrInvalidShare)
		assert.Equal(t, map[string]int64{"alice": 2}, collect(table, "wings"))
	})

	t.Run("bad share units", func(t *testing.T) {
		table := NewAssignmentTable(items)
		assert.ErrorIs(t, table.Assign("wings", "alice", 0), ErrInvalidShare)
		assert.ErrorIs(t, table.Assign("wings", "alice", -1), ErrInvalidShare)
		assert.ErrorIs(t, table.Assign("wings", "", 1), ErrInvalidShare)
	})

	t.Run("unknown item", func(t *testing.T) {
		table := NewAssignmentTable(items)
		assert.ErrorIs(t, table.Assign("fries", "alice", 1), ErrUnknownItem)
		assert.ErrorIs(t, table.Share("fries", "alice"), ErrUnknownItem)
		assert.False(t, table.IsFullyAssigned("fries"))
	})

	t.Run("equal shares", func(t *testing.T) {
		table := NewAssignmentTable(items)
		assert.False(t, table.IsFullyAssigned("pitcher"))
		require.NoError(t, table.Share("pitcher", "carol"))
		require.NoError(t, table.Share("pitcher", "alice"))
		require.NoError(t, table.Share("pitcher", "alice"))
		assert.True(t, table.IsFullyAssigned("pitcher"))
		assert.Equal(t, ShareEqual, table.Mode("pitcher"))
		assert.Equal(t, map[string]int64{"alice": 1, "carol": 1}, collect(table, "pitcher"))

		assert.ErrorIs(t, table.Assign("pitcher", "bob", 1), ErrInvalidShare)
	})

	t.Run("mode resets once the last claim is removed", func(t *testing.T) {
		table := NewAssignmentTable(items)
		require.NoError(t, table.Assign("pitcher", "alice", 1))
		assert.ErrorIs(t, table.Share("pitcher", "bob"), ErrInvalidShare)

		table.Unassign("pitcher", "alice")
		table.Unassign("pitcher", "alice")
		table.Unassign("nothing", "alice")
		assert.Equal(t, ShareMode(""), table.Mode("pitcher"))
		require.NoError(t, table.Share("pitcher", "bob"))
	})

	t.Run("claims sequence is restartable", func(t *testing.T) {
		table := NewAssignmentTable(items)
		require.NoError(t, table.Assign("wings", "bob", 1))
		require.NoError(t, table.Assign("wings", "alice", 1))

		seq := table.ClaimsFor("wings")
		var first, second []string
		for m := range seq {
			first = append(first, m)
		}
		for m := range seq {
			second = append(second, m)
		}
		assert.Equal(t, []string{"alice", "bob"}, first)
		assert.Equal(t, first, second)

		for range seq {
			break
		}
	})

	t.Run("snapshot round trips through load", func(t *testing.T) {
		table := NewAssignmentTable(items)
		require.NoError(t, table.Assign("wings", "bob", 2))
		require.NoError(t, table.Share("pitcher", "alice"))
		require.NoError(t, table.Share("pitcher", "bob"))

		snap := table.Snapshot()
		assert.Equal(t, Assignments{
			"wings":   {Mode: ShareUnits, Claims: []Claim{{MemberID: "bob", Units: 2}}},
			"pitcher": {Mode: ShareEqual, Claims: []Claim{{MemberID: "alice", Units: 1}, {MemberID: "bob", Units: 1}}},
		}, snap)

		loaded, err := LoadAssignmentTable(items, snap)
		require.NoError(t, err)
		assert.Equal(t, snap, loaded.Snapshot())

		// Mutating the table afterwards leaves the snapshot alone.
		table.Unassign("wings", "bob")
		assert.Len(t, snap["wings"].Claims, 1)
	})

	t.Run("load rejects over allocation", func(t *testing.T) {
		_, err := LoadAssignmentTable(items, Assignments{
			"pitcher": {Mode: ShareUnits, Claims: []Claim{{MemberID: "a", Units: 1}, {MemberID: "b", Units: 1}}},
		})
		assert.ErrorIs(t, err, ErrInvalidShare)
	})

	t.Run("load validates modes like ComputeSplit", func(t *testing.T) {
		unknown := Assignments{
			"wings": {Mode: "weighted", Claims: []Claim{{MemberID: "alice", Units: 1}}},
		}
		_, err := LoadAssignmentTable(items, unknown)
		assert.ErrorIs(t, err, ErrInvalidShare)
		_, err = ComputeSplit(items, unknown, ReceiptTotals{})
		assert.ErrorIs(t, err, ErrInvalidShare)

		loaded, err := LoadAssignmentTable(items, Assignments{
			"wings": {Claims: []Claim{{MemberID: "alice", Units: 2}}},
		})
		require.NoError(t, err)
		assert.Equal(t, ShareUnits, loaded.Mode("wings"))
		assert.Equal(t, map[string]int64{"alice": 2}, collect(loaded, "wings"))
	})
}

func TestLineItem(t *testing.T) {
	item := LineItem{ID: "x", Name: "Tacos", UnitPrice: 350, Quantity: 4}
	require.NoError(t, item.Validate())
	assert.Equal(t, int64(1400), item.LineTotal())

	overflow := LineItem{ID: "x", Name: "Yacht", UnitPrice: 1 << 62, Quantity: 4}
	assert.ErrorIs(t, overflow.Validate(), ErrInvalidItem)
}
