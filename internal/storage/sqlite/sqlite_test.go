package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "receiptsplit-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createGroup(t *testing.T, store *SQLiteStore, members ...string) *models.Group {
	t.Helper()
	group := &models.Group{Name: "Dinner Club", CreatedBy: members[0]}
	for i, m := range members {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleOwner
		}
		group.Members = append(group.Members, models.GroupMember{UserID: m, Role: role})
	}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return group
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("ana@example.com", "Ana", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := store.GetUserByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != user.ID || got.DisplayName != "Ana" {
		t.Errorf("GetUserByEmail = %+v, want %+v", got, user)
	}

	if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUserByID(missing) error = %v, want ErrNotFound", err)
	}

	if err := store.CreateUser(ctx, models.NewUser("ana@example.com", "Other", "hash")); err == nil {
		t.Error("Expected duplicate email to fail")
	}

	users, err := store.GetUsersByIDs(ctx, []string{user.ID, "missing"})
	if err != nil {
		t.Fatalf("GetUsersByIDs failed: %v", err)
	}
	if len(users) != 1 || users[user.ID] == nil {
		t.Errorf("GetUsersByIDs = %v, want only %s", users, user.ID)
	}
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := createGroup(t, store, "alice", "bob")
	if group.ID == "" {
		t.Fatal("Expected group ID to be generated")
	}

	t.Run("AddGroupMembers skips existing members", func(t *testing.T) {
		if err := store.AddGroupMembers(ctx, group.ID, []string{"bob", "carol"}); err != nil {
			t.Fatalf("AddGroupMembers failed: %v", err)
		}
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if len(got.Members) != 3 {
			t.Errorf("Members = %v, want 3", got.MemberIDs())
		}
		if !got.HasMember("carol") {
			t.Error("Expected carol to be a member")
		}
	})

	t.Run("ListGroupsForUser", func(t *testing.T) {
		createGroup(t, store, "carol")
		groups, err := store.ListGroupsForUser(ctx, "carol")
		if err != nil {
			t.Fatalf("ListGroupsForUser failed: %v", err)
		}
		if len(groups) != 2 {
			t.Errorf("ListGroupsForUser(carol) returned %d groups, want 2", len(groups))
		}
	})

	t.Run("RemoveGroupMember", func(t *testing.T) {
		if err := store.RemoveGroupMember(ctx, group.ID, "carol"); err != nil {
			t.Fatalf("RemoveGroupMember failed: %v", err)
		}
		if err := store.RemoveGroupMember(ctx, group.ID, "carol"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second RemoveGroupMember error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateGroup", func(t *testing.T) {
		group.Name = "Supper Club"
		group.Description = "Thursdays"
		if err := store.UpdateGroup(ctx, group); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "Supper Club" || got.Description != "Thursdays" {
			t.Errorf("after update: %q / %q", got.Name, got.Description)
		}
		if err := store.UpdateGroup(ctx, &models.Group{ID: "nope"}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("UpdateGroup on missing group error = %v, want ErrNotFound", err)
		}
	})

	t.Run("AddGroupMembers to missing group", func(t *testing.T) {
		err := store.AddGroupMembers(ctx, "nope", []string{"x"})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

// edit runs fn through EditReceipt and fails the test on error.
func edit(t *testing.T, store *SQLiteStore, receiptID string, fn func(*models.Receipt, storage.ReceiptTx) error) {
	t.Helper()
	if err := store.EditReceipt(context.Background(), receiptID, fn); err != nil {
		t.Fatalf("EditReceipt failed: %v", err)
	}
}

func TestReceipts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "alice", "bob")

	subtotal := int64(3000)
	receipt := &models.Receipt{
		GroupID:      group.ID,
		CreatedBy:    "alice",
		MerchantName: "Luigi's",
		Subtotal:     &subtotal,
		Tax:          300,
		Items: []models.ReceiptItem{
			{Name: "Pizza", UnitPrice: 2000, Quantity: 1},
			{Name: "Beer", UnitPrice: 500, Quantity: 2},
		},
	}

	t.Run("CreateReceipt generates IDs", func(t *testing.T) {
		if err := store.CreateReceipt(ctx, receipt); err != nil {
			t.Fatalf("CreateReceipt failed: %v", err)
		}
		if receipt.ID == "" || receipt.Items[0].ID == "" {
			t.Fatal("Expected receipt and item IDs to be generated")
		}
		if receipt.Status != models.StatusPending {
			t.Errorf("Status = %q, want pending", receipt.Status)
		}
	})

	t.Run("GetReceipt retrieves complete receipt", func(t *testing.T) {
		edit(t, store, receipt.ID, func(_ *models.Receipt, tx storage.ReceiptTx) error {
			return tx.ReplaceClaims([]models.ItemClaim{
				{ItemID: receipt.Items[0].ID, UserID: "alice", Mode: "equal", Units: 1},
				{ItemID: receipt.Items[0].ID, UserID: "bob", Mode: "equal", Units: 1},
				{ItemID: receipt.Items[1].ID, UserID: "bob", Mode: "units", Units: 2},
			})
		})

		got, err := store.GetReceipt(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if got.MerchantName != "Luigi's" || got.Tax != 300 {
			t.Errorf("header mismatch: %+v", got)
		}
		if got.Subtotal == nil || *got.Subtotal != 3000 {
			t.Errorf("Subtotal = %v, want 3000", got.Subtotal)
		}
		if len(got.Items) != 2 || got.Items[1].Name != "Beer" || got.Items[1].Quantity != 2 {
			t.Errorf("Items = %+v", got.Items)
		}
		if len(got.Claims) != 3 {
			t.Errorf("Claims count = %d, want 3", len(got.Claims))
		}

		split, err := got.Split()
		if err != nil {
			t.Fatalf("Split failed: %v", err)
		}
		if split.PerMember["alice"] != 1100 || split.PerMember["bob"] != 2200 {
			t.Errorf("PerMember = %v, want alice 1100, bob 2200", split.PerMember)
		}
	})

	t.Run("failed edit rolls back", func(t *testing.T) {
		errBoom := errors.New("boom")
		err := store.EditReceipt(ctx, receipt.ID, func(_ *models.Receipt, tx storage.ReceiptTx) error {
			if err := tx.ReplaceClaims(nil); err != nil {
				return err
			}
			return errBoom
		})
		if !errors.Is(err, errBoom) {
			t.Fatalf("EditReceipt error = %v, want errBoom", err)
		}
		got, err := store.GetReceipt(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if len(got.Claims) != 3 {
			t.Errorf("Claims count after rollback = %d, want 3", len(got.Claims))
		}
	})

	t.Run("finalize then edit reopens", func(t *testing.T) {
		edit(t, store, receipt.ID, func(_ *models.Receipt, tx storage.ReceiptTx) error {
			if err := tx.Finalize([]models.Participant{
				{UserID: "alice", Amount: 1100},
				{UserID: "bob", Amount: 2200},
			}); err != nil {
				return err
			}
			return tx.SetParticipantPaid("bob", true)
		})

		got, err := store.GetReceipt(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if got.Status != models.StatusFinalized || len(got.Participants) != 2 || !got.Participants[1].IsPaid {
			t.Errorf("after finalize: status %q, participants %+v", got.Status, got.Participants)
		}

		var added []models.ReceiptItem
		edit(t, store, receipt.ID, func(_ *models.Receipt, tx storage.ReceiptTx) error {
			var err error
			added, err = tx.AddItems([]models.ReceiptItem{{Name: "Tiramisu", UnitPrice: 800, Quantity: 1}})
			return err
		})
		if added[0].ID == "" || added[0].Position != 2 {
			t.Errorf("added item = %+v, want ID and position 2", added[0])
		}

		got, err = store.GetReceipt(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if got.Status != models.StatusPending || len(got.Participants) != 0 {
			t.Errorf("after edit: status %q, participants %+v", got.Status, got.Participants)
		}
	})

	t.Run("SetParticipantPaid requires a participant", func(t *testing.T) {
		err := store.EditReceipt(ctx, receipt.ID, func(_ *models.Receipt, tx storage.ReceiptTx) error {
			return tx.SetParticipantPaid("bob", true)
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteItem cascades claims", func(t *testing.T) {
		edit(t, store, receipt.ID, func(_ *models.Receipt, tx storage.ReceiptTx) error {
			return tx.DeleteItem(receipt.Items[1].ID)
		})
		got, err := store.GetReceipt(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if len(got.Items) != 2 || len(got.Claims) != 2 {
			t.Errorf("after delete: %d items, %d claims; want 2 and 2", len(got.Items), len(got.Claims))
		}
		err = store.EditReceipt(ctx, receipt.ID, func(_ *models.Receipt, tx storage.ReceiptTx) error {
			return tx.DeleteItem(receipt.Items[1].ID)
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second DeleteItem error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateItem, UpdateHeader and SetImage", func(t *testing.T) {
		edit(t, store, receipt.ID, func(r *models.Receipt, tx storage.ReceiptTx) error {
			item := *r.Item(receipt.Items[0].ID)
			item.UnitPrice = 2100
			if err := tx.UpdateItem(&item); err != nil {
				return err
			}
			r.Subtotal = nil
			r.Tip = 150
			if err := tx.UpdateHeader(r); err != nil {
				return err
			}
			return tx.SetImage("http://blobs.test/receipts/x.jpg")
		})

		got, err := store.GetReceipt(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if got.Items[0].UnitPrice != 2100 || got.Subtotal != nil || got.Tip != 150 {
			t.Errorf("after update: item %+v, subtotal %v, tip %d", got.Items[0], got.Subtotal, got.Tip)
		}
		if got.ImageURL != "http://blobs.test/receipts/x.jpg" {
			t.Errorf("ImageURL = %q", got.ImageURL)
		}
	})

	t.Run("RemoveGroupMember drops pending claims", func(t *testing.T) {
		if err := store.RemoveGroupMember(ctx, group.ID, "bob"); err != nil {
			t.Fatalf("RemoveGroupMember failed: %v", err)
		}
		got, err := store.GetReceipt(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		for _, c := range got.Claims {
			if c.UserID == "bob" {
				t.Errorf("claim %+v survived member removal", c)
			}
		}
	})

	t.Run("ListReceiptsByGroup and group delete cascade", func(t *testing.T) {
		list, err := store.ListReceiptsByGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListReceiptsByGroup failed: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("ListReceiptsByGroup returned %d, want 1", len(list))
		}

		if err := store.DeleteGroup(ctx, group.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if _, err := store.GetReceipt(ctx, receipt.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetReceipt after group delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("GetReceipt returns error for nonexistent receipt", func(t *testing.T) {
		if _, err := store.GetReceipt(ctx, "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
		err := store.EditReceipt(ctx, "nonexistent-id", func(*models.Receipt, storage.ReceiptTx) error {
			t.Error("fn called for a missing receipt")
			return nil
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("EditReceipt error = %v, want ErrNotFound", err)
		}
	})
}

func TestDeleteReceipt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "alice")

	receipt := &models.Receipt{
		GroupID:   group.ID,
		CreatedBy: "alice",
		Items:     []models.ReceiptItem{{Name: "Soup", UnitPrice: 900, Quantity: 1}},
	}
	if err := store.CreateReceipt(ctx, receipt); err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}
	edit(t, store, receipt.ID, func(_ *models.Receipt, tx storage.ReceiptTx) error {
		return tx.Delete()
	})
	if _, err := store.GetReceipt(ctx, receipt.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetReceipt after delete error = %v, want ErrNotFound", err)
	}
}

func TestReopenDropsFormerMemberClaims(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "alice", "bob")

	receipt := &models.Receipt{
		GroupID:   group.ID,
		CreatedBy: "alice",
		Items: []models.ReceiptItem{
			{Name: "Pizza", UnitPrice: 2000, Quantity: 1},
			{Name: "Beer", UnitPrice: 500, Quantity: 2},
		},
	}
	if err := store.CreateReceipt(ctx, receipt); err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}
	pizza, beer := receipt.Items[0].ID, receipt.Items[1].ID

	edit(t, store, receipt.ID, func(_ *models.Receipt, tx storage.ReceiptTx) error {
		if err := tx.ReplaceClaims([]models.ItemClaim{
			{ItemID: pizza, UserID: "alice", Mode: "units", Units: 1},
			{ItemID: beer, UserID: "bob", Mode: "units", Units: 2},
		}); err != nil {
			return err
		}
		return tx.Finalize([]models.Participant{
			{UserID: "alice", Amount: 2000},
			{UserID: "bob", Amount: 1000},
		})
	})

	// Finalized claims stay frozen when a member leaves.
	if err := store.RemoveGroupMember(ctx, group.ID, "bob"); err != nil {
		t.Fatalf("RemoveGroupMember failed: %v", err)
	}
	got, err := store.GetReceipt(ctx, receipt.ID)
	if err != nil {
		t.Fatalf("GetReceipt failed: %v", err)
	}
	if len(got.Claims) != 2 || len(got.Participants) != 2 {
		t.Fatalf("finalized receipt changed: claims %+v, participants %+v", got.Claims, got.Participants)
	}

	edit(t, store, receipt.ID, func(r *models.Receipt, tx storage.ReceiptTx) error {
		ids, err := tx.GroupMemberIDs()
		if err != nil {
			return err
		}
		if len(ids) != 1 || ids[0] != "alice" {
			t.Errorf("GroupMemberIDs = %v, want [alice]", ids)
		}
		r.Tip = 100
		return tx.UpdateHeader(r)
	})

	got, err = store.GetReceipt(ctx, receipt.ID)
	if err != nil {
		t.Fatalf("GetReceipt failed: %v", err)
	}
	if got.Status != models.StatusPending || len(got.Participants) != 0 {
		t.Errorf("after reopen: status %q, participants %+v", got.Status, got.Participants)
	}
	if len(got.Claims) != 1 || got.Claims[0].UserID != "alice" {
		t.Errorf("claims after reopen = %+v, want only alice", got.Claims)
	}
}
