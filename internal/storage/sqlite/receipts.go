package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateReceipt persists a new receipt with its items and any initial claims.
func (s *SQLiteStore) CreateReceipt(ctx context.Context, receipt *models.Receipt) error {
	// Generate IDs if not set
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.CreatedAt == 0 {
		receipt.CreatedAt = time.Now().Unix()
	}
	receipt.UpdatedAt = receipt.CreatedAt
	if receipt.Status == "" {
		receipt.Status = models.StatusPending
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO receipts (id, group_id, created_by, merchant_name, description, image_url,
			 subtotal, tax, tip, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			receipt.ID, receipt.GroupID, receipt.CreatedBy, receipt.MerchantName, receipt.Description,
			receipt.ImageURL, nullableInt(receipt.Subtotal), receipt.Tax, receipt.Tip, receipt.Status,
			receipt.CreatedAt, receipt.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert receipt: %w", err)
		}

		for i := range receipt.Items {
			item := &receipt.Items[i]
			item.ReceiptID = receipt.ID
			item.Position = i
			if err := insertItem(ctx, tx, item); err != nil {
				return err
			}
		}

		return insertClaims(ctx, tx, receipt.Claims)
	})
}

// GetReceipt retrieves a receipt by ID with items, claims and participants.
func (s *SQLiteStore) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error) {
	return loadReceipt(ctx, s.db, receiptID)
}

// ListReceiptsByGroup returns the group's receipts, newest first.
func (s *SQLiteStore) ListReceiptsByGroup(ctx context.Context, groupID string) ([]*models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM receipts WHERE group_id = ? ORDER BY created_at DESC, id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan receipt id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}

	receipts := make([]*models.Receipt, 0, len(ids))
	for _, id := range ids {
		r, err := loadReceipt(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}

// EditReceipt loads a receipt and runs fn with it inside one immediate
// transaction. fn's writes go through tx and commit together.
func (s *SQLiteStore) EditReceipt(ctx context.Context, receiptID string, fn func(*models.Receipt, storage.ReceiptTx) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		receipt, err := loadReceipt(ctx, tx, receiptID)
		if err != nil {
			return err
		}
		return fn(receipt, &receiptTx{ctx: ctx, tx: tx, id: receiptID})
	})
}

// receiptTx implements storage.ReceiptTx for one receipt.
type receiptTx struct {
	ctx context.Context
	tx  *sql.Tx
	id  string
}

var _ storage.ReceiptTx = (*receiptTx)(nil)

// UpdateHeader updates header fields and reopens the receipt.
func (r *receiptTx) UpdateHeader(receipt *models.Receipt) error {
	res, err := r.tx.ExecContext(r.ctx,
		`UPDATE receipts SET merchant_name = ?, description = ?, subtotal = ?, tax = ?, tip = ?
		 WHERE id = ?`,
		receipt.MerchantName, receipt.Description, nullableInt(receipt.Subtotal),
		receipt.Tax, receipt.Tip, r.id,
	)
	if err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}
	if err := requireAffected(res, "receipt", r.id); err != nil {
		return err
	}
	return reopen(r.ctx, r.tx, r.id)
}

// AddItems appends items to the receipt and returns them with IDs assigned.
// Items that already carry an ID keep it.
func (r *receiptTx) AddItems(items []models.ReceiptItem) ([]models.ReceiptItem, error) {
	if err := reopen(r.ctx, r.tx, r.id); err != nil {
		return nil, err
	}

	var next int
	err := r.tx.QueryRowContext(r.ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM receipt_items WHERE receipt_id = ?",
		r.id,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("failed to read item position: %w", err)
	}

	out := make([]models.ReceiptItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].ReceiptID = r.id
		out[i].Position = next + i
		if err := insertItem(r.ctx, r.tx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateItem updates an item's name, price and quantity.
func (r *receiptTx) UpdateItem(item *models.ReceiptItem) error {
	res, err := r.tx.ExecContext(r.ctx,
		"UPDATE receipt_items SET name = ?, unit_price = ?, quantity = ? WHERE id = ? AND receipt_id = ?",
		item.Name, item.UnitPrice, item.Quantity, item.ID, r.id,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if err := requireAffected(res, "item", item.ID); err != nil {
		return err
	}
	return reopen(r.ctx, r.tx, r.id)
}

// DeleteItem removes an item and its claims.
func (r *receiptTx) DeleteItem(itemID string) error {
	res, err := r.tx.ExecContext(r.ctx,
		"DELETE FROM receipt_items WHERE id = ? AND receipt_id = ?",
		itemID, r.id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if err := requireAffected(res, "item", itemID); err != nil {
		return err
	}
	return reopen(r.ctx, r.tx, r.id)
}

// ReplaceClaims swaps the receipt's whole claim set.
func (r *receiptTx) ReplaceClaims(claims []models.ItemClaim) error {
	if err := reopen(r.ctx, r.tx, r.id); err != nil {
		return err
	}
	_, err := r.tx.ExecContext(r.ctx,
		"DELETE FROM item_claims WHERE item_id IN (SELECT id FROM receipt_items WHERE receipt_id = ?)",
		r.id,
	)
	if err != nil {
		return fmt.Errorf("failed to clear claims: %w", err)
	}
	return insertClaims(r.ctx, r.tx, claims)
}

// Finalize stores the per-member amounts and marks the receipt finalized.
func (r *receiptTx) Finalize(participants []models.Participant) error {
	res, err := r.tx.ExecContext(r.ctx,
		"UPDATE receipts SET status = ?, updated_at = ? WHERE id = ?",
		models.StatusFinalized, time.Now().Unix(), r.id,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize receipt: %w", err)
	}
	if err := requireAffected(res, "receipt", r.id); err != nil {
		return err
	}

	if _, err := r.tx.ExecContext(r.ctx, "DELETE FROM receipt_participants WHERE receipt_id = ?", r.id); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	for _, p := range participants {
		_, err := r.tx.ExecContext(r.ctx,
			"INSERT INTO receipt_participants (receipt_id, user_id, amount, is_paid) VALUES (?, ?, ?, ?)",
			r.id, p.UserID, p.Amount, p.IsPaid,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}

// SetParticipantPaid flips the paid flag on one finalized split line.
func (r *receiptTx) SetParticipantPaid(userID string, paid bool) error {
	res, err := r.tx.ExecContext(r.ctx,
		"UPDATE receipt_participants SET is_paid = ? WHERE receipt_id = ? AND user_id = ?",
		paid, r.id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return requireAffected(res, "participant", userID)
}

// SetImage records where the receipt photo is stored.
func (r *receiptTx) SetImage(imageURL string) error {
	res, err := r.tx.ExecContext(r.ctx,
		"UPDATE receipts SET image_url = ?, updated_at = ? WHERE id = ?",
		imageURL, time.Now().Unix(), r.id,
	)
	if err != nil {
		return fmt.Errorf("failed to set receipt image: %w", err)
	}
	return requireAffected(res, "receipt", r.id)
}

// Delete removes the receipt. Items, claims and participants cascade.
func (r *receiptTx) Delete() error {
	res, err := r.tx.ExecContext(r.ctx, "DELETE FROM receipts WHERE id = ?", r.id)
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return requireAffected(res, "receipt", r.id)
}

// GroupMemberIDs reads the membership of the receipt's group inside the edit.
func (r *receiptTx) GroupMemberIDs() ([]string, error) {
	rows, err := r.tx.QueryContext(r.ctx,
		`SELECT gm.user_id FROM group_members gm
		 JOIN receipts r ON r.group_id = gm.group_id
		 WHERE r.id = ? ORDER BY gm.user_id`,
		r.id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return ids, nil
}

// reopen drops any finalized split and marks the receipt pending. Claims of
// users no longer in the group go with it.
func reopen(ctx context.Context, tx *sql.Tx, receiptID string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE receipts SET status = ?, updated_at = ? WHERE id = ?",
		models.StatusPending, time.Now().Unix(), receiptID,
	)
	if err != nil {
		return fmt.Errorf("failed to reopen receipt: %w", err)
	}
	if err := requireAffected(res, "receipt", receiptID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM receipt_participants WHERE receipt_id = ?", receiptID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM item_claims
		 WHERE item_id IN (SELECT id FROM receipt_items WHERE receipt_id = ?)
		 AND user_id NOT IN (
		   SELECT gm.user_id FROM group_members gm
		   JOIN receipts r ON r.group_id = gm.group_id
		   WHERE r.id = ?)`,
		receiptID, receiptID,
	)
	if err != nil {
		return fmt.Errorf("failed to drop former member claims: %w", err)
	}
	return nil
}

func insertItem(ctx context.Context, tx *sql.Tx, item *models.ReceiptItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO receipt_items (id, receipt_id, name, unit_price, quantity, position) VALUES (?, ?, ?, ?, ?, ?)",
		item.ID, item.ReceiptID, item.Name, item.UnitPrice, item.Quantity, item.Position,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func insertClaims(ctx context.Context, tx *sql.Tx, claims []models.ItemClaim) error {
	for _, c := range claims {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO item_claims (item_id, user_id, mode, units) VALUES (?, ?, ?, ?)",
			c.ItemID, c.UserID, c.Mode, c.Units,
		)
		if err != nil {
			return fmt.Errorf("failed to insert claim: %w", err)
		}
	}
	return nil
}

// loadReceipt reads a receipt and its children with sequential queries.
func loadReceipt(ctx context.Context, q querier, receiptID string) (*models.Receipt, error) {
	r := &models.Receipt{}
	var subtotal sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT id, group_id, created_by, merchant_name, description, image_url,
		 subtotal, tax, tip, status, created_at, updated_at
		 FROM receipts WHERE id = ?`,
		receiptID,
	).Scan(&r.ID, &r.GroupID, &r.CreatedBy, &r.MerchantName, &r.Description, &r.ImageURL,
		&subtotal, &r.Tax, &r.Tip, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("receipt", receiptID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	if subtotal.Valid {
		r.Subtotal = &subtotal.Int64
	}

	// Get items
	rows, err := q.QueryContext(ctx,
		"SELECT id, receipt_id, name, unit_price, quantity, position FROM receipt_items WHERE receipt_id = ? ORDER BY position",
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	for rows.Next() {
		var it models.ReceiptItem
		if err := rows.Scan(&it.ID, &it.ReceiptID, &it.Name, &it.UnitPrice, &it.Quantity, &it.Position); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		r.Items = append(r.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	// Get claims
	rows, err = q.QueryContext(ctx,
		`SELECT c.item_id, c.user_id, c.mode, c.units FROM item_claims c
		 JOIN receipt_items i ON i.id = c.item_id
		 WHERE i.receipt_id = ? ORDER BY i.position, c.user_id`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims: %w", err)
	}
	for rows.Next() {
		var c models.ItemClaim
		if err := rows.Scan(&c.ItemID, &c.UserID, &c.Mode, &c.Units); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		r.Claims = append(r.Claims, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}

	// Get participants
	rows, err = q.QueryContext(ctx,
		"SELECT receipt_id, user_id, amount, is_paid FROM receipt_participants WHERE receipt_id = ? ORDER BY user_id",
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ReceiptID, &p.UserID, &p.Amount, &p.IsPaid); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		r.Participants = append(r.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return r, nil
}

func nullableInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}
