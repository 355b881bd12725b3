// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/receiptsplit/internal/models"
)

// ErrNotFound is returned (wrapped) when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns the users that exist, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// GroupStore persists groups and their membership.
type GroupStore interface {
	// CreateGroup persists a new group and its members.
	// The group.ID field will be populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// UpdateGroup stores the group's name and description.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// AddGroupMembers adds users as members; existing members are skipped.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error

	// RemoveGroupMember removes a member and drops their claims on the
	// group's pending receipts. Finalized receipts are left as they are until
	// an edit reopens them.
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
	DeleteGroup(ctx context.Context, groupID string) error
}

// ReceiptStore persists receipts, their items, claims and finalized splits.
//
// Any change to a receipt's items, claims or totals discards its finalized
// split and returns it to pending, so a stored split never disagrees with its
// inputs. Reopening also drops claims held by users who have left the group.
type ReceiptStore interface {
	// CreateReceipt persists a new receipt with its items.
	// Receipt and item IDs will be populated by the store.
	CreateReceipt(ctx context.Context, receipt *models.Receipt) error

	// GetReceipt loads a receipt with items, claims and participants.
	GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error)

	// ListReceiptsByGroup returns a group's receipts, newest first.
	ListReceiptsByGroup(ctx context.Context, groupID string) ([]*models.Receipt, error)

	// EditReceipt loads a receipt and calls fn with it inside one write
	// transaction. Writes made through tx commit only if fn returns nil, and
	// no other edit of the store interleaves with fn. fn must not call back
	// into the store.
	EditReceipt(ctx context.Context, receiptID string, fn func(receipt *models.Receipt, tx ReceiptTx) error) error
}

// ReceiptTx writes to the receipt being edited by EditReceipt.
type ReceiptTx interface {
	// UpdateHeader stores merchant, description and totals.
	UpdateHeader(receipt *models.Receipt) error

	// AddItems appends items and returns them with IDs and positions set.
	AddItems(items []models.ReceiptItem) ([]models.ReceiptItem, error)
	UpdateItem(item *models.ReceiptItem) error
	DeleteItem(itemID string) error

	// ReplaceClaims swaps the whole claim set of the receipt.
	ReplaceClaims(claims []models.ItemClaim) error

	// Finalize stores the split and marks the receipt finalized.
	Finalize(participants []models.Participant) error

	SetParticipantPaid(userID string, paid bool) error
	SetImage(imageURL string) error

	// Delete removes the receipt with its items, claims and participants.
	Delete() error

	// GroupMemberIDs returns the current members of the receipt's group.
	GroupMemberIDs() ([]string, error)
}

// Store combines every storage concern.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	GroupStore
	ReceiptStore

	// Close releases any resources held by the store.
	Close() error
}
