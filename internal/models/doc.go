// Package models defines the persisted domain records for receiptsplit.
//
// # Records
//
//   - User: a registered account; its ID is the member id used everywhere else
//   - Group: a set of users who share receipts
//   - Receipt: a captured bill owned by a group, with its items and claims
//   - ReceiptItem: one priced line on a receipt
//   - ItemClaim: a member's stake in an item
//   - Participant: a finalized per-member owed amount
//
// All money fields are integer minor units (cents). Conversion from the
// decimal strings users type happens in the money package.
//
// Records reference each other by ID string, never by pointer.
package models
