package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mmynk/receiptsplit/internal/api"
	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/metrics"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/money"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/internal/storage/blob"
)

// ImageStore stores receipt photos.
type ImageStore interface {
	blob.Store
	KeyFromURL(url string) (string, bool)
}

// ReceiptService implements api.ReceiptServiceHandler.
//
// Every item, claim or total edit goes through the calculator before it is
// stored, so a persisted receipt always computes.
type ReceiptService struct {
	store   storage.Store
	images  ImageStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

var _ api.ReceiptServiceHandler = (*ReceiptService)(nil)

// NewReceiptService creates a ReceiptService. images and m may be nil.
func NewReceiptService(store storage.Store, images ImageStore, m *metrics.Metrics, logger *slog.Logger) *ReceiptService {
	return &ReceiptService{store: store, images: images, metrics: m, logger: logger}
}

// receiptCtx is a loaded receipt with its group and the calling user.
type receiptCtx struct {
	receipt *models.Receipt
	group   *models.Group
	userID  string
}

// load fetches a receipt and checks that the caller belongs to its group.
func (s *ReceiptService) load(ctx context.Context, receiptID string) (*receiptCtx, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	group, err := s.store.GetGroup(ctx, receipt.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, errNotMember
	}
	return &receiptCtx{receipt: receipt, group: group, userID: userID}, nil
}

// edit checks the caller's membership, then runs fn on a fresh copy of the
// receipt inside one store transaction. The membership check reads outside
// the transaction because fn must not call back into the store.
func (s *ReceiptService) edit(ctx context.Context, receiptID string, fn func(rc *receiptCtx, tx storage.ReceiptTx) error) error {
	rc, err := s.load(ctx, receiptID)
	if err != nil {
		return err
	}
	return s.store.EditReceipt(ctx, receiptID, func(receipt *models.Receipt, tx storage.ReceiptTx) error {
		// Membership may have changed since load; the transaction's view wins.
		memberIDs, err := tx.GroupMemberIDs()
		if err != nil {
			return err
		}
		if !slices.Contains(memberIDs, rc.userID) {
			return errNotMember
		}
		rc.group.Members = slices.DeleteFunc(rc.group.Members, func(m models.GroupMember) bool {
			return !slices.Contains(memberIDs, m.UserID)
		})
		for _, id := range memberIDs {
			if !rc.group.HasMember(id) {
				rc.group.Members = append(rc.group.Members, models.GroupMember{UserID: id, Role: models.RoleMember})
			}
		}
		receipt.Claims = slices.DeleteFunc(receipt.Claims, func(c models.ItemClaim) bool {
			return !rc.group.HasMember(c.UserID)
		})
		rc.receipt = receipt
		return fn(rc, tx)
	})
}

// respond reloads a receipt and returns it with its current split.
func (s *ReceiptService) respond(ctx context.Context, op, receiptID string) (*connect.Response[api.ReceiptResponse], error) {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, op, err)
	}
	return connect.NewResponse(&api.ReceiptResponse{Receipt: s.toAPI(ctx, receipt)}), nil
}

func (s *ReceiptService) toAPI(ctx context.Context, receipt *models.Receipt) api.Receipt {
	split, err := receipt.Split()
	if err != nil {
		s.logger.WarnContext(ctx, "Stored receipt does not compute", "receipt_id", receipt.ID, "error", err)
		split = nil
	}
	return toAPIReceipt(receipt, split)
}

func itemNotFound(itemID string) error {
	return fmt.Errorf("item %s: %w", itemID, storage.ErrNotFound)
}

// resolveMember defaults an empty member ID to the caller and checks group membership.
func resolveMember(rc *receiptCtx, memberID string) (string, error) {
	if memberID == "" {
		return rc.userID, nil
	}
	if !rc.group.HasMember(memberID) {
		return "", connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("%s is not a member of group %s", memberID, rc.group.ID))
	}
	return memberID, nil
}

// CreateReceipt stores a new pending receipt in one of the caller's groups.
func (s *ReceiptService) CreateReceipt(ctx context.Context, req *connect.Request[api.CreateReceiptRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	group, userID, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "CreateReceipt", err)
	}

	receipt := &models.Receipt{
		GroupID:      group.ID,
		CreatedBy:    userID,
		MerchantName: strings.TrimSpace(req.Msg.MerchantName),
		Description:  req.Msg.Description,
	}
	if err := parseTotals(receipt, &req.Msg.Subtotal, &req.Msg.Tax, &req.Msg.Tip); err != nil {
		return nil, toConnectError(ctx, s.logger, "CreateReceipt", err)
	}
	// Items get their IDs here so the split can be checked before anything
	// is stored; the store keeps IDs that are already set.
	for _, in := range req.Msg.Items {
		item, err := parseItemInput(in, "", uuid.New().String())
		if err != nil {
			return nil, toConnectError(ctx, s.logger, "CreateReceipt", err)
		}
		receipt.Items = append(receipt.Items, item)
	}
	if _, err := receipt.Split(); err != nil {
		return nil, toConnectError(ctx, s.logger, "CreateReceipt", err)
	}

	if err := s.store.CreateReceipt(ctx, receipt); err != nil {
		return nil, toConnectError(ctx, s.logger, "CreateReceipt", err)
	}
	s.logger.InfoContext(ctx, "Receipt created",
		"receipt_id", receipt.ID,
		"group_id", group.ID,
		"items", len(receipt.Items),
	)
	return s.respond(ctx, "CreateReceipt", receipt.ID)
}

// parseTotals applies the amount fields that are set. An empty subtotal
// clears it; empty tax or tip mean zero.
func parseTotals(receipt *models.Receipt, subtotal, tax, tip *string) error {
	if subtotal != nil {
		v, err := money.ParseOptionalMinor(*subtotal)
		if err != nil {
			return fmt.Errorf("subtotal: %w", err)
		}
		receipt.Subtotal = v
	}
	if tax != nil {
		v, err := money.ParseMinor(*tax)
		if err != nil {
			return fmt.Errorf("tax: %w", err)
		}
		receipt.Tax = v
	}
	if tip != nil {
		v, err := money.ParseMinor(*tip)
		if err != nil {
			return fmt.Errorf("tip: %w", err)
		}
		receipt.Tip = v
	}
	return nil
}

// GetReceipt returns a receipt with its current split.
func (s *ReceiptService) GetReceipt(ctx context.Context, req *connect.Request[api.GetReceiptRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	rc, err := s.load(ctx, req.Msg.ReceiptID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "GetReceipt", err)
	}
	return connect.NewResponse(&api.ReceiptResponse{Receipt: s.toAPI(ctx, rc.receipt)}), nil
}

// ListReceipts returns a group's receipts, newest first.
func (s *ReceiptService) ListReceipts(ctx context.Context, req *connect.Request[api.ListReceiptsRequest]) (*connect.Response[api.ListReceiptsResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	if _, _, err := memberGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, toConnectError(ctx, s.logger, "ListReceipts", err)
	}
	receipts, err := s.store.ListReceiptsByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "ListReceipts", err)
	}

	out := make([]api.Receipt, len(receipts))
	for i, r := range receipts {
		out[i] = s.toAPI(ctx, r)
	}
	return connect.NewResponse(&api.ListReceiptsResponse{Receipts: out}), nil
}

// UpdateReceipt edits header fields. The receipt returns to pending.
func (s *ReceiptService) UpdateReceipt(ctx context.Context, req *connect.Request[api.UpdateReceiptRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	err := s.edit(ctx, req.Msg.ReceiptID, func(rc *receiptCtx, tx storage.ReceiptTx) error {
		receipt := rc.receipt
		if req.Msg.MerchantName != nil {
			receipt.MerchantName = strings.TrimSpace(*req.Msg.MerchantName)
		}
		if req.Msg.Description != nil {
			receipt.Description = *req.Msg.Description
		}
		if err := parseTotals(receipt, req.Msg.Subtotal, req.Msg.Tax, req.Msg.Tip); err != nil {
			return err
		}
		if _, err := receipt.Split(); err != nil {
			return err
		}
		return tx.UpdateHeader(receipt)
	})
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "UpdateReceipt", err)
	}
	return s.respond(ctx, "UpdateReceipt", req.Msg.ReceiptID)
}

// DeleteReceipt removes a receipt and its photo. Only the receipt's creator
// or the group owner may delete it.
func (s *ReceiptService) DeleteReceipt(ctx context.Context, req *connect.Request[api.DeleteReceiptRequest]) (*connect.Response[api.DeleteReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	var imageURL string
	err := s.edit(ctx, req.Msg.ReceiptID, func(rc *receiptCtx, tx storage.ReceiptTx) error {
		if rc.userID != rc.receipt.CreatedBy && rc.userID != rc.group.CreatedBy {
			return errNotCreator
		}
		imageURL = rc.receipt.ImageURL
		return tx.Delete()
	})
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "DeleteReceipt", err)
	}

	deleteImage(ctx, s.images, s.logger, imageURL)
	s.logger.InfoContext(ctx, "Receipt deleted", "receipt_id", req.Msg.ReceiptID)
	return connect.NewResponse(&api.DeleteReceiptResponse{}), nil
}

// deleteImage removes a stored photo by URL. Failures only log: the receipt
// no longer points at the blob.
func deleteImage(ctx context.Context, images ImageStore, logger *slog.Logger, url string) {
	if images == nil || url == "" {
		return
	}
	key, ok := images.KeyFromURL(url)
	if !ok {
		return
	}
	if err := images.Delete(ctx, key); err != nil {
		logger.WarnContext(ctx, "Failed to delete image", "key", key, "error", err)
	}
}

// AddItems appends items to a receipt.
func (s *ReceiptService) AddItems(ctx context.Context, req *connect.Request[api.AddItemsRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	err := s.edit(ctx, req.Msg.ReceiptID, func(rc *receiptCtx, tx storage.ReceiptTx) error {
		added := make([]models.ReceiptItem, 0, len(req.Msg.Items))
		for _, in := range req.Msg.Items {
			item, err := parseItemInput(in, rc.receipt.ID, uuid.New().String())
			if err != nil {
				return err
			}
			added = append(added, item)
		}
		rc.receipt.Items = append(rc.receipt.Items, added...)
		if _, err := rc.receipt.Split(); err != nil {
			return err
		}
		_, err := tx.AddItems(added)
		return err
	})
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "AddItems", err)
	}
	return s.respond(ctx, "AddItems", req.Msg.ReceiptID)
}

// UpdateItem edits an item. Existing claims must still fit the new quantity.
func (s *ReceiptService) UpdateItem(ctx context.Context, req *connect.Request[api.UpdateItemRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	err := s.edit(ctx, req.Msg.ReceiptID, func(rc *receiptCtx, tx storage.ReceiptTx) error {
		item := rc.receipt.Item(req.Msg.ItemID)
		if item == nil {
			return itemNotFound(req.Msg.ItemID)
		}
		if req.Msg.Name != nil {
			item.Name = *req.Msg.Name
		}
		if req.Msg.UnitPrice != nil {
			price, err := money.ParseMinor(*req.Msg.UnitPrice)
			if err != nil {
				return err
			}
			item.UnitPrice = price
		}
		if req.Msg.Quantity != nil {
			item.Quantity = *req.Msg.Quantity
		}

		if _, err := calculator.LoadAssignmentTable(rc.receipt.LineItems(), rc.receipt.Assignments()); err != nil {
			return err
		}
		if _, err := rc.receipt.Split(); err != nil {
			return err
		}
		return tx.UpdateItem(item)
	})
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "UpdateItem", err)
	}
	return s.respond(ctx, "UpdateItem", req.Msg.ReceiptID)
}

// DeleteItem removes an item and every claim on it.
func (s *ReceiptService) DeleteItem(ctx context.Context, req *connect.Request[api.DeleteItemRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	err := s.edit(ctx, req.Msg.ReceiptID, func(_ *receiptCtx, tx storage.ReceiptTx) error {
		return tx.DeleteItem(req.Msg.ItemID)
	})
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "DeleteItem", err)
	}
	return s.respond(ctx, "DeleteItem", req.Msg.ReceiptID)
}

// editClaims rebuilds the receipt's assignment table, applies change and
// stores the resulting claim set, all inside one transaction.
func (s *ReceiptService) editClaims(ctx context.Context, op, receiptID, itemID string, change func(*receiptCtx, *calculator.AssignmentTable) error) (*connect.Response[api.ReceiptResponse], error) {
	err := s.edit(ctx, receiptID, func(rc *receiptCtx, tx storage.ReceiptTx) error {
		if rc.receipt.Item(itemID) == nil {
			return itemNotFound(itemID)
		}
		table, err := calculator.LoadAssignmentTable(rc.receipt.LineItems(), rc.receipt.Assignments())
		if err != nil {
			return err
		}
		before := models.ClaimsFromTable(table)
		if err := change(rc, table); err != nil {
			return err
		}

		// Unchanged claims leave a finalized receipt alone.
		after := models.ClaimsFromTable(table)
		if slices.Equal(before, after) {
			return nil
		}
		return tx.ReplaceClaims(after)
	})
	if err != nil {
		return nil, toConnectError(ctx, s.logger, op, err)
	}
	return s.respond(ctx, op, receiptID)
}

// AssignItem sets a member's claimed units on an item.
func (s *ReceiptService) AssignItem(ctx context.Context, req *connect.Request[api.AssignItemRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	return s.editClaims(ctx, "AssignItem", req.Msg.ReceiptID, req.Msg.ItemID, func(rc *receiptCtx, t *calculator.AssignmentTable) error {
		memberID, err := resolveMember(rc, req.Msg.MemberID)
		if err != nil {
			return err
		}
		return t.Assign(req.Msg.ItemID, memberID, req.Msg.Units)
	})
}

// ShareItem splits an item equally among the given members.
func (s *ReceiptService) ShareItem(ctx context.Context, req *connect.Request[api.ShareItemRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	return s.editClaims(ctx, "ShareItem", req.Msg.ReceiptID, req.Msg.ItemID, func(rc *receiptCtx, t *calculator.AssignmentTable) error {
		for _, id := range req.Msg.MemberIDs {
			memberID, err := resolveMember(rc, id)
			if err != nil {
				return err
			}
			if err := t.Share(req.Msg.ItemID, memberID); err != nil {
				return err
			}
		}
		return nil
	})
}

// UnassignItem drops a member's claim on an item. Dropping a missing claim is a no-op.
func (s *ReceiptService) UnassignItem(ctx context.Context, req *connect.Request[api.UnassignItemRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	return s.editClaims(ctx, "UnassignItem", req.Msg.ReceiptID, req.Msg.ItemID, func(rc *receiptCtx, t *calculator.AssignmentTable) error {
		memberID := req.Msg.MemberID
		if memberID == "" {
			memberID = rc.userID
		}
		t.Unassign(req.Msg.ItemID, memberID)
		return nil
	})
}

// ComputeSplit returns the current split of a stored receipt.
func (s *ReceiptService) ComputeSplit(ctx context.Context, req *connect.Request[api.ComputeSplitRequest]) (*connect.Response[api.SplitResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	rc, err := s.load(ctx, req.Msg.ReceiptID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "ComputeSplit", err)
	}

	split, err := rc.receipt.Split()
	s.metrics.ObserveSplit(split, err)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "ComputeSplit", err)
	}
	return connect.NewResponse(&api.SplitResponse{Split: toAPISplit(split)}), nil
}

// PreviewSplit computes a split from the request alone. Nothing is stored.
func (s *ReceiptService) PreviewSplit(ctx context.Context, req *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.SplitResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	if _, err := requireUser(ctx); err != nil {
		return nil, err
	}

	var totals models.Receipt
	if err := parseTotals(&totals, &req.Msg.Subtotal, &req.Msg.Tax, &req.Msg.Tip); err != nil {
		return nil, toConnectError(ctx, s.logger, "PreviewSplit", err)
	}

	items := make([]calculator.LineItem, 0, len(req.Msg.Items))
	assignments := make(calculator.Assignments)
	for _, in := range req.Msg.Items {
		parsed, err := parseItemInput(api.ItemInput{Name: in.Name, UnitPrice: in.UnitPrice, Quantity: in.Quantity}, "", in.ID)
		if err != nil {
			return nil, toConnectError(ctx, s.logger, "PreviewSplit", fmt.Errorf("item %s: %w", in.ID, err))
		}
		items = append(items, calculator.LineItem{
			ID:        parsed.ID,
			Name:      parsed.Name,
			UnitPrice: parsed.UnitPrice,
			Quantity:  parsed.Quantity,
		})
		if len(in.Claims) == 0 {
			continue
		}
		ic := calculator.ItemClaims{Mode: calculator.ShareMode(in.Mode)}
		if ic.Mode == "" {
			ic.Mode = calculator.ShareUnits
		}
		for _, c := range in.Claims {
			ic.Claims = append(ic.Claims, calculator.Claim{MemberID: c.MemberID, Units: c.Units})
		}
		assignments[in.ID] = ic
	}

	split, err := calculator.ComputeSplit(items, assignments, totals.Totals())
	s.metrics.ObserveSplit(split, err)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "PreviewSplit", err)
	}
	return connect.NewResponse(&api.SplitResponse{Split: toAPISplit(split)}), nil
}

// FinalizeReceipt freezes the split into participant lines. Every cent of
// the total must be owed by a member.
func (s *ReceiptService) FinalizeReceipt(ctx context.Context, req *connect.Request[api.FinalizeReceiptRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	var split *calculator.SplitResult
	err := s.edit(ctx, req.Msg.ReceiptID, func(rc *receiptCtx, tx storage.ReceiptTx) error {
		var err error
		split, err = rc.receipt.Split()
		s.metrics.ObserveSplit(split, err)
		if err != nil {
			return err
		}
		if !split.Ready() {
			return fmt.Errorf("%w: %s unallocated, unassigned items %v",
				errNotReady, money.FormatMinor(split.UnallocatedAmount), split.UnassignedItems)
		}

		paid := make(map[string]bool, len(rc.receipt.Participants))
		for _, p := range rc.receipt.Participants {
			paid[p.UserID] = p.IsPaid
		}
		participants := make([]models.Participant, 0, len(split.Shares))
		for _, sh := range split.Shares {
			participants = append(participants, models.Participant{
				ReceiptID: rc.receipt.ID,
				UserID:    sh.MemberID,
				Amount:    sh.Total,
				// The creator fronted the bill.
				IsPaid: sh.MemberID == rc.receipt.CreatedBy || paid[sh.MemberID],
			})
		}
		return tx.Finalize(participants)
	})
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "FinalizeReceipt", err)
	}
	s.logger.InfoContext(ctx, "Receipt finalized",
		"receipt_id", req.Msg.ReceiptID,
		"total", split.Total,
		"participants", len(split.Shares),
	)
	return s.respond(ctx, "FinalizeReceipt", req.Msg.ReceiptID)
}

// MarkPaid sets a participant's paid flag. Members mark their own line; the
// receipt's creator may mark anyone's.
func (s *ReceiptService) MarkPaid(ctx context.Context, req *connect.Request[api.MarkPaidRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	err := s.edit(ctx, req.Msg.ReceiptID, func(rc *receiptCtx, tx storage.ReceiptTx) error {
		if rc.receipt.Status != models.StatusFinalized {
			return connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("receipt %s is not finalized", rc.receipt.ID))
		}
		memberID := req.Msg.MemberID
		if memberID == "" {
			memberID = rc.userID
		}
		if memberID != rc.userID && rc.userID != rc.receipt.CreatedBy {
			return connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only the receipt creator can mark other members paid"))
		}

		if err := tx.SetParticipantPaid(memberID, req.Msg.Paid); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return connect.NewError(connect.CodeNotFound, fmt.Errorf("%w: %s", errNotParticipant, memberID))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "MarkPaid", err)
	}
	return s.respond(ctx, "MarkPaid", req.Msg.ReceiptID)
}

// UploadImage stores the receipt photo and replaces any previous one.
func (s *ReceiptService) UploadImage(ctx context.Context, req *connect.Request[api.UploadImageRequest]) (*connect.Response[api.ReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("image storage is not configured"))
	}
	// Membership is checked before the bytes are written anywhere.
	if _, err := s.load(ctx, req.Msg.ReceiptID); err != nil {
		return nil, toConnectError(ctx, s.logger, "UploadImage", err)
	}

	key := fmt.Sprintf("receipts/%s/%s", req.Msg.ReceiptID, uuid.New().String())
	obj, err := s.images.Put(ctx, key, req.Msg.Image)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "UploadImage", err)
	}

	var previous string
	err = s.edit(ctx, req.Msg.ReceiptID, func(rc *receiptCtx, tx storage.ReceiptTx) error {
		previous = rc.receipt.ImageURL
		return tx.SetImage(obj.URL)
	})
	if err != nil {
		deleteImage(ctx, s.images, s.logger, obj.URL)
		return nil, toConnectError(ctx, s.logger, "UploadImage", err)
	}
	deleteImage(ctx, s.images, s.logger, previous)

	s.logger.InfoContext(ctx, "Receipt image stored",
		"receipt_id", req.Msg.ReceiptID,
		"content_type", obj.ContentType,
		"size", obj.Size,
	)
	return s.respond(ctx, "UploadImage", req.Msg.ReceiptID)
}
