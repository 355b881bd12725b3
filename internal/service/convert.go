package service

import (
	"github.com/mmynk/receiptsplit/internal/api"
	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/money"
)

func toMoney(minor int64) api.Money {
	return api.Money{Minor: minor, Display: money.FormatMinor(minor)}
}

func toAPIUser(u *models.User) api.User {
	return api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

// toAPIGroup converts a group. names maps user IDs to display names and may be nil.
func toAPIGroup(g *models.Group, names map[string]*models.User) api.Group {
	members := make([]api.GroupMember, len(g.Members))
	for i, m := range g.Members {
		members[i] = api.GroupMember{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt}
		if u, ok := names[m.UserID]; ok {
			members[i].DisplayName = u.DisplayName
		}
	}
	return api.Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		Members:     members,
		CreatedAt:   g.CreatedAt,
	}
}

func toAPISplit(r *calculator.SplitResult) api.Split {
	shares := make([]api.MemberShare, len(r.Shares))
	for i, sh := range r.Shares {
		items := make([]api.ItemPortion, len(sh.Items))
		for j, p := range sh.Items {
			items[j] = api.ItemPortion{ItemID: p.ItemID, Name: p.Name, Units: p.Units, Amount: toMoney(p.Amount)}
		}
		shares[i] = api.MemberShare{
			MemberID:     sh.MemberID,
			ItemSubtotal: toMoney(sh.ItemSubtotal),
			Extras:       toMoney(sh.Extras),
			Total:        toMoney(sh.Total),
			Items:        items,
		}
	}
	return api.Split{
		Shares:          shares,
		UnassignedItems: r.UnassignedItems,
		Unallocated:     toMoney(r.UnallocatedAmount),
		Subtotal:        toMoney(r.Subtotal),
		Tax:             toMoney(r.Tax),
		Tip:             toMoney(r.Tip),
		Total:           toMoney(r.Total),
		Ready:           r.Ready(),
	}
}

// toAPIReceipt converts a receipt. split may be nil when it could not be computed.
func toAPIReceipt(r *models.Receipt, split *calculator.SplitResult) api.Receipt {
	claimsByItem := make(map[string][]models.ItemClaim)
	for _, c := range r.Claims {
		claimsByItem[c.ItemID] = append(claimsByItem[c.ItemID], c)
	}

	items := make([]api.Item, len(r.Items))
	for i, it := range r.Items {
		item := api.Item{
			ID:        it.ID,
			Name:      it.Name,
			UnitPrice: toMoney(it.UnitPrice),
			Quantity:  it.Quantity,
			LineTotal: toMoney(it.UnitPrice * it.Quantity),
			Claims:    []api.Claim{},
		}
		var claimed int64
		for _, c := range claimsByItem[it.ID] {
			item.Mode = c.Mode
			item.Claims = append(item.Claims, api.Claim{MemberID: c.UserID, Units: c.Units})
			claimed += c.Units
		}
		switch calculator.ShareMode(item.Mode) {
		case calculator.ShareEqual:
			item.FullyAssigned = len(item.Claims) > 0
		case calculator.ShareUnits:
			item.FullyAssigned = claimed == it.Quantity
		}
		items[i] = item
	}

	out := api.Receipt{
		ID:           r.ID,
		GroupID:      r.GroupID,
		CreatedBy:    r.CreatedBy,
		MerchantName: r.MerchantName,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		Tax:          toMoney(r.Tax),
		Tip:          toMoney(r.Tip),
		Status:       r.Status,
		Items:        items,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Subtotal != nil {
		m := toMoney(*r.Subtotal)
		out.Subtotal = &m
	}
	for _, p := range r.Participants {
		out.Participants = append(out.Participants, api.Participant{
			MemberID: p.UserID,
			Amount:   toMoney(p.Amount),
			IsPaid:   p.IsPaid,
		})
	}
	if split != nil {
		s := toAPISplit(split)
		out.Split = &s
	}
	return out
}

// parseItemInput converts a request item into a model item with a fresh ID.
func parseItemInput(in api.ItemInput, receiptID, id string) (models.ReceiptItem, error) {
	price, err := money.ParseMinor(in.UnitPrice)
	if err != nil {
		return models.ReceiptItem{}, err
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	return models.ReceiptItem{
		ID:        id,
		ReceiptID: receiptID,
		Name:      in.Name,
		UnitPrice: price,
		Quantity:  qty,
	}, nil
}
