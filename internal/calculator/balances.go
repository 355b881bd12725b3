package calculator

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// ReceiptForBalance is a finalized receipt reduced to what balances need.
type ReceiptForBalance struct {
	ReceiptID    string
	PayerID      string
	Participants []ParticipantOwed
}

// ParticipantOwed is a persisted split line: what one member owes on a receipt.
type ParticipantOwed struct {
	MemberID string
	Amount   int64
	Paid     bool
}

// MemberBalance is the balance of one group member, in minor units.
type MemberBalance struct {
	MemberID   string
	NetBalance int64 // Positive = owed money, Negative = owes money
	TotalPaid  int64 // Fronted on behalf of others and not yet repaid
	TotalOwed  int64 // Still owed to others
}

// DebtEdge is a suggested payment from one member to another.
type DebtEdge struct {
	From   string
	To     string
	Amount int64
}

// CalculateGroupBalances aggregates finalized receipts into member balances
// and a simplified list of payments that settles them.
//
// The payer of a receipt fronted the whole bill, so every participant other
// than the payer who has not marked their line paid owes the payer that
// amount. Debts are then netted per member and matched greedily, largest
// first, ties by member id.
func CalculateGroupBalances(receipts []ReceiptForBalance) ([]MemberBalance, []DebtEdge, error) {
	balances := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		b, ok := balances[id]
		if !ok {
			b = &MemberBalance{MemberID: id}
			balances[id] = b
		}
		return b
	}

	for _, r := range receipts {
		if r.PayerID == "" {
			continue
		}
		get(r.PayerID)
		for _, p := range r.Participants {
			if p.Amount < 0 {
				return nil, nil, fmt.Errorf("receipt %s: negative amount %d for %s", r.ReceiptID, p.Amount, p.MemberID)
			}
			get(p.MemberID)
			if p.MemberID == r.PayerID || p.Paid {
				continue
			}
			get(r.PayerID).TotalPaid += p.Amount
			get(p.MemberID).TotalOwed += p.Amount
		}
	}

	ids := slices.Sorted(maps.Keys(balances))
	memberBalances := make([]MemberBalance, 0, len(ids))
	var creditors, debtors []MemberBalance
	for _, id := range ids {
		b := balances[id]
		b.NetBalance = b.TotalPaid - b.TotalOwed
		memberBalances = append(memberBalances, *b)
		switch {
		case b.NetBalance > 0:
			creditors = append(creditors, *b)
		case b.NetBalance < 0:
			debtors = append(debtors, *b)
		}
	}

	byMagnitude := func(a, b MemberBalance) int {
		if c := cmp.Compare(abs(b.NetBalance), abs(a.NetBalance)); c != 0 {
			return c
		}
		return cmp.Compare(a.MemberID, b.MemberID)
	}
	slices.SortFunc(creditors, byMagnitude)
	slices.SortFunc(debtors, byMagnitude)

	var edges []DebtEdge
	i, j := 0, 0
	var owe, credit int64
	if len(debtors) > 0 {
		owe = -debtors[0].NetBalance
	}
	if len(creditors) > 0 {
		credit = creditors[0].NetBalance
	}
	for i < len(debtors) && j < len(creditors) {
		amount := min(owe, credit)
		if amount > 0 {
			edges = append(edges, DebtEdge{
				From:   debtors[i].MemberID,
				To:     creditors[j].MemberID,
				Amount: amount,
			})
		}
		owe -= amount
		credit -= amount
		if owe == 0 {
			i++
			if i < len(debtors) {
				owe = -debtors[i].NetBalance
			}
		}
		if credit == 0 {
			j++
			if j < len(creditors) {
				credit = creditors[j].NetBalance
			}
		}
	}

	return memberBalances, edges, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
