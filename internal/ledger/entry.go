package ledger

import (
	"sort"

	"salesbook/internal/core"
)

// singlePrefix keys legacy rows stored without an entry group.
const singlePrefix = "single_"

// GroupEntries folds transaction rows into user-facing entries by
// EntryGroupID, most recent date first. Rows without a group id stand alone.
func GroupEntries(txs []core.Transaction) []core.Entry {
	index := make(map[string]int)
	out := make([]core.Entry, 0)
	for _, t := range txs {
		key := t.EntryGroupID
		if key == "" {
			key = singlePrefix + t.ID
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, core.Entry{
				RowID:       key,
				Date:        t.Date,
				Category:    t.Category,
				Vendor:      t.Vendor,
				Description: t.Description,
				Memo:        t.Memo,
			})
		}
		out[i].AddRow(t)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date > out[b].Date })
	return out
}

// EntriesOfType groups only the rows of the given type.
func EntriesOfType(txs []core.Transaction, typ core.TxType) []core.Entry {
	rows := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Type == typ {
			rows = append(rows, t)
		}
	}
	return GroupEntries(rows)
}

// SplitEntry expands an entry into one row per positive payment amount,
// all sharing groupID.
func SplitEntry(e core.Entry, typ core.TxType, groupID string) []core.Transaction {
	out := make([]core.Transaction, 0, len(core.PaymentMethods))
	for _, pm := range core.PaymentMethods {
		amount := e.AmountFor(pm)
		if amount <= 0 {
			continue
		}
		out = append(out, core.Transaction{
			Date:          e.Date,
			Type:          typ,
			PaymentMethod: pm,
			Amount:        amount,
			Memo:          e.Memo,
			Category:      e.Category,
			Vendor:        e.Vendor,
			Description:   e.Description,
			EntryGroupID:  groupID,
		})
	}
	return out
}

// IsDuplicate reports full-field equality of the date, the three payment
// amounts and every annotation.
func IsDuplicate(a, b core.Entry) bool {
	return a.Date == b.Date &&
		a.Card == b.Card &&
		a.Transfer == b.Transfer &&
		a.Cash == b.Cash &&
		a.Category == b.Category &&
		a.Vendor == b.Vendor &&
		a.Description == b.Description &&
		a.Memo == b.Memo
}

// FindDuplicates partitions candidates into those matching an existing
// entry and the rest, preserving input order.
func FindDuplicates(candidates, existing []core.Entry) (dups, fresh []core.Entry) {
	for _, c := range candidates {
		matched := false
		for _, e := range existing {
			if IsDuplicate(c, e) {
				matched = true
				break
			}
		}
		if matched {
			dups = append(dups, c)
		} else {
			fresh = append(fresh, c)
		}
	}
	return dups, fresh
}
