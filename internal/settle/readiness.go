package settle

// Options toggles rules that sit on top of the base readiness filter.
type Options struct {
	// ZeroIncomeOnHotDiscard stops a ready discarder from collecting
	// anything in a hand lost under one of HotDiscardEvents.
	ZeroIncomeOnHotDiscard bool     `json:"zeroIncomeOnHotDiscard"`
	HotDiscardEvents       []string `json:"hotDiscardEvents"`
}

func DefaultOptions() Options {
	return Options{
		ZeroIncomeOnHotDiscard: true,
		HotDiscardEvents:       []string{EventHotDiscard, EventRobbingKong},
	}
}

// Filter reinterprets raw transactions by readiness. A ready receiver keeps
// the transfer. An unready receiver forfeits win and fan transfers; for
// the other categories the transfer is reversed when the payer is ready and
// dropped when neither side is.
func Filter(f HandFacts, raw []Transaction, opts Options) []Transaction {
	ready := f.readySet()
	out := make([]Transaction, 0, len(raw))
	for _, tx := range raw {
		switch {
		case ready[tx.Receiver]:
			out = append(out, tx)
		case !tx.Category.Reversible():
		case ready[tx.Payer]:
			out = append(out, tx.reverse())
		}
	}
	return zeroIncome(&f, ready, out, opts)
}

// zeroIncome voids everything a ready discarder would collect after losing
// under a hot discard.
func zeroIncome(f *HandFacts, ready map[string]bool, txs []Transaction, opts Options) []Transaction {
	if !opts.ZeroIncomeOnHotDiscard || f.Method != MethodDiscard || len(f.Winners) == 0 {
		return txs
	}
	if f.Discarder == "" || !ready[f.Discarder] || !f.hasEvent(opts.HotDiscardEvents) {
		return txs
	}
	out := txs[:0]
	for _, tx := range txs {
		if tx.Receiver != f.Discarder {
			out = append(out, tx)
		}
	}
	return out
}
