package core

// ClassifyStatus derives a fee status from the effective bill (original
// billed amount plus carry-in from prior periods) and the amount paid.
// Exactly one status is produced for every input pair.
func ClassifyStatus(effectiveBilled, totalPaid Money) FeeStatus {
	switch {
	case totalPaid.Cents > effectiveBilled.Cents:
		return StatusOverpayment
	case totalPaid.Cents == effectiveBilled.Cents && effectiveBilled.Cents > 0:
		return StatusPaid
	case totalPaid.Cents > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

// Reconcile recomputes balances for one student's fee records, carrying
// each period's balance into the next chronological period. Underpayment
// raises the next period's effective bill; overpayment (negative balance)
// credits it.
//
// The input is not modified. Balance and Status are the only fields that
// change; Billed keeps the original un-carried amount. The computation is
// a pure function of its input, so running it again without intervening
// mutations yields identical results.
func Reconcile(category Category, records []FeeRecord) []FeeRecord {
	out := make([]FeeRecord, len(records))
	copy(out, records)
	SortFeeRecordsByPeriod(category, out)

	var carry int64
	for i := range out {
		effective := out[i].Billed.Cents + carry
		paid := out[i].TotalPaid.Cents
		out[i].Balance = Money{Cents: effective - paid}
		out[i].Status = ClassifyStatus(Money{Cents: effective}, Money{Cents: paid})
		carry = out[i].Balance.Cents
	}
	return out
}
