package settle

import (
	"fmt"

	appErr "zhuoji-service/pkg/errors"
)

// Aggregate reduces final transactions to net scores and one explanation
// line per transaction endpoint. Every player in the roster is present in
// both maps.
func Aggregate(players []string, txs []Transaction) (map[string]int, map[string][]string, error) {
	scores := make(map[string]int, len(players))
	details := make(map[string][]string, len(players))
	for _, p := range players {
		scores[p] = 0
		details[p] = []string{}
	}

	for _, tx := range txs {
		if _, ok := scores[tx.Payer]; !ok {
			return nil, nil, fmt.Errorf("%w: payer %q is not seated", appErr.ErrInvariantViolation, tx.Payer)
		}
		if _, ok := scores[tx.Receiver]; !ok {
			return nil, nil, fmt.Errorf("%w: receiver %q is not seated", appErr.ErrInvariantViolation, tx.Receiver)
		}
		scores[tx.Receiver] += tx.Amount
		scores[tx.Payer] -= tx.Amount
		details[tx.Receiver] = append(details[tx.Receiver], fmt.Sprintf("%s: +%d (%s)", tx.Reason, tx.Amount, tx.Payer))
		details[tx.Payer] = append(details[tx.Payer], fmt.Sprintf("%s: -%d (%s)", tx.Reason, tx.Amount, tx.Receiver))
	}

	sum := 0
	for _, s := range scores {
		sum += s
	}
	if sum != 0 {
		return nil, nil, fmt.Errorf("%w: scores sum to %d", appErr.ErrInvariantViolation, sum)
	}
	return scores, details, nil
}
