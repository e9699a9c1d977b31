package settle

import "sort"

type Payment struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int    `json:"amount"`
}

// PaymentPlan turns net scores into a short list of payments, matching the
// largest debtor with the largest creditor first. Ties keep roster order.
func PaymentPlan(players []string, scores map[string]int) []Payment {
	type balance struct {
		player string
		amount int
	}
	var creditors, debtors []balance
	for _, p := range players {
		switch s := scores[p]; {
		case s > 0:
			creditors = append(creditors, balance{p, s})
		case s < 0:
			debtors = append(debtors, balance{p, -s})
		}
	}
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].amount > creditors[j].amount })
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].amount > debtors[j].amount })

	plan := make([]Payment, 0, len(players))
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(debtors[i].amount, creditors[j].amount)
		plan = append(plan, Payment{From: debtors[i].player, To: creditors[j].player, Amount: amount})
		debtors[i].amount -= amount
		creditors[j].amount -= amount
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}
	return plan
}
