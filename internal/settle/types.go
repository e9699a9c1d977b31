package settle

// BonusRecord describes the first exposure of one bonus tile.
// A record with an empty Exposer means the tile was never discarded.
type BonusRecord struct {
	Exposer string   `json:"exposer,omitempty"`
	Outcome Outcome  `json:"outcome"`
	Targets []string `json:"targets,omitempty"`
}

func (r BonusRecord) exposed() bool {
	return r.Exposer != ""
}

// target returns the claimer of a pung or open kong.
func (r BonusRecord) target() string {
	if len(r.Targets) == 0 {
		return ""
	}
	return r.Targets[0]
}

type KongDeclaration struct {
	Doer   string   `json:"doer"`
	Type   KongType `json:"type"`
	Tile   Tile     `json:"tile"`
	Victim string   `json:"victim,omitempty"`
}

// Prices holds the unit prices in effect for one hand.
type Prices struct {
	Bonus map[Tile]int `json:"bonus"`
	Fan   int          `json:"fan"`
}

func (p Prices) bonus(tile Tile) int {
	return p.Bonus[tile]
}

// HandFacts is everything known about a finished hand.
type HandFacts struct {
	Players   []string                `json:"players"`
	Winners   []string                `json:"winners"`
	Method    Method                  `json:"method"`
	Discarder string                  `json:"discarder,omitempty"`
	Shape     string                  `json:"shape"`
	FullFlush bool                    `json:"fullFlush"`
	Events    []string                `json:"events,omitempty"`
	FanCounts map[string]int          `json:"fanCounts,omitempty"`
	Ready     []string                `json:"ready"`
	Records   map[Tile]BonusRecord    `json:"records,omitempty"`
	Holdings  map[Tile]map[string]int `json:"holdings,omitempty"`
	Kongs     []KongDeclaration       `json:"kongs,omitempty"`
	Prices    Prices                  `json:"prices"`
}

func (f *HandFacts) record(tile Tile) BonusRecord {
	return f.Records[tile]
}

func (f *HandFacts) holdingTotal(tile Tile) int {
	total := 0
	for _, p := range f.Players {
		total += f.Holdings[tile][p]
	}
	return total
}

func (f *HandFacts) kongsOn(tile Tile) []KongDeclaration {
	var kongs []KongDeclaration
	for _, k := range f.Kongs {
		if k.Tile == tile {
			kongs = append(kongs, k)
		}
	}
	return kongs
}

func (f *HandFacts) inRoster(player string) bool {
	for _, p := range f.Players {
		if p == player {
			return true
		}
	}
	return false
}

func (f *HandFacts) isWinner(player string) bool {
	for _, w := range f.Winners {
		if w == player {
			return true
		}
	}
	return false
}

// readySet returns every player allowed to collect. Winners are always ready.
func (f *HandFacts) readySet() map[string]bool {
	ready := make(map[string]bool, len(f.Players))
	for _, p := range f.Ready {
		if f.inRoster(p) {
			ready[p] = true
		}
	}
	for _, w := range f.Winners {
		ready[w] = true
	}
	return ready
}

func (f *HandFacts) hasEvent(events []string) bool {
	for _, e := range f.Events {
		for _, want := range events {
			if e == want {
				return true
			}
		}
	}
	return false
}

// Transaction is a single directed transfer of points.
type Transaction struct {
	Payer    string   `json:"payer"`
	Receiver string   `json:"receiver"`
	Amount   int      `json:"amount"`
	Reason   string   `json:"reason"`
	Category Category `json:"category"`
	Reversed bool     `json:"reversed,omitempty"`
}

func (t Transaction) reverse() Transaction {
	return Transaction{
		Payer:    t.Receiver,
		Receiver: t.Payer,
		Amount:   t.Amount,
		Reason:   "not ready, reversed: " + t.Reason,
		Category: t.Category,
		Reversed: true,
	}
}
