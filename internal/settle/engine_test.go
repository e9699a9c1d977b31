package settle_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"zhuoji-service/internal/settle"
	appErr "zhuoji-service/pkg/errors"
)

var roster = []string{"P1", "P2", "P3", "P4"}

func newEngine() *settle.Engine {
	return settle.New(settle.DefaultRules(), settle.DefaultOptions())
}

// baseFacts is a hand with nobody winning, everyone ready and default prices
// (bonus tiles 2, fan unit 1).
func baseFacts() settle.HandFacts {
	return settle.HandFacts{
		Players: roster,
		Method:  settle.MethodSelfDraw,
		Shape:   settle.ShapePlain,
		Ready:   roster,
		Prices:  settle.DefaultRules().UnitPrices(settle.SuitedTile{}),
	}
}

func mustSettle(t *testing.T, e *settle.Engine, f settle.HandFacts) *settle.Result {
	t.Helper()
	res, err := e.Settle(f)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	sum := 0
	for _, s := range res.Scores {
		sum += s
	}
	if sum != 0 {
		t.Fatalf("scores not zero-sum: %v", res.Scores)
	}
	return res
}

func expectScores(t *testing.T, got map[string]int, want map[string]int) {
	t.Helper()
	for _, p := range roster {
		if got[p] != want[p] {
			t.Fatalf("unexpected scores: got %v, want %v", got, want)
		}
	}
}

func TestSelfDrawSettlement(t *testing.T) {
	f := baseFacts()
	f.Winners = []string{"P1"}

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": 15, "P2": -5, "P3": -5, "P4": -5})

	if len(res.Details["P1"]) != 3 {
		t.Fatalf("expected 3 lines for the winner, got %v", res.Details["P1"])
	}
	if res.Details["P1"][0] != "self-draw (plain): +5 (P2)" {
		t.Fatalf("unexpected winner line: %q", res.Details["P1"][0])
	}
	if res.Details["P2"][0] != "self-draw (plain): -5 (P1)" {
		t.Fatalf("unexpected payer line: %q", res.Details["P2"][0])
	}
}

func TestWinBaseAddsFlushAndEvents(t *testing.T) {
	f := baseFacts()
	f.Winners = []string{"P1"}
	f.Shape = settle.ShapeSevenPairs
	f.FullFlush = true
	f.Events = []string{settle.EventKongBloom}

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": 225, "P2": -75, "P3": -75, "P4": -75})
}

func TestConcealedKongBaseScore(t *testing.T) {
	f := baseFacts()
	f.Kongs = []settle.KongDeclaration{{Doer: "P2", Type: settle.KongConcealed, Tile: settle.TileOther}}

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": -4, "P2": 12, "P3": -4, "P4": -4})

	f.Winners = []string{"P1"}
	res = mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": 11, "P2": 7, "P3": -9, "P4": -9})
}

func TestExposedKongOnlyVictimPays(t *testing.T) {
	f := baseFacts()
	f.Kongs = []settle.KongDeclaration{{Doer: "P3", Type: settle.KongOrdinaryExposed, Tile: settle.TileOther, Victim: "P1"}}

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": -2, "P3": 2})
}

func TestDiscardWinIgnoresWinnerReadiness(t *testing.T) {
	f := baseFacts()
	f.Winners = []string{"P1"}
	f.Method = settle.MethodDiscard
	f.Discarder = "P4"

	e := newEngine()
	withWinner := mustSettle(t, e, f)

	f.Ready = []string{"P2", "P3", "P4"}
	withoutWinner := mustSettle(t, e, f)

	expectScores(t, withWinner.Scores, map[string]int{"P1": 5, "P4": -5})
	if !reflect.DeepEqual(withWinner, withoutWinner) {
		t.Fatalf("winner readiness changed the outcome: %v vs %v", withWinner.Scores, withoutWinner.Scores)
	}
}

func TestDiscardWinPaysEveryWinner(t *testing.T) {
	f := baseFacts()
	f.Winners = []string{"P1", "P2"}
	f.Method = settle.MethodDiscard
	f.Discarder = "P3"

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": 5, "P2": 5, "P3": -10})
}

func TestFanTilesArePairwise(t *testing.T) {
	f := baseFacts()
	f.FanCounts = map[string]int{"P1": 3, "P2": 1}

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": 8, "P2": 0, "P3": -4, "P4": -4})

	// An unready player forfeits fan income without it being reversed.
	f.Ready = []string{"P2", "P3", "P4"}
	res = mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": 0, "P2": 2, "P3": -1, "P4": -1})
}

func TestBonusChargeOnSafeDiscard(t *testing.T) {
	f := baseFacts()
	f.Records = map[settle.Tile]settle.BonusRecord{
		settle.TileEightDots: {Exposer: "P3", Outcome: settle.OutcomeSafe},
	}

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": -4, "P2": -4, "P3": 12, "P4": -4})
	for _, tx := range res.Transactions {
		if tx.Category != settle.CategoryBonusCharge {
			t.Fatalf("unexpected category %s", tx.Category)
		}
	}
}

func TestBonusExtraBroadcastPerHolder(t *testing.T) {
	f := baseFacts()
	f.Holdings = map[settle.Tile]map[string]int{
		settle.TileOneBamboo: {"P1": 2, "P2": 2},
	}

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": 8, "P2": 8, "P3": -8, "P4": -8})
}

func TestPungResponsibility(t *testing.T) {
	f := baseFacts()
	f.Records = map[settle.Tile]settle.BonusRecord{
		settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomePung, Targets: []string{"P1"}},
	}

	res := mustSettle(t, newEngine(), f)
	// liable P2 pays 2*2 + 2*2, bystanders pay 3*2
	expectScores(t, res.Scores, map[string]int{"P1": 20, "P2": -8, "P3": -6, "P4": -6})
}

func TestOpenKongResponsibility(t *testing.T) {
	f := baseFacts()
	f.Records = map[settle.Tile]settle.BonusRecord{
		settle.TileEightDots: {Exposer: "P3", Outcome: settle.OutcomeOpenKong, Targets: []string{"P2"}},
	}
	f.Kongs = []settle.KongDeclaration{{Doer: "P2", Type: settle.KongLiabilityExposed, Tile: settle.TileEightDots, Victim: "P3"}}

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": -8, "P2": 28, "P3": -12, "P4": -8})
}

func TestSupplementKongKeepsPungLiability(t *testing.T) {
	f := baseFacts()
	f.Records = map[settle.Tile]settle.BonusRecord{
		settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomePung, Targets: []string{"P1"}},
	}
	f.Kongs = []settle.KongDeclaration{{Doer: "P1", Type: settle.KongSupplement, Tile: settle.TileOneBamboo}}

	res := mustSettle(t, newEngine(), f)
	// kong base 2 from each, landed x4: P2 liable pays 2*2 + 2*3
	expectScores(t, res.Scores, map[string]int{"P1": 32, "P2": -12, "P3": -10, "P4": -10})
}

func TestWinningBonusTile(t *testing.T) {
	f := baseFacts()
	f.Winners = []string{"P1"}
	f.Method = settle.MethodDiscard
	f.Discarder = "P4"
	f.Records = map[settle.Tile]settle.BonusRecord{
		settle.TileEightDots: {Exposer: "P4", Outcome: settle.OutcomeWin, Targets: []string{"P1"}},
	}

	res := mustSettle(t, newEngine(), f)
	// win 5 from P4, landed x1: P4 liable pays 4, others pay 2
	expectScores(t, res.Scores, map[string]int{"P1": 13, "P2": -2, "P3": -2, "P4": -9})
}

func TestUnreadyOwnerReversesResponsibility(t *testing.T) {
	f := baseFacts()
	f.Ready = []string{"P2"}
	f.Records = map[settle.Tile]settle.BonusRecord{
		settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomePung, Targets: []string{"P1"}},
	}

	res := mustSettle(t, newEngine(), f)
	if len(res.Transactions) != 1 {
		t.Fatalf("expected one surviving transaction, got %+v", res.Transactions)
	}
	tx := res.Transactions[0]
	if tx.Payer != "P1" || tx.Receiver != "P2" || tx.Amount != 8 {
		t.Fatalf("expected P1 -> P2 8, got %+v", tx)
	}
	if tx.Category != settle.CategoryBonusResponsibility || !tx.Reversed {
		t.Fatalf("expected reversed responsibility transfer, got %+v", tx)
	}
	expectScores(t, res.Scores, map[string]int{"P1": -8, "P2": 8})
}

func TestMutualUnreadinessDrops(t *testing.T) {
	f := baseFacts()
	f.Ready = nil
	f.Records = map[settle.Tile]settle.BonusRecord{
		settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomePung, Targets: []string{"P1"}},
	}
	f.Kongs = []settle.KongDeclaration{{Doer: "P3", Type: settle.KongConcealed, Tile: settle.TileOther}}

	res := mustSettle(t, newEngine(), f)
	if len(res.Transactions) != 0 {
		t.Fatalf("expected nothing to survive, got %+v", res.Transactions)
	}
}

func TestUnreadyKongDoerPaysReadyPlayers(t *testing.T) {
	f := baseFacts()
	f.Ready = []string{"P1", "P3", "P4"}
	f.Kongs = []settle.KongDeclaration{{Doer: "P2", Type: settle.KongConcealed, Tile: settle.TileOther}}

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": 4, "P2": -12, "P3": 4, "P4": 4})
}

func hotDiscardFacts() settle.HandFacts {
	f := baseFacts()
	f.Winners = []string{"P1"}
	f.Method = settle.MethodDiscard
	f.Discarder = "P4"
	f.Events = []string{settle.EventHotDiscard}
	f.Kongs = []settle.KongDeclaration{{Doer: "P4", Type: settle.KongConcealed, Tile: settle.TileOther}}
	return f
}

func TestHotDiscardZeroIncome(t *testing.T) {
	res := mustSettle(t, newEngine(), hotDiscardFacts())
	expectScores(t, res.Scores, map[string]int{"P1": 30, "P4": -30})
	for _, tx := range res.Transactions {
		if tx.Receiver == "P4" {
			t.Fatalf("discarder should not collect: %+v", tx)
		}
	}
}

func TestHotDiscardToggleOff(t *testing.T) {
	opts := settle.DefaultOptions()
	opts.ZeroIncomeOnHotDiscard = false
	e := settle.New(settle.DefaultRules(), opts)

	res := mustSettle(t, e, hotDiscardFacts())
	expectScores(t, res.Scores, map[string]int{"P1": 26, "P2": -4, "P3": -4, "P4": -18})
}

// An unready discarder collects nothing to begin with: the kong is reversed
// by readiness, so the toggle makes no difference.
func TestHotDiscardWithUnreadyDiscarder(t *testing.T) {
	f := hotDiscardFacts()
	f.Ready = []string{"P1", "P2", "P3"}

	on := mustSettle(t, newEngine(), f)
	expectScores(t, on.Scores, map[string]int{"P1": 34, "P2": 4, "P3": 4, "P4": -42})

	opts := settle.DefaultOptions()
	opts.ZeroIncomeOnHotDiscard = false
	off := mustSettle(t, settle.New(settle.DefaultRules(), opts), f)
	if !reflect.DeepEqual(on, off) {
		t.Fatalf("toggle changed an unready discarder's hand:\n%+v\n%+v", on, off)
	}
}

func TestRobbingKongTriggersZeroIncome(t *testing.T) {
	f := hotDiscardFacts()
	f.Events = []string{settle.EventRobbingKong}

	res := mustSettle(t, newEngine(), f)
	expectScores(t, res.Scores, map[string]int{"P1": 30, "P4": -30})
}

func TestSettleIsDeterministic(t *testing.T) {
	f := baseFacts()
	f.Winners = []string{"P1"}
	f.Method = settle.MethodDiscard
	f.Discarder = "P2"
	f.Ready = []string{"P3"}
	f.FanCounts = map[string]int{"P1": 1, "P3": 2}
	f.Records = map[settle.Tile]settle.BonusRecord{
		settle.TileOneBamboo: {Exposer: "P4", Outcome: settle.OutcomePung, Targets: []string{"P3"}},
		settle.TileEightDots: {Exposer: "P2", Outcome: settle.OutcomeSafe},
	}
	f.Holdings = map[settle.Tile]map[string]int{
		settle.TileEightDots: {"P1": 1, "P4": 2},
	}
	f.Kongs = []settle.KongDeclaration{{Doer: "P4", Type: settle.KongConcealed, Tile: settle.TileOther}}

	e := newEngine()
	first := mustSettle(t, e, f)
	second := mustSettle(t, e, f)

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("settlement is not deterministic:\n%s\n%s", a, b)
	}
}

func TestZeroSumAcrossHands(t *testing.T) {
	hands := []func(*settle.HandFacts){
		func(f *settle.HandFacts) {
			f.Winners = []string{"P2"}
			f.Ready = []string{"P1"}
			f.FanCounts = map[string]int{"P1": 2, "P2": 1, "P4": 1}
		},
		func(f *settle.HandFacts) {
			f.Winners = []string{"P1", "P3"}
			f.Method = settle.MethodDiscard
			f.Discarder = "P2"
			f.Ready = []string{"P4"}
			f.Records = map[settle.Tile]settle.BonusRecord{
				settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomeWin, Targets: []string{"P3", "P1"}},
				settle.TileEightDots: {Exposer: "P4", Outcome: settle.OutcomeSafe},
			}
			f.Holdings = map[settle.Tile]map[string]int{settle.TileOneBamboo: {"P4": 3}}
		},
		func(f *settle.HandFacts) {
			f.Ready = []string{"P2", "P3"}
			f.Records = map[settle.Tile]settle.BonusRecord{
				settle.TileEightDots: {Exposer: "P1", Outcome: settle.OutcomeOpenKong, Targets: []string{"P4"}},
			}
			f.Kongs = []settle.KongDeclaration{
				{Doer: "P4", Type: settle.KongLiabilityExposed, Tile: settle.TileEightDots, Victim: "P1"},
				{Doer: "P1", Type: settle.KongSupplement, Tile: settle.TileOther},
			}
		},
	}
	e := newEngine()
	for _, mutate := range hands {
		f := baseFacts()
		mutate(&f)
		mustSettle(t, e, f)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*settle.HandFacts)
		want   error
	}{
		{
			name:   "roster of three",
			mutate: func(f *settle.HandFacts) { f.Players = []string{"P1", "P2", "P3"} },
			want:   appErr.ErrInvalidRoster,
		},
		{
			name:   "unseated winner",
			mutate: func(f *settle.HandFacts) { f.Winners = []string{"P9"} },
			want:   appErr.ErrInvalidRoster,
		},
		{
			name:   "fan tiles above four",
			mutate: func(f *settle.HandFacts) { f.FanCounts = map[string]int{"P1": 3, "P2": 2} },
			want:   appErr.ErrPhysicalLimit,
		},
		{
			name: "five bonus tiles in hands",
			mutate: func(f *settle.HandFacts) {
				f.Holdings = map[settle.Tile]map[string]int{settle.TileOneBamboo: {"P1": 4, "P2": 1}}
			},
			want: appErr.ErrPhysicalLimit,
		},
		{
			name: "two left after pung",
			mutate: func(f *settle.HandFacts) {
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomePung, Targets: []string{"P1"}},
				}
				f.Holdings = map[settle.Tile]map[string]int{settle.TileOneBamboo: {"P3": 1, "P4": 1}}
			},
			want: appErr.ErrPhysicalLimit,
		},
		{
			name: "holdings beside a kong",
			mutate: func(f *settle.HandFacts) {
				f.Kongs = []settle.KongDeclaration{{Doer: "P1", Type: settle.KongConcealed, Tile: settle.TileEightDots}}
				f.Holdings = map[settle.Tile]map[string]int{settle.TileEightDots: {"P3": 1}}
			},
			want: appErr.ErrPhysicalLimit,
		},
		{
			name: "duplicate supplement kong",
			mutate: func(f *settle.HandFacts) {
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomePung, Targets: []string{"P1"}},
				}
				f.Kongs = []settle.KongDeclaration{
					{Doer: "P1", Type: settle.KongSupplement, Tile: settle.TileOneBamboo},
					{Doer: "P1", Type: settle.KongSupplement, Tile: settle.TileOneBamboo},
				}
			},
			want: appErr.ErrKongStructure,
		},
		{
			name: "supplement kong without pung",
			mutate: func(f *settle.HandFacts) {
				f.Kongs = []settle.KongDeclaration{{Doer: "P1", Type: settle.KongSupplement, Tile: settle.TileOneBamboo}}
			},
			want: appErr.ErrKongStructure,
		},
		{
			name: "supplement kong by someone else",
			mutate: func(f *settle.HandFacts) {
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomePung, Targets: []string{"P1"}},
				}
				f.Kongs = []settle.KongDeclaration{{Doer: "P3", Type: settle.KongSupplement, Tile: settle.TileOneBamboo}}
			},
			want: appErr.ErrKongStructure,
		},
		{
			name: "supplement beside concealed kong",
			mutate: func(f *settle.HandFacts) {
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomePung, Targets: []string{"P1"}},
				}
				f.Kongs = []settle.KongDeclaration{
					{Doer: "P1", Type: settle.KongSupplement, Tile: settle.TileOneBamboo},
					{Doer: "P3", Type: settle.KongConcealed, Tile: settle.TileOneBamboo},
				}
			},
			want: appErr.ErrKongStructure,
		},
		{
			name: "open kong without liability kong",
			mutate: func(f *settle.HandFacts) {
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileEightDots: {Exposer: "P3", Outcome: settle.OutcomeOpenKong, Targets: []string{"P2"}},
				}
			},
			want: appErr.ErrKongStructure,
		},
		{
			name: "open kong without target",
			mutate: func(f *settle.HandFacts) {
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileEightDots: {Exposer: "P3", Outcome: settle.OutcomeOpenKong},
				}
			},
			want: appErr.ErrMissingTarget,
		},
		{
			name: "exposed kong without victim",
			mutate: func(f *settle.HandFacts) {
				f.Kongs = []settle.KongDeclaration{{Doer: "P1", Type: settle.KongOrdinaryExposed, Tile: settle.TileOther}}
			},
			want: appErr.ErrMissingTarget,
		},
		{
			name: "discard win without discarder",
			mutate: func(f *settle.HandFacts) {
				f.Winners = []string{"P1"}
				f.Method = settle.MethodDiscard
			},
			want: appErr.ErrMissingTarget,
		},
		{
			name: "self-draw with winning bonus tile",
			mutate: func(f *settle.HandFacts) {
				f.Winners = []string{"P1"}
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P4", Outcome: settle.OutcomeWin, Targets: []string{"P1"}},
				}
			},
			want: appErr.ErrInconsistentOutcome,
		},
		{
			name: "both bonus tiles won",
			mutate: func(f *settle.HandFacts) {
				f.Winners = []string{"P1"}
				f.Method = settle.MethodDiscard
				f.Discarder = "P4"
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P4", Outcome: settle.OutcomeWin, Targets: []string{"P1"}},
					settle.TileEightDots: {Exposer: "P4", Outcome: settle.OutcomeWin, Targets: []string{"P1"}},
				}
			},
			want: appErr.ErrInconsistentOutcome,
		},
		{
			name: "pung without exposer",
			mutate: func(f *settle.HandFacts) {
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Outcome: settle.OutcomePung, Targets: []string{"P1"}},
				}
			},
			want: appErr.ErrInconsistentOutcome,
		},
		{
			name: "winning targets differ from winners",
			mutate: func(f *settle.HandFacts) {
				f.Winners = []string{"P1", "P2"}
				f.Method = settle.MethodDiscard
				f.Discarder = "P4"
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P4", Outcome: settle.OutcomeWin, Targets: []string{"P1"}},
				}
			},
			want: appErr.ErrInconsistentOutcome,
		},
		{
			name: "konged tile cannot be won",
			mutate: func(f *settle.HandFacts) {
				f.Winners = []string{"P1"}
				f.Method = settle.MethodDiscard
				f.Discarder = "P4"
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P4", Outcome: settle.OutcomeWin, Targets: []string{"P1"}},
				}
				f.Kongs = []settle.KongDeclaration{{Doer: "P2", Type: settle.KongConcealed, Tile: settle.TileOneBamboo}}
			},
			want: appErr.ErrInconsistentOutcome,
		},
		{
			name: "two kongs on one bonus tile",
			mutate: func(f *settle.HandFacts) {
				f.Kongs = []settle.KongDeclaration{
					{Doer: "P1", Type: settle.KongConcealed, Tile: settle.TileOneBamboo},
					{Doer: "P2", Type: settle.KongConcealed, Tile: settle.TileOneBamboo},
				}
			},
			want: appErr.ErrKongStructure,
		},
		{
			name: "concealed kong after a safe discard",
			mutate: func(f *settle.HandFacts) {
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomeSafe},
				}
				f.Kongs = []settle.KongDeclaration{{Doer: "P1", Type: settle.KongConcealed, Tile: settle.TileOneBamboo}}
			},
			want: appErr.ErrPhysicalLimit,
		},
		{
			name: "ordinary kong after a pung",
			mutate: func(f *settle.HandFacts) {
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomePung, Targets: []string{"P1"}},
				}
				f.Kongs = []settle.KongDeclaration{{Doer: "P3", Type: settle.KongOrdinaryExposed, Tile: settle.TileOneBamboo, Victim: "P2"}}
			},
			want: appErr.ErrPhysicalLimit,
		},
		{
			name: "self-draw with two winners",
			mutate: func(f *settle.HandFacts) {
				f.Winners = []string{"P1", "P2"}
			},
			want: appErr.ErrInconsistentOutcome,
		},
		{
			name: "discarder also wins",
			mutate: func(f *settle.HandFacts) {
				f.Winners = []string{"P1"}
				f.Method = settle.MethodDiscard
				f.Discarder = "P1"
			},
			want: appErr.ErrInconsistentOutcome,
		},
		{
			name: "winning bonus tile from someone other than the discarder",
			mutate: func(f *settle.HandFacts) {
				f.Winners = []string{"P1"}
				f.Method = settle.MethodDiscard
				f.Discarder = "P4"
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P3", Outcome: settle.OutcomeWin, Targets: []string{"P1"}},
				}
			},
			want: appErr.ErrInconsistentOutcome,
		},
		{
			name: "pung claimed by its own discarder",
			mutate: func(f *settle.HandFacts) {
				f.Records = map[settle.Tile]settle.BonusRecord{
					settle.TileOneBamboo: {Exposer: "P2", Outcome: settle.OutcomePung, Targets: []string{"P2"}},
				}
			},
			want: appErr.ErrMissingTarget,
		},
		{
			name: "special event listed twice",
			mutate: func(f *settle.HandFacts) {
				f.Winners = []string{"P1"}
				f.Events = []string{settle.EventKongBloom, settle.EventKongBloom}
			},
			want: appErr.ErrInconsistentOutcome,
		},
		{
			name: "unknown hand shape",
			mutate: func(f *settle.HandFacts) {
				f.Winners = []string{"P1"}
				f.Shape = "thirteen_orphans"
			},
			want: appErr.ErrUnknownScoring,
		},
	}

	e := newEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseFacts()
			tt.mutate(&f)
			_, err := e.Settle(f)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !settle.IsValidation(err) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestFourBonusTilesInHandsIsAccepted(t *testing.T) {
	f := baseFacts()
	f.Holdings = map[settle.Tile]map[string]int{settle.TileOneBamboo: {"P1": 3, "P2": 1}}
	if _, err := newEngine().Settle(f); err != nil {
		t.Fatalf("expected four copies to be accepted, got %v", err)
	}
}

// A winning discard consumes a single copy, exactly like a safe discard, so
// both allow three copies to remain in hands and no more.
func TestWinningDiscardConsumesOneCopy(t *testing.T) {
	for _, outcome := range []settle.Outcome{settle.OutcomeSafe, settle.OutcomeWin} {
		f := baseFacts()
		f.Winners = []string{"P1"}
		f.Method = settle.MethodDiscard
		f.Discarder = "P4"
		rec := settle.BonusRecord{Exposer: "P4", Outcome: outcome}
		if outcome == settle.OutcomeWin {
			rec.Targets = []string{"P1"}
		}
		f.Records = map[settle.Tile]settle.BonusRecord{settle.TileEightDots: rec}

		f.Holdings = map[settle.Tile]map[string]int{settle.TileEightDots: {"P2": 3}}
		if err := settle.ValidateFacts(f); err != nil {
			t.Fatalf("%s: expected three remaining copies to pass, got %v", outcome, err)
		}
		f.Holdings = map[settle.Tile]map[string]int{settle.TileEightDots: {"P2": 3, "P3": 1}}
		if err := settle.ValidateFacts(f); !errors.Is(err, appErr.ErrPhysicalLimit) {
			t.Fatalf("%s: expected physical limit error, got %v", outcome, err)
		}
	}
}

func TestAggregateReportsDefects(t *testing.T) {
	_, _, err := settle.Aggregate(roster, []settle.Transaction{
		{Payer: "P9", Receiver: "P1", Amount: 3, Category: settle.CategoryKong},
	})
	if !errors.Is(err, appErr.ErrInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if settle.IsValidation(err) {
		t.Fatalf("defects must not look like validation errors")
	}
}
