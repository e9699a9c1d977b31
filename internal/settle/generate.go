package settle

import (
	"fmt"
	"strings"
)

type generator struct {
	facts *HandFacts
	rules Rules
	out   []Transaction
}

func (g *generator) add(payer, receiver string, amount int, category Category, reason string) {
	if payer == receiver || amount <= 0 {
		return
	}
	g.out = append(g.out, Transaction{
		Payer:    payer,
		Receiver: receiver,
		Amount:   amount,
		Reason:   reason,
		Category: category,
	})
}

// broadcast has every player except receiver pay it.
func (g *generator) broadcast(receiver string, amount int, category Category, reason string) {
	for _, p := range g.facts.Players {
		g.add(p, receiver, amount, category, reason)
	}
}

// Generate expands validated facts into raw transactions, before readiness
// is taken into account. The only error it returns is an invariant
// violation.
func Generate(f HandFacts, rules Rules) ([]Transaction, error) {
	g := &generator{facts: &f, rules: rules}
	g.win()
	g.kongs()
	g.fan()
	g.charges()
	g.extras()
	if err := g.landed(); err != nil {
		return nil, err
	}
	return g.out, nil
}

func (g *generator) win() {
	f := g.facts
	if len(f.Winners) == 0 {
		return
	}
	base := g.rules.WinBase(f.Shape, f.FullFlush, f.Events)
	desc := describeWin(f)
	if f.Method == MethodSelfDraw {
		g.broadcast(f.Winners[0], base, CategoryWin, "self-draw ("+desc+")")
		return
	}
	for _, w := range f.Winners {
		g.add(f.Discarder, w, base, CategoryWin, "discard win ("+desc+")")
	}
}

func describeWin(f *HandFacts) string {
	parts := []string{f.Shape}
	if f.FullFlush {
		parts = append(parts, "full_flush")
	}
	parts = append(parts, f.Events...)
	return strings.Join(parts, "+")
}

func (g *generator) kongs() {
	for _, k := range g.facts.Kongs {
		reason := k.Type.String() + " kong"
		if k.Tile.IsBonus() {
			reason += " " + k.Tile.String()
		}
		switch k.Type {
		case KongConcealed:
			g.broadcast(k.Doer, 4, CategoryKong, reason)
		case KongSupplement:
			g.broadcast(k.Doer, 2, CategoryKong, reason)
		case KongOrdinaryExposed, KongLiabilityExposed:
			g.add(k.Victim, k.Doer, 2, CategoryKong, reason)
		}
	}
}

// fan settles multiplier tile counts pairwise: the higher count collects the
// difference.
func (g *generator) fan() {
	f := g.facts
	unit := f.Prices.Fan
	for i := 0; i < len(f.Players); i++ {
		for j := i + 1; j < len(f.Players); j++ {
			a, b := f.Players[i], f.Players[j]
			ca, cb := f.FanCounts[a], f.FanCounts[b]
			switch {
			case ca > cb:
				g.add(b, a, (ca-cb)*unit, CategoryFan, "fan tiles")
			case cb > ca:
				g.add(a, b, (cb-ca)*unit, CategoryFan, "fan tiles")
			}
		}
	}
}

func (g *generator) charges() {
	for _, tile := range BonusTiles {
		rec := g.facts.record(tile)
		if !rec.exposed() || rec.Outcome != OutcomeSafe {
			continue
		}
		g.broadcast(rec.Exposer, 2*g.facts.Prices.bonus(tile), CategoryBonusCharge, "charge "+tile.String())
	}
}

func (g *generator) extras() {
	for _, tile := range BonusTiles {
		unit := g.facts.Prices.bonus(tile)
		for _, holder := range g.facts.Players {
			n := g.facts.Holdings[tile][holder]
			if n <= 0 {
				continue
			}
			g.broadcast(holder, n*unit, CategoryBonusExtra, fmt.Sprintf("%s in hand x%d", tile, n))
		}
	}
}

func (g *generator) landed() error {
	for _, set := range LandedSets(g.facts.Records, g.facts.Kongs) {
		if err := set.check(); err != nil {
			return err
		}
		unit := g.facts.Prices.bonus(set.Tile)
		for _, p := range g.facts.Players {
			reason := fmt.Sprintf("landed %s %s x%d", set.Origin, set.Tile, set.Count)
			if p == set.Victim {
				reason += ", liable"
			}
			g.add(p, set.Owner, set.amountFrom(p, unit), CategoryBonusResponsibility, reason)
		}
	}
	return nil
}
