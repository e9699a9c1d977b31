package settle

import (
	"fmt"
	"strconv"
	"strings"

	appErr "zhuoji-service/pkg/errors"
)

// Hand shapes.
const (
	ShapePlain            = "plain"              // 平胡
	ShapeAllPungs         = "all_pungs"          // 大对子
	ShapeSevenPairs       = "seven_pairs"        // 七对
	ShapeDragonSevenPairs = "dragon_seven_pairs" // 龙七对
)

// Special events.
const (
	EventReadyWin    = "ready_win"    // 报听胡
	EventKillReady   = "kill_ready"   // 杀报
	EventKongBloom   = "kong_bloom"   // 杠上花
	EventRobbingKong = "robbing_kong" // 抢杠胡
	EventHotDiscard  = "hot_discard"  // 热炮
	EventHeavenly    = "heavenly"     // 天胡
	EventEarthly     = "earthly"      // 地胡
)

// Rules is the scoring table of the variant. It carries no behavior beyond
// lookups and price derivation.
type Rules struct {
	Shapes          map[string]int `json:"shapes"`
	FullFlushBonus  int            `json:"fullFlushBonus"`
	Events          map[string]int `json:"events"`
	BonusBase       map[Tile]int   `json:"bonusBase"`
	BonusMultiplier map[Tile]int   `json:"bonusMultiplier"`
	FanUnit         int            `json:"fanUnit"`
}

func DefaultRules() Rules {
	return Rules{
		Shapes: map[string]int{
			ShapePlain:            5,
			ShapeAllPungs:         15,
			ShapeSevenPairs:       25,
			ShapeDragonSevenPairs: 50,
		},
		FullFlushBonus: 25,
		Events: map[string]int{
			EventReadyWin:    25,
			EventKillReady:   50,
			EventKongBloom:   25,
			EventRobbingKong: 25,
			EventHotDiscard:  25,
			EventHeavenly:    75,
			EventEarthly:     50,
		},
		BonusBase:       map[Tile]int{TileOneBamboo: 2, TileEightDots: 2},
		BonusMultiplier: map[Tile]int{TileOneBamboo: 1, TileEightDots: 1},
		FanUnit:         1,
	}
}

// Merge lays o over r. Map entries in o replace or extend those of r and
// non-zero scalars replace r's, so a partial override keeps the rest of
// the table.
func (r Rules) Merge(o Rules) Rules {
	out := Rules{
		Shapes:          mergeInts(r.Shapes, o.Shapes),
		FullFlushBonus:  r.FullFlushBonus,
		Events:          mergeInts(r.Events, o.Events),
		BonusBase:       mergeInts(r.BonusBase, o.BonusBase),
		BonusMultiplier: mergeInts(r.BonusMultiplier, o.BonusMultiplier),
		FanUnit:         r.FanUnit,
	}
	if o.FullFlushBonus != 0 {
		out.FullFlushBonus = o.FullFlushBonus
	}
	if o.FanUnit != 0 {
		out.FanUnit = o.FanUnit
	}
	return out
}

func mergeInts[K comparable](base, over map[K]int) map[K]int {
	out := make(map[K]int, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Validate rejects tables that cannot settle a hand: every bonus tile needs
// a positive base price, the fan unit must be positive and at least one
// hand shape must score.
func (r Rules) Validate() error {
	if len(r.Shapes) == 0 {
		return fmt.Errorf("%w: no hand shapes", appErr.ErrInvalidRules)
	}
	for shape, v := range r.Shapes {
		if v < 0 {
			return fmt.Errorf("%w: hand shape %q scores %d", appErr.ErrInvalidRules, shape, v)
		}
	}
	for event, v := range r.Events {
		if v < 0 {
			return fmt.Errorf("%w: special event %q scores %d", appErr.ErrInvalidRules, event, v)
		}
	}
	if r.FullFlushBonus < 0 {
		return fmt.Errorf("%w: full flush bonus %d", appErr.ErrInvalidRules, r.FullFlushBonus)
	}
	if r.FanUnit <= 0 {
		return fmt.Errorf("%w: fan unit must be positive, got %d", appErr.ErrInvalidRules, r.FanUnit)
	}
	for tile := range r.BonusBase {
		if !tile.IsBonus() {
			return fmt.Errorf("%w: %s is not a bonus tile", appErr.ErrInvalidRules, tile)
		}
	}
	for tile, v := range r.BonusMultiplier {
		if !tile.IsBonus() || v < 0 {
			return fmt.Errorf("%w: multiplier %d for %s", appErr.ErrInvalidRules, v, tile)
		}
	}
	for _, tile := range BonusTiles {
		if r.BonusBase[tile] <= 0 {
			return fmt.Errorf("%w: %s needs a positive base price", appErr.ErrInvalidRules, tile)
		}
	}
	return nil
}

// ValidateOptions checks that every hot discard trigger is a scored event.
func (r Rules) ValidateOptions(opts Options) error {
	for _, e := range opts.HotDiscardEvents {
		if _, ok := r.Events[e]; !ok {
			return fmt.Errorf("%w: hot discard trigger %q is not a special event", appErr.ErrInvalidRules, e)
		}
	}
	return nil
}

// WinBase is the amount each paying player owes each winner.
func (r Rules) WinBase(shape string, fullFlush bool, events []string) int {
	total := r.Shapes[shape]
	if fullFlush {
		total += r.FullFlushBonus
	}
	for _, e := range events {
		total += r.Events[e]
	}
	return total
}

func (r Rules) checkTags(f *HandFacts) error {
	if len(f.Winners) == 0 {
		return nil
	}
	if _, ok := r.Shapes[f.Shape]; !ok {
		return fmt.Errorf("%w: hand shape %q", appErr.ErrUnknownScoring, f.Shape)
	}
	seen := make(map[string]struct{}, len(f.Events))
	for _, e := range f.Events {
		if _, ok := r.Events[e]; !ok {
			return fmt.Errorf("%w: special event %q", appErr.ErrUnknownScoring, e)
		}
		if _, ok := seen[e]; ok {
			return fmt.Errorf("%w: special event %q listed twice", appErr.ErrInconsistentOutcome, e)
		}
		seen[e] = struct{}{}
	}
	return nil
}

// UnitPrices derives the bonus and fan unit prices for a hand whose
// multiplier tile is fan. A zero fan means no tile was turned.
func (r Rules) UnitPrices(fan SuitedTile) Prices {
	prices := Prices{Bonus: make(map[Tile]int, len(BonusTiles)), Fan: r.FanUnit}
	doubled, isDoubling := fan.Doubles()
	for _, tile := range BonusTiles {
		mul := r.BonusMultiplier[tile]
		if mul <= 0 {
			mul = 1
		}
		price := r.BonusBase[tile] * mul
		if isDoubling && doubled == tile {
			price *= 2
		}
		prices.Bonus[tile] = price
	}
	return prices
}

// Prepare fills in the prices for the turned multiplier tile. When that
// tile doubles a bonus tile nobody settles fan counts, so they are cleared.
// With no tile turned the counts still settle.
func (r Rules) Prepare(f HandFacts, multiplier string) (HandFacts, error) {
	fan, err := ParseSuitedTile(multiplier)
	if err != nil {
		return f, err
	}
	f.Prices = r.UnitPrices(fan)
	if _, ok := fan.Doubles(); ok {
		f.FanCounts = nil
	}
	return f, nil
}

type Suit int

const (
	SuitDots       Suit = iota // 筒
	SuitBamboo                 // 条
	SuitCharacters             // 万
)

var suitLetters = map[string]Suit{
	"d": SuitDots, "筒": SuitDots,
	"b": SuitBamboo, "条": SuitBamboo,
	"c": SuitCharacters, "万": SuitCharacters,
}

// SuitedTile is a numbered tile such as the turned multiplier tile.
type SuitedTile struct {
	Rank int
	Suit Suit
}

// Doubles reports which bonus tile's price this multiplier tile doubles:
// nine-bamboo doubles one-bamboo, seven-dots doubles eight-dots.
func (t SuitedTile) Doubles() (Tile, bool) {
	switch {
	case t.Rank == 9 && t.Suit == SuitBamboo:
		return TileOneBamboo, true
	case t.Rank == 7 && t.Suit == SuitDots:
		return TileEightDots, true
	}
	return TileOther, false
}

// ParseSuitedTile parses "9b", "7d", "3c" or "9条". Empty input yields the
// zero tile.
func ParseSuitedTile(s string) (SuitedTile, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SuitedTile{}, nil
	}
	for letter, suit := range suitLetters {
		if !strings.HasSuffix(s, letter) {
			continue
		}
		rank, err := strconv.Atoi(strings.TrimSuffix(s, letter))
		if err != nil || rank < 1 || rank > 9 {
			return SuitedTile{}, fmt.Errorf("%w: %q", appErr.ErrInvalidTile, s)
		}
		return SuitedTile{Rank: rank, Suit: suit}, nil
	}
	return SuitedTile{}, fmt.Errorf("%w: %q", appErr.ErrInvalidTile, s)
}
