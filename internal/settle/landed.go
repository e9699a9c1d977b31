package settle

import (
	"fmt"

	appErr "zhuoji-service/pkg/errors"
)

// LandedSet is a group of bonus tile copies that left circulation into one
// player's exposed melds or winning hand.
type LandedSet struct {
	Owner  string `json:"owner"`
	Tile   Tile   `json:"tile"`
	Count  int    `json:"count"`
	Victim string `json:"victim,omitempty"`
	Origin Origin `json:"origin"`
}

func (s LandedSet) check() error {
	switch {
	case s.Owner == "":
		return fmt.Errorf("%w: landed %s without owner", appErr.ErrInvariantViolation, s.Tile)
	case !s.Tile.IsBonus():
		return fmt.Errorf("%w: landed set on non-bonus tile %s", appErr.ErrInvariantViolation, s.Tile)
	case s.Count != 1 && s.Count != 3 && s.Count != 4:
		return fmt.Errorf("%w: landed %s with count %d", appErr.ErrInvariantViolation, s.Tile, s.Count)
	case s.Victim == s.Owner:
		return fmt.Errorf("%w: %s is liable for their own %s", appErr.ErrInvariantViolation, s.Owner, s.Tile)
	}
	return nil
}

// amountFrom is what payer owes the owner for this set.
func (s LandedSet) amountFrom(payer string, unit int) int {
	if payer == s.Victim {
		return 2*unit + unit*(s.Count-1)
	}
	return unit * s.Count
}

// LandedSets derives the landed bonus sets of a hand from its bonus records
// and kong declarations. Only liability kongs and supplement kongs upgraded
// from a pung carry a liable victim; concealed and ordinary kongs do not.
func LandedSets(records map[Tile]BonusRecord, kongs []KongDeclaration) []LandedSet {
	var sets []LandedSet
	for _, tile := range BonusTiles {
		rec := records[tile]
		if !rec.exposed() {
			continue
		}
		switch rec.Outcome {
		case OutcomePung:
			if upgraded(rec, tile, kongs) || rec.target() == "" {
				continue
			}
			sets = append(sets, LandedSet{Owner: rec.target(), Tile: tile, Count: 3, Victim: rec.Exposer, Origin: OriginPung})
		case OutcomeWin:
			for _, winner := range rec.Targets {
				sets = append(sets, LandedSet{Owner: winner, Tile: tile, Count: 1, Victim: rec.Exposer, Origin: OriginWin})
			}
		}
	}

	for _, k := range kongs {
		if !k.Tile.IsBonus() {
			continue
		}
		set := LandedSet{Owner: k.Doer, Tile: k.Tile, Count: 4, Origin: OriginKong}
		switch k.Type {
		case KongLiabilityExposed:
			set.Victim = k.Victim
		case KongSupplement:
			rec := records[k.Tile]
			if rec.exposed() && rec.Outcome == OutcomePung && rec.target() == k.Doer {
				set.Victim = rec.Exposer
			}
		}
		sets = append(sets, set)
	}
	return sets
}

func upgraded(rec BonusRecord, tile Tile, kongs []KongDeclaration) bool {
	for _, k := range kongs {
		if k.Tile == tile && k.Type == KongSupplement && k.Doer == rec.target() {
			return true
		}
	}
	return false
}
