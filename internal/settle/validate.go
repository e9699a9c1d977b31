package settle

import (
	"fmt"

	appErr "zhuoji-service/pkg/errors"
)

const (
	rosterSize = 4
	tileCopies = 4
)

// ValidateFacts rejects hands whose bonus tile counts or kong declarations
// are physically impossible. It stops at the first violation.
func ValidateFacts(f HandFacts) error {
	if err := validateRoster(&f); err != nil {
		return err
	}
	if err := validateFanCounts(&f); err != nil {
		return err
	}
	for _, tile := range BonusTiles {
		if err := validateBonusTile(&f, tile); err != nil {
			return err
		}
	}
	return nil
}

func validateRoster(f *HandFacts) error {
	if len(f.Players) != rosterSize {
		return fmt.Errorf("%w: need exactly %d players, got %d", appErr.ErrInvalidRoster, rosterSize, len(f.Players))
	}
	seen := make(map[string]struct{}, len(f.Players))
	for _, p := range f.Players {
		if p == "" {
			return fmt.Errorf("%w: empty player name", appErr.ErrInvalidRoster)
		}
		if _, ok := seen[p]; ok {
			return fmt.Errorf("%w: duplicate player %q", appErr.ErrInvalidRoster, p)
		}
		seen[p] = struct{}{}
	}

	member := func(role, p string) error {
		if !f.inRoster(p) {
			return fmt.Errorf("%w: %s %q is not seated", appErr.ErrInvalidRoster, role, p)
		}
		return nil
	}
	for _, w := range f.Winners {
		if err := member("winner", w); err != nil {
			return err
		}
	}
	if f.Discarder != "" {
		if err := member("discarder", f.Discarder); err != nil {
			return err
		}
	}
	for _, p := range f.Ready {
		if err := member("ready player", p); err != nil {
			return err
		}
	}
	for p, n := range f.FanCounts {
		if err := member("fan tile holder", p); err != nil {
			return err
		}
		if n < 0 || n > tileCopies {
			return fmt.Errorf("%w: %s holds %d fan tiles", appErr.ErrPhysicalLimit, p, n)
		}
	}
	for _, tile := range BonusTiles {
		rec := f.record(tile)
		if rec.exposed() {
			if err := member(tile.String()+" exposer", rec.Exposer); err != nil {
				return err
			}
		}
		for _, t := range rec.Targets {
			if err := member(tile.String()+" target", t); err != nil {
				return err
			}
		}
		for p, n := range f.Holdings[tile] {
			if err := member(tile.String()+" holder", p); err != nil {
				return err
			}
			if n < 0 || n > tileCopies {
				return fmt.Errorf("%w: %s holds %d of %s", appErr.ErrPhysicalLimit, p, n, tile)
			}
		}
	}
	for _, k := range f.Kongs {
		if err := member("kong doer", k.Doer); err != nil {
			return err
		}
		if !k.Type.Exposed() {
			continue
		}
		if k.Victim == "" || k.Victim == k.Doer {
			return fmt.Errorf("%w: %s kong by %s needs the player who discarded into it", appErr.ErrMissingTarget, k.Type, k.Doer)
		}
		if err := member("kong victim", k.Victim); err != nil {
			return err
		}
	}
	return nil
}

func validateFanCounts(f *HandFacts) error {
	total := 0
	for _, p := range f.Players {
		total += f.FanCounts[p]
	}
	if total > tileCopies {
		return fmt.Errorf("%w: fan tiles in hand total %d, at most %d exist", appErr.ErrPhysicalLimit, total, tileCopies)
	}
	return nil
}

// consumedBy is how many copies the first exposure took out of circulation.
// A discard that became the winning tile counts as 1, the same as a safe
// discard.
func consumedBy(rec BonusRecord) int {
	if !rec.exposed() {
		return 0
	}
	switch rec.Outcome {
	case OutcomePung:
		return 3
	case OutcomeOpenKong:
		return 4
	default:
		return 1
	}
}

func validateBonusTile(f *HandFacts, tile Tile) error {
	rec := f.record(tile)
	kongs := f.kongsOn(tile)
	holdings := f.holdingTotal(tile)

	var supplements []KongDeclaration
	for _, k := range kongs {
		if k.Type == KongSupplement {
			supplements = append(supplements, k)
		}
	}
	if len(supplements) > 0 {
		if len(supplements) != 1 {
			return fmt.Errorf("%w: %s has %d supplement kongs", appErr.ErrKongStructure, tile, len(supplements))
		}
		if !rec.exposed() || rec.Outcome != OutcomePung {
			return fmt.Errorf("%w: %s supplement kong requires its first exposure to be punged", appErr.ErrKongStructure, tile)
		}
		if supplements[0].Doer != rec.target() {
			return fmt.Errorf("%w: %s supplement kong must be declared by the pung owner %q", appErr.ErrKongStructure, tile, rec.target())
		}
		if len(kongs) > 1 {
			return fmt.Errorf("%w: %s supplement kong cannot coexist with another kong", appErr.ErrKongStructure, tile)
		}
	}

	consumed := consumedBy(rec)
	openKong := rec.exposed() && rec.Outcome == OutcomeOpenKong
	if len(kongs) > 0 || openKong {
		if holdings != 0 {
			return fmt.Errorf("%w: %s is fully konged, hand holdings must be 0 (got %d)", appErr.ErrPhysicalLimit, tile, holdings)
		}
		if openKong {
			target := rec.target()
			if target == "" || target == rec.Exposer {
				return fmt.Errorf("%w: %s open kong needs the player who konged it", appErr.ErrMissingTarget, tile)
			}
			if !hasLiabilityKong(kongs, target, rec.Exposer) {
				return fmt.Errorf("%w: %s open kong needs a liability kong by %s on %s", appErr.ErrKongStructure, tile, target, rec.Exposer)
			}
		}
		if len(kongs) > 1 {
			return fmt.Errorf("%w: %s has only %d copies but %d kongs", appErr.ErrKongStructure, tile, tileCopies, len(kongs))
		}
		if len(supplements) == 0 && rec.exposed() && (rec.Outcome == OutcomeSafe || rec.Outcome == OutcomePung) {
			return fmt.Errorf("%w: %s kong with %d copies already exposed", appErr.ErrPhysicalLimit, tile, consumed)
		}
		return nil
	}

	switch {
	case !rec.exposed():
		if holdings > tileCopies {
			return fmt.Errorf("%w: %s hand holdings total %d, at most %d exist", appErr.ErrPhysicalLimit, tile, holdings, tileCopies)
		}
	case rec.Outcome == OutcomePung:
		if holdings > 1 {
			return fmt.Errorf("%w: %s was punged, at most 1 copy remains (got %d)", appErr.ErrPhysicalLimit, tile, holdings)
		}
	default:
		if holdings > 3 {
			return fmt.Errorf("%w: %s was discarded, at most 3 copies remain (got %d)", appErr.ErrPhysicalLimit, tile, holdings)
		}
	}
	if consumed+holdings > tileCopies {
		return fmt.Errorf("%w: %s exposure took %d and hands hold %d", appErr.ErrPhysicalLimit, tile, consumed, holdings)
	}
	return nil
}

func hasLiabilityKong(kongs []KongDeclaration, doer, victim string) bool {
	for _, k := range kongs {
		if k.Type == KongLiabilityExposed && k.Doer == doer && k.Victim == victim {
			return true
		}
	}
	return false
}
