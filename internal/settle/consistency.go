package settle

import (
	"fmt"

	appErr "zhuoji-service/pkg/errors"
)

// CheckConsistency rejects hands where the winners, the win method and the
// bonus tile outcomes contradict each other.
func CheckConsistency(f HandFacts) error {
	if f.Method == MethodSelfDraw && len(f.Winners) > 1 {
		return fmt.Errorf("%w: self-draw has a single winner, got %d", appErr.ErrInconsistentOutcome, len(f.Winners))
	}
	if f.Method == MethodDiscard && len(f.Winners) > 0 {
		if f.Discarder == "" {
			return fmt.Errorf("%w: discard win needs the discarder", appErr.ErrMissingTarget)
		}
		if f.isWinner(f.Discarder) {
			return fmt.Errorf("%w: discarder %q cannot also win", appErr.ErrInconsistentOutcome, f.Discarder)
		}
	}

	if f.Method == MethodSelfDraw {
		for _, tile := range BonusTiles {
			if f.record(tile).Outcome == OutcomeWin {
				return fmt.Errorf("%w: %s cannot be won off a discard in a self-draw hand", appErr.ErrInconsistentOutcome, tile)
			}
		}
	}

	won := 0
	for _, tile := range BonusTiles {
		if f.record(tile).Outcome == OutcomeWin {
			won++
		}
	}
	if won > 1 {
		return fmt.Errorf("%w: %s and %s cannot both be the winning tile", appErr.ErrInconsistentOutcome, TileOneBamboo, TileEightDots)
	}

	for _, tile := range BonusTiles {
		if err := checkRecord(&f, tile); err != nil {
			return err
		}
	}
	return nil
}

func checkRecord(f *HandFacts, tile Tile) error {
	rec := f.record(tile)
	switch rec.Outcome {
	case OutcomePung, OutcomeOpenKong, OutcomeWin:
		if !rec.exposed() {
			return fmt.Errorf("%w: %s outcome %s needs the player who discarded it", appErr.ErrInconsistentOutcome, tile, rec.Outcome)
		}
	}

	switch rec.Outcome {
	case OutcomePung, OutcomeOpenKong:
		if len(rec.Targets) != 1 || rec.Targets[0] == rec.Exposer {
			return fmt.Errorf("%w: %s outcome %s needs exactly one claimer other than %q", appErr.ErrMissingTarget, tile, rec.Outcome, rec.Exposer)
		}
	case OutcomeWin:
		if len(f.Winners) == 0 {
			return fmt.Errorf("%w: %s was won but nobody won the hand", appErr.ErrInconsistentOutcome, tile)
		}
		if !sameSet(rec.Targets, f.Winners) {
			return fmt.Errorf("%w: %s winning targets must match the winners", appErr.ErrInconsistentOutcome, tile)
		}
		if f.Discarder != "" && rec.Exposer != f.Discarder {
			return fmt.Errorf("%w: %s was the winning discard, so %q must be the discarder", appErr.ErrInconsistentOutcome, tile, rec.Exposer)
		}
	}

	if len(f.kongsOn(tile)) > 0 && rec.Outcome == OutcomeWin {
		return fmt.Errorf("%w: %s was konged and cannot be the winning tile", appErr.ErrInconsistentOutcome, tile)
	}
	return nil
}

func sameSet(a, b []string) bool {
	as := make(map[string]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[string]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}
