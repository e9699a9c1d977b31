package ledger

import (
	"errors"
	"time"

	"zhuoji-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// standingBook loads each player's standing once per transaction, locks
// it, and writes back only what changed.
type standingBook struct {
	tx        *gorm.DB
	sessionID int64
	entries   map[string]*standingEntry
}

type standingEntry struct {
	standing *model.Standing
	exists   bool
	dirty    bool
}

func newStandingBook(tx *gorm.DB, sessionID int64) *standingBook {
	return &standingBook{
		tx:        tx,
		sessionID: sessionID,
		entries:   make(map[string]*standingEntry),
	}
}

func (sb *standingBook) Ensure(player string) (*model.Standing, error) {
	if entry, ok := sb.entries[player]; ok {
		entry.dirty = true
		return entry.standing, nil
	}

	standing := &model.Standing{}
	err := sb.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ? AND player = ?", sb.sessionID, player).
		First(standing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		standing = &model.Standing{SessionID: sb.sessionID, Player: player}
	}

	sb.entries[player] = &standingEntry{
		standing: standing,
		exists:   err == nil,
		dirty:    true,
	}
	return standing, nil
}

func (sb *standingBook) SaveAll(now time.Time) error {
	for _, entry := range sb.entries {
		if !entry.dirty {
			continue
		}
		entry.standing.UpdatedAt = now
		var err error
		if entry.exists {
			err = sb.tx.Save(entry.standing).Error
		} else {
			err = sb.tx.Create(entry.standing).Error
			if err == nil {
				entry.exists = true
			}
		}
		if err != nil {
			return err
		}
		entry.dirty = false
	}
	return nil
}
