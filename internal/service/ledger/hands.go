package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"zhuoji-service/internal/model"
	"zhuoji-service/internal/settle"
	appErr "zhuoji-service/pkg/errors"
	"zhuoji-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HandInput is a finished hand as submitted by a client. Prices are derived
// from the session rules and the turned multiplier tile, so any prices in
// Facts are ignored.
type HandInput struct {
	Facts       settle.HandFacts
	Multiplier  string
	SubmittedBy string
}

type HandView struct {
	ID           string               `json:"id"`
	Round        int                  `json:"round"`
	Multiplier   string               `json:"multiplier,omitempty"`
	Facts        settle.HandFacts     `json:"facts"`
	Scores       map[string]int       `json:"scores"`
	Details      map[string][]string  `json:"details"`
	Plan         []settle.Payment     `json:"plan"`
	Transactions []settle.Transaction `json:"transactions"`
	SubmittedBy  string               `json:"submittedBy,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
}

type HandSettledEvent struct {
	Hand      *HandView      `json:"hand"`
	Standings []StandingView `json:"standings"`
}

type HandListResult struct {
	Items []HandView
	Total int64
}

// Preview settles a hand under the default rules without touching storage.
func (s *Service) Preview(input HandInput) (*settle.Result, error) {
	facts, err := s.engine.Rules().Prepare(input.Facts, input.Multiplier)
	if err != nil {
		return nil, err
	}
	return s.engine.Settle(facts)
}

func settleWith(ruleSet RuleSet, input HandInput) (settle.HandFacts, *settle.Result, error) {
	facts, err := ruleSet.Rules.Prepare(input.Facts, input.Multiplier)
	if err != nil {
		return facts, nil, err
	}
	res, err := settle.New(ruleSet.Rules, ruleSet.Options).Settle(facts)
	if err != nil {
		return facts, nil, err
	}
	return facts, res, nil
}

// AppendHand settles a hand with the session's rules and books it as the
// next round. A rejected hand writes nothing.
func (s *Service) AppendHand(ctx context.Context, publicID string, input HandInput) (*HandView, error) {
	session, err := s.findSession(s.db.WithContext(ctx), publicID)
	if err != nil {
		return nil, err
	}
	if session.Status == "closed" {
		return nil, appErr.ErrSessionClosed
	}
	players, err := decodePlayers(session)
	if err != nil {
		return nil, err
	}
	ruleSet, err := decodeRuleSet(session)
	if err != nil {
		return nil, err
	}

	if len(input.Facts.Players) == 0 {
		input.Facts.Players = players
	} else if !sameOrder(input.Facts.Players, players) {
		return nil, fmt.Errorf("%w: hand roster %v does not match session roster %v", appErr.ErrInvalidRoster, input.Facts.Players, players)
	}

	facts, res, err := settleWith(ruleSet, input)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockAppend(ctx, publicID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		hand      model.HandRecord
		standings []StandingView
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockSession(tx, publicID)
		if err != nil {
			return err
		}
		if locked.Status == "closed" {
			return appErr.ErrSessionClosed
		}

		now := time.Now()
		locked.Round++
		locked.UpdatedAt = now

		hand = model.HandRecord{
			PublicID:    uuid.NewString(),
			SessionID:   locked.ID,
			Round:       locked.Round,
			Multiplier:  input.Multiplier,
			FactsJSON:   mustJSON(facts),
			ScoresJSON:  mustJSON(res.Scores),
			DetailsJSON: mustJSON(res.Details),
			PlanJSON:    mustJSON(res.Plan),
			SubmittedBy: input.SubmittedBy,
			CreatedAt:   now,
		}
		if err := tx.Create(&hand).Error; err != nil {
			return err
		}

		if len(res.Transactions) > 0 {
			logs := make([]model.TransferLog, 0, len(res.Transactions))
			for _, t := range res.Transactions {
				logs = append(logs, model.TransferLog{
					SessionID: locked.ID,
					HandID:    hand.ID,
					Round:     locked.Round,
					Payer:     t.Payer,
					Receiver:  t.Receiver,
					Amount:    int64(t.Amount),
					Category:  t.Category.String(),
					Reason:    t.Reason,
					Reversed:  t.Reversed,
					CreatedAt: now,
				})
			}
			if err := tx.Create(&logs).Error; err != nil {
				return err
			}
		}

		book := newStandingBook(tx, locked.ID)
		for _, p := range players {
			st, err := book.Ensure(p)
			if err != nil {
				return err
			}
			st.Total += int64(res.Scores[p])
			st.Hands++
			if contains(facts.Winners, p) {
				st.Wins++
			}
		}
		if err := book.SaveAll(now); err != nil {
			return err
		}

		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		view, err := s.loadView(ctx, tx, locked)
		if err != nil {
			return err
		}
		standings = view.Standings
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := &HandView{
		ID:           hand.PublicID,
		Round:        hand.Round,
		Multiplier:   hand.Multiplier,
		Facts:        facts,
		Scores:       res.Scores,
		Details:      res.Details,
		Plan:         res.Plan,
		Transactions: res.Transactions,
		SubmittedBy:  hand.SubmittedBy,
		CreatedAt:    hand.CreatedAt,
	}
	s.hub.Publish(publicID, MessageHandSettled, HandSettledEvent{Hand: view, Standings: standings})

	logger.Log.Info("hand settled",
		zap.String("sessionID", publicID),
		zap.Int("round", hand.Round),
		zap.Int("transactions", len(res.Transactions)),
		zap.Any("scores", res.Scores),
	)
	return view, nil
}

func (s *Service) ListHands(ctx context.Context, publicID string, page, size int) (*HandListResult, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	session, err := s.findSession(s.db.WithContext(ctx), publicID)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&model.HandRecord{}).
		Where("session_id = ?", session.ID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	result := &HandListResult{Items: []HandView{}, Total: total}
	if total == 0 {
		return result, nil
	}

	var hands []model.HandRecord
	offset := (page - 1) * size
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", session.ID).
		Order("round DESC").
		Limit(size).
		Offset(offset).
		Find(&hands).Error; err != nil {
		return nil, err
	}
	if len(hands) == 0 {
		return result, nil
	}

	ids := make([]int64, 0, len(hands))
	for _, h := range hands {
		ids = append(ids, h.ID)
	}
	var logs []model.TransferLog
	if err := s.db.WithContext(ctx).
		Where("hand_id IN ?", ids).
		Order("id ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	transfers := make(map[int64][]settle.Transaction, len(hands))
	for _, l := range logs {
		var category settle.Category
		if err := category.UnmarshalText([]byte(l.Category)); err != nil {
			return nil, fmt.Errorf("transfer %d: %w", l.ID, err)
		}
		transfers[l.HandID] = append(transfers[l.HandID], settle.Transaction{
			Payer:    l.Payer,
			Receiver: l.Receiver,
			Amount:   int(l.Amount),
			Reason:   l.Reason,
			Category: category,
			Reversed: l.Reversed,
		})
	}

	for _, h := range hands {
		view, err := decodeHand(h)
		if err != nil {
			return nil, err
		}
		view.Transactions = transfers[h.ID]
		if view.Transactions == nil {
			view.Transactions = []settle.Transaction{}
		}
		result.Items = append(result.Items, *view)
	}
	return result, nil
}

func decodeHand(h model.HandRecord) (*HandView, error) {
	view := &HandView{
		ID:          h.PublicID,
		Round:       h.Round,
		Multiplier:  h.Multiplier,
		SubmittedBy: h.SubmittedBy,
		CreatedAt:   h.CreatedAt,
	}
	if err := json.Unmarshal(h.FactsJSON, &view.Facts); err != nil {
		return nil, fmt.Errorf("hand %s facts: %w", h.PublicID, err)
	}
	if err := json.Unmarshal(h.ScoresJSON, &view.Scores); err != nil {
		return nil, fmt.Errorf("hand %s scores: %w", h.PublicID, err)
	}
	if len(h.DetailsJSON) > 0 {
		if err := json.Unmarshal(h.DetailsJSON, &view.Details); err != nil {
			return nil, fmt.Errorf("hand %s details: %w", h.PublicID, err)
		}
	}
	if len(h.PlanJSON) > 0 {
		if err := json.Unmarshal(h.PlanJSON, &view.Plan); err != nil {
			return nil, fmt.Errorf("hand %s plan: %w", h.PublicID, err)
		}
	}
	return view, nil
}

func (s *Service) lockSession(tx *gorm.DB, publicID string) (*model.Session, error) {
	var session model.Session
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("public_id = ?", publicID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// lockAppend takes the per-session append lock in redis.
func (s *Service) lockAppend(ctx context.Context, publicID string) (func(), error) {
	if s.rdb == nil {
		return func() {}, nil
	}
	key := buildAppendLockKey(publicID)
	got, err := s.rdb.SetNX(ctx, key, 1, s.cfg.AppendLockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !got {
		return nil, appErr.ErrSessionBusy
	}
	return func() {
		// The request may already be cancelled; the lock must still go.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.rdb.Del(releaseCtx, key).Err(); err != nil {
			logger.Log.Warn("release append lock failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func buildAppendLockKey(publicID string) string {
	return fmt.Sprintf("zhuoji:session:%s:append", publicID)
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
