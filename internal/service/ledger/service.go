package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"zhuoji-service/internal/model"
	"zhuoji-service/internal/settle"
	pkgAuth "zhuoji-service/pkg/auth"
	appErr "zhuoji-service/pkg/errors"
	"zhuoji-service/pkg/logger"
	"zhuoji-service/pkg/utils/random"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Config struct {
	AppendLockTTL time.Duration
	JoinCodeLen   int
	Rules         settle.Rules
	Options       settle.Options
}

func DefaultConfig() Config {
	return Config{
		AppendLockTTL: 10 * time.Second,
		JoinCodeLen:   6,
		Rules:         settle.DefaultRules(),
		Options:       settle.DefaultOptions(),
	}
}

// Service keeps scoring sessions: it settles each submitted hand with the
// session's rule table and books the result into running standings.
type Service struct {
	db     *gorm.DB
	rdb    *redis.Client
	cfg    Config
	hub    *Hub
	engine *settle.Engine
}

// NewService builds the ledger. rdb may be nil, in which case appends are
// serialized by database row locks only.
func NewService(db *gorm.DB, rdb *redis.Client, cfg Config) *Service {
	if cfg.AppendLockTTL <= 0 {
		cfg.AppendLockTTL = 10 * time.Second
	}
	if cfg.JoinCodeLen <= 0 {
		cfg.JoinCodeLen = 6
	}
	return &Service{
		db:     db,
		rdb:    rdb,
		cfg:    cfg,
		hub:    NewHub(),
		engine: settle.New(cfg.Rules, cfg.Options),
	}
}

func (s *Service) Hub() *Hub {
	return s.hub
}

// DefaultRules returns the rule table new sessions start from.
func (s *Service) DefaultRules() RuleSet {
	return RuleSet{Rules: s.cfg.Rules, Options: s.cfg.Options}
}

// mergeRuleSet lays a session's overrides over the configured rules and
// rejects a table that could not settle a hand.
func (s *Service) mergeRuleSet(rules *settle.Rules, opts *settle.Options) (RuleSet, error) {
	ruleSet := s.DefaultRules()
	if rules != nil {
		ruleSet.Rules = ruleSet.Rules.Merge(*rules)
	}
	if opts != nil {
		ruleSet.Options.ZeroIncomeOnHotDiscard = opts.ZeroIncomeOnHotDiscard
		if opts.HotDiscardEvents != nil {
			ruleSet.Options.HotDiscardEvents = opts.HotDiscardEvents
		}
	}
	if err := ruleSet.Rules.Validate(); err != nil {
		return RuleSet{}, err
	}
	if err := ruleSet.Rules.ValidateOptions(ruleSet.Options); err != nil {
		return RuleSet{}, err
	}
	return ruleSet, nil
}

// RuleSet is what a session settles with.
type RuleSet struct {
	Rules   settle.Rules   `json:"rules"`
	Options settle.Options `json:"options"`
}

type CreateSessionParams struct {
	Title   string
	Players []string
	Rules   *settle.Rules
	Options *settle.Options
}

type StandingView struct {
	Player string `json:"player"`
	Total  int64  `json:"total"`
	Hands  int    `json:"hands"`
	Wins   int    `json:"wins"`
}

type SessionView struct {
	ID        string         `json:"id"`
	JoinCode  string         `json:"joinCode"`
	Title     string         `json:"title"`
	Players   []string       `json:"players"`
	Round     int            `json:"round"`
	Status    string         `json:"status"`
	RuleSet   RuleSet        `json:"ruleSet"`
	Standings []StandingView `json:"standings"`
	Token     string         `json:"token,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (s *Service) CreateSession(ctx context.Context, params CreateSessionParams) (*SessionView, error) {
	players := make([]string, 0, len(params.Players))
	for _, p := range params.Players {
		players = append(players, strings.TrimSpace(p))
	}
	if err := checkRoster(players); err != nil {
		return nil, err
	}

	ruleSet, err := s.mergeRuleSet(params.Rules, params.Options)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &model.Session{
		PublicID:    uuid.NewString(),
		JoinCode:    random.Code(s.cfg.JoinCodeLen),
		Title:       strings.TrimSpace(params.Title),
		PlayersJSON: mustJSON(players),
		RulesJSON:   mustJSON(ruleSet),
		Status:      "open",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		standings := make([]model.Standing, 0, len(players))
		for _, p := range players {
			standings = append(standings, model.Standing{SessionID: session.ID, Player: p, UpdatedAt: now})
		}
		return tx.Create(&standings).Error
	})
	if err != nil {
		return nil, err
	}

	view, err := s.loadView(ctx, s.db.WithContext(ctx), session)
	if err != nil {
		return nil, err
	}
	if view.Token, err = pkgAuth.GenerateSessionToken(session.PublicID); err != nil {
		return nil, err
	}

	logger.Log.Info("session created",
		zap.String("sessionID", session.PublicID),
		zap.Strings("players", players),
	)
	return view, nil
}

func (s *Service) GetSession(ctx context.Context, publicID string) (*SessionView, error) {
	session, err := s.findSession(s.db.WithContext(ctx), publicID)
	if err != nil {
		return nil, err
	}
	return s.loadView(ctx, s.db.WithContext(ctx), session)
}

// JoinSession exchanges a join code for the session and a submit token.
func (s *Service) JoinSession(ctx context.Context, code string) (*SessionView, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, appErr.ErrSessionNotFound
	}
	var session model.Session
	if err := s.db.WithContext(ctx).Where("join_code = ?", code).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrSessionNotFound
		}
		return nil, err
	}
	view, err := s.loadView(ctx, s.db.WithContext(ctx), &session)
	if err != nil {
		return nil, err
	}
	if view.Token, err = pkgAuth.GenerateSessionToken(session.PublicID); err != nil {
		return nil, err
	}
	return view, nil
}

// CloseSession stops the session from accepting hands.
func (s *Service) CloseSession(ctx context.Context, publicID string) (*SessionView, error) {
	var view *SessionView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.lockSession(tx, publicID)
		if err != nil {
			return err
		}
		if session.Status == "closed" {
			return appErr.ErrSessionClosed
		}
		session.Status = "closed"
		session.UpdatedAt = time.Now()
		if err := tx.Save(session).Error; err != nil {
			return err
		}
		view, err = s.loadView(ctx, tx, session)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.hub.Publish(publicID, MessageSessionClosed, view)
	return view, nil
}

func (s *Service) findSession(db *gorm.DB, publicID string) (*model.Session, error) {
	if _, err := uuid.Parse(publicID); err != nil {
		return nil, appErr.ErrSessionNotFound
	}
	var session model.Session
	if err := db.Where("public_id = ?", publicID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *Service) loadView(ctx context.Context, db *gorm.DB, session *model.Session) (*SessionView, error) {
	players, err := decodePlayers(session)
	if err != nil {
		return nil, err
	}
	ruleSet, err := decodeRuleSet(session)
	if err != nil {
		return nil, err
	}

	var rows []model.Standing
	if err := db.WithContext(ctx).Where("session_id = ?", session.ID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byPlayer := make(map[string]model.Standing, len(rows))
	for _, row := range rows {
		byPlayer[row.Player] = row
	}
	standings := make([]StandingView, 0, len(players))
	for _, p := range players {
		row := byPlayer[p]
		standings = append(standings, StandingView{Player: p, Total: row.Total, Hands: row.Hands, Wins: row.Wins})
	}

	return &SessionView{
		ID:        session.PublicID,
		JoinCode:  session.JoinCode,
		Title:     session.Title,
		Players:   players,
		Round:     session.Round,
		Status:    session.Status,
		RuleSet:   ruleSet,
		Standings: standings,
		CreatedAt: session.CreatedAt,
	}, nil
}

func checkRoster(players []string) error {
	if len(players) != 4 {
		return fmt.Errorf("%w: a session seats exactly 4 players, got %d", appErr.ErrInvalidRoster, len(players))
	}
	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if p == "" {
			return fmt.Errorf("%w: empty player name", appErr.ErrInvalidRoster)
		}
		if _, ok := seen[p]; ok {
			return fmt.Errorf("%w: duplicate player %q", appErr.ErrInvalidRoster, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

func decodePlayers(session *model.Session) ([]string, error) {
	var players []string
	if err := json.Unmarshal(session.PlayersJSON, &players); err != nil {
		return nil, fmt.Errorf("session %s players: %w", session.PublicID, err)
	}
	return players, nil
}

func decodeRuleSet(session *model.Session) (RuleSet, error) {
	var ruleSet RuleSet
	if err := json.Unmarshal(session.RulesJSON, &ruleSet); err != nil {
		return RuleSet{}, fmt.Errorf("session %s rules: %w", session.PublicID, err)
	}
	return ruleSet, nil
}

func mustJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("{}")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
