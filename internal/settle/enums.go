package settle

import "fmt"

type Method int

const (
	MethodSelfDraw Method = iota // 自摸
	MethodDiscard                // 点炮
)

type Outcome int

// Outcome of the first exposure of a bonus tile.
const (
	OutcomeSafe     Outcome = iota // discarded, nobody claimed it
	OutcomePung                    // 被碰
	OutcomeOpenKong                // 被明杠
	OutcomeWin                     // 被胡
)

type KongType int

const (
	KongConcealed        KongType = iota // 暗杠
	KongSupplement                       // 补杠, upgraded from an exposed pung
	KongOrdinaryExposed                  // 普通明杠
	KongLiabilityExposed                 // 责任明杠
)

type Tile int

const (
	TileOther     Tile = iota // 杂牌
	TileOneBamboo             // 幺鸡
	TileEightDots             // 八筒
)

// BonusTiles lists the bonus tiles in settlement order.
var BonusTiles = []Tile{TileOneBamboo, TileEightDots}

type Category int

const (
	CategoryWin Category = iota
	CategoryKong
	CategoryFan
	CategoryBonusCharge
	CategoryBonusResponsibility
	CategoryBonusExtra
)

type Origin int

const (
	OriginPung Origin = iota
	OriginKong
	OriginWin
)

var (
	methodNames   = []string{"self_draw", "discard"}
	outcomeNames  = []string{"safe", "pung", "open_kong", "win"}
	kongNames     = []string{"concealed", "supplement", "ordinary_exposed", "liability_exposed"}
	tileNames     = []string{"other", "one_bamboo", "eight_dots"}
	categoryNames = []string{"win", "kong", "fan", "bonus_charge", "bonus_responsibility", "bonus_extra"}
	originNames   = []string{"pung", "kong", "win"}
)

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("unknown(%d)", v)
	}
	return names[v]
}

func parseEnum(kind string, names []string, text []byte) (int, error) {
	s := string(text)
	for i, name := range names {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}

func (m Method) String() string { return enumName(methodNames, int(m)) }

func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Method) UnmarshalText(text []byte) error {
	v, err := parseEnum("method", methodNames, text)
	if err != nil {
		return err
	}
	*m = Method(v)
	return nil
}

func (o Outcome) String() string { return enumName(outcomeNames, int(o)) }

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := parseEnum("outcome", outcomeNames, text)
	if err != nil {
		return err
	}
	*o = Outcome(v)
	return nil
}

func (k KongType) String() string { return enumName(kongNames, int(k)) }

func (k KongType) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *KongType) UnmarshalText(text []byte) error {
	v, err := parseEnum("kong type", kongNames, text)
	if err != nil {
		return err
	}
	*k = KongType(v)
	return nil
}

// Exposed reports whether the kong was completed with another player's discard.
func (k KongType) Exposed() bool {
	return k == KongOrdinaryExposed || k == KongLiabilityExposed
}

func (t Tile) String() string { return enumName(tileNames, int(t)) }

func (t Tile) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tile) UnmarshalText(text []byte) error {
	v, err := parseEnum("tile", tileNames, text)
	if err != nil {
		return err
	}
	*t = Tile(v)
	return nil
}

func (t Tile) IsBonus() bool {
	return t == TileOneBamboo || t == TileEightDots
}

func (c Category) String() string { return enumName(categoryNames, int(c)) }

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(text []byte) error {
	v, err := parseEnum("category", categoryNames, text)
	if err != nil {
		return err
	}
	*c = Category(v)
	return nil
}

// Reversible reports whether an unready receiver turns the transfer around
// instead of forfeiting it.
func (c Category) Reversible() bool {
	switch c {
	case CategoryKong, CategoryBonusCharge, CategoryBonusResponsibility, CategoryBonusExtra:
		return true
	default:
		return false
	}
}

func (o Origin) String() string { return enumName(originNames, int(o)) }

func (o Origin) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
