package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"zhuoji-service/internal/settle"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Rules    RulesConfig    `mapstructure:"rules"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mysql, sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type LedgerConfig struct {
	AppendLockTTL time.Duration `mapstructure:"appendLockTTL"`
	JoinCodeLen   int           `mapstructure:"joinCodeLen"`
}

// RulesConfig mirrors settle.Rules with string keys so it can live in YAML.
type RulesConfig struct {
	Shapes                 map[string]int `mapstructure:"shapes"`
	FullFlushBonus         int            `mapstructure:"fullFlushBonus"`
	Events                 map[string]int `mapstructure:"events"`
	BonusBase              map[string]int `mapstructure:"bonusBase"`
	BonusMultiplier        map[string]int `mapstructure:"bonusMultiplier"`
	FanUnit                int            `mapstructure:"fanUnit"`
	ZeroIncomeOnHotDiscard bool           `mapstructure:"zeroIncomeOnHotDiscard"`
	HotDiscardEvents       []string       `mapstructure:"hotDiscardEvents"`
}

var GlobalConfig *Config

func LoadConfig(path string) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ZHUOJI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	if _, _, err := cfg.Rules.Settle(); err != nil {
		log.Fatalf("Invalid rules config, %v", err)
	}
	GlobalConfig = &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("jwt.expire", 24)
	v.SetDefault("ledger.appendLockTTL", 10*time.Second)
	v.SetDefault("ledger.joinCodeLen", 6)

	def := DefaultRules()
	v.SetDefault("rules.shapes", def.Shapes)
	v.SetDefault("rules.fullFlushBonus", def.FullFlushBonus)
	v.SetDefault("rules.events", def.Events)
	v.SetDefault("rules.bonusBase", def.BonusBase)
	v.SetDefault("rules.bonusMultiplier", def.BonusMultiplier)
	v.SetDefault("rules.fanUnit", def.FanUnit)
	v.SetDefault("rules.zeroIncomeOnHotDiscard", def.ZeroIncomeOnHotDiscard)
	v.SetDefault("rules.hotDiscardEvents", def.HotDiscardEvents)
}

// DefaultRules is the built-in rule table in config form.
func DefaultRules() RulesConfig {
	rules := settle.DefaultRules()
	opts := settle.DefaultOptions()
	return RulesConfig{
		Shapes:                 rules.Shapes,
		FullFlushBonus:         rules.FullFlushBonus,
		Events:                 rules.Events,
		BonusBase:              tileKeys(rules.BonusBase),
		BonusMultiplier:        tileKeys(rules.BonusMultiplier),
		FanUnit:                rules.FanUnit,
		ZeroIncomeOnHotDiscard: opts.ZeroIncomeOnHotDiscard,
		HotDiscardEvents:       opts.HotDiscardEvents,
	}
}

// Settle converts the config form into engine rules and options.
func (rc RulesConfig) Settle() (settle.Rules, settle.Options, error) {
	base, err := parseTileKeys(rc.BonusBase)
	if err != nil {
		return settle.Rules{}, settle.Options{}, fmt.Errorf("bonusBase: %w", err)
	}
	mul, err := parseTileKeys(rc.BonusMultiplier)
	if err != nil {
		return settle.Rules{}, settle.Options{}, fmt.Errorf("bonusMultiplier: %w", err)
	}
	rules := settle.Rules{
		Shapes:          rc.Shapes,
		FullFlushBonus:  rc.FullFlushBonus,
		Events:          rc.Events,
		BonusBase:       base,
		BonusMultiplier: mul,
		FanUnit:         rc.FanUnit,
	}
	opts := settle.Options{
		ZeroIncomeOnHotDiscard: rc.ZeroIncomeOnHotDiscard,
		HotDiscardEvents:       rc.HotDiscardEvents,
	}
	if err := rules.Validate(); err != nil {
		return settle.Rules{}, settle.Options{}, err
	}
	if err := rules.ValidateOptions(opts); err != nil {
		return settle.Rules{}, settle.Options{}, err
	}
	return rules, opts, nil
}

func tileKeys(m map[settle.Tile]int) map[string]int {
	out := make(map[string]int, len(m))
	for tile, v := range m {
		out[tile.String()] = v
	}
	return out
}

func parseTileKeys(m map[string]int) (map[settle.Tile]int, error) {
	out := make(map[settle.Tile]int, len(m))
	for key, v := range m {
		var tile settle.Tile
		if err := tile.UnmarshalText([]byte(strings.ToLower(key))); err != nil {
			return nil, err
		}
		if !tile.IsBonus() {
			return nil, fmt.Errorf("%q is not a bonus tile", key)
		}
		out[tile] = v
	}
	return out, nil
}
