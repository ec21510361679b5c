package severity

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	yaml "gopkg.in/yaml.v2"
)

type Tier string

const (
	TierActive        Tier = "active"
	TierClosed        Tier = "closed"
	TierIndeterminate Tier = "indeterminate"
)

const (
	Security      = "security"
	Critical      = "critical"
	Major         = "major"
	Minor         = "minor"
	Warning       = "warning"
	Indeterminate = "indeterminate"
	Cleared       = "cleared"
	Normal        = "normal"
	OK            = "ok"
	Unknown       = "unknown"
	Informational = "informational"
	Debug         = "debug"
	Trace         = "trace"
)

var ErrUnknownSeverity = errors.New("unknown severity")
var ErrInvalidConfiguration = errors.New("invalid severity configuration")

// Model ranks severity labels. A lower rank is more severe.
type Model interface {
	Rank(severity string) (int, error)
	Tier(severity string) (Tier, error)
	Trend(previous, current string) (Trend, error)
	IsValid(severity string) bool
	Severities() []string
}

type Level struct {
	Name string `yaml:"name"`
	Rank int    `yaml:"rank"`
}

type Configuration struct {
	Levels        []Level  `yaml:"severities"`
	Closed        []string `yaml:"closed"`
	Indeterminate []string `yaml:"indeterminate"`
}

type entry struct {
	rank int
	tier Tier
}

type table struct {
	names   []string
	entries map[string]entry
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Levels: []Level{
			{Name: Security, Rank: 0},
			{Name: Critical, Rank: 1},
			{Name: Major, Rank: 2},
			{Name: Minor, Rank: 3},
			{Name: Warning, Rank: 4},
			{Name: Indeterminate, Rank: 5},
			{Name: Cleared, Rank: 5},
			{Name: Normal, Rank: 5},
			{Name: OK, Rank: 5},
			{Name: Unknown, Rank: 5},
			{Name: Informational, Rank: 6},
			{Name: Debug, Rank: 6},
			{Name: Trace, Rank: 7},
		},
		Closed:        []string{Cleared, Normal, OK},
		Indeterminate: []string{Indeterminate, Informational, Debug, Trace},
	}
}

func Default() Model {
	m, _ := New(DefaultConfiguration())
	return m
}

// New validates cfg and builds a lookup table from it. The baseline severity
// "unknown" must be present since every new alarm is compared against it.
func New(cfg Configuration) (Model, error) {
	if len(cfg.Levels) == 0 {
		return nil, fmt.Errorf("%w: no severities configured", ErrInvalidConfiguration)
	}

	t := &table{
		names:   make([]string, 0, len(cfg.Levels)),
		entries: make(map[string]entry, len(cfg.Levels)),
	}

	for _, l := range cfg.Levels {
		name := normalize(l.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: severity without name", ErrInvalidConfiguration)
		}
		if _, ok := t.entries[name]; ok {
			return nil, fmt.Errorf("%w: duplicate severity %s", ErrInvalidConfiguration, name)
		}
		if l.Rank < 0 {
			return nil, fmt.Errorf("%w: negative rank for %s", ErrInvalidConfiguration, name)
		}

		t.names = append(t.names, name)
		t.entries[name] = entry{rank: l.Rank, tier: TierActive}
	}

	if _, ok := t.entries[Unknown]; !ok {
		return nil, fmt.Errorf("%w: baseline severity %s is missing", ErrInvalidConfiguration, Unknown)
	}

	setTier := func(names []string, tier Tier) error {
		for _, n := range lo.Uniq(lo.Map(names, func(s string, _ int) string { return normalize(s) })) {
			e, ok := t.entries[n]
			if !ok {
				return fmt.Errorf("%w: %s tier references unknown severity %s", ErrInvalidConfiguration, tier, n)
			}
			if e.tier != TierActive {
				return fmt.Errorf("%w: severity %s is in both %s and %s tier", ErrInvalidConfiguration, n, e.tier, tier)
			}
			e.tier = tier
			t.entries[n] = e
		}
		return nil
	}

	if err := setTier(cfg.Closed, TierClosed); err != nil {
		return nil, err
	}
	if err := setTier(cfg.Indeterminate, TierIndeterminate); err != nil {
		return nil, err
	}

	return t, nil
}

func LoadConfiguration(data io.Reader) (*Configuration, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Configuration{}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (t *table) lookup(severity string) (entry, error) {
	e, ok := t.entries[normalize(severity)]
	if !ok {
		return entry{}, fmt.Errorf("%w: %q", ErrUnknownSeverity, severity)
	}
	return e, nil
}

func (t *table) Rank(severity string) (int, error) {
	e, err := t.lookup(severity)
	if err != nil {
		return 0, err
	}
	return e.rank, nil
}

func (t *table) Tier(severity string) (Tier, error) {
	e, err := t.lookup(severity)
	if err != nil {
		return "", err
	}
	return e.tier, nil
}

func (t *table) IsValid(severity string) bool {
	_, err := t.lookup(severity)
	return err == nil
}

func (t *table) Severities() []string {
	return append([]string{}, t.names...)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
