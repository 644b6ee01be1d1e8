package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every rules-file validation failure.
var ErrInvalidConfig = errors.New("policy: invalid rules config")

//go:embed rules_schema.json
var rulesSchemaJSON string

// rulesSchema is compiled once at init; the schema is embedded, so a compile
// failure is a programming error.
var rulesSchema = jsonschema.MustCompileString("rules_schema.json", rulesSchemaJSON)

// Rule is one entry in the rules file. Empty pattern lists match anything;
// patterns use path.Match globs ("acme/*", "release-*").
type Rule struct {
	Users    []string `yaml:"users"`
	Repos    []string `yaml:"repos"`
	Actions  []string `yaml:"actions"`
	Decision Decision `yaml:"decision"`
	Reason   string   `yaml:"reason"`
}

// RuleSet is a first-match-wins policy evaluator loaded from YAML.
type RuleSet struct {
	defaultDecision Decision
	defaultReason   string
	rules           []Rule
}

// rulesFile is the on-disk document shape.
type rulesFile struct {
	Default       Decision `yaml:"default"`
	DefaultReason string   `yaml:"default_reason"`
	Rules         []Rule   `yaml:"rules"`
}

// Parse decodes and validates a rules document. The YAML is round-tripped
// through JSON so the embedded schema can check it before any struct
// decoding trusts the shape.
func Parse(data []byte) (*RuleSet, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	jsonBytes, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	var jsonValue any
	if err := json.Unmarshal(jsonBytes, &jsonValue); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := rulesSchema.Validate(jsonValue); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var doc rulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc.Default == "" {
		doc.Default = RequireConfirmation
	}

	return &RuleSet{
		defaultDecision: doc.Default,
		defaultReason:   doc.DefaultReason,
		rules:           doc.Rules,
	}, nil
}

// LoadFile reads and parses the rules file at p.
func LoadFile(p string) (*RuleSet, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("policy: read rules file: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("policy: %s: %w", p, err)
	}
	return rs, nil
}

// AllowAll returns a RuleSet that allows everything. Used by the dev REPL
// when no rules file is configured.
func AllowAll() *RuleSet {
	return &RuleSet{defaultDecision: Allow}
}

// Evaluate scans rules in order and returns the first match; the document's
// default decision applies when nothing matches.
func (rs *RuleSet) Evaluate(_ context.Context, user, repo, actionType string) (Result, error) {
	for i := range rs.rules {
		r := &rs.rules[i]
		if matchAny(r.Users, user) && matchAny(r.Repos, repo) && matchAny(r.Actions, actionType) {
			return Result{Decision: r.Decision, Reason: r.Reason}, nil
		}
	}
	return Result{Decision: rs.defaultDecision, Reason: rs.defaultReason}, nil
}

// matchAny reports whether value matches any glob in patterns. An empty
// pattern list matches everything.
func matchAny(patterns []string, value string) bool {
	if len(patterns) == 0 {
		return true
	}
	value = strings.ToLower(value)
	for _, p := range patterns {
		if ok, err := path.Match(strings.ToLower(p), value); err == nil && ok {
			return true
		}
	}
	return false
}
