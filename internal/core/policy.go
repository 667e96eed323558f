package core

import (
	"fmt"
	"path"
)

// RuleKind discriminates the closed set of rule variants the engine can
// evaluate. Keeping the set closed lets evaluation switch exhaustively
// instead of dispatching through untyped lookups.
type RuleKind string

const (
	RuleByFilePattern     RuleKind = "file-pattern"
	RuleByChangeMagnitude RuleKind = "change-magnitude"
	RuleByDependencyName  RuleKind = "dependency-name"
)

// Rule is one configured automation rule. Which fields are meaningful
// depends on Kind: Pattern for file-pattern rules, MinFiles for
// change-magnitude rules, Dependency for dependency-name rules.
type Rule struct {
	Name       string   `yaml:"name"`
	Kind       RuleKind `yaml:"kind"`
	Feature    string   `yaml:"feature"`
	Action     Action   `yaml:"action"`
	Pattern    string   `yaml:"pattern,omitempty"`
	MinFiles   int      `yaml:"min_files,omitempty"`
	Dependency string   `yaml:"dependency,omitempty"`
	Workflow   string   `yaml:"workflow,omitempty"`
}

// Validate checks the rule's variant-specific requirements.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	switch r.Action {
	case ActionApprove, ActionRequestReview, ActionRegenerateWorkflow, ActionNotify, ActionNoAction:
	default:
		return fmt.Errorf("rule %q: unknown action %q", r.Name, r.Action)
	}
	switch r.Kind {
	case RuleByFilePattern:
		if r.Pattern == "" {
			return fmt.Errorf("rule %q: file-pattern rule requires a pattern", r.Name)
		}
		if _, err := path.Match(r.Pattern, "probe"); err != nil {
			return fmt.Errorf("rule %q: invalid pattern %q: %w", r.Name, r.Pattern, err)
		}
	case RuleByChangeMagnitude:
		if r.MinFiles <= 0 {
			return fmt.Errorf("rule %q: change-magnitude rule requires min_files > 0", r.Name)
		}
	case RuleByDependencyName:
		if r.Dependency == "" {
			return fmt.Errorf("rule %q: dependency-name rule requires a dependency", r.Name)
		}
	default:
		return fmt.Errorf("rule %q: unknown kind %q", r.Name, r.Kind)
	}
	return nil
}

// ApprovalWorkflow names a workflow that decisions may target.
type ApprovalWorkflow struct {
	Name      string   `yaml:"name"`
	Approvers []string `yaml:"approvers"`
}

// BatchingConfig bounds how decision delivery may be grouped downstream.
type BatchingConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
	WindowSecs   int `yaml:"window_secs"`
}

// PriorityThresholds map change magnitude (touched file count) to a
// priority band. A change set at or above Critical files is critical,
// and so on down the bands.
type PriorityThresholds struct {
	Critical int `yaml:"critical"`
	High     int `yaml:"high"`
	Medium   int `yaml:"medium"`
	Low      int `yaml:"low"`
}

// Band returns the priority band for a change of the given magnitude.
func (t PriorityThresholds) Band(touched int) Priority {
	switch {
	case touched >= t.Critical:
		return PriorityCritical
	case touched >= t.High:
		return PriorityHigh
	case touched >= t.Medium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// NotificationSettings configure the audit metadata attached to notify
// decisions. Delivery itself is the execution layer's concern.
type NotificationSettings struct {
	Channel string `yaml:"channel"`
	Verbose bool   `yaml:"verbose"`
}

// Policy is the closed, typed automation configuration the engine
// evaluates against. It is validated once at load time.
type Policy struct {
	EnabledFeatures      []string             `yaml:"enabled_features"`
	DefaultRules         []Rule               `yaml:"default_rules"`
	ApprovalWorkflows    []ApprovalWorkflow   `yaml:"approval_workflows"`
	Batching             BatchingConfig       `yaml:"batching"`
	PriorityThresholds   PriorityThresholds   `yaml:"priority_thresholds"`
	NotificationSettings NotificationSettings `yaml:"notifications"`
}

// Validate checks every rule and the threshold ordering.
func (p *Policy) Validate() error {
	for _, r := range p.DefaultRules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	t := p.PriorityThresholds
	if t.Critical < t.High || t.High < t.Medium || t.Medium < t.Low {
		return fmt.Errorf("priority thresholds must be non-increasing from critical to low, got %d/%d/%d/%d",
			t.Critical, t.High, t.Medium, t.Low)
	}
	return nil
}

// FeatureEnabled reports whether a feature name appears in the enabled set.
// An empty feature on a rule means the rule is always eligible.
func (p *Policy) FeatureEnabled(name string) bool {
	if name == "" {
		return true
	}
	for _, f := range p.EnabledFeatures {
		if f == name {
			return true
		}
	}
	return false
}

// DefaultPolicy returns the policy used when no policy file is configured.
func DefaultPolicy() *Policy {
	return &Policy{
		EnabledFeatures: []string{"workflow-regeneration", "auto-notify"},
		DefaultRules: []Rule{
			{
				Name:    "workflow-files-changed",
				Kind:    RuleByFilePattern,
				Feature: "workflow-regeneration",
				Action:  ActionRegenerateWorkflow,
				Pattern: ".github/workflows/*",
			},
			{
				Name:     "large-change-review",
				Kind:     RuleByChangeMagnitude,
				Action:   ActionRequestReview,
				MinFiles: 20,
			},
		},
		PriorityThresholds: PriorityThresholds{Critical: 50, High: 20, Medium: 5, Low: 0},
		Batching:           BatchingConfig{MaxBatchSize: 10, WindowSecs: 30},
	}
}
