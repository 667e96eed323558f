// Package engine implements the automation-decision engine: it evaluates
// normalized repository changes against the configured policy and emits
// recommended actions. It never executes those actions itself.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"

	"github.com/sevigo/hook-warden/internal/core"
)

// Engine evaluates a closed set of rule variants against repository
// changes. It holds the validated policy and is safe for concurrent use:
// evaluation reads the policy, never writes it.
type Engine struct {
	policy *core.Policy
	logger *slog.Logger
}

// New creates an Engine for a validated policy.
func New(policy *core.Policy, logger *slog.Logger) (*Engine, error) {
	if policy == nil {
		return nil, fmt.Errorf("policy cannot be nil")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid automation policy: %w", err)
	}
	return &Engine{policy: policy, logger: logger}, nil
}

// EvaluateChanges runs every enabled rule against the change set and
// returns the resulting decisions. Rules for disabled features are
// skipped entirely. Dependency or configuration changes always yield at
// least one decision; an empty result is only valid for a no-op change
// set.
func (e *Engine) EvaluateChanges(ctx context.Context, changes core.RepositoryChanges, repo core.RepositoryInfo) ([]core.AutomationDecision, error) {
	if err := validateChanges(changes); err != nil {
		return nil, &core.FatalError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &core.RecoverableError{Err: err}
	}

	band := e.policy.PriorityThresholds.Band(changes.TouchedFiles())

	var decisions []core.AutomationDecision
	for _, rule := range e.sortedRules() {
		if !e.policy.FeatureEnabled(rule.Feature) {
			continue
		}
		if d, ok := e.applyRule(rule, changes, repo, band); ok {
			decisions = append(decisions, d)
		}
	}

	// Dependency and configuration changes must never pass silently,
	// even with every feature disabled.
	if len(decisions) == 0 && (len(changes.DependencyChanges) > 0 || len(changes.ConfigurationChanges) > 0) {
		decisions = append(decisions, e.fallbackNotify(changes, repo, band))
	}

	e.logger.Debug("evaluated changes",
		"repo", repo.FullName,
		"touched_files", changes.TouchedFiles(),
		"band", band,
		"decisions", len(decisions),
	)
	return decisions, nil
}

// sortedRules returns the default rules ordered by the priority band of
// their magnitude cutoffs: magnitude rules with larger cutoffs first,
// then file-pattern rules, then dependency rules. Ordering is stable so
// evaluation is deterministic for a given policy.
func (e *Engine) sortedRules() []core.Rule {
	rules := make([]core.Rule, len(e.policy.DefaultRules))
	copy(rules, e.policy.DefaultRules)
	sort.SliceStable(rules, func(i, j int) bool {
		return ruleWeight(rules[i]) < ruleWeight(rules[j])
	})
	return rules
}

func ruleWeight(r core.Rule) int {
	switch r.Kind {
	case core.RuleByChangeMagnitude:
		return -r.MinFiles
	case core.RuleByFilePattern:
		return 1
	default:
		return 2
	}
}

func (e *Engine) applyRule(rule core.Rule, changes core.RepositoryChanges, repo core.RepositoryInfo, band core.Priority) (core.AutomationDecision, bool) {
	switch rule.Kind {
	case core.RuleByFilePattern:
		matched := firstMatch(rule.Pattern, changes.AddedFiles, changes.ModifiedFiles, changes.DeletedFiles)
		if matched == "" {
			return core.AutomationDecision{}, false
		}
		return e.decision(rule, repo, band, map[string]string{"matched_file": matched}), true

	case core.RuleByChangeMagnitude:
		if changes.TouchedFiles() < rule.MinFiles {
			return core.AutomationDecision{}, false
		}
		return e.decision(rule, repo, band, map[string]string{
			"touched_files": strconv.Itoa(changes.TouchedFiles()),
			"min_files":     strconv.Itoa(rule.MinFiles),
		}), true

	case core.RuleByDependencyName:
		matched := firstMatch(rule.Dependency, changes.DependencyChanges)
		if matched == "" {
			return core.AutomationDecision{}, false
		}
		return e.decision(rule, repo, band, map[string]string{"dependency_file": matched}), true
	}
	return core.AutomationDecision{}, false
}

func (e *Engine) decision(rule core.Rule, repo core.RepositoryInfo, band core.Priority, metadata map[string]string) core.AutomationDecision {
	metadata["rule"] = rule.Name
	metadata["repository"] = repo.FullName
	metadata["priority_band"] = string(band)
	return core.AutomationDecision{
		Action:         rule.Action,
		Reason:         fmt.Sprintf("rule %q matched", rule.Name),
		TargetWorkflow: rule.Workflow,
		Metadata:       metadata,
	}
}

func (e *Engine) fallbackNotify(changes core.RepositoryChanges, repo core.RepositoryInfo, band core.Priority) core.AutomationDecision {
	metadata := map[string]string{
		"repository":    repo.FullName,
		"priority_band": string(band),
	}
	if ch := e.policy.NotificationSettings.Channel; ch != "" {
		metadata["channel"] = ch
	}
	reason := "configuration changes detected"
	if len(changes.DependencyChanges) > 0 {
		reason = "dependency changes detected"
	}
	return core.AutomationDecision{
		Action:   core.ActionNotify,
		Reason:   reason,
		Metadata: metadata,
	}
}

// firstMatch returns the first path in the given lists matching the glob
// pattern, checked against both the full path and its basename.
func firstMatch(pattern string, lists ...[]string) string {
	for _, list := range lists {
		for _, p := range list {
			if ok, _ := path.Match(pattern, p); ok {
				return p
			}
			if ok, _ := path.Match(pattern, path.Base(p)); ok {
				return p
			}
		}
	}
	return ""
}

// validateChanges rejects malformed change sets: a classified path that
// does not appear in the added or modified lists means the processor
// contract was violated upstream.
func validateChanges(changes core.RepositoryChanges) error {
	sources := make(map[string]struct{}, len(changes.AddedFiles)+len(changes.ModifiedFiles))
	for _, f := range changes.AddedFiles {
		sources[f] = struct{}{}
	}
	for _, f := range changes.ModifiedFiles {
		sources[f] = struct{}{}
	}
	for _, f := range changes.ConfigurationChanges {
		if _, ok := sources[f]; !ok {
			return fmt.Errorf("configuration change %q missing from added/modified files", f)
		}
	}
	for _, f := range changes.DependencyChanges {
		if _, ok := sources[f]; !ok {
			return fmt.Errorf("dependency change %q missing from added/modified files", f)
		}
	}
	return nil
}
