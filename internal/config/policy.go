package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/hook-warden/internal/core"
)

var (
	ErrPolicyNotFound = errors.New("policy file not found")
	ErrPolicyParsing  = errors.New("policy parsing failed")
)

// LoadPolicy loads and validates the automation policy. An empty path
// means no policy file is configured and the built-in defaults apply; a
// configured-but-missing file also falls back to defaults, signalled by
// ErrPolicyNotFound so callers can log it.
func LoadPolicy(path string) (*core.Policy, error) {
	if path == "" {
		return core.DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.DefaultPolicy(), ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}

	policy := &core.Policy{}
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPolicyParsing, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPolicyParsing, err)
	}
	return policy, nil
}
