// Package profile holds the agent's identity and fixed runtime configuration.
//
// A Profile is constructed once at process start and never mutated; all
// accessors return copies so callers cannot alter shared state.
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/supportagent/core"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalidProfile is returned when a profile document fails validation.
var ErrInvalidProfile = errors.New("invalid agent profile")

// Profile is the immutable agent identity plus its tool list, system prompt
// and permission mode.
type Profile struct {
	id             string
	name           string
	role           string
	tools          []string
	systemPrompt   string
	permissionMode core.PermissionMode
	features       []string
}

type document struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Role           string   `yaml:"role"`
	Tools          []string `yaml:"tools"`
	SystemPrompt   string   `yaml:"system_prompt"`
	PermissionMode string   `yaml:"permission_mode"`
	Features       []string `yaml:"features"`
}

// Default returns the built-in customer support profile.
func Default() *Profile {
	p, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("profile: embedded default is invalid: %v", err))
	}
	return p
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a YAML profile document.
func Parse(data []byte) (*Profile, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	mode, err := core.ParsePermissionMode(doc.PermissionMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	if strings.TrimSpace(doc.ID) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidProfile)
	}
	if strings.TrimSpace(doc.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}

	seen := make(map[string]struct{}, len(doc.Tools))
	for _, t := range doc.Tools {
		if t == "" {
			return nil, fmt.Errorf("%w: empty tool name", ErrInvalidProfile)
		}
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %q", ErrInvalidProfile, t)
		}
		seen[t] = struct{}{}
	}

	return &Profile{
		id:             doc.ID,
		name:           doc.Name,
		role:           doc.Role,
		tools:          append([]string(nil), doc.Tools...),
		systemPrompt:   strings.TrimRight(doc.SystemPrompt, "\n"),
		permissionMode: mode,
		features:       append([]string(nil), doc.Features...),
	}, nil
}

// ID returns the agent identifier.
func (p *Profile) ID() string { return p.id }

// Name returns the display name.
func (p *Profile) Name() string { return p.name }

// Role returns the agent's role description.
func (p *Profile) Role() string { return p.role }

// SystemPrompt returns the fixed system prompt.
func (p *Profile) SystemPrompt() string { return p.systemPrompt }

// PermissionMode returns the fixed permission mode.
func (p *Profile) PermissionMode() core.PermissionMode { return p.permissionMode }

// Tools returns a copy of the allowed tool names in declaration order.
func (p *Profile) Tools() []string { return append([]string{}, p.tools...) }

// Features returns a copy of the advertised feature flags.
func (p *Profile) Features() []string { return append([]string{}, p.features...) }

// Identity is the static agent_info block attached to results.
func (p *Profile) Identity() map[string]any {
	return map[string]any{
		"name": p.name,
		"role": p.role,
	}
}

// RuntimeOptions builds the per-query runtime configuration.
func (p *Profile) RuntimeOptions(maxTurns int, cwd string) core.Options {
	return core.Options{
		AllowedTools:   p.Tools(),
		SystemPrompt:   p.systemPrompt,
		PermissionMode: p.permissionMode,
		MaxTurns:       maxTurns,
		Cwd:            cwd,
	}
}
