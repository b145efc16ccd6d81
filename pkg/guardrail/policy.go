package guardrail

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/bmatcuk/doublestar/v4"
)

// RuleClass selects which argument checks apply to a tool.
type RuleClass string

const (
	// ClassFilesystem inspects path parameters.
	ClassFilesystem RuleClass = "filesystem"
	// ClassBrowser inspects URL and selector parameters.
	ClassBrowser RuleClass = "browser"
	// ClassPlain performs no argument checks; the risk class decides.
	ClassPlain RuleClass = "plain"
	// ClassDeny always denies.
	ClassDeny RuleClass = "deny"
	// ClassConfirm always requires confirmation.
	ClassConfirm RuleClass = "confirm"
)

// ToolRule classifies one tool and names the parameters to inspect.
type ToolRule struct {
	Class          RuleClass `toml:"class" yaml:"class" json:"class" mapstructure:"class" validate:"required,oneof=filesystem browser plain deny confirm"`
	PathParams     []string  `toml:"path_params" yaml:"path_params" json:"path_params,omitempty" mapstructure:"path_params"`
	URLParams      []string  `toml:"url_params" yaml:"url_params" json:"url_params,omitempty" mapstructure:"url_params"`
	SelectorParams []string  `toml:"selector_params" yaml:"selector_params" json:"selector_params,omitempty" mapstructure:"selector_params"`
	// Destructive marks operations that overwrite or delete their target path.
	Destructive bool `toml:"destructive" yaml:"destructive" json:"destructive,omitempty" mapstructure:"destructive"`
}

// Config is the serializable form of a Policy.
type Config struct {
	WorkDir           string              `toml:"work_dir" yaml:"work_dir" json:"work_dir,omitempty" mapstructure:"work_dir"`
	AllowedRoots      []string            `toml:"allowed_roots" yaml:"allowed_roots" json:"allowed_roots,omitempty" mapstructure:"allowed_roots" validate:"min=1"`
	ProtectedPatterns []string            `toml:"protected_patterns" yaml:"protected_patterns" json:"protected_patterns,omitempty" mapstructure:"protected_patterns"`
	AllowedDomains    []string            `toml:"allowed_domains" yaml:"allowed_domains" json:"allowed_domains,omitempty" mapstructure:"allowed_domains"`
	PasswordSelectors []string            `toml:"password_selectors" yaml:"password_selectors" json:"password_selectors,omitempty" mapstructure:"password_selectors"`
	Tools             map[string]ToolRule `toml:"tools" yaml:"tools" json:"tools,omitempty" mapstructure:"tools" validate:"dive"`
}

// DefaultConfig classifies the built-in toolbox.
func DefaultConfig() Config {
	return Config{
		AllowedRoots: []string{"."},
		ProtectedPatterns: []string{
			"/etc/**", "/proc/**", "/sys/**", "/boot/**", "/dev/**",
			".ssh/**", ".aws/**", ".gnupg/**", ".kube/**", ".docker/config.json",
			".env", ".env.*", ".netrc", ".git/config", ".git-credentials",
			"*.pem", "*.key", "id_rsa*", "id_ed25519*", "id_ecdsa*",
			"config.toml", "credentials*",
		},
		PasswordSelectors: []string{
			`(?i)passw`,
			`(?i)\bpwd\b`,
			`(?i)passcode`,
			`(?i)type\s*[~|^$*]?=\s*["']?password`,
		},
		Tools: map[string]ToolRule{
			"list_files":                {Class: ClassFilesystem, PathParams: []string{"path"}},
			"read_file":                 {Class: ClassFilesystem, PathParams: []string{"path"}},
			"write_file":                {Class: ClassFilesystem, PathParams: []string{"path"}, Destructive: true},
			"delete_file":               {Class: ClassFilesystem, PathParams: []string{"path"}, Destructive: true},
			"browser_attach":            {Class: ClassPlain},
			"browser_navigate":          {Class: ClassBrowser, URLParams: []string{"url"}},
			"browser_click":             {Class: ClassBrowser, SelectorParams: []string{"selector"}},
			"browser_type_text":         {Class: ClassBrowser, SelectorParams: []string{"selector"}},
			"browser_type_and_submit":   {Class: ClassBrowser, SelectorParams: []string{"type_selector", "submit_selector"}},
			"browser_wait_for_response": {Class: ClassBrowser, SelectorParams: []string{"selector"}},
			"browser_extract_text":      {Class: ClassPlain},
			"browser_close":             {Class: ClassPlain},
		},
	}
}

// Policy is a compiled, immutable Config.
type Policy struct {
	cfg       Config
	workDir   string
	roots     []string
	protected []string
	domains   []string
	passwords []*regexp.Regexp
	tools     map[string]ToolRule
}

// New compiles a Config. Relative roots are taken from WorkDir, which defaults
// to the process working directory.
func New(cfg Config) (*Policy, error) {
	p := &Policy{cfg: cfg, tools: make(map[string]ToolRule, len(cfg.Tools))}

	workDir := cfg.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("%w: resolve working directory: %v", domain.ErrInvalidPolicy, err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("%w: work_dir: %v", domain.ErrInvalidPolicy, err)
	}
	if p.workDir, err = resolvePath(workDir); err != nil {
		return nil, fmt.Errorf("%w: work_dir: %v", domain.ErrInvalidPolicy, err)
	}

	if len(cfg.AllowedRoots) == 0 {
		return nil, fmt.Errorf("%w: at least one allowed root is required", domain.ErrInvalidPolicy)
	}
	for _, root := range cfg.AllowedRoots {
		resolved, err := p.resolve(root)
		if err != nil {
			return nil, fmt.Errorf("%w: allowed root %q: %v", domain.ErrInvalidPolicy, root, err)
		}
		p.roots = append(p.roots, resolved)
	}

	for _, pattern := range cfg.ProtectedPatterns {
		normalized := normalizePattern(pattern)
		if !doublestar.ValidatePattern(normalized) {
			return nil, fmt.Errorf("%w: protected pattern %q", domain.ErrInvalidPolicy, pattern)
		}
		p.protected = append(p.protected, normalized)
	}

	for _, d := range cfg.AllowedDomains {
		host, err := normalizeDomainEntry(d)
		if err != nil {
			return nil, fmt.Errorf("%w: allowed domain %q: %v", domain.ErrInvalidPolicy, d, err)
		}
		p.domains = append(p.domains, host)
	}

	for _, expr := range cfg.PasswordSelectors {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: password selector %q: %v", domain.ErrInvalidPolicy, expr, err)
		}
		p.passwords = append(p.passwords, re)
	}

	for name, rule := range cfg.Tools {
		switch rule.Class {
		case ClassFilesystem, ClassBrowser, ClassPlain, ClassDeny, ClassConfirm:
		default:
			return nil, fmt.Errorf("%w: tool %q has unknown class %q", domain.ErrInvalidPolicy, name, rule.Class)
		}
		p.tools[name] = rule
	}
	return p, nil
}

// Default returns the compiled DefaultConfig rooted at the working directory.
// It panics if the working directory cannot be resolved.
func Default() *Policy {
	p, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return p
}

// Config returns the configuration the policy was compiled from.
func (p *Policy) Config() Config {
	return p.cfg
}

// WorkDir returns the resolved base directory for relative paths.
func (p *Policy) WorkDir() string {
	return p.workDir
}

// Rule returns the classification of a tool.
func (p *Policy) Rule(tool string) (ToolRule, bool) {
	r, ok := p.tools[tool]
	return r, ok
}

// Evaluate is shorthand for Evaluate(req, p).
func (p *Policy) Evaluate(req domain.ActionRequest) domain.Decision {
	return Evaluate(req, p)
}

// normalizePattern turns a protected pattern into a slash-separated pattern
// without a leading slash. Patterns without a leading slash match at any depth.
func normalizePattern(pattern string) string {
	pattern = filepath.ToSlash(strings.TrimSpace(pattern))
	if strings.HasPrefix(pattern, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			pattern = filepath.ToSlash(home) + pattern[1:]
		}
	}
	if strings.HasPrefix(pattern, "/") {
		return strings.TrimLeft(pattern, "/")
	}
	if strings.HasPrefix(pattern, "**/") {
		return pattern
	}
	return "**/" + pattern
}
