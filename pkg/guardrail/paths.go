package guardrail

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"
)

const maxSymlinkHops = 40

var errTooManyLinks = errors.New("too many levels of symbolic links")

// ResolvePath makes raw absolute against the policy's work dir and resolves it the
// way the operating system would: component by component, following symlinks
// before applying "..". Components that do not exist yet are taken literally.
func (p *Policy) ResolvePath(raw string) (string, error) {
	return p.resolve(raw)
}

func (p *Policy) resolve(raw string) (string, error) {
	if !filepath.IsAbs(raw) {
		raw = filepath.Join(p.workDir, raw)
	}
	return resolvePath(raw)
}

func resolvePath(abs string) (string, error) {
	hops := 0
	return walk(filepath.VolumeName(abs)+string(filepath.Separator), splitPath(abs), &hops)
}

func splitPath(path string) []string {
	path = path[len(filepath.VolumeName(path)):]
	var parts []string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	return parts
}

func walk(current string, parts []string, hops *int) (string, error) {
	for _, part := range parts {
		if part == ".." {
			current = filepath.Dir(current)
			continue
		}
		next := filepath.Join(current, part)
		info, err := os.Lstat(next)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// A missing component is taken literally; a later ".." may still
				// climb back into existing directories.
				current = next
				continue
			}
			return "", err
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			current = next
			continue
		}
		*hops++
		if *hops > maxSymlinkHops {
			return "", errTooManyLinks
		}
		target, err := os.Readlink(next)
		if err != nil {
			return "", err
		}
		base := current
		if filepath.IsAbs(target) {
			base = filepath.VolumeName(target) + string(filepath.Separator)
		}
		if current, err = walk(base, splitPath(target), hops); err != nil {
			return "", err
		}
	}
	return current, nil
}

// pathVariants returns the distinct readings of raw an attacker might rely on:
// the literal value, its percent-decoded form and their NFKC normalizations.
func pathVariants(raw string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(raw)
	decoded := raw
	for i := 0; i < 3 && strings.Contains(decoded, "%"); i++ {
		d, err := url.PathUnescape(decoded)
		if err != nil || d == decoded {
			break
		}
		decoded = d
		add(decoded)
	}
	for _, s := range append([]string(nil), out...) {
		add(norm.NFKC.String(s))
	}
	return out
}

func hasControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

func (p *Policy) withinRoots(path string) bool {
	for _, root := range p.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (p *Policy) isProtected(path string) bool {
	target := strings.TrimLeft(filepath.ToSlash(path), "/")
	for _, pattern := range p.protected {
		if ok, _ := doublestar.Match(pattern, target); ok {
			return true
		}
	}
	return false
}

// checkPath evaluates one path parameter value.
func (p *Policy) checkPath(value any, destructive bool) domain.Decision {
	raw, ok := value.(string)
	if !ok {
		return domain.Deny("path parameter must be a string")
	}
	if raw == "" {
		raw = "."
	}
	verdict := domain.Allow()
	for _, v := range pathVariants(raw) {
		if strings.ContainsRune(v, 0) || hasControl(v) {
			return domain.Deny("invalid path")
		}
		lexical := v
		if !filepath.IsAbs(lexical) {
			lexical = filepath.Join(p.workDir, lexical)
		}
		lexical = filepath.Clean(lexical)

		resolved, err := p.resolve(v)
		if err != nil {
			return domain.Deny(fmt.Sprintf("unresolvable path: %v", err))
		}
		if p.isProtected(lexical) || p.isProtected(resolved) {
			return domain.Deny("protected path")
		}
		if !p.withinRoots(resolved) {
			return domain.Deny("path escapes allowed roots")
		}
		if destructive && verdict.Verdict == domain.VerdictAllow {
			if _, err := os.Lstat(resolved); err == nil {
				verdict = domain.Confirm("destructive operation on existing path")
			}
		}
	}
	return verdict
}

func (p *Policy) checkPaths(req domain.ActionRequest, rule ToolRule) domain.Decision {
	result := domain.Allow()
	for _, name := range rule.PathParams {
		value, ok := req.Params[name]
		if !ok {
			value = "."
		}
		d := p.checkPath(value, rule.Destructive)
		if d.Verdict == domain.VerdictDeny {
			return d
		}
		if d.Verdict == domain.VerdictConfirm {
			result = d
		}
	}
	return result
}
