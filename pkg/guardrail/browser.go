package guardrail

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/aretw0/agentcore/pkg/domain"
	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

var errEmptyHost = errors.New("empty host")

// NormalizeURL parses a navigation target the way a browser would read it:
// backslashes count as slashes and a missing scheme means https.
func NormalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if hasControl(raw) || strings.ContainsAny(raw, " \t") {
		return nil, errors.New("url contains whitespace or control characters")
	}
	raw = strings.ReplaceAll(raw, `\`, "/")
	if !strings.Contains(raw, "://") && !strings.Contains(raw, ":") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u, nil
}

// canonicalHost lower-cases host, strips a trailing dot and converts it to its
// ASCII (punycode) form, so look-alike Unicode hosts compare by their real name.
func canonicalHost(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return "", errEmptyHost
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return ip.String(), nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", err
	}
	return ascii, nil
}

func normalizeDomainEntry(entry string) (string, error) {
	wildcard := strings.HasPrefix(entry, "*.")
	host, err := canonicalHost(strings.TrimPrefix(entry, "*."))
	if err != nil {
		return "", err
	}
	if wildcard {
		return "*." + host, nil
	}
	return host, nil
}

// domainAllowed matches host against the allow-list. "example.com" admits the
// apex and its subdomains; "*.example.com" admits subdomains only.
func (p *Policy) domainAllowed(host string) bool {
	for _, d := range p.domains {
		if suffix, ok := strings.CutPrefix(d, "*."); ok {
			if strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (p *Policy) checkURL(value any) domain.Decision {
	raw, ok := value.(string)
	if !ok {
		return domain.Deny("url parameter must be a string")
	}
	u, err := NormalizeURL(raw)
	if err != nil {
		return domain.Deny(fmt.Sprintf("invalid url: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.Deny(fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if u.User != nil {
		return domain.Deny("credentials in url")
	}
	host, err := canonicalHost(u.Hostname())
	if err != nil {
		return domain.Deny(fmt.Sprintf("invalid host: %v", err))
	}
	if len(p.domains) > 0 && !p.domainAllowed(host) {
		return domain.Confirm("domain not in allow-list: " + host)
	}
	return domain.Allow()
}

// cssUnescape decodes CSS escapes ("\77" or "\w") so an escaped selector is
// matched by what it selects, not by how it is spelled.
func cssUnescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		j := i + 1
		for j < len(s) && j-i <= 6 && isHex(s[j]) {
			j++
		}
		if j == i+1 {
			b.WriteByte(s[j])
			i = j
			continue
		}
		if code, err := strconv.ParseUint(s[i+1:j], 16, 32); err == nil && code <= unicode.MaxRune {
			b.WriteRune(rune(code))
		}
		if j < len(s) && s[j] == ' ' {
			j++
		}
		i = j - 1
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func (p *Policy) isPasswordSelector(selector string) bool {
	candidates := []string{selector, cssUnescape(selector)}
	candidates = append(candidates, norm.NFKC.String(candidates[1]))
	for _, c := range candidates {
		for _, re := range p.passwords {
			if re.MatchString(c) {
				return true
			}
		}
	}
	return false
}

func (p *Policy) checkBrowser(req domain.ActionRequest, rule ToolRule) domain.Decision {
	for _, name := range rule.SelectorParams {
		value, ok := req.Params[name]
		if !ok {
			continue
		}
		selector, ok := value.(string)
		if !ok {
			return domain.Deny("selector parameter must be a string")
		}
		if p.isPasswordSelector(selector) {
			return domain.Deny("password field")
		}
	}
	result := domain.Allow()
	for _, name := range rule.URLParams {
		value, ok := req.Params[name]
		if !ok {
			continue
		}
		d := p.checkURL(value)
		if d.Verdict == domain.VerdictDeny {
			return d
		}
		if d.Verdict == domain.VerdictConfirm {
			result = d
		}
	}
	return result
}
