package domain

import (
	"fmt"
	"strings"
)

// Verdict is the outcome of a guardrail evaluation.
type Verdict string

const (
	VerdictAllow   Verdict = "ALLOW"
	VerdictDeny    Verdict = "DENY"
	VerdictConfirm Verdict = "CONFIRM"
)

// Decision is a verdict plus a human-readable reason (empty for ALLOW).
type Decision struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason,omitempty"`
}

func Allow() Decision {
	return Decision{Verdict: VerdictAllow}
}

func Deny(reason string) Decision {
	return Decision{Verdict: VerdictDeny, Reason: reason}
}

func Confirm(reason string) Decision {
	return Decision{Verdict: VerdictConfirm, Reason: reason}
}

// Confirmed returns the decision after a human approved the request:
// CONFIRM becomes ALLOW, DENY stays DENY.
func (d Decision) Confirmed() Decision {
	if d.Verdict == VerdictConfirm {
		return Allow()
	}
	return d
}

func (d Decision) String() string {
	if d.Reason == "" {
		return string(d.Verdict)
	}
	return fmt.Sprintf("%s(%s)", d.Verdict, d.Reason)
}

// ParseVerdict accepts the verdict names case-insensitively.
func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(strings.ToUpper(strings.TrimSpace(s))); v {
	case VerdictAllow, VerdictDeny, VerdictConfirm:
		return v, nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}
