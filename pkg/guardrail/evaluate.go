package guardrail

import "github.com/aretw0/agentcore/pkg/domain"

// Evaluate decides whether req may run under policy p.
//
// It has no side effects beyond reading the file system (stat, symlinks) and
// never caches, so it is safe for speculative previews. Rules apply in order:
// deny checks, confirm checks, then the request's risk class. Tools the policy
// does not classify always require confirmation.
func Evaluate(req domain.ActionRequest, p *Policy) domain.Decision {
	if p == nil {
		return domain.Confirm("no policy loaded")
	}
	rule, ok := p.tools[req.Tool]
	if !ok {
		return domain.Confirm("unclassified capability")
	}

	var d domain.Decision
	switch rule.Class {
	case ClassDeny:
		return domain.Deny("capability disabled by policy")
	case ClassConfirm:
		return domain.Confirm("capability requires confirmation")
	case ClassFilesystem:
		d = p.checkPaths(req, rule)
	case ClassBrowser:
		d = p.checkBrowser(req, rule)
	default:
		d = domain.Allow()
	}
	if d.Verdict != domain.VerdictAllow {
		return d
	}
	if req.Risk != domain.RiskSafe {
		return domain.Confirm("sensitive capability")
	}
	return d
}
