package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/agentcore/pkg/domain"
)

// ListTools prints every configured capability with its risk class.
func ListTools(env *Env, out io.Writer, asJSON bool) error {
	agent, err := env.offlineAgent()
	if err != nil {
		return err
	}
	specs, err := agent.Specs()
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(specs)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tRISK\tPARAMS")
	for _, s := range specs {
		var params []string
		for _, p := range s.Params {
			name := p.Name
			if !p.Required {
				name += "?"
			}
			params = append(params, name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Risk, strings.Join(params, ", "))
	}
	return tw.Flush()
}

// Check prints the guardrail verdict for a tool call without running it.
// rawParams is a JSON object; empty means no parameters.
func Check(env *Env, out io.Writer, tool, rawParams string) (domain.Decision, error) {
	params := map[string]any{}
	if strings.TrimSpace(rawParams) != "" {
		if err := json.Unmarshal([]byte(rawParams), &params); err != nil {
			return domain.Decision{}, fmt.Errorf("%w: params must be a JSON object: %v", domain.ErrInvalidParams, err)
		}
	}

	agent, err := env.offlineAgent()
	if err != nil {
		return domain.Decision{}, err
	}
	specs, err := agent.Specs()
	if err != nil {
		return domain.Decision{}, err
	}

	risk := domain.RiskSensitive
	for _, s := range specs {
		if s.Name == tool {
			risk = s.Risk
			break
		}
	}
	d := agent.Policy().Evaluate(domain.ActionRequest{ID: "check", Tool: tool, Params: params, Risk: risk})
	fmt.Fprintf(out, "%s %s (%s)\n", d.String(), tool, risk)
	return d, nil
}
