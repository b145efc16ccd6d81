package main

import (
	"fmt"

	"github.com/aretw0/agentcore/internal/cli"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools and their risk class",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		return cli.ListTools(env, cmd.OutOrStdout(), jsonMode)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <tool> [params-json]",
	Short: "Show the guardrail verdict for a tool call without running it",
	Example: `  agentcore check delete_file '{"path": "secrets.txt"}'
  agentcore check browser_navigate '{"url": "https://example.com"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		params := ""
		if len(args) == 2 {
			params = args[1]
		}
		d, err := cli.Check(env, cmd.OutOrStdout(), args[0], params)
		if err != nil {
			return err
		}
		if strict, _ := cmd.Flags().GetBool("strict"); strict && d.Verdict != domain.VerdictAllow {
			return fmt.Errorf("verdict %s", d.Verdict)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd, checkCmd)
	toolsCmd.Flags().Bool("json", false, "Print the tool specs as JSON")
	checkCmd.Flags().Bool("strict", false, "Exit non-zero unless the verdict is ALLOW")
}
