package main

import (
	"os"
	"strings"

	"github.com/aretw0/agentcore/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run one task in the terminal",
	Long: `Starts a session on standard input and output.

The task is taken from the arguments, or from the first line typed when none
are given. While the task runs, type 'stop' to cancel it, 'resume' to approve
an action waiting for confirmation, or any other text to send a follow-up
instruction. With --json, events are written as NDJSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		return cli.RunSession(cmd.Context(), env, cli.RunOptions{
			Task: strings.Join(args, " "),
			JSON: jsonMode,
		}, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
}
