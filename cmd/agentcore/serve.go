package main

import (
	"github.com/aretw0/agentcore/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket server",
	Long: `Serves one session per WebSocket connection on /ws/execute_task, an SSE
feed of all session events on /events and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		watch, _ := cmd.Flags().GetBool("watch")
		return cli.Serve(cmd.Context(), env, cli.ServeOptions{Addr: addr, Watch: watch})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (default from server.addr)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the guardrail when the config file changes")
}
