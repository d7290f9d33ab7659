package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/smilecoach/internal/rpc"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Run a JSON-RPC 2.0 tool server over stdio",
	Long: `Start a JSON-RPC 2.0 server on stdin/stdout that exposes smile
evaluation and your practice history as tools: evaluate_sample,
get_history_analysis, get_advice, get_weekly_report and
get_recent_sessions. The identity is resolved once at startup.`,
	Args: cobra.NoArgs,
	RunE: runRPC,
}

func init() {
	rootCmd.AddCommand(rpcCmd)
}

func runRPC(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.identity()
	if err != nil {
		return err
	}
	s := rpc.NewServer(rpc.Deps{
		History:   rt.history,
		Identity:  id,
		Evaluator: rt.evaluator,
		Coach:     rt.coach,
	})
	return s.Run(cmd.Context(), os.Stdin, os.Stdout)
}
