package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRPCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rpc <method> [param-json...]",
		Short: "Call a JSON-RPC method and print the result",
		Long: `Call a JSON-RPC method of the engine and print the result as indented
JSON. Each parameter is a JSON value, e.g.:

  chatcore rpc get_all_account_ids
  chatcore rpc get_chat_ids 1 '"query"'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := make([]any, 0, len(args)-1)
			for i, raw := range args[1:] {
				if !json.Valid([]byte(raw)) {
					return fmt.Errorf("parameter %d is not valid JSON: %s", i+1, raw)
				}
				params = append(params, json.RawMessage(raw))
			}

			return withRuntime(func(rt *runtime) error {
				result, err := rt.mgr.BlockingCall(args[0], params...)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := json.Indent(&buf, result, "", "  "); err != nil {
					buf.Reset()
					buf.Write(result)
				}
				buf.WriteByte('\n')
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			})
		},
	}
}
