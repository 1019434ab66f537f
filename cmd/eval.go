package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luma/rconn/client"
	"github.com/luma/rconn/protocol"
)

func init() {
	RootCmd.AddCommand(EvalCmd)
}

var EvalCmd = &cobra.Command{
	Use:   "eval <expr>",
	Short: "Evaluate an R expression on a QAP1 server",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		conn := client.New(log.Named("client"))
		if err := conn.Open(ctx, net.JoinHostPort(host, strconv.Itoa(port))); err != nil {
			return err
		}
		defer conn.Close()

		reply, err := conn.Eval(ctx, args[0])
		if err != nil {
			var serverErr *protocol.ServerError
			if errors.As(err, &serverErr) {
				return fmt.Errorf("server error: %w", err)
			}
			return err
		}

		out, err := protocol.DebugJSON(reply)
		if err != nil {
			return err
		}

		fmt.Println(out)
		return nil
	},
}
