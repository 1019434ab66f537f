package cmd

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luma/rconn/client"
	"github.com/luma/rconn/protocol"
)

var setType string

func init() {
	flags := SetCmd.Flags()
	flags.StringVar(&setType, "type", "str", "value type: int, double, str, bool")

	RootCmd.AddCommand(SetCmd)
}

var SetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Set a variable on a QAP1 server",
	Args:  cobra.ExactArgs(2),

	RunE: func(cmd *cobra.Command, args []string) error {
		name, raw := args[0], args[1]

		tag, value, err := parseSetValue(setType, raw)
		if err != nil {
			return err
		}

		ctx := context.Background()

		conn := client.New(log.Named("client"))
		if err := conn.Open(ctx, net.JoinHostPort(host, strconv.Itoa(port))); err != nil {
			return err
		}
		defer conn.Close()

		return conn.SetVariable(ctx, name, tag, value)
	},
}

func parseSetValue(kind, raw string) (protocol.SexpTag, interface{}, error) {
	switch kind {
	case "int":
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return 0, nil, fmt.Errorf("rconn set: %q is not a valid int: %w", raw, err)
		}
		return protocol.TagArrayInt, int32(v), nil

	case "double":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("rconn set: %q is not a valid double: %w", raw, err)
		}
		return protocol.TagArrayDouble, v, nil

	case "bool":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return 0, nil, fmt.Errorf("rconn set: %q is not a valid bool: %w", raw, err)
		}
		return protocol.TagArrayBool, v, nil

	case "str":
		return protocol.TagArrayStr, raw, nil

	default:
		return 0, nil, fmt.Errorf("rconn set: unknown --type %q", kind)
	}
}
