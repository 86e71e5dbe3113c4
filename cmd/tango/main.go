// Command tango is a CLI client for tango RPC servers.
//
//	tango call math.add 2 3 --addr localhost:7625
//	tango notify log.write '"hello"' --addr localhost:7625
//
// Arguments after the method name are parsed as JSON literals; anything that
// is not valid JSON is sent as a plain string.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tango/client"
	"tango/codec"
)

var (
	flagAddr    string
	flagNetwork string
	flagCodec   string
)

func main() {
	root := &cobra.Command{
		Use:          "tango",
		Short:        "tango RPC command line client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagAddr, "addr", "localhost:7625", "server address")
	root.PersistentFlags().StringVar(&flagNetwork, "network", "tcp", "network to dial")
	root.PersistentFlags().StringVar(&flagCodec, "codec", "msgpack", "wire codec: json or msgpack")

	root.AddCommand(newCallCmd(), newNotifyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> [args...]",
		Short: "invoke a remote method and print its results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := codecType()
			if err != nil {
				return err
			}
			conn, err := client.Dial(flagNetwork, flagAddr, ct)
			if err != nil {
				return err
			}
			defer conn.Close()

			results, err := client.Call(conn, codec.GetCodec(ct), args[0], parseArgs(args[1:])...)
			if err != nil {
				return err
			}
			for _, r := range results {
				out, err := json.Marshal(r)
				if err != nil {
					return err
				}
				fmt.Println(string(out))
			}
			return nil
		},
	}
}

func newNotifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify <method> [args...]",
		Short: "send a one-way notification",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := codecType()
			if err != nil {
				return err
			}
			conn, err := client.Dial(flagNetwork, flagAddr, ct)
			if err != nil {
				return err
			}
			defer conn.Close()

			return client.Notify(conn, codec.GetCodec(ct), args[0], parseArgs(args[1:])...)
		},
	}
}

func codecType() (codec.CodecType, error) {
	switch flagCodec {
	case "json":
		return codec.CodecTypeJSON, nil
	case "msgpack":
		return codec.CodecTypeMsgpack, nil
	default:
		return 0, fmt.Errorf("unknown codec %q", flagCodec)
	}
}

// parseArgs turns CLI arguments into envelope values: JSON literals when they
// parse, plain strings otherwise.
func parseArgs(raw []string) []any {
	args := make([]any, len(raw))
	for i, r := range raw {
		var v any
		if err := json.Unmarshal([]byte(r), &v); err != nil {
			args[i] = r
			continue
		}
		args[i] = v
	}
	return args
}
