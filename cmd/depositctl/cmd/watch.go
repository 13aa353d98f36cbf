package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	grpcadapter "github.com/simaogato/timedeposit-backend/internal/adapter/grpc"
)

var watchAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow change events of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		addr := watchAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}

		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		defer conn.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", cfg.Server.APIToken)

		stream, err := grpcadapter.NewClient(conn).Watch(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for {
			event, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}

			fields := event.GetFields()
			line := fmt.Sprintf("%s success=%t deposits=%d",
				fields["action"].GetStringValue(),
				fields["success"].GetBoolValue(),
				len(fields["deposits"].GetListValue().GetValues()))
			if msg := fields["error"].GetStringValue(); msg != "" {
				line += " error=" + msg
			}
			fmt.Fprintln(out, line)
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "server address (default: server.addr from config)")
	rootCmd.AddCommand(watchCmd)
}
