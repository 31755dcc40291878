// Command stashctl talks to a running stashd over the stash.Admin service.
//
// Connection settings come from flags, STASHCTL_* environment variables or
// a stashctl.yaml in the user config directory, in that order of precedence.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/Keksclan/goRawrStash/admin"
	"github.com/Keksclan/goRawrStash/auth"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "stashctl",
	Short:         "Inspect and maintain a stashd cache",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return initConfig()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stashctl:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: stashctl.yaml in the user config directory)")
	rootCmd.PersistentFlags().String("addr", "localhost:7070", "stashd admin address")
	rootCmd.PersistentFlags().String("token", "", "bearer token for the admin service")
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Second, "per-command timeout")

	_ = viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.AddCommand(pingCmd(), statsCmd(), invalidateCmd(), clearCmd())
}

// withClient dials stashd, runs fn with an authenticated, time-bounded
// context and closes the connection.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *admin.Client) error) error {
	conn, err := grpc.NewClient(viper.GetString("addr"), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", viper.GetString("addr"), err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
	defer cancel()
	if token := viper.GetString("token"); token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, auth.AuthorizationHeader, "Bearer "+token)
	}
	return fn(ctx, admin.NewClient(conn))
}
