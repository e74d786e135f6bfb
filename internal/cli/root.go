package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const releaseVersion = "0.2.0"

var (
	configPath string
	port       string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "quizroom",
		Short:   "Real-time quiz room coordinator over Gorilla WebSocket",
		Version: releaseVersion,
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&configPath, "config", "config/config.yaml", "path to YAML config (env: QUIZROOM_CONFIG)")
	fs.StringVar(&port, "port", "", "port to listen on, overrides config (env: QUIZROOM_PORT)")

	v := viper.New()
	v.SetEnvPrefix("QUIZROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(NewServeCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}
