package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harshitk99/excali-new/internal/config"
)

func newRootCmd() *cobra.Command {
	v := config.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "whiteboard",
		Short:         "Realtime collaborative whiteboard server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.ReadFile(v, cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")

	root.AddCommand(newServeCmd(v), newTokenCmd(v))
	return root
}

// bindFlag ties a flag to a config key. An unset flag never shadows the
// environment or the config file.
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
}
