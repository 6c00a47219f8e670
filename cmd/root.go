package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	_ "github.com/joho/godotenv/autoload"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "registree",
	Short: "Registree - browse a container registry as a tree",
	Long: `Registree serves a read-only JSON API over a docker registry v2
storage directory and browses it as a lazily-loaded tree of
repositories, revisions and manifests.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./registree.yml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func Execute(version, commit, date string) {
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newBrowseCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))
	cobra.CheckErr(rootCmd.Execute())
}
