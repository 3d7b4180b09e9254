package cmd

import (
	"fmt"
	"os"

	"github.com/quietdns/vdns/config"
	"github.com/quietdns/vdns/log"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var (
	version    = "undefined"
	buildTime  = "undefined"
	configPath string
	cfg        config.Config
	apiHost    string
	apiPort    uint16
	serveCmd   = newServeCommand()
)

//nolint:gochecknoglobals
var rootCmd = &cobra.Command{
	Use:   "vdns",
	Short: "vdns is a DNSSEC-validating DNS proxy",
	Long: `A fast and configurable DNSSEC-validating DNS Proxy
and ad-blocker for local network.

Complete documentation is available at https://github.com/quietdns/vdns`,
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

func apiURL(path string) string {
	return fmt.Sprintf("http://%s:%d%s", apiHost, apiPort, path)
}

//nolint:gochecknoinits
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&apiHost, "apiHost", "localhost", "host of vdns (API)")
	rootCmd.PersistentFlags().Uint16Var(&apiPort, "apiPort", 0, "port of vdns (API)")

	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	newCfg, err := config.LoadConfig(configPath, false)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg = *newCfg

	log.ConfigureLogger(cfg.Log)

	if apiPort == 0 && len(cfg.HTTPPorts) > 0 {
		if port, err := config.ConvertPort(cfg.HTTPPorts[0]); err == nil {
			apiPort = port
		}
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
