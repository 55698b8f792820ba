// Command transitserver runs the HTTP surface for the satellite transit and
// close-pass prediction pipeline.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skywatch/transitfinder/httpapi"
	"github.com/skywatch/transitfinder/pipeline"
	"github.com/skywatch/transitfinder/registry"
	"github.com/skywatch/transitfinder/shadow"
	"github.com/skywatch/transitfinder/spk"
)

var rootCmd = &cobra.Command{
	Use:   "transitserver",
	Short: "Serves the satellite transit and close-pass prediction API.",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("listen-addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("tle-catalog", "visual.txt", "path to the three-line-element TLE catalog file")
	rootCmd.Flags().String("ephemeris", "de440s.bsp", "path to the planetary ephemeris (SPK) kernel")
	rootCmd.Flags().String("static-dir", "", "optional directory of static frontend assets to serve")
	rootCmd.Flags().Int("workers", 0, "pass evaluator worker count override (0 = NumCPU-1)")

	_ = viper.BindPFlag("listen_addr", rootCmd.Flags().Lookup("listen-addr"))
	_ = viper.BindPFlag("tle_catalog", rootCmd.Flags().Lookup("tle-catalog"))
	_ = viper.BindPFlag("ephemeris", rootCmd.Flags().Lookup("ephemeris"))
	_ = viper.BindPFlag("static_dir", rootCmd.Flags().Lookup("static-dir"))
	_ = viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))

	viper.SetEnvPrefix("TRANSITFINDER")
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	listenAddr := viper.GetString("listen_addr")
	tleCatalog := viper.GetString("tle_catalog")
	ephemerisPath := viper.GetString("ephemeris")
	staticDir := viper.GetString("static_dir")
	pipeline.SetWorkerCount(viper.GetInt("workers"))

	reg := registry.Load(cmd.Context(), tleCatalog, log)

	eph, err := spk.Open(ephemerisPath)
	if err != nil {
		log.WithError(err).Warn("ephemeris kernel unavailable; shadow-path predictions will be degraded")
	}
	kernel := shadow.NewKernel(eph)

	handler := httpapi.NewRouter(reg, kernel, log, staticDir)

	log.WithField("addr", listenAddr).Info("transitserver listening")
	return http.ListenAndServe(listenAddr, handler)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
