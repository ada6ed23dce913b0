package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/solar-engine/internal/irradiance"
	"github.com/sells-group/solar-engine/internal/resilience"
	"github.com/sells-group/solar-engine/pkg/nasapower"
)

var (
	irradianceLat float64
	irradianceLng float64
)

var irradianceCmd = &cobra.Command{
	Use:     "irradiance",
	Short:   "Fetch the irradiance profile for a coordinate",
	Example: "  solar-cli irradiance --lat 46.2382 --lng -63.1311",
	RunE:    func(cmd *cobra.Command, args []string) error {
		client := nasapower.NewClient(
			nasapower.WithBaseURL(cfg.Irradiance.BaseURL),
			nasapower.WithRetry(resilience.PolicyFromConfig(cfg.Retry)),
			nasapower.WithHTTPClient(&http.Client{Timeout: seconds(cfg.Irradiance.TimeoutSecs)}),
		)
		p := irradiance.NewProvider(client, nil, irradiance.WithLookbackDays(cfg.Irradiance.LookbackDays))

		ctx := cmd.Context()
		start := time.Now()
		profile := p.Profile(ctx, irradianceLat, irradianceLng)
		cmd.PrintErrf("fetched %s profile in %s\n", profile.DataSource, time.Since(start).Round(time.Millisecond))
		return printJSON(cmd.OutOrStdout(), profile)
	},
}

func init() {
	f := irradianceCmd.Flags()
	f.Float64Var(&irradianceLat, "lat", 0, "latitude")
	f.Float64Var(&irradianceLng, "lng", 0, "longitude")
	_ = irradianceCmd.MarkFlagRequired("lat")
	_ = irradianceCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(irradianceCmd)
}
