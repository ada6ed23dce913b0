package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/solar-engine/internal/engine"
	"github.com/sells-group/solar-engine/internal/finance"
	"github.com/sells-group/solar-engine/internal/incentive"
)

var (
	incentiveType string
	incentiveSize float64
	incentiveCost float64
)

var incentivesCmd = &cobra.Command{
	Use:     "incentives",
	Short:   "Match incentive programs for a system size",
	Example: "  solar-cli incentives --type residential --size 6 --cost 18000",
	RunE:    func(cmd *cobra.Command, args []string) error {
		pt, err := engine.ParsePropertyType(incentiveType)
		if err != nil {
			return err
		}
		catalog, err := incentive.LoadCatalog(cfg.Incentives.CatalogPath)
		if err != nil {
			return err
		}
		eng := engine.New(engine.Deps{
			Sizing:     finance.SizingFromConfig(cfg.Finance),
			Incentives: incentive.NewEngine(catalog),
		})
		return printJSON(cmd.OutOrStdout(), eng.IncentivesFor(pt, incentiveSize, incentiveCost))
	},
}

func init() {
	f := incentivesCmd.Flags()
	f.StringVar(&incentiveType, "type", "residential", "property type: residential, farm or business")
	f.Float64Var(&incentiveSize, "size", 0, "system size in kW")
	f.Float64Var(&incentiveCost, "cost", 0, "installed cost in dollars (estimated from size when omitted)")
	_ = incentivesCmd.MarkFlagRequired("size")
	rootCmd.AddCommand(incentivesCmd)
}
