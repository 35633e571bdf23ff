package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/langchou/evroute/internal/api/webhook"
	"github.com/langchou/evroute/internal/models"
	"github.com/langchou/evroute/internal/normalize"
)

var planTrip = models.DefaultTripRequest()

var planCmd = &cobra.Command{
	Use:   "plan <origin> <destination>",
	Short: "Plan a trip between two \"lat,lng\" coordinates",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlan,
}

func init() {
	flags := planCmd.Flags()
	flags.Float64Var(&planTrip.CurrentSOC, "current-soc", planTrip.CurrentSOC, "current battery level (%)")
	flags.Float64Var(&planTrip.BatteryCapacityKWh, "capacity", planTrip.BatteryCapacityKWh, "battery capacity (kWh)")
	flags.Float64Var(&planTrip.MinSOC, "min-soc", planTrip.MinSOC, "minimum charge level (%)")
	flags.Float64Var(&planTrip.TargetSOC, "target-soc", planTrip.TargetSOC, "target charge level (%)")
	flags.StringSliceVar(&planTrip.AmenityPreferences, "amenity", nil, "amenity preference, repeatable")
}

func runPlan(cmd *cobra.Command, args []string) error {
	trip := planTrip
	trip.Origin = args[0]
	trip.Destination = args[1]
	for _, s := range []string{trip.Origin, trip.Destination} {
		if _, err := models.ParseLocation(s); err != nil {
			return fmt.Errorf("invalid coordinates: %w", err)
		}
	}

	client := webhook.NewClient(webhookURL, planPath, stationsPath, timeout)
	raw, err := client.PlanTrip(cmd.Context(), "", trip)
	if err != nil {
		return err
	}
	if rawOutput {
		_, err := cmd.OutOrStdout().Write(raw)
		return err
	}

	out, err := normalize.NormalizeRoute(raw)
	if err != nil {
		return err
	}
	for _, d := range out.Diagnostics {
		fmt.Fprintf(cmd.ErrOrStderr(), "dropped %s[%d]: %s\n", d.List, d.Index, d.Reason)
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"shape":    out.Kind.String(),
		"route":    out.Route,
		"stations": out.Stations,
		"summary":  models.Summarize(out.Stations),
	})
}
