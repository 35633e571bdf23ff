package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/langchou/evroute/internal/api/webhook"
	"github.com/langchou/evroute/internal/models"
	"github.com/langchou/evroute/internal/normalize"
)

var radiusKm float64

var stationsCmd = &cobra.Command{
	Use:   "stations <lat,lng>",
	Short: "Search charging stations near a coordinate",
	Args:  cobra.ExactArgs(1),
	RunE:  runStations,
}

func init() {
	stationsCmd.Flags().Float64Var(&radiusKm, "radius", webhook.DefaultRadiusKm, "search radius (km)")
}

func runStations(cmd *cobra.Command, args []string) error {
	loc, err := models.ParseLocation(args[0])
	if err != nil {
		return fmt.Errorf("invalid coordinates: %w", err)
	}

	client := webhook.NewClient(webhookURL, planPath, stationsPath, timeout)
	raw, err := client.NearbyStations(cmd.Context(), "", loc.Lat, loc.Lng, radiusKm)
	if err != nil {
		return err
	}
	if rawOutput {
		_, err := cmd.OutOrStdout().Write(raw)
		return err
	}

	out := normalize.NormalizeStations(raw)
	for _, d := range out.Diagnostics {
		fmt.Fprintf(cmd.ErrOrStderr(), "dropped %s[%d]: %s\n", d.List, d.Index, d.Reason)
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"shape":    out.Shape.String(),
		"stations": out.Stations,
	})
}
