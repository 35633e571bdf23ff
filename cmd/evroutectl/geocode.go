package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/api/geocoder"
	"github.com/langchou/evroute/internal/cache"
	"github.com/langchou/evroute/internal/models"
)

var reverse bool

var geocodeCmd = &cobra.Command{
	Use:   "geocode <query>",
	Short: "Look up location suggestions, or an address with --reverse",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGeocode,
}

func init() {
	geocodeCmd.Flags().BoolVar(&reverse, "reverse", false, "treat the argument as \"lat,lng\" and resolve its address")
}

func runGeocode(cmd *cobra.Command, args []string) error {
	client := geocoder.NewClient(geocoder.Options{
		AmapAPIKey:   cfg.AmapAPIKey,
		CountryCodes: cfg.GeocoderCountryCodes,
		Timeout:      cfg.GeocoderTimeout,
	}, cache.NewMemory(16), zap.NewNop())

	query := strings.Join(args, " ")
	if reverse {
		loc, err := models.ParseLocation(query)
		if err != nil {
			return err
		}
		addr, err := client.ReverseGeocode(cmd.Context(), loc.Lat, loc.Lng)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), addr)
	}

	results, err := client.Search(cmd.Context(), query)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), results)
}
