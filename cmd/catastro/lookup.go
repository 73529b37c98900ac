package main

import (
	"strings"

	"github.com/spf13/cobra"

	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/providers/proximity"
)

func coordinateFlags(cmd *cobra.Command, coords *models.GeoCoordinates) {
	cmd.Flags().Float64Var(&coords.Lat, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&coords.Lng, "lng", 0, "longitude in decimal degrees")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
}

func newCoordsCmd(c *cli) *cobra.Command {
	var coords models.GeoCoordinates
	cmd := &cobra.Command{
		Use:     "coords",
		Short:   "Resolve a point",
		Example: `  catastro coords --lat 40.4168 --lng -3.7038`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), engine.ResolveByCoordinates(cmd.Context(), coords))
		},
	}
	coordinateFlags(cmd, &coords)
	return cmd
}

func newAddressCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "address <text>",
		Short:   "Resolve a street address",
		Example: `  catastro address "Calle Mayor 15, 28001 Madrid"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), engine.ResolveByAddress(cmd.Context(), strings.Join(args, " ")))
		},
	}
}

func newCandidatesCmd(c *cli) *cobra.Command {
	var (
		coords models.GeoCoordinates
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List parcels nearest to a point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			found, err := engine.ResolveCandidates(cmd.Context(), coords, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), found)
		},
	}
	coordinateFlags(cmd, &coords)
	cmd.Flags().IntVar(&limit, "limit", proximity.DefaultLimit, "maximum number of candidates")
	return cmd
}
