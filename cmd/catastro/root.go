package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"catastro/internal/app"
	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/service"
	"catastro/internal/platform/config"
	"catastro/internal/platform/logger"
	"catastro/pkg/requestcontext"
)

// Engine is the part of the resolution service the commands drive.
type Engine interface {
	ResolveByCoordinates(ctx context.Context, coords models.GeoCoordinates) models.CadastralResult
	ResolveByAddress(ctx context.Context, text string) models.CadastralResult
	ResolveCandidates(ctx context.Context, coords models.GeoCoordinates, limit int) (service.Candidates, error)
	ClearCache(ctx context.Context) (int, error)
	Sweep(ctx context.Context) (int, error)
}

type cli struct {
	envFile string
	engine  Engine
	app     *app.App
}

// open builds the engine from the environment unless one was injected.
func (c *cli) open(ctx context.Context) (Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", c.envFile, err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	// Logs go to stderr so stdout stays machine readable.
	a, err := app.Build(ctx, cfg, logger.NewWithWriter(os.Stderr, cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	c.app = a
	c.engine = a.Service
	return c.engine, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "catastro",
		Short: "Resolve Spanish cadastral references",
		Long: `
catastro resolves a cadastral reference, UTM 30N coordinates and the CTE
climate zone for a point or a street address, querying the Sede Electrónica
del Catastro and caching results.
`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SetContext(requestcontext.WithOrigin(cmd.Context(), "cli"))
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			c.close()
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env.local", "dotenv file read before the environment")

	root.AddCommand(
		newCoordsCmd(c),
		newAddressCmd(c),
		newCandidatesCmd(c),
		newBatchCmd(c),
		newCacheCmd(c),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
