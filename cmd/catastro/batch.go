package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"catastro/internal/cadastre/models"
	"catastro/pkg/requestcontext"
)

var batchHeader = []string{"lat", "lng", "cadastral_reference", "utm_coordinates", "climate_zone", "api_source", "error"}

type batchRow struct {
	line   int
	coords models.GeoCoordinates
	err    error
}

func newBatchCmd(c *cli) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "batch <file.csv>",
		Short: "Resolve every lat,lng row of a CSV file",
		Long: `Reads lat,lng rows (an optional header is skipped) and writes one CSV row
of results per input row, in input order, to stdout. Use - for stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			rows, err := readBatch(in)
			if err != nil {
				return err
			}
			engine, err := c.open(cmd.Context())
			if err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			if isatty.IsTerminal(os.Stderr.Fd()) {
				bar = progressbar.NewOptions(len(rows),
					progressbar.OptionSetDescription("Resolving "+args[0]),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			return runBatch(cmd.Context(), engine, rows, workers, cmd.OutOrStdout(), func() {
				if bar != nil {
					_ = bar.Add(1)
				}
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent resolutions")
	return cmd
}

// readBatch parses lat,lng rows. Rows that do not parse are kept and reported
// in the output instead of aborting the run.
func readBatch(r io.Reader) ([]batchRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []batchRow
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read batch: %w", err)
		}
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "lat") {
			continue
		}
		row := batchRow{line: line}
		if len(record) < 2 {
			row.err = fmt.Errorf("line %d: expected lat,lng", line)
		} else {
			lat, latErr := parseDegrees(record[0])
			lng, lngErr := parseDegrees(record[1])
			row.coords = models.GeoCoordinates{Lat: lat, Lng: lng}
			if err := errors.Join(latErr, lngErr); err != nil {
				row.err = fmt.Errorf("line %d: %w", line, err)
			}
		}
		rows = append(rows, row)
	}
}

func parseDegrees(raw string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(strings.TrimSpace(raw), ",", ".", 1), 64)
}

// runBatch resolves rows with bounded concurrency and writes results in input
// order. Every row in the run shares one batch id.
func runBatch(ctx context.Context, engine Engine, rows []batchRow, workers int, out io.Writer, progress func()) error {
	if workers < 1 {
		workers = 1
	}
	ctx = requestcontext.WithRequestID(ctx, "batch-"+uuid.NewString())

	results := make([]models.CadastralResult, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, row := range rows {
		if row.err != nil {
			progress()
			continue
		}
		g.Go(func() error {
			results[i] = engine.ResolveByCoordinates(gctx, row.coords)
			progress()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := csv.NewWriter(out)
	if err := w.Write(batchHeader); err != nil {
		return err
	}
	for i, row := range rows {
		if row.err != nil {
			_ = w.Write([]string{"", "", "", "", "", "", row.err.Error()})
			continue
		}
		r := results[i]
		_ = w.Write([]string{
			strconv.FormatFloat(row.coords.Lat, 'f', -1, 64),
			strconv.FormatFloat(row.coords.Lng, 'f', -1, 64),
			r.CadastralReference,
			r.UTMCoordinates,
			r.ClimateZone,
			r.APISource.String(),
			r.ErrorMessage(),
		})
	}
	w.Flush()
	return w.Error()
}
