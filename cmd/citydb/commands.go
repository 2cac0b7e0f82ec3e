package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/andreiashu/citydb"
	"github.com/andreiashu/citydb/store"
)

var errNoCities = errors.New("no cities parsed")

// app carries the resolved settings and logger to subcommands.
type app struct {
	configPath string
	settings   settings
	log        *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{settings: defaultSettings()}

	root := &cobra.Command{
		Use:           "citydb",
		Short:         "Build a bucketed city database from geonames exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath != "" {
				file, err := loadSettings(a.configPath)
				if err != nil {
					return err
				}
				mergeSettings(&a.settings, file, cmd.Flags())
			}
			l, err := a.settings.logger()
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.settings.LogLevel, "log-level", a.settings.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&a.settings.LogFormat, "log-format", a.settings.LogFormat, "Log format: text or json")
	pf.Float64Var(&a.settings.BucketWidth, "bucket-width", a.settings.BucketWidth, "Bounding box width in degrees")

	root.AddCommand(a.newBuildCmd(), a.newKeyCmd(), a.newDecodeCmd(), a.newBucketsCmd())
	return root
}

func (a *app) addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.settings.Cities, "cities", a.settings.Cities, "Cities file (.txt, .zip or .bz2)")
	cmd.Flags().StringVar(&a.settings.Admin1, "admin1", a.settings.Admin1, "Admin1 codes file")
	cmd.Flags().StringVar(&a.settings.CountryInfo, "country-info", a.settings.CountryInfo, "geonames countryInfo.txt; country names come from gountries when empty")
	cmd.Flags().BoolVar(&a.settings.LegacySchema, "legacy-schema", a.settings.LegacySchema, "Treat the ASCII name column as optional")
	cmd.Flags().BoolVar(&a.settings.KeepDuplicates, "keep-duplicates", a.settings.KeepDuplicates, "Keep cities identical to an earlier one")
}

func (a *app) importCities(ctx context.Context) (*citydb.ImportResult, error) {
	opts, err := a.settings.options(a.log)
	if err != nil {
		return nil, err
	}
	im := citydb.NewImporter(a.settings.Cities, a.settings.Admin1, opts...)
	return im.Import(ctx)
}

func (a *app) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Parse the cities and admin1 files and write them to SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd.Context())
		},
	}
	a.addInputFlags(cmd)
	cmd.Flags().StringVar(&a.settings.Database, "db", a.settings.Database, "SQLite database path")
	return cmd
}

func (a *app) runBuild(ctx context.Context) error {
	res, err := a.importCities(ctx)
	if err != nil {
		return err
	}
	if len(res.Cities) == 0 {
		return fmt.Errorf("%s: %w", a.settings.Cities, errNoCities)
	}

	db, err := store.Open(ctx, a.settings.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	w := &progressWriter{CityWriter: db, bar: pb.New(len(res.Cities))}
	w.bar.SetWriter(os.Stderr)
	w.bar.Start()
	err = citydb.Persist(ctx, w, res.Cities, a.settings.BucketWidth)
	w.bar.Finish()
	if err != nil {
		return err
	}

	r := res.Report
	fmt.Printf("Parsed %d of %d lines (%d skipped, %d duplicates, %d admin1 names missing)\n",
		r.Parsed, r.Lines-r.Blank, r.SkippedTotal(), r.Duplicates, r.Warnings[citydb.Admin1NameNotFound])
	fmt.Printf("Wrote %d cities in %d bounding boxes to %s\n",
		len(res.Cities), res.Buckets(a.settings.BucketWidth).Len(), a.settings.Database)
	return nil
}

// progressWriter advances a progress bar as cities are linked to boxes.
type progressWriter struct {
	citydb.CityWriter
	bar *pb.ProgressBar
}

func (w *progressWriter) LinkBuckets(ctx context.Context, ids []int64, cities []citydb.City, width float64) error {
	const chunk = 1000
	for start := 0; start < len(cities); start += chunk {
		end := min(start+chunk, len(cities))
		if err := w.CityWriter.LinkBuckets(ctx, ids[start:end], cities[start:end], width); err != nil {
			return err
		}
		w.bar.Add(end - start)
	}
	return nil
}

func (a *app) newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key LATITUDE LONGITUDE",
		Short: "Print the bounding box key containing a coordinate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid latitude: %w", err)
			}
			lng, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid longitude: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), citydb.EncodeBoundingBoxKey(lat, lng, a.settings.BucketWidth))
			return nil
		},
	}
}

func (a *app) newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode KEY",
		Short: "Print the southwest corner of a bounding box key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := citydb.DecodeBoundingBoxKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%g %g\n", c.Latitude, c.Longitude)
			return nil
		},
	}
}

func (a *app) newBucketsCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "Write the populated bounding boxes as GeoJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.importCities(cmd.Context())
			if err != nil {
				return err
			}
			data, err := res.Buckets(a.settings.BucketWidth).FeatureCollection().MarshalJSON()
			if err != nil {
				return fmt.Errorf("encoding geojson: %w", err)
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			return nil
		},
	}
	a.addInputFlags(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}
