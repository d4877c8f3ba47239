package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"car-sales-dashboard/charts"
	"car-sales-dashboard/services"
	"car-sales-dashboard/snapshot"
	"car-sales-dashboard/storage"
	"car-sales-dashboard/utils"
	"car-sales-dashboard/web"
)

func addSelectionFlags(cmd *cobra.Command, f *selectionFlags) {
	cmd.Flags().StringVar(&f.month, "month", "", "posting month bucket, YYYY-MM (default: all months)")
	cmd.Flags().StringVar(&f.type1, "type1", "", "first vehicle type (default: $DEFAULT_TYPE_1)")
	cmd.Flags().StringVar(&f.type2, "type2", "", "second vehicle type (default: $DEFAULT_TYPE_2)")
	cmd.Flags().BoolVar(&f.allManufacturers, "all-manufacturers", false, "include manufacturers below the high-volume threshold")
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cfg, logger)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.HTTPAddr
			}
			return a.server(addr).ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: $HTTP_ADDR or :8501)")
	return cmd
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print a summary report of the enriched dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cfg, logger)
			if err != nil {
				return err
			}
			svc := services.NewInsightService(logger, cfg.HighVolumeThreshold)
			svc.Print(cmd.OutOrStdout(), svc.Generate(a.table))
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var (
		sel    selectionFlags
		outDir string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the enriched CSV and every chart of a selection to files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := charts.ParseFormat(format)
			if err != nil {
				return err
			}
			a, err := loadApp(cfg, logger)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.OutputDir
			}

			csvPath := filepath.Join(outDir, "vehicles_enriched.csv")
			w, err := storage.NewCSVWriter(csvPath)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Write(cmd.Context(), a.table); err != nil {
				return err
			}
			logger.Info("[export] Enriched listings saved to %s", csvPath)

			d, err := a.views.Build(sel.resolve(a))
			if err != nil {
				return err
			}
			r := charts.Renderer{Width: cfg.ChartWidth, Height: cfg.ChartHeight}
			return exportCharts(d, filepath.Join(outDir, "charts"), f, r, cfg.MaxConcurrency, logger)
		},
	}
	addSelectionFlags(cmd, &sel)
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: $OUTPUT_DIR or ./output)")
	cmd.Flags().StringVar(&format, "format", "png", "chart image format (png, svg)")
	return cmd
}

// exportCharts renders every histogram of d into dir on a bounded pool.
// Empty histograms are skipped.
func exportCharts(d services.Dashboard, dir string, f charts.Format, r charts.Renderer, workers int, logger *utils.Logger) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("export: create chart dir: %w", err)
	}

	pool := utils.NewWorkerPool(workers)
	for _, h := range d.Charts {
		pool.Submit(func() error {
			path := filepath.Join(dir, h.Name+"."+string(f))
			file, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("export: create %q: %w", path, err)
			}
			err = r.Render(file, h, f)
			if cerr := file.Close(); err == nil {
				err = cerr
			}
			switch {
			case errors.Is(err, charts.ErrEmptyChart):
				logger.Warn("[export] %s has no rows for this selection, skipped", h.Name)
				return os.Remove(path)
			case err != nil:
				return err
			}
			logger.Info("[export] Chart saved to %s", path)
			return nil
		})
	}
	return pool.Wait()
}

func storeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "store",
		Short: "Store the enriched table in PostgreSQL and summarise what was stored",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(cfg, logger)
			if err != nil {
				return err
			}

			pg, err := storage.NewPostgresWriter(ctx, cfg.DSN(), utils.RetryConfig{
				MaxAttempts: cfg.MaxRetries,
				BaseDelay:   2 * time.Second,
				Logger:      logger,
			})
			if err != nil {
				logger.Error("Make sure PostgreSQL is reachable at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
				return err
			}
			defer pg.Close()

			bar := newStoreProgress(a.table.Len())
			pg.Progress = func(n int) { _ = bar.Add(n) }
			if err := pg.Write(ctx, a.table); err != nil {
				return err
			}
			_ = bar.Finish()
			logger.Info("[store] %d listings stored in PostgreSQL (table: vehicle_listings)", a.table.Len())

			stored, err := pg.FetchAll(ctx)
			if err != nil {
				logger.Error("Failed to fetch listings back for the summary: %v", err)
				stored = a.table
			}
			svc := services.NewInsightService(logger, cfg.HighVolumeThreshold)
			svc.Print(cmd.OutOrStdout(), svc.Generate(stored))
			return nil
		},
	}
}

func newStoreProgress(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Storing listings...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
}

func snapshotCmd() *cobra.Command {
	var (
		sel     selectionFlags
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a PNG of the dashboard with headless Chrome",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cfg, logger)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = filepath.Join(cfg.OutputDir, "dashboard.png")
			}

			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return fmt.Errorf("snapshot: listen: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			served := make(chan error, 1)
			go func() { served <- a.server(ln.Addr().String()).Serve(ctx, ln) }()

			pageURL := "http://" + ln.Addr().String() + "/?" + web.SelectionQuery(sel.resolve(a))
			capturer := snapshot.New(cfg.ChromeBin, cfg.ChartWidth+96, 4*cfg.ChartHeight, cfg.MaxRetries, logger)
			capErr := capturer.CaptureToFile(ctx, pageURL, outPath)

			cancel()
			if err := <-served; err != nil {
				logger.Warn("[snapshot] dashboard server: %v", err)
			}
			if capErr != nil {
				return capErr
			}
			logger.Info("[snapshot] Dashboard saved to %s", outPath)
			return nil
		},
	}
	addSelectionFlags(cmd, &sel)
	cmd.Flags().StringVar(&outPath, "out", "", "PNG path (default: $OUTPUT_DIR/dashboard.png)")
	return cmd
}
