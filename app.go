package main

import (
	"fmt"
	"time"

	"car-sales-dashboard/config"
	"car-sales-dashboard/metrics"
	"car-sales-dashboard/models"
	"car-sales-dashboard/services"
	"car-sales-dashboard/storage"
	"car-sales-dashboard/utils"
	"car-sales-dashboard/web"
)

// app is the enriched dataset plus everything built once from it.
type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	metrics *metrics.Recorder
	dataset *storage.Dataset
	table   models.Table
	views   *services.ViewBuilder
}

// loadApp reads, cleans and enriches the listings file. Any error here is
// fatal: nothing is served from a partially loaded dataset.
func loadApp(cfg *config.Config, logger *utils.Logger) (*app, error) {
	start := time.Now()
	logger.Info("[load] Reading %s", cfg.DataPath)

	ds, err := storage.LoadFile(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	raw := services.NewCleaner(logger).Clean(ds.Rows)
	table, err := services.NewTransformer(logger).Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", cfg.DataPath, err)
	}

	rec, err := metrics.New()
	if err != nil {
		return nil, err
	}
	took := time.Since(start)
	rec.SetDataset(table.Len(), took)
	logger.Info("[load] %d listings enriched in %v (fingerprint %s)", table.Len(), took.Round(time.Millisecond), ds.Fingerprint)

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: rec,
		dataset: ds,
		table:   table,
		views:   services.NewViewBuilder(table, cfg.HighVolumeThreshold, cfg.PriceBins, logger, rec),
	}, nil
}

// server builds the dashboard HTTP server for addr.
func (a *app) server(addr string) *web.Server {
	return web.NewServer(web.Config{
		Addr:         addr,
		PreviewRows:  a.cfg.TablePreviewRows,
		Threshold:    a.cfg.HighVolumeThreshold,
		DefaultType1: a.cfg.DefaultType1,
		DefaultType2: a.cfg.DefaultType2,
		ChartWidth:   a.cfg.ChartWidth,
		ChartHeight:  a.cfg.ChartHeight,
		Fingerprint:  a.dataset.Fingerprint,
		Metrics:      a.metrics.Handler(),
		Renders:      a.metrics,
	}, a.views, a.logger)
}

// selectionFlags holds the widget state given on the command line.
type selectionFlags struct {
	month            string
	type1            string
	type2            string
	allManufacturers bool
}

// resolve fills unset types from the configured defaults.
func (f selectionFlags) resolve(a *app) models.Selection {
	sel := services.DefaultSelection(a.views.Domains(), a.cfg.DefaultType1, a.cfg.DefaultType2)
	sel.MonthYear = f.month
	sel.HighVolumeOnly = !f.allManufacturers
	if f.type1 != "" {
		sel.Type1 = f.type1
	}
	if f.type2 != "" {
		sel.Type2 = f.type2
	}
	return sel
}
