package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the master workbook.
const (
	SheetAllData = "All Data"
	SheetSummary = "Summary"
	SheetZones   = "Zone Summary"
	SheetWide    = "Wide"

	SheetNodeBrands = "Brand Summary"
	SheetNodeData   = "Data"

	SheetCombined = "Combined Report"
)

// XLSXConfig locates the workbooks.
type XLSXConfig struct {
	// Path is the master workbook.
	Path string
	// NodeDir, when set, receives one workbook per node.
	NodeDir string
	// Combined, when set, receives the cross-period workbook written by
	// WriteCombined.
	Combined string
}

// XLSXSink writes reports as Excel workbooks.
type XLSXSink struct {
	cfg XLSXConfig
}

// NewXLSXSink validates cfg and creates the output directories. At least
// one of Path, NodeDir and Combined is required.
func NewXLSXSink(cfg XLSXConfig) (*XLSXSink, error) {
	if strings.TrimSpace(cfg.Path) == "" && strings.TrimSpace(cfg.NodeDir) == "" && strings.TrimSpace(cfg.Combined) == "" {
		return nil, errors.New("xlsx: path is required")
	}
	dirs := []string{cfg.NodeDir}
	for _, p := range []string{cfg.Path, cfg.Combined} {
		if p != "" {
			dirs = append(dirs, filepath.Dir(p))
		}
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("xlsx: mkdir %s: %w", dir, err)
		}
	}
	return &XLSXSink{cfg: cfg}, nil
}

func (s *XLSXSink) Name() string { return "xlsx" }

func (s *XLSXSink) Close() error { return nil }

// MasterPath is where Write puts the master workbook for label.
func (s *XLSXSink) MasterPath(label string) string { return withLabel(s.cfg.Path, label) }

// Write renders the master workbook and, if configured, the node workbooks.
func (s *XLSXSink) Write(ctx context.Context, r *Report) error {
	if s.cfg.Path != "" {
		path := s.MasterPath(r.Label)
		if err := writeMaster(ctx, path, r); err != nil {
			return err
		}
		log.Printf("xlsx: wrote %s sheets=%d observations=%d", path, 3+len(r.Nodes), len(r.Selected))
	}

	if s.cfg.NodeDir == "" {
		return nil
	}
	stems := newFileNamer()
	for _, n := range r.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := stems.name(n.Key)
		if r.Label != "" {
			name = r.Label + "_" + name
		}
		p := filepath.Join(s.cfg.NodeDir, name+".xlsx")
		f, err := newWorkbook(r)
		if err != nil {
			return fmt.Errorf("xlsx: %s: %w", p, err)
		}
		sheets := []struct {
			name string
			g    grid
		}{
			{SheetNodeBrands, rollupGrid(n.Brands)},
			{SheetSummary, rollupGrid(n.Breakdown)},
			{SheetNodeData, observationGrid(n.Observations)},
		}
		for i, sh := range sheets {
			if err := addSheet(f, sh.name, i == 0, sh.g); err != nil {
				f.Close()
				return fmt.Errorf("xlsx: %s: %w", p, err)
			}
		}
		if err := save(f, p); err != nil {
			return err
		}
	}
	log.Printf("xlsx: wrote %d node workbooks to %s", len(r.Nodes), s.cfg.NodeDir)
	return nil
}

func writeMaster(ctx context.Context, path string, r *Report) error {
	f, err := newWorkbook(r)
	if err != nil {
		return fmt.Errorf("xlsx: %s: %w", path, err)
	}
	fail := func(err error) error {
		f.Close()
		return fmt.Errorf("xlsx: %s: %w", path, err)
	}

	fixed := []struct {
		name string
		g    grid
	}{
		{SheetAllData, observationGrid(r.Selected)},
		{SheetSummary, rollupGrid(r.Master)},
		{SheetZones, rollupGrid(r.Zones)},
	}
	if r.Wide != nil {
		fixed = append(fixed, struct {
			name string
			g    grid
		}{SheetWide, wideGrid(r.Wide, r.Slots)})
	}
	reserved := make([]string, len(fixed))
	for i, sh := range fixed {
		reserved[i] = sh.name
		if err := addSheet(f, sh.name, i == 0, sh.g); err != nil {
			return fail(err)
		}
	}

	names := newSheetNamer(reserved...)
	for _, n := range r.Nodes {
		if err := ctx.Err(); err != nil {
			f.Close()
			return err
		}
		if err := addSheet(f, names.name(strings.Join(n.Key, " ")), false, rollupGrid(n.Breakdown)); err != nil {
			return fail(err)
		}
	}
	return save(f, path)
}

// WriteCombined renders every report's wide table side by side on one sheet,
// in the order given, separated by combinedGap blank columns. Each block
// carries its period label above its header. It is a no-op without a
// Combined path.
func (s *XLSXSink) WriteCombined(ctx context.Context, reports []*Report) error {
	if s.cfg.Combined == "" || len(reports) == 0 {
		return nil
	}
	path := s.cfg.Combined
	labels := make([]string, len(reports))
	for i, r := range reports {
		labels[i] = r.Label
	}
	head := *reports[0]
	head.Label = strings.Join(labels, ",")
	f, err := newWorkbook(&head)
	if err != nil {
		return fmt.Errorf("xlsx: %s: %w", path, err)
	}
	fail := func(err error) error {
		f.Close()
		return fmt.Errorf("xlsx: %s: %w", path, err)
	}
	if err := f.SetSheetName("Sheet1", SheetCombined); err != nil {
		return fail(err)
	}
	sw, err := f.NewStreamWriter(SheetCombined)
	if err != nil {
		return fail(err)
	}

	title, header, rows := combinedRows(reports)
	if err := sw.SetRow("A1", title); err != nil {
		return fail(err)
	}
	if err := sw.SetRow("A2", header); err != nil {
		return fail(err)
	}
	for i, row := range rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				f.Close()
				return err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return fail(err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fail(err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fail(err)
	}
	if err := save(f, path); err != nil {
		return err
	}
	log.Printf("xlsx: wrote %s periods=%d rows=%d", path, len(reports), len(rows))
	return nil
}

func newWorkbook(r *Report) (*excelize.File, error) {
	f := excelize.NewFile()
	err := f.SetDocProps(&excelize.DocProperties{
		Title:       r.Job,
		Subject:     r.Label,
		Identifier:  r.RunID,
		Description: "policy=" + r.Policy + " source=" + r.Source,
		Creator:     "rxreport",
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("doc props: %w", err)
	}
	return f, nil
}

// addSheet streams g into a new sheet. The first sheet reuses the default
// "Sheet1" so workbooks carry no empty leading sheet.
func addSheet(f *excelize.File, name string, first bool, g grid) error {
	if first {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return err
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return err
	}
	header := make([]any, len(g.Columns))
	for i, l := range g.labels() {
		header[i] = l
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, row := range g.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func save(f *excelize.File, path string) error {
	if err := f.SaveAs(path); err != nil {
		f.Close()
		return fmt.Errorf("xlsx: save %s: %w", path, err)
	}
	return f.Close()
}
