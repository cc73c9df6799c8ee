package etl

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"rxreport/internal/config"
	"rxreport/internal/datasource"
	"rxreport/internal/datasource/file"
	"rxreport/internal/datasource/httpds"
	"rxreport/internal/report"
	"rxreport/internal/storage"
)

func openSource(s config.Source) (datasource.Source, error) {
	switch s.Kind {
	case "", "file":
		if s.File.Path == "" {
			return nil, fmt.Errorf("source.file.path is required")
		}
		return file.NewLocal(s.File.Path), nil
	case "http":
		if s.HTTP.URL == "" {
			return nil, fmt.Errorf("source.http.url is required")
		}
		hdr := http.Header{}
		for k, v := range s.HTTP.Headers {
			hdr.Set(k, v)
		}
		client := httpds.NewClient(httpds.Config{
			Timeout:    time.Duration(s.HTTP.TimeoutSeconds) * time.Second,
			MaxRetries: s.HTTP.MaxRetries,
			Headers:    hdr,
		})
		return httpds.NewSource(client, s.HTTP.URL), nil
	default:
		return nil, fmt.Errorf("unsupported source.kind=%q", s.Kind)
	}
}

// openSinks builds the configured sinks. A run with no sink still computes
// every report; the caller only gets the Summary.
func openSinks(ctx context.Context, p config.Pipeline) ([]report.Sink, error) {
	var out []report.Sink
	if x := p.Report.XLSX; x != nil {
		s, err := report.NewXLSXSink(report.XLSXConfig{Path: x.Path, NodeDir: x.NodeDir, Combined: x.CombinedPath})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if st := p.Report.Storage; st != nil {
		s, err := report.NewSQLSink(ctx, report.SQLConfig{
			Storage:         storage.Config{Kind: st.Kind, DSN: st.DSN},
			TablePrefix:     st.TablePrefix,
			AutoCreateTable: st.AutoCreateTable,
			BatchSize:       p.Runtime.BatchSize,
		})
		if err != nil {
			closeSinks(out)
			return nil, err
		}
		out = append(out, s)
	}
	for _, s := range out {
		log.Printf("etl: sink=%s", s.Name())
	}
	return out, nil
}

func closeSinks(sinks []report.Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Printf("etl: close sink=%s: %v", s.Name(), err)
		}
	}
}
