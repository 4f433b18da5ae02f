package serving

import (
	"bytes"
	"net/http"

	"UsageForecaster/pkg/aggregating"
	"UsageForecaster/pkg/formatting"
	"UsageForecaster/pkg/graphing"
	"UsageForecaster/pkg/metrics"
)

const loadFailed = "Failed to load data"

// errorMessage picks the client-facing message for a dataset error.
func errorMessage(err error) string {
	if statusFor(err) == http.StatusNotFound {
		return "No data found"
	}
	return loadFailed
}

func (s *Server) loadRecords(limit int) ([]metrics.RawRecord, error) {
	records, err := formatting.Load(s.opts.DataPath, limit)
	if err != nil {
		s.logger.Warn("Failed to load dataset", "path", s.opts.DataPath, "error", err)
		return nil, err
	}
	return records, nil
}

func (s *Server) loadSamples() ([]metrics.Sample, error) {
	records, err := s.loadRecords(s.opts.DataLimit)
	if err != nil {
		return nil, err
	}
	return metrics.ParseSamples(records), nil
}

type dataResponse struct {
	Data  []metrics.RawRecord `json:"data"`
	Count int                 `json:"count"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", s.opts.DataLimit)
	if err != nil {
		writeError(w, "Invalid limit", err)
		return
	}
	records, err := s.loadRecords(limit)
	if err != nil {
		writeError(w, errorMessage(err), err)
		return
	}
	if records == nil {
		records = []metrics.RawRecord{}
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: records, Count: len(records)})
}

type tableResponse struct {
	Columns []string            `json:"columns"`
	Rows    []metrics.RawRecord `json:"rows"`
	Count   int                 `json:"count"`
}

// handleTable returns the first rows of the dataset for tabular display.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", s.opts.TableWindow)
	if err != nil {
		writeError(w, "Invalid limit", err)
		return
	}
	records, err := s.loadRecords(limit)
	if err != nil {
		writeError(w, errorMessage(err), err)
		return
	}
	resp := tableResponse{Columns: []string{}, Rows: []metrics.RawRecord{}}
	if len(records) > 0 {
		resp.Columns = records[0].Columns()
		resp.Rows = records
	}
	resp.Count = len(resp.Rows)
	writeJSON(w, http.StatusOK, resp)
}

// handleStats summarizes the loaded window, or with ?all=true streams the
// whole dataset through a SummaryBuilder.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	all, err := boolParam(r, "all")
	if err != nil {
		writeError(w, "Invalid all", err)
		return
	}

	if !all {
		samples, err := s.loadSamples()
		if err != nil {
			writeError(w, errorMessage(err), err)
			return
		}
		writeJSON(w, http.StatusOK, aggregating.Summarize(samples))
		return
	}

	var b aggregating.SummaryBuilder
	for rec, err := range formatting.Records(s.opts.DataPath) {
		if err != nil {
			s.logger.Warn("Failed to stream dataset", "path", s.opts.DataPath, "error", err)
			writeError(w, errorMessage(err), err)
			return
		}
		b.Add(metrics.ParseSample(rec))
	}
	sum := b.Summary()
	if sum.DataPoints == 0 {
		writeError(w, "No data found", formatting.ErrNoData)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	buckets, err := boundedIntParam(r, "buckets", s.opts.HistogramBuckets, aggregating.MaxBuckets)
	if err != nil {
		writeError(w, "Invalid buckets", err)
		return
	}
	samples, err := s.loadSamples()
	if err != nil {
		writeError(w, errorMessage(err), err)
		return
	}
	hist := aggregating.Histogram(aggregating.CPUPercents(samples), buckets)
	if hist == nil {
		hist = []aggregating.Bucket{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"buckets": hist})
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	samples, err := s.loadSamples()
	if err != nil {
		writeError(w, errorMessage(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hours": aggregating.Hourly(samples)})
}

type correlationResponse struct {
	Points      []aggregating.Point `json:"points"`
	Count       int                 `json:"count"`
	Coefficient *float64            `json:"coefficient"`
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", s.opts.CorrelationWindow)
	if err != nil {
		writeError(w, "Invalid limit", err)
		return
	}
	samples, err := s.loadSamples()
	if err != nil {
		writeError(w, errorMessage(err), err)
		return
	}

	points := aggregating.Correlation(samples, limit)
	if points == nil {
		points = []aggregating.Point{}
	}
	resp := correlationResponse{Points: points, Count: len(points)}
	if coef, ok := aggregating.Pearson(points); ok {
		resp.Coefficient = &coef
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", s.opts.TimeSeriesWindow)
	if err != nil {
		writeError(w, "Invalid limit", err)
		return
	}
	samples, err := s.loadSamples()
	if err != nil {
		writeError(w, errorMessage(err), err)
		return
	}
	writeJSON(w, http.StatusOK, aggregating.BuildTimeSeries(samples, limit))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	samples, err := s.loadSamples()
	if err != nil {
		writeError(w, errorMessage(err), err)
		return
	}

	d := graphing.NewDashboard("Usage Forecaster", samples, graphing.Options{
		TimeSeriesWindow:  s.opts.TimeSeriesWindow,
		CorrelationWindow: s.opts.CorrelationWindow,
		HistogramBuckets:  s.opts.HistogramBuckets,
	})

	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		s.logger.Error("Failed to render dashboard", "error", err)
		writeError(w, "Failed to render dashboard", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
