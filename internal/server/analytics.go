package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/statmill/statmill/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// handleAnalytics serves the aggregation read path. The query parameter
// selects the rollup:
//
//	summary   - full rollup (default when the parameter is absent)
//	pageviews - per-page view counts, descending
//	sessions  - distinct sessions for a day (date=YYYY-MM-DD, default today)
//
// Unrecognized query types are a client error; empty data is a zero-valued
// success, never an error.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	ctx := r.Context()
	metrics := telemetry.GetMetrics()

	query := r.URL.Query().Get("query")
	if query == "" {
		query = "summary"
	}

	queryAttr := metric.WithAttributes(attribute.String("query", query))

	switch query {
	case "summary":
		summary, err := s.aggregator.Summary(ctx)
		if err != nil {
			s.analyticsError(w, r, err, queryAttr)
			return
		}
		metrics.AnalyticsQueriesTotal.Add(ctx, 1, queryAttr)
		writeJSON(w, http.StatusOK, summary)

	case "pageviews":
		pages, err := s.aggregator.TopPages(ctx)
		if err != nil {
			s.analyticsError(w, r, err, queryAttr)
			return
		}
		metrics.AnalyticsQueriesTotal.Add(ctx, 1, queryAttr)
		writeJSON(w, http.StatusOK, map[string]any{"pages": pages})

	case "sessions":
		day := time.Now().UTC()
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
				return
			}
			day = parsed
		}
		count, err := s.aggregator.SessionsOn(ctx, day)
		if err != nil {
			s.analyticsError(w, r, err, queryAttr)
			return
		}
		metrics.AnalyticsQueriesTotal.Add(ctx, 1, queryAttr)
		writeJSON(w, http.StatusOK, map[string]any{
			"date":     day.Format("2006-01-02"),
			"sessions": count,
		})

	default:
		writeError(w, http.StatusBadRequest, "unrecognized query type")
	}
}

func (s *Server) analyticsError(w http.ResponseWriter, r *http.Request, err error, queryAttr metric.MeasurementOption) {
	ctx := r.Context()
	zerolog.Ctx(ctx).Error().Err(err).Msg("Analytics query failed")
	telemetry.GetMetrics().AnalyticsErrorsTotal.Add(ctx, 1, queryAttr)
	writeError(w, http.StatusInternalServerError, "query failed")
}
