package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/abtest-service/internal/reporting"
)

// ResultsComputer produces the per-variant report.
type ResultsComputer interface {
	ComputeResults(ctx context.Context) (reporting.Results, error)
}

type resultsPage struct {
	Rows []reporting.Row
}

// RegisterResultsRoutes registers the reporting view.
//
// GET /ab-test-results
// - HTML table by default, JSON {variant: {visitors, conversions, conversion_rate}}
//   when the client prefers application/json
// - No access control
func RegisterResultsRoutes(r gin.IRoutes, agg ResultsComputer) {
	r.GET("/ab-test-results", func(c *gin.Context) {
		results, err := agg.ComputeResults(c.Request.Context())
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "compute results failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}

		c.Negotiate(http.StatusOK, gin.Negotiate{
			Offered:  []string{gin.MIMEHTML, gin.MIMEJSON},
			HTMLName: resultsTemplate,
			HTMLData: resultsPage{Rows: results.Rows()},
			JSONData: results,
		})
	})
}
