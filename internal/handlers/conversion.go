package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/abtest-service/internal/conversion"
	"github.com/PratikDhanave/abtest-service/internal/identity"
	"github.com/PratikDhanave/abtest-service/internal/models"
)

// ConversionRecorder persists conversion reports.
type ConversionRecorder interface {
	RecordConversion(ctx context.Context, in conversion.Input) (bool, error)
}

// RegisterConversionRoutes registers the conversion endpoint.
//
// POST /track-conversion {visitor_id, variant, event_type?}
// - 200 {success:true} once the event is written
// - 200 {success:false} for malformed JSON or missing fields
// - 500 {success:false} when the store fails
func RegisterConversionRoutes(r gin.IRoutes, rec ConversionRecorder) {
	r.POST("/track-conversion", func(c *gin.Context) {
		var req models.TrackConversionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, models.TrackConversionResponse{Success: false})
			return
		}

		ok, err := rec.RecordConversion(c.Request.Context(), conversion.Input{
			VisitorID: req.VisitorID,
			Variant:   req.Variant,
			EventType: req.EventType,
			ClientIP:  identity.ClientIP(c.Request),
		})
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "record conversion failed",
				"visitor_id", req.VisitorID, "error", err)
			c.JSON(http.StatusInternalServerError, models.TrackConversionResponse{Success: false})
			return
		}

		c.JSON(http.StatusOK, models.TrackConversionResponse{Success: ok})
	})
}
