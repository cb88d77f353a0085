package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/abtest-service/internal/config"
	"github.com/PratikDhanave/abtest-service/internal/identity"
	"github.com/PratikDhanave/abtest-service/internal/models"
)

// VariantAssigner resolves the variant for a visitor.
type VariantAssigner interface {
	GetOrAssignVariant(ctx context.Context, visitor models.Visitor) (models.Variant, error)
}

type indexPage struct {
	Variant   models.Variant
	Arm       config.Arm
	VisitorID string
}

// RegisterPageRoutes registers the landing page.
//
// GET /
// - Derives the visitor id from X-Forwarded-For/RemoteAddr and User-Agent
// - Renders the media for the visitor's variant and exposes the visitor id
//   for the conversion call
func RegisterPageRoutes(r gin.IRoutes, assigner VariantAssigner, arms config.Arms) {
	r.GET("/", func(c *gin.Context) {
		visitor := identity.FromContext(c)

		variant, err := assigner.GetOrAssignVariant(c.Request.Context(), visitor)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "assign variant failed",
				"visitor_id", visitor.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "variant assignment failed"})
			return
		}

		arm, ok := arms[variant]
		if !ok {
			slog.ErrorContext(c.Request.Context(), "no arm configured for variant", "variant", variant)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "variant not configured"})
			return
		}

		c.HTML(http.StatusOK, indexTemplate, indexPage{
			Variant:   variant,
			Arm:       arm,
			VisitorID: visitor.ID,
		})
	})
}
