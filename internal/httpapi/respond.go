package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classledger/internal/apperr"
)

// writeErr maps the error taxonomy onto transport status codes. Internal
// causes are logged and never leaked.
func writeErr(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		log.Printf("unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"kind": apperr.Internal, "message": "internal error"}})
		return
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case apperr.Unauthenticated:
		status = http.StatusUnauthorized
	case apperr.Blocked, apperr.PendingApproval, apperr.InsufficientRole:
		status = http.StatusForbidden
	case apperr.NotFound, apperr.NotFoundOrForbidden:
		status = http.StatusNotFound
	case apperr.Validation, apperr.UnenrolledStudent:
		status = http.StatusBadRequest
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.Internal:
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, e)
	}

	body := gin.H{"kind": e.Kind, "message": e.Message}
	if e.Kind == apperr.Internal {
		body["message"] = "internal error"
	}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	c.JSON(status, gin.H{"error": body})
}

// parseDate accepts an ISO date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// dateRange reads optional startDate/endDate query params.
func dateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if v := c.Query("startDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return nil, nil, apperr.NewValidation("invalid startDate",
				apperr.FieldError{Field: "startDate", Error: "expected YYYY-MM-DD"})
		}
		start = &t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return nil, nil, apperr.NewValidation("invalid endDate",
				apperr.FieldError{Field: "endDate", Error: "expected YYYY-MM-DD"})
		}
		end = &t
	}
	return start, end, nil
}
