package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"classledger/internal/apperr"
	"classledger/internal/attendance"
)

func pagination(c *gin.Context) (page, limit int) {
	page, limit = 1, 20
	if v := c.Query("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	return page, limit
}

// ListAttendance returns role-scoped, paginated records.
func (h *Handler) ListAttendance(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		writeErr(c, err)
		return
	}
	page, limit := pagination(c)
	records, total, err := h.attendance.Find(c.Request.Context(), principalFrom(c), attendance.FindQuery{
		ClassID:   c.Query("classId"),
		TeacherID: c.Query("teacherId"),
		StudentID: c.Query("studentId"),
		Start:     start,
		End:       end,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

type upsertAttendanceRequest struct {
	ClassID  string `json:"class_id" binding:"required"`
	Date     string `json:"date" binding:"required"`
	Students []struct {
		Student string `json:"student" binding:"required"`
		Status  string `json:"status" binding:"required,oneof=present absent"`
	} `json:"students" binding:"required,min=1"`
	TeacherStatus string `json:"teacher_status"`
	Location      *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

// UpsertAttendance creates or merges the day record for a class.
func (h *Handler) UpsertAttendance(c *gin.Context) {
	var req upsertAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.NewValidation("invalid attendance payload",
			apperr.FieldError{Field: "body", Error: err.Error()}))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeErr(c, apperr.NewValidation("invalid date",
			apperr.FieldError{Field: "date", Error: "expected YYYY-MM-DD"}))
		return
	}

	in := attendance.UpsertInput{
		ClassID:       req.ClassID,
		Date:          date,
		TeacherStatus: attendance.Status(req.TeacherStatus),
	}
	for _, s := range req.Students {
		in.Students = append(in.Students, attendance.StudentStatus{
			StudentID: s.Student,
			Status:    attendance.Status(s.Status),
		})
	}
	if req.Location != nil {
		in.Geo = &attendance.Geo{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude}
	}

	p := principalFrom(c)
	rec, err := h.attendance.UpsertDay(c.Request.Context(), p.UserID, in)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

// GetAttendance returns a single owned record.
func (h *Handler) GetAttendance(c *gin.Context) {
	rec, err := h.attendance.Get(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

// DeleteAttendance removes an owned record.
func (h *Handler) DeleteAttendance(c *gin.Context) {
	p := principalFrom(c)
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id"), p.UserID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ClassStats returns the per-class aggregation.
func (h *Handler) ClassStats(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		writeErr(c, err)
		return
	}
	stats, err := h.attendance.ClassStats(c.Request.Context(), principalFrom(c), c.Param("classId"), start, end)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// StudentHistory returns a student's records and cumulative stats.
func (h *Handler) StudentHistory(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		writeErr(c, err)
		return
	}
	page, limit := pagination(c)
	records, stats, total, err := h.attendance.StudentHistory(c.Request.Context(), principalFrom(c),
		c.Param("studentId"), start, end, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"stats":   stats,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// StudentMonthly returns the month-window rollup for dashboards.
func (h *Handler) StudentMonthly(c *gin.Context) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	if v := c.Query("month"); v != "" {
		parsed, err := time.Parse("2006-01", v)
		if err != nil {
			writeErr(c, apperr.NewValidation("invalid month",
				apperr.FieldError{Field: "month", Error: "expected YYYY-MM"}))
			return
		}
		monthStart = parsed
		monthEnd = parsed.AddDate(0, 1, -1)
	}
	roll, err := h.attendance.StudentMonthly(c.Request.Context(), principalFrom(c),
		c.Param("studentId"), monthStart, monthEnd)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rollup": roll})
}

// AttendanceReports returns the unrestricted daily summary for admins.
func (h *Handler) AttendanceReports(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		writeErr(c, err)
		return
	}
	days, err := h.attendance.AdminDailySummary(c.Request.Context(), c.Query("classId"), start, end)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}
