package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classledger/internal/apperr"
	"classledger/internal/identity"
	"classledger/internal/policy"
)

type loginRequest struct {
	Phone         string   `json:"phone"`
	Address       string   `json:"address"`
	Grade         string   `json:"grade"`
	Stream        string   `json:"stream"`
	GuardianName  string   `json:"guardian_name"`
	GuardianPhone string   `json:"guardian_phone"`
	Subjects      []string `json:"subjects"`
}

// Login resolves-or-creates the user behind the verified credential.
// 201 on first registration, 200 for an approved returning user, 403 when
// blocked or still pending.
func (h *Handler) Login(c *gin.Context) {
	id := identityFrom(c)

	var req loginRequest
	// Profile details are optional; an empty body is a plain login.
	_ = c.ShouldBindJSON(&req)

	res, err := h.identity.Login(c.Request.Context(), id, identity.Profile{
		Phone:         req.Phone,
		Address:       req.Address,
		Grade:         req.Grade,
		Stream:        req.Stream,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		Subjects:      req.Subjects,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"user": res.User})
}

// ListRequests returns approval requests, optionally filtered by ?status=.
func (h *Handler) ListRequests(c *gin.Context) {
	status := identity.RequestStatus(c.Query("status"))
	switch status {
	case "", identity.RequestPending, identity.RequestApproved, identity.RequestRejected, identity.RequestBlocked:
	default:
		writeErr(c, apperr.NewValidation("invalid status filter",
			apperr.FieldError{Field: "status", Error: "unknown status"}))
		return
	}
	page, limit := pagination(c)
	reqs, err := h.identity.ListRequests(c.Request.Context(), status, limit, (page-1)*limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// ApproveRequest grants the requested role.
func (h *Handler) ApproveRequest(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required,oneof=student teacher"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.NewValidation("role must be student or teacher",
			apperr.FieldError{Field: "role", Error: "required, one of student|teacher"}))
		return
	}
	p := principalFrom(c)
	out, err := h.identity.Approve(c.Request.Context(), p.UserID, c.Param("id"), policy.Role(req.Role))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": out})
}

// RejectRequest declines a pending request with admin notes.
func (h *Handler) RejectRequest(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)
	p := principalFrom(c)
	out, err := h.identity.Reject(c.Request.Context(), p.UserID, c.Param("id"), req.Notes)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": out})
}

// BlockUser blocks a user regardless of approval state.
func (h *Handler) BlockUser(c *gin.Context) {
	p := principalFrom(c)
	if err := h.identity.SetBlocked(c.Request.Context(), p.UserID, c.Param("id"), true); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "blocked"})
}

// UnblockUser lifts a block.
func (h *Handler) UnblockUser(c *gin.Context) {
	p := principalFrom(c)
	if err := h.identity.SetBlocked(c.Request.Context(), p.UserID, c.Param("id"), false); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unblocked"})
}
