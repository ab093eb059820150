package httpapi

import (
	"github.com/gin-gonic/gin"

	"classledger/internal/attendance"
	"classledger/internal/classroom"
	"classledger/internal/identity"
	"classledger/internal/material"
	"classledger/internal/policy"
	"classledger/internal/verifier"
)

// Handler wires the HTTP surface to the core services.
type Handler struct {
	verifier   verifier.Verifier
	identity   *identity.Service
	attendance *attendance.Service
	classes    *classroom.Repository
	materials  *material.Repository
	blobs      *material.BlobStore // nil when not configured
}

// New creates the handler.
func New(v verifier.Verifier, ids *identity.Service, att *attendance.Service,
	classes *classroom.Repository, materials *material.Repository, blobs *material.BlobStore) *Handler {
	return &Handler{
		verifier:   v,
		identity:   ids,
		attendance: att,
		classes:    classes,
		materials:  materials,
		blobs:      blobs,
	}
}

// Routes registers the versioned API under the router.
func (h *Handler) Routes(r *gin.Engine) {
	v1 := r.Group("/v1", h.VerifyCredential())

	v1.POST("/auth/login", h.Login)

	authed := v1.Group("", h.ResolvePrincipal())

	att := authed.Group("/attendance")
	att.GET("", h.Require(true, policy.RoleTeacher, policy.RoleAdmin), h.ListAttendance)
	att.POST("", h.Require(true, policy.RoleTeacher), h.UpsertAttendance)
	att.GET("/:id", h.Require(true, policy.RoleTeacher, policy.RoleAdmin), h.GetAttendance)
	att.DELETE("/:id", h.Require(true, policy.RoleTeacher), h.DeleteAttendance)
	att.GET("/class/:classId/stats", h.Require(true, policy.RoleTeacher, policy.RoleAdmin), h.ClassStats)
	att.GET("/student/:studentId", h.Require(true), h.StudentHistory)
	att.GET("/student/:studentId/monthly", h.Require(true), h.StudentMonthly)

	admin := authed.Group("/admin", h.Require(true, policy.RoleAdmin))
	admin.GET("/attendance-reports", h.AttendanceReports)
	admin.GET("/requests", h.ListRequests)
	admin.POST("/requests/:id/approve", h.ApproveRequest)
	admin.POST("/requests/:id/reject", h.RejectRequest)
	admin.POST("/users/:id/block", h.BlockUser)
	admin.POST("/users/:id/unblock", h.UnblockUser)

	cls := authed.Group("/classes")
	cls.POST("", h.Require(true, policy.RoleTeacher), h.CreateClass)
	cls.GET("", h.Require(true), h.ListClasses)
	cls.GET("/:id", h.Require(true), h.ClassDetail)
	cls.POST("/:id/students", h.Require(true, policy.RoleTeacher), h.EnrollStudent)
	cls.DELETE("/:id/students/:studentId", h.Require(true, policy.RoleTeacher), h.UnenrollStudent)
	cls.POST("/:id/materials", h.Require(true, policy.RoleTeacher), h.UploadMaterial)
}
