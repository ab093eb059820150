package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"classledger/internal/apperr"
	"classledger/internal/classroom"
	"classledger/internal/material"
	"classledger/internal/policy"
)

// CreateClass registers a class owned by the calling teacher.
func (h *Handler) CreateClass(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Subject string `json:"subject"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.NewValidation("invalid class payload",
			apperr.FieldError{Field: "name", Error: "required"}))
		return
	}
	p := principalFrom(c)
	cls, err := h.classes.Create(c.Request.Context(), classroom.Class{
		Name:      req.Name,
		Subject:   req.Subject,
		TeacherID: p.UserID,
	})
	if err != nil {
		writeErr(c, apperr.Wrap(apperr.Internal, "class create failed", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"class": cls})
}

// ListClasses returns the classes visible to the caller's role.
func (h *Handler) ListClasses(c *gin.Context) {
	p := principalFrom(c)
	var (
		classes []classroom.Class
		err     error
	)
	switch p.Role {
	case policy.RoleAdmin:
		classes, err = h.classes.ListAll(c.Request.Context())
	case policy.RoleTeacher:
		classes, err = h.classes.ListForTeacher(c.Request.Context(), p.UserID)
	default:
		classes, err = h.classes.ListForStudent(c.Request.Context(), p.UserID)
	}
	if err != nil {
		writeErr(c, apperr.Wrap(apperr.Internal, "class list failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

// ClassDetail returns a class with enrollment and study materials.
func (h *Handler) ClassDetail(c *gin.Context) {
	cls, err := h.classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, apperr.Wrap(apperr.Internal, "class lookup failed", err))
		return
	}
	if cls == nil {
		writeErr(c, apperr.New(apperr.NotFound, "class not found"))
		return
	}
	p := principalFrom(c)
	if p.Role == policy.RoleStudent && !contains(cls.Students, p.UserID) {
		writeErr(c, apperr.New(apperr.InsufficientRole, "not enrolled in this class"))
		return
	}
	materials, err := h.materials.ListForClass(c.Request.Context(), cls.ID)
	if err != nil {
		writeErr(c, apperr.Wrap(apperr.Internal, "material list failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"class": cls, "materials": materials})
}

// EnrollStudent adds a student to an owned class.
func (h *Handler) EnrollStudent(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.NewValidation("student_id required",
			apperr.FieldError{Field: "student_id", Error: "required"}))
		return
	}
	cls, err := h.ownedClass(c)
	if err != nil {
		writeErr(c, err)
		return
	}
	if err := h.classes.Enroll(c.Request.Context(), cls.ID, req.StudentID); err != nil {
		writeErr(c, apperr.Wrap(apperr.Internal, "enroll failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "enrolled"})
}

// UnenrollStudent removes a student from an owned class.
func (h *Handler) UnenrollStudent(c *gin.Context) {
	cls, err := h.ownedClass(c)
	if err != nil {
		writeErr(c, err)
		return
	}
	if err := h.classes.Unenroll(c.Request.Context(), cls.ID, c.Param("studentId")); err != nil {
		writeErr(c, apperr.Wrap(apperr.Internal, "unenroll failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unenrolled"})
}

// UploadMaterial pushes a file to the blob store and records its metadata.
func (h *Handler) UploadMaterial(c *gin.Context) {
	if h.blobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"kind": "unavailable", "message": "file storage not configured"}})
		return
	}
	cls, err := h.ownedClass(c)
	if err != nil {
		writeErr(c, err)
		return
	}

	file, header, ferr := c.Request.FormFile("file")
	if ferr != nil {
		writeErr(c, apperr.NewValidation("file field required",
			apperr.FieldError{Field: "file", Error: "required"}))
		return
	}
	defer file.Close()
	data, ferr := io.ReadAll(file)
	if ferr != nil {
		writeErr(c, apperr.Wrap(apperr.Internal, "read file failed", ferr))
		return
	}

	result, uerr := h.blobs.Upload(data, header.Filename)
	if uerr != nil {
		writeErr(c, apperr.Wrap(apperr.Internal, "file upload failed", uerr))
		return
	}

	p := principalFrom(c)
	m, merr := h.materials.Create(c.Request.Context(), material.StudyMaterial{
		ClassID:     cls.ID,
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		FileURL:     result.SecureURL,
		UploadedBy:  p.UserID,
	})
	if merr != nil {
		writeErr(c, apperr.Wrap(apperr.Internal, "material create failed", merr))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"material": m})
}

// ownedClass loads the :id class and checks the caller owns it.
func (h *Handler) ownedClass(c *gin.Context) (*classroom.Class, error) {
	cls, err := h.classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "class lookup failed", err)
	}
	if cls == nil {
		return nil, apperr.New(apperr.NotFound, "class not found")
	}
	p := principalFrom(c)
	if p.Role != policy.RoleAdmin && cls.TeacherID != p.UserID {
		return nil, apperr.New(apperr.InsufficientRole, "only the class owner may do this")
	}
	return cls, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
