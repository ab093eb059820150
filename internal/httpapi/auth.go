package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"

	"classledger/internal/apperr"
	"classledger/internal/policy"
	"classledger/internal/verifier"
)

const (
	ctxIdentity  = "identity"
	ctxPrincipal = "principal"
)

// bearer extracts the credential from the Authorization header.
func bearer(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(authz[len("bearer "):]), true
}

// VerifyCredential checks the bearer credential on every request and stores
// the verified identity. It does not touch the user store; login is the only
// route that runs with identity alone.
func (h *Handler) VerifyCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential, ok := bearer(c)
		if !ok {
			writeErr(c, apperr.New(apperr.Unauthenticated, "missing bearer credential"))
			c.Abort()
			return
		}
		id, err := h.verifier.Verify(c.Request.Context(), credential)
		if err != nil {
			writeErr(c, apperr.New(apperr.Unauthenticated, "invalid credential"))
			c.Abort()
			return
		}
		c.Set(ctxIdentity, id)
		c.Next()
	}
}

// ResolvePrincipal maps the verified identity to a domain principal and
// rejects unregistered subjects.
func (h *Handler) ResolvePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identityFrom(c)
		p, err := h.identity.ResolvePrincipal(c.Request.Context(), id.SubjectID)
		if err != nil {
			writeErr(c, err)
			c.Abort()
			return
		}
		c.Set(ctxPrincipal, p)
		c.Next()
	}
}

// Require gates the route on role and approval state.
func (h *Handler) Require(requireApproved bool, roles ...policy.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := policy.Authorize(principalFrom(c), roles, requireApproved); err != nil {
			writeErr(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) verifier.Identity {
	v, _ := c.Get(ctxIdentity)
	id, _ := v.(verifier.Identity)
	return id
}

func principalFrom(c *gin.Context) *policy.Principal {
	v, _ := c.Get(ctxPrincipal)
	p, _ := v.(*policy.Principal)
	return p
}
