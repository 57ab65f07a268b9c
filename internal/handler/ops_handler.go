package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushub/coursespaces/internal/models"
	appErrors "github.com/campushub/coursespaces/pkg/errors"
	"github.com/campushub/coursespaces/pkg/response"
)

type termState interface {
	Current() string
	Set(candidate string) error
}

type enrollmentReader interface {
	List(ctx context.Context, userID int64) ([]string, error)
	ListForTerm(ctx context.Context, userID int64, term string) ([]string, error)
}

type userReader interface {
	Get(ctx context.Context, userID int64) (*models.UserRecord, error)
}

// SetTermRequest carries a term change.
type SetTermRequest struct {
	Term string `json:"term" binding:"required"`
}

// OpsHandler exposes the operational read/administer surface: current term,
// registration records and enrollment lists. Enrollment mutations stay with
// the platform-gateway caller; this API never provisions anything.
type OpsHandler struct {
	terms       termState
	enrollments enrollmentReader
	users       userReader
}

// NewOpsHandler builds the handler.
func NewOpsHandler(terms termState, enrollments enrollmentReader, users userReader) *OpsHandler {
	return &OpsHandler{terms: terms, enrollments: enrollments, users: users}
}

// Register mounts the routes on a router group.
func (h *OpsHandler) Register(r *gin.RouterGroup) {
	r.GET("/term", h.GetTerm)
	r.PUT("/term", h.SetTerm)
	r.GET("/users/:id", h.GetUser)
	r.GET("/users/:id/enrollments", h.ListEnrollments)
}

// GetTerm returns the current academic term.
func (h *OpsHandler) GetTerm(c *gin.Context) {
	response.OK(c, gin.H{"term": h.terms.Current()})
}

// SetTerm validates and installs a new current term.
func (h *OpsHandler) SetTerm(c *gin.Context) {
	var req SetTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term payload"))
		return
	}
	if err := h.terms.Set(req.Term); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"term": h.terms.Current()})
}

// GetUser returns a registration record.
func (h *OpsHandler) GetUser(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	rec, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if rec == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "user not registered"))
		return
	}
	response.OK(c, rec)
}

// ListEnrollments returns a user's enrolled slugs, optionally filtered by
// the ?term= query parameter.
func (h *OpsHandler) ListEnrollments(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var (
		slugs []string
		err   error
	)
	if term := c.Query("term"); term != "" {
		slugs, err = h.enrollments.ListForTerm(c.Request.Context(), userID, term)
	} else {
		slugs, err = h.enrollments.List(c.Request.Context(), userID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	if slugs == nil {
		slugs = []string{}
	}
	response.OK(c, gin.H{"enrollments": slugs})
}

func parseUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user id must be an integer"))
		return 0, false
	}
	return userID, true
}
