// User record handlers.
//
// This file exposes the API operations:
//   - GET    /healthcheck   (liveness + runtime)
//   - POST   /populate      (generate users)
//   - GET    /users         (filtered query, archived)
//   - DELETE /users/{id}    (delete)
//
// Handlers are transport-thin: they parse input, call the UserService and
// translate results into responses. They never see gin or Lambda types.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tbourn/go-user-records/internal/config"
	"github.com/tbourn/go-user-records/internal/domain"
	"github.com/tbourn/go-user-records/internal/invoke"
	"github.com/tbourn/go-user-records/internal/services"
	"github.com/tbourn/go-user-records/internal/utils"
)

// DefaultPopulateCount is used when count is omitted.
const DefaultPopulateCount = 10

// UserService defines the record operations consumed by the handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type UserService interface {
	// Populate generates count users; unique is embedded in every email.
	Populate(ctx context.Context, count int, unique string) (int, error)
	// Query returns matching users plus the archival reference.
	Query(ctx context.Context, criteria domain.FilterCriteria) (*domain.QueryResult, error)
	// Delete removes a user by id.
	Delete(ctx context.Context, id uint) error
}

// Handlers groups the API operations and their dependencies.
type Handlers struct {
	Users UserService
	// Runtime is reported by the health check.
	Runtime config.RuntimeMode
	// Now is the health check clock.
	Now func() time.Time
}

// New constructs Handlers for the given runtime.
func New(users UserService, runtime config.RuntimeMode) *Handlers {
	return &Handlers{Users: users, Runtime: runtime, Now: time.Now}
}

// Router returns the route table shared by the server and Lambda runtimes.
func (h *Handlers) Router() *invoke.Router {
	r := invoke.NewRouter(Fail)
	r.Handle(http.MethodGet, "/healthcheck", h.Health)
	r.Handle(http.MethodPost, "/populate", h.Populate)
	r.Handle(http.MethodGet, "/users", h.ListUsers)
	r.Handle(http.MethodDelete, "/users/{id}", h.DeleteUser)
	return r
}

// Health godoc
// @ID          healthCheck
// @Summary     Health check
// @Description Reports liveness and which runtime serves the request ("Docker" for the HTTP server, "AWS Lambda" for gateway events).
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /healthcheck [get]
func (h *Handlers) Health(_ context.Context, _ invoke.Request) invoke.Response {
	return ok(HealthResponse{
		Status:      "healthy",
		Timestamp:   h.Now().UTC(),
		Environment: h.Runtime.Environment(),
	})
}

// Populate godoc
// @ID          populateUsers
// @Summary     Generate synthetic users
// @Description Inserts count randomly generated users in one transaction. A unique token is embedded in every email to avoid collisions across runs.
// @Tags        Users
// @Produce     json
// @Param       count   query  int     false  "Number of users"  minimum(1) maximum(100) default(10)
// @Param       unique  query  string  false  "Token embedded in generated emails"
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /populate [post]
func (h *Handlers) Populate(ctx context.Context, req invoke.Request) invoke.Response {
	raw, _ := req.QueryString("count")
	count, err := utils.AtoiDefault(raw, DefaultPopulateCount)
	if err != nil {
		return fail(ctx, req, http.StatusBadRequest, ErrCodeBadRequest, "count must be an integer")
	}
	unique, _ := req.QueryString("unique")

	n, err := h.Users.Populate(ctx, count, unique)
	switch {
	case err == nil:
		return ok(MessageResponse{Message: fmt.Sprintf("Created %d users", n)})
	case errors.Is(err, services.ErrInvalidCount):
		return fail(ctx, req, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("count must be between 1 and %d", services.MaxPopulate))
	default:
		return fail(ctx, req, http.StatusInternalServerError, ErrCodePopulateFailed, MsgPopulateFailed)
	}
}

// ListUsers godoc
// @ID          listUsers
// @Summary     Query users
// @Description Returns users matching every given filter (name and city are case-insensitive substrings, ages are inclusive bounds). Every query is archived; s3_file references the archived snapshot.
// @Tags        Users
// @Produce     json
// @Param       name     query  string  false  "Name contains"
// @Param       city     query  string  false  "City contains"
// @Param       min_age  query  int     false  "Minimum age (inclusive)"
// @Param       max_age  query  int     false  "Maximum age (inclusive)"
// @Success     200  {object}  domain.QueryResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [get]
func (h *Handlers) ListUsers(ctx context.Context, req invoke.Request) invoke.Response {
	criteria, msg := parseCriteria(req)
	if msg != "" {
		return fail(ctx, req, http.StatusBadRequest, ErrCodeBadRequest, msg)
	}

	res, err := h.Users.Query(ctx, criteria)
	if err != nil {
		return fail(ctx, req, http.StatusInternalServerError, ErrCodeQueryFailed, MsgQueryFailed)
	}
	return ok(res)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Tags        Users
// @Produce     json
// @Param       id  path  int  true  "User ID"
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id} [delete]
func (h *Handlers) DeleteUser(ctx context.Context, req invoke.Request) invoke.Response {
	id, err := utils.ParseID(req.Param("id"))
	if err != nil {
		return fail(ctx, req, http.StatusBadRequest, ErrCodeBadRequest, "id must be a non-negative integer")
	}

	err = h.Users.Delete(ctx, id)
	switch {
	case err == nil:
		return ok(MessageResponse{Message: fmt.Sprintf("User %d deleted", id)})
	case errors.Is(err, services.ErrUserNotFound):
		return fail(ctx, req, http.StatusNotFound, ErrCodeNotFound, MsgUserNotFound)
	default:
		return fail(ctx, req, http.StatusInternalServerError, ErrCodeDeleteFailed, MsgDeleteFailed)
	}
}

// parseCriteria reads the optional filters. It returns a non-empty message
// for malformed ages.
func parseCriteria(req invoke.Request) (domain.FilterCriteria, string) {
	var f domain.FilterCriteria
	if v, ok := req.QueryString("name"); ok {
		f.Name = &v
	}
	if v, ok := req.QueryString("city"); ok {
		f.City = &v
	}
	var err error
	if f.MinAge, err = req.QueryInt("min_age"); err != nil {
		return f, "min_age must be an integer"
	}
	if f.MaxAge, err = req.QueryInt("max_age"); err != nil {
		return f, "max_age must be an integer"
	}
	return f, ""
}
