// Package services – UserService
//
// This file implements the UserService, which owns the three record
// operations: bulk generation (Populate), filtered lookup with archival
// (Query) and deletion (Delete).
//
// Writes run inside a single transaction so a failed batch never leaves
// partial rows behind. Query results are archived through the Archiver,
// whose outcome is attached to the result but never turns a successful
// query into a failure.
//
// Observability: public methods are OpenTelemetry-instrumented and log
// through the request-scoped zerolog logger carried in ctx.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-user-records/internal/domain"
	"github.com/tbourn/go-user-records/internal/repo"
)

// MaxPopulate is the largest batch Populate accepts.
const MaxPopulate = 100

// UserRepo defines the repository contract required by UserService.
type UserRepo interface {
	// CreateUsers inserts users, writing assigned IDs back into the slice.
	CreateUsers(ctx context.Context, db *gorm.DB, users []domain.User) error

	// QueryUsers returns the users matching the criteria.
	QueryUsers(ctx context.Context, db *gorm.DB, f domain.FilterCriteria) ([]domain.User, error)

	// GetUser fetches a user by id or returns repo.ErrNotFound.
	GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error)

	// DeleteUser removes a user by id or returns repo.ErrNotFound.
	DeleteUser(ctx context.Context, db *gorm.DB, id uint) error
}

// Archiver stores a snapshot of a query and returns a reference to it.
// It must not fail; failures are reported through the returned reference.
type Archiver interface {
	Archive(ctx context.Context, criteria domain.FilterCriteria, results []domain.UserView) string
}

// UserService provides the user record operations.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
	// Archiver receives every query result.
	Archiver Archiver
	// Generator produces synthetic users for Populate.
	Generator Generator
	// Validate checks generated users before insert.
	Validate *validator.Validate

	// Now is the clock for result timestamps.
	Now func() time.Time
}

// NewUserService constructs a UserService with a default validator and clock.
func NewUserService(db *gorm.DB, r UserRepo, a Archiver, g Generator) *UserService {
	return &UserService{
		DB:        db,
		Repo:      r,
		Archiver:  a,
		Generator: g,
		Validate:  validator.New(validator.WithRequiredStructEnabled()),
		Now:       time.Now,
	}
}

// Populate generates and inserts count users (1..MaxPopulate) in one
// transaction and returns the number created. A non-empty unique token is
// embedded in every email as given, whatever characters it holds.
func (s *UserService) Populate(ctx context.Context, count int, unique string) (int, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Populate",
		trace.WithAttributes(attribute.Int("count", count), attribute.Bool("unique", unique != "")),
	)
	defer span.End()

	if count < 1 || count > MaxPopulate {
		return 0, ErrInvalidCount
	}

	// Generated users are checked before the token goes in; the token
	// itself is never validated.
	users := s.Generator.Generate(count)
	for i := range users {
		if err := s.Validate.StructCtx(ctx, users[i]); err != nil {
			span.RecordError(err)
			zerolog.Ctx(ctx).Error().Err(err).Msg("generator produced an invalid user")
			return 0, fmt.Errorf("%w: %v", ErrInvalidUser, err)
		}
	}
	embedToken(users, unique)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Repo.CreateUsers(ctx, tx, users)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "populate failed")
		if repo.IsUniqueViolation(err) {
			err = fmt.Errorf("%w: %v", ErrDuplicateEmail, err)
		}
		zerolog.Ctx(ctx).Error().Err(err).Int("count", count).Msg("populate failed")
		return 0, err
	}

	zerolog.Ctx(ctx).Info().Int("count", len(users)).Msg("users created")
	return len(users), nil
}

// Query returns the users matching criteria and archives the result. The
// archival reference is attached as-is; archival problems never fail the
// query.
func (s *UserService) Query(ctx context.Context, criteria domain.FilterCriteria) (*domain.QueryResult, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Query",
		trace.WithAttributes(
			attribute.Bool("filter.name", criteria.Name != nil),
			attribute.Bool("filter.city", criteria.City != nil),
			attribute.Bool("filter.min_age", criteria.MinAge != nil),
			attribute.Bool("filter.max_age", criteria.MaxAge != nil),
		),
	)
	defer span.End()

	users, err := s.Repo.QueryUsers(ctx, s.DB, criteria)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		zerolog.Ctx(ctx).Error().Err(err).Msg("query users failed")
		return nil, err
	}

	views := domain.ToViews(users)
	ref := s.Archiver.Archive(ctx, criteria, views)
	span.SetAttributes(attribute.Int("result.count", len(views)), attribute.String("archive.ref", ref))

	return &domain.QueryResult{
		Users:     views,
		Count:     len(views),
		S3File:    ref,
		Timestamp: s.Now().UTC(),
	}, nil
}

// Delete removes the user with the given id. It returns ErrUserNotFound
// when no such user exists, including on a repeated delete.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("user.id", int64(id))),
	)
	defer span.End()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Repo.GetUser(ctx, tx, id); err != nil {
			return err
		}
		return s.Repo.DeleteUser(ctx, tx, id)
	})
	switch {
	case err == nil:
		zerolog.Ctx(ctx).Info().Uint("user_id", id).Msg("user deleted")
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrUserNotFound
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		zerolog.Ctx(ctx).Error().Err(err).Uint("user_id", id).Msg("delete user failed")
		return err
	}
}
