// Package archive writes a JSON snapshot of every user query (criteria plus
// results) to an S3-compatible object store.
//
// Archival is best-effort: Archive never returns an error. It always yields a
// reference string, which is either the object key that was written, a
// synthetic reference (degraded mode, see SyntheticPrefix) or an error
// placeholder (see ErrorPrefix) when the write failed.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-user-records/internal/domain"
)

const (
	// SyntheticPrefix marks references returned in degraded mode, where no
	// object was written.
	SyntheticPrefix = "mock-s3-file-"
	// ErrorPrefix marks references returned when the write failed.
	ErrorPrefix = "error-storing-"

	keyPrefix    = "queries/"
	keyTimestamp = "20060102_150405"

	defaultTimeout = 5 * time.Second
)

// ObjectStore is the subset of the S3 API the archiver needs. *s3.Client
// satisfies it.
type ObjectStore interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures an Archiver.
type Options struct {
	Bucket string
	// Region is the bucket's location, sent as the LocationConstraint when
	// the bucket is created outside us-east-1.
	Region string
	// Degraded skips all writes and returns synthetic references.
	Degraded bool
	// CreateBucket creates the bucket when the existence check fails.
	CreateBucket bool
	// Timeout bounds a single write. Zero means 5s.
	Timeout time.Duration

	// Now and Token are test seams; they default to time.Now and ULIDs.
	Now   func() time.Time
	Token func() string
}

// Archiver stores query snapshots. It is safe for concurrent use.
type Archiver struct {
	store ObjectStore
	opts  Options
}

// New builds an Archiver. Outside degraded mode it checks that the bucket
// exists; a failed check is logged and never fatal, because every Archive
// call handles its own write failure.
func New(ctx context.Context, store ObjectStore, opts Options) *Archiver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Token == nil {
		opts.Token = func() string { return ulid.Make().String() }
	}
	a := &Archiver{store: store, opts: opts}
	if !opts.Degraded {
		a.checkBucket(ctx)
	}
	return a
}

func (a *Archiver) checkBucket(ctx context.Context) {
	lg := ctxLogger(ctx).With().Str("bucket", a.opts.Bucket).Logger()
	if a.store == nil {
		lg.Error().Msg("archive: no object store configured")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	_, err := a.store.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.opts.Bucket)})
	if err == nil {
		lg.Debug().Msg("archive: bucket reachable")
		return
	}
	if !a.opts.CreateBucket {
		lg.Error().Err(err).Msg("archive: bucket check failed")
		return
	}
	if _, cerr := a.store.CreateBucket(ctx, createBucketInput(a.opts.Bucket, a.opts.Region)); cerr != nil {
		lg.Error().Err(cerr).Msg("archive: create bucket failed")
		return
	}
	lg.Info().Msg("archive: bucket created")
}

// createBucketInput builds the CreateBucket request. us-east-1 (and an
// unset region) must not carry a LocationConstraint.
func createBucketInput(bucket, region string) *s3.CreateBucketInput {
	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if region != "" && region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	return in
}

// Degraded reports whether writes are skipped.
func (a *Archiver) Degraded() bool { return a.opts.Degraded }

// Archive writes the snapshot of one query and returns its reference.
//
// The write runs detached from ctx cancellation but bounded by the
// configured timeout, so a client disconnect does not abort a write that is
// already under way and a slow store cannot stall the caller for long.
func (a *Archiver) Archive(ctx context.Context, criteria domain.FilterCriteria, results []domain.UserView) string {
	now := a.opts.Now().UTC()
	token := a.opts.Token()
	lg := ctxLogger(ctx)

	if a.opts.Degraded {
		archiveWrites.WithLabelValues(outcomeSkipped).Inc()
		return SyntheticPrefix + token + ".json"
	}

	key := ObjectKey(now, token)
	body, err := json.Marshal(domain.NewArchivalRecord(now, criteria, results))
	if err == nil {
		err = a.put(ctx, key, body)
	}
	if err != nil {
		archiveWrites.WithLabelValues(outcomeFailed).Inc()
		lg.Error().Err(err).Str("bucket", a.opts.Bucket).Str("key", key).Msg("archive: store query result failed")
		return ErrorPrefix + token + ".json"
	}

	archiveWrites.WithLabelValues(outcomeStored).Inc()
	lg.Info().Str("bucket", a.opts.Bucket).Str("key", key).Int("result_count", len(results)).Msg("archive: stored query result")
	return key
}

func (a *Archiver) put(ctx context.Context, key string, body []byte) error {
	if a.store == nil {
		return errNoStore
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.opts.Timeout)
	defer cancel()

	start := time.Now()
	_, err := a.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	archiveLatency.Observe(time.Since(start).Seconds())
	return err
}

// ObjectKey returns queries/<YYYYMMDD_HHMMSS>_<token>.json for t in UTC.
func ObjectKey(t time.Time, token string) string {
	return keyPrefix + t.UTC().Format(keyTimestamp) + "_" + token + ".json"
}

// ctxLogger falls back to the global logger when ctx carries none.
func ctxLogger(ctx context.Context) *zerolog.Logger {
	if lg := zerolog.Ctx(ctx); lg.GetLevel() != zerolog.Disabled {
		return lg
	}
	return &log.Logger
}

// IsSynthetic reports whether ref was produced in degraded mode.
func IsSynthetic(ref string) bool { return strings.HasPrefix(ref, SyntheticPrefix) }

// IsError reports whether ref is a failed-write placeholder.
func IsError(ref string) bool { return strings.HasPrefix(ref, ErrorPrefix) }
