// Package invoke normalizes the two ways the API is invoked, a long-running
// HTTP server (gin) and one-shot API Gateway events (AWS Lambda), into one
// runtime-neutral Request/Response model.
//
// Business handlers are written once as Handler values and registered on a
// Router. The router is then either mounted on a gin engine (Mount) or
// dispatched directly from a Lambda event (LambdaHandler). Both runtimes
// serialize responses through Encode, so a given Response produces the same
// bytes in both.
package invoke

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// HeaderRequestID carries the correlation id in both runtimes.
const HeaderRequestID = "X-Request-ID"

// ContentTypeJSON is the content type of every encoded response.
const ContentTypeJSON = "application/json; charset=utf-8"

// Request is the runtime-neutral view of an inbound call.
type Request struct {
	Method     string
	Path       string
	Query      url.Values
	PathParams map[string]string
	Body       []byte
	RequestID  string
}

// Param returns the named path parameter, or "".
func (r Request) Param(name string) string { return r.PathParams[name] }

// QueryString returns the first value of a query parameter and whether it
// was present at all.
func (r Request) QueryString(name string) (string, bool) {
	vs, ok := r.Query[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// QueryInt parses an optional integer query parameter. Absent or empty
// values return (nil, nil).
func (r Request) QueryInt(name string) (*int, error) {
	s, ok := r.QueryString(name)
	if !ok || s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Response is the runtime-neutral result of a Handler. Body is encoded as
// JSON by Encode.
type Response struct {
	StatusCode int
	Body       any
	Headers    map[string]string
}

// Handler is a business operation independent of the invocation runtime.
type Handler func(ctx context.Context, req Request) Response

// JSON builds a Response with the given status and body.
func JSON(status int, body any) Response {
	return Response{StatusCode: status, Body: body}
}

// Encode serializes resp.Body. A nil body encodes as "null". Both runtimes
// write exactly these bytes.
func Encode(resp Response) ([]byte, error) {
	return json.Marshal(resp.Body)
}

// encodeOrInternal encodes resp, replacing it with a bare 500 when the body
// cannot be serialized.
func encodeOrInternal(resp Response) (int, []byte) {
	b, err := Encode(resp)
	if err != nil {
		return http.StatusInternalServerError, []byte(`{"code":"internal_error","message":"internal server error"}`)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	return status, b
}
