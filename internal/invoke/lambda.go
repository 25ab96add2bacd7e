package invoke

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LambdaHandler serves API Gateway REST proxy events through a Router.
type LambdaHandler struct {
	router   *Router
	basePath string
	logger   zerolog.Logger
	headers  map[string]string
}

// NewLambdaHandler returns an event handler for r. basePath (for example a
// custom-domain mapping such as "/api") is stripped from incoming paths;
// "" and "/" disable stripping.
func NewLambdaHandler(r *Router, basePath string) *LambdaHandler {
	basePath = strings.TrimSuffix(basePath, "/")
	return &LambdaHandler{router: r, basePath: basePath, logger: log.Logger}
}

// WithLogger replaces the base logger used for per-event loggers.
func (h *LambdaHandler) WithLogger(l zerolog.Logger) *LambdaHandler {
	h.logger = l
	return h
}

// WithHeaders sets headers added to every reply, such as the security
// headers the server runtime attaches through middleware. Handler headers
// win on conflict.
func (h *LambdaHandler) WithHeaders(hdr map[string]string) *LambdaHandler {
	h.headers = hdr
	return h
}

// Handle converts ev into a Request, dispatches it and wraps the Response
// into the gateway reply. Malformed envelopes produce an error Response,
// never an invocation error, so the gateway always gets a proper reply.
func (h *LambdaHandler) Handle(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	req := h.toRequest(ctx, ev)

	lg := h.logger.With().
		Str("request_id", req.RequestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Str("runtime", "lambda").
		Logger()
	ctx = lg.WithContext(ctx)

	var resp Response
	body, err := decodeBody(ev)
	if err != nil {
		resp = h.router.Error(ctx, req, http.StatusBadRequest, "invalid base64 body")
	} else {
		req.Body = body
		resp = h.router.Dispatch(ctx, req)
	}

	status, b := encodeOrInternal(resp)
	headers := make(map[string]string, len(h.headers)+len(resp.Headers)+2)
	for k, v := range h.headers {
		headers[k] = v
	}
	headers["Content-Type"] = ContentTypeJSON
	headers[HeaderRequestID] = req.RequestID
	for k, v := range resp.Headers {
		headers[k] = v
	}

	access := lg.With().Int("status", status).Dur("latency", time.Since(start)).Int("bytes_out", len(b)).Logger()
	switch {
	case status >= 500:
		access.Error().Msg("request")
	case status >= 400:
		access.Warn().Msg("request")
	default:
		access.Info().Msg("request")
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(b),
	}, nil
}

func (h *LambdaHandler) toRequest(ctx context.Context, ev events.APIGatewayProxyRequest) Request {
	path := ev.Path
	if h.basePath != "" && (path == h.basePath || strings.HasPrefix(path, h.basePath+"/")) {
		path = strings.TrimPrefix(path, h.basePath)
	}
	if path == "" {
		path = "/"
	}

	params := make(map[string]string, len(ev.PathParameters))
	for k, v := range ev.PathParameters {
		params[k] = v
	}

	return Request{
		Method:     strings.ToUpper(ev.HTTPMethod),
		Path:       path,
		Query:      queryValues(ev),
		PathParams: params,
		RequestID:  requestID(ctx, ev),
	}
}

// queryValues prefers the multi-value map, which API Gateway fills with
// every repeated parameter, and falls back to the single-value map.
func queryValues(ev events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	for k, vs := range ev.MultiValueQueryStringParameters {
		q[k] = append([]string(nil), vs...)
	}
	for k, v := range ev.QueryStringParameters {
		if _, ok := q[k]; !ok {
			q.Set(k, v)
		}
	}
	return q
}

func decodeBody(ev events.APIGatewayProxyRequest) ([]byte, error) {
	if ev.Body == "" {
		return nil, nil
	}
	if ev.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(ev.Body)
	}
	return []byte(ev.Body), nil
}

// requestID picks the client-supplied X-Request-ID, then the gateway
// request id, then the Lambda invocation id, then a fresh UUID.
func requestID(ctx context.Context, ev events.APIGatewayProxyRequest) string {
	for k, v := range ev.Headers {
		if strings.EqualFold(k, HeaderRequestID) && v != "" {
			return v
		}
	}
	if ev.RequestContext.RequestID != "" {
		return ev.RequestContext.RequestID
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
