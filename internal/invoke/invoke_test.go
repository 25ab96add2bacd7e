package invoke

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// echo returns everything the handler saw, so tests can compare runtimes.
func echo(_ context.Context, req Request) Response {
	return JSON(http.StatusOK, map[string]any{
		"method": req.Method,
		"path":   req.Path,
		"query":  req.Query,
		"params": req.PathParams,
		"body":   string(req.Body),
		"rid":    req.RequestID,
	})
}

func envelope(_ context.Context, req Request, status int, msg string) Response {
	return JSON(status, map[string]string{"request_id": req.RequestID, "message": msg})
}

func testRouter() *Router {
	r := NewRouter(envelope)
	r.Handle(http.MethodGet, "/healthcheck", echo)
	r.Handle(http.MethodGet, "/users", echo)
	r.Handle(http.MethodDelete, "/users/{id}", echo)
	r.Handle(http.MethodPost, "/populate", echo)
	return r
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern, path string
		ok            bool
		params        map[string]string
	}{
		{"/users", "/users", true, nil},
		{"/users", "/users/", true, nil},
		{"/users/{id}", "/users/42", true, map[string]string{"id": "42"}},
		{"/users/{id}", "/users/", false, nil},
		{"/users/{id}", "/users/1/2", false, nil},
		{"/healthcheck", "/health", false, nil},
		{"/", "", true, nil},
	}
	for _, tc := range cases {
		params, ok := matchPattern(tc.pattern, tc.path)
		assert.Equal(t, tc.ok, ok, "%s vs %s", tc.pattern, tc.path)
		assert.Equal(t, tc.params, params, "%s vs %s", tc.pattern, tc.path)
	}
}

func TestGinPattern(t *testing.T) {
	assert.Equal(t, "/users/:id", ginPattern("/users/{id}"))
	assert.Equal(t, "/healthcheck", ginPattern("/healthcheck"))
}

func TestDispatch_RoutesAndFallbacks(t *testing.T) {
	r := testRouter()
	ctx := context.Background()

	resp := r.Dispatch(ctx, Request{Method: "delete", Path: "/users/7", PathParams: map[string]string{"proxy": "users/7"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := resp.Body.(map[string]any)
	assert.Equal(t, map[string]string{"proxy": "users/7", "id": "7"}, body["params"])

	resp = r.Dispatch(ctx, Request{Method: http.MethodPost, Path: "/users/7", RequestID: "r1"})
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, map[string]string{"request_id": "r1", "message": "method not allowed"}, resp.Body)

	resp = r.Dispatch(ctx, Request{Method: http.MethodGet, Path: "/nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestHelpers(t *testing.T) {
	req := Request{Query: map[string][]string{"a": {"1", "2"}, "empty": {""}, "bad": {"x"}}}

	v, ok := req.QueryString("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = req.QueryString("missing")
	assert.False(t, ok)

	n, err := req.QueryInt("a")
	require.NoError(t, err)
	assert.Equal(t, 1, *n)
	n, err = req.QueryInt("empty")
	assert.NoError(t, err)
	assert.Nil(t, n)
	_, err = req.QueryInt("bad")
	assert.Error(t, err)
}

func TestEncode_UnencodableBodyBecomes500(t *testing.T) {
	status, b := encodeOrInternal(JSON(http.StatusOK, map[string]any{"ch": make(chan int)}))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(b), "internal_error")

	status, b = encodeOrInternal(Response{Body: []int{}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", string(b))
}

func TestGin_MountAndFallbacks(t *testing.T) {
	e := gin.New()
	r := testRouter()
	r.Mount(e)
	r.MountFallbacks(e)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/users/9?x=1&x=2", nil)
	req.Header.Set(HeaderRequestID, "rid-1")
	e.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentTypeJSON, w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"method":"DELETE","path":"/users/9","query":{"x":["1","2"]},"params":{"id":"9"},"body":"","rid":"rid-1"}`, w.Body.String())

	w = httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"request_id":"","message":"route not found"}`, w.Body.String())

	w = httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/users", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGin_BodyTooLarge(t *testing.T) {
	e := gin.New()
	e.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 4)
		c.Next()
	})
	r := testRouter()
	r.Mount(e)

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/populate", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "request body too large")
}

func TestLambda_EnvelopeMapping(t *testing.T) {
	h := NewLambdaHandler(testRouter(), "/api/").WithLogger(zerolog.Nop())

	ev := events.APIGatewayProxyRequest{
		HTTPMethod:                      "post",
		Path:                            "/api/populate",
		QueryStringParameters:           map[string]string{"count": "5", "unique": "u"},
		MultiValueQueryStringParameters: map[string][]string{"count": {"5", "6"}},
		Body:                            base64.StdEncoding.EncodeToString([]byte(`{"k":1}`)),
		IsBase64Encoded:                 true,
		Headers:                         map[string]string{"x-request-id": "client-rid"},
		RequestContext:                  events.APIGatewayProxyRequestContext{RequestID: "gw-rid"},
	}
	out, err := h.Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, out.StatusCode)
	assert.Equal(t, ContentTypeJSON, out.Headers["Content-Type"])
	assert.Equal(t, "client-rid", out.Headers[HeaderRequestID])
	assert.JSONEq(t, `{"method":"POST","path":"/populate","query":{"count":["5","6"],"unique":["u"]},"params":{},"body":"{\"k\":1}","rid":"client-rid"}`, out.Body)
}

func TestLambda_BadBase64IsBadRequestNotError(t *testing.T) {
	h := NewLambdaHandler(testRouter(), "").WithLogger(zerolog.Nop())
	out, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost, Path: "/populate", Body: "!!!", IsBase64Encoded: true,
		RequestContext: events.APIGatewayProxyRequestContext{RequestID: "gw"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, out.StatusCode)
	assert.JSONEq(t, `{"request_id":"gw","message":"invalid base64 body"}`, out.Body)
}

func TestLambda_DefaultHeaders(t *testing.T) {
	h := NewLambdaHandler(testRouter(), "").
		WithLogger(zerolog.Nop()).
		WithHeaders(map[string]string{"X-Frame-Options": "DENY", "Content-Type": "text/plain"})
	out, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/healthcheck"})
	require.NoError(t, err)
	assert.Equal(t, "DENY", out.Headers["X-Frame-Options"])
	assert.Equal(t, ContentTypeJSON, out.Headers["Content-Type"])
	assert.NotEmpty(t, out.Headers[HeaderRequestID])
}

func TestLambda_BasePathOnlyStripsWholeSegment(t *testing.T) {
	h := NewLambdaHandler(testRouter(), "/api")
	assert.Equal(t, "/users", h.toRequest(context.Background(), events.APIGatewayProxyRequest{Path: "/api/users"}).Path)
	assert.Equal(t, "/", h.toRequest(context.Background(), events.APIGatewayProxyRequest{Path: "/api"}).Path)
	assert.Equal(t, "/apiary", h.toRequest(context.Background(), events.APIGatewayProxyRequest{Path: "/apiary"}).Path)
}

func TestLambda_RequestIDFallbacks(t *testing.T) {
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "aws-rid"})
	assert.Equal(t, "aws-rid", requestID(ctx, events.APIGatewayProxyRequest{}))
	assert.Equal(t, "gw", requestID(ctx, events.APIGatewayProxyRequest{RequestContext: events.APIGatewayProxyRequestContext{RequestID: "gw"}}))
	assert.NotEmpty(t, requestID(context.Background(), events.APIGatewayProxyRequest{}))
}

func TestLambda_HandlerSeesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := NewRouter(nil)
	r.Handle(http.MethodGet, "/log", func(ctx context.Context, _ Request) Response {
		zerolog.Ctx(ctx).Info().Msg("inside")
		return JSON(http.StatusOK, nil)
	})
	h := NewLambdaHandler(r, "").WithLogger(zerolog.New(&buf))

	out, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet, Path: "/log",
		RequestContext: events.APIGatewayProxyRequestContext{RequestID: "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "null", out.Body)

	logs, _ := io.ReadAll(&buf)
	assert.Contains(t, string(logs), `"message":"inside"`)
	assert.Contains(t, string(logs), `"request_id":"abc"`)
	assert.Contains(t, string(logs), `"status":200`)
}

func TestRuntimes_ProduceIdenticalPayloads(t *testing.T) {
	r := testRouter()
	e := gin.New()
	r.Mount(e)
	r.MountFallbacks(e)
	h := NewLambdaHandler(r, "").WithLogger(zerolog.Nop())

	for _, tc := range []struct{ method, path, query string }{
		{http.MethodGet, "/users", "name=ann"},
		{http.MethodDelete, "/users/3", ""},
		{http.MethodGet, "/nowhere", ""},
	} {
		target := tc.path
		if tc.query != "" {
			target += "?" + tc.query
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, target, nil)
		req.Header.Set(HeaderRequestID, "same")
		e.ServeHTTP(w, req)

		ev := events.APIGatewayProxyRequest{
			HTTPMethod: tc.method, Path: tc.path,
			Headers: map[string]string{HeaderRequestID: "same"},
		}
		if tc.query != "" {
			k, v, _ := strings.Cut(tc.query, "=")
			ev.QueryStringParameters = map[string]string{k: v}
		}
		out, err := h.Handle(context.Background(), ev)
		require.NoError(t, err)

		assert.Equal(t, w.Code, out.StatusCode, tc.path)
		assert.Equal(t, w.Body.String(), out.Body, tc.path)
	}
}
