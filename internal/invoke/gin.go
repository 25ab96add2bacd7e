package invoke

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ginHandler adapts h to a gin handler. The request context, query, path
// parameters, body and correlation id (as set by the request id middleware)
// are passed through unchanged; the Response is written with Encode. Body
// read failures are rendered with onErr.
func ginHandler(h Handler, onErr ErrorFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := fromGin(c)

		var resp Response
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			resp = onErr(c.Request.Context(), req, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			req.Body = body
			resp = h(c.Request.Context(), req)
		}
		writeGin(c, resp)
	}
}

func fromGin(c *gin.Context) Request {
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	rid := c.Writer.Header().Get(HeaderRequestID)
	if rid == "" {
		rid = c.GetHeader(HeaderRequestID)
	}
	return Request{
		Method:     c.Request.Method,
		Path:       c.Request.URL.Path,
		Query:      c.Request.URL.Query(),
		PathParams: params,
		RequestID:  rid,
	}
}

func writeGin(c *gin.Context, resp Response) {
	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	status, b := encodeOrInternal(resp)
	if status >= http.StatusBadRequest {
		c.Abort()
	}
	c.Data(status, ContentTypeJSON, b)
}
