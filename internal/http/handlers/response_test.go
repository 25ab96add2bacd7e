package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-user-records/internal/invoke"
)

func Test_fail_500_LogsAndBody(t *testing.T) {
	// capture logs from the request-scoped logger
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	resp := fail(ctx, invoke.Request{RequestID: "rid-500"}, http.StatusInternalServerError, ErrCodeInternal, "kaboom")

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	er, ok := resp.Body.(ErrorResponse)
	if !ok {
		t.Fatalf("body type %T", resp.Body)
	}
	if er.RequestID != "rid-500" || er.Code != ErrCodeInternal || er.Message != "kaboom" {
		t.Fatalf("unexpected body: %+v", er)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func Test_fail_4xx_DoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	fail(ctx, invoke.Request{}, http.StatusNotFound, ErrCodeNotFound, "nope")
	if buf.Len() != 0 {
		t.Fatalf("4xx should not be logged by fail: %s", buf.String())
	}
}

func Test_Fail_DerivesCode(t *testing.T) {
	cases := map[int]string{
		http.StatusBadRequest:            ErrCodeBadRequest,
		http.StatusNotFound:              ErrCodeNotFound,
		http.StatusMethodNotAllowed:      ErrCodeMethodNotAllowed,
		http.StatusRequestEntityTooLarge: ErrCodePayloadTooLarge,
		http.StatusTooManyRequests:       ErrCodeRateLimited,
		http.StatusBadGateway:            ErrCodeInternal,
		http.StatusConflict:              ErrCodeBadRequest,
	}
	for status, want := range cases {
		resp := Fail(context.Background(), invoke.Request{RequestID: "r"}, status, "m")
		er := resp.Body.(ErrorResponse)
		if resp.StatusCode != status || er.Code != want || er.RequestID != "r" {
			t.Fatalf("Fail(%d) = %d %+v; want code %s", status, resp.StatusCode, er, want)
		}
	}
}

func Test_ok_EncodesBody(t *testing.T) {
	b, err := invoke.Encode(ok(MessageResponse{Message: "Created 1 users"}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != `{"message":"Created 1 users"}` {
		t.Fatalf("unexpected body %s", b)
	}
}
