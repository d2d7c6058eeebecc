package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/wochuna/Sacco/internal/logging"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func callback(sessionID, phone, text string) *http.Request {
	form := url.Values{"sessionId": {sessionID}, "phoneNumber": {phone}, "text": {text}}
	req := httptest.NewRequest(http.MethodPost, "/cb", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return req
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestReplayServesCachedResponse(t *testing.T) {
	client, _ := newRedis(t)
	calls := 0

	app := fiber.New()
	app.Post("/cb", Replay(client, time.Minute, nil, logging.Discard()), func(c *fiber.Ctx) error {
		calls++
		return c.SendString("END done " + strings.Repeat("!", calls))
	})

	_, first := send(t, app, callback("s1", "0712345678", "1*1234*0"))
	_, second := send(t, app, callback("s1", "0712345678", "1*1234*0"))
	require.Equal(t, "END done !", first)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls)

	_, other := send(t, app, callback("s2", "0712345678", "1*1234*0"))
	require.Equal(t, "END done !!", other)
}

func TestReplaySkipsOpeningCallbackAndErrors(t *testing.T) {
	client, mr := newRedis(t)
	calls := 0

	app := fiber.New()
	app.Post("/cb", Replay(client, time.Minute, nil, logging.Discard()), func(c *fiber.Ctx) error {
		calls++
		if c.FormValue("text") == "bad" {
			return c.Status(http.StatusBadRequest).SendString("END Error")
		}
		return c.SendString("CON menu")
	})

	send(t, app, callback("s1", "0712345678", ""))
	send(t, app, callback("s1", "0712345678", ""))
	send(t, app, callback("s1", "0712345678", "bad"))
	send(t, app, callback("s1", "0712345678", "bad"))
	require.Equal(t, 4, calls)
	require.Empty(t, mr.Keys())
}

func TestPhoneRateLimitRedis(t *testing.T) {
	client, mr := newRedis(t)

	app := fiber.New()
	onLimit := func(c *fiber.Ctx) error { return c.SendString("END Too many requests. Please try again later.") }
	app.Post("/cb", PhoneRateLimit(client, 2, time.Minute, onLimit, nil), func(c *fiber.Ctx) error {
		return c.SendString("CON ok")
	})

	for i := 0; i < 2; i++ {
		_, body := send(t, app, callback("s1", "+254712345678", ""))
		require.Equal(t, "CON ok", body)
	}
	status, body := send(t, app, callback("s1", "0712345678", ""))
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "END Too many requests. Please try again later.", body)

	_, body = send(t, app, callback("s2", "0798765432", ""))
	require.Equal(t, "CON ok", body)

	mr.FastForward(2 * time.Minute)
	_, body = send(t, app, callback("s1", "0712345678", ""))
	require.Equal(t, "CON ok", body)
}

func TestPhoneRateLimitInMemoryFallback(t *testing.T) {
	app := fiber.New()
	onLimit := func(c *fiber.Ctx) error { return c.SendString("END limited") }
	app.Post("/cb", PhoneRateLimit(nil, 1, time.Minute, onLimit, nil), func(c *fiber.Ctx) error {
		return c.SendString("CON ok")
	})

	_, body := send(t, app, callback("s1", "0712345678", ""))
	require.Equal(t, "CON ok", body)
	_, body = send(t, app, callback("s1", "0712345678", "1"))
	require.Equal(t, "END limited", body)
}

func TestRequestIDIsEchoed(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID(), Audit(logging.Discard()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "gw-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "gw-123", resp.Header.Get(requestIDHeader))
	require.Equal(t, "gw-123", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestAuditMasksCallerAndTagsReply(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID(), Audit(logger))
	app.Post("/cb", func(c *fiber.Ctx) error { return c.SendString("CON menu") })

	send(t, app, callback("s1", "0712345678", ""))

	out := buf.String()
	require.Contains(t, out, `"msg":"request completed"`)
	require.Contains(t, out, `"session_id":"s1"`)
	require.Contains(t, out, `"reply":"con"`)
	require.Contains(t, out, `"phone":"0712xxxx78"`)
	require.NotContains(t, out, "0712345678")
}
