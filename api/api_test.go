package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/raushankrgupta/maternity-matters/auth"
	"github.com/raushankrgupta/maternity-matters/chat"
	"github.com/raushankrgupta/maternity-matters/complaints"
	"github.com/raushankrgupta/maternity-matters/models"
	"github.com/raushankrgupta/maternity-matters/notify"
	"github.com/raushankrgupta/maternity-matters/store/memstore"
	"github.com/raushankrgupta/maternity-matters/utils"
)

const testOrigin = "http://localhost:5173"

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]{64})`)

type stubGenerator struct {
	reply string
	err   error
}

func (g stubGenerator) GenerateReply(context.Context, string, []utils.ChatTurn, string) (string, error) {
	return g.reply, g.err
}

type stubVerifier struct{}

func (stubVerifier) Verify(context.Context, string) (utils.GoogleIdentity, error) {
	return utils.GoogleIdentity{}, errors.New("google sign-in disabled in tests")
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	mail    *notify.RecordingSender
	tokens  *utils.TokenIssuer
	users   *memstore.Users
}

func newTestServer(t *testing.T, gen chat.Generator, opts RouterOptions) *testServer {
	t.Helper()
	mail := &notify.RecordingSender{}
	notifier, err := notify.New(mail, testOrigin)
	require.NoError(t, err)
	tokens, err := utils.NewTokenIssuer("test-secret", 24*time.Hour)
	require.NoError(t, err)
	prompts, err := chat.LoadPrompts()
	require.NoError(t, err)
	if gen == nil {
		gen = stubGenerator{reply: "Hello"}
	}

	users := memstore.NewUsers()
	authSvc := auth.NewService(users, memstore.NewPasswordResets(), notifier, tokens, stubVerifier{},
		auth.WithBcryptCost(bcrypt.MinCost))
	complaintSvc := complaints.NewService(memstore.NewComplaints(), notifier)
	h := NewHandler(authSvc, complaintSvc, chat.NewAssistant(gen, prompts), tokens)

	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{testOrigin}
	}
	return &testServer{t: t, handler: NewRouter(h, opts), mail: mail, tokens: tokens, users: users}
}

func (s *testServer) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) lastToken() string {
	s.t.Helper()
	sent := s.mail.Sent()
	require.NotEmpty(s.t, sent)
	m := tokenInLink.FindStringSubmatch(sent[len(sent)-1].Text)
	require.Len(s.t, m, 2)
	return m[1]
}

// signup registers, activates and logs in, returning the session token.
func (s *testServer) signup(email string) string {
	s.t.Helper()
	rr := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(s.t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = s.do(http.MethodPost, "/api/auth/activate-account", "", map[string]string{"token": s.lastToken()})
	require.Equal(s.t, http.StatusOK, rr.Code, rr.Body.String())
	rr = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(s.t, http.StatusOK, rr.Code, rr.Body.String())

	var session auth.Session
	require.NoError(s.t, json.Unmarshal(rr.Body.Bytes(), &session))
	return session.Token
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type errorsBody struct {
	Errors []struct {
		Field string `json:"field"`
		Msg   string `json:"msg"`
	} `json:"errors"`
}

type errorBody struct {
	Error string `json:"error"`
}

func complaintBody() map[string]any {
	return map[string]any{
		"complainantName":           "Asha Kumari",
		"complainantContact":        "9876543210",
		"complainantEmail":          "asha.k@example.com",
		"companyName":               "Acme Textiles",
		"companyAddress":            "12 Mill Road, Mumbai",
		"companyPincode":            "400001",
		"dateOfJoining":             "2021-06-01",
		"numberOfSurvivingChildren": 0,
		"issuesFaced":               []string{"denial_of_leave"},
		"consentToShare":            true,
	}
}

func TestFileComplaintEndToEnd(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{})
	token := s.signup("asha@example.com")

	claims, err := s.tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", claims.Email)

	rr := s.do(http.MethodPost, "/api/complaints", token, complaintBody())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	res := decode[complaints.CreateResult](t, rr)
	assert.Equal(t, complaints.MsgCreated, res.Message)
	assert.Equal(t, models.StatusSubmitted, res.Complaint.Status)
	assert.Equal(t, res.ComplaintID, res.Complaint.ID.Hex())
	assert.Equal(t, claims.UserID, res.Complaint.UserID.Hex())

	sent := s.mail.Sent()
	last := sent[len(sent)-1]
	assert.Equal(t, "asha.k@example.com", last.ToEmail)
	assert.Equal(t, "We Received Your Complaint - Maternity Matters", last.Subject)

	rr = s.do(http.MethodGet, "/api/complaints", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]models.Complaint](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, res.ComplaintID, list[0].ID.Hex())
}

func TestComplaintValidationErrors(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{})
	token := s.signup("asha@example.com")

	body := complaintBody()
	body["consentToShare"] = false
	body["numberOfSurvivingChildren"] = -1
	rr := s.do(http.MethodPost, "/api/complaints", token, body)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	got := decode[errorsBody](t, rr)
	fields := map[string]string{}
	for _, e := range got.Errors {
		fields[e.Field] = e.Msg
	}
	assert.Equal(t, "You must consent to share your information.", fields["consentToShare"])
	assert.Contains(t, fields, "numberOfSurvivingChildren")

	rr = s.do(http.MethodGet, "/api/complaints", token, nil)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestComplaintOwnership(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{})
	owner := s.signup("asha@example.com")
	other := s.signup("priya@example.com")

	rr := s.do(http.MethodPost, "/api/complaints", owner, complaintBody())
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[complaints.CreateResult](t, rr).ComplaintID

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rr = s.do(method, "/api/complaints/"+id, other, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, method)
		assert.NotContains(t, rr.Body.String(), "Acme")
	}
	rr = s.do(http.MethodPut, "/api/complaints/"+id, other, map[string]string{"companyName": "Hijacked"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(http.MethodGet, "/api/complaints/"+id, owner, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Acme Textiles", decode[models.Complaint](t, rr).CompanyName)

	rr = s.do(http.MethodGet, "/api/complaints/not-an-id", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, complaints.MsgInvalidID, decode[errorsBody](t, rr).Errors[0].Msg)
}

func TestUpdateComplaintRejectsStatus(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{})
	token := s.signup("asha@example.com")
	rr := s.do(http.MethodPost, "/api/complaints", token, complaintBody())
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[complaints.CreateResult](t, rr).ComplaintID

	rr = s.do(http.MethodPut, "/api/complaints/"+id, token, map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "status", decode[errorsBody](t, rr).Errors[0].Field)

	rr = s.do(http.MethodPut, "/api/complaints/"+id, token, map[string]string{"companyName": "Acme Textiles Ltd"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[complaints.UpdateResult](t, rr)
	assert.Equal(t, "Acme Textiles Ltd", updated.Complaint.CompanyName)
	assert.Equal(t, models.StatusSubmitted, updated.Complaint.Status)

	rr = s.do(http.MethodDelete, "/api/complaints/"+id, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, complaints.MsgDeleted, decode[messageResponse](t, rr).Message)
}

func TestRequireAuthMessages(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{})
	otherIssuer, err := utils.NewTokenIssuer("another-secret", time.Hour)
	require.NoError(t, err)
	forged, err := otherIssuer.GenerateToken("64b7f0c2a1b2c3d4e5f60718", "a@b.in")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", MsgAuthHeaderMissing},
		{"wrong scheme", "Basic dXNlcjpwYXNz", MsgAuthHeaderMissing},
		{"bearer without token", "Bearer ", MsgNoToken},
		{"bearer without separator", "Bearer", MsgAuthHeaderMissing},
		{"lowercase scheme", "bearer abc", MsgAuthHeaderMissing},
		{"garbage token", "Bearer not.a.jwt", MsgTokenInvalid},
		{"wrong secret", "Bearer " + forged, MsgTokenInvalid},
		{"expired", "Bearer " + expiredToken(t), MsgTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/complaints", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			s.handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, tt.want, decode[errorBody](t, rr).Error)
		})
	}
}

// expiredToken signs a token with the server secret whose expiry has passed.
func expiredToken(t *testing.T) string {
	t.Helper()
	past := time.Now().Add(-time.Hour)
	claims := utils.Claims{
		UserID: "64b7f0c2a1b2c3d4e5f60718",
		Email:  "a@b.in",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestAuthErrorShapes(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{})

	rr := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bad", "password": "123"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Len(t, decode[errorsBody](t, rr).Errors, 2)
	assert.Equal(t, 0, s.users.Len())

	rr = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "asha@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "asha@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, auth.MsgNotActivated, decode[errorBody](t, rr).Error)

	rr = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "asha@example.com", "password": "secret1"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, auth.MsgInactiveExists, decode[errorsBody](t, rr).Errors[0].Msg)

	rr = s.do(http.MethodPost, "/api/auth/activate-account", "", map[string]string{"token": "nope"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, auth.MsgActivationInvalid, decode[errorBody](t, rr).Error)

	rr = s.do(http.MethodPost, "/api/auth/login", "", `{"email": `)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{})
	s.signup("asha@example.com")

	for _, email := range []string{"asha@example.com", "nobody@example.com"} {
		rr := s.do(http.MethodPost, "/api/auth/request-reset", "", map[string]string{"email": email})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, auth.MsgResetRequested, decode[messageResponse](t, rr).Message)
	}

	// The unknown address sent nothing, so the last email holds the reset link.
	token := s.lastToken()
	body := map[string]string{"token": token, "newPassword": "newsecret"}
	rr := s.do(http.MethodPost, "/api/auth/reset-password", "", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/api/auth/reset-password", "", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, auth.MsgResetInvalid, decode[errorBody](t, rr).Error)

	rr = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "asha@example.com", "password": "newsecret"})
	require.Equal(t, http.StatusOK, rr.Code)
	session := decode[auth.Session](t, rr)

	rr = s.do(http.MethodGet, "/api/auth/me", session.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, auth.Profile{UserID: session.UserID, Email: "asha@example.com"}, decode[auth.Profile](t, rr))
}

func TestChat(t *testing.T) {
	s := newTestServer(t, stubGenerator{reply: "26 weeks."}, RouterOptions{})
	rr := s.do(http.MethodPost, "/api/ai/chat", "", map[string]string{"message": "How long is maternity leave?"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "26 weeks.", decode[chat.Reply](t, rr).Reply)

	rr = s.do(http.MethodPost, "/api/ai/chat", "", map[string]string{"message": ""})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, chat.MsgEmpty, decode[errorsBody](t, rr).Errors[0].Msg)

	failing := newTestServer(t, stubGenerator{err: errors.New("quota")}, RouterOptions{})
	rr = failing.do(http.MethodPost, "/api/ai/chat", "", map[string]string{"message": "hi"})
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, chat.MsgFailure, decode[errorBody](t, rr).Error)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/ai/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, MsgOriginNotAllowed, decode[errorBody](t, rr).Error)

	req = httptest.NewRequest(http.MethodPost, "/api/ai/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Origin", testOrigin)
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, testOrigin, rr.Header().Get("Access-Control-Allow-Origin"))

	rr = s.do(http.MethodPost, "/api/ai/chat", "", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusOK, rr.Code, "requests without Origin are allowed")
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{RateLimitRequests: 2, RateLimitWindow: time.Minute})

	for i := 0; i < 2; i++ {
		rr := s.do(http.MethodPost, "/api/ai/chat", "", map[string]string{"message": "hi"})
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := s.do(http.MethodPost, "/api/ai/chat", "", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, MsgTooManyRequests, decode[errorBody](t, rr).Error)

	// Only /api is limited.
	rr = s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func chatFrom(s *testServer, remoteAddr string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/ai/chat", strings.NewReader(`{"message":"hi"}`))
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr.Code
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{RateLimitRequests: 2, RateLimitWindow: time.Minute})

	var codes []int
	for i := 0; i < 5; i++ {
		ip := fmt.Sprintf("10.0.0.%d", i)
		codes = append(codes, chatFrom(s, "203.0.113.7:4444", map[string]string{
			"X-Forwarded-For": ip,
			"X-Real-IP":       ip,
			"True-Client-IP":  ip,
		}))
	}
	assert.Equal(t, []int{200, 200, 429, 429, 429}, codes)

	assert.Equal(t, http.StatusOK, chatFrom(s, "198.51.100.9:5555", nil), "other sockets keep their own quota")
}

func TestRateLimitTrustedProxyHeader(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{
		RateLimitRequests:  1,
		RateLimitWindow:    time.Minute,
		TrustedProxyHeader: "X-Forwarded-For",
	})
	proxy := "10.1.0.1:8080"

	assert.Equal(t, http.StatusOK, chatFrom(s, proxy, map[string]string{"X-Forwarded-For": "198.51.100.1"}))
	assert.Equal(t, http.StatusOK, chatFrom(s, proxy, map[string]string{"X-Forwarded-For": "198.51.100.2"}))
	// The client can prepend entries but the proxy's appended address decides.
	assert.Equal(t, http.StatusTooManyRequests,
		chatFrom(s, proxy, map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.1"}))
}

func TestFixedWindowCounter(t *testing.T) {
	c := newFixedWindowCounter(time.Minute)
	w0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	w1 := w0.Add(time.Minute)

	require.NoError(t, c.IncrementBy("client", w0, 3))
	curr, prev, err := c.Get("client", w0, w0.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, curr)
	assert.Zero(t, prev)

	curr, prev, err = c.Get("client", w1, w0)
	require.NoError(t, err)
	assert.Zero(t, curr)
	assert.Zero(t, prev, "the previous window does not count against the new one")
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, nil, RouterOptions{})

	rr := s.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, MsgAlive, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	rr = s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "ok", rr.Body.String())

	rr = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStaticFrontend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<div id=root></div>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))
	s := newTestServer(t, nil, RouterOptions{StaticDir: dir})

	rr := s.do(http.MethodGet, "/assets/app.js", "", nil)
	assert.Equal(t, "console.log(1)", rr.Body.String())

	rr = s.do(http.MethodGet, "/activate-account?token=abc", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "id=root")

	rr = s.do(http.MethodGet, "/../../etc/passwd", "", nil)
	assert.NotContains(t, rr.Body.String(), "root:")
}
