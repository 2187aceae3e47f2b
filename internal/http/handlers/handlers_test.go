package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-subtext-backend/internal/config"
	"github.com/tbourn/go-subtext-backend/internal/domain"
	"github.com/tbourn/go-subtext-backend/internal/gemini"
	"github.com/tbourn/go-subtext-backend/internal/gencache"
	"github.com/tbourn/go-subtext-backend/internal/http/middleware"
	"github.com/tbourn/go-subtext-backend/internal/policy"
	"github.com/tbourn/go-subtext-backend/internal/ratelimit"
	"github.com/tbourn/go-subtext-backend/internal/services"
)

// ---------- fakes ----------

type fakeAuth struct {
	dec   ratelimit.Decision
	err   error
	calls int
	last  string
}

func (f *fakeAuth) Authenticate(_ context.Context, email string) (ratelimit.Decision, error) {
	f.calls++
	f.last = email
	return f.dec, f.err
}

type fakeTranslate struct {
	out  services.TranslateOutput
	err  error
	last services.TranslateInput
}

func (f *fakeTranslate) Translate(_ context.Context, in services.TranslateInput) (services.TranslateOutput, error) {
	f.last = in
	return f.out, f.err
}

type fakeResults struct {
	saveOut  services.SaveOutput
	saveErr  error
	lastSave services.SaveInput

	rec    domain.StoredResult
	getErr error
	lastID string

	health services.HealthStatus
}

func (f *fakeResults) Save(_ context.Context, in services.SaveInput) (services.SaveOutput, error) {
	f.lastSave = in
	return f.saveOut, f.saveErr
}

func (f *fakeResults) Get(_ context.Context, id string) (domain.StoredResult, error) {
	f.lastID = id
	return f.rec, f.getErr
}

func (f *fakeResults) Health(context.Context) services.HealthStatus { return f.health }

// ---------- helpers ----------

func newTestRouter(h *Handlers, mws ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(mws...)
	r.GET("/health", h.Health)
	r.POST("/auth", h.Auth)
	r.POST("/translate", h.Translate)
	r.POST("/save-result", h.SaveResult)
	r.GET("/get-result/:id", h.GetResult)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("invalid error json: %v body=%s", err, w.Body.String())
	}
	if er.RequestID == "" {
		t.Fatalf("error envelope missing request_id: %s", w.Body.String())
	}
	return er
}

// ---------- auth ----------

func TestAuth(t *testing.T) {
	storeErr := fmt.Errorf("%w: get: connection refused", ratelimit.ErrStoreUnavailable)

	tests := []struct {
		name       string
		body       string
		auth       *fakeAuth
		wantStatus int
		wantCode   string
		wantCalls  int
	}{
		{"allowed", `{"email":"a@gmail.com"}`, &fakeAuth{dec: ratelimit.Decision{Allowed: true}}, http.StatusOK, "", 1},
		{"not a string", `{"email":42}`, &fakeAuth{}, http.StatusBadRequest, ErrCodeInvalidInput, 0},
		{"domain refused", `{"email":"a@yahoo.com"}`, &fakeAuth{err: services.ErrEmailNotAllowed}, http.StatusBadRequest, ErrCodeEmailNotAllowed, 1},
		{"store down", `{"email":"a@gmail.com"}`, &fakeAuth{err: storeErr}, http.StatusInternalServerError, ErrCodeAuthStore, 1},
		{"unexpected", `{"email":"a@gmail.com"}`, &fakeAuth{err: errors.New("boom")}, http.StatusInternalServerError, ErrCodeInternal, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(New(tt.auth, &fakeTranslate{}, &fakeResults{}))
			w := doJSON(t, r, http.MethodPost, "/auth", tt.body, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status=%d want %d body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.auth.calls != tt.wantCalls {
				t.Fatalf("service calls=%d want %d", tt.auth.calls, tt.wantCalls)
			}
			if tt.wantCode == "" {
				var resp AuthResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || !resp.OK {
					t.Fatalf("expected {ok:true}, got %s", w.Body.String())
				}
				return
			}
			if er := decodeErr(t, w); er.Code != tt.wantCode {
				t.Fatalf("code=%q want %q", er.Code, tt.wantCode)
			}
		})
	}
}

func TestAuth_BlockedSetsRetryAfter(t *testing.T) {
	auth := &fakeAuth{dec: ratelimit.Decision{Allowed: false, RetryAfter: 1799500 * time.Millisecond}}
	r := newTestRouter(New(auth, &fakeTranslate{}, &fakeResults{}))

	w := doJSON(t, r, http.MethodPost, "/auth", `{"email":"a@naver.com"}`, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1800" {
		t.Fatalf("Retry-After=%q", got)
	}
	er := decodeErr(t, w)
	if er.Code != ErrCodeTooManyAttempts || er.RetryAfterSeconds != 1800 {
		t.Fatalf("unexpected body: %+v", er)
	}
}

func TestAuth_StatusEcho(t *testing.T) {
	auth := &fakeAuth{dec: ratelimit.Decision{Allowed: true}}
	r := newTestRouter(New(auth, &fakeTranslate{}, &fakeResults{}), StatusEcho())

	w := doJSON(t, r, http.MethodPost, "/auth", `{"email":"a@daum.net"}`, nil)
	var resp AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !resp.OK || resp.Status != http.StatusOK {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

// ---------- translate ----------

func TestTranslate_RequestShapes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       services.TranslateInput
	}{
		{"three fields", `{"sender":"Kim","receiver":"Lee","body":"hello"}`, http.StatusOK,
			services.TranslateInput{Sender: "Kim", Receiver: "Lee", Body: "hello"}},
		{"empty strings accepted", `{"sender":"","receiver":"","body":""}`, http.StatusOK,
			services.TranslateInput{}},
		{"single text", `{"text":"hello"}`, http.StatusOK,
			services.TranslateInput{Single: true, Text: "hello"}},
		{"missing receiver", `{"sender":"Kim","body":"hello"}`, http.StatusBadRequest, services.TranslateInput{}},
		{"body not a string", `{"sender":"Kim","receiver":"Lee","body":5}`, http.StatusBadRequest, services.TranslateInput{}},
		{"empty object", `{}`, http.StatusBadRequest, services.TranslateInput{}},
		{"not json", `hello`, http.StatusBadRequest, services.TranslateInput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTranslate{out: services.TranslateOutput{Text: "rewritten"}}
			r := newTestRouter(New(&fakeAuth{}, tr, &fakeResults{}))
			w := doJSON(t, r, http.MethodPost, "/translate", tt.body, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status=%d want %d body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if er := decodeErr(t, w); er.Code != ErrCodeInvalidInput {
					t.Fatalf("code=%q", er.Code)
				}
				return
			}
			if tr.last != tt.want {
				t.Fatalf("service input=%+v want %+v", tr.last, tt.want)
			}
			var resp TranslateResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json: %v", err)
			}
			if resp.Result != "rewritten" || resp.Cached {
				t.Fatalf("unexpected body: %s", w.Body.String())
			}
		})
	}
}

func TestTranslate_CachedFlag(t *testing.T) {
	tr := &fakeTranslate{out: services.TranslateOutput{Text: "again", Cached: true}}
	r := newTestRouter(New(&fakeAuth{}, tr, &fakeResults{}))

	w := doJSON(t, r, http.MethodPost, "/translate", `{"sender":"a","receiver":"b","body":"c"}`, nil)
	var resp TranslateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !resp.Cached || resp.Result != "again" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestTranslate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{"phone number", &policy.Rejection{Kind: policy.KindPersonalInfo, Message: "no phone numbers"},
			http.StatusBadRequest, ErrCodeContentRejected, policy.KindPersonalInfo},
		{"too long", &policy.Rejection{Kind: policy.KindTooLong, Message: "too long"},
			http.StatusBadRequest, ErrCodeContentRejected, policy.KindTooLong},
		{"quota", services.ErrQuotaExceeded, http.StatusTooManyRequests, ErrCodeQuotaExceeded, domain.ReasonQuota},
		{"safety", services.ErrSafetyBlocked, http.StatusBadRequest, ErrCodeSafetyBlocked, domain.ReasonSafetyFilter},
		{"empty", services.ErrEmptyResult, http.StatusInternalServerError, ErrCodeEmptyResult, ""},
		{"missing key", fmt.Errorf("%w: %s", services.ErrGenerationFailed, domain.ReasonNoAPIKey),
			http.StatusInternalServerError, ErrCodeGenerationFailed, domain.ReasonNoAPIKey},
		{"upstream", fmt.Errorf("%w: %s", services.ErrGenerationFailed, domain.ReasonUpstream),
			http.StatusInternalServerError, ErrCodeGenerationFailed, domain.ReasonUpstream},
		{"raw detail is not forwarded", fmt.Errorf("%w: %s", services.ErrGenerationFailed, "dial tcp 10.0.0.1:443: refused"),
			http.StatusInternalServerError, ErrCodeGenerationFailed, domain.ReasonUpstream},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(New(&fakeAuth{}, &fakeTranslate{err: tt.err}, &fakeResults{}))
			w := doJSON(t, r, http.MethodPost, "/translate", `{"sender":"a","receiver":"b","body":"c"}`, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status=%d want %d", w.Code, tt.wantStatus)
			}
			er := decodeErr(t, w)
			if er.Code != tt.wantCode || er.Reason != tt.wantReason {
				t.Fatalf("got code=%q reason=%q, want %q %q", er.Code, er.Reason, tt.wantCode, tt.wantReason)
			}
			if er.Message == "" {
				t.Fatalf("error message missing")
			}
		})
	}
}

func TestTranslate_UnreachableProviderDoesNotLeakKey(t *testing.T) {
	const key = "SUPERSECRETKEY"
	var logs bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&logs)

	gen := gemini.New(config.GeminiConfig{APIKey: key, BaseURL: "http://127.0.0.1:1/v1beta", Model: "m"}, log.Logger)
	svc := &services.TranslateService{Cache: gencache.Disabled{}, Generator: gen, MaxTextRunes: 5000, MaxBodyRunes: 5000}
	r := newTestRouter(New(&fakeAuth{}, svc, &fakeResults{}))

	w := doJSON(t, r, http.MethodPost, "/translate", `{"sender":"Kim","receiver":"Lee","body":"see you at 3"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	er := decodeErr(t, w)
	if er.Code != ErrCodeGenerationFailed || er.Reason != domain.ReasonUpstream {
		t.Fatalf("unexpected envelope %+v", er)
	}
	if strings.Contains(w.Body.String(), key) {
		t.Fatalf("api key leaked to client: %s", w.Body.String())
	}
	if strings.Contains(logs.String(), key) {
		t.Fatalf("api key leaked to logs: %s", logs.String())
	}
}

// ---------- results ----------

func TestSaveResult_Success(t *testing.T) {
	res := &fakeResults{saveOut: services.SaveOutput{ID: "abc123", Tier: "durable"}}
	r := newTestRouter(New(&fakeAuth{}, &fakeTranslate{}, res))

	w := doJSON(t, r, http.MethodPost, "/save-result",
		`{"originalText":"hi","translatedText":"(hi)","senderName":"Kim"}`,
		map[string]string{HeaderReceiverName: "Lee"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp SaveResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.ID != "abc123" || !resp.Success {
		t.Fatalf("unexpected body: %+v", resp)
	}
	want := services.SaveInput{OriginalText: "hi", TranslatedText: "(hi)", SenderName: "Kim", ReceiverName: "Lee"}
	if res.lastSave != want {
		t.Fatalf("service input=%+v want %+v", res.lastSave, want)
	}
	if w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("fresh save must not be marked replayed")
	}
}

func TestSaveResult_BodyReceiverWinsOverHeader(t *testing.T) {
	res := &fakeResults{saveOut: services.SaveOutput{ID: "abc123"}}
	r := newTestRouter(New(&fakeAuth{}, &fakeTranslate{}, res))

	doJSON(t, r, http.MethodPost, "/save-result",
		`{"originalText":"hi","translatedText":"(hi)","receiverName":"Park"}`,
		map[string]string{HeaderReceiverName: "Lee"})
	if res.lastSave.ReceiverName != "Park" {
		t.Fatalf("receiver=%q", res.lastSave.ReceiverName)
	}
}

func TestSaveResult_IdempotencyKeyAndReplay(t *testing.T) {
	res := &fakeResults{saveOut: services.SaveOutput{ID: "zz9zz9", Replayed: true}}
	r := newTestRouter(New(&fakeAuth{}, &fakeTranslate{}, res),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))

	w := doJSON(t, r, http.MethodPost, "/save-result",
		`{"originalText":"hi","translatedText":"(hi)"}`,
		map[string]string{middleware.HeaderIdempotencyKey: "k-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if res.lastSave.IdempotencyKey != "k-1" {
		t.Fatalf("idempotency key not forwarded: %+v", res.lastSave)
	}
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected Idempotency-Replayed header")
	}
}

func TestSaveResult_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing text", `{"originalText":"hi"}`, services.ErrMissingText, http.StatusBadRequest, ErrCodeInvalidInput},
		{"bad json", `{"originalText":1}`, nil, http.StatusBadRequest, ErrCodeInvalidInput},
		{"store failure", `{"originalText":"a","translatedText":"b"}`, services.ErrResultStore, http.StatusInternalServerError, ErrCodeSaveFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(New(&fakeAuth{}, &fakeTranslate{}, &fakeResults{saveErr: tt.err}))
			w := doJSON(t, r, http.MethodPost, "/save-result", tt.body, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status=%d want %d", w.Code, tt.wantStatus)
			}
			if er := decodeErr(t, w); er.Code != tt.wantCode {
				t.Fatalf("code=%q want %q", er.Code, tt.wantCode)
			}
		})
	}
}

func TestGetResult(t *testing.T) {
	rec := domain.StoredResult{
		ID:             "abc123",
		OriginalText:   "hi",
		TranslatedText: "(hi)",
		Sender:         domain.Sender{Name: "Kim", Email: "kim@gmail.com", Avatar: "K"},
		Receiver:       "Lee",
		Subject:        "Re: hi",
		CreatedAt:      1,
		ExpiresAt:      2,
	}

	t.Run("found", func(t *testing.T) {
		res := &fakeResults{rec: rec}
		r := newTestRouter(New(&fakeAuth{}, &fakeTranslate{}, res))
		w := doJSON(t, r, http.MethodGet, "/get-result/abc123", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
		var got domain.StoredResult
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("json: %v", err)
		}
		if got != rec || res.lastID != "abc123" {
			t.Fatalf("unexpected record: %+v", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		r := newTestRouter(New(&fakeAuth{}, &fakeTranslate{}, &fakeResults{getErr: services.ErrResultNotFound}))
		w := doJSON(t, r, http.MethodGet, "/get-result/nope00", "", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status=%d", w.Code)
		}
		if er := decodeErr(t, w); er.Code != ErrCodeNotFound {
			t.Fatalf("code=%q", er.Code)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		r := newTestRouter(New(&fakeAuth{}, &fakeTranslate{}, &fakeResults{getErr: errors.New("decode")}))
		w := doJSON(t, r, http.MethodGet, "/get-result/abc123", "", nil)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d", w.Code)
		}
	})
}

// ---------- health ----------

func TestHealth(t *testing.T) {
	for _, durable := range []bool{true, false} {
		res := &fakeResults{health: services.HealthStatus{Driver: "redis", Durable: durable}}
		r := newTestRouter(New(&fakeAuth{}, &fakeTranslate{}, res))
		w := doJSON(t, r, http.MethodGet, "/health", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
		var resp HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json: %v", err)
		}
		want := "ok"
		if !durable {
			want = "degraded"
		}
		if resp.Status != want || resp.Store.Driver != "redis" || resp.Store.Durable != durable {
			t.Fatalf("unexpected body: %+v", resp)
		}
	}
}
