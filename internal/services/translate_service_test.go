package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-subtext-backend/internal/domain"
	"github.com/tbourn/go-subtext-backend/internal/gencache"
	"github.com/tbourn/go-subtext-backend/internal/policy"
)

type fakeGenerator struct {
	res   domain.GenerationResult
	calls int
	last  [3]string
}

func (f *fakeGenerator) Generate(_ context.Context, sender, receiver, body string) domain.GenerationResult {
	f.calls++
	f.last = [3]string{sender, receiver, body}
	return f.res
}

func newTranslateService(gen *fakeGenerator, cache gencache.Cache) *TranslateService {
	return &TranslateService{Cache: cache, Generator: gen, MaxTextRunes: 5000, MaxBodyRunes: 5000}
}

func TestTranslate_SuccessThenCached(t *testing.T) {
	gen := &fakeGenerator{res: domain.GenerationResult{Text: "I need this by noon."}}
	svc := newTranslateService(gen, gencache.New(0))
	in := TranslateInput{Sender: "Kim", Receiver: "Lee", Body: "When you have a moment..."}

	out, err := svc.Translate(context.Background(), in)
	if err != nil || out.Cached || out.Text != "I need this by noon." {
		t.Fatalf("first call = (%+v, %v)", out, err)
	}
	if gen.last != [3]string{"Kim", "Lee", "When you have a moment..."} {
		t.Fatalf("generator got %v", gen.last)
	}

	out, err = svc.Translate(context.Background(), in)
	if err != nil || !out.Cached || out.Text != "I need this by noon." {
		t.Fatalf("second call = (%+v, %v)", out, err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls)
	}
}

func TestTranslate_DisabledCacheAlwaysGenerates(t *testing.T) {
	gen := &fakeGenerator{res: domain.GenerationResult{Text: "x"}}
	svc := newTranslateService(gen, gencache.Disabled{})
	in := TranslateInput{Single: true, Text: "hello"}
	for i := 0; i < 2; i++ {
		if out, err := svc.Translate(context.Background(), in); err != nil || out.Cached {
			t.Fatalf("call %d = (%+v, %v)", i, out, err)
		}
	}
	if gen.calls != 2 {
		t.Fatalf("generator called %d times, want 2", gen.calls)
	}
}

func TestTranslate_SingleFieldUsesTextOnly(t *testing.T) {
	gen := &fakeGenerator{res: domain.GenerationResult{Text: "x"}}
	svc := newTranslateService(gen, gencache.New(0))
	_, err := svc.Translate(context.Background(), TranslateInput{Single: true, Text: "just this", Sender: "ignored"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if gen.last != [3]string{"", "", "just this"} {
		t.Fatalf("generator got %v", gen.last)
	}
}

func TestTranslate_PolicyRejections(t *testing.T) {
	tests := []struct {
		name string
		in   TranslateInput
		kind string
	}{
		{"phone number", TranslateInput{Body: "010-1234-5678"}, policy.KindPersonalInfo},
		{"body too long", TranslateInput{Body: strings.Repeat("a", 5001)}, policy.KindTooLong},
		{"text too long", TranslateInput{Single: true, Text: strings.Repeat("a", 5001)}, policy.KindTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{res: domain.GenerationResult{Text: "x"}}
			_, err := newTranslateService(gen, gencache.New(0)).Translate(context.Background(), tt.in)
			var rej *policy.Rejection
			if !errors.As(err, &rej) || rej.Kind != tt.kind {
				t.Fatalf("expected %s rejection, got %v", tt.kind, err)
			}
			if gen.calls != 0 {
				t.Fatal("generator must not be called for rejected input")
			}
		})
	}
}

func TestTranslate_ExactLimitAccepted(t *testing.T) {
	gen := &fakeGenerator{res: domain.GenerationResult{Text: "x"}}
	if _, err := newTranslateService(gen, gencache.New(0)).Translate(context.Background(),
		TranslateInput{Body: strings.Repeat("a", 5000)}); err != nil {
		t.Fatalf("5000 runes should be accepted: %v", err)
	}
}

func TestTranslate_GenerationOutcomes(t *testing.T) {
	tests := []struct {
		name string
		res  domain.GenerationResult
		want error
	}{
		{"quota", domain.GenerationResult{Blocked: true, Kind: domain.BlockQuota, Reason: domain.ReasonQuota}, ErrQuotaExceeded},
		{"safety", domain.GenerationResult{Blocked: true, Kind: domain.BlockSafety, Reason: domain.ReasonSafetyFilter}, ErrSafetyBlocked},
		{"upstream", domain.GenerationResult{Blocked: true, Kind: domain.BlockUpstream, Reason: domain.ReasonUpstream}, ErrGenerationFailed},
		{"empty", domain.GenerationResult{}, ErrEmptyResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{res: tt.res}
			cache := gencache.New(0)
			svc := newTranslateService(gen, cache)
			_, err := svc.Translate(context.Background(), TranslateInput{Body: "hi"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if cache.Len() != 0 {
				t.Fatal("failed generations must not be cached")
			}
		})
	}
}

func TestTranslate_UpstreamReasonIsWrapped(t *testing.T) {
	gen := &fakeGenerator{res: domain.GenerationResult{Blocked: true, Kind: domain.BlockUpstream, Reason: "api key not configured"}}
	_, err := newTranslateService(gen, gencache.New(0)).Translate(context.Background(), TranslateInput{Body: "hi"})
	if err == nil || !strings.Contains(err.Error(), "api key not configured") {
		t.Fatalf("expected reason in error, got %v", err)
	}
}
