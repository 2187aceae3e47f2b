// Package services – ResultService
//
// ResultService stores shared rewrites under short random IDs for a limited
// time. Writes go to the durable key-value store; when that fails they land in
// an in-process fallback store instead, so a save only fails when both tiers
// do. Reads try the durable tier first and then the fallback.
//
// Saved records carry display fields derived at save time: a subject line, an
// avatar initial and a synthesized sender address.
package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-subtext-backend/internal/domain"
	"github.com/tbourn/go-subtext-backend/internal/gemini"
	"github.com/tbourn/go-subtext-backend/internal/kv"
	"github.com/tbourn/go-subtext-backend/internal/observability"
	"github.com/tbourn/go-subtext-backend/internal/utils"
)

const (
	resultKeyPrefix = "result:"
	idemKeyPrefix   = "idem:save-result:"

	idLength  = 6
	idRadix   = 36
	idRetries = 3

	// DefaultResultTTL is how long a shared result stays readable.
	DefaultResultTTL = 24 * time.Hour

	// Display defaults when the caller omits names.
	DefaultSenderName   = "Sender"
	DefaultReceiverName = "Recipient"

	// FallbackSenderEmail is used whenever address synthesis fails.
	FallbackSenderEmail = "user@gmail.com"

	subjectPrefix   = "Re: "
	subjectMaxRunes = 14

	emailMaxLen      = 20
	emailLocalMaxLen = 12
	emailMaxTokens   = 32
	emailTemperature = 0.8
)

var (
	// idSpace is 36^6, the number of distinct IDs.
	idSpace = new(big.Int).Exp(big.NewInt(idRadix), big.NewInt(idLength), nil)

	gmailRE = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@gmail\.com`)
)

// Completer runs a raw prompt with explicit sampling settings.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) domain.GenerationResult
}

// SaveInput is one save request.
type SaveInput struct {
	OriginalText   string
	TranslatedText string
	SenderName     string
	ReceiverName   string

	// IdempotencyKey, when set, makes repeated saves return the first ID.
	IdempotencyKey string
}

// SaveOutput reports where a result was stored.
type SaveOutput struct {
	ID       string
	Tier     string // observability.TierDurable or TierFallback
	Replayed bool
}

// HealthStatus describes the storage tiers.
type HealthStatus struct {
	Driver  string `json:"driver"`
	Durable bool   `json:"durable"`
}

// ResultService saves and loads shared results.
type ResultService struct {
	durable  kv.Store
	fallback kv.Store
	emails   Completer
	ttl      time.Duration
	driver   string
	log      zerolog.Logger

	now   func() time.Time
	newID func() (string, error)
}

// ResultOptions configures a ResultService.
type ResultOptions struct {
	// Durable is the primary store.
	Durable kv.Store
	// Fallback receives writes the durable store refused. Nil uses a fresh
	// kv.MemoryStore.
	Fallback kv.Store
	// Emails synthesizes sender addresses. Nil always uses FallbackSenderEmail.
	Emails Completer
	// TTL defaults to DefaultResultTTL.
	TTL time.Duration
	// Driver names the durable backend in health output.
	Driver string
	Log    zerolog.Logger
}

// NewResultService builds a ResultService.
func NewResultService(opts ResultOptions) *ResultService {
	s := &ResultService{
		durable:  opts.Durable,
		fallback: opts.Fallback,
		emails:   opts.Emails,
		ttl:      opts.TTL,
		driver:   opts.Driver,
		log:      opts.Log,
		now:      time.Now,
		newID:    NewResultID,
	}
	if s.fallback == nil {
		s.fallback = kv.NewMemoryStore()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultResultTTL
	}
	return s
}

// NewResultID returns 6 base36 characters drawn from crypto/rand.
func NewResultID() (string, error) {
	n, err := rand.Int(rand.Reader, idSpace)
	if err != nil {
		return "", err
	}
	id := strconv.FormatInt(n.Int64(), idRadix)
	return strings.Repeat("0", idLength-len(id)) + id, nil
}

// Save derives display fields, stores the record and returns its ID.
func (s *ResultService) Save(ctx context.Context, in SaveInput) (SaveOutput, error) {
	ctx, span := otel.Tracer("services/ResultService").Start(ctx, "Save")
	defer span.End()

	if in.OriginalText == "" || in.TranslatedText == "" {
		return SaveOutput{}, ErrMissingText
	}

	if in.IdempotencyKey != "" {
		if id, ok := s.Replay(ctx, in.IdempotencyKey); ok {
			span.SetAttributes(attribute.Bool("result.replayed", true))
			return SaveOutput{ID: id, Replayed: true}, nil
		}
	}

	senderName := strings.TrimSpace(in.SenderName)
	if senderName == "" {
		senderName = DefaultSenderName
	}
	receiverName := strings.TrimSpace(in.ReceiverName)
	if receiverName == "" {
		receiverName = DefaultReceiverName
	}

	id, err := s.freshID(ctx)
	if err != nil {
		span.RecordError(err)
		return SaveOutput{}, fmt.Errorf("%w: %v", ErrResultStore, err)
	}

	created := s.now().UnixMilli()
	rec := domain.StoredResult{
		ID:             id,
		OriginalText:   in.OriginalText,
		TranslatedText: in.TranslatedText,
		Sender: domain.Sender{
			Name:   senderName,
			Email:  s.senderEmail(ctx, senderName),
			Avatar: Avatar(senderName),
		},
		Receiver:  receiverName,
		Subject:   Subject(in.OriginalText),
		CreatedAt: created,
		ExpiresAt: created + s.ttl.Milliseconds(),
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return SaveOutput{}, fmt.Errorf("%w: %v", ErrResultStore, err)
	}

	tier, err := s.write(ctx, resultKeyPrefix+id, buf)
	if err != nil {
		span.RecordError(err)
		return SaveOutput{}, err
	}
	observability.ResultWritesTotal.WithLabelValues(tier).Inc()
	span.SetAttributes(attribute.String("result.id", id), attribute.String("result.tier", tier))

	if in.IdempotencyKey != "" {
		if _, err := s.write(ctx, idemKeyPrefix+in.IdempotencyKey, []byte(id)); err != nil {
			s.log.Warn().Err(err).Msg("idempotency record not stored")
		}
	}
	return SaveOutput{ID: id, Tier: tier}, nil
}

// Get loads a live result. Missing and expired results both return
// ErrResultNotFound.
func (s *ResultService) Get(ctx context.Context, id string) (domain.StoredResult, error) {
	ctx, span := otel.Tracer("services/ResultService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("result.id", id)),
	)
	defer span.End()

	key := resultKeyPrefix + id
	raw, err := s.durable.Get(ctx, key)
	if err == nil {
		rec, derr := decodeResult(raw)
		if derr == nil && !rec.ExpiredAt(s.now().UnixMilli()) {
			return rec, nil
		}
		if derr != nil {
			s.log.Warn().Err(derr).Str("id", id).Msg("unreadable result in durable store")
		}
	} else if !errors.Is(err, kv.ErrNotFound) {
		span.RecordError(err)
		s.log.Warn().Err(err).Msg("durable result read failed; trying fallback")
	}

	raw, err = s.fallback.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return domain.StoredResult{}, ErrResultNotFound
	}
	if err != nil {
		return domain.StoredResult{}, err
	}
	rec, err := decodeResult(raw)
	if err != nil {
		return domain.StoredResult{}, err
	}
	if rec.ExpiredAt(s.now().UnixMilli()) {
		_ = s.fallback.Delete(ctx, key)
		return domain.StoredResult{}, ErrResultNotFound
	}
	return rec, nil
}

// Replay returns the ID issued for an idempotency key, if any.
func (s *ResultService) Replay(ctx context.Context, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	for _, st := range []kv.Store{s.durable, s.fallback} {
		if raw, err := st.Get(ctx, idemKeyPrefix+key); err == nil && len(raw) > 0 {
			return string(raw), true
		}
	}
	return "", false
}

// Health probes the durable tier and updates the durable-up gauge.
func (s *ResultService) Health(ctx context.Context) HealthStatus {
	up := s.durable.Ping(ctx) == nil
	if up {
		observability.ResultStoreDurableUp.Set(1)
	} else {
		observability.ResultStoreDurableUp.Set(0)
	}
	return HealthStatus{Driver: s.driver, Durable: up}
}

// write stores value in the durable tier, or in the fallback when that fails.
func (s *ResultService) write(ctx context.Context, key string, value []byte) (string, error) {
	derr := s.durable.Set(ctx, key, value, s.ttl)
	if derr == nil {
		return observability.TierDurable, nil
	}
	s.log.Warn().Err(derr).Msg("durable store write failed; using fallback")
	if ferr := s.fallback.Set(ctx, key, value, s.ttl); ferr != nil {
		return "", fmt.Errorf("%w: durable: %v; fallback: %v", ErrResultStore, derr, ferr)
	}
	return observability.TierFallback, nil
}

// freshID draws IDs until one is unused in both tiers. Lookup errors count as
// unused. A stored result is never overwritten: running out of draws fails.
func (s *ResultService) freshID(ctx context.Context) (string, error) {
	for i := 0; i < idRetries; i++ {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		if !s.exists(ctx, resultKeyPrefix+id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("no unused id after %d draws", idRetries)
}

func (s *ResultService) exists(ctx context.Context, key string) bool {
	for _, st := range []kv.Store{s.durable, s.fallback} {
		if _, err := st.Get(ctx, key); err == nil {
			return true
		}
	}
	return false
}

// senderEmail asks the model for a plausible address and normalizes it.
func (s *ResultService) senderEmail(ctx context.Context, name string) string {
	if s.emails == nil {
		return FallbackSenderEmail
	}
	res := s.emails.Complete(ctx, gemini.SenderEmailPrompt(name), emailMaxTokens, emailTemperature)
	if res.Blocked {
		return FallbackSenderEmail
	}
	return ExtractSenderEmail(res.Text)
}

// ExtractSenderEmail pulls the first gmail address out of text. Addresses
// longer than 20 characters keep only the first 12 characters of the local
// part.
func ExtractSenderEmail(text string) string {
	m := gmailRE.FindString(text)
	if m == "" {
		return FallbackSenderEmail
	}
	if len(m) <= emailMaxLen {
		return m
	}
	local := m[:strings.IndexByte(m, '@')]
	if len(local) > emailLocalMaxLen {
		local = local[:emailLocalMaxLen]
	}
	return local + "@gmail.com"
}

// Subject is "Re: " plus the first line of text, clipped to 14 runes.
func Subject(text string) string {
	line := strings.TrimSpace(utils.FirstLine(text))
	if clipped, cut := utils.TruncateRunes(line, subjectMaxRunes); cut {
		line = clipped + "..."
	}
	return subjectPrefix + line
}

// Avatar is the upper-cased first rune of name.
func Avatar(name string) string {
	for _, r := range name {
		return cases.Upper(language.Und).String(string(r))
	}
	return ""
}

func decodeResult(raw []byte) (domain.StoredResult, error) {
	var rec domain.StoredResult
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.StoredResult{}, err
	}
	return rec, nil
}
