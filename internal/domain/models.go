// Package domain defines the value types shared by the subtext pipeline:
// generation outcomes, stored share records and the persistence model used
// by the SQL-backed key-value store.
package domain

// BlockKind discriminates why a generation did not produce usable text.
type BlockKind string

const (
	// BlockNone marks a successful, non-blocked generation.
	BlockNone BlockKind = ""
	// BlockQuota marks an upstream billing, quota or rate-limit failure.
	BlockQuota BlockKind = "quota"
	// BlockSafety marks an upstream safety-filter trip.
	BlockSafety BlockKind = "safety"
	// BlockUpstream marks a transport, decode or provider error.
	BlockUpstream BlockKind = "upstream"
)

// Reasons reported alongside blocked generations.
const (
	ReasonQuota        = "quota"
	ReasonSafetyFilter = "safety filter"
	// ReasonUpstream covers transport, decode and provider errors. The
	// underlying detail is logged server-side and never returned to callers.
	ReasonUpstream = "upstream"
	// ReasonNoAPIKey is reported without calling the provider when no key is set.
	ReasonNoAPIKey = "api key not configured"
)

// GenerationResult is the outcome of one generation call. It is immutable
// once produced; Blocked and Reason signal either a safety trip or a
// quota/billing failure, with Kind as the machine-readable discriminant.
type GenerationResult struct {
	Text    string    `json:"text"`
	Blocked bool      `json:"blocked"`
	Kind    BlockKind `json:"kind,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// Sender describes the displayed author of a shared result.
type Sender struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// StoredResult is a shared rewrite kept for a limited time under a short ID.
// Timestamps are unix milliseconds.
type StoredResult struct {
	ID             string `json:"id"`
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	Sender         Sender `json:"sender"`
	Receiver       string `json:"receiver"`
	Subject        string `json:"subject"`
	CreatedAt      int64  `json:"createdAt"`
	ExpiresAt      int64  `json:"expiresAt"`
}

// ExpiredAt reports whether the record is past its expiry at nowMillis.
func (r StoredResult) ExpiredAt(nowMillis int64) bool {
	return nowMillis > r.ExpiresAt
}
