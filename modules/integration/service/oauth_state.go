package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"healthtrack-api/core/constants"
	"healthtrack-api/core/errors"
	"healthtrack-api/core/utils"
	"healthtrack-api/modules/integration/entity"

	"github.com/google/uuid"
)

// Sentinel causes wrapped inside the AppError so callers can tell the two
// state rejections apart with errors.Is; both map to the same HTTP class.
var (
	ErrStateMalformed = stderrors.New("oauth state malformed")
	ErrStateExpired   = stderrors.New("oauth state expired")
)

// statePayload is the round-tripped bundle. Short keys keep the redirect URL
// compact.
type statePayload struct {
	UserID      uuid.UUID `json:"uid"`
	Provider    string    `json:"prv"`
	RedirectURI string    `json:"ruri"`
	IssuedAt    int64     `json:"ts"`
	Nonce       string    `json:"n"`
}

// OAuthState is the decoded, validated form the connection flow consumes.
type OAuthState struct {
	UserID      uuid.UUID
	Provider    entity.Provider
	RedirectURI string
	IssuedAt    time.Time
	Nonce       string
}

// StateCodec signs and verifies the OAuth state parameter. Wire format:
// base64url(JSON payload) + "." + base64url(HMAC-SHA256 of the payload).
type StateCodec struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

func NewStateCodec(secret string) *StateCodec {
	return &StateCodec{
		secret:   []byte(secret),
		validity: constants.OAuthStateValidity,
		now:      time.Now,
	}
}

// Encode packs a fresh state for one connection attempt and returns it with
// its expiry instant. The nonce is new on every call.
func (c *StateCodec) Encode(userID uuid.UUID, provider entity.Provider, redirectURI string) (string, time.Time) {
	issued := c.now()
	payload := statePayload{
		UserID:      userID,
		Provider:    string(provider),
		RedirectURI: redirectURI,
		IssuedAt:    issued.Unix(),
		Nonce:       utils.GenerateRandomString(16),
	}
	raw, _ := json.Marshal(payload)
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + "." + c.sign(raw), issued.Add(c.validity)
}

// Decode verifies the signature, shape, and age of an incoming state. The
// signature is checked before the payload is even parsed.
func (c *StateCodec) Decode(state string) (*OAuthState, error) {
	payloadPart, sigPart, ok := strings.Cut(state, ".")
	if !ok {
		return nil, invalidState("state is not payload.signature", ErrStateMalformed)
	}

	raw, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, invalidState("state payload is not base64url", ErrStateMalformed)
	}
	if !hmac.Equal([]byte(c.sign(raw)), []byte(sigPart)) {
		return nil, invalidState("state signature mismatch", ErrStateMalformed)
	}

	var payload statePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, invalidState("state payload is not valid JSON", ErrStateMalformed)
	}

	provider, err := entity.ParseProvider(payload.Provider)
	if err != nil || payload.UserID == uuid.Nil || payload.Nonce == "" || payload.IssuedAt == 0 {
		return nil, invalidState("state payload has missing or invalid fields", ErrStateMalformed)
	}

	issued := time.Unix(payload.IssuedAt, 0)
	if c.now().Sub(issued) > c.validity {
		return nil, invalidState("state expired, restart the connection", ErrStateExpired)
	}

	return &OAuthState{
		UserID:      payload.UserID,
		Provider:    provider,
		RedirectURI: payload.RedirectURI,
		IssuedAt:    issued,
		Nonce:       payload.Nonce,
	}, nil
}

func (c *StateCodec) sign(payload []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func invalidState(msg string, cause error) error {
	return errors.NewAppError(errors.ErrInvalidRequest, msg, cause)
}
