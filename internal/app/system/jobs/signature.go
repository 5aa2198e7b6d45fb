// internal/app/system/jobs/signature.go
package jobs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the request signature on invocations.
const SignatureHeader = "X-Inngest-Signature"

// SignatureTolerance is how far a signature timestamp may drift from now.
const SignatureTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("jobs: missing signature")
	ErrBadSignature     = errors.New("jobs: invalid signature")
	ErrStaleSignature   = errors.New("jobs: signature timestamp outside tolerance")
)

// normalizeKey strips the "signkey-<env>-" prefix from a signing key.
func normalizeKey(key string) string {
	if rest, ok := strings.CutPrefix(key, "signkey-"); ok {
		if _, after, ok := strings.Cut(rest, "-"); ok {
			return after
		}
	}
	return key
}

func mac(body []byte, key, ts string) string {
	h := hmac.New(sha256.New, []byte(normalizeKey(key)))
	h.Write(body)
	h.Write([]byte(ts))
	return hex.EncodeToString(h.Sum(nil))
}

// Sign returns the header value for body signed with key at t.
func Sign(body []byte, key string, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	return "t=" + ts + "&s=" + mac(body, key, ts)
}

// Verify checks header against body and key relative to now.
func Verify(body []byte, header, key string, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}
	vals, err := url.ParseQuery(header)
	if err != nil {
		return ErrBadSignature
	}
	ts, sig := vals.Get("t"), vals.Get("s")
	if ts == "" || sig == "" {
		return ErrBadSignature
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	drift := now.Sub(time.Unix(sec, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > SignatureTolerance {
		return ErrStaleSignature
	}
	if !hmac.Equal([]byte(sig), []byte(mac(body, key, ts))) {
		return ErrBadSignature
	}
	return nil
}

// hashedKey is the bearer credential sent when registering: the key prefix
// kept, the secret replaced by its SHA-256.
func hashedKey(key string) string {
	secret := normalizeKey(key)
	prefix := strings.TrimSuffix(key, secret)
	raw, err := hex.DecodeString(secret)
	if err != nil {
		raw = []byte(secret)
	}
	sum := sha256.Sum256(raw)
	return prefix + hex.EncodeToString(sum[:])
}
