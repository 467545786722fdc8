package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// Header names used by the remote signing daemon.
const (
	HeaderKey       = "X-Signer-Key"
	HeaderTimestamp = "X-Signer-Timestamp"
	HeaderSignature = "X-Signer-Signature"
)

// HMACAuth holds the credentials for HMAC-authenticated requests.
type HMACAuth struct {
	Key    string
	Secret string // base64; raw bytes are used when it does not decode
}

func (h *HMACAuth) secret() []byte {
	b, err := base64.StdEncoding.DecodeString(h.Secret)
	if err != nil {
		return []byte(h.Secret)
	}
	return b
}

// Headers signs timestamp+method+path+body with HMAC-SHA256.
func (h *HMACAuth) Headers(method, path, body string) map[string]string {
	return h.HeadersAt(method, path, body, time.Now().Unix())
}

// HeadersAt is like Headers with a caller-supplied Unix timestamp.
func (h *HMACAuth) HeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)
	return map[string]string{
		HeaderKey:       h.Key,
		HeaderTimestamp: ts,
		HeaderSignature: hmacSHA256Base64(h.secret(), ts+method+path+body),
	}
}

// Verify checks a signature produced by Headers.
func (h *HMACAuth) Verify(method, path, body, ts, signature string) bool {
	want := hmacSHA256Base64(h.secret(), ts+method+path+body)
	return hmac.Equal([]byte(want), []byte(signature))
}

func hmacSHA256Base64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=%s}", redact(h.Key), redact(h.Secret))
}
