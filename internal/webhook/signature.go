package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign computes the signature header value of a delivery.
// The signed content is "{timestamp}.{event_id}.{body}" so receivers can reject
// replays by timestamp and de-duplicate by event id.
func Sign(secret string, timestamp int64, eventID string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(h, "%d.%s.", timestamp, eventID)
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature header value in constant time
func Verify(secret string, signature string, timestamp int64, eventID string, body []byte) bool {
	expected := Sign(secret, timestamp, eventID, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
