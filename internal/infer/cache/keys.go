package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/newspulse/enrich/internal/infer/transport"
)

// keyPrefix namespaces cache entries in Redis.
const keyPrefix = "enrich:response:"

// Key derives the deterministic cache key for a request. The key covers
// everything that affects the response: model, temperature, declared schema,
// and every prompt segment. Requests are issued at temperature 0, so a key
// hit is a faithful replay of the original call.
func Key(req *transport.Request) string {
	h := sha256.New()
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(req.Temperature, 'f', -1, 64)))
	h.Write([]byte{0})
	if req.Schema != nil {
		h.Write([]byte(req.Schema.Describe()))
	}
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(req.Segments, "\x00")))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
