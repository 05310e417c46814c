package hit

import (
	"net/url"
	"strings"

	"github.com/edgehill-data/gapush/types"
)

// EncodeHit serializes one hit as a url-form-encoded line (k1=v1&k2=v2).
//
// Pairs are ordered by key ascending, which makes the encoding deterministic
// regardless of how the hit map was constructed. url.Values.Encode sorts by
// key and percent-encodes reserved characters, so values are never rejected.
func EncodeHit(h types.Hit) string {
	vals := make(url.Values, len(h))
	for k, v := range h {
		vals.Set(k, v)
	}
	return vals.Encode()
}

// EncodeBatch serializes a batch as newline-joined per-hit lines. This is
// the exact body shape the collection endpoint's batch resource expects.
func EncodeBatch(b types.Batch) string {
	lines := make([]string, len(b))
	for i, h := range b {
		lines[i] = EncodeHit(h)
	}
	return strings.Join(lines, "\n")
}
