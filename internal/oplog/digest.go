package oplog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Domain prefix for content-addressed call identity. The version suffix
// lets the digest layout change later without colliding with old logs.
const domainCall = "stash/call/v1"

// callID computes the identity of a recorded call: SHA-256 over the
// canonical JSON of its request fields, domain separated by a NUL byte.
// Outcome fields (status, output) are excluded; identity is what was
// asked, not what happened, which is what lets replay compare outcomes
// under the same ID.
func callID(c Call) string {
	h := sha256.New()
	h.Write([]byte(domainCall))
	h.Write([]byte{0x00})
	h.Write(canonicalCall(c))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalCall renders the request fields with a fixed key order,
// NFC-normalized strings and no HTML escaping, so the same call always
// hashes to the same ID regardless of the writing process.
func canonicalCall(c Call) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	stringField(&buf, "access", c.Access)
	buf.WriteByte(',')
	intField(&buf, "capacity", c.Capacity)
	buf.WriteByte(',')
	stringField(&buf, "literal", c.Literal)
	buf.WriteByte(',')
	stringField(&buf, "name", c.Name)
	buf.WriteByte(',')
	stringField(&buf, "op", c.Op)
	buf.WriteByte(',')
	intField(&buf, "seq", c.Seq)
	buf.WriteByte(',')
	stringField(&buf, "session", c.Session)
	buf.WriteByte(',')
	stringField(&buf, "type_tag", c.TypeTag)
	buf.WriteByte('}')
	return buf.Bytes()
}

func stringField(buf *bytes.Buffer, key, val string) {
	buf.Write(canonicalString(key))
	buf.WriteByte(':')
	buf.Write(canonicalString(val))
}

func intField(buf *bytes.Buffer, key string, val int64) {
	buf.Write(canonicalString(key))
	buf.WriteByte(':')
	fmt.Fprintf(buf, "%d", val)
}

// canonicalString encodes s as a JSON string, NFC normalized at the
// serialization boundary, with HTML escaping disabled.
func canonicalString(s string) []byte {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a plain string cannot fail.
	_ = enc.Encode(normalized)

	out := buf.Bytes()
	// json.Encoder appends a trailing newline.
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return out
}
