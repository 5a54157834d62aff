// Package gameid issues sortable hand and tournament identifiers:
// UUIDv7 (48-bit millisecond timestamp, then random) encoded as 26
// characters of Crockford base32, so IDs order by creation time and are
// safe in file names and URLs.
package gameid

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Generator produces identifiers. Entropy and Now are overridable for
// deterministic tests; the zero value uses crypto/rand and time.Now.
type Generator struct {
	Entropy io.Reader
	Now     func() time.Time
}

// Generate returns a fresh identifier from the default generator.
func Generate() string {
	var g Generator
	return g.Generate()
}

// Generate returns a fresh 26-character identifier.
func (g *Generator) Generate() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	entropy := io.Reader(nil)
	if g.Entropy != nil {
		entropy = g.Entropy
	}

	var id [16]byte
	ms := now().UnixMilli()
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)

	if entropy == nil {
		entropy = rand.Reader
	}
	if _, err := io.ReadFull(entropy, id[6:]); err != nil {
		panic("gameid: reading entropy: " + err.Error())
	}

	// RFC 9562 version and variant bits.
	id[6] = id[6]&0x0f | 0x70
	id[8] = id[8]&0x3f | 0x80

	return encode(id)
}

// encode packs 128 bits into 26 base32 characters, 5 bits per character,
// most significant first. The final character carries 3 bits of padding.
func encode(id [16]byte) string {
	var out [26]byte
	bits := uint32(0)
	nbits := 0
	pos := 0
	for _, b := range id {
		bits = bits<<8 | uint32(b)
		nbits += 8
		for nbits >= 5 {
			nbits -= 5
			out[pos] = alphabet[bits>>nbits&0x1f]
			pos++
		}
	}
	out[pos] = alphabet[bits<<(5-nbits)&0x1f]
	return string(out[:])
}

// Validate reports whether id is a well-formed identifier.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("id must be 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("id overflows 128 bits: leading character %q", id[0])
	}
	for i := 0; i < len(id); i++ {
		if !validChar(id[i]) {
			return fmt.Errorf("invalid character %q at position %d", id[i], i)
		}
	}
	return nil
}

func validChar(c byte) bool {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == c {
			return true
		}
	}
	return false
}
