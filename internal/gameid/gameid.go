// Package gameid generates sortable identifiers for tables and audit
// records: UUIDv7 (millisecond timestamp + random tail) encoded as a
// 26-character Crockford base32 string, so IDs order by creation time.
package gameid

import (
	"crypto/rand"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Generate creates a new identifier.
func Generate() string {
	return encodeBase32(newUUIDv7())
}

func newUUIDv7() [16]byte {
	var uuid [16]byte

	now := time.Now().UnixMilli()
	uuid[0] = byte(now >> 40)
	uuid[1] = byte(now >> 32)
	uuid[2] = byte(now >> 24)
	uuid[3] = byte(now >> 16)
	uuid[4] = byte(now >> 8)
	uuid[5] = byte(now)

	_, _ = rand.Read(uuid[6:])

	// Version 7, RFC 4122 variant.
	uuid[6] = (uuid[6] & 0x0f) | 0x70
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return uuid
}

// encodeBase32 packs the 128-bit UUID into 26 base32 characters,
// 5 bits at a time, most significant bits first.
func encodeBase32(uuid [16]byte) string {
	var out [26]byte

	var acc uint64
	bits := 0
	pos := 0
	for _, b := range uuid {
		acc = acc<<8 | uint64(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out[pos] = alphabet[(acc>>uint(bits))&0x1f]
			pos++
		}
	}
	// 128 = 25*5 + 3: pad the final 3 bits to a full character.
	out[pos] = alphabet[(acc<<uint(5-bits))&0x1f]

	return string(out[:])
}
