package canlight

import "fmt"

// didWords is the number of 16-bit words making up a full device identity.
const didWords = 8

// encodeDID renders a fully-resolved partial identity (length 8) as the
// 32-character lowercase hex string used everywhere outside the engine:
// each word as four hex digits, most significant nibble first, words
// concatenated in revealed order.
func encodeDID(words []uint16) string {
	s := make([]byte, 0, didWords*4)
	for _, w := range words {
		s = append(s, []byte(fmt.Sprintf("%04x", w))...)
	}
	return string(s)
}
