package random

import (
	"crypto/rand"
	"math/big"
)

// joinAlphabet leaves out 0/O and 1/I so codes survive being read aloud.
const joinAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Code returns a join code of the given length.
func Code(length int) string {
	if length <= 0 {
		return ""
	}
	max := big.NewInt(int64(len(joinAlphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			code[i] = joinAlphabet[i%len(joinAlphabet)]
			continue
		}
		code[i] = joinAlphabet[n.Int64()]
	}
	return string(code)
}
