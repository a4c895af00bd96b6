package utils

import (
	"crypto/rand"
	"fmt"
)

// InviteCodeAlphabet leaves out 0/O and 1/I so codes survive being read aloud
// or copied from a phone screen.
const InviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const InviteCodeLength = 8

func GenerateInviteCode() (string, error) {
	return GenerateCodeFrom(InviteCodeAlphabet, InviteCodeLength)
}

// GenerateCodeFrom draws n characters uniformly from alphabet. Bytes past the
// largest multiple of len(alphabet) are discarded to avoid modulo bias.
func GenerateCodeFrom(alphabet string, n int) (string, error) {
	if len(alphabet) == 0 || len(alphabet) > 256 {
		return "", fmt.Errorf("invalid alphabet size %d", len(alphabet))
	}
	limit := 256 - 256%len(alphabet)

	code := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(code) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, alphabet[int(b)%len(alphabet)])
			if len(code) == n {
				break
			}
		}
	}
	return string(code), nil
}
