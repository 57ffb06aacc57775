package utils

import "crypto/rand"

// Roll numbers and UNR suffixes get read aloud and typed back at the
// centre desk, so the alphabet drops 0/O, 1/I and L.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const rollNoLength = 8

// GenerateCode returns a random code of n characters drawn from
// codeAlphabet. A non-positive n falls back to the roll number length.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = rollNoLength
	}
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			// Bytes past the largest multiple of the alphabet size are
			// rejected so every character stays equally likely.
			if int(c) >= 256-256%len(codeAlphabet) {
				continue
			}
			out = append(out, codeAlphabet[int(c)%len(codeAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
