package utils

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hashed == "s3cret" {
		t.Fatal("password stored in plain text")
	}
	if !CheckPassword(hashed, "s3cret") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hashed, "wrong") {
		t.Fatal("wrong password accepted")
	}
}

func TestGenerateCode(t *testing.T) {
	for _, n := range []int{8, 10} {
		code, err := GenerateCode(n)
		if err != nil {
			t.Fatalf("GenerateCode(%d): %v", n, err)
		}
		if len(code) != n {
			t.Fatalf("GenerateCode(%d) len = %d", n, len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("GenerateCode(%d) produced %q outside the alphabet", n, c)
			}
		}
	}

	// Zero and negative lengths fall back to the roll number length.
	for _, n := range []int{0, -3} {
		code, err := GenerateCode(n)
		if err != nil {
			t.Fatalf("GenerateCode(%d): %v", n, err)
		}
		if len(code) != rollNoLength {
			t.Fatalf("GenerateCode(%d) len = %d, want %d", n, len(code), rollNoLength)
		}
	}
}

func TestCodeAlphabetOmitsLookalikes(t *testing.T) {
	for _, c := range "0O1IL" {
		if strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("alphabet contains lookalike %q", c)
		}
	}
}
