// Package otp generates the short numeric one-time codes used by the
// account verification flows.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeSource produces one-time codes. The verification package depends on
// this interface so tests can pin the issued code.
type CodeSource interface {
	Generate() string
}

// Generator issues 6-digit numeric codes from crypto/rand.
type Generator struct{}

func NewGenerator() Generator {
	return Generator{}
}

func (Generator) Generate() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand failing means the process is in a bad state; a
		// constant code must never be issued.
		panic(fmt.Sprintf("otp: rand failed: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64())
}
