package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// randomHex returns n random bytes hex-encoded (2n characters), uppercase.
func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform RNG is broken; nothing
		// sensible to fall back to.
		panic(err)
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

// GenerateTransactionID returns an ID like TXN-20250901-9F2C41A7B3D8.
// The date prefix is for humans; uniqueness comes from the 48 random bits,
// so concurrent bursts cannot collide the way a millisecond-clock scheme can.
func GenerateTransactionID() string {
	return fmt.Sprintf("TXN-%s-%s", time.Now().UTC().Format("20060102"), randomHex(6))
}

// GenerateDeviceID returns an ID like DEV-20250901-4B1E9A.
func GenerateDeviceID() string {
	return fmt.Sprintf("DEV-%s-%s", time.Now().UTC().Format("20060102"), randomHex(3))
}
