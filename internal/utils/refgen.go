package utils

import (
	"crypto/rand"
	"fmt"
	"time"
)

const refAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("refgen: crypto/rand unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = refAlphabet[int(b)%len(refAlphabet)]
	}
	return string(buf)
}

// NewOrderNumber returns a CMD-YYYYMMDD-XXXXXX reference. The suffix is
// random, not guaranteed unique; callers persist under a unique index and
// retry on conflict.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("CMD-%s-%s", now.Format("20060102"), randomSuffix(6))
}

// NewPaymentReference returns a PAY-YYYYMMDD-XXXXXXXX reference.
func NewPaymentReference(now time.Time) string {
	return fmt.Sprintf("PAY-%s-%s", now.Format("20060102"), randomSuffix(8))
}
