package orders

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

const (
	orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	orderNumberSuffix   = 6
)

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXX using the UTC date of now.
func NewOrderNumber(now time.Time) (string, error) {
	return newOrderNumber(now, rand.Reader)
}

func newOrderNumber(now time.Time, src io.Reader) (string, error) {
	buf := make([]byte, orderNumberSuffix)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		// 256 is a multiple of 32 so the modulo is unbiased.
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), buf), nil
}
