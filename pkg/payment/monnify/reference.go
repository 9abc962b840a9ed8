package monnify

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewPaymentReference returns MON_<unix millis>_<8 hex chars>.
func NewPaymentReference() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("MON_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}
