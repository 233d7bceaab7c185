// Package journal persists issued policies and settled claims. The records
// here are the durable audit trail the issuer reconciles against; nothing
// in the claim path reads them back.
package journal

import "time"

// PolicyRecord is written once at issuance.
type PolicyRecord struct {
	PolicyID string
	Holder   string
	Asset    string
	Tokens   uint64
	Plan     uint8
	RefPrice int64
	Decimals uint32
	Premium  uint64
	IssuedAt time.Time
	Deadline time.Time
}

// ClaimRecord is written once when a claim settles. Amount is in reference
// currency units, Paid is the native amount actually disbursed.
type ClaimRecord struct {
	ClaimID   string
	PolicyID  string
	Amount    uint64
	Paid      uint64
	SettledAt time.Time
}

type Journal interface {
	RecordPolicy(PolicyRecord) error
	RecordClaim(ClaimRecord) error
	Close() error
}

// Nop discards all records. Useful when a caller wants no audit trail.
type Nop struct{}

func (Nop) RecordPolicy(PolicyRecord) error { return nil }
func (Nop) RecordClaim(ClaimRecord) error   { return nil }
func (Nop) Close() error                    { return nil }
