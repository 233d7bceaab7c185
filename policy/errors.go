package policy

import "errors"

// Business-outcome errors. These are expected results of the claim
// lifecycle, not bugs; callers branch on them with errors.Is. None of them
// leaves any policy state modified.
var (
	ErrNotHolder          = errors.New("policy: caller is not the holder")
	ErrExpired            = errors.New("policy: validity deadline has passed")
	ErrAlreadyClaimed     = errors.New("policy: already claimed")
	ErrNoDepreciation     = errors.New("policy: asset price has not fallen")
	ErrInvalidClaimAmount = errors.New("policy: computed claim amount is zero")
	ErrClaimInProgress    = errors.New("policy: claim transition in progress")
	ErrInvalidTerms       = errors.New("policy: invalid terms")
)
