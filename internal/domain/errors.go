package domain

import "errors"

var (
	ErrPartnerNotFound    = errors.New("partner not found")
	ErrPartnerNotApproved = errors.New("partner is not approved")
	ErrInvalidStatus      = errors.New("invalid partner status")
	ErrAccountNotFound    = errors.New("trading account not found")
	ErrMissingCredential  = errors.New("trading account has no stored credential")
	ErrUpstream           = errors.New("trading platform request failed")
	ErrUpstreamAuth       = errors.New("trading platform authentication failed")
	ErrSnapshotNotFound   = errors.New("commission snapshot not found")
	ErrSelfReferral       = errors.New("partner cannot refer their own user")
	ErrInvalidAssignment  = errors.New("invalid group assignment")
	ErrSyncAlreadyRunning = errors.New("sync run already in progress")
)
