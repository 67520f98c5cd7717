package service

import "github.com/pkg/errors"

var (
	ErrUnknownMethod     = errors.New("unknown method")
	ErrWrongTarget       = errors.New("method not supported by target contract")
	ErrSenderMismatch    = errors.New("signature does not match sender")
	ErrStaleNonce        = errors.New("nonce already used")
	ErrBadArgument       = errors.New("bad argument")
	ErrUnknownRound      = errors.New("round has no deployed contract")
	ErrNotDeployer       = errors.New("only the badge deployer may mint this badge")
	ErrRegistryExists    = errors.New("round registry already deployed")
	ErrUnknownGeneration = errors.New("unknown contract generation")
	ErrQueueFull         = errors.New("transaction queue is full")
	ErrQueueStopped      = errors.New("transaction queue stopped")
)
