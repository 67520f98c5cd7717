package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pob-voting/adapter"
	"pob-voting/badge"
	"pob-voting/chain"
	"pob-voting/models"
	"pob-voting/registry"
	"pob-voting/service"
	"pob-voting/signing"
	"pob-voting/storage"
	"pob-voting/voters"
	"pob-voting/voting"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

var errStatus = map[error]int{
	voting.ErrOwnerOnly:         http.StatusForbidden,
	voting.ErrProjectCannotVote: http.StatusForbidden,
	voting.ErrNotDevRel:         http.StatusForbidden,
	voting.ErrNotSmtVoter:       http.StatusForbidden,
	voting.ErrNotDaoHicVoter:    http.StatusForbidden,
	voting.ErrNotCommunityVoter: http.StatusForbidden,
	badge.ErrNotTokenOwner:      http.StatusForbidden,
	service.ErrSenderMismatch:   http.StatusForbidden,
	service.ErrNotDeployer:      http.StatusForbidden,
	signing.ErrInvalidSignature: http.StatusForbidden,

	registry.ErrRoundNotFound:     http.StatusNotFound,
	registry.ErrIterationNotFound: http.StatusNotFound,
	registry.ErrVersionNotSet:     http.StatusNotFound,
	registry.ErrAdapterNotSet:     http.StatusNotFound,
	voting.ErrInvalidProject:      http.StatusNotFound,
	chain.ErrUnknownContract:      http.StatusNotFound,
	service.ErrUnknownRound:       http.StatusNotFound,
	badge.ErrTokenNotFound:        http.StatusNotFound,
	adapter.ErrUnknownAdapter:     http.StatusNotFound,
	voters.ErrNotVoter:            http.StatusNotFound,
	storage.ErrNotExist:           http.StatusNotFound,

	voting.ErrNotActive:                http.StatusConflict,
	voting.ErrAlreadyActivated:         http.StatusConflict,
	voting.ErrAlreadyClosed:            http.StatusConflict,
	voting.ErrNotEnoughVoters:          http.StatusConflict,
	voting.ErrNotActivated:             http.StatusConflict,
	voting.ErrVotingNotEnded:           http.StatusConflict,
	voting.ErrContractLocked:           http.StatusConflict,
	voting.ErrProjectsLocked:           http.StatusConflict,
	voting.ErrAlreadyVoter:             http.StatusConflict,
	voting.ErrDevRelCannotBeProject:    http.StatusConflict,
	voting.ErrSmtCannotBeProject:       http.StatusConflict,
	voting.ErrDaoHicCannotBeProject:    http.StatusConflict,
	voting.ErrDevRelCannotBeDaoHic:     http.StatusConflict,
	voting.ErrSmtCannotBeDaoHic:        http.StatusConflict,
	voting.ErrDaoHicCannotBeDevRel:     http.StatusConflict,
	voting.ErrDaoHicCannotBeSmt:        http.StatusConflict,
	voters.ErrSetFull:                  http.StatusConflict,
	badge.ErrAlreadyMinted:             http.StatusConflict,
	badge.ErrAlreadyClaimed:            http.StatusConflict,
	badge.ErrTransferWhileActive:       http.StatusConflict,
	registry.ErrNonContiguousIteration: http.StatusConflict,
	registry.ErrNonContiguousRound:     http.StatusConflict,
	registry.ErrMaxRounds:              http.StatusConflict,
	registry.ErrContractReused:         http.StatusConflict,
	registry.ErrRoundImmutable:         http.StatusConflict,
	adapter.ErrAdapterExists:           http.StatusConflict,
	service.ErrStaleNonce:              http.StatusConflict,
	service.ErrRegistryExists:          http.StatusConflict,

	voting.ErrZeroAddress:        http.StatusBadRequest,
	voting.ErrInvalidVotingMode:  http.StatusBadRequest,
	models.ErrUnknownVotingMode:  http.StatusBadRequest,
	adapter.ErrInvalidEntityID:   http.StatusBadRequest,
	adapter.ErrContractMismatch:  http.StatusBadRequest,
	adapter.ErrNoBadge:           http.StatusBadRequest,
	badge.ErrInvalidBadge:        http.StatusBadRequest,
	service.ErrUnknownMethod:     http.StatusBadRequest,
	service.ErrWrongTarget:       http.StatusBadRequest,
	service.ErrBadArgument:       http.StatusBadRequest,
	service.ErrUnknownGeneration: http.StatusBadRequest,
	signing.ErrInvalidKey:        http.StatusBadRequest,

	service.ErrQueueFull:     http.StatusServiceUnavailable,
	service.ErrQueueStopped:  http.StatusServiceUnavailable,
	context.DeadlineExceeded: http.StatusGatewayTimeout,
}

// statusOf maps a domain error to its HTTP status.
func statusOf(err error) int {
	if code, ok := errStatus[errors.Cause(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError reports err as {"error": <condition>, "detail": <message>}.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, code, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, code, errorResponse{Error: errors.Cause(err).Error(), Detail: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
