package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/qbduel/pkg/logger"
)

const maxVoteBody = 1 << 12

// voteRequest mirrors the body of POST /api/vote.
type voteRequest struct {
	WinnerID int64 `json:"winnerId" validate:"required,gt=0"`
	LoserID  int64 `json:"loserId" validate:"required,gt=0,nefield=WinnerID"`
}

// VoteHandler records decided comparisons.
type VoteHandler struct {
	deps     Dependencies
	validate *validator.Validate
	logger   logger.Logger
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(deps Dependencies, log logger.Logger) *VoteHandler {
	return &VoteHandler{
		deps:     deps,
		validate: validator.New(),
		logger:   log,
	}
}

// HandlePostVote handles POST /api/vote requests.
func (h *VoteHandler) HandlePostVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_vote"
	ctx := r.Context()
	session, ok := SessionFrom(ctx)
	if !ok {
		writeEngineError(ctx, w, h.logger, op, ErrNoSession)
		return
	}

	var req voteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVoteBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid json", ErrBadRequest))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	out, err := h.deps.Vote(ctx, session, req.WinnerID, req.LoserID)
	if err != nil {
		writeEngineError(ctx, w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{
		Winner: newRevealView(out.Winner),
		Loser:  newRevealView(out.Loser),
	})
}
