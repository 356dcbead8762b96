package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/duel"
	"github.com/osse101/BrandishDuels_Go/internal/logger"
)

// Path and query parameter names
const (
	URLParamChallengeID = "challengeID"
	URLParamMatchID     = "matchID"
	URLParamUserID      = "userID"
	QueryParamLimit     = "limit"
	QueryParamCategory  = "category"
)

// DuelHandler handles duel HTTP endpoints
type DuelHandler struct {
	service duel.Service
}

// NewDuelHandler creates a new duel handler
func NewDuelHandler(service duel.Service) *DuelHandler {
	return &DuelHandler{service: service}
}

// Routes mounts the duel endpoints on r
func (h *DuelHandler) Routes(r chi.Router) {
	r.Route("/challenges", func(r chi.Router) {
		r.Post("/", h.HandleCreateChallenge)
		r.Get("/{challengeID}", h.HandleGetChallenge)
		r.Post("/{challengeID}/respond", h.HandleRespondToChallenge)
		r.Post("/{challengeID}/cancel", h.HandleCancelChallenge)
	})
	r.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.HandleGetMatch)
		r.Post("/{matchID}/actions", h.HandleSubmitAction)
		r.Post("/{matchID}/forfeit", h.HandleForfeit)
	})
	r.Route("/players/{userID}", func(r chi.Router) {
		r.Get("/active", h.HandleGetActive)
		r.Get("/build", h.HandleGetBuild)
		r.Put("/build", h.HandleSaveBuild)
		r.Get("/rating", h.HandleGetRating)
		r.Get("/achievements", h.HandleGetAchievements)
		r.Get("/grants", h.HandleGetRewardGrants)
		r.Get("/rank", h.HandleGetLeaderboardRank)
	})
	r.Get("/leaderboard", h.HandleGetLeaderboard)
}

// CreateChallengeRequest is the request body for issuing a challenge
type CreateChallengeRequest struct {
	ChallengerID string `json:"challenger_id" validate:"required,max=100,excludesall=\x00\n\r\t"`
	OpponentID   string `json:"opponent_id" validate:"required,max=100,excludesall=\x00\n\r\t"`
}

// RespondChallengeRequest is the request body for accepting or declining a challenge
type RespondChallengeRequest struct {
	UserID string `json:"user_id" validate:"required,max=100,excludesall=\x00\n\r\t"`
	Accept *bool  `json:"accept" validate:"required"`
}

// ParticipantRequest identifies the acting user for cancel and forfeit
type ParticipantRequest struct {
	UserID string `json:"user_id" validate:"required,max=100,excludesall=\x00\n\r\t"`
}

// SubmitActionRequest is the request body for a turn action.
// ActionID is optional; resubmitting the same id is rejected as a duplicate.
type SubmitActionRequest struct {
	UserID   string `json:"user_id" validate:"required,max=100,excludesall=\x00\n\r\t"`
	ActionID string `json:"action_id" validate:"max=64"`
	Kind     string `json:"kind" validate:"required,action_kind"`
	SkillID  string `json:"skill_id" validate:"required_if=Kind skill,max=64"`
}

// SaveBuildRequest is the request body for saving a hero build
type SaveBuildRequest struct {
	Element string   `json:"element" validate:"required,element"`
	Rarity  string   `json:"rarity" validate:"required,rarity"`
	Stars   int      `json:"stars" validate:"min=1"`
	Skills  []string `json:"skills" validate:"max=32,dive,required,max=64"`
}

// ChallengeResponse carries a challenge and, once accepted, its match
type ChallengeResponse struct {
	Message   string                `json:"message,omitempty"`
	Challenge *domain.Challenge     `json:"challenge"`
	Match     *domain.MatchSnapshot `json:"match,omitempty"`
}

// ActionResponse is returned for an accepted action
type ActionResponse struct {
	Message string              `json:"message"`
	Outcome *domain.TurnOutcome `json:"outcome"`
}

// ForfeitResponse is returned after a forfeit
type ForfeitResponse struct {
	Message string              `json:"message"`
	Result  *domain.MatchResult `json:"result"`
}

// BuildResponse carries a saved build with its resolved combat stats
type BuildResponse struct {
	Message string                `json:"message,omitempty"`
	Build   *domain.HeroBuild     `json:"build"`
	Stats   *domain.ResolvedStats `json:"stats,omitempty"`
}

// ActiveResponse reports a user's current engagement, if any
type ActiveResponse struct {
	Message    string             `json:"message,omitempty"`
	Engaged    bool               `json:"engaged"`
	Engagement *domain.Engagement `json:"engagement,omitempty"`
}

// HandleCreateChallenge issues a challenge from one player to another
func (h *DuelHandler) HandleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req CreateChallengeRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Create challenge"); err != nil {
		return
	}

	c, err := h.service.CreateChallenge(r.Context(), req.ChallengerID, req.OpponentID)
	if err != nil {
		respondServiceError(w, r, "Create challenge", err)
		return
	}

	logger.FromContext(r.Context()).Info("Challenge created", "challenge_id", c.ID,
		"challenger", c.ChallengerID, "opponent", c.OpponentID)
	respondJSON(w, http.StatusCreated, ChallengeResponse{Message: MsgChallengeCreated, Challenge: c})
}

// HandleGetChallenge returns a pending or recently resolved challenge
func (h *DuelHandler) HandleGetChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok := getUUIDParam(r, w, URLParamChallengeID)
	if !ok {
		return
	}

	c, err := h.service.GetChallenge(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, "Get challenge", err)
		return
	}
	respondJSON(w, http.StatusOK, ChallengeResponse{Challenge: c})
}

// HandleRespondToChallenge accepts or declines a challenge as the opponent
func (h *DuelHandler) HandleRespondToChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok := getUUIDParam(r, w, URLParamChallengeID)
	if !ok {
		return
	}
	var req RespondChallengeRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Respond to challenge"); err != nil {
		return
	}

	c, match, err := h.service.RespondToChallenge(r.Context(), id, req.UserID, *req.Accept)
	if err != nil {
		respondServiceError(w, r, "Respond to challenge", err)
		return
	}

	msg := MsgChallengeDeclined
	if *req.Accept {
		msg = MsgChallengeAccepted
	}
	respondJSON(w, http.StatusOK, ChallengeResponse{Message: msg, Challenge: c, Match: match})
}

// HandleCancelChallenge withdraws a pending challenge as the challenger
func (h *DuelHandler) HandleCancelChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok := getUUIDParam(r, w, URLParamChallengeID)
	if !ok {
		return
	}
	var req ParticipantRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Cancel challenge"); err != nil {
		return
	}

	c, err := h.service.CancelChallenge(r.Context(), id, req.UserID)
	if err != nil {
		respondServiceError(w, r, "Cancel challenge", err)
		return
	}
	respondJSON(w, http.StatusOK, ChallengeResponse{Message: MsgChallengeCanceled, Challenge: c})
}

// HandleGetMatch returns the match snapshot clients resume from
func (h *DuelHandler) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := getUUIDParam(r, w, URLParamMatchID)
	if !ok {
		return
	}

	snap, err := h.service.GetMatch(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, "Get match", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// HandleSubmitAction submits the acting player's choice for the current turn
func (h *DuelHandler) HandleSubmitAction(w http.ResponseWriter, r *http.Request) {
	id, ok := getUUIDParam(r, w, URLParamMatchID)
	if !ok {
		return
	}
	var req SubmitActionRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Submit action"); err != nil {
		return
	}

	action := domain.Action{
		ID:      req.ActionID,
		Kind:    domain.ActionKind(req.Kind),
		SkillID: req.SkillID,
	}
	if action.ID == "" {
		action.ID = uuid.NewString()
	}

	outcome, err := h.service.SubmitAction(r.Context(), id, req.UserID, action)
	if err != nil {
		respondServiceError(w, r, "Submit action", err)
		return
	}
	respondJSON(w, http.StatusOK, ActionResponse{Message: MsgActionAccepted, Outcome: outcome})
}

// HandleForfeit ends the match as a loss for the requesting player
func (h *DuelHandler) HandleForfeit(w http.ResponseWriter, r *http.Request) {
	id, ok := getUUIDParam(r, w, URLParamMatchID)
	if !ok {
		return
	}
	var req ParticipantRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Forfeit match"); err != nil {
		return
	}

	result, err := h.service.Forfeit(r.Context(), id, req.UserID)
	if err != nil {
		respondServiceError(w, r, "Forfeit match", err)
		return
	}
	respondJSON(w, http.StatusOK, ForfeitResponse{Message: MsgMatchForfeited, Result: result})
}

// HandleGetActive reports the user's pending challenge or running match
func (h *DuelHandler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, URLParamUserID)

	e, err := h.service.ActiveFor(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, "Get active duel", err)
		return
	}
	if e == nil {
		respondJSON(w, http.StatusOK, ActiveResponse{Message: MsgNotEngaged})
		return
	}
	respondJSON(w, http.StatusOK, ActiveResponse{Engaged: true, Engagement: e})
}

// HandleGetBuild returns the user's saved hero build
func (h *DuelHandler) HandleGetBuild(w http.ResponseWriter, r *http.Request) {
	build, err := h.service.GetBuild(r.Context(), chi.URLParam(r, URLParamUserID))
	if err != nil {
		respondServiceError(w, r, "Get build", err)
		return
	}
	respondJSON(w, http.StatusOK, BuildResponse{Build: build})
}

// HandleSaveBuild validates and stores the user's hero build
func (h *DuelHandler) HandleSaveBuild(w http.ResponseWriter, r *http.Request) {
	var req SaveBuildRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Save build"); err != nil {
		return
	}

	build := domain.HeroBuild{
		UserID:  chi.URLParam(r, URLParamUserID),
		Element: domain.Element(strings.ToLower(req.Element)),
		Rarity:  domain.Rarity(strings.ToLower(req.Rarity)),
		Stars:   req.Stars,
		Skills:  req.Skills,
	}
	stats, err := h.service.SaveBuild(r.Context(), build)
	if err != nil {
		respondServiceError(w, r, "Save build", err)
		return
	}
	respondJSON(w, http.StatusOK, BuildResponse{Message: MsgBuildSaved, Build: &build, Stats: stats})
}

// HandleGetRating returns the user's ladder record
func (h *DuelHandler) HandleGetRating(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetRating(r.Context(), chi.URLParam(r, URLParamUserID))
	if err != nil {
		respondServiceError(w, r, "Get rating", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// HandleGetAchievements returns the user's achievement progress
func (h *DuelHandler) HandleGetAchievements(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetAchievements(r.Context(), chi.URLParam(r, URLParamUserID))
	if err != nil {
		respondServiceError(w, r, "Get achievements", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// HandleGetRewardGrants returns the user's recent rewards, newest first
func (h *DuelHandler) HandleGetRewardGrants(w http.ResponseWriter, r *http.Request) {
	limit, ok := getLimit(r, w, duel.DefaultLeaderboardLimit, duel.MaxLeaderboardLimit)
	if !ok {
		return
	}

	grants, err := h.service.GetRewardGrants(r.Context(), chi.URLParam(r, URLParamUserID), limit)
	if err != nil {
		respondServiceError(w, r, "Get reward grants", err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: grants})
}

// HandleGetLeaderboard returns the top of the ladder in the requested category
func (h *DuelHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	category, ok := getCategory(r, w)
	if !ok {
		return
	}
	limit, ok := getLimit(r, w, duel.DefaultLeaderboardLimit, duel.MaxLeaderboardLimit)
	if !ok {
		return
	}

	entries, err := h.service.GetLeaderboard(r.Context(), category, limit)
	if err != nil {
		respondServiceError(w, r, "Get leaderboard", err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: entries})
}

// HandleGetLeaderboardRank returns the user's position in the requested category
func (h *DuelHandler) HandleGetLeaderboardRank(w http.ResponseWriter, r *http.Request) {
	category, ok := getCategory(r, w)
	if !ok {
		return
	}

	rank, err := h.service.GetLeaderboardRank(r.Context(), chi.URLParam(r, URLParamUserID), category)
	if err != nil {
		respondServiceError(w, r, "Get leaderboard rank", err)
		return
	}
	respondJSON(w, http.StatusOK, rank)
}
