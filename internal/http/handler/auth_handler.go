package handler

import (
	"net/http"

	"github.com/sandeepkv93/project-tracker-backend/internal/http/middleware"
	"github.com/sandeepkv93/project-tracker-backend/internal/http/response"
	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"github.com/sandeepkv93/project-tracker-backend/internal/service"
)

type AuthHandler struct {
	authSvc service.AuthServiceInterface
}

func NewAuthHandler(authSvc service.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body service.RegisterInput
	if !decodeJSON(w, r, &body) {
		return
	}
	user, err := h.authSvc.Register(r.Context(), body)
	if err != nil {
		observability.Audit(r, observability.AuditInput{
			EventName:  "auth.register",
			TargetType: "user",
			Action:     "register",
			Outcome:    "failure",
			Reason:     registerFailureReason(err),
		})
		writeServiceError(w, r, err, "user")
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "auth.register",
		ActorUserID: user.ID,
		TargetType:  "user",
		TargetID:    user.ID,
		Action:      "register",
		Outcome:     "success",
		Reason:      "user_registered",
	})
	response.JSON(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body service.LoginInput
	if !decodeJSON(w, r, &body) {
		return
	}
	body.ClientIP = middleware.ClientIP(r)
	result, err := h.authSvc.Login(r.Context(), body)
	if err != nil {
		if te, ok := service.IsThrottled(err); ok {
			observability.Audit(r, observability.AuditInput{
				EventName:  "auth.login",
				TargetType: "user",
				Action:     "login",
				Outcome:    "rejected",
				Reason:     "login_throttled",
			})
			w.Header().Set("Retry-After", middleware.RetryAfterHeader(te.RetryAfter))
		}
		writeServiceError(w, r, err, "user")
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

func registerFailureReason(err error) string {
	if _, ok := service.IsValidation(err); ok {
		return "invalid_payload"
	}
	return "register_failed"
}
