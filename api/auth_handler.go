package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/raushankrgupta/maternity-matters/utils"
)

const oauthStateCookie = "oauthstate"

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register handles POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Register API]")
	defer flush()

	var req credentialsRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	msg, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, "User registered, activation email sent")
	utils.RespondJSON(rec, http.StatusCreated, messageResponse{Message: msg})
}

// ActivateAccount handles POST /api/auth/activate-account
func (h *Handler) ActivateAccount(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Activate Account API]")
	defer flush()

	var req tokenRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	msg, err := h.auth.ActivateAccount(r.Context(), req.Token)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, "Account activated")
	utils.RespondJSON(rec, http.StatusOK, messageResponse{Message: msg})
}

// ResendActivation handles POST /api/auth/resend-activation
func (h *Handler) ResendActivation(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Resend Activation API]")
	defer flush()

	var req emailRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	msg, err := h.auth.ResendActivation(r.Context(), req.Email)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}
	utils.RespondJSON(rec, http.StatusOK, messageResponse{Message: msg})
}

// Login handles POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Login API]")
	defer flush()

	var req credentialsRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, fmt.Sprintf("Login successful for user %s", session.UserID))
	utils.RespondJSON(rec, http.StatusOK, session)
}

// GoogleLogin handles POST /api/auth/google-login with an ID token obtained
// by the frontend.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Google Login API]")
	defer flush()

	var req googleLoginRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	session, err := h.auth.GoogleLogin(r.Context(), req.IDToken)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, fmt.Sprintf("Google login successful for user %s", session.UserID))
	utils.RespondJSON(rec, http.StatusOK, session)
}

// GoogleRedirect handles GET /api/auth/google/login by redirecting to Google
func (h *Handler) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Google Redirect API]")
	defer flush()

	state, _, err := utils.RandomToken()
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}
	url, err := h.auth.GoogleAuthURL(state)
	if err != nil {
		utils.RespondError(rec, logMessageBuilder, "Google sign-in is not available.", http.StatusNotFound)
		return
	}

	http.SetCookie(rec, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	utils.AddToLogMessage(logMessageBuilder, "Redirecting to Google Auth")
	http.Redirect(rec, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallback handles the redirect back from Google
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Google Callback API]")
	defer flush()

	cookie, err := r.Cookie(oauthStateCookie)
	state := r.FormValue("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		utils.RespondError(rec, logMessageBuilder, "State invalid", http.StatusBadRequest)
		return
	}
	http.SetCookie(rec, &http.Cookie{Name: oauthStateCookie, Path: "/api/auth/google", MaxAge: -1})

	session, err := h.auth.GoogleCallback(r.Context(), r.FormValue("code"))
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, "Successfully signed in with Google")
	utils.RespondJSON(rec, http.StatusOK, session)
}

// RequestReset handles POST /api/auth/request-reset
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Request Reset API]")
	defer flush()

	var req emailRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	msg, err := h.auth.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}
	utils.RespondJSON(rec, http.StatusOK, messageResponse{Message: msg})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Reset Password API]")
	defer flush()

	var req resetPasswordRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	msg, err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, "Password reset")
	utils.RespondJSON(rec, http.StatusOK, messageResponse{Message: msg})
}

// Me handles GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Me API]")
	defer flush()

	claims := ClaimsFromContext(r.Context())
	profile, err := h.auth.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}
	utils.RespondJSON(rec, http.StatusOK, profile)
}
