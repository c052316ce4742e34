package service

import (
	"encoding/json"
	"net/http"

	"github.com/arashthr/markcentral/internal/auth"
	"github.com/arashthr/markcentral/internal/auth/context/loggercontext"
	"github.com/arashthr/markcentral/internal/auth/context/usercontext"
	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/ratelimit"
)

type Users struct {
	UserService    *auth.UserService
	SessionService *auth.SessionService
	SignInLimiter  *ratelimit.RateLimiter
}

type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

func mapUser(user *auth.User) userResponse {
	return userResponse{
		ID:            string(user.ID),
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
	}
}

func (u *Users) SignUp(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	var data struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
		})
		return
	}
	if data.Email == "" || len(data.Password) < 8 {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_CREDENTIALS",
			Message: "Email and a password of at least 8 characters are required",
		})
		return
	}

	user, err := u.UserService.SignUp(r.Context(), data.Email, data.Password)
	if err != nil {
		if errors.Is(err, errors.ErrEmailTaken) {
			writeErrorResponse(w, http.StatusConflict, ErrorResponse{
				Code:    "EMAIL_TAKEN",
				Message: "That email address is already taken",
			})
			return
		}
		logger.Errorw("sign up failed", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "SIGNUP_FAILED",
			Message: "Could not create the account",
		})
		return
	}
	logger.Infow("create user success", "email", user.Email)
	writeResponse(w, mapUser(user))
}

func (u *Users) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	var data struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
		})
		return
	}

	user, err := u.UserService.VerifyEmail(r.Context(), data.Email, data.Code)
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrCodeExpired):
			writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
				Code:    "CODE_EXPIRED",
				Message: "The verification code has expired",
			})
		case errors.Is(err, errors.ErrInvalidCode):
			writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
				Code:    "INVALID_CODE",
				Message: "The verification code is not valid",
			})
		default:
			logger.Errorw("verify email failed", "error", err)
			writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
				Code:    "VERIFY_FAILED",
				Message: "Could not verify the account",
			})
		}
		return
	}

	session, err := u.SessionService.Create(r.Context(), user.ID)
	if err != nil {
		logger.Errorw("create session after verification", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "SESSION_FAILED",
			Message: "Account verified, sign in to continue",
		})
		return
	}
	auth.SetCookie(w, auth.CookieSession, session.Token)
	writeResponse(w, mapUser(user))
}

func (u *Users) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
		})
		return
	}
	// Silent for unknown addresses.
	_ = u.UserService.ResendVerification(r.Context(), data.Email)
	writeResponse(w, struct{}{})
}

func (u *Users) SignIn(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())

	if u.SignInLimiter != nil {
		ip := ratelimit.GetClientIP(r)
		if !u.SignInLimiter.Allow(ip) {
			logger.Infow("sign in rate limited", "ip", ip)
			writeErrorResponse(w, http.StatusTooManyRequests, ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "Too many attempts, try again later",
			})
			return
		}
	}

	var data struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
		})
		return
	}

	user, err := u.UserService.Authenticate(r.Context(), data.Email, data.Password)
	if err != nil {
		if errors.Is(err, errors.ErrNotVerified) {
			writeErrorResponse(w, http.StatusForbidden, ErrorResponse{
				Code:    "NOT_VERIFIED",
				Message: "Verify your email address first",
			})
			return
		}
		logger.Infow("sign in failed", "error", err)
		writeErrorResponse(w, http.StatusUnauthorized, ErrorResponse{
			Code:    "INVALID_CREDENTIALS",
			Message: "Email address or password is incorrect",
		})
		return
	}

	session, err := u.SessionService.Create(r.Context(), user.ID)
	if err != nil {
		logger.Errorw("sign in process failed", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "SESSION_FAILED",
			Message: "Sign in process failed",
		})
		return
	}
	auth.SetCookie(w, auth.CookieSession, session.Token)
	writeResponse(w, mapUser(user))
}

func (u *Users) SignOut(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	token, err := auth.ReadCookie(r, auth.CookieSession)
	if err != nil {
		writeResponse(w, struct{}{})
		return
	}
	if err := u.SessionService.Delete(r.Context(), token); err != nil {
		logger.Errorw("sign out failed", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "SIGNOUT_FAILED",
			Message: "Could not end the session",
		})
		return
	}
	auth.DeleteCookie(w, auth.CookieSession)
	writeResponse(w, struct{}{})
}

func (u *Users) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	var data struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
		})
		return
	}
	if err := u.UserService.StartPasswordReset(r.Context(), data.Email); err != nil {
		logger.Errorw("start password reset", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "RESET_FAILED",
			Message: "Could not start the password reset",
		})
		return
	}
	writeResponse(w, struct{}{})
}

func (u *Users) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	var data struct {
		Email    string `json:"email"`
		Code     string `json:"code"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
		})
		return
	}
	if len(data.Password) < 8 {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_CREDENTIALS",
			Message: "A password of at least 8 characters is required",
		})
		return
	}

	if err := u.UserService.ResetPassword(r.Context(), data.Email, data.Code, data.Password); err != nil {
		switch {
		case errors.Is(err, errors.ErrCodeExpired):
			writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
				Code:    "CODE_EXPIRED",
				Message: "The reset code has expired",
			})
		case errors.Is(err, errors.ErrInvalidCode):
			writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
				Code:    "INVALID_CODE",
				Message: "The reset code is not valid",
			})
		default:
			logger.Errorw("reset password failed", "error", err)
			writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
				Code:    "RESET_FAILED",
				Message: "Could not reset the password",
			})
		}
		return
	}
	writeResponse(w, struct{}{})
}

func (u *Users) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	writeResponse(w, mapUser(user))
}
