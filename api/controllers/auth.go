package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bowenSteve/kipsunya-biz/api/responses"
	"github.com/bowenSteve/kipsunya-biz/api/validators"
	"github.com/bowenSteve/kipsunya-biz/internal/identity"
	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty" validate:"omitempty,oneof=customer vendor"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	AccessToken string       `json:"access_token"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       *string    `json:"phone,omitempty"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func AuthRegister(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := enums.UserRoleCustomer
		if payload.Role != "" {
			parsed, err := enums.ParseUserRole(payload.Role)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
				return
			}
			role = parsed
		}

		session, err := svc.Register(r.Context(), identity.RegisterInput{
			Email:     payload.Email,
			Password:  payload.Password,
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
			Phone:     payload.Phone,
			Role:      role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newSessionResponse(session))
	}
}

func AuthLogin(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Login(r.Context(), payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

func AuthMe(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Get(r.Context(), who.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newUserResponse(user))
	}
}

func newSessionResponse(session *identity.Session) sessionResponse {
	if session == nil {
		return sessionResponse{}
	}
	return sessionResponse{
		AccessToken: session.AccessToken,
		User:        newUserResponse(session.User),
	}
}

func newUserResponse(user *models.User) userResponse {
	if user == nil {
		return userResponse{}
	}
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Phone:       user.Phone,
		Role:        string(user.Role),
		LastLoginAt: user.LastLoginAt,
	}
}
