package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bowenSteve/kipsunya-biz/api/middleware"
	"github.com/bowenSteve/kipsunya-biz/api/validators"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

const sessionIDHeader = "X-Session-Id"

type actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func actorFromRequest(r *http.Request) (actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}
	return actor{UserID: userID, Role: role}, nil
}

func sessionIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(sessionIDHeader))
}

func pageFromRequest(r *http.Request) (types.Page, error) {
	number, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return types.Page{}, err
	}
	size, err := validators.ParseQueryInt(r, "page_size", 20, 1, 100)
	if err != nil {
		return types.Page{}, err
	}
	return types.Page{Number: number, Size: size}, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}
