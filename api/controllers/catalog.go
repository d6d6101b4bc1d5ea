package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bowenSteve/kipsunya-biz/api/responses"
	"github.com/bowenSteve/kipsunya-biz/internal/catalog"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
)

func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := catalog.ListFilter{
			Category:   strings.TrimSpace(r.URL.Query().Get("category")),
			Search:     strings.TrimSpace(r.URL.Query().Get("search")),
			OnlyActive: true,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("vendor_id")); raw != "" {
			vendorID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid vendor id"))
				return
			}
			filter.VendorID = &vendorID
		}

		result, err := svc.List(r.Context(), filter, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := int64Param(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}
