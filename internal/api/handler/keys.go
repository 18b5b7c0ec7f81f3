package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mw "github.com/kiranshivaraju/keyserver/internal/api/middleware"
	"github.com/kiranshivaraju/keyserver/internal/api/response"
	"github.com/kiranshivaraju/keyserver/internal/keys"
	"github.com/kiranshivaraju/keyserver/pkg/models"
)

// KeyService defines the interface the handlers depend on.
type KeyService interface {
	Add(ctx context.Context, p keys.AddParams) (*models.ActivationKey, error)
	Verify(ctx context.Context, key, machineID string) (*models.Verification, error)
	Remove(ctx context.Context, p keys.RemoveParams) (int, error)
	List(ctx context.Context, admin string) ([]*models.ActivationKey, error)
	BuyLink() (string, error)
}

type verifyRequest struct {
	Key       string `json:"key" validate:"required"`
	MachineID string `json:"machine_id"`
}

type addRequest struct {
	ActivationKey string `json:"activation_key" validate:"required"`
	UserEmail     string `json:"user_email" validate:"required"`
	Admin         string `json:"admin" validate:"required"`
	Expires       string `json:"expires"`
}

type tableRequest struct {
	Admin string `json:"admin"`
}

type removeRequest struct {
	UserEmail  string `json:"user_email" validate:"required"`
	Admin      string `json:"admin" validate:"required"`
	SpecifyKey string `json:"specify_key"`
}

// NewVerifyHandler returns an http.HandlerFunc for POST /api/verify.
func NewVerifyHandler(svc KeyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		if !decodeOrReject(w, r, &req, "Missing activation key") {
			return
		}

		v, err := svc.Verify(r.Context(), req.Key, req.MachineID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, http.StatusOK, v)
	}
}

// NewAddHandler returns an http.HandlerFunc for POST /api/add.
func NewAddHandler(svc KeyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addRequest
		if !decodeOrReject(w, r, &req, "Missing activation_key, user_email, or admin") {
			return
		}

		k, err := svc.Add(r.Context(), keys.AddParams{
			Key:       req.ActivationKey,
			UserEmail: req.UserEmail,
			Admin:     req.Admin,
			Expires:   req.Expires,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Text(w, http.StatusCreated, fmt.Sprintf(
			"Activation key added: %s, for user %s at %s, Expires at %s",
			k.Key, k.UserEmail, formatTime(k.DateCreated), formatTime(k.ExpiresAt)))
	}
}

// NewTableHandler returns an http.HandlerFunc for POST /api/table.
func NewTableHandler(svc KeyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tableRequest
		if !decodeOrReject(w, r, &req, "") {
			return
		}

		all, err := svc.List(r.Context(), req.Admin)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if len(all) == 0 {
			response.NoContent(w)
			return
		}
		response.JSON(w, http.StatusOK, all)
	}
}

// NewRemoveHandler returns an http.HandlerFunc for DELETE /api/delete.
func NewRemoveHandler(svc KeyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req removeRequest
		if !decodeOrReject(w, r, &req, "Missing user_email or admin") {
			return
		}

		if _, err := svc.Remove(r.Context(), keys.RemoveParams{
			UserEmail:  req.UserEmail,
			Admin:      req.Admin,
			SpecifyKey: req.SpecifyKey,
		}); err != nil {
			writeError(w, r, err)
			return
		}
		response.Text(w, http.StatusOK, fmt.Sprintf("Activation key(s) removed for user %s", req.UserEmail))
	}
}

// NewBuyLinkHandler returns an http.HandlerFunc for GET /where-buy.
func NewBuyLinkHandler(svc KeyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link, err := svc.BuyLink()
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]string{"link": link})
	}
}

// decodeOrReject decodes and validates the body, answering 400 itself when
// that fails.
func decodeOrReject(w http.ResponseWriter, r *http.Request, dst any, missingMsg string) bool {
	missing, err := decode(r, dst)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if len(missing) > 0 {
		response.Error(w, http.StatusBadRequest, missingMsg)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var kerr *keys.Error
	if !errors.As(err, &kerr) {
		requestID, _ := mw.GetRequestID(r)
		slog.Error("request failed", "error", err, "path", r.URL.Path, "request_id", requestID)
		response.Error(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	switch {
	case errors.Is(err, keys.ErrBadRequest):
		response.Error(w, http.StatusBadRequest, kerr.Message)
	case errors.Is(err, keys.ErrUnauthorized), errors.Is(err, keys.ErrForbidden):
		response.Error(w, http.StatusForbidden, kerr.Message)
	case errors.Is(err, keys.ErrNotFound):
		response.Error(w, http.StatusNotFound, kerr.Message)
	case errors.Is(err, keys.ErrConflict):
		response.Error(w, http.StatusConflict, kerr.Message)
	default:
		response.Error(w, http.StatusInternalServerError, kerr.Message)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
