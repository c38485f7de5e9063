package httptransport

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	ledgermodels "facepay/internal/ledger/models"
	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
)

// AdminService defines the capability-gated ledger operations.
type AdminService interface {
	AddSupportedAsset(ctx context.Context, cap domain.AdminCap, asset domain.Asset, minimum uint64) error
	RemoveSupportedAsset(ctx context.Context, cap domain.AdminCap, asset domain.Asset) error
	SetFeeRate(ctx context.Context, cap domain.AdminCap, bps uint64) error
	WithdrawFees(ctx context.Context, cap domain.AdminCap, to domain.Address, amount uint64) error
	Stats(ctx context.Context) (*ledgermodels.System, error)
}

// AdminHandler serves the operator endpoints. Requests authenticate with the
// X-Admin-Key header; the handler then acts with the process-held capability.
type AdminHandler struct {
	registry RegistryService
	service  AdminService
	logger   *slog.Logger
	cap      domain.AdminCap
	apiKey   string
}

// Register mounts the admin routes. When no API key is configured the
// endpoints are not mounted at all.
func (h *AdminHandler) Register(r chi.Router) {
	if h.apiKey == "" {
		return
	}
	r.Group(func(r chi.Router) {
		r.Use(h.requireKey)
		r.Post("/admin/profiles/{id}/verification", h.handleSetVerified)
		r.Post("/admin/assets", h.handleAddAsset)
		r.Delete("/admin/assets/{asset}", h.handleRemoveAsset)
		r.Put("/admin/fee-rate", h.handleSetFeeRate)
		r.Post("/admin/fees/withdrawals", h.handleWithdrawFees)
		r.Get("/admin/stats", h.handleStats)
	})
}

func (h *AdminHandler) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
			writeError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid admin key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type setVerifiedRequest struct {
	Verified bool `json:"verified"`
}

func (h *AdminHandler) handleSetVerified(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req setVerifiedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	profile, err := h.registry.SetVerified(r.Context(), h.cap, id, req.Verified)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type addAssetRequest struct {
	Asset   string `json:"asset"`
	Minimum uint64 `json:"minimum"`
}

func (h *AdminHandler) handleAddAsset(w http.ResponseWriter, r *http.Request) {
	var req addAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	asset, err := domain.ParseAsset(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.AddSupportedAsset(r.Context(), h.cap, asset, req.Minimum); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"asset": asset, "minimum": req.Minimum})
}

func (h *AdminHandler) handleRemoveAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := domain.ParseAsset(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.RemoveSupportedAsset(r.Context(), h.cap, asset); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setFeeRateRequest struct {
	Bps uint64 `json:"bps"`
}

func (h *AdminHandler) handleSetFeeRate(w http.ResponseWriter, r *http.Request) {
	var req setFeeRateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.SetFeeRate(r.Context(), h.cap, req.Bps); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"bps": req.Bps})
}

type withdrawFeesRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

func (h *AdminHandler) handleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	var req withdrawFeesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.WithdrawFees(r.Context(), h.cap, to, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"to": to, "amount": req.Amount})
}

func (h *AdminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	system, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, system)
}
