package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	registrymodels "facepay/internal/registry/models"
	registryservice "facepay/internal/registry/service"
	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
	"facepay/pkg/requestcontext"
)

// RegistryService defines the registry operations the transport exposes.
type RegistryService interface {
	Register(ctx context.Context, params registryservice.RegisterParams) (*registrymodels.Profile, error)
	LookupByFingerprint(ctx context.Context, fp domain.Fingerprint) (*registrymodels.Profile, error)
	LookupByAddress(ctx context.Context, addr domain.Address) (*registrymodels.Profile, error)
	FindByID(ctx context.Context, id domain.ProfileID) (*registrymodels.Profile, error)
	UpdatePreferences(ctx context.Context, profileID domain.ProfileID, requester domain.Address,
		preferredAsset domain.Asset, displayName string) (*registrymodels.Profile, error)
	SetVerified(ctx context.Context, cap domain.AdminCap, profileID domain.ProfileID, verified bool) (*registrymodels.Profile, error)
	Count(ctx context.Context) (uint64, error)
}

// RegistryHandler serves the profile endpoints.
type RegistryHandler struct {
	service RegistryService
	logger  *slog.Logger
}

// Register mounts the registry routes on an authenticated router.
func (h *RegistryHandler) Register(r chi.Router) {
	r.Post("/registry/profiles", h.handleRegister)
	r.Get("/registry/profiles/fingerprint/{fingerprint}", h.handleLookupByFingerprint)
	r.Get("/registry/profiles/address/{address}", h.handleLookupByAddress)
	r.Get("/registry/profiles/{id}", h.handleGetProfile)
	r.Patch("/registry/profiles/{id}/preferences", h.handleUpdatePreferences)
	r.Get("/registry/stats", h.handleStats)
}

type registerRequest struct {
	Fingerprint    string `json:"fingerprint"`
	StorageRef     string `json:"storage_ref"`
	PreferredAsset string `json:"preferred_asset"`
	DisplayName    string `json:"display_name"`
}

func (h *RegistryHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	fp, err := domain.ParseFingerprint(req.Fingerprint)
	if err != nil {
		writeError(w, err)
		return
	}
	var asset domain.Asset
	if req.PreferredAsset != "" {
		if asset, err = domain.ParseAsset(req.PreferredAsset); err != nil {
			writeError(w, err)
			return
		}
	}

	profile, err := h.service.Register(ctx, registryservice.RegisterParams{
		Requester:      requestcontext.Payer(ctx),
		Fingerprint:    fp,
		StorageRef:     req.StorageRef,
		PreferredAsset: asset,
		DisplayName:    req.DisplayName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (h *RegistryHandler) handleLookupByFingerprint(w http.ResponseWriter, r *http.Request) {
	fp, err := domain.ParseFingerprint(chi.URLParam(r, "fingerprint"))
	if err != nil {
		writeError(w, err)
		return
	}
	profile, err := h.service.LookupByFingerprint(r.Context(), fp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *RegistryHandler) handleLookupByAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, err)
		return
	}
	profile, err := h.service.LookupByAddress(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *RegistryHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	profile, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updatePreferencesRequest struct {
	PreferredAsset string `json:"preferred_asset"`
	DisplayName    string `json:"display_name"`
}

func (h *RegistryHandler) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req updatePreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var asset domain.Asset
	if req.PreferredAsset != "" {
		if asset, err = domain.ParseAsset(req.PreferredAsset); err != nil {
			writeError(w, err)
			return
		}
	}
	if asset.IsZero() && req.DisplayName == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "nothing to update"))
		return
	}

	profile, err := h.service.UpdatePreferences(ctx, id, requestcontext.Payer(ctx), asset, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *RegistryHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"registered_profiles": count})
}
