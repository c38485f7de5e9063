package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	ledgermodels "facepay/internal/ledger/models"
	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
	"facepay/pkg/requestcontext"
)

// PaymentService is the orchestration facade: one call resolves the
// fingerprint and executes the transfer.
type PaymentService interface {
	PayByFingerprint(ctx context.Context, fp domain.Fingerprint, funds domain.Funds) (*ledgermodels.Receipt, error)
	PayByFingerprintWithSwap(ctx context.Context, fp domain.Fingerprint, funds domain.Funds,
		slippageBps uint64, deadline time.Time) (*ledgermodels.Receipt, error)
}

// ReceiptReader serves the payer-facing read endpoints.
type ReceiptReader interface {
	Receipt(ctx context.Context, id domain.ReceiptID) (*ledgermodels.Receipt, error)
	ReceiptsBySender(ctx context.Context, sender domain.Address,
		statuses []ledgermodels.ReceiptStatus) ([]*ledgermodels.Receipt, error)
	Balance(ctx context.Context, addr domain.Address, asset domain.Asset) (uint64, error)
}

// PaymentHandler serves the payment endpoints.
type PaymentHandler struct {
	service  PaymentService
	receipts ReceiptReader
	logger   *slog.Logger
}

// Register mounts the payment routes on an authenticated router.
func (h *PaymentHandler) Register(r chi.Router) {
	r.Post("/payments", h.handlePay)
	r.Post("/payments/swap", h.handlePayWithSwap)
	r.Get("/payments/receipts", h.handleListReceipts)
	r.Get("/payments/receipts/{id}", h.handleGetReceipt)
	r.Get("/payments/balance", h.handleBalance)
}

type payRequest struct {
	Fingerprint string `json:"fingerprint"`
	Asset       string `json:"asset"`
	Amount      uint64 `json:"amount"`
}

func (h *PaymentHandler) handlePay(w http.ResponseWriter, r *http.Request) {
	fp, funds, err := decodePayRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	receipt, err := h.service.PayByFingerprint(r.Context(), fp, funds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

type swapRequest struct {
	Fingerprint string    `json:"fingerprint"`
	Asset       string    `json:"asset"`
	Amount      uint64    `json:"amount"`
	SlippageBps uint64    `json:"slippage_bps"`
	Deadline    time.Time `json:"deadline"`
}

func (h *PaymentHandler) handlePayWithSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	fp, err := domain.ParseFingerprint(req.Fingerprint)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := domain.ParseAsset(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	funds, err := domain.NewFunds(asset, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	receipt, err := h.service.PayByFingerprintWithSwap(r.Context(), fp, funds, req.SlippageBps, req.Deadline)
	if err != nil {
		writeError(w, err)
		return
	}
	// The swap path records a failed receipt and refunds; 201 still applies,
	// the outcome is in the receipt status.
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *PaymentHandler) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sender := requestcontext.Payer(ctx)

	var statuses []ledgermodels.ReceiptStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, ledgermodels.ReceiptStatus(strings.TrimSpace(s)))
		}
	}

	receipts, err := h.receipts.ReceiptsBySender(ctx, sender, statuses)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipts": receipts})
}

func (h *PaymentHandler) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseReceiptID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	receipt, err := h.receipts.Receipt(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	// Receipts belong to the paying participant; others cannot read them.
	if receipt.Sender != requestcontext.Payer(ctx) {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "receipt not found"))
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *PaymentHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asset, err := domain.ParseAsset(r.URL.Query().Get("asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	addr := requestcontext.Payer(ctx)
	amount, err := h.receipts.Balance(ctx, addr, asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr,
		"asset":   asset,
		"amount":  amount,
	})
}

func decodePayRequest(r *http.Request) (domain.Fingerprint, domain.Funds, error) {
	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", domain.Funds{}, err
	}
	fp, err := domain.ParseFingerprint(req.Fingerprint)
	if err != nil {
		return "", domain.Funds{}, err
	}
	asset, err := domain.ParseAsset(req.Asset)
	if err != nil {
		return "", domain.Funds{}, err
	}
	funds, err := domain.NewFunds(asset, req.Amount)
	if err != nil {
		return "", domain.Funds{}, err
	}
	return fp, funds, nil
}
