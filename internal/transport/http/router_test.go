package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"facepay/internal/auth"
	"facepay/internal/facepay"
	ledgermodels "facepay/internal/ledger/models"
	ledgerservice "facepay/internal/ledger/service"
	ledgerstore "facepay/internal/ledger/store"
	registryservice "facepay/internal/registry/service"
	registrystore "facepay/internal/registry/store"
	"facepay/pkg/domain"
)

const adminKey = "test-admin-key"

type RouterSuite struct {
	suite.Suite
	server   *httptest.Server
	tokens   *auth.TokenService
	registry *registryservice.Service
	adminCap domain.AdminCap
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.adminCap = domain.MintAdminCap()
	s.tokens = auth.NewTokenService("test-signing-key", "facepay")

	s.registry = registryservice.New(registrystore.NewMemoryStore(), s.adminCap, registryservice.WithLogger(log))
	ledgerSvc := ledgerservice.New(
		ledgerstore.NewMemoryStore(ledgermodels.NewSystem(time.Now().UTC())),
		ledgerstore.NewMemoryTx(),
		s.registry,
		s.adminCap,
		ledgerservice.WithLogger(log),
	)
	facepaySvc := facepay.New(s.registry, ledgerSvc, facepay.WithLogger(log))

	router := NewRouter(Deps{
		Registry:    s.registry,
		Payments:    facepaySvc,
		Receipts:    ledgerSvc,
		Admin:       ledgerSvc,
		Validator:   s.tokens,
		Logger:      log,
		AdminCap:    s.adminCap,
		AdminAPIKey: adminKey,
		Health: map[string]HealthChecker{
			"self": func(context.Context) error { return nil },
		},
	})
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

func (s *RouterSuite) request(method, path, token string, body any) *http.Response {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.server.URL+path, buf)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) adminRequest(method, path, key string, body any) *http.Response {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.server.URL+path, buf)
	s.Require().NoError(err)
	if key != "" {
		req.Header.Set("X-Admin-Key", key)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) decode(resp *http.Response, dst any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(dst))
}

func (s *RouterSuite) tokenFor(addr domain.Address) string {
	token, err := s.tokens.Issue(addr, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) registerProfile(token, fingerprint, name string) map[string]any {
	resp := s.request(http.MethodPost, "/registry/profiles", token, map[string]any{
		"fingerprint":  fingerprint,
		"display_name": name,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var profile map[string]any
	s.decode(resp, &profile)
	return profile
}

func (s *RouterSuite) TestHealthz() {
	resp, err := s.server.Client().Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestAuthRequired() {
	paths := []string{"/registry/profiles/fingerprint/f1", "/payments/receipts", "/payments/balance"}
	for _, path := range paths {
		resp := s.request(http.MethodGet, path, "", nil)
		resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp := s.request(http.MethodGet, "/payments/receipts", "garbage-token", nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestRegisterAndLookup() {
	token := s.tokenFor("0xALICE")
	profile := s.registerProfile(token, "f1", "Alice")
	s.Equal("SUI", profile["preferred_asset"])

	s.Run("duplicate registration is 409", func() {
		resp := s.request(http.MethodPost, "/registry/profiles", token, map[string]any{
			"fingerprint": "f1",
		})
		defer resp.Body.Close()
		s.Equal(http.StatusConflict, resp.StatusCode)

		var errBody map[string]string
		s.decode(resp, &errBody)
		s.Equal("duplicate_identity", errBody["error"])
	})

	s.Run("fingerprint lookup", func() {
		resp := s.request(http.MethodGet, "/registry/profiles/fingerprint/f1", token, nil)
		s.Equal(http.StatusOK, resp.StatusCode)
		var got map[string]any
		s.decode(resp, &got)
		s.Equal(profile["id"], got["id"])
	})

	s.Run("unknown fingerprint is 404", func() {
		resp := s.request(http.MethodGet, "/registry/profiles/fingerprint/nope", token, nil)
		resp.Body.Close()
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})

	s.Run("stats count registrations", func() {
		resp := s.request(http.MethodGet, "/registry/stats", token, nil)
		var stats map[string]uint64
		s.decode(resp, &stats)
		s.Equal(uint64(1), stats["registered_profiles"])
	})
}

func (s *RouterSuite) TestUpdatePreferences() {
	alice := s.tokenFor("0xALICE")
	profile := s.registerProfile(alice, "f1", "Alice")
	path := fmt.Sprintf("/registry/profiles/%s/preferences", profile["id"])

	s.Run("owner updates", func() {
		resp := s.request(http.MethodPatch, path, alice, map[string]any{
			"preferred_asset": "usdc",
		})
		s.Equal(http.StatusOK, resp.StatusCode)
		var got map[string]any
		s.decode(resp, &got)
		s.Equal("USDC", got["preferred_asset"])
	})

	s.Run("non-owner is 403", func() {
		mallory := s.tokenFor("0xMALLORY")
		resp := s.request(http.MethodPatch, path, mallory, map[string]any{
			"display_name": "Hijacked",
		})
		resp.Body.Close()
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("empty update is 400", func() {
		resp := s.request(http.MethodPatch, path, alice, map[string]any{})
		resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *RouterSuite) TestPaymentFlow() {
	alice := s.tokenFor("0xALICE")
	s.registerProfile(alice, "f1", "Alice")
	bob := s.tokenFor("0xBOB")

	var receiptID string
	s.Run("pay by fingerprint", func() {
		resp := s.request(http.MethodPost, "/payments", bob, map[string]any{
			"fingerprint": "f1",
			"asset":       "SUI",
			"amount":      1_000_000,
		})
		s.Require().Equal(http.StatusCreated, resp.StatusCode)
		var receipt map[string]any
		s.decode(resp, &receipt)
		s.Equal("completed", receipt["status"])
		s.Equal(float64(3_000), receipt["fee"])
		s.Equal(float64(997_000), receipt["net_amount"])
		receiptID = receipt["id"].(string)
	})

	s.Run("self payment is 422", func() {
		resp := s.request(http.MethodPost, "/payments", alice, map[string]any{
			"fingerprint": "f1",
			"asset":       "SUI",
			"amount":      1_000,
		})
		defer resp.Body.Close()
		s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		var errBody map[string]string
		s.decode(resp, &errBody)
		s.Equal("self_payment_not_allowed", errBody["error"])
	})

	s.Run("recipient balance reflects the net", func() {
		resp := s.request(http.MethodGet, "/payments/balance?asset=SUI", alice, nil)
		s.Equal(http.StatusOK, resp.StatusCode)
		var balance map[string]any
		s.decode(resp, &balance)
		s.Equal(float64(997_000), balance["amount"])
	})

	s.Run("sender sees their receipt", func() {
		resp := s.request(http.MethodGet, "/payments/receipts/"+receiptID, bob, nil)
		resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)
	})

	s.Run("others cannot read the receipt", func() {
		resp := s.request(http.MethodGet, "/payments/receipts/"+receiptID, alice, nil)
		resp.Body.Close()
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})

	s.Run("receipt listing filters by status", func() {
		resp := s.request(http.MethodGet, "/payments/receipts?status=completed", bob, nil)
		s.Equal(http.StatusOK, resp.StatusCode)
		var body map[string][]map[string]any
		s.decode(resp, &body)
		s.Len(body["receipts"], 1)

		resp = s.request(http.MethodGet, "/payments/receipts?status=failed", bob, nil)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.decode(resp, &body)
		s.Empty(body["receipts"])
	})
}

func (s *RouterSuite) TestSwapPaymentRefunds() {
	alice := s.tokenFor("0xALICE")
	s.registerProfile(alice, "f1", "Alice")
	bob := s.tokenFor("0xBOB")

	resp := s.request(http.MethodPost, "/payments/swap", bob, map[string]any{
		"fingerprint":  "f1",
		"asset":        "SUI",
		"amount":       50_000,
		"slippage_bps": 100,
		"deadline":     time.Now().Add(time.Minute).Format(time.RFC3339),
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var receipt map[string]any
	s.decode(resp, &receipt)
	s.Equal("failed", receipt["status"])
	s.Equal(true, receipt["swap_requested"])

	// The sender got the full amount back.
	resp = s.request(http.MethodGet, "/payments/balance?asset=SUI", bob, nil)
	var balance map[string]any
	s.decode(resp, &balance)
	s.Equal(float64(50_000), balance["amount"])
}

func (s *RouterSuite) TestAdminEndpoints() {
	alice := s.tokenFor("0xALICE")
	profile := s.registerProfile(alice, "f1", "Alice")

	s.Run("missing key is 401", func() {
		resp := s.adminRequest(http.MethodGet, "/admin/stats", "", nil)
		resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("wrong key is 401", func() {
		resp := s.adminRequest(http.MethodGet, "/admin/stats", "wrong", nil)
		resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("verification flips with the right key", func() {
		path := fmt.Sprintf("/admin/profiles/%s/verification", profile["id"])
		resp := s.adminRequest(http.MethodPost, path, adminKey, map[string]any{"verified": true})
		s.Equal(http.StatusOK, resp.StatusCode)
		var got map[string]any
		s.decode(resp, &got)
		s.Equal(true, got["verified"])
	})

	s.Run("asset lifecycle", func() {
		resp := s.adminRequest(http.MethodPost, "/admin/assets", adminKey, map[string]any{
			"asset":   "USDC",
			"minimum": 100,
		})
		resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)

		resp = s.adminRequest(http.MethodDelete, "/admin/assets/USDC", adminKey, nil)
		resp.Body.Close()
		s.Equal(http.StatusNoContent, resp.StatusCode)

		resp = s.adminRequest(http.MethodDelete, "/admin/assets/SUI", adminKey, nil)
		resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("fee rate ceiling maps to 422", func() {
		resp := s.adminRequest(http.MethodPut, "/admin/fee-rate", adminKey, map[string]any{"bps": 1001})
		resp.Body.Close()
		s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	})

	s.Run("stats snapshot", func() {
		resp := s.adminRequest(http.MethodGet, "/admin/stats", adminKey, nil)
		s.Equal(http.StatusOK, resp.StatusCode)
		var sys map[string]any
		s.decode(resp, &sys)
		s.Contains(sys, "fee_rate_bps")
		s.Contains(sys, "assets")
	})
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	adminCap := domain.MintAdminCap()
	registry := registryservice.New(registrystore.NewMemoryStore(), adminCap)
	ledgerSvc := ledgerservice.New(
		ledgerstore.NewMemoryStore(ledgermodels.NewSystem(time.Now().UTC())),
		ledgerstore.NewMemoryTx(), registry, adminCap,
	)
	router := NewRouter(Deps{
		Registry:  registry,
		Payments:  facepay.New(registry, ledgerSvc),
		Receipts:  ledgerSvc,
		Admin:     ledgerSvc,
		Validator: auth.NewTokenService("k", "facepay"),
		Logger:    log,
		AdminCap:  adminCap,
	})
	server := httptest.NewServer(router)
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/admin/stats", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Admin-Key", "anything")
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unmounted admin routes, got %d", resp.StatusCode)
	}
}
