package handlers_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/entitlekit/adapters/gin/handlers"
	"github.com/open-rails/entitlekit/entitlements"
	"github.com/open-rails/entitlekit/lifecycle"
	"github.com/open-rails/entitlekit/rules"
	memorystore "github.com/open-rails/entitlekit/storage/memory"
)

// downStore fails every type insert the way a lost database connection
// would, raw driver detail included.
type downStore struct {
	*memorystore.Store
}

func (s *downStore) CreateType(context.Context, *entitlements.Type) error {
	return errors.New("connect: connection refused (SQLSTATE 08006)")
}

func TestCreateTypeEndpointStorageFailureStaysGeneric(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := &downStore{Store: memorystore.New()}
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := lifecycle.NewService(store, log)

	admin := uuid.New()
	store.AddUser(admin)

	r := gin.New()
	handlers.Mount(r, svc, nil, testSecret)

	e := &testEnv{router: r, store: store.Store, svc: svc, admin: admin}
	w := e.do(t, http.MethodPost, "/api/admin/entitlement-types", signToken(t, admin, "ADMIN"),
		gin.H{"name": "coffee voucher"})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500; body = %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if strings.Contains(body, "SQLSTATE") || strings.Contains(body, "refused") {
		t.Errorf("storage detail leaked to the client: %s", body)
	}
	if !strings.Contains(body, "internal_error") {
		t.Errorf("body = %s, want generic internal_error", body)
	}
}

func TestCreateTypeEndpointValidationStaysSpecific(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/admin/entitlement-types", signToken(t, e.admin, "ADMIN"), gin.H{
		"name": "coffee voucher",
		"redemptionRules": rules.RuleSet{
			Locations: []rules.Location{{Lat: 0, Lng: 0, Radius: 0}},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "radius") {
		t.Errorf("body = %s, want the validation message", w.Body.String())
	}
}
