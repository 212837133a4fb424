package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"propsales-backend/internal/config"
	"propsales-backend/internal/domain"
	"propsales-backend/internal/infrastructure/cache"
	"propsales-backend/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                 "test",
		FrontendURLEndsWith: ".propsales.app",
		HealthAdminKey:      "admin",
	}
}

func buildApp(t *testing.T) (*fiber.App, *Runtime, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb, err := cache.Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	app, rt, err := Build(testConfig(), Deps{DB: db, Rdb: rdb, Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	return app, rt, db
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestBuild_WithoutDatabaseServesHealthOnly(t *testing.T) {
	app, rt, err := Build(testConfig(), Deps{})
	require.NoError(t, err)
	assert.Nil(t, rt.Reconciler)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/unit-transfer/records", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransferLifecycle(t *testing.T) {
	app, rt, db := buildApp(t)
	require.NotNil(t, rt.Reconciler)

	p := domain.Project{Name: "Sunrise"}
	require.NoError(t, db.Create(&p).Error)
	u := domain.Unit{ProjectID: p.ProjectID, Name: "F-3"}
	require.NoError(t, db.Create(&u).Error)
	c := domain.Customer{Name: "Priya Sen", AllottedUnitID: &u.UnitID}
	require.NoError(t, db.Create(&c).Error)
	cid := c.CustomerID.String()

	status, _ := call(t, app, "POST", "/api/v1/transfer-charges", map[string]interface{}{"customer_id": cid})
	assert.Equal(t, http.StatusBadRequest, status)

	status, out := call(t, app, "POST", "/api/v1/transfer-charges", map[string]interface{}{"customer_id": cid, "amount": "5000"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "PENDING", out["data"].(map[string]interface{})["status"])

	status, out = call(t, app, "GET", "/api/v1/is-pay-transfer-charge/"+cid, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, out["data"].(map[string]interface{})["has_transfer_charge"])

	status, out = call(t, app, "POST", "/api/v1/unit-transfer/record", map[string]interface{}{
		"customer_id":    cid,
		"unit_id":        u.UnitID.String(),
		"project_id":     p.ProjectID.String(),
		"amount":         5000,
		"date":           "2024-05-01",
		"mode":           "CHEQUE",
		"cheque_details": map[string]string{"cheque_no": "778899", "bank_name": "ICICI", "date": "2024-05-01"},
		"new_owner":      map[string]string{"name": "Dev Kapoor"},
	})
	require.Equal(t, http.StatusCreated, status, out)
	transferID := out["data"].(map[string]interface{})["transfer_id"].(string)

	status, out = call(t, app, "GET", "/api/v1/transfer-charges/transaction/"+transferID, nil)
	require.Equal(t, http.StatusOK, status)
	detail := out["data"].(map[string]interface{})
	ev := detail["payment_evidence"].(map[string]interface{})
	assert.Equal(t, "CHEQUE", ev["mode"])
	assert.Equal(t, "ICICI", ev["cheque_details"].(map[string]interface{})["bank_name"])
	assert.Equal(t, "Sunrise", detail["unit"].(map[string]interface{})["project_name"])

	status, out = call(t, app, "GET", "/api/v1/owners/unit/"+u.UnitID.String(), nil)
	require.Equal(t, http.StatusOK, status)
	owners := out["data"].([]interface{})
	require.Len(t, owners, 1)
	assert.Equal(t, "Priya Sen", owners[0].(map[string]interface{})["name"])

	status, _ = call(t, app, "GET", "/api/v1/owners/unit/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, out = call(t, app, "GET", "/api/v1/unit-transfer/reconciliation", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, out["data"])

	status, out = call(t, app, "POST", "/api/v1/unit-transfer/reconciliation/scan", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, out["data"].(map[string]interface{})["marked_stale"])

	status, out = call(t, app, "POST", "/api/v1/unit-transfer/reconciliation/"+transferID+"/resolve", map[string]string{"action": "void"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "status", out["field"])

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	metrics, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(metrics), "unit_transfer_created_total 1")
	assert.Contains(t, string(metrics), "transfer_charge_consumed_total 1")
}

func TestReconciliationVoidThroughRoutes(t *testing.T) {
	app, _, db := buildApp(t)

	p := domain.Project{Name: "Sunrise"}
	require.NoError(t, db.Create(&p).Error)
	u := domain.Unit{ProjectID: p.ProjectID, Name: "F-4"}
	require.NoError(t, db.Create(&u).Error)
	c := domain.Customer{Name: "Orphan Owner", AllottedUnitID: &u.UnitID}
	require.NoError(t, db.Create(&c).Error)

	tr := domain.TransferTransaction{
		CustomerID: c.CustomerID,
		UnitID:     u.UnitID,
		NewOwner:   domain.NewOwner{Name: "Buyer"},
		Status:     domain.TransferOrphaned,
	}
	require.NoError(t, tr.SetEvidence(domain.OnlineEvidence{UTRNo: "U1", Method: "RTGS", Date: "2024-05-01"}))
	require.NoError(t, db.Create(&tr).Error)
	id := tr.TransferID.String()

	status, out := call(t, app, "GET", "/api/v1/unit-transfer/reconciliation", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, out["data"], 1)

	status, _ = call(t, app, "POST", "/api/v1/unit-transfer/reconciliation/"+id+"/resolve", map[string]string{"action": "retry"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, out = call(t, app, "POST", "/api/v1/unit-transfer/reconciliation/"+id+"/resolve", map[string]string{"action": "void"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Transfer voided", out["message"])

	status, _ = call(t, app, "GET", "/api/v1/transfer-charges/transaction/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
