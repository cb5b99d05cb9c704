package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupRouterTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.L = zap.NewNop()

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	cfg := &config.Config{}
	cfg.Timeline.TrustedDomains = []string{"cdn.sarvcast.ir"}
	container := provider.NewContainerWithDB(cfg, db)
	return SetupRouter(cfg, container), db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) apiResponse {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func segmentBody(start, end float64, image string) map[string]interface{} {
	return map[string]interface{}{
		"start_time": start,
		"end_time":   end,
		"image_url":  "https://cdn.sarvcast.ir/episodes/" + image + ".jpg",
	}
}

func TestTimelineRoutesSaveAndLookup(t *testing.T) {
	r, db := setupRouterTest(t)
	episode := models.Episode{Title: "Episode 1", Duration: 60}
	if err := db.Create(&episode).Error; err != nil {
		t.Fatalf("create episode failed: %v", err)
	}
	base := fmt.Sprintf("/api/v1/admin/episodes/%d/timeline", episode.ID)

	resp := doJSON(t, r, http.MethodPut, base, map[string]interface{}{
		"segments": []interface{}{segmentBody(0, 30, "a"), segmentBody(30, 60, "b")},
	})
	if resp.StatusCode != 0 {
		t.Fatalf("save want status_code 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}

	resp = doJSON(t, r, http.MethodGet, base+"/at?t=45", nil)
	var row models.TimelineSegment
	if err := json.Unmarshal(resp.Data, &row); err != nil {
		t.Fatalf("unmarshal segment failed: %v", err)
	}
	if row.ImageURL != "https://cdn.sarvcast.ir/episodes/b.jpg" {
		t.Fatalf("unexpected image at 45: %s", row.ImageURL)
	}

	resp = doJSON(t, r, http.MethodGet, base+"/at?t=60", nil)
	if resp.StatusCode != 0 || string(resp.Data) != "null" {
		t.Fatalf("lookup at episode end want success with null data, got %d %s", resp.StatusCode, resp.Data)
	}
}

func TestTimelineLookupInsideGapReturnsNull(t *testing.T) {
	r, db := setupRouterTest(t)
	episode := models.Episode{Title: "Episode gap", Duration: 60}
	if err := db.Create(&episode).Error; err != nil {
		t.Fatalf("create episode failed: %v", err)
	}
	base := fmt.Sprintf("/api/v1/admin/episodes/%d/timeline", episode.ID)

	resp := doJSON(t, r, http.MethodPut, base, map[string]interface{}{
		"segments": []interface{}{segmentBody(0, 25, "a"), segmentBody(30, 60, "b")},
	})
	if resp.StatusCode != 0 {
		t.Fatalf("save want status_code 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}

	resp = doJSON(t, r, http.MethodGet, base+"/at?t=27", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("gap lookup must not be an error, got %d (%s)", resp.StatusCode, resp.Msg)
	}
	if string(resp.Data) != "null" {
		t.Fatalf("gap lookup want null data, got %s", resp.Data)
	}
}

func TestTimelineRoutesRejectInvalidTimelineWithResult(t *testing.T) {
	r, db := setupRouterTest(t)
	episode := models.Episode{Title: "Episode 2", Duration: 60}
	if err := db.Create(&episode).Error; err != nil {
		t.Fatalf("create episode failed: %v", err)
	}
	base := fmt.Sprintf("/api/v1/admin/episodes/%d/timeline", episode.ID)

	resp := doJSON(t, r, http.MethodPut, base, map[string]interface{}{
		"segments": []interface{}{segmentBody(0, 1, "a")},
	})
	if resp.StatusCode != 400 {
		t.Fatalf("invalid timeline want 400 got %d", resp.StatusCode)
	}
	var data struct {
		Result struct {
			Valid  bool `json:"valid"`
			Errors []struct {
				Code string `json:"code"`
			} `json:"errors"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("unmarshal result failed: %v", err)
	}
	if data.Result.Valid || len(data.Result.Errors) == 0 {
		t.Fatalf("expected validation errors in payload, got %s", string(resp.Data))
	}

	var count int64
	db.Model(&models.TimelineSegment{}).Where("episode_id = ?", episode.ID).Count(&count)
	if count != 0 {
		t.Fatalf("rejected timeline must not be stored, got %d rows", count)
	}

	resp = doJSON(t, r, http.MethodGet, "/api/v1/admin/episodes/999/timeline/stats", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("unknown episode want 404 got %d", resp.StatusCode)
	}
}

func TestSettlementRoutesHappyPath(t *testing.T) {
	r, _ := setupRouterTest(t)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/admin/partners", map[string]interface{}{
		"name":           "Ali",
		"email":          "ali@example.com",
		"type":           "influencer",
		"follower_count": 50000,
	})
	if resp.StatusCode != 0 {
		t.Fatalf("create partner want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var partner models.AffiliatePartner
	if err := json.Unmarshal(resp.Data, &partner); err != nil {
		t.Fatalf("unmarshal partner failed: %v", err)
	}
	if partner.Tier != "mid" || partner.Status != "pending" {
		t.Fatalf("unexpected partner: tier=%s status=%s", partner.Tier, partner.Status)
	}

	resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/admin/partners/%d/verify", partner.ID), nil)
	if resp.StatusCode != 0 {
		t.Fatalf("verify partner want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}

	resp = doJSON(t, r, http.MethodPost, "/api/v1/admin/coupons", map[string]interface{}{
		"partner_id":       partner.ID,
		"partner_type":     "influencer",
		"discount_type":    "percentage",
		"discount_value":   "20",
		"commission_type":  "percentage",
		"commission_value": "10",
	})
	if resp.StatusCode != 0 {
		t.Fatalf("create coupon want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var coupon models.CouponCode
	if err := json.Unmarshal(resp.Data, &coupon); err != nil {
		t.Fatalf("unmarshal coupon failed: %v", err)
	}

	redeem := map[string]interface{}{"code": coupon.Code, "user_id": 5, "amount": "100000"}
	resp = doJSON(t, r, http.MethodPost, "/api/v1/admin/coupons/redeem", redeem)
	if resp.StatusCode != 0 {
		t.Fatalf("redeem want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	resp = doJSON(t, r, http.MethodPost, "/api/v1/admin/coupons/redeem", redeem)
	if resp.StatusCode != 409 {
		t.Fatalf("second redeem by same user want 409 got %d", resp.StatusCode)
	}

	resp = doJSON(t, r, http.MethodGet, "/api/v1/admin/payments?status=pending", nil)
	var payments []models.CommissionPayment
	if err := json.Unmarshal(resp.Data, &payments); err != nil {
		t.Fatalf("unmarshal payments failed: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected one pending payment, got %d", len(payments))
	}

	paymentPath := fmt.Sprintf("/api/v1/admin/payments/%d", payments[0].ID)
	resp = doJSON(t, r, http.MethodPost, paymentPath+"/paid", map[string]interface{}{"payment_reference": "TX-1"})
	if resp.StatusCode != 409 {
		t.Fatalf("paying a pending payment want 409 got %d", resp.StatusCode)
	}
	resp = doJSON(t, r, http.MethodPost, paymentPath+"/process", map[string]interface{}{"processor_id": 1})
	if resp.StatusCode != 0 {
		t.Fatalf("process want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	resp = doJSON(t, r, http.MethodPost, paymentPath+"/paid", map[string]interface{}{"payment_reference": "TX-1"})
	if resp.StatusCode != 0 {
		t.Fatalf("paid want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
}
