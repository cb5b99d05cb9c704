package response

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return out
}

func TestErrorWithDataAttachesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(RequestIDKey, "req-1")

	ErrorWithData(c, CodeBadRequest, "timeline invalid", gin.H{"result": "x"})

	body := decode(t, w.Body.Bytes())
	if w.Code != 200 || body["status_code"].(float64) != CodeBadRequest {
		t.Fatalf("unexpected envelope: http=%d body=%v", w.Code, body)
	}
	data := body["data"].(map[string]interface{})
	if data["request_id"] != "req-1" || data["result"] != "x" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestFailWrapsScalarData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(RequestIDKey, "req-2")

	appErr := WrapError(CodeConflict, "coupon usage limit reached", errors.New("limit")).WithData(3)
	Fail(c, appErr)

	body := decode(t, w.Body.Bytes())
	data := body["data"].(map[string]interface{})
	if data["data"].(float64) != 3 || data["request_id"] != "req-2" {
		t.Fatalf("scalar data should be wrapped, got %v", data)
	}
	if appErr.Error() != "coupon usage limit reached: limit" {
		t.Fatalf("unexpected error text %q", appErr.Error())
	}
}

func TestBuildPagination(t *testing.T) {
	if p := BuildPagination(2, 20, 41); p.TotalPage != 3 {
		t.Fatalf("total page want 3 got %d", p.TotalPage)
	}
	if p := BuildPagination(1, 0, 41); p.TotalPage != 0 {
		t.Fatalf("zero page size should yield 0 pages, got %d", p.TotalPage)
	}
}
