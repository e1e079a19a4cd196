// filename: internal/api/routes/analyze_test.go
package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sigscope/sigscope/internal/analyzer"
	"github.com/sigscope/sigscope/internal/common/config"
	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/decoder"
)

// createTestLogger создает logger для тестов
func createTestLogger(t *testing.T) *logging.Logger {
	cfg := logging.Config{
		Level:  "error",
		Format: "json",
		Output: "stdout",
	}
	logger, err := logging.NewLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

// createTestAnalyzer создает анализатор с историей в памяти
func createTestAnalyzer(t *testing.T) *analyzer.Analyzer {
	logger := createTestLogger(t)
	cfg := config.AnalyzerConfig{
		HistoryCapacity:      100,
		LargeMessageSize:     10000,
		HighComplexityScore:  80,
		RecommendComplexity:  70,
		MessageRateThreshold: 100,
		ErrorRunThreshold:    5,
	}
	return analyzer.NewAnalyzer(decoder.NewDecoder(logger), analyzer.NewMemoryHistory(100), nil, cfg, logger)
}

// performJSON выполняет запрос с JSON телом через gin контекст
func performJSON(t *testing.T, handler gin.HandlerFunc, method string, body interface{}) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, "/", &buf)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler(c)
	return w
}

func TestAnalyzeMessageEndpoint(t *testing.T) {
	handler := NewAnalyzeHandler(createTestLogger(t), createTestAnalyzer(t))

	w := performJSON(t, handler.AnalyzeMessage, http.MethodPost, AnalyzeRequest{
		RawMessage: "RRCSetupRequest ue=12345 rnti=0x4601 tid=1",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Неожиданный статус код: получен %d, ожидался %d", w.Code, http.StatusOK)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}

	if _, exists := response["id"]; !exists {
		t.Error("В ответе отсутствует поле id")
	}
	if _, exists := response["metrics"]; !exists {
		t.Error("В ответе отсутствует поле metrics")
	}

	decoded, ok := response["decoded"].(map[string]interface{})
	if !ok {
		t.Fatal("В ответе отсутствует поле decoded")
	}
	if decoded["message_type"] != "RRCSetupRequest" {
		t.Errorf("Неожиданный тип сообщения: %v", decoded["message_type"])
	}
}

func TestAnalyzeMessageMissingBody(t *testing.T) {
	handler := NewAnalyzeHandler(createTestLogger(t), createTestAnalyzer(t))

	w := performJSON(t, handler.AnalyzeMessage, http.MethodPost, map[string]string{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Ожидался статус %d, получен %d", http.StatusBadRequest, w.Code)
	}
}

func TestDecodeMessageEndpoint(t *testing.T) {
	handler := NewAnalyzeHandler(createTestLogger(t), createTestAnalyzer(t))

	w := performJSON(t, handler.DecodeMessage, http.MethodPost, DecodeRequest{
		RawMessage: "MAC PDU lcid=5 h_id=3 mcs=10",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Неожиданный статус код: %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}

	if response["message_type"] != "MACPDU" {
		t.Errorf("Неожиданный тип сообщения: %v", response["message_type"])
	}
}

func TestGetStatsEndpoint(t *testing.T) {
	a := createTestAnalyzer(t)
	handler := NewAnalyzeHandler(createTestLogger(t), a)

	w := performJSON(t, handler.GetStats, http.MethodGet, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Неожиданный статус код: %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}

	if total, ok := response["total_messages"].(float64); !ok || total != 0 {
		t.Errorf("Ожидалось 0 сообщений в пустой истории, получено %v", response["total_messages"])
	}
}

func TestGetMetricsEndpoint(t *testing.T) {
	a := createTestAnalyzer(t)
	handler := NewAnalyzeHandler(createTestLogger(t), a)

	performJSON(t, handler.AnalyzeMessage, http.MethodPost, AnalyzeRequest{
		RawMessage: "RRCSetupRequest ue=12345 rnti=0x4601 tid=1",
	})

	w := performJSON(t, handler.GetMetrics, http.MethodGet, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Неожиданный статус код: %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}

	if count, ok := response["count"].(float64); !ok || count != 1 {
		t.Errorf("Ожидалась 1 запись индекса метрик, получено %v", response["count"])
	}
	entries, ok := response["metrics"].([]interface{})
	if !ok || len(entries) != 1 {
		t.Fatalf("Ожидался список из 1 записи индекса, получено %v", response["metrics"])
	}
	entry, ok := entries[0].(map[string]interface{})
	if !ok || entry["message_type"] != "RRCSetupRequest" {
		t.Errorf("Неожиданная запись индекса метрик: %v", entries[0])
	}
}

func TestGetRulesEndpoint(t *testing.T) {
	handler := NewAnalyzeHandler(createTestLogger(t), createTestAnalyzer(t))

	w := performJSON(t, handler.GetRules, http.MethodGet, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Неожиданный статус код: %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}

	// По умолчанию действуют четыре встроенных правила
	if count, ok := response["count"].(float64); !ok || count != 4 {
		t.Errorf("Ожидалось 4 правила, получено %v", response["count"])
	}
}

func TestClearHistoryEndpoint(t *testing.T) {
	handler := NewAnalyzeHandler(createTestLogger(t), createTestAnalyzer(t))

	w := performJSON(t, handler.ClearHistory, http.MethodDelete, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Неожиданный статус код: %d", w.Code)
	}
}
