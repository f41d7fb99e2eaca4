package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snapspend/backend/pkg/config"
)

func TestParseRecord_PlainJSON(t *testing.T) {
	raw := `{"merchant":"Blue Bottle","total":12.50,"currency":"USD","date":"2024-05-03","category":"dining",
		"items":[{"name":"Latte","quantity":2,"price":9.00}]}`

	record, err := ParseRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, "Blue Bottle", record.Merchant)
	assert.Equal(t, "USD", record.Currency)
	assert.Equal(t, "2024-05-03", record.Date.Time.Format("2006-01-02"))
	require.Len(t, record.Items, 1)
	assert.Equal(t, "Latte", record.Items[0].Name)
}

func TestParseRecord_StripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"merchant\":\"Kiosk\",\"total\":3}\n```"

	record, err := ParseRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, "Kiosk", record.Merchant)
}

func TestParseRecord_NumericStringAmounts(t *testing.T) {
	// Vision models flip between numbers and numeric strings.
	raw := `{"merchant":"Kiosk","total":"12.50","items":[{"name":"Water","quantity":"2","price":"5.00"}]}`

	record, err := ParseRecord(raw)
	require.NoError(t, err)
	require.NotNil(t, record.Total)
	assert.Equal(t, "12.5", record.Total.String())
	require.NotNil(t, record.Items[0].Quantity)
	assert.Equal(t, "2", record.Items[0].Quantity.String())
}

func TestParseRecord_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json object", "sorry, I cannot read this image"},
		{"malformed json", `{"merchant": }`},
		{"empty record", `{}`},
		{"negative total", `{"merchant":"Kiosk","total":-5}`},
		{"nameless item", `{"merchant":"Kiosk","items":[{"quantity":1,"price":2}]}`},
		{"negative quantity", `{"merchant":"Kiosk","items":[{"name":"Water","quantity":-1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.raw)
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.raw, schemaErr.RawText)
		})
	}
}

func TestParseRecord_UnparseableDateDegrades(t *testing.T) {
	raw := `{"merchant":"Kiosk","total":5,"date":"sometime last week"}`

	record, err := ParseRecord(raw)
	require.NoError(t, err)
	assert.True(t, record.Date.Time.IsZero())
}

func testService(endpoint string) *Service {
	cfg := &config.Config{}
	cfg.Extraction.Endpoint = endpoint
	cfg.Extraction.Model = "test-model"
	cfg.Extraction.APIKey = "test-key"
	cfg.Extraction.RequestTimeout = 5 * time.Second
	return NewService(cfg, zap.NewNop().Sugar())
}

func TestExtract_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]interface{}{
						{"text": `{"merchant":"Blue Bottle","total":12.50,"currency":"USD"}`},
					},
				}},
			},
			"usageMetadata": map[string]int{
				"promptTokenCount":     100,
				"candidatesTokenCount": 40,
				"totalTokenCount":      140,
			},
		})
	}))
	defer srv.Close()

	result, err := testService(srv.URL).Extract(context.Background(), []byte("fake-image"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "/models/test-model:generateContent", gotPath)
	assert.Equal(t, "Blue Bottle", result.Record.Merchant)
	require.NotNil(t, result.Usage)
	assert.Equal(t, 100, result.Usage.PromptTokens)
	assert.Equal(t, 40, result.Usage.CompletionTokens)
	assert.Equal(t, 140, result.Usage.TotalTokens)

	// inline image payload rides along with the prompt
	contents := gotBody["contents"].([]interface{})
	parts := contents[0].(map[string]interface{})["parts"].([]interface{})
	require.Len(t, parts, 2)
	inline := parts[1].(map[string]interface{})["inline_data"].(map[string]interface{})
	assert.Equal(t, "image/png", inline["mime_type"])
}

func TestExtract_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	_, err := testService(srv.URL).Extract(context.Background(), []byte("fake-image"), "")
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, transportErr.Body, "rate limited")
}

func TestExtract_NoCandidatesIsSchemaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	}))
	defer srv.Close()

	_, err := testService(srv.URL).Extract(context.Background(), []byte("fake-image"), "")
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Err: cause}
	require.True(t, errors.Is(err, cause))
}
