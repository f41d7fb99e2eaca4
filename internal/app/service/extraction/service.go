package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"go.uber.org/zap"

	"github.com/snapspend/backend/pkg/config"
	"github.com/snapspend/backend/pkg/logctx"
	"github.com/snapspend/backend/pkg/types"
)

const extractionPrompt = `You are a receipt data extraction system. Analyze the receipt image and return ONLY a JSON object with this exact structure, no markdown and no commentary:
{
  "merchant": string, "total": number, "currency": "ISO 4217 code", "date": "YYYY-MM-DD", "category": string,
  "location": string, "subtotal": number, "tax": number, "service_charge": number,
  "payment_method": string, "receipt_number": string, "merchant_type": string,
  "tips": number, "discount": number, "delivery_fee": number, "packaging_fee": number,
  "loyalty_number": string, "table_number": string, "server_name": string, "order_number": string,
  "phone_number": string, "website": string, "vat_number": string, "time_of_day": string,
  "customer_count": number, "special_offers": string,
  "items": [{"name": string, "quantity": number, "price": number, "category": string, "description": string,
             "modifiers": [{"name": string, "price": number, "type": "fee|deposit|discount|addon|modifier"}]}]
}
Omit fields that are not on the receipt. All monetary values must be plain numbers. "price" is the line total, not the unit price.`

// Result is a validated extraction plus its diagnostics.
type Result struct {
	Record *types.ExtractionRecord
	Usage  *types.TokenUsage
	// RawText is the unparsed model reply, kept for operability.
	RawText string
}

// Service calls a vision-capable model to turn receipt image bytes into
// a structured record. Pure given its inputs apart from the network call.
type Service struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	client *http.Client
}

func NewService(cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: cfg.Extraction.RequestTimeout},
	}
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Extract performs one vision-model call. Transport and schema failures
// come back as *TransportError / *SchemaError respectively.
func (s *Service) Extract(ctx context.Context, imageBytes []byte, mimeType string) (*Result, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": extractionPrompt},
					{
						"inline_data": map[string]interface{}{
							"mime_type": mimeType,
							"data":      base64.StdEncoding.EncodeToString(imageBytes),
						},
					},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.1,
			"responseMimeType": "application/json",
		},
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		s.cfg.Extraction.Endpoint, s.cfg.Extraction.Model, s.cfg.Extraction.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestJSON))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &TransportError{Status: resp.Status, Body: string(bodyBytes)}
	}

	var modelResp generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelResp); err != nil {
		return nil, &TransportError{Err: err}
	}

	if len(modelResp.Candidates) == 0 || len(modelResp.Candidates[0].Content.Parts) == 0 {
		return nil, &SchemaError{Issues: []string{"model returned no candidates"}}
	}
	rawText := modelResp.Candidates[0].Content.Parts[0].Text

	record, err := ParseRecord(rawText)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("extraction schema validation failed",
			"err", err, "raw_len", len(rawText))
		return nil, err
	}

	usage := &types.TokenUsage{
		PromptTokens:     modelResp.UsageMetadata.PromptTokenCount,
		CompletionTokens: modelResp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      modelResp.UsageMetadata.TotalTokenCount,
	}
	return &Result{Record: record, Usage: usage, RawText: rawText}, nil
}

// Models occasionally wrap JSON in markdown fences despite the response
// mime type; pull out the outermost object.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ParseRecord validates raw model text into an ExtractionRecord.
// Failures are *SchemaError carrying the raw text.
func ParseRecord(rawText string) (*types.ExtractionRecord, error) {
	jsonText := jsonObjectPattern.FindString(rawText)
	if jsonText == "" {
		return nil, &SchemaError{RawText: rawText, Issues: []string{"no JSON object in model reply"}}
	}

	var record types.ExtractionRecord
	if err := json.Unmarshal([]byte(jsonText), &record); err != nil {
		return nil, &SchemaError{RawText: rawText, Err: err}
	}

	if issues := validateRecord(&record); len(issues) > 0 {
		return nil, &SchemaError{RawText: rawText, Issues: issues}
	}
	return &record, nil
}

func validateRecord(record *types.ExtractionRecord) []string {
	var issues []string
	if record.Merchant == "" && record.Total == nil && len(record.Items) == 0 {
		issues = append(issues, "reply contains no recognizable receipt fields")
	}
	if record.Total != nil && record.Total.IsNegative() {
		issues = append(issues, "total is negative")
	}
	for i, item := range record.Items {
		if item.Name == "" {
			issues = append(issues, fmt.Sprintf("items[%d] has no name", i))
		}
		if item.Quantity != nil && item.Quantity.IsNegative() {
			issues = append(issues, fmt.Sprintf("items[%d] has negative quantity", i))
		}
	}
	return issues
}
