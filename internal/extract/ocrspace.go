// Package extract pulls text out of stored attachments: PDFs and
// images go through the OCR.space API, DOCX files are unpacked
// locally. Extracted text feeds the analysis stage.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const DefaultOCRBaseURL = "https://api.ocr.space/parse/image"

// OCRClient calls the OCR.space parse endpoint.
type OCRClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewOCRClient(baseURL, apiKey string) *OCRClient {
	if baseURL == "" {
		baseURL = DefaultOCRBaseURL
	}
	return &OCRClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ocrResponse struct {
	IsErroredOnProcessing bool     `json:"IsErroredOnProcessing"`
	ErrorMessage          []string `json:"ErrorMessage"`
	ParsedResults         []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
}

// Extract uploads the file content and returns the recognized text.
// An image with no recognizable text yields an empty string, not an
// error.
func (c *OCRClient) Extract(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("writing upload content: %w", err)
	}
	if err := writer.WriteField("apikey", c.apiKey); err != nil {
		return "", fmt.Errorf("writing api key field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return "", fmt.Errorf("building ocr request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ocr service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding ocr response: %w", err)
	}
	if decoded.IsErroredOnProcessing {
		message := "unknown error"
		if len(decoded.ErrorMessage) > 0 {
			message = decoded.ErrorMessage[0]
		}
		return "", fmt.Errorf("ocr processing failed: %s", message)
	}
	if len(decoded.ParsedResults) == 0 {
		return "", nil
	}
	return decoded.ParsedResults[0].ParsedText, nil
}
