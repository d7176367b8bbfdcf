package translator

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultAdivaniURL    = "https://aadivaani.tribal.gov.in/api/translation/translate"
	DefaultAdivaniUserID = "12"
	DefaultAdivaniTarget = "bhili"
	DefaultTimeout       = 15 * time.Second

	// maxErrorBody bounds how much of a failed response is kept for logging.
	maxErrorBody = 512
)

// adivaniLanguages maps CLI language tags to the service's language codes.
// Tags without an entry are sent unchanged.
var adivaniLanguages = map[string]string{
	"en": "eng",
	"hi": "hin",
}

// AdivaniService talks to the Aadivaani tribal-language translation
// endpoint. Certificate verification is disabled for this endpoint.
type AdivaniService struct {
	url    string
	userID string
	client *http.Client
}

func NewAdivaniService(url, userID string, timeout time.Duration) *AdivaniService {
	if url == "" {
		url = DefaultAdivaniURL
	}
	if userID == "" {
		userID = DefaultAdivaniUserID
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	return &AdivaniService{
		url:    url,
		userID: userID,
		client: &http.Client{Timeout: timeout, Transport: transport},
	}
}

func (s *AdivaniService) Name() string {
	return "adivani"
}

type adivaniRequest struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Text           string `json:"text"`
	UserID         string `json:"user_id"`
}

type adivaniResponse struct {
	TranslatedText *string `json:"translated_text"`
}

func (s *AdivaniService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	jsonData, err := json.Marshal(adivaniRequest{
		SourceLanguage: AdivaniLanguage(req.SourceLang),
		TargetLanguage: AdivaniLanguage(req.TargetLang),
		Text:           req.Text,
		UserID:         s.userID,
	})
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(jsonData))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		result.Error = fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(body))
		return result, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var apiResp adivaniResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", err)
		return result, err
	}
	if apiResp.TranslatedText == nil {
		result.Error = "response has no translated_text"
		return result, fmt.Errorf("response has no translated_text")
	}

	result.TranslatedText = *apiResp.TranslatedText
	return result, nil
}

func (s *AdivaniService) IsAvailable(ctx context.Context) error {
	if s.url == "" {
		return fmt.Errorf("Adivaani URL not configured")
	}
	return nil
}

func (s *AdivaniService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "hi", DefaultAdivaniTarget}, nil
}

// AdivaniLanguage returns the service code for a CLI language tag.
func AdivaniLanguage(tag string) string {
	if code, ok := adivaniLanguages[tag]; ok {
		return code
	}
	return tag
}
