package mapping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ecosheet/ecosheet-backend/pkg/config"
	pkgerrors "github.com/ecosheet/ecosheet-backend/pkg/errors"
)

const (
	defaultChatBaseURL       = "https://api.openai.com/v1"
	chatBodyReadLimit  int64 = 4096
)

var errChatAPIKeyRequired = errors.New("mapper api key is required")

// ChatProvider asks a chat-completion model to propose field mappings. The
// model's reply is plain text in the two-section format the Parser consumes.
type ChatProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewChatProvider builds a provider from mapper configuration.
func NewChatProvider(cfg config.MapperConfig) (*ChatProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errChatAPIKeyRequired
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatProvider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      cfg.Model,
	}, nil
}

const mappingPrompt = `다음 원본 컬럼 헤더를 두 개의 표준 스키마에 매핑하세요.

판매 시트 표준 필드: order_id, customer_id, customer_name, order_date, completion_date, product_names, unit_price, quantity, total_amount, order_status
고객 시트 표준 필드: customer_id, customer_name, contact, email, birth_date, join_date

출력 형식 (섹션 제목과 한 줄당 하나의 매핑):
### 판매 시트 매핑
<원본 필드> → <표준 필드>
### 고객 시트 매핑
<원본 필드> → <표준 필드>
### 최종 요약

대응하는 표준 필드가 없으면 "<원본 필드> → 없음"으로 표기하세요.

원본 헤더: `

// MappingText sends the headers to the chat-completions endpoint and returns
// the model's reply verbatim.
func (p *ChatProvider) MappingText(ctx context.Context, headers []string) (string, error) {
	if p == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "chat provider not configured")
	}
	if len(headers) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "headers are required")
	}

	payload, err := json.Marshal(map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "user", "content": mappingPrompt + strings.Join(headers, ", ")},
		},
		"temperature": 0,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal mapping request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build mapping request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute mapping request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, chatBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "mapping request failed")
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode mapping response")
	}
	if len(apiResp.Choices) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "mapping response contained no choices")
	}
	return apiResp.Choices[0].Message.Content, nil
}
