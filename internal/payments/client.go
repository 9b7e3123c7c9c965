package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client реализует Processor поверх HTTP API процессинга.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type authorizeRequest struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type transferRequest struct {
	AccountRef string            `json:"account_ref"`
	Amount     float64           `json:"amount"`
	Currency   string            `json:"currency"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type refundRequest struct {
	IntentRef string `json:"intent_ref"`
	Reason    string `json:"reason"`
}

type processorResponse struct {
	Ref     string `json:"ref"`
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Authorize открывает авторизацию на сумму.
func (c *Client) Authorize(ctx context.Context, amount float64, metadata map[string]string) (string, error) {
	resp, err := c.post(ctx, "/v1/intents", authorizeRequest{Amount: amount, Currency: "RUB", Metadata: metadata})
	if err != nil {
		return "", err
	}
	return resp.Ref, nil
}

// Confirm подтверждает захват средств по авторизации.
func (c *Client) Confirm(ctx context.Context, intentRef string) error {
	resp, err := c.post(ctx, "/v1/intents/"+intentRef+"/confirm", struct{}{})
	if err != nil {
		return err
	}
	if resp.Status != "succeeded" {
		return &ProcessorError{Code: resp.Code, Message: "платёж не подтверждён процессингом"}
	}
	return nil
}

// Transfer переводит выплату на счёт исполнителя.
func (c *Client) Transfer(ctx context.Context, accountRef string, amount float64, metadata map[string]string) (string, error) {
	resp, err := c.post(ctx, "/v1/transfers", transferRequest{AccountRef: accountRef, Amount: amount, Currency: "RUB", Metadata: metadata})
	if err != nil {
		return "", err
	}
	return resp.Ref, nil
}

// Refund возвращает средства клиенту.
func (c *Client) Refund(ctx context.Context, intentRef, reason string) (string, error) {
	resp, err := c.post(ctx, "/v1/refunds", refundRequest{IntentRef: intentRef, Reason: reason})
	if err != nil {
		return "", err
	}
	return resp.Ref, nil
}

// post выполняет запрос к процессингу и разбирает типовой ответ.
func (c *Client) post(ctx context.Context, path string, body interface{}) (*processorResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("payments: не удалось сериализовать запрос: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("payments: не удалось создать запрос: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: запрос к процессингу не удался: %w", err)
	}
	defer httpResp.Body.Close()

	var resp processorResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("payments: не удалось разобрать ответ процессинга: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		code := resp.Code
		if code == "" {
			code = fmt.Sprintf("http_%d", httpResp.StatusCode)
		}
		message := resp.Message
		if message == "" {
			message = "процессинг отклонил операцию"
		}
		return nil, &ProcessorError{Code: code, Message: message}
	}

	return &resp, nil
}
