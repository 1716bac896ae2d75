package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"smartpos/internal/domain"
)

// HTTPBackupClient posts paid bills to the backup collaborator.
type HTTPBackupClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackupClient builds a backup client with an explicit timeout; the
// source system had none and an unresponsive backup would hang the payer.
func NewHTTPBackupClient(baseURL string, timeout time.Duration) *HTTPBackupClient {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPBackupClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPBackupClient) SaveBill(ctx context.Context, b domain.Bill) error {
	payload, err := json.Marshal(map[string]any{
		"id":            b.ID,
		"username":      b.Username,
		"cartRef":       b.CartRef,
		"total":         b.Total,
		"status":        b.Status,
		"paymentMethod": b.PaymentMethod,
		"approvedBy":    b.ApprovedBy,
		"date":          b.UpdatedAt,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/backup/bill", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backup service returned %d", resp.StatusCode)
	}
	return nil
}
