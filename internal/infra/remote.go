package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
)

// ReconcileRow is one product's stock effect inside a reconciliation batch.
// CurrentOnHand is the pre-adjustment snapshot value; NewOnHand is what the
// terminal believes the stock becomes after applying the signed Delta.
type ReconcileRow struct {
	ProductID     int64           `json:"productId"`
	CurrentOnHand decimal.Decimal `json:"currentOnHand"`
	Delta         decimal.Decimal `json:"delta"`
	NewOnHand     decimal.Decimal `json:"newOnHand"`
}

// RemoteClient is the narrow contract against the remote system of record.
// Whatever the batch endpoint returns is more current than local state.
type RemoteClient interface {
	PushStockBatch(ctx context.Context, rows []ReconcileRow) ([]model.Product, error)
	CreateInvoice(ctx context.Context, inv *model.Invoice) error
	UpdateInvoice(ctx context.Context, inv *model.Invoice) error
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
}

// HTTPRemoteClient talks JSON to the remote system of record. Failures are
// always treated as transient by callers: queue and retry, never surface to
// the cashier.
type HTTPRemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPRemoteClient(baseURL string) *HTTPRemoteClient {
	return &HTTPRemoteClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// PushStockBatch sends the whole batch in one call and returns the
// authoritative post-update product documents the server responds with.
func (c *HTTPRemoteClient) PushStockBatch(ctx context.Context, rows []ReconcileRow) ([]model.Product, error) {
	var raw map[string]json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/stock/batch", rows, &raw); err != nil {
		return nil, err
	}
	return normalizeUpdatedProducts(raw), nil
}

// normalizeUpdatedProducts defensively extracts the updated_products array.
// The remote side is loosely typed; a shape mismatch yields an empty slice
// rather than an error so a cosmetic payload change can never poison the
// reconcile path.
func normalizeUpdatedProducts(raw map[string]json.RawMessage) []model.Product {
	if raw == nil {
		return nil
	}
	payload, ok := raw["updated_products"]
	if !ok {
		// Some deployments return the array under "products".
		if payload, ok = raw["products"]; !ok {
			return nil
		}
	}
	var products []model.Product
	if err := json.Unmarshal(payload, &products); err != nil {
		log.Warn().Err(err).Msg("remote: unexpected updated_products shape, ignoring")
		return nil
	}
	return products
}

func (c *HTTPRemoteClient) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	return c.do(ctx, http.MethodPost, "/invoices", inv, nil)
}

func (c *HTTPRemoteClient) UpdateInvoice(ctx context.Context, inv *model.Invoice) error {
	return c.do(ctx, http.MethodPut, "/invoices/"+inv.ID.String(), inv, nil)
}

func (c *HTTPRemoteClient) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/invoices/"+id.String(), nil, nil)
}

func (c *HTTPRemoteClient) GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/"+id.String(), nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *HTTPRemoteClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("remote: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote: %s %s returned %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode %s %s: %w", method, path, err)
	}
	return nil
}
