package infra

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/shopspring/decimal"
)

// RetailClient pushes a per-product OnHand overwrite to the secondary retail
// platform. Best-effort: failures are logged or re-queued by callers, never
// propagated into the invoice or stock outcome.
type RetailClient interface {
	PushOnHand(ctx context.Context, productID int64, onHand decimal.Decimal) error
	PushPrice(ctx context.Context, productID int64, basePrice decimal.Decimal) error
}

// XMLRPCRetailClient talks to an Odoo-style platform over XML-RPC.
type XMLRPCRetailClient struct {
	objectURL string
	commonURL string
	database  string
	username  string
	password  string
	uid       int
	transport http.RoundTripper
}

func NewXMLRPCRetailClient(url, database, username, password string) *XMLRPCRetailClient {
	return &XMLRPCRetailClient{
		objectURL: fmt.Sprintf("%s/xmlrpc/2/object", url),
		commonURL: fmt.Sprintf("%s/xmlrpc/2/common", url),
		database:  database,
		username:  username,
		password:  password,
		transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second},
	}
}

// Authenticate resolves the platform user id. Called lazily before the first
// write and again whenever the platform invalidates the session.
func (c *XMLRPCRetailClient) Authenticate() error {
	client, err := xmlrpc.NewClient(c.commonURL, c.transport)
	if err != nil {
		return fmt.Errorf("retail: create client: %w", err)
	}
	defer client.Close()

	args := []interface{}{c.database, c.username, c.password, map[string]interface{}{}}
	var uid int
	if err := client.Call("authenticate", args, &uid); err != nil {
		return fmt.Errorf("retail: authenticate: %w", err)
	}
	c.uid = uid
	return nil
}

func (c *XMLRPCRetailClient) PushOnHand(ctx context.Context, productID int64, onHand decimal.Decimal) error {
	qty, _ := onHand.Float64()
	return c.write(ctx, productID, map[string]interface{}{"qty_available": qty})
}

func (c *XMLRPCRetailClient) PushPrice(ctx context.Context, productID int64, basePrice decimal.Decimal) error {
	price, _ := basePrice.Float64()
	return c.write(ctx, productID, map[string]interface{}{"list_price": price})
}

func (c *XMLRPCRetailClient) write(ctx context.Context, productID int64, values map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.uid == 0 {
		if err := c.Authenticate(); err != nil {
			return err
		}
	}

	client, err := xmlrpc.NewClient(c.objectURL, c.transport)
	if err != nil {
		return fmt.Errorf("retail: create client: %w", err)
	}
	defer client.Close()

	args := []interface{}{
		c.database, c.uid, c.password,
		"product.product", "write",
		[]interface{}{[]interface{}{productID}, values},
	}
	var ok bool
	if err := client.Call("execute_kw", args, &ok); err != nil {
		return fmt.Errorf("retail: write product %d: %w", productID, err)
	}
	if !ok {
		return fmt.Errorf("retail: write product %d rejected", productID)
	}
	return nil
}
