package gateway

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "strings"
    "time"
)

// HTTPGateway talks to an SSLCommerz-style hosted checkout API: a
// form-encoded POST opens a payment session and returns a redirect
// URL; the gateway later calls back asynchronously.
type HTTPGateway struct {
    Endpoint  string // payment session creation URL
    StoreID   string
    StorePass string
    Client    *http.Client
}

// NewHTTPGateway builds a gateway client with a bounded request
// timeout so a slow provider cannot stall checkout handlers.
func NewHTTPGateway(endpoint, storeID, storePass string) *HTTPGateway {
    return &HTTPGateway{
        Endpoint:  endpoint,
        StoreID:   storeID,
        StorePass: storePass,
        Client:    &http.Client{Timeout: 10 * time.Second},
    }
}

// initResponse mirrors the provider's session creation reply.  Only
// the fields the engine consumes are decoded.
type initResponse struct {
    Status         string `json:"status"`
    FailedReason   string `json:"failedreason"`
    SessionKey     string `json:"sessionkey"`
    GatewayPageURL string `json:"GatewayPageURL"`
}

// Initialize opens a payment session.  Amounts are transmitted as
// decimal major units, the engine's passthrough blob rides in value_a.
func (g *HTTPGateway) Initialize(ctx context.Context, req InitRequest) (*InitResponse, error) {
    blob, err := json.Marshal(req.Passthrough)
    if err != nil {
        return nil, fmt.Errorf("gateway: marshal passthrough: %w", err)
    }

    form := url.Values{}
    form.Set("store_id", g.StoreID)
    form.Set("store_passwd", g.StorePass)
    form.Set("tran_id", req.TransactionID)
    form.Set("total_amount", formatAmount(req.AmountCents))
    form.Set("currency", req.Currency)
    form.Set("success_url", req.SuccessURL)
    form.Set("fail_url", req.FailURL)
    form.Set("cancel_url", req.CancelURL)
    form.Set("cus_name", req.CustomerName)
    form.Set("cus_email", req.CustomerEmail)
    form.Set("product_name", req.ProductDescription)
    form.Set("value_a", string(blob))

    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, strings.NewReader(form.Encode()))
    if err != nil {
        return nil, err
    }
    httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

    resp, err := g.Client.Do(httpReq)
    if err != nil {
        return nil, fmt.Errorf("gateway: initialize request failed: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode != http.StatusOK {
        return nil, fmt.Errorf("gateway: initialize returned HTTP %d", resp.StatusCode)
    }
    var body initResponse
    if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
        return nil, fmt.Errorf("gateway: decode initialize response: %w", err)
    }
    if !strings.EqualFold(body.Status, "SUCCESS") || body.GatewayPageURL == "" {
        reason := body.FailedReason
        if reason == "" {
            reason = "no redirect url returned"
        }
        return nil, fmt.Errorf("gateway: session rejected: %s", reason)
    }
    return &InitResponse{
        RedirectURL:          body.GatewayPageURL,
        GatewayTransactionID: body.SessionKey,
    }, nil
}

// formatAmount renders integer cents as a decimal major-unit string
// ("1050" cents -> "10.50").
func formatAmount(cents int64) string {
    sign := ""
    if cents < 0 {
        sign = "-"
        cents = -cents
    }
    return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
