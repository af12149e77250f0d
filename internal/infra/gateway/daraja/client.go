package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/payment"
	"tourism-booking/internal/pkg/clock"
	"tourism-booking/internal/pkg/config"
	"tourism-booking/internal/pkg/errs"
	"tourism-booking/internal/usecase/commands"

	"golang.org/x/time/rate"
)

var (
	ErrMalformedCallback = errs.New("malformed callback body")
	ErrMissingCheckoutID = errs.New("callback without checkout request id")
	ErrMissingResultCode = errs.Mark(errs.New("gateway report without result code"), ErrMalformedCallback)
)

const maxErrorBody = 4 << 10

// Client talks to the Safaricom Daraja STK endpoints.
type Client struct {
	cfg      config.GatewayConfig
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	tokens   *tokenSource
	clock    clock.Clock
	location *time.Location
}

var _ commands.PaymentGateway = (*Client)(nil)

func NewClient(cfg config.GatewayConfig, clk clock.Clock) *Client {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		loc = time.FixedZone("EAT", 3*60*60)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	c := &Client{
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(limit, burst),
		clock:    clk,
		location: loc,
	}
	c.tokens = newTokenSource(c, clk)
	return c
}

func (c *Client) InitiatePush(ctx context.Context, req commands.PushRequest) (*commands.PushResponse, error) {
	timestamp := c.timestamp()
	body := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionTypePayBill,
		Amount:            req.Amount.Units(),
		PartyA:            req.Phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.Phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.Reference,
		TransactionDesc:   req.Description,
	}

	var out stkPushResponse
	status, raw, err := c.postJSON(ctx, stkPushPath, body, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.tokens.Invalidate()
		return nil, errs.MarkAll(errs.New("stk push: access token rejected"), errs.ErrGatewayAuth)
	}
	if status >= 300 {
		return nil, requestError("stk push", status, raw)
	}
	if out.ResponseCode != "0" || out.CheckoutRequestID == "" {
		return nil, errs.WithDetail(
			errs.MarkAll(errs.Newf("stk push rejected: code=%s", out.ResponseCode), errs.ErrGatewayRequest),
			out.ResponseDescription,
		)
	}

	slog.Info("stk push accepted",
		"checkout_request_id", out.CheckoutRequestID,
		"merchant_request_id", out.MerchantRequestID,
		"reference", req.Reference)

	return &commands.PushResponse{
		MerchantRequestID: out.MerchantRequestID,
		CheckoutRequestID: out.CheckoutRequestID,
		CustomerMessage:   out.CustomerMessage,
	}, nil
}

func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*commands.StatusResult, error) {
	timestamp := c.timestamp()
	body := stkQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	var out stkQueryResponse
	status, raw, err := c.postJSON(ctx, stkQueryPath, body, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.tokens.Invalidate()
		return nil, errs.MarkAll(errs.New("stk query: access token rejected"), errs.ErrGatewayAuth)
	}
	if status >= 300 {
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.ErrorCode == errCodeStillProcessing {
			return &commands.StatusResult{Processing: true}, nil
		}
		return nil, requestError("stk query", status, raw)
	}

	outcome, err := c.outcome(checkoutRequestID, out.ResultCode, out.ResultDesc, out.CallbackMetadata)
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "stk query"), errs.ErrGatewayRequest)
	}
	return &commands.StatusResult{Outcome: outcome}, nil
}

func (c *Client) ParseCallback(body []byte) (payment.Outcome, error) {
	var env CallbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return payment.Outcome{}, errs.Mark(errs.Wrap(err, "decode callback"), ErrMalformedCallback)
	}
	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return payment.Outcome{}, ErrMissingCheckoutID
	}
	return c.outcome(cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc, cb.CallbackMetadata)
}

// outcome normalizes a result code plus optional metadata into a payment outcome.
func (c *Client) outcome(checkoutID string, code resultCode, desc string, md *metadata) (payment.Outcome, error) {
	if !code.present {
		return payment.Outcome{}, errs.WithDetail(ErrMissingResultCode, checkoutID)
	}
	o := payment.Outcome{
		CheckoutRequestID: checkoutID,
		ResultCode:        code.value,
		Success:           code.value == 0,
	}
	if !o.Success {
		o.FailureReason = desc
		return o, nil
	}

	if v, ok := md.find("MpesaReceiptNumber"); ok {
		o.ReceiptID = v
	}
	if v, ok := md.find("Amount"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return payment.Outcome{}, errs.Mark(errs.Wrapf(err, "callback amount %q", v), ErrMalformedCallback)
		}
		amt := money.FromUnits(f)
		o.Amount = &amt
	}
	if v, ok := md.find("TransactionDate"); ok {
		t, err := time.ParseInLocation(timestampLayout, v, c.location)
		if err != nil {
			slog.Warn("unparseable transaction date", "checkout_request_id", checkoutID, "value", v)
		} else {
			o.TransactionAt = &t
		}
	}
	if v, ok := md.find("PhoneNumber"); ok {
		o.Phone = v
	}
	return o, nil
}

// postJSON returns the status and raw body for non-2xx responses; 2xx bodies are decoded into out.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) (int, []byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, classifyTransport(err)
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return 0, nil, errs.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, errs.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, classifyTransport(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, raw, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return 0, nil, errs.MarkAll(errs.Wrap(err, "decode response"), errs.ErrGatewayRequest)
	}
	return resp.StatusCode, nil, nil
}

func (c *Client) timestamp() string {
	return c.clock.Now().In(c.location).Format(timestampLayout)
}

func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.PassKey + timestamp))
}

func requestError(op string, status int, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil && e.ErrorMessage != "" {
		msg = e.ErrorMessage
	}
	err := errs.MarkAll(errs.Newf("%s failed: status=%d", op, status), errs.ErrGatewayRequest)
	if msg != "" {
		err = errs.WithDetail(err, msg)
	}
	return err
}

// classifyTransport marks deadline and network timeouts so callers can retry.
func classifyTransport(err error) error {
	if errs.Is(err, errs.ErrGatewayAuth) {
		if isTimeout(err) {
			return errs.Mark(err, errs.ErrTimeout)
		}
		return err
	}
	if isTimeout(err) {
		return errs.MarkAll(errs.Wrap(err, "gateway call timed out"), errs.ErrTimeout)
	}
	return errs.MarkAll(errs.Wrap(err, "gateway call failed"), errs.ErrGatewayRequest)
}

func isTimeout(err error) bool {
	if errs.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errs.As(err, &ne) && ne.Timeout()
}
