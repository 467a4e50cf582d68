package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

// gatewayTimeout bounds the checkout call; the gateway being down must
// fail the request, not hang it.
const gatewayTimeout = 10 * time.Second

// PaymentNotification is the webhook payload the gateway posts after a
// transaction changes state.
type PaymentNotification struct {
	OrderID           string `json:"order_id" binding:"required"`
	StatusCode        string `json:"status_code" binding:"required"`
	GrossAmount       string `json:"gross_amount" binding:"required"`
	SignatureKey      string `json:"signature_key" binding:"required"`
	TransactionStatus string `json:"transaction_status" binding:"required"`
	FraudStatus       string `json:"fraud_status"`
}

// Paid reports whether the notification settles the payment.
func (n *PaymentNotification) Paid() bool {
	switch n.TransactionStatus {
	case "settlement":
		return true
	case "capture":
		return n.FraudStatus == "" || n.FraudStatus == "accept"
	default:
		return false
	}
}

// CheckoutRequest carries everything the gateway needs to open a
// payment session.
type CheckoutRequest struct {
	OrderID     string
	Amount      int64
	Description string
	ReturnURL   string
	User        *model.User
}

// PaymentGateway creates checkout sessions and authenticates webhooks.
type PaymentGateway interface {
	CreateTransaction(ctx context.Context, req CheckoutRequest) (confirmationURL string, err error)
	VerifyNotification(n *PaymentNotification) error
}

// MidtransGateway talks to the Midtrans Snap API.
type MidtransGateway struct {
	client    snap.Client
	serverKey string
}

func NewMidtransGateway(cfg config.PaymentConfig) *MidtransGateway {
	env := midtrans.Sandbox
	if cfg.Environment == "production" {
		env = midtrans.Production
	}
	var client snap.Client
	client.New(cfg.ServerKey, env)
	return &MidtransGateway{client: client, serverKey: cfg.ServerKey}
}

func (g *MidtransGateway) CreateTransaction(ctx context.Context, req CheckoutRequest) (string, error) {
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.User.FirstName,
			LName: req.User.LastName,
			Email: req.User.Email,
		},
	}
	if req.ReturnURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: req.ReturnURL}
	}
	if req.Description != "" {
		snapReq.Items = &[]midtrans.ItemDetails{{
			ID:    req.OrderID,
			Name:  req.Description,
			Price: req.Amount,
			Qty:   1,
		}}
	}

	// The snap client has no context support, so the call runs aside
	// and the deadline wins if it stalls.
	ctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()

	type outcome struct {
		url string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := g.client.CreateTransaction(snapReq)
		if err != nil {
			done <- outcome{err: fmt.Errorf("create snap transaction: %w", err)}
			return
		}
		done <- outcome{url: resp.RedirectURL}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("create snap transaction: %w", ctx.Err())
	case out := <-done:
		return out.url, out.err
	}
}

// VerifyNotification checks the SHA512 signature the gateway attaches:
// sha512(order_id + status_code + gross_amount + server_key).
func (g *MidtransGateway) VerifyNotification(n *PaymentNotification) error {
	payload := n.OrderID + n.StatusCode + n.GrossAmount + g.serverKey
	sum := sha512.Sum512([]byte(payload))
	expected := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) != 1 {
		return util.ErrInvalidSignature
	}
	return nil
}
