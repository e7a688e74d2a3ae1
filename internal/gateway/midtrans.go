// Package gateway hands payments to an external checkout provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// Checkout is the customer facing data of a payment
type Checkout struct {
	Reference   string
	Amount      float64
	Currency    string
	Description string
	FullName    string
	Email       string
}

// Session is what the provider returns for a created checkout
type Session struct {
	Token       string
	RedirectURL string
}

var (
	ErrUnsupportedCurrency = errors.New("currency is not supported by the payment gateway")
	ErrFractionalAmount    = errors.New("amount must be a whole number for the payment gateway")
)

// PaymentGateway creates hosted checkout sessions
type PaymentGateway interface {
	// Validate reports whether the provider can bill the checkout as given
	Validate(checkout Checkout) error
	CreateCheckout(ctx context.Context, checkout Checkout) (*Session, error)
}

// MidtransCurrency is the only currency Snap bills in
const MidtransCurrency = "IDR"

// MidtransGateway uses the Snap API
type MidtransGateway struct {
	client snap.Client
}

func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	g := &MidtransGateway{}
	if production {
		g.client.New(serverKey, midtrans.Production)
	} else {
		g.client.New(serverKey, midtrans.Sandbox)
	}
	return g
}

// Validate rejects anything Snap would bill differently from the stored payment
func (g *MidtransGateway) Validate(checkout Checkout) error {
	if !strings.EqualFold(checkout.Currency, MidtransCurrency) {
		return fmt.Errorf("%w: %q", ErrUnsupportedCurrency, checkout.Currency)
	}
	if checkout.Amount <= 0 {
		return fmt.Errorf("invalid amount %v", checkout.Amount)
	}
	if checkout.Amount != math.Trunc(checkout.Amount) {
		return fmt.Errorf("%w: %v", ErrFractionalAmount, checkout.Amount)
	}
	return nil
}

func (g *MidtransGateway) CreateCheckout(ctx context.Context, checkout Checkout) (*Session, error) {
	if err := g.Validate(checkout); err != nil {
		return nil, err
	}
	if checkout.Reference == "" {
		return nil, fmt.Errorf("reference is required")
	}

	amount := int64(checkout.Amount)
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  checkout.Reference,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: checkout.FullName,
			Email: checkout.Email,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    checkout.Reference,
			Price: amount,
			Qty:   1,
			Name:  truncate(firstNonEmpty(checkout.Description, "School fees"), 50),
		}},
	}

	resp, err := g.client.CreateTransaction(req)
	if err != nil {
		return nil, fmt.Errorf("gateway rejected checkout %s: %s", checkout.Reference, err.GetMessage())
	}
	return &Session{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// NoopGateway is used when no provider is configured
type NoopGateway struct{}

func (NoopGateway) Validate(Checkout) error {
	return nil
}

func (NoopGateway) CreateCheckout(context.Context, Checkout) (*Session, error) {
	return nil, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstNonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
