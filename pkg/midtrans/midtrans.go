package midtrans

import (
	"fmt"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/rs/zerolog"
)

// Config holds gateway credentials and environment selection.
type Config struct {
	ServerKey  string
	Production bool
}

// Service wraps the Midtrans Snap client behind the PaymentGateway interface.
type Service struct {
	client snap.Client
	logger zerolog.Logger
}

// Customer carries the payer details attached to a transaction.
type Customer struct {
	Name  string
	Email string
}

// New constructs a Midtrans service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.ServerKey == "" {
		return nil, fmt.Errorf("midtrans server key must be provided")
	}

	env := midtrans.Sandbox
	if cfg.Production {
		env = midtrans.Production
	}

	var client snap.Client
	client.New(cfg.ServerKey, env)

	return &Service{
		client: client,
		logger: logger.With().Str("component", "midtrans").Logger(),
	}, nil
}

// CreateTransaction registers the order with the gateway and returns the Snap
// token plus hosted redirect URL.
func (s *Service) CreateTransaction(orderID string, amount int64, customer Customer) (string, string, error) {
	if amount <= 0 {
		return "", "", fmt.Errorf("transaction amount must be positive")
	}
	if orderID == "" {
		return "", "", fmt.Errorf("order id must be provided")
	}

	request := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: customer.Name,
			Email: customer.Email,
		},
	}

	response, err := s.client.CreateTransaction(request)
	if err != nil {
		return "", "", fmt.Errorf("failed to create snap transaction: %w", err)
	}

	s.logger.Info().Str("order_id", orderID).Msg("snap transaction created")

	return response.Token, response.RedirectURL, nil
}
