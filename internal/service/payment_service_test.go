package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
	"github.com/noah-isme/lms-portal-api/pkg/midtrans"
)

type fakeGateway struct {
	orders []string
	err    error
}

func (g *fakeGateway) CreateTransaction(orderID string, amount int64, customer midtrans.Customer) (string, string, error) {
	if g.err != nil {
		return "", "", g.err
	}

	g.orders = append(g.orders, orderID)
	return "snap-" + orderID, "https://pay.example.com/" + orderID, nil
}

func newPaymentService(t *testing.T, db *gorm.DB, gateway PaymentGateway) PaymentService {
	t.Helper()
	return NewPaymentService(
		repository.NewInvoiceRepository(db),
		repository.NewUserRepository(db),
		gateway,
		nil,
		newTestValidator(),
		zerolog.Nop(),
	)
}

func TestCreateInvoiceRegistersGatewayTransaction(t *testing.T) {
	db := newTestDB(t)
	student := createUser(t, db, "Billing Student", models.RoleStudent)
	admin := createUser(t, db, "Billing Admin", models.RoleAdmin)
	gateway := &fakeGateway{}
	service := newPaymentService(t, db, gateway)

	checkout, err := service.CreateInvoice(context.Background(), Actor{UserID: admin.ID, Role: models.RoleAdmin}, dto.InvoiceCreateRequest{
		StudentID:   student.ID,
		Description: "Semester tuition",
		Amount:      1500000,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(checkout.OrderID, "LMS-"))
	require.Equal(t, "snap-"+checkout.OrderID, checkout.SnapToken)
	require.Equal(t, []string{checkout.OrderID}, gateway.orders)

	var stored models.Invoice
	require.NoError(t, db.First(&stored, checkout.InvoiceID).Error)
	require.Equal(t, models.InvoiceStatusPending, stored.Status)
	require.EqualValues(t, 1500000, stored.Amount)
}

func TestCreateInvoiceWithoutGatewayReturnsUnavailable(t *testing.T) {
	db := newTestDB(t)
	student := createUser(t, db, "Billing Student", models.RoleStudent)
	service := newPaymentService(t, db, nil)

	_, err := service.CreateInvoice(context.Background(), Actor{Role: models.RoleAdmin}, dto.InvoiceCreateRequest{
		StudentID:   student.ID,
		Description: "Semester tuition",
		Amount:      1500000,
	})
	require.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestCreateInvoiceSurfacesGatewayFailure(t *testing.T) {
	db := newTestDB(t)
	student := createUser(t, db, "Billing Student", models.RoleStudent)
	service := newPaymentService(t, db, &fakeGateway{err: errors.New("gateway timeout")})

	_, err := service.CreateInvoice(context.Background(), Actor{Role: models.RoleAdmin}, dto.InvoiceCreateRequest{
		StudentID:   student.ID,
		Description: "Semester tuition",
		Amount:      1500000,
	})
	require.ErrorContains(t, err, "gateway timeout")

	var count int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestHandleWebhookSettlesAndStaysSettled(t *testing.T) {
	db := newTestDB(t)
	student := createUser(t, db, "Billing Student", models.RoleStudent)
	service := newPaymentService(t, db, &fakeGateway{})

	checkout, err := service.CreateInvoice(context.Background(), Actor{Role: models.RoleAdmin}, dto.InvoiceCreateRequest{
		StudentID:   student.ID,
		Description: "Semester tuition",
		Amount:      1500000,
	})
	require.NoError(t, err)

	settled, err := service.HandleWebhook(context.Background(), dto.PaymentWebhookPayload{
		OrderID:           checkout.OrderID,
		TransactionStatus: "settlement",
	})
	require.NoError(t, err)
	require.Equal(t, models.InvoiceStatusPaid, settled.Status)
	require.NotNil(t, settled.PaidAt)

	// A late deny callback must not reopen a paid invoice.
	replayed, err := service.HandleWebhook(context.Background(), dto.PaymentWebhookPayload{
		OrderID:           checkout.OrderID,
		TransactionStatus: "deny",
	})
	require.NoError(t, err)
	require.Equal(t, models.InvoiceStatusPaid, replayed.Status)
}

func TestHandleWebhookStatusMapping(t *testing.T) {
	cases := []struct {
		name        string
		transaction string
		fraud       string
		want        string
	}{
		{"capture accepted", "capture", "accept", models.InvoiceStatusPaid},
		{"capture challenged", "capture", "challenge", models.InvoiceStatusPending},
		{"expired", "expire", "", models.InvoiceStatusFailed},
		{"cancelled", "cancel", "", models.InvoiceStatusFailed},
		{"still pending", "pending", "", models.InvoiceStatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)
			student := createUser(t, db, "Billing Student", models.RoleStudent)
			service := newPaymentService(t, db, &fakeGateway{})

			checkout, err := service.CreateInvoice(context.Background(), Actor{Role: models.RoleAdmin}, dto.InvoiceCreateRequest{
				StudentID:   student.ID,
				Description: "Semester tuition",
				Amount:      1500000,
			})
			require.NoError(t, err)

			updated, err := service.HandleWebhook(context.Background(), dto.PaymentWebhookPayload{
				OrderID:           checkout.OrderID,
				TransactionStatus: tc.transaction,
				FraudStatus:       tc.fraud,
			})
			require.NoError(t, err)
			require.Equal(t, tc.want, updated.Status)
		})
	}
}

func TestHandleWebhookUnknownOrderReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	service := newPaymentService(t, db, &fakeGateway{})

	_, err := service.HandleWebhook(context.Background(), dto.PaymentWebhookPayload{
		OrderID:           "LMS-missing",
		TransactionStatus: "settlement",
	})
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestListInvoicesIsScopedToTheStudent(t *testing.T) {
	db := newTestDB(t)
	student := createUser(t, db, "Billing Student", models.RoleStudent)
	peer := createUser(t, db, "Billing Peer", models.RoleStudent)
	service := newPaymentService(t, db, &fakeGateway{})

	_, err := service.CreateInvoice(context.Background(), Actor{Role: models.RoleAdmin}, dto.InvoiceCreateRequest{
		StudentID:   student.ID,
		Description: "Semester tuition",
		Amount:      1500000,
	})
	require.NoError(t, err)

	own, err := service.ListInvoices(context.Background(), Actor{UserID: student.ID, Role: models.RoleStudent}, student.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)

	_, err = service.ListInvoices(context.Background(), Actor{UserID: peer.ID, Role: models.RoleStudent}, student.ID)
	require.ErrorIs(t, err, ErrNotInvoiceOwner)

	staff, err := service.ListInvoices(context.Background(), Actor{Role: models.RoleAdmin}, student.ID)
	require.NoError(t, err)
	require.Len(t, staff, 1)
}
