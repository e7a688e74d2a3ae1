package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/Talent-1/cbt-service/internal/events"
	"github.com/Talent-1/cbt-service/internal/gateway"
	"github.com/Talent-1/cbt-service/internal/models"
)

var referencePattern = regexp.MustCompile(`^PAY_[A-Za-z0-9]+-\d+-[A-Z0-9]{6}$`)

type stubGateway struct {
	calls  []gateway.Checkout
	err    error
	reject error
}

func (g *stubGateway) Validate(checkout gateway.Checkout) error {
	return g.reject
}

func (g *stubGateway) CreateCheckout(ctx context.Context, checkout gateway.Checkout) (*gateway.Session, error) {
	g.calls = append(g.calls, checkout)
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.Session{Token: "tok-" + checkout.Reference, RedirectURL: "https://pay.example/" + checkout.Reference}, nil
}

type paymentFixture struct {
	env     *testEnv
	svc     PaymentService
	branch  *models.Branch
	learner *models.Account
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &paymentFixture{env: env}
	f.branch = env.seedBranch(t, "Abuja", "AB")
	f.learner = env.seedLearner(t, f.branch.ID, "JSS1", "CGS/AB/25/001")
	f.svc = NewPaymentService(env.deps, env.config)
	return f
}

func (f *paymentFixture) initiate(t *testing.T) *models.Payment {
	t.Helper()
	payment, err := f.svc.Initiate(context.Background(), &InitiatePaymentRequest{
		StudentID: "CGS/AB/25/001",
		BranchID:  f.branch.ID,
		Amount:    15000,
	}, learnerPrincipal(f.learner))
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	return payment
}

func TestPaymentService_Initiate(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.initiate(t)

	if !referencePattern.MatchString(payment.TransactionReference) {
		t.Errorf("reference %q does not match %s", payment.TransactionReference, referencePattern)
	}
	if payment.Status != models.PaymentPending || payment.Currency != "NGN" {
		t.Errorf("unexpected payment %+v", payment)
	}
	if payment.ClassLevel == nil || *payment.ClassLevel != "JSS1" {
		t.Errorf("class level not snapshotted: %v", payment.ClassLevel)
	}
	if n := len(f.env.publisher.EventsOfType(events.PaymentInitiated)); n != 1 {
		t.Errorf("expected one payment.initiated event, got %d", n)
	}

	again := f.initiate(t)
	if again.TransactionReference == payment.TransactionReference {
		t.Errorf("references must be unique")
	}
}

func TestPaymentService_InitiateRejectsForeignPayload(t *testing.T) {
	f := newPaymentFixture(t)
	other := f.env.seedBranch(t, "Lagos", "LG")

	tests := []struct {
		name string
		req  *InitiatePaymentRequest
	}{
		{name: "other student", req: &InitiatePaymentRequest{StudentID: "CGS/AB/25/002", BranchID: f.branch.ID, Amount: 100}},
		{name: "other branch", req: &InitiatePaymentRequest{StudentID: "CGS/AB/25/001", BranchID: other.ID, Amount: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Initiate(context.Background(), tt.req, learnerPrincipal(f.learner))
			if !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
	if len(f.env.repo.store.payments) != 0 {
		t.Errorf("no payment should be stored")
	}
}

func TestPaymentService_InitiateValidation(t *testing.T) {
	f := newPaymentFixture(t)
	_, err := f.svc.Initiate(context.Background(), &InitiatePaymentRequest{StudentID: "CGS/AB/25/001", BranchID: f.branch.ID, Amount: 0}, learnerPrincipal(f.learner))
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
}

func TestPaymentService_InitiateWithGateway(t *testing.T) {
	env := newTestEnv(t)
	stub := &stubGateway{}
	env.deps.Gateway = stub
	branch := env.seedBranch(t, "Abuja", "AB")
	learner := env.seedLearner(t, branch.ID, "JSS1", "CGS/AB/25/001")
	svc := NewPaymentService(env.deps, env.config)

	payment, err := svc.Initiate(context.Background(), &InitiatePaymentRequest{
		StudentID:     "cgs/ab/25/001",
		BranchID:      branch.ID,
		Amount:        2500,
		PaymentMethod: models.PaymentMethodGateway,
	}, learnerPrincipal(learner))
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	if len(stub.calls) != 1 || stub.calls[0].Reference != payment.TransactionReference {
		t.Fatalf("gateway not called with the payment reference: %+v", stub.calls)
	}
	if payment.GatewayRedirectURL == nil || *payment.GatewayRedirectURL != "https://pay.example/"+payment.TransactionReference {
		t.Errorf("redirect url not attached: %v", payment.GatewayRedirectURL)
	}
	stored := env.repo.store.payments[payment.ID]
	if stored.GatewayToken == nil {
		t.Errorf("gateway token not persisted")
	}
}

func TestPaymentService_InitiateSurvivesGatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Gateway = &stubGateway{err: errors.New("gateway down")}
	branch := env.seedBranch(t, "Abuja", "AB")
	learner := env.seedLearner(t, branch.ID, "JSS1", "CGS/AB/25/001")

	payment, err := NewPaymentService(env.deps, env.config).Initiate(context.Background(), &InitiatePaymentRequest{
		StudentID:     "CGS/AB/25/001",
		BranchID:      branch.ID,
		Amount:        2500,
		PaymentMethod: models.PaymentMethodGateway,
	}, learnerPrincipal(learner))
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	if payment.Status != models.PaymentPending || payment.GatewayRedirectURL != nil {
		t.Fatalf("payment should stay pending without checkout, got %+v", payment)
	}
}

func TestPaymentService_InitiateRejectsUnbillableGatewayPayment(t *testing.T) {
	tests := []struct {
		name   string
		reject error
		field  string
	}{
		{name: "currency", reject: gateway.ErrUnsupportedCurrency, field: "currency"},
		{name: "fractional amount", reject: gateway.ErrFractionalAmount, field: "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			stub := &stubGateway{reject: tt.reject}
			env.deps.Gateway = stub
			branch := env.seedBranch(t, "Abuja", "AB")
			learner := env.seedLearner(t, branch.ID, "JSS1", "CGS/AB/25/001")

			_, err := NewPaymentService(env.deps, env.config).Initiate(context.Background(), &InitiatePaymentRequest{
				StudentID:     "CGS/AB/25/001",
				BranchID:      branch.ID,
				Amount:        2500.5,
				PaymentMethod: models.PaymentMethodGateway,
			}, learnerPrincipal(learner))

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.field {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.field)
			}
			if len(stub.calls) != 0 || len(env.repo.store.payments) != 0 {
				t.Errorf("nothing should be stored or sent: calls=%d payments=%d", len(stub.calls), len(env.repo.store.payments))
			}
		})
	}
}

func TestPaymentService_UpdateStatusIsTerminal(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.initiate(t)
	admin := staffPrincipal(900, models.RoleBranchAdmin, f.branch.ID)
	notes := "bank slip checked"

	updated, err := f.svc.UpdateStatus(context.Background(), payment.ID, &UpdatePaymentStatusRequest{Status: models.PaymentSuccessful, AdminNotes: &notes}, admin)
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if updated.Status != models.PaymentSuccessful || updated.VerifiedBy == nil || *updated.VerifiedBy != admin.ID {
		t.Fatalf("unexpected payment after transition %+v", updated)
	}
	if updated.VerifiedAt == nil || !updated.VerifiedAt.Equal(testNow) {
		t.Errorf("verified_at = %v, want %v", updated.VerifiedAt, testNow)
	}

	_, err = f.svc.UpdateStatus(context.Background(), payment.ID, &UpdatePaymentStatusRequest{Status: models.PaymentFailed}, admin)
	if !errors.Is(err, ErrPaymentNotPending) {
		t.Fatalf("expected ErrPaymentNotPending, got %v", err)
	}
	var rule *BusinessRuleError
	if !errors.As(err, &rule) {
		t.Fatalf("expected BusinessRuleError, got %T", err)
	}
	if got := f.env.repo.store.payments[payment.ID].Status; got != models.PaymentSuccessful {
		t.Errorf("status changed to %s after a rejected transition", got)
	}
	if f.env.metrics.payments["successful"] != 1 || f.env.metrics.payments["failed"] != 0 {
		t.Errorf("unexpected transition metrics %v", f.env.metrics.payments)
	}
	if n := len(f.env.publisher.EventsOfType(events.PaymentStatusChanged)); n != 1 {
		t.Errorf("expected one payment.status_changed event, got %d", n)
	}
}

func TestPaymentService_UpdateStatusRejections(t *testing.T) {
	f := newPaymentFixture(t)
	other := f.env.seedBranch(t, "Lagos", "LG")
	payment := f.initiate(t)

	if _, err := f.svc.UpdateStatus(context.Background(), payment.ID, &UpdatePaymentStatusRequest{Status: models.PaymentSuccessful}, staffPrincipal(901, models.RoleBranchAdmin, other.ID)); !errors.Is(err, ErrForbidden) {
		t.Errorf("other branch admin: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), payment.ID, &UpdatePaymentStatusRequest{Status: models.PaymentSuccessful}, learnerPrincipal(f.learner)); !errors.Is(err, ErrForbidden) {
		t.Errorf("learner: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), 4242, &UpdatePaymentStatusRequest{Status: models.PaymentSuccessful}, staffPrincipal(1, models.RoleSuperAdmin, 0)); !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("unknown payment: expected ErrPaymentNotFound, got %v", err)
	}
	_, err := f.svc.UpdateStatus(context.Background(), payment.ID, &UpdatePaymentStatusRequest{Status: models.PaymentPending}, staffPrincipal(1, models.RoleSuperAdmin, 0))
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Errorf("pending target: expected ValidationErrors, got %v", err)
	}
	if got := f.env.repo.store.payments[payment.ID].Status; got != models.PaymentPending {
		t.Errorf("payment must still be pending, got %s", got)
	}
}

func TestPaymentService_Search(t *testing.T) {
	f := newPaymentFixture(t)
	first := f.initiate(t)
	latest := f.initiate(t)
	admin := staffPrincipal(900, models.RoleBranchAdmin, f.branch.ID)

	tests := []struct {
		name    string
		query   string
		wantID  uint
		wantErr error
	}{
		{name: "by reference", query: first.TransactionReference, wantID: first.ID},
		{name: "by student id picks latest pending", query: "CGS/AB/25/001", wantID: latest.ID},
		{name: "student id in lower case", query: "cgs/ab/25/001", wantID: latest.ID},
		{name: "unknown", query: "PAY_NOPE", wantErr: ErrPaymentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Search(context.Background(), tt.query, admin)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("Search(%q) = payment %d, want %d", tt.query, got.ID, tt.wantID)
			}
		})
	}

	if _, err := f.svc.Search(context.Background(), first.TransactionReference, learnerPrincipal(f.learner)); !errors.Is(err, ErrForbidden) {
		t.Errorf("learners must not search, got %v", err)
	}
}

func TestPaymentService_ReadScopes(t *testing.T) {
	f := newPaymentFixture(t)
	other := f.env.seedBranch(t, "Lagos", "LG")
	payment := f.initiate(t)
	classmate := f.env.seedLearner(t, f.branch.ID, "JSS1", "CGS/AB/25/002")

	if _, err := f.svc.GetByID(context.Background(), payment.ID, learnerPrincipal(f.learner)); err != nil {
		t.Errorf("owner must read own payment, got %v", err)
	}
	if _, err := f.svc.GetByID(context.Background(), payment.ID, learnerPrincipal(classmate)); !errors.Is(err, ErrForbidden) {
		t.Errorf("classmate: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.GetByID(context.Background(), payment.ID, staffPrincipal(901, models.RoleBranchAdmin, other.ID)); !errors.Is(err, ErrForbidden) {
		t.Errorf("other branch admin: expected ErrForbidden, got %v", err)
	}

	mine, err := f.svc.ListMine(context.Background(), learnerPrincipal(classmate))
	if err != nil || len(mine) != 0 {
		t.Errorf("classmate should have no payments, got %d (%v)", len(mine), err)
	}

	resp, err := f.svc.List(context.Background(), models.PaymentFilters{}, staffPrincipal(901, models.RoleBranchAdmin, other.ID))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("other branch admin must not see this branch's payments, got %d", resp.Total)
	}
}

func TestPaymentService_HasSuccessfulPayment(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.initiate(t)

	paid, err := f.svc.HasSuccessfulPayment(context.Background(), f.learner.ID)
	if err != nil || paid {
		t.Fatalf("pending payment must not count, got %v (%v)", paid, err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), payment.ID, &UpdatePaymentStatusRequest{Status: models.PaymentSuccessful}, staffPrincipal(1, models.RoleSuperAdmin, 0)); err != nil {
		t.Fatal(err)
	}
	paid, err = f.svc.HasSuccessfulPayment(context.Background(), f.learner.ID)
	if err != nil || !paid {
		t.Fatalf("successful payment must count, got %v (%v)", paid, err)
	}
}
