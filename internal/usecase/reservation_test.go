package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/donatale/donatale"
	"github.com/donatale/donatale/internal/domain"
)

// --- mocks ---

type mockStore struct {
	items     map[string]domain.DonationItem
	types     []domain.ItemType
	nextID    int
	finds     int
	typeCalls int
	creates   []map[string]any
	updates   []map[string]any

	findErr   error
	typesErr  error
	createErr error
	updateErr error
}

func newMockStore(items ...domain.DonationItem) *mockStore {
	m := &mockStore{
		items: map[string]domain.DonationItem{},
		types: []domain.ItemType{
			{ID: "type-item", APIKey: "donation_item"},
			{ID: "type-event", APIKey: "donation_event"},
		},
	}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *mockStore) FindItem(ctx context.Context, id string) (domain.DonationItem, error) {
	m.finds++
	if m.findErr != nil {
		return domain.DonationItem{}, m.findErr
	}
	it, ok := m.items[id]
	if !ok {
		return domain.DonationItem{}, domain.NotFoundError{Resource: "item " + id}
	}
	return it, nil
}

func (m *mockStore) ListItemTypes(ctx context.Context) ([]domain.ItemType, error) {
	m.typeCalls++
	return m.types, m.typesErr
}

func (m *mockStore) CreateItem(ctx context.Context, itemTypeID string, fields map[string]any) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.nextID++
	fields["item_type"] = itemTypeID
	m.creates = append(m.creates, fields)
	return fmt.Sprintf("event-%d", m.nextID), nil
}

func (m *mockStore) UpdateItem(ctx context.Context, id string, fields map[string]any) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, fields)
	it := m.items[id]
	if v, ok := fields["donation"].(string); ok {
		it.DonationID = v
	}
	m.items[id] = it
	return nil
}

func (m *mockStore) ListItems(ctx context.Context, itemTypeKey string) ([]domain.DonationItem, error) {
	var out []domain.DonationItem
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

type mockMailer struct {
	sent []domain.Email
	err  error
}

func (m *mockMailer) Send(ctx context.Context, email domain.Email) error {
	m.sent = append(m.sent, email)
	return m.err
}

type mockAttemptLog struct {
	attempts []domain.ReservationAttempt
	err      error
}

func (m *mockAttemptLog) Record(ctx context.Context, attempt domain.ReservationAttempt) error {
	m.attempts = append(m.attempts, attempt)
	return m.err
}

func (m *mockAttemptLog) ListOrphaned(ctx context.Context, limit int) ([]domain.ReservationAttempt, error) {
	var out []domain.ReservationAttempt
	for _, a := range m.attempts {
		if a.Outcome == domain.OutcomeOrphaned {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockSignals struct {
	signals []domain.ReservationSignal
}

func (m *mockSignals) PublishReservation(ctx context.Context, signal domain.ReservationSignal) error {
	m.signals = append(m.signals, signal)
	return nil
}

func testConfig() domain.Config {
	return domain.Config{AdminEmail: "admin@donatale.example"}
}

func marioRequest() donatale.ReservationRequest {
	return donatale.ReservationRequest{
		ItemID:       "X",
		DonationCode: "AB12",
		DonorName:    "Mario",
		DonorEmail:   "mario@example.com",
		DonatedBy:    "",
	}
}

func unclaimedItem() domain.DonationItem {
	return domain.DonationItem{ID: "X", Title: "Bicicletta", PersonName: "Luca"}
}

// --- tests ---

func TestReserveSuccess(t *testing.T) {
	store := newMockStore(unclaimedItem())
	mailer := &mockMailer{}
	attempts := &mockAttemptLog{}
	signals := &mockSignals{}
	uc := NewReservationUsecase(store, mailer, testConfig(), WithAttemptLog(attempts), WithSignalPublisher(signals))

	result, err := uc.Reserve(context.Background(), marioRequest())
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	if len(store.creates) != 1 {
		t.Fatalf("expected exactly one event created, got %d", len(store.creates))
	}
	created := store.creates[0]
	if created["donated_by"] != "Mario" {
		t.Fatalf("expected donated_by to default to Mario, got %v", created["donated_by"])
	}
	if created["item_type"] != "type-event" {
		t.Fatalf("expected event type id type-event, got %v", created["item_type"])
	}
	if created["name"] != "Donation for Bicicletta by Mario" {
		t.Fatalf("unexpected event name %v", created["name"])
	}

	if len(store.updates) != 1 || store.updates[0]["donation"] != result.EventID {
		t.Fatalf("expected item linked to %s, got %v", result.EventID, store.updates)
	}
	if store.items["X"].DonationID != result.EventID {
		t.Fatalf("expected returned id %s to match linked id %s", result.EventID, store.items["X"].DonationID)
	}

	if len(mailer.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(mailer.sent))
	}
	recipients := map[string]bool{}
	for _, e := range mailer.sent {
		recipients[e.To] = true
		if !strings.Contains(e.Subject, "AB12") {
			t.Fatalf("expected subject to contain donation code, got %q", e.Subject)
		}
	}
	if !recipients["mario@example.com"] || !recipients["admin@donatale.example"] {
		t.Fatalf("expected donor and admin recipients, got %v", recipients)
	}

	if len(attempts.attempts) != 1 || attempts.attempts[0].Outcome != domain.OutcomeReserved {
		t.Fatalf("expected a reserved attempt, got %+v", attempts.attempts)
	}
	if len(signals.signals) != 1 || signals.signals[0].EventID != result.EventID {
		t.Fatalf("expected a reservation signal, got %+v", signals.signals)
	}
}

func TestReserveMissingFields(t *testing.T) {
	cases := map[string]func(r *donatale.ReservationRequest){
		"itemId":       func(r *donatale.ReservationRequest) { r.ItemID = "" },
		"donationCode": func(r *donatale.ReservationRequest) { r.DonationCode = " " },
		"donorName":    func(r *donatale.ReservationRequest) { r.DonorName = "" },
		"donorEmail":   func(r *donatale.ReservationRequest) { r.DonorEmail = "" },
	}

	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			store := newMockStore(unclaimedItem())
			mailer := &mockMailer{}
			uc := NewReservationUsecase(store, mailer, testConfig())

			req := marioRequest()
			mutate(&req)
			_, err := uc.Reserve(context.Background(), req)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected invalid request, got %v", err)
			}
			var invalid domain.InvalidRequestError
			if !errors.As(err, &invalid) || !contains(invalid.Fields, field) {
				t.Fatalf("expected %s among missing fields, got %v", field, err)
			}
			if store.finds != 0 || store.typeCalls != 0 {
				t.Fatalf("expected no store access, got %d finds %d type listings", store.finds, store.typeCalls)
			}
			if len(mailer.sent) != 0 {
				t.Fatalf("expected no emails")
			}
		})
	}
}

func TestReserveAlreadyClaimed(t *testing.T) {
	item := unclaimedItem()
	item.DonationID = "event-old"
	store := newMockStore(item)
	mailer := &mockMailer{}
	attempts := &mockAttemptLog{}
	uc := NewReservationUsecase(store, mailer, testConfig(), WithAttemptLog(attempts))

	_, err := uc.Reserve(context.Background(), marioRequest())
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(store.creates) != 0 || len(store.updates) != 0 {
		t.Fatalf("expected no writes, got %d creates %d updates", len(store.creates), len(store.updates))
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no emails")
	}
	if attempts.attempts[0].Outcome != domain.OutcomeRejected {
		t.Fatalf("expected rejected outcome, got %s", attempts.attempts[0].Outcome)
	}
}

func TestReserveTwiceReturnsConflict(t *testing.T) {
	store := newMockStore(unclaimedItem())
	uc := NewReservationUsecase(store, &mockMailer{}, testConfig())

	if _, err := uc.Reserve(context.Background(), marioRequest()); err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}
	_, err := uc.Reserve(context.Background(), marioRequest())
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on second reserve, got %v", err)
	}
	if len(store.creates) != 1 {
		t.Fatalf("expected a single event, got %d", len(store.creates))
	}
}

func TestReserveItemNotFound(t *testing.T) {
	store := newMockStore()
	mailer := &mockMailer{}
	uc := NewReservationUsecase(store, mailer, testConfig())

	_, err := uc.Reserve(context.Background(), marioRequest())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(store.creates) != 0 || len(mailer.sent) != 0 {
		t.Fatalf("expected no event and no emails")
	}
}

func TestReserveMissingEventType(t *testing.T) {
	store := newMockStore(unclaimedItem())
	store.types = []domain.ItemType{{ID: "type-item", APIKey: "donation_item"}}
	uc := NewReservationUsecase(store, &mockMailer{}, testConfig())

	_, err := uc.Reserve(context.Background(), marioRequest())
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(store.creates) != 0 {
		t.Fatalf("expected no event created")
	}
}

func TestReserveUpstreamFailures(t *testing.T) {
	boom := errors.New("502 bad gateway")

	t.Run("find", func(t *testing.T) {
		store := newMockStore(unclaimedItem())
		store.findErr = boom
		uc := NewReservationUsecase(store, &mockMailer{}, testConfig())
		_, err := uc.Reserve(context.Background(), marioRequest())
		if !errors.Is(err, domain.ErrUpstream) || !errors.Is(err, boom) {
			t.Fatalf("expected upstream error wrapping cause, got %v", err)
		}
	})

	t.Run("list types", func(t *testing.T) {
		store := newMockStore(unclaimedItem())
		store.typesErr = boom
		uc := NewReservationUsecase(store, &mockMailer{}, testConfig())
		_, err := uc.Reserve(context.Background(), marioRequest())
		if !errors.Is(err, domain.ErrUpstream) {
			t.Fatalf("expected upstream error, got %v", err)
		}
	})

	t.Run("create", func(t *testing.T) {
		store := newMockStore(unclaimedItem())
		store.createErr = boom
		attempts := &mockAttemptLog{}
		uc := NewReservationUsecase(store, &mockMailer{}, testConfig(), WithAttemptLog(attempts))
		_, err := uc.Reserve(context.Background(), marioRequest())
		if !errors.Is(err, domain.ErrUpstream) {
			t.Fatalf("expected upstream error, got %v", err)
		}
		if len(store.updates) != 0 {
			t.Fatalf("expected no update after failed create")
		}
		if attempts.attempts[0].Outcome != domain.OutcomeFailed {
			t.Fatalf("expected failed outcome, got %s", attempts.attempts[0].Outcome)
		}
	})
}

func TestReserveLinkFailureLeavesOrphan(t *testing.T) {
	store := newMockStore(unclaimedItem())
	store.updateErr = errors.New("timeout")
	mailer := &mockMailer{}
	attempts := &mockAttemptLog{}
	uc := NewReservationUsecase(store, mailer, testConfig(), WithAttemptLog(attempts))

	_, err := uc.Reserve(context.Background(), marioRequest())
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(store.creates) != 1 {
		t.Fatalf("expected the event to stay created, got %d", len(store.creates))
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no emails for an unlinked event")
	}

	orphans, err := uc.Orphans(context.Background(), 10)
	if err != nil {
		t.Fatalf("orphans failed: %v", err)
	}
	if len(orphans) != 1 || orphans[0].EventID != "event-1" {
		t.Fatalf("expected orphaned event-1, got %+v", orphans)
	}
}

func TestReserveIgnoresNotificationFailure(t *testing.T) {
	store := newMockStore(unclaimedItem())
	mailer := &mockMailer{err: errors.New("smtp down")}
	uc := NewReservationUsecase(store, mailer, testConfig())

	result, err := uc.Reserve(context.Background(), marioRequest())
	if err != nil {
		t.Fatalf("expected success despite email failure, got %v", err)
	}
	if result.EventID == "" {
		t.Fatalf("expected event id")
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("expected both emails to be attempted, got %d", len(mailer.sent))
	}
}

func TestReserveIgnoresAttemptLogFailure(t *testing.T) {
	store := newMockStore(unclaimedItem())
	attempts := &mockAttemptLog{err: errors.New("db down")}
	uc := NewReservationUsecase(store, &mockMailer{}, testConfig(), WithAttemptLog(attempts))

	if _, err := uc.Reserve(context.Background(), marioRequest()); err != nil {
		t.Fatalf("expected success despite attempt log failure, got %v", err)
	}
}

func TestOrphansWithoutAttemptLog(t *testing.T) {
	uc := NewReservationUsecase(newMockStore(), &mockMailer{}, testConfig())
	if _, err := uc.Orphans(context.Background(), 10); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// cancelOnCreateStore cancels the caller's context once the event exists and honours ctx on update.
type cancelOnCreateStore struct {
	*mockStore
	cancel context.CancelFunc
}

func (s *cancelOnCreateStore) CreateItem(ctx context.Context, itemTypeID string, fields map[string]any) (string, error) {
	id, err := s.mockStore.CreateItem(ctx, itemTypeID, fields)
	s.cancel()
	return id, err
}

func (s *cancelOnCreateStore) UpdateItem(ctx context.Context, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mockStore.UpdateItem(ctx, id, fields)
}

func TestReserveSurvivesClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &cancelOnCreateStore{mockStore: newMockStore(unclaimedItem()), cancel: cancel}
	attempts := &mockAttemptLog{}
	mailer := &mockMailer{}
	uc := NewReservationUsecase(store, mailer, testConfig(), WithAttemptLog(attempts))

	result, err := uc.Reserve(ctx, marioRequest())
	if err != nil {
		t.Fatalf("expected reservation to complete after disconnect, got %v", err)
	}
	if len(store.updates) != 1 {
		t.Fatalf("expected the item to be linked, got %d updates", len(store.updates))
	}
	if store.items["X"].DonationID != result.EventID {
		t.Fatalf("expected item linked to %s, got %q", result.EventID, store.items["X"].DonationID)
	}
	if len(attempts.attempts) != 1 || attempts.attempts[0].Outcome != domain.OutcomeReserved {
		t.Fatalf("expected one reserved attempt, got %+v", attempts.attempts)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("expected both emails after disconnect, got %d", len(mailer.sent))
	}
}
