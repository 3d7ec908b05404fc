package usecase

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/donatale/donatale"
	"github.com/donatale/donatale/internal/domain"
)

var tracer = otel.Tracer("reservation")

const (
	DefaultItemTypeKey   = "donation_item"
	DefaultEventTypeKey  = "donation_event"
	DefaultRelationField = "donation"
	DefaultSiteName      = "Donatale"
)

// ReservationResult is returned by a successful Reserve.
type ReservationResult struct {
	EventID string
}

type ReservationUsecase struct {
	store    ContentStore
	mailer   Mailer
	attempts AttemptLog
	signals  SignalPublisher
	config   domain.Config
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

type ReservationOption func(*ReservationUsecase)

func WithAttemptLog(log AttemptLog) ReservationOption {
	return func(uc *ReservationUsecase) { uc.attempts = log }
}

func WithSignalPublisher(pub SignalPublisher) ReservationOption {
	return func(uc *ReservationUsecase) { uc.signals = pub }
}

func WithLogger(logger zerolog.Logger) ReservationOption {
	return func(uc *ReservationUsecase) { uc.logger = logger }
}

func NewReservationUsecase(store ContentStore, mailer Mailer, config domain.Config, opts ...ReservationOption) *ReservationUsecase {
	uc := &ReservationUsecase{
		store:    store,
		mailer:   mailer,
		config:   withDefaults(config),
		validate: newRequestValidator(),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func withDefaults(config domain.Config) domain.Config {
	if config.ItemTypeKey == "" {
		config.ItemTypeKey = DefaultItemTypeKey
	}
	if config.EventTypeKey == "" {
		config.EventTypeKey = DefaultEventTypeKey
	}
	if config.RelationField == "" {
		config.RelationField = DefaultRelationField
	}
	if config.SiteName == "" {
		config.SiteName = DefaultSiteName
	}
	return config
}

// newRequestValidator reports validation failures by json field name.
func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func (uc *ReservationUsecase) validateRequest(req donatale.ReservationRequest) error {
	err := uc.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return domain.InvalidRequestError{Fields: fields}
}

// Reserve links a new DonationEvent to an unclaimed item and notifies donor and admin.
//
// The claimed check is a read followed by two writes with no lock in between: two concurrent
// calls for the same item can both succeed, the later update wins the item's relation.
// A failure after the event is created leaves it unlinked; the attempt is logged as orphaned.
func (uc *ReservationUsecase) Reserve(ctx context.Context, req donatale.ReservationRequest) (ReservationResult, error) {
	ctx, span := tracer.Start(ctx, "Reservation.Usecase.Reserve")
	defer span.End()

	req = req.Normalize()
	if err := uc.validateRequest(req); err != nil {
		span.RecordError(err)
		uc.recordAttempt(ctx, req, "", err)
		return ReservationResult{}, err
	}
	span.SetAttributes(
		attribute.String("ItemID", req.ItemID),
		attribute.String("DonationCode", req.DonationCode),
	)

	// a client disconnect must not split create and link; each store call keeps its own timeout
	detached := context.WithoutCancel(ctx)

	item, eventID, err := uc.reserve(detached, req)
	if err != nil {
		span.RecordError(err)
		uc.recordAttempt(detached, req, eventID, err)
		return ReservationResult{}, err
	}

	// the reservation is durable from here on; nothing below can fail the call
	uc.notify(detached, req, item, eventID)
	uc.recordAttempt(detached, req, eventID, nil)
	uc.publish(detached, item.ID, eventID)

	uc.logger.Info().
		Str("item_id", item.ID).
		Str("event_id", eventID).
		Str("donation_code", req.DonationCode).
		Msg("donation reserved")

	return ReservationResult{EventID: eventID}, nil
}

func (uc *ReservationUsecase) reserve(ctx context.Context, req donatale.ReservationRequest) (domain.DonationItem, string, error) {
	item, err := uc.store.FindItem(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DonationItem{}, "", domain.NotFoundError{Resource: "donation item"}
		}
		return domain.DonationItem{}, "", domain.UpstreamError{Op: "find item", Err: err}
	}

	if item.Claimed() {
		return item, "", domain.ConflictError{ItemID: item.ID}
	}

	typeID, err := uc.eventTypeID(ctx)
	if err != nil {
		return item, "", err
	}

	event := domain.DonationEvent{
		Name:       fmt.Sprintf("Donation for %s by %s", item.Title, req.DonatedBy),
		DonorName:  req.DonorName,
		DonorEmail: req.DonorEmail,
		DonatedBy:  req.DonatedBy,
	}
	eventID, err := uc.store.CreateItem(ctx, typeID, map[string]any{
		"name":          event.Name,
		"donor_name":    event.DonorName,
		"donor_email":   event.DonorEmail,
		"donated_by":    event.DonatedBy,
		"donation_item": item.ID,
	})
	if err != nil {
		return item, "", domain.UpstreamError{Op: "create event", Err: err}
	}

	err = uc.store.UpdateItem(ctx, item.ID, map[string]any{
		uc.config.RelationField: eventID,
	})
	if err != nil {
		uc.logger.Error().Err(err).
			Str("item_id", item.ID).
			Str("event_id", eventID).
			Msg("donation event created but not linked to its item")
		return item, eventID, domain.UpstreamError{Op: "link item", Err: err}
	}

	return item, eventID, nil
}

func (uc *ReservationUsecase) eventTypeID(ctx context.Context) (string, error) {
	types, err := uc.store.ListItemTypes(ctx)
	if err != nil {
		return "", domain.UpstreamError{Op: "list item types", Err: err}
	}
	for _, t := range types {
		if t.APIKey == uc.config.EventTypeKey {
			return t.ID, nil
		}
	}
	return "", domain.ConfigurationError{Setting: fmt.Sprintf("item type %q not found", uc.config.EventTypeKey)}
}

func (uc *ReservationUsecase) notify(ctx context.Context, req donatale.ReservationRequest, item domain.DonationItem, eventID string) {
	donor, donorErr := donorConfirmation(uc.config, req, item)
	admin, adminErr := adminNotification(uc.config, req, item, eventID)

	for _, n := range []struct {
		email domain.Email
		err   error
	}{{donor, donorErr}, {admin, adminErr}} {
		err := n.err
		if err == nil {
			err = uc.mailer.Send(ctx, n.email)
		}
		if err != nil {
			nerr := domain.NotificationError{Recipient: n.email.To, Err: err}
			uc.logger.Warn().Err(nerr).
				Str("event_id", eventID).
				Str("subject", n.email.Subject).
				Msg("notification not sent")
		}
	}
}

func (uc *ReservationUsecase) recordAttempt(ctx context.Context, req donatale.ReservationRequest, eventID string, cause error) {
	if uc.attempts == nil {
		return
	}

	attempt := domain.ReservationAttempt{
		ID:           uuid.NewString(),
		ItemID:       req.ItemID,
		DonationCode: req.DonationCode,
		DonorEmail:   req.DonorEmail,
		EventID:      eventID,
		Outcome:      outcomeOf(eventID, cause),
		CreatedAt:    uc.now().UTC(),
	}
	if cause != nil {
		attempt.Reason = cause.Error()
	}

	if err := uc.attempts.Record(ctx, attempt); err != nil {
		uc.logger.Warn().Err(errors.Wrap(err, "attempts.Record failed")).
			Str("item_id", req.ItemID).
			Str("outcome", string(attempt.Outcome)).
			Msg("reservation attempt not recorded")
	}
}

func outcomeOf(eventID string, cause error) domain.AttemptOutcome {
	switch {
	case cause == nil:
		return domain.OutcomeReserved
	case eventID != "":
		return domain.OutcomeOrphaned
	case errors.Is(cause, domain.ErrInvalidRequest),
		errors.Is(cause, domain.ErrNotFound),
		errors.Is(cause, domain.ErrConflict):
		return domain.OutcomeRejected
	default:
		return domain.OutcomeFailed
	}
}

func (uc *ReservationUsecase) publish(ctx context.Context, itemID, eventID string) {
	if uc.signals == nil {
		return
	}
	signal := domain.ReservationSignal{
		ItemID:     itemID,
		EventID:    eventID,
		ReservedAt: uc.now().UTC(),
	}
	if err := uc.signals.PublishReservation(ctx, signal); err != nil {
		uc.logger.Warn().Err(err).Str("event_id", eventID).Msg("reservation signal not published")
	}
}

// Orphans lists events that were created but never linked to their item.
func (uc *ReservationUsecase) Orphans(ctx context.Context, limit int) ([]domain.ReservationAttempt, error) {
	if uc.attempts == nil {
		return nil, domain.ConfigurationError{Setting: "attempt log is not configured"}
	}
	return uc.attempts.ListOrphaned(ctx, limit)
}
