// Package modal drives the reservation form as an explicit state machine.
package modal

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/donatale/donatale"
	"github.com/donatale/donatale/client"
)

// ReloadDelay separates a successful reservation from the listing reload.
const ReloadDelay = 2 * time.Second

type State int

const (
	Idle State = iota
	Validating
	Submitting
	Success
	Rejected
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrBusy is returned while a submission is in flight.
	ErrBusy = errors.New("a submission is already in progress")
	// ErrNotAcknowledged is returned when Submit follows Success without Acknowledge.
	ErrNotAcknowledged = errors.New("the previous outcome has not been acknowledged")
)

// ValidationError is a client side rejection; no request was issued.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// View is the input surface the controller drives.
type View interface {
	// Populate shows the item and clears the donor fields.
	Populate(item donatale.DonationItemData)
	Show()
	Close()
	SetBusy(busy bool, label string)
	FieldError(field, message string)
	Alert(message string)
	// RenderItems replaces the listing after a reload.
	RenderItems(items []donatale.DonationItemView)
}

type Submitter interface {
	Reserve(ctx context.Context, req donatale.ReservationRequest) (donatale.ReservationResponse, error)
}

// Lister serves the item listing; *client.Client is one.
type Lister interface {
	ListItems(ctx context.Context) ([]donatale.DonationItemView, error)
	InvalidateItems()
}

// Scheduler runs f after d.
type Scheduler func(d time.Duration, f func())

func afterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Form is what the donor typed plus the hidden item fields.
type Form struct {
	ItemID       string
	DonationCode string
	DonorName    string
	DonorEmail   string
	DonatedBy    string
}

type Controller struct {
	mu        sync.Mutex
	state     State
	item      donatale.DonationItemData
	view      View
	submitter Submitter
	messages  Messages
	schedule  Scheduler
	reload    func()
}

type Option func(*Controller)

func WithMessages(m Messages) Option {
	return func(c *Controller) { c.messages = m }
}

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.schedule = s }
}

// WithReload sets what runs ReloadDelay after a successful reservation.
// By default a submitter that is also a Lister is refetched and rendered.
func WithReload(reload func()) Option {
	return func(c *Controller) { c.reload = reload }
}

func NewController(view View, submitter Submitter, opts ...Option) *Controller {
	c := &Controller{
		state:     Idle,
		view:      view,
		submitter: submitter,
		messages:  NewMessages(""),
		schedule:  afterFunc,
		reload:    func() {},
	}
	if lister, ok := submitter.(Lister); ok {
		c.reload = c.reloadFrom(lister)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// reloadFrom drops the cached listing and renders a fresh one.
func (c *Controller) reloadFrom(lister Lister) func() {
	return func() {
		lister.InvalidateItems()
		items, err := lister.ListItems(context.Background())
		if err != nil {
			return
		}
		c.view.RenderItems(items)
	}
}

// Open shows the form for item with empty donor fields.
func (c *Controller) Open(item donatale.DonationItemData) error {
	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.item = item
	c.state = Idle
	c.mu.Unlock()

	c.view.Populate(item)
	c.view.SetBusy(false, c.messages.get(labelSubmit))
	c.view.Show()
	return nil
}

// Close dismisses the form. An in-flight submission keeps running.
func (c *Controller) Close() {
	c.view.Close()
	c.mu.Lock()
	if c.state != Submitting {
		c.state = Idle
	}
	c.mu.Unlock()
}

// Acknowledge returns a terminal state to Idle.
func (c *Controller) Acknowledge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Success, Rejected, Failed:
		c.state = Idle
	}
}

// Submit validates form and issues exactly one reservation request.
// It returns the state the controller settled in.
func (c *Controller) Submit(ctx context.Context, form Form) (State, error) {
	c.mu.Lock()
	switch c.state {
	case Idle, Rejected, Failed:
	case Submitting, Validating:
		c.mu.Unlock()
		return Submitting, ErrBusy
	default:
		state := c.state
		c.mu.Unlock()
		return state, ErrNotAcknowledged
	}
	c.state = Validating
	req := c.request(form)

	if verr := c.validate(req); verr != nil {
		c.state = Idle
		c.mu.Unlock()
		c.view.FieldError(verr.Field, verr.Message)
		return Idle, verr
	}
	c.state = Submitting
	c.mu.Unlock()

	c.view.SetBusy(true, c.messages.get(labelBusy))
	_, err := c.submitter.Reserve(ctx, req)
	c.view.SetBusy(false, c.messages.get(labelSubmit))

	next := c.settle(err)

	c.mu.Lock()
	c.state = next
	c.mu.Unlock()

	if next == Success {
		return next, nil
	}
	return next, err
}

func (c *Controller) request(form Form) donatale.ReservationRequest {
	req := donatale.ReservationRequest{
		ItemID:       form.ItemID,
		DonationCode: form.DonationCode,
		DonorName:    form.DonorName,
		DonorEmail:   form.DonorEmail,
		DonatedBy:    form.DonatedBy,
	}
	if req.ItemID == "" {
		req.ItemID = c.item.ID
	}
	if req.DonationCode == "" {
		req.DonationCode = c.item.DonationCode
	}
	return req.Normalize()
}

func (c *Controller) validate(req donatale.ReservationRequest) *ValidationError {
	required := []struct {
		field string
		value string
	}{
		{"itemId", req.ItemID},
		{"donationCode", req.DonationCode},
		{"donorName", req.DonorName},
		{"donorEmail", req.DonorEmail},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Message: c.messages.get(msgRequiredFields)}
		}
	}
	if !donatale.IsEmail(req.DonorEmail) {
		return &ValidationError{Field: "donorEmail", Message: c.messages.get(msgInvalidEmail)}
	}
	return nil
}

// settle renders the outcome of a request and picks the terminal state.
func (c *Controller) settle(err error) State {
	if err == nil {
		c.view.Close()
		c.view.Alert(c.messages.get(msgSuccess))
		c.schedule(ReloadDelay, c.reload)
		return Success
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		c.view.Alert(c.messages.get(msgRejected, c.messages.get(rejectionReason(apiErr.Status))))
		return Rejected
	}

	c.view.Alert(c.messages.get(msgFailed))
	return Failed
}

// rejectionReason maps a response status to a catalog key; server text is never shown.
func rejectionReason(status int) string {
	switch status {
	case http.StatusConflict:
		return reasonConflict
	case http.StatusNotFound:
		return reasonNotFound
	case http.StatusBadRequest:
		return msgRequiredFields
	}
	return reasonGeneric
}

var _ Lister = (*client.Client)(nil)
