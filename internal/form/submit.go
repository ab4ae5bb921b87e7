package form

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/felixgeelhaar/adminconsole/internal/api"
	"github.com/felixgeelhaar/adminconsole/internal/authz"
	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/log"
	"github.com/felixgeelhaar/adminconsole/internal/metrics"
	"github.com/felixgeelhaar/adminconsole/internal/notify"
	"github.com/felixgeelhaar/adminconsole/internal/telemetry"
)

// Submission outcomes reported to metrics.
const (
	OutcomeSucceeded    = "succeeded"
	OutcomeFailed       = "failed"
	OutcomeUnauthorized = "unauthorized"
)

// View is the UI a form is rendered in.
type View interface {
	SetSubmitting(busy bool)
	ClearFieldErrors()
	SetFieldError(name string, messages []string)
	SwitchToEdit(id string)
}

// Navigator leaves the current screen.
type Navigator interface {
	RedirectToLogin()
}

// Doer sends API requests.
type Doer interface {
	Do(ctx context.Context, req api.Request) (*api.Response, error)
}

// Credentials is the part of the credential store the submitter needs.
type Credentials interface {
	Token(ctx context.Context) string
	Clear(ctx context.Context) error
}

// Options are per-submission settings.
type Options struct {
	View View
	// OnSuccess receives the response of a successful submission.
	OnSuccess func(resp *api.Response)
}

// Result describes a finished submission.
type Result struct {
	State    State
	Status   int
	Data     json.RawMessage
	EntityID string
	Payload  Payload
}

// Config wires a Submitter.
type Config struct {
	Navigator Navigator
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

// Submitter sends forms to the API.
type Submitter struct {
	doer     Doer
	creds    Credentials
	nav      Navigator
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *log.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(doer Doer, creds Credentials, cfg Config) *Submitter {
	nav := cfg.Navigator
	if nav == nil {
		nav = nopNavigator{}
	}
	return &Submitter{
		doer:     doer,
		creds:    creds,
		nav:      nav,
		notifier: notify.OrNop(cfg.Notifier),
		metrics:  cfg.Metrics,
		logger:   log.OrDefault(cfg.Logger).WithComponent("form"),
	}
}

// Submit sends f and applies the outcome to opts.View. The view's busy
// state is cleared on every terminal outcome.
//
// A 401 clears the credential store and redirects to login; it is never
// shown as a field error. Other failures notify the user and annotate the
// named fields. A successful create whose response carries data.id turns
// f into an edit form for that id.
func (s *Submitter) Submit(ctx context.Context, f *Form, opts Options) (result Result, err error) {
	view := opts.View
	if view == nil {
		view = nopView{}
	}

	if !f.begin() {
		return Result{State: StateSubmitting}, errors.New(errors.ErrCodeConflict, errors.KindValidation, "form is already being submitted")
	}
	view.SetSubmitting(true)
	view.ClearFieldErrors()
	defer func() {
		f.finish(result.State)
		view.SetSubmitting(false)
	}()

	method, path, err := target(f)
	if err != nil {
		return Result{State: StateFailed}, err
	}

	ctx, span := telemetry.StartFormSpan(ctx, method, f.Endpoint)
	defer func() { telemetry.End(span, err) }()

	payload, err := Encode(f.Fields)
	if err != nil {
		s.metrics.RecordFormSubmission(OutcomeFailed)
		return Result{State: StateFailed}, err
	}

	header := make(http.Header)
	if token := s.creds.Token(ctx); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.doer.Do(ctx, api.Request{
		Method:      method,
		Path:        path,
		Body:        bytes.NewReader(payload.Body),
		ContentType: payload.ContentType,
		Header:      header,
		Endpoint:    f.Endpoint,
	})
	result = Result{State: StateFailed, Payload: payload}
	if resp != nil {
		result.Status = resp.Status
		result.Data = resp.Envelope.Data
	}

	if err != nil {
		return result, s.fail(ctx, f, view, err)
	}
	if !resp.Envelope.Succeeded() {
		rejected := errors.New(errors.ErrCodeValidationFailed, errors.KindValidation, messageOr(resp.Envelope.Message, "the server rejected the form")).
			WithStatus(resp.Status).
			WithFields(errors.NormalizeFieldMessages(resp.Envelope.Errors))
		return result, s.fail(ctx, f, view, rejected)
	}

	result.State = StateSucceeded
	result.EntityID = createdID(resp)
	s.metrics.RecordFormSubmission(OutcomeSucceeded)
	s.logger.DebugContext(ctx, "form submitted", "method", method, "endpoint", f.Endpoint, "status", resp.Status)

	if opts.OnSuccess != nil {
		opts.OnSuccess(resp)
	}
	if f.Mode == ModeCreate && result.EntityID != "" {
		f.Mode = ModeEdit
		f.EntityID = result.EntityID
		view.SwitchToEdit(result.EntityID)
	}
	return result, nil
}

func (s *Submitter) fail(ctx context.Context, f *Form, view View, err error) error {
	if errors.StatusOf(err) == http.StatusUnauthorized {
		s.metrics.RecordFormSubmission(OutcomeUnauthorized)
		s.logger.InfoContext(ctx, "session rejected during form submission; redirecting to login", "endpoint", f.Endpoint)
		if clearErr := s.creds.Clear(ctx); clearErr != nil {
			s.logger.WithError(clearErr).WarnContext(ctx, "failed to clear credentials")
		}
		s.nav.RedirectToLogin()
		return err
	}

	s.metrics.RecordFormSubmission(OutcomeFailed)
	s.logger.WithError(err).DebugContext(ctx, "form submission failed", "endpoint", f.Endpoint)

	msg := "Submission failed"
	if ce, ok := errors.As(err); ok {
		msg = ce.Message
		keys := make([]string, 0, len(ce.Fields))
		for key := range ce.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		annotated := make(map[string][]string)
		for _, key := range keys {
			if name, ok := f.fieldFor(key); ok {
				annotated[name] = append(annotated[name], ce.Fields[key]...)
			}
		}
		for _, field := range f.Fields {
			if msgs, ok := annotated[field.Name]; ok {
				view.SetFieldError(field.Name, msgs)
				delete(annotated, field.Name)
			}
		}
	}
	s.notifier.Error(msg)
	return err
}

// target resolves the HTTP method and path for f.
func target(f *Form) (string, string, error) {
	endpoint := strings.TrimRight(f.Endpoint, "/")
	if endpoint == "" {
		return "", "", errors.New(errors.ErrCodeValidationFailed, errors.KindValidation, "form has no endpoint")
	}
	method := strings.ToUpper(strings.TrimSpace(f.Method))

	if f.Mode == ModeEdit {
		if f.EntityID == "" {
			return "", "", errors.New(errors.ErrCodeValidationFailed, errors.KindValidation, "edit form has no entity id")
		}
		if method == "" {
			method = http.MethodPut
		}
		return method, endpoint + "/" + url.PathEscape(f.EntityID), nil
	}
	if method == "" {
		method = http.MethodPost
	}
	return method, endpoint, nil
}

// createdID reads data.id from a response, accepting numbers and strings.
func createdID(resp *api.Response) string {
	var data struct {
		ID authz.ID `json:"id"`
	}
	if len(resp.Envelope.Data) > 0 && json.Unmarshal(resp.Envelope.Data, &data) == nil {
		return data.ID.String()
	}
	return ""
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

type nopView struct{}

func (nopView) SetSubmitting(bool)             {}
func (nopView) ClearFieldErrors()              {}
func (nopView) SetFieldError(string, []string) {}
func (nopView) SwitchToEdit(string)            {}

type nopNavigator struct{}

func (nopNavigator) RedirectToLogin() {}
