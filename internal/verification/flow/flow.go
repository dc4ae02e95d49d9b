// Package flow owns the verification state machine. It is the only component
// with write access to the current step: the resolver, extraction adapter,
// form validator, and hosted-session poller all report back into one Flow,
// which applies transitions strictly in the order results arrive.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"guestpass/internal/platform/metrics"
	"guestpass/internal/verification/extraction"
	"guestpass/internal/verification/form"
	"guestpass/internal/verification/kyc"
	"guestpass/internal/verification/models"
	"guestpass/internal/verification/notify"
	"guestpass/internal/verification/store/dispatch"
	dErrors "guestpass/pkg/domain-errors"
)

// User-facing messages emitted through the notifier. Kept as constants so
// tests can assert exactly which messages a transition produced.
const (
	msgLinkInvalid      = "This verification link is invalid. Please ask your host for a new one."
	msgLinkExpired      = "This verification link has expired. Please ask your host for a new one."
	msgAlreadyVerified  = "Your identity is already verified."
	msgManualEntry      = "We could not read your document. Please fill in your details manually."
	msgUploadInFlight   = "An upload is already in progress."
	msgSessionFailed    = "Identity verification failed. Please choose a verification method to try again."
	msgSessionCreateErr = "We could not start the verification session. Please try again."
	msgVerified         = "Your identity has been verified."
)

// Resolver validates the token and loads its current state.
type Resolver interface {
	Resolve(ctx context.Context, token string) (models.VerificationLink, error)
}

// Extractor submits a document image for OCR extraction.
type Extractor interface {
	Extract(ctx context.Context, token string, upload extraction.Upload) (models.ExtractedDocumentData, error)
}

// FormValidator checks the assembled identity form.
type FormValidator interface {
	Validate(snapshot models.GuestVerificationForm) form.FieldErrors
}

// SessionPoller drives one hosted KYC session.
type SessionPoller interface {
	CreateSession(ctx context.Context, token string) (models.HostedKycSession, error)
	Run(ctx context.Context, token string) (kyc.Result, error)
}

// Submitter covers the two backend writes the orchestrator issues directly.
type Submitter interface {
	Submit(ctx context.Context, token string, form models.GuestVerificationForm) error
	DispatchContract(ctx context.Context, token string) error
}

// Deps bundles the required collaborators for a Flow.
type Deps struct {
	Resolver  Resolver
	Extractor Extractor
	Validator FormValidator
	Poller    SessionPoller
	Submitter Submitter
}

func (d Deps) validate() error {
	if d.Resolver == nil || d.Extractor == nil || d.Validator == nil || d.Poller == nil || d.Submitter == nil {
		return fmt.Errorf("resolver, extractor, validator, poller, and submitter are required")
	}
	return nil
}

// Flow is one guest's verification session. All transitions are serialized
// behind a single mutex; the poller goroutine is the only concurrent activity
// and it too reports back through that lock.
type Flow struct {
	token string

	mu         sync.Mutex
	step       models.Step
	method     models.Method
	guestName  string
	form       models.GuestVerificationForm
	fieldErrs  form.FieldErrors
	session    models.HostedKycSession
	errMessage string
	dispatched bool

	pollCancel context.CancelFunc
	kycDone    chan kycVerdict

	uploadSem *semaphore.Weighted

	deps     Deps
	guard    dispatch.Guard
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithNotifier overrides the notification channel.
func WithNotifier(n notify.Notifier) Option {
	return func(f *Flow) {
		if n != nil {
			f.notifier = n
		}
	}
}

// WithDispatchGuard overrides the exactly-once dispatch guard.
func WithDispatchGuard(g dispatch.Guard) Option {
	return func(f *Flow) {
		if g != nil {
			f.guard = g
		}
	}
}

// WithMetrics attaches flow metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Flow) {
		f.metrics = m
	}
}

// New constructs a Flow for one verification token, starting in the loading step.
func New(token string, deps Deps, opts ...Option) (*Flow, error) {
	if token == "" {
		return nil, fmt.Errorf("verification token is required")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	f := &Flow{
		token:     token,
		step:      models.StepLoading,
		fieldErrs: form.FieldErrors{},
		uploadSem: semaphore.NewWeighted(1),
		deps:      deps,
		guard:     dispatch.NewInMemory(0),
		notifier:  notify.NewSlog(slog.Default()),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Step returns the single authoritative current step.
func (f *Flow) Step() models.Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// GuestName returns the display name loaded at resolution.
func (f *Flow) GuestName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.guestName
}

// Form returns a snapshot of the form being assembled.
func (f *Flow) Form() models.GuestVerificationForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// FieldErrors returns a copy of the current per-field validation errors.
func (f *Flow) FieldErrors() form.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := form.FieldErrors{}
	for k, v := range f.fieldErrs {
		out[k] = v
	}
	return out
}

// ErrorMessage returns the message shown on the terminal error screen.
func (f *Flow) ErrorMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMessage
}

// Session returns the active hosted KYC session, if any.
func (f *Flow) Session() models.HostedKycSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

// Start resolves the link and applies the initial transition:
// already-verified links short-circuit straight to success without touching
// extraction or polling; resolution failures are terminal. Start is
// idempotent while no method has been chosen.
func (f *Flow) Start(ctx context.Context) (models.Step, error) {
	f.mu.Lock()
	if f.step != models.StepLoading && f.step != models.StepMethodChoice {
		step := f.step
		f.mu.Unlock()
		return step, dErrors.New(dErrors.CodeInvalidInput, "verification already in progress")
	}
	f.mu.Unlock()

	link, err := f.deps.Resolver.Resolve(ctx, f.token)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.step = models.StepError
		if dErrors.HasCode(err, dErrors.CodeLinkExpired) {
			f.errMessage = msgLinkExpired
		} else {
			f.errMessage = msgLinkInvalid
		}
		f.logger.WarnContext(ctx, "verification link rejected",
			"code", string(dErrors.CodeOf(err)),
		)
		f.notifier.Notify(ctx, notify.LevelError, f.errMessage)
		f.countCompleted("error")
		return f.step, err
	}

	f.guestName = link.GuestName
	if link.Verified() {
		// The downstream contract call already happened when this link was
		// first verified; a re-resolved verified link must not repeat it.
		f.step = models.StepSuccess
		f.notifier.Notify(ctx, notify.LevelSuccess, msgAlreadyVerified)
		return f.step, nil
	}

	f.step = models.StepMethodChoice
	return f.step, nil
}

// ChooseBasic selects the self-service document upload path.
func (f *Flow) ChooseBasic() (models.Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != models.StepMethodChoice {
		return f.step, f.invalidTransition("choose method")
	}
	f.method = models.MethodBasic
	f.step = models.StepUpload
	if f.metrics != nil {
		f.metrics.IncrementVerificationsStarted(string(models.MethodBasic))
	}
	return f.step, nil
}

// ChooseAdvanced selects the hosted KYC path: it opens a session, exposes the
// redirect URL, and starts the poll loop. The loop runs as a single
// cancellable timer; reaching any terminal state or calling Cancel stops it.
func (f *Flow) ChooseAdvanced(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.step != models.StepMethodChoice {
		defer f.mu.Unlock()
		return "", f.invalidTransition("choose method")
	}
	f.mu.Unlock()

	sess, err := f.deps.Poller.CreateSession(ctx, f.token)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		// Session creation failure returns the guest to method choice.
		f.notifier.Notify(ctx, notify.LevelError, msgSessionCreateErr)
		return "", dErrors.Wrap(err, dErrors.CodeSessionCreateFailed, "could not open hosted verification session")
	}

	f.method = models.MethodAdvanced
	f.session = sess
	f.step = models.StepKyc
	if f.metrics != nil {
		f.metrics.IncrementVerificationsStarted(string(models.MethodAdvanced))
	}

	// The poll loop must survive the caller's request context but die with
	// Cancel or a terminal transition.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f.pollCancel = cancel
	done := make(chan kycVerdict, 1)
	f.kycDone = done

	go func() {
		res, runErr := f.deps.Poller.Run(runCtx, f.token)
		// The terminal transition dispatches and notifies; it must not run
		// on the poll context, which is cancelled the moment Run returns.
		step, err := f.finishKyc(context.WithoutCancel(runCtx), res, runErr)
		done <- kycVerdict{step: step, err: err}
	}()

	return sess.RedirectURL, nil
}

// kycVerdict is what the poll goroutine reports back to AwaitKyc.
type kycVerdict struct {
	step models.Step
	err  error
}

// AwaitKyc blocks until the active hosted-session poll resolves and returns
// the step it resolved to. A session the provider rejected surfaces as a
// session_failed error alongside the method-choice step it routed back to.
func (f *Flow) AwaitKyc(ctx context.Context) (models.Step, error) {
	f.mu.Lock()
	done := f.kycDone
	f.mu.Unlock()
	if done == nil {
		return f.Step(), dErrors.New(dErrors.CodeInvalidInput, "no hosted verification session is active")
	}
	select {
	case <-ctx.Done():
		return f.Step(), ctx.Err()
	case verdict := <-done:
		return verdict.step, verdict.err
	}
}

// finishKyc applies the poller's verdict. It is the only transition that can
// arrive from another goroutine, and it goes through the same lock as
// everything else. ctx must not be the poll context: the downstream dispatch
// and the notification happen after polling stopped.
func (f *Flow) finishKyc(ctx context.Context, res kyc.Result, runErr error) (models.Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pollCancel != nil {
		// Run already returned; this only releases the poll context.
		f.pollCancel()
		f.pollCancel = nil
	}
	if f.step != models.StepKyc {
		// Cancelled or already resolved; a late poller verdict must not
		// resurrect a finished flow.
		return f.step, nil
	}
	if runErr != nil {
		// Cancellation: the guest navigated away. Leave the step as-is.
		return f.step, nil
	}

	switch res.Outcome {
	case kyc.OutcomeVerified, kyc.OutcomeForced:
		f.dispatchOnceLocked(ctx)
		f.step = models.StepSuccess
		f.notifier.Notify(ctx, notify.LevelSuccess, msgVerified)
		f.countCompleted(string(res.Outcome))

	case kyc.OutcomeFailed:
		// Terminal for this attempt only: back to method choice, no
		// partial-state resume.
		f.method = models.MethodNone
		f.session = models.HostedKycSession{}
		f.step = models.StepMethodChoice
		f.notifier.Notify(ctx, notify.LevelError, msgSessionFailed)
		return f.step, dErrors.New(dErrors.CodeSessionFailed, msgSessionFailed)

	case kyc.OutcomeExhausted:
		// The UI is not advanced further; the step stays on the hosted
		// session screen. See DESIGN.md on this policy.
	}

	return f.step, nil
}

// Upload submits one document image. A second upload cannot be issued while
// one is in flight. Quality failures (upload_quality) and transport failures
// (upload_transport) keep the guest on the upload step; an extraction with at
// least one field advances to the form pre-populated with exactly what was
// recovered.
func (f *Flow) Upload(ctx context.Context, upload extraction.Upload) (models.Step, error) {
	f.mu.Lock()
	if f.step != models.StepUpload {
		defer f.mu.Unlock()
		return f.step, f.invalidTransition("upload")
	}
	f.mu.Unlock()

	if !f.uploadSem.TryAcquire(1) {
		f.notifier.Notify(ctx, notify.LevelWarning, msgUploadInFlight)
		return f.Step(), dErrors.New(dErrors.CodeInvalidInput, "an upload is already in progress")
	}
	defer f.uploadSem.Release(1)

	data, err := f.deps.Extractor.Extract(ctx, f.token, upload)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.notifier.Notify(ctx, f.notifyLevel(err), err.Error())
		return f.step, err
	}

	if data.QualityFailure() {
		// No authoritative values: the form stays untouched and the guest
		// re-photographs.
		f.notifier.Notify(ctx, notify.LevelWarning, data.QualityMessage)
		return f.step, dErrors.New(dErrors.CodeUploadQuality, data.QualityMessage)
	}

	if data.Empty() {
		f.notifier.Notify(ctx, notify.LevelWarning, msgManualEntry)
	} else {
		f.form.Seed(data)
	}
	f.step = models.StepForm
	return f.step, nil
}

// SetField applies a user edit to the form and clears that field's prior
// validation error, independent of re-validating the rest of the form.
func (f *Flow) SetField(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != models.StepForm {
		return f.invalidTransition("edit form")
	}

	switch field {
	case "full_name":
		f.form.FullName = value
	case "document_type":
		f.form.DocumentType = models.DocumentType(value)
	case "id_number":
		f.form.IDNumber = value
	case "birth_date":
		f.form.BirthDate = value
	case "nationality":
		f.form.Nationality = value
	case "address":
		f.form.Address = value
	default:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown form field %q", field))
	}

	delete(f.fieldErrs, field)
	return nil
}

// Submit validates the form snapshot and sends it. Validation failures keep
// the guest on the form with per-field reasons; a successful submission
// triggers the downstream contract dispatch exactly once and moves to success.
func (f *Flow) Submit(ctx context.Context) (models.Step, error) {
	f.mu.Lock()
	if f.step != models.StepForm {
		defer f.mu.Unlock()
		return f.step, f.invalidTransition("submit")
	}

	errs := f.deps.Validator.Validate(f.form)
	if !errs.Valid() {
		f.fieldErrs = errs
		defer f.mu.Unlock()
		return f.step, dErrors.New(dErrors.CodeValidation, "form has invalid fields")
	}
	f.fieldErrs = form.FieldErrors{}
	snapshot := f.form
	f.mu.Unlock()

	err := f.deps.Submitter.Submit(ctx, f.token, snapshot)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.notifier.Notify(ctx, f.notifyLevel(err), err.Error())
		return f.step, err
	}

	f.dispatchOnceLocked(ctx)
	f.step = models.StepSuccess
	f.notifier.Notify(ctx, notify.LevelSuccess, msgVerified)
	f.countCompleted("submitted")
	return f.step, nil
}

// Cancel stops the active polling timer, if any. Call it when the guest
// navigates away from the verification flow; a poller still ticking after
// its flow went terminal is a defect, not an accepted race.
func (f *Flow) Cancel() {
	f.mu.Lock()
	cancel := f.pollCancel
	f.pollCancel = nil
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// dispatchOnceLocked issues the downstream contract-generation and
// notification-scheduling call at most once per link, regardless of which
// path completed or how often the terminal transition re-renders.
// Callers must hold f.mu.
func (f *Flow) dispatchOnceLocked(ctx context.Context) {
	if f.dispatched {
		return
	}
	won, err := f.guard.Claim(ctx, f.token)
	if err != nil {
		f.logger.ErrorContext(ctx, "dispatch guard unavailable, skipping downstream call",
			"error", err,
		)
		return
	}
	if !won {
		f.dispatched = true
		return
	}
	if err := f.deps.Submitter.DispatchContract(ctx, f.token); err != nil {
		// Deliberately not retried: the downstream call is at-most-once from
		// this subsystem's point of view.
		f.logger.ErrorContext(ctx, "contract dispatch failed",
			"error", err,
		)
	}
	f.dispatched = true
}

// notifyLevel maps an error to its notification severity: errors the guest
// can recover from on the current step warn, terminal ones error.
func (f *Flow) notifyLevel(err error) notify.Level {
	if dErrors.Recoverable(err) {
		return notify.LevelWarning
	}
	return notify.LevelError
}

func (f *Flow) invalidTransition(action string) error {
	return dErrors.New(dErrors.CodeInvalidInput,
		fmt.Sprintf("cannot %s while in step %q", action, f.step))
}

func (f *Flow) countCompleted(result string) {
	if f.metrics != nil {
		f.metrics.IncrementVerificationsCompleted(result)
	}
}
