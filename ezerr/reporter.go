package ezerr

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// DefaultKind names the error kind in the block header and footer.
	DefaultKind = "error"
	// DefaultPlaceholder replaces an empty detail.
	DefaultPlaceholder = "No detail"
)

// Redactor masks sensitive text before it is logged or published.
type Redactor interface {
	RedactText(text string) string
}

// Reporter checks error values and reports the well-formed ones.
// A Reporter is safe for concurrent use; it holds no per-call state.
type Reporter struct {
	logger      *slog.Logger
	level       slog.Level
	publisher   Publisher
	kind        string
	placeholder string
	redactor    Redactor
	now         func() time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the log sink. Without it slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) { r.logger = logger }
}

// WithLevel sets the level the block is logged at. The logger's handler
// decides whether that level is written: below its threshold the block is
// dropped, while the event is still published.
func WithLevel(level slog.Level) Option {
	return func(r *Reporter) { r.level = level }
}

// WithPublisher sets the event sink. Without it nothing is published.
// A panic raised by the publisher is logged and does not reach the caller.
func WithPublisher(p Publisher) Option {
	return func(r *Reporter) { r.publisher = p }
}

// WithKind sets the kind shown in the block header and footer.
func WithKind(kind string) Option {
	return func(r *Reporter) {
		if kind != "" {
			r.kind = kind
		}
	}
}

// WithPlaceholder sets the detail used when none is given.
func WithPlaceholder(placeholder string) Option {
	return func(r *Reporter) {
		if placeholder != "" {
			r.placeholder = placeholder
		}
	}
}

// WithRedactor masks detail and description before they leave the reporter.
func WithRedactor(redactor Redactor) Option {
	return func(r *Reporter) { r.redactor = redactor }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReporter creates a Reporter.
func NewReporter(opts ...Option) *Reporter {
	r := &Reporter{
		level:       slog.LevelError,
		kind:        DefaultKind,
		placeholder: DefaultPlaceholder,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check reports v and returns whether it is well-formed. Reporting is
// always attempted; it does nothing for absent or malformed values, so
// Check can sit inside a condition without special-casing.
func (r *Reporter) Check(ctx context.Context, v ErrorValue, detail string, site CallSite) bool {
	r.Report(ctx, v, detail, site)
	return Valid(v)
}

// CheckAndReturn reports v if it is well-formed and returns true, telling
// the caller to return immediately:
//
//	if rep.CheckAndReturn(ctx, v, "loading profile", ezerr.Here()) {
//		return
//	}
//
// For absent or malformed values it does nothing and returns false.
func (r *Reporter) CheckAndReturn(ctx context.Context, v ErrorValue, detail string, site CallSite) bool {
	if !Valid(v) {
		return false
	}
	r.report(ctx, v, detail, site)
	return true
}

// CheckBlockAndReturn is CheckAndReturn with an action run after the
// report and before returning true. fn runs exactly once, and only for
// well-formed values.
func (r *Reporter) CheckBlockAndReturn(ctx context.Context, v ErrorValue, detail string, site CallSite, fn func()) bool {
	if !Valid(v) {
		return false
	}
	r.report(ctx, v, detail, site)
	if fn != nil {
		fn()
	}
	return true
}

// Report logs and publishes v when it is well-formed. Absent or malformed
// values are ignored.
func (r *Reporter) Report(ctx context.Context, v ErrorValue, detail string, site CallSite) {
	if !Valid(v) {
		return
	}
	r.report(ctx, v, detail, site)
}

func (r *Reporter) report(ctx context.Context, v ErrorValue, detail string, site CallSite) {
	if ctx == nil {
		ctx = context.Background()
	}
	rec := r.newRecord(ctx, v, detail, site.normalized())
	ev := Event{ID: ulid.Make().String(), Name: EventName, Record: rec}

	r.log(ctx, ev)
	if r.publisher != nil {
		safePublish(ctx, r.publisher, ev, r.loggerOrDefault())
	}
}

func (r *Reporter) loggerOrDefault() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

func (r *Reporter) newRecord(ctx context.Context, v ErrorValue, detail string, site CallSite) Record {
	if detail == "" {
		detail = r.placeholder
	}
	description := v.Description()
	if r.redactor != nil {
		detail = r.redactor.RedactText(detail)
		description = r.redactor.RedactText(description)
	}
	return Record{
		Detail:      detail,
		Description: description,
		File:        site.File,
		Function:    site.Function,
		Line:        site.Line,
		MainThread:  IsMainThread(ctx),
		Timestamp:   r.now(),
		Domain:      v.Domain(),
		Code:        strconv.Itoa(v.Code()),
	}
}

func (r *Reporter) log(ctx context.Context, ev Event) {
	rec := ev.Record
	r.loggerOrDefault().LogAttrs(ctx, r.level, rec.Block(r.kind),
		slog.String(LogAttrReport, r.kind),
		slog.String("event_id", ev.ID),
		slog.String(KeyDetail, rec.Detail),
		slog.String("description", rec.Description),
		slog.String(KeyFunction, rec.Function),
		slog.String(KeyFile, rec.File),
		slog.Int(KeyLine, rec.Line),
		slog.Bool(KeyMainThread, rec.MainThread),
		slog.String(KeyDomain, rec.Domain),
		slog.String(KeyCode, rec.Code),
	)
}

// LogAttrReport marks log records produced by a Reporter. Console handlers
// use it to print the block verbatim.
const LogAttrReport = "ezerr_report"

var defaultReporter atomic.Pointer[Reporter]

func init() {
	defaultReporter.Store(NewReporter())
}

// Default returns the process-wide reporter used by the package-level helpers.
func Default() *Reporter {
	return defaultReporter.Load()
}

// SetDefault replaces the process-wide reporter. A nil r is ignored.
func SetDefault(r *Reporter) {
	if r != nil {
		defaultReporter.Store(r)
	}
}

// Check calls Default().Check.
func Check(ctx context.Context, v ErrorValue, detail string, site CallSite) bool {
	return Default().Check(ctx, v, detail, site)
}

// CheckAndReturn calls Default().CheckAndReturn.
func CheckAndReturn(ctx context.Context, v ErrorValue, detail string, site CallSite) bool {
	return Default().CheckAndReturn(ctx, v, detail, site)
}

// CheckBlockAndReturn calls Default().CheckBlockAndReturn.
func CheckBlockAndReturn(ctx context.Context, v ErrorValue, detail string, site CallSite, fn func()) bool {
	return Default().CheckBlockAndReturn(ctx, v, detail, site, fn)
}
