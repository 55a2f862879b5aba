package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context: the session a frame
// arrived on, the verb being dispatched, and the identity the bound ticket
// established.
type LogContext struct {
	SessionID string    // Secure9P session identifier
	Verb      string    // Operation verb (attach, walk, open, read, write, ...)
	Path      string    // Namespace path the operation targets
	Role      string    // Ticket role bound at Attach
	Subject   string    // Ticket subject (worker id), if any
	ClientIP  string    // Client IP address (without port)
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a session
func NewLogContext(sessionID string) *LogContext {
	return &LogContext{
		SessionID: sessionID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithVerb returns a copy with the dispatched verb and target path set
func (lc *LogContext) WithVerb(verb, path string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Verb = verb
		clone.Path = path
	}
	return clone
}

// WithTicket returns a copy with the attached ticket identity set
func (lc *LogContext) WithTicket(role, subject string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Role = role
		clone.Subject = subject
	}
	return clone
}

// WithClient returns a copy with the client address set
func (lc *LogContext) WithClient(clientIP string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ClientIP = clientIP
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
