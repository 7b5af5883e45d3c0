package combat

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/critical"
)

// MessageKind classifies a notification.
type MessageKind string

const (
	MessageKnockdown    MessageKind = "knockdown"
	MessageConfirmation MessageKind = "confirmation"
	MessageFumble       MessageKind = "fumble"
	MessageError        MessageKind = "error"
)

// Message is a structured notification. It carries data only; rendering is
// the sink's concern.
type Message struct {
	Kind    MessageKind
	Speaker string
	Title   string
	Lines   []string
	Fields  map[string]string
}

// CriticalDetail is everything the critical hit detail flow needs.
type CriticalDetail struct {
	EventID        string
	ActorName      string
	TargetName     string
	TargetCreature string
	DamageType     string
	Severity       critical.Severity
}

// Notifier receives rule engine output.
type Notifier interface {
	Post(ctx context.Context, msg Message)
	OpenCriticalDialog(ctx context.Context, detail CriticalDetail)
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
//
// Precondition: logger must be non-nil.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Post logs msg at info level, or warn for error messages.
func (n *LogNotifier) Post(_ context.Context, msg Message) {
	fields := []zap.Field{
		zap.String("kind", string(msg.Kind)),
		zap.String("speaker", msg.Speaker),
		zap.Strings("lines", msg.Lines),
		zap.Any("fields", msg.Fields),
	}
	if msg.Kind == MessageError {
		n.logger.Warn(msg.Title, fields...)
		return
	}
	n.logger.Info(msg.Title, fields...)
}

// OpenCriticalDialog logs the critical hit detail.
func (n *LogNotifier) OpenCriticalDialog(_ context.Context, d CriticalDetail) {
	n.logger.Info("critical hit",
		zap.String("actor", d.ActorName),
		zap.String("target", d.TargetName),
		zap.String("damage_type", d.DamageType),
		zap.String("severity", string(d.Severity)),
	)
}
