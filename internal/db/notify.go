package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"hospital-ai-desk/internal/records"
)

// Notifier publishes record changes on a postgres notification channel so
// other instances and dashboards can refresh.
type Notifier struct {
	DB      *sql.DB
	Channel string
}

// NewNotifier constructs a new Notifier. The channel should match the
// POSTGRES_NOTIFY_CHANNEL environment variable.
func NewNotifier(db *sql.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

// Payload encodes an event as "<kind>:<event>:<id>".
func Payload(ev records.Event) string {
	return fmt.Sprintf("%s:%s:%s", ev.Kind, ev.Type, ev.Record.ID)
}

// Change is a decoded notification payload.
type Change struct {
	Kind     records.Kind
	Type     records.EventType
	RecordID string
}

// ParsePayload decodes a payload produced by Payload.
func ParsePayload(s string) (Change, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Change{}, false
	}
	kind, ok := records.ParseKind(parts[0])
	if !ok || parts[2] == "" {
		return Change{}, false
	}
	return Change{Kind: kind, Type: records.EventType(parts[1]), RecordID: parts[2]}, true
}

// Notify sends ev on the channel. NOTIFY itself takes no bind parameters,
// so the payload goes through pg_notify.
func (n *Notifier) Notify(ctx context.Context, ev records.Event) error {
	_, err := n.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.Channel, Payload(ev))
	return err
}

// Listen opens a dedicated listener connection and delivers decoded
// changes until ctx is cancelled. Malformed payloads are skipped.
func Listen(ctx context.Context, dsn, channel string, logger *zap.Logger) (<-chan Change, error) {
	report := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("notify listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	}
	l := pq.NewListener(dsn, 10*time.Second, time.Minute, report)
	if err := l.Listen(channel); err != nil {
		_ = l.Close()
		return nil, err
	}
	ch := make(chan Change)
	go func() {
		defer func() {
			_ = l.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-l.Notify:
				// nil after a reconnect
				if n == nil {
					continue
				}
				c, ok := ParsePayload(n.Extra)
				if !ok {
					logger.Debug("ignoring notification", zap.String("payload", n.Extra))
					continue
				}
				select {
				case ch <- c:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				go func() { _ = l.Ping() }()
			}
		}
	}()
	return ch, nil
}
