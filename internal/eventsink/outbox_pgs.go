package eventsink

import (
	"context"
	"encoding/json"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// OutboxPGS appends events to the events outbox table for a relay to deliver.
type OutboxPGS struct {
	db     dbpkg.SQLInterface
	logger zerolog.Logger
}

// NewOutboxPGS returns a Postgres backed outbox sink.
func NewOutboxPGS(db dbpkg.SQLInterface, logger zerolog.Logger) *OutboxPGS {
	return &OutboxPGS{
		db:     db,
		logger: logger.With().Str("component", "outbox").Logger(),
	}
}

const insertEventQuery = `
INSERT INTO
    events (id, kind, payload, occurred_at)
VALUES
    ($1, $2, $3, $4)
`

// Insert stores the event in the outbox.
func (r *OutboxPGS) Insert(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		r.logger.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	_, err = r.db.ExecContext(ctx, insertEventQuery, e.ID, string(e.Kind), payload, e.OccurredAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			r.logger.Error().Err(err).Str("pq_code", string(pqErr.Code)).Send()
		} else {
			r.logger.Error().Err(err).Send()
		}

		return errorspkg.ErrInternal
	}

	return nil
}

// Publish stores the event. Failures are logged and the event is dropped from the outbox.
func (r *OutboxPGS) Publish(ctx context.Context, e domain.Event) {
	if err := r.Insert(ctx, e); err != nil {
		r.logger.Warn().Str("event_id", e.ID.String()).Str("kind", string(e.Kind)).Msg("event not stored")
	}
}

const listEventsQuery = `
SELECT payload FROM events
ORDER BY occurred_at, id
LIMIT $1 OFFSET $2
`

// List returns stored events in occurrence order.
func (r *OutboxPGS) List(ctx context.Context, limit, offset int32) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, listEventsQuery, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Event{}

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			r.logger.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		var e domain.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			r.logger.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
