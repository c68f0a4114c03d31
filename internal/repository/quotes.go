package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

var quoteColumns = []string{
	"id", "reference", "profile_id", "customer_id", "contact_name", "contact_email",
	"trade_type", "description", "budget_range", "timeframe", "status",
	"response", "quoted_amount", "viewed_at", "responded_at", "created_at", "updated_at",
}

func (q *Queries) CreateQuote(ctx context.Context, qr *domain.QuoteRequest) error {
	_, err := q.exec(ctx, psql().Insert("quote_requests").
		Columns(quoteColumns...).
		Values(qr.ID, qr.Reference, qr.ProfileID, qr.CustomerID, qr.ContactName, qr.ContactEmail,
			qr.TradeType, qr.Description, qr.BudgetRange, qr.Timeframe, qr.Status,
			qr.Response, qr.QuotedAmount, qr.ViewedAt, qr.RespondedAt, qr.CreatedAt, qr.UpdatedAt))
	return err
}

func (q *Queries) GetQuoteByID(ctx context.Context, id uuid.UUID) (*domain.QuoteRequest, error) {
	qr := new(domain.QuoteRequest)
	if err := q.get(ctx, qr, psql().Select(quoteColumns...).From("quote_requests").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return qr, nil
}

func (q *Queries) ListQuotesByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.QuoteRequest, error) {
	var quotes []domain.QuoteRequest
	err := q.selectAll(ctx, &quotes, psql().Select(quoteColumns...).From("quote_requests").
		Where(sq.Eq{"profile_id": profileID}).
		OrderBy("created_at DESC"))
	return quotes, err
}

func (q *Queries) ListQuotesByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.QuoteRequest, error) {
	var quotes []domain.QuoteRequest
	err := q.selectAll(ctx, &quotes, psql().Select(quoteColumns...).From("quote_requests").
		Where(sq.Eq{"customer_id": customerID}).
		OrderBy("created_at DESC"))
	return quotes, err
}

func (q *Queries) UpdateQuoteStatus(ctx context.Context, arg domain.StatusChange[domain.QuoteStatus]) error {
	b := psql().Update("quote_requests").
		Set("status", arg.To).
		Set("updated_at", arg.At).
		Where(sq.Eq{"id": arg.ID, "status": arg.From})
	if arg.To == domain.QuoteViewed {
		b = b.Set("viewed_at", arg.At)
	}
	return q.execOne(ctx, b)
}

func (q *Queries) RespondToQuote(ctx context.Context, arg RespondToQuoteParams) error {
	return q.execOne(ctx, psql().Update("quote_requests").
		Set("status", domain.QuoteResponded).
		Set("response", arg.Response).
		Set("quoted_amount", arg.QuotedAmount).
		Set("responded_at", arg.At).
		Set("updated_at", arg.At).
		Where(sq.Eq{"id": arg.ID, "status": arg.From}))
}

func (q *Queries) CountQuotesSince(ctx context.Context, profileID uuid.UUID, since time.Time) (int, error) {
	return q.count(ctx, psql().Select("COUNT(*)").From("quote_requests").
		Where(sq.Eq{"profile_id": profileID}).
		Where(sq.GtOrEq{"created_at": since}))
}
