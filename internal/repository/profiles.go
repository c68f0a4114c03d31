package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

// =============================================================================
// Trades
// =============================================================================

func (q *Queries) CreateTrade(ctx context.Context, t *domain.Trade) error {
	_, err := q.exec(ctx, psql().Insert("trades").
		Columns("id", "name", "slug").
		Values(t.ID, t.Name, t.Slug))
	return err
}

func (q *Queries) GetTradeByID(ctx context.Context, id uuid.UUID) (*domain.Trade, error) {
	t := new(domain.Trade)
	if err := q.get(ctx, t, psql().Select("id", "name", "slug").From("trades").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return t, nil
}

func (q *Queries) ListTrades(ctx context.Context) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := q.selectAll(ctx, &trades, psql().Select("id", "name", "slug").From("trades").OrderBy("name"))
	return trades, err
}

func (q *Queries) SetProfileTrades(ctx context.Context, profileID uuid.UUID, tradeIDs []uuid.UUID) error {
	if _, err := q.exec(ctx, psql().Delete("profile_trades").Where(sq.Eq{"profile_id": profileID})); err != nil {
		return err
	}
	if len(tradeIDs) == 0 {
		return nil
	}
	insert := psql().Insert("profile_trades").Columns("profile_id", "trade_id")
	for _, id := range tradeIDs {
		insert = insert.Values(profileID, id)
	}
	_, err := q.exec(ctx, insert.Suffix("ON CONFLICT DO NOTHING"))
	return err
}

func (q *Queries) ListProfileTrades(ctx context.Context, profileID uuid.UUID) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := q.selectAll(ctx, &trades, psql().Select("t.id", "t.name", "t.slug").
		From("trades t").
		Join("profile_trades pt ON pt.trade_id = t.id").
		Where(sq.Eq{"pt.profile_id": profileID}).
		OrderBy("t.name"))
	return trades, err
}

// =============================================================================
// Profiles
// =============================================================================

var profileColumns = []string{
	"id", "user_id", "business_name", "bio", "location", "coverage_radius",
	"subscription_tier", "subscription_id", "stripe_customer_id",
	"is_active", "is_verified", "average_rating", "review_count",
	"created_at", "updated_at",
}

func (q *Queries) CreateProfile(ctx context.Context, p *domain.TradesProfile) error {
	_, err := q.exec(ctx, psql().Insert("profiles").
		Columns(profileColumns...).
		Values(p.ID, p.UserID, p.BusinessName, p.Bio, p.Location, p.CoverageRadius,
			p.SubscriptionTier, p.SubscriptionID, p.StripeCustomerID,
			p.IsActive, p.IsVerified, p.AverageRating, p.ReviewCount,
			p.CreatedAt, p.UpdatedAt))
	return err
}

func (q *Queries) getProfile(ctx context.Context, where sq.Sqlizer) (*domain.TradesProfile, error) {
	p := new(domain.TradesProfile)
	if err := q.get(ctx, p, psql().Select(profileColumns...).From("profiles").Where(where)); err != nil {
		return nil, err
	}
	return p, nil
}

func (q *Queries) GetProfileByID(ctx context.Context, id uuid.UUID) (*domain.TradesProfile, error) {
	return q.getProfile(ctx, sq.Eq{"id": id})
}

func (q *Queries) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.TradesProfile, error) {
	return q.getProfile(ctx, sq.Eq{"user_id": userID})
}

func (q *Queries) GetProfileByStripeCustomerID(ctx context.Context, customerID string) (*domain.TradesProfile, error) {
	return q.getProfile(ctx, sq.Eq{"stripe_customer_id": customerID})
}

// LockProfile takes a row lock on the profile for the rest of the
// transaction, serializing quota checks for the same profile.
func (q *Queries) LockProfile(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := q.get(ctx, &locked, psql().Select("id").From("profiles").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
	return err
}

func (q *Queries) UpdateProfileDetails(ctx context.Context, p *domain.TradesProfile) error {
	return q.execByID(ctx, psql().Update("profiles").
		Set("business_name", p.BusinessName).
		Set("bio", p.Bio).
		Set("location", p.Location).
		Set("coverage_radius", p.CoverageRadius).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}))
}

func (q *Queries) UpdateProfileSubscription(ctx context.Context, arg UpdateSubscriptionParams) error {
	b := psql().Update("profiles").
		Set("subscription_tier", arg.Tier).
		Set("subscription_id", arg.SubscriptionID).
		Set("updated_at", arg.At).
		Where(sq.Eq{"id": arg.ProfileID})
	if arg.StripeCustomerID != "" {
		b = b.Set("stripe_customer_id", arg.StripeCustomerID)
	}
	return q.execByID(ctx, b)
}

func (q *Queries) SetProfileActive(ctx context.Context, id uuid.UUID, active bool) error {
	return q.execByID(ctx, psql().Update("profiles").
		Set("is_active", active).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}))
}

func (q *Queries) SetProfileVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return q.execByID(ctx, psql().Update("profiles").
		Set("is_verified", verified).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}))
}

func (q *Queries) UpdateProfileRating(ctx context.Context, id uuid.UUID, average float64, count int) error {
	return q.execByID(ctx, psql().Update("profiles").
		Set("average_rating", average).
		Set("review_count", count).
		Where(sq.Eq{"id": id}))
}

// =============================================================================
// Portfolio
// =============================================================================

var portfolioColumns = []string{
	"id", "profile_id", "title", "image_key", "thumbnail_key", "content_type", "size_bytes", "created_at",
}

func (q *Queries) CreatePortfolioItem(ctx context.Context, item *domain.PortfolioItem) error {
	_, err := q.exec(ctx, psql().Insert("portfolio_items").
		Columns(portfolioColumns...).
		Values(item.ID, item.ProfileID, item.Title, item.ImageKey, item.ThumbnailKey,
			item.ContentType, item.SizeBytes, item.CreatedAt))
	return err
}

func (q *Queries) CountPortfolioItems(ctx context.Context, profileID uuid.UUID) (int, error) {
	return q.count(ctx, psql().Select("COUNT(*)").From("portfolio_items").Where(sq.Eq{"profile_id": profileID}))
}

func (q *Queries) ListPortfolioItems(ctx context.Context, profileID uuid.UUID) ([]domain.PortfolioItem, error) {
	var items []domain.PortfolioItem
	err := q.selectAll(ctx, &items, psql().Select(portfolioColumns...).From("portfolio_items").
		Where(sq.Eq{"profile_id": profileID}).
		OrderBy("created_at DESC"))
	return items, err
}
