package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/storage"
	"github.com/DukeRupert/tradeslink/internal/validator"
)

const (
	// MaxPortfolioImageBytes caps a single portfolio upload.
	MaxPortfolioImageBytes = 10 << 20

	// maxImageDimension rejects decompression bombs before decoding.
	maxImageDimension = 12000

	// portfolioURLExpiry is used when the storage backend presigns URLs.
	portfolioURLExpiry = time.Hour
)

// =============================================================================
// Interface Definition
// =============================================================================

// ProfileService manages trades profiles, their trades and portfolios.
type ProfileService interface {
	// Create opens a profile for the calling tradesperson. Each account owns
	// at most one profile.
	Create(ctx context.Context, ac domain.AuthContext, params domain.CreateProfileParams) (*domain.TradesProfile, error)

	// Get returns a profile the caller may read. Inactive profiles are only
	// visible to their owner and admins.
	Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.TradesProfile, error)

	// GetOwn returns the caller's own profile.
	GetOwn(ctx context.Context, ac domain.AuthContext) (*domain.TradesProfile, error)

	// Update edits the owner's profile details.
	Update(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.UpdateProfileParams) (*domain.TradesProfile, error)

	// SetTrades replaces the trades the profile lists.
	SetTrades(ctx context.Context, ac domain.AuthContext, id uuid.UUID, tradeIDs []uuid.UUID) ([]domain.Trade, error)

	// ListTrades returns every trade category.
	ListTrades(ctx context.Context) ([]domain.Trade, error)

	// CreateTrade adds a trade category. Admin only.
	CreateTrade(ctx context.Context, ac domain.AuthContext, name string) (*domain.Trade, error)

	// AddPortfolioItem uploads a photo and its thumbnail, subject to the
	// tier's photo cap.
	AddPortfolioItem(ctx context.Context, ac domain.AuthContext, params domain.AddPortfolioItemParams) (*domain.PortfolioItem, error)

	// ListPortfolio returns a readable profile's photos with URLs.
	ListPortfolio(ctx context.Context, ac domain.AuthContext, profileID uuid.UUID) ([]domain.PortfolioItem, error)

	// UpdateSubscription records a billing change pushed by the provider.
	UpdateSubscription(ctx context.Context, update SubscriptionUpdate) error
}

// SubscriptionUpdate is a billing state change. The profile is found by
// ProfileID, or by StripeCustomerID when ProfileID is nil.
type SubscriptionUpdate struct {
	ProfileID        uuid.UUID
	StripeCustomerID string
	SubscriptionID   string
	Tier             domain.SubscriptionTier
}

// =============================================================================
// Implementation
// =============================================================================

type profileService struct {
	store      repository.Store
	storage    storage.Storage
	thumbnails ThumbnailProcessor
	logger     *slog.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(store repository.Store, files storage.Storage, thumbnails ThumbnailProcessor, logger *slog.Logger) ProfileService {
	return &profileService{
		store:      store,
		storage:    files,
		thumbnails: thumbnails,
		logger:     logger,
	}
}

// Create opens a FREE, active profile for the caller.
func (s *profileService) Create(ctx context.Context, ac domain.AuthContext, params domain.CreateProfileParams) (*domain.TradesProfile, error) {
	const op = "profile.create"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return nil, err
	}
	params.BusinessName = strings.TrimSpace(params.BusinessName)
	params.Location = strings.TrimSpace(params.Location)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}

	now := timeNow()
	profile := &domain.TradesProfile{
		ID:               uuid.New(),
		UserID:           ac.UserID,
		BusinessName:     params.BusinessName,
		Bio:              strings.TrimSpace(params.Bio),
		Location:         params.Location,
		CoverageRadius:   params.CoverageRadius,
		SubscriptionTier: domain.TierFree,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := checkTrades(ctx, q, op, params.TradeIDs); err != nil {
			return err
		}
		if err := q.CreateProfile(ctx, profile); err != nil {
			return writeError(err, op, "You already have a trades profile", "failed to create profile")
		}
		if err := q.SetProfileTrades(ctx, profile.ID, params.TradeIDs); err != nil {
			return domain.Internal(err, op, "failed to set trades")
		}
		trades, err := q.ListProfileTrades(ctx, profile.ID)
		if err != nil {
			return domain.Internal(err, op, "failed to load trades")
		}
		profile.Trades = trades
		return nil
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to create profile")
	}

	s.logger.Info("profile created", "profile_id", profile.ID, "user_id", ac.UserID)
	return profile, nil
}

// Get returns a profile the caller may read.
func (s *profileService) Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.TradesProfile, error) {
	const op = "profile.get"

	profile, err := s.store.GetProfileByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, op, "profile", id)
	}
	res := profile.Resource()
	if err := domain.Authorize(ac, res, domain.OpRead).Err(op, res); err != nil {
		return nil, err
	}
	return s.withTrades(ctx, op, profile)
}

// GetOwn returns the caller's profile.
func (s *profileService) GetOwn(ctx context.Context, ac domain.AuthContext) (*domain.TradesProfile, error) {
	const op = "profile.get_own"

	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	profile, err := s.store.GetProfileByUserID(ctx, ac.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(op, "profile", ac.UserID.String())
		}
		return nil, domain.Internal(err, op, "failed to load profile")
	}
	return s.withTrades(ctx, op, profile)
}

// Update edits the profile details.
func (s *profileService) Update(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.UpdateProfileParams) (*domain.TradesProfile, error) {
	const op = "profile.update"

	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}
	profile, err := s.managed(ctx, op, ac, id)
	if err != nil {
		return nil, err
	}

	profile.BusinessName = strings.TrimSpace(params.BusinessName)
	profile.Bio = strings.TrimSpace(params.Bio)
	profile.Location = strings.TrimSpace(params.Location)
	profile.CoverageRadius = params.CoverageRadius
	profile.UpdatedAt = timeNow()

	if err := s.store.UpdateProfileDetails(ctx, profile); err != nil {
		return nil, lookupError(err, op, "profile", profile.ID)
	}
	return s.withTrades(ctx, op, profile)
}

// SetTrades replaces the profile's trades.
func (s *profileService) SetTrades(ctx context.Context, ac domain.AuthContext, id uuid.UUID, tradeIDs []uuid.UUID) ([]domain.Trade, error) {
	const op = "profile.set_trades"

	if len(tradeIDs) == 0 {
		return nil, domain.NewValidationError(op, "trade_ids", "trade ids must have at least 1 entries")
	}
	if _, err := s.managed(ctx, op, ac, id); err != nil {
		return nil, err
	}

	var trades []domain.Trade
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := checkTrades(ctx, q, op, tradeIDs); err != nil {
			return err
		}
		if err := q.SetProfileTrades(ctx, id, tradeIDs); err != nil {
			return domain.Internal(err, op, "failed to set trades")
		}
		var err error
		trades, err = q.ListProfileTrades(ctx, id)
		return err
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to set trades")
	}
	return trades, nil
}

// ListTrades returns every trade category.
func (s *profileService) ListTrades(ctx context.Context) ([]domain.Trade, error) {
	const op = "profile.list_trades"

	trades, err := s.store.ListTrades(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list trades")
	}
	return trades, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// CreateTrade adds a trade category with a title-cased name and a slug.
func (s *profileService) CreateTrade(ctx context.Context, ac domain.AuthContext, name string) (*domain.Trade, error) {
	const op = "profile.create_trade"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	name, slug := normalizeTradeName(name)
	if slug == "" || len(name) > 60 {
		return nil, domain.NewValidationError(op, "name", "name must be between 1 and 60 characters")
	}

	trade := &domain.Trade{ID: uuid.New(), Name: name, Slug: slug}
	if err := s.store.CreateTrade(ctx, trade); err != nil {
		return nil, writeError(err, op, "A trade with this name already exists", "failed to create trade")
	}
	s.logger.Info("trade created", "trade_id", trade.ID, "slug", slug)
	return trade, nil
}

// AddPortfolioItem stores a photo and its thumbnail. The photo cap is
// checked under the profile lock so concurrent uploads cannot overshoot it.
func (s *profileService) AddPortfolioItem(ctx context.Context, ac domain.AuthContext, params domain.AddPortfolioItemParams) (*domain.PortfolioItem, error) {
	const op = "profile.add_portfolio_item"

	profile, err := s.managed(ctx, op, ac, params.ProfileID)
	if err != nil {
		return nil, err
	}

	if len(params.Data) == 0 {
		return nil, domain.NewValidationError(op, "file", "file is required")
	}
	if len(params.Data) > MaxPortfolioImageBytes {
		return nil, domain.Errorf(domain.ETOOLARGE, op, "Photos must be smaller than %d MB", MaxPortfolioImageBytes>>20)
	}
	contentType := storage.DetectContentType(params.ContentType, params.Filename, bytes.NewReader(params.Data))
	if !storage.IsAllowedImageType(contentType) {
		return nil, domain.NewValidationError(op, "file", "file must be a JPEG, PNG, WebP or HEIC image")
	}
	if w, h, err := imageBounds(params.Data); err == nil && (w > maxImageDimension || h > maxImageDimension) {
		return nil, domain.NewValidationError(op, "file", "image dimensions are too large")
	}

	item := &domain.PortfolioItem{
		ID:          uuid.New(),
		ProfileID:   profile.ID,
		Title:       strings.TrimSpace(params.Title),
		ImageKey:    storage.PortfolioImageKey(profile.ID, params.Filename),
		ContentType: contentType,
		SizeBytes:   int64(len(params.Data)),
		CreatedAt:   timeNow(),
	}

	var uploaded []string
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := q.LockProfile(ctx, profile.ID); err != nil {
			return domain.Internal(err, op, "failed to lock profile")
		}
		count, err := q.CountPortfolioItems(ctx, profile.ID)
		if err != nil {
			return domain.Internal(err, op, "failed to count portfolio items")
		}
		limit := profile.Limits().MaxPortfolioPhotos
		if !domain.Allows(limit, count) {
			return domain.Errorf(domain.EQUOTA, op,
				"Your plan allows %d portfolio photos. Upgrade your plan to add more.", limit)
		}

		if err := s.storage.Put(ctx, item.ImageKey, bytes.NewReader(params.Data), storage.PutOptions{
			ContentType: contentType,
			MaxSize:     MaxPortfolioImageBytes,
			Public:      true,
		}); err != nil {
			return domain.External(err, op, "failed to store photo")
		}
		uploaded = append(uploaded, item.ImageKey)
		metrics.StorageUploadBytes.WithLabelValues("portfolio").Add(float64(len(params.Data)))

		// A photo we cannot thumbnail (HEIC, for one) is still kept.
		if thumb, _, _, err := s.thumbnails.GenerateThumbnail(bytes.NewReader(params.Data), ThumbnailMaxWidth, ThumbnailMaxHeight); err != nil {
			s.logger.Warn("thumbnail generation failed", "profile_id", profile.ID, "error", err)
		} else {
			key := storage.PortfolioThumbnailKey(profile.ID)
			if err := s.storage.Put(ctx, key, bytes.NewReader(thumb), storage.PutOptions{
				ContentType: "image/jpeg",
				Public:      true,
			}); err != nil {
				return domain.External(err, op, "failed to store thumbnail")
			}
			uploaded = append(uploaded, key)
			item.ThumbnailKey = key
			metrics.StorageUploadBytes.WithLabelValues("thumbnail").Add(float64(len(thumb)))
		}

		return q.CreatePortfolioItem(ctx, item)
	})
	if err != nil {
		for _, key := range uploaded {
			if derr := s.storage.Delete(ctx, key); derr != nil {
				s.logger.Warn("failed to remove orphaned upload", "key", key, "error", derr)
			}
		}
		return nil, passThrough(err, op, "failed to add portfolio item")
	}

	s.resolveURLs(ctx, item)
	s.logger.Info("portfolio item added", "profile_id", profile.ID, "item_id", item.ID)
	return item, nil
}

// ListPortfolio returns the photos of a readable profile.
func (s *profileService) ListPortfolio(ctx context.Context, ac domain.AuthContext, profileID uuid.UUID) ([]domain.PortfolioItem, error) {
	const op = "profile.list_portfolio"

	if _, err := s.Get(ctx, ac, profileID); err != nil {
		return nil, err
	}
	items, err := s.store.ListPortfolioItems(ctx, profileID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list portfolio")
	}
	for i := range items {
		s.resolveURLs(ctx, &items[i])
	}
	return items, nil
}

// UpdateSubscription records the tier the billing provider reports.
func (s *profileService) UpdateSubscription(ctx context.Context, update SubscriptionUpdate) error {
	const op = "profile.update_subscription"

	if !update.Tier.IsValid() {
		return domain.Invalid(op, "unknown subscription tier")
	}

	profileID := update.ProfileID
	if profileID == uuid.Nil {
		profile, err := s.store.GetProfileByStripeCustomerID(ctx, update.StripeCustomerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NotFound(op, "profile", update.StripeCustomerID)
			}
			return domain.Internal(err, op, "failed to load profile")
		}
		profileID = profile.ID
	}

	if err := s.store.UpdateProfileSubscription(ctx, repository.UpdateSubscriptionParams{
		ProfileID:        profileID,
		Tier:             update.Tier,
		SubscriptionID:   update.SubscriptionID,
		StripeCustomerID: update.StripeCustomerID,
		At:               timeNow(),
	}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound(op, "profile", profileID.String())
		}
		return domain.Internal(err, op, "failed to update subscription")
	}

	s.logger.Info("subscription updated", "profile_id", profileID, "tier", update.Tier)
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// managed loads a profile the caller owns. Anyone else gets not-found.
func (s *profileService) managed(ctx context.Context, op string, ac domain.AuthContext, id uuid.UUID) (*domain.TradesProfile, error) {
	profile, err := s.store.GetProfileByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, op, "profile", id)
	}
	res := profile.Resource()
	res.PublicRead = false
	if err := domain.Authorize(ac, res, domain.OpManage).Err(op, res); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) withTrades(ctx context.Context, op string, profile *domain.TradesProfile) (*domain.TradesProfile, error) {
	trades, err := s.store.ListProfileTrades(ctx, profile.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load trades")
	}
	profile.Trades = trades
	return profile, nil
}

func (s *profileService) resolveURLs(ctx context.Context, item *domain.PortfolioItem) {
	if u, err := s.storage.URL(ctx, item.ImageKey, portfolioURLExpiry); err == nil {
		item.ImageURL = u
	}
	if item.ThumbnailKey != "" {
		if u, err := s.storage.URL(ctx, item.ThumbnailKey, portfolioURLExpiry); err == nil {
			item.ThumbnailURL = u
		}
	}
}

// checkTrades fails validation if any id is not a known trade.
func checkTrades(ctx context.Context, q repository.Querier, op string, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, err := q.GetTradeByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NewValidationError(op, "trade_ids", "trade ids contains an unknown trade")
			}
			return domain.Internal(err, op, "failed to load trade")
		}
	}
	return nil
}

// normalizeTradeName title-cases a trade name and derives its slug.
func normalizeTradeName(name string) (string, string) {
	name = strings.Join(strings.Fields(name), " ")
	name = cases.Title(language.English).String(strings.ToLower(name))
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
	return name, slug
}
