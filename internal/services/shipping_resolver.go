package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/enviostack/shipping-api/internal/domain"
	"github.com/enviostack/shipping-api/internal/repositories"
)

const (
	resolverMetricNamespace = "shipping.resolver"

	// defaultAutoProductLimit caps how many multi-choice products the auto
	// strategy tolerates before switching to greedy.
	defaultAutoProductLimit = 12
	// defaultAutoCombinationCap bounds the estimated assignment count for the
	// exhaustive strategy under auto.
	defaultAutoCombinationCap = 4096

	defaultQuoteCacheTTL = 5 * time.Minute
)

// ShippingResolver resolves ranked shipping plans for a cart and address.
// Per-request state is built fresh and discarded, so a single resolver is
// safe for concurrent use.
type ShippingResolver struct {
	rules              repositories.RuleRepository
	eligibility        repositories.EligibilityRepository
	publisher          QuoteEventPublisher
	strategy           string
	maxPlans           int
	autoProductLimit   int
	autoCombinationCap int64
	now                func() time.Time
	idGen              func() string
	logger             func(context.Context, string, map[string]any)
	cache              *quoteCache
	quotesComputed     metric.Int64Counter
	metricsEnabled     bool
}

// ShippingResolverDeps lists the collaborators of the resolver. Rules and
// Eligibility are required; everything else has a default.
type ShippingResolverDeps struct {
	Rules              repositories.RuleRepository
	Eligibility        repositories.EligibilityRepository
	Publisher          QuoteEventPublisher
	Strategy           string
	MaxPlans           int
	AutoProductLimit   int
	AutoCombinationCap int64
	CacheTTL           time.Duration
	Now                func() time.Time
	IDGenerator        func() string
	Logger             func(context.Context, string, map[string]any)
}

// NewShippingResolver validates the dependency set and builds a resolver.
func NewShippingResolver(deps ShippingResolverDeps) (*ShippingResolver, error) {
	if deps.Rules == nil {
		return nil, errors.New("shipping resolver: rule repository is required")
	}
	if deps.Eligibility == nil {
		return nil, errors.New("shipping resolver: eligibility repository is required")
	}

	strategy := deps.Strategy
	if strategy == "" {
		strategy = StrategyAuto
	}
	if !validStrategy(strategy) {
		return nil, fmt.Errorf("shipping resolver: unknown strategy %q", strategy)
	}

	maxPlans := deps.MaxPlans
	if maxPlans <= 0 {
		maxPlans = defaultMaxPlans
	}
	productLimit := deps.AutoProductLimit
	if productLimit <= 0 {
		productLimit = defaultAutoProductLimit
	}
	combinationCap := deps.AutoCombinationCap
	if combinationCap <= 0 {
		combinationCap = defaultAutoCombinationCap
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = defaultQuoteCacheTTL
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	meter := otel.GetMeterProvider().Meter(resolverMetricNamespace)
	quotesComputed, metricErr := meter.Int64Counter(
		"shipping.quotes.computed",
		metric.WithDescription("Count of computed shipping quotes by strategy"),
	)

	utcNow := func() time.Time { return now().UTC() }
	return &ShippingResolver{
		rules:              deps.Rules,
		eligibility:        deps.Eligibility,
		publisher:          deps.Publisher,
		strategy:           strategy,
		maxPlans:           maxPlans,
		autoProductLimit:   productLimit,
		autoCombinationCap: combinationCap,
		now:                utcNow,
		idGen:              idGen,
		logger:             logger,
		cache:              newQuoteCache(ttl, utcNow),
		quotesComputed:     quotesComputed,
		metricsEnabled:     metricErr == nil,
	}, nil
}

// ResolveShippingCommand carries one resolution request.
type ResolveShippingCommand struct {
	Items       []domain.LineItem
	Address     domain.Address
	Strategy    string
	MaxPlans    int
	BypassCache bool
}

// ResolveShippingResult is the outcome of a successful resolution.
type ResolveShippingResult struct {
	QuoteID    string
	Strategy   string
	Plans      []domain.PlanQuote
	Complete   bool
	ComputedAt time.Time
	FromCache  bool
}

// ResolveShipping filters rules by coverage, searches product→rule
// assignments with the selected strategy, falls back to the multi-zone
// combiner when no single-strategy plan covers the cart, and returns the
// ranked top plans.
func (s *ShippingResolver) ResolveShipping(ctx context.Context, cmd ResolveShippingCommand) (ResolveShippingResult, error) {
	if err := validateCommand(cmd); err != nil {
		return ResolveShippingResult{}, err
	}

	maxPlans := cmd.MaxPlans
	if maxPlans <= 0 {
		maxPlans = s.maxPlans
	}
	requested := cmd.Strategy
	if requested == "" {
		requested = s.strategy
	}
	if !validStrategy(requested) {
		return ResolveShippingResult{}, fmt.Errorf("%w: unknown strategy %q", ErrInvalidQuoteInput, requested)
	}

	cacheKey := buildQuoteCacheKey(cmd.Items, cmd.Address, requested, maxPlans)
	if !cmd.BypassCache {
		if cached, ok := s.cache.Get(cacheKey); ok {
			cached.FromCache = true
			s.logger(ctx, "shipping.quote.cache_hit", map[string]any{"quote_id": cached.QuoteID})
			return cached, nil
		}
	}

	rules, err := s.loadRules(ctx)
	if err != nil {
		return ResolveShippingResult{}, err
	}

	eligibility, err := s.eligibility.ForProducts(ctx, distinctProductIDs(cmd.Items))
	if err != nil {
		return ResolveShippingResult{}, fmt.Errorf("shipping resolver: fetch eligibility: %w", err)
	}

	validRules, err := resolveValidRules(cmd.Items, eligibility, rules, cmd.Address)
	if err != nil {
		return ResolveShippingResult{}, err
	}

	strategy := s.effectiveStrategy(requested, validRules)
	plans, err := s.searchPlans(ctx, strategy, cmd.Items, validRules, rules)
	if err != nil {
		return ResolveShippingResult{}, err
	}

	if !hasCompletePlan(plans) {
		zonePlans, zoneErr := multiZonePlans(ctx, cmd.Items, validRules, rules)
		switch {
		case zoneErr == nil:
			plans = append(plans, zonePlans...)
		case errors.As(zoneErr, new(*IncompleteCoverageError)) && len(plans) > 0:
			// Partial plans already carry the uncovered ids as data.
		default:
			return ResolveShippingResult{}, zoneErr
		}
	}

	if len(plans) == 0 {
		return ResolveShippingResult{}, ErrNoShippingAvailable
	}

	ranked := rankPlans(plans)
	for i := range ranked {
		ranked[i].ID = s.idGen()
	}

	result := ResolveShippingResult{
		QuoteID:    s.idGen(),
		Strategy:   strategy,
		Plans:      formatPlans(ranked, maxPlans, rules),
		Complete:   ranked[0].Complete,
		ComputedAt: s.now(),
	}

	s.cache.Put(cacheKey, result)
	s.recordQuote(ctx, strategy)
	s.publishQuote(ctx, cmd, result)

	s.logger(ctx, "shipping.quote.computed", map[string]any{
		"quote_id": result.QuoteID,
		"strategy": strategy,
		"plans":    len(result.Plans),
		"complete": result.Complete,
	})
	return result, nil
}

// loadRules fetches the active rule set and indexes it by id, dropping rules
// whose coverage descriptor could not be recognised. A fetch failure aborts
// resolution; the engine never runs on a partial rule set.
func (s *ShippingResolver) loadRules(ctx context.Context) (map[string]domain.ShippingRule, error) {
	active, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("shipping resolver: fetch rules: %w", err)
	}

	rules := make(map[string]domain.ShippingRule, len(active))
	for _, rule := range active {
		if !rule.Usable() {
			s.logger(ctx, "shipping.rule.invalid_coverage", map[string]any{"rule_id": rule.ID})
			continue
		}
		rules[rule.ID] = rule
	}
	return rules, nil
}

// effectiveStrategy maps auto onto exhaustive while the search space stays
// small, else greedy.
func (s *ShippingResolver) effectiveStrategy(requested string, validRules map[string][]string) string {
	if requested != StrategyAuto {
		return requested
	}
	if multiChoiceProducts(validRules) > s.autoProductLimit {
		return StrategyGreedy
	}
	if estimatedCombinations(validRules, s.autoCombinationCap) >= s.autoCombinationCap {
		return StrategyGreedy
	}
	return StrategyExhaustive
}

func (s *ShippingResolver) searchPlans(
	ctx context.Context,
	strategy string,
	items []domain.LineItem,
	validRules map[string][]string,
	rules map[string]domain.ShippingRule,
) ([]domain.ShippingPlan, error) {
	switch strategy {
	case StrategyGreedy:
		plan, ok := greedyPlan(items, validRules, rules)
		if !ok {
			return nil, nil
		}
		return []domain.ShippingPlan{plan}, nil
	default:
		return exhaustivePlans(ctx, items, validRules, rules)
	}
}

func (s *ShippingResolver) recordQuote(ctx context.Context, strategy string) {
	if !s.metricsEnabled {
		return
	}
	s.quotesComputed.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", strategy)))
}

func (s *ShippingResolver) publishQuote(ctx context.Context, cmd ResolveShippingCommand, result ResolveShippingResult) {
	if s.publisher == nil {
		return
	}

	packageCount := 0
	var totalPrice int64
	if len(result.Plans) > 0 {
		packageCount = result.Plans[0].PackageCount
		totalPrice = result.Plans[0].TotalPrice
	}

	message := QuoteComputedMessage{
		QuoteID:      result.QuoteID,
		Strategy:     result.Strategy,
		PostalCode:   cmd.Address.PostalCode,
		State:        cmd.Address.State,
		Complete:     result.Complete,
		TotalPrice:   totalPrice,
		PackageCount: packageCount,
		PlanCount:    len(result.Plans),
		ComputedAt:   result.ComputedAt,
	}
	if _, err := s.publisher.PublishQuoteComputed(ctx, message); err != nil {
		// Analytics only; quote delivery does not depend on the event.
		s.logger(ctx, "shipping.quote.publish_failed", map[string]any{
			"quote_id": result.QuoteID,
			"error":    err.Error(),
		})
	}
}

func validateCommand(cmd ResolveShippingCommand) error {
	if len(cmd.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidQuoteInput)
	}
	for _, item := range cmd.Items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: line item missing product id", ErrInvalidQuoteInput)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: product %s has non-positive quantity", ErrInvalidQuoteInput, item.ProductID)
		}
		if item.UnitWeightGrams < 0 {
			return fmt.Errorf("%w: product %s has negative weight", ErrInvalidQuoteInput, item.ProductID)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: product %s has negative price", ErrInvalidQuoteInput, item.ProductID)
		}
	}
	if cmd.Address.PostalCode == "" && cmd.Address.State == "" {
		return fmt.Errorf("%w: address needs a postal code or state", ErrInvalidQuoteInput)
	}
	return nil
}

func validStrategy(strategy string) bool {
	switch strategy {
	case StrategyExhaustive, StrategyGreedy, StrategyAuto:
		return true
	default:
		return false
	}
}

func hasCompletePlan(plans []domain.ShippingPlan) bool {
	for _, plan := range plans {
		if plan.Complete {
			return true
		}
	}
	return false
}
