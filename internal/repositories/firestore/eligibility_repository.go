package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/enviostack/shipping-api/internal/domain"
	pfirestore "github.com/enviostack/shipping-api/internal/platform/firestore"
	"github.com/enviostack/shipping-api/internal/repositories"
)

const defaultEligibilityCollection = "productShippingEligibility"

// EligibilityRepositoryOption customises the eligibility repository.
type EligibilityRepositoryOption func(*EligibilityRepository)

// WithEligibilityCollection overrides the collection holding eligibility documents.
func WithEligibilityCollection(name string) EligibilityRepositoryOption {
	return func(repo *EligibilityRepository) {
		if strings.TrimSpace(name) != "" {
			repo.collection = strings.TrimSpace(name)
		}
	}
}

// EligibilityRepository reads per-product rule eligibility from Firestore.
// Each document is keyed by product ID and holds the ordered rule-id list.
type EligibilityRepository struct {
	provider   *pfirestore.Provider
	collection string
	base       *pfirestore.BaseRepository[eligibilityDocument]
}

var _ repositories.EligibilityRepository = (*EligibilityRepository)(nil)

// NewEligibilityRepository constructs a Firestore-backed eligibility repository.
func NewEligibilityRepository(provider *pfirestore.Provider, opts ...EligibilityRepositoryOption) (*EligibilityRepository, error) {
	if provider == nil {
		return nil, errors.New("eligibility repository requires firestore provider")
	}
	repo := &EligibilityRepository{
		provider:   provider,
		collection: defaultEligibilityCollection,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	repo.base = pfirestore.NewBaseRepository[eligibilityDocument](provider, repo.collection, nil)
	return repo, nil
}

// ForProducts returns eligibility entries for the requested products.
// Missing documents are skipped; any other fetch failure aborts the call so
// resolution never runs against a partially loaded eligibility map.
func (r *EligibilityRepository) ForProducts(ctx context.Context, productIDs []string) (domain.Eligibility, error) {
	eligibility := make(domain.Eligibility, len(productIDs))
	seen := make(map[string]struct{}, len(productIDs))

	for _, productID := range productIDs {
		productID = strings.TrimSpace(productID)
		if productID == "" {
			continue
		}
		if _, ok := seen[productID]; ok {
			continue
		}
		seen[productID] = struct{}{}

		doc, err := r.base.Get(ctx, productID)
		if err != nil {
			if pfirestore.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("eligibility.fetch %s: %w", productID, err)
		}

		ruleIDs := cleanValues(doc.Data.RuleIDs)
		if len(ruleIDs) == 0 {
			continue
		}
		eligibility[productID] = ruleIDs
	}

	return eligibility, nil
}

type eligibilityDocument struct {
	RuleIDs []string `firestore:"rule_ids"`
}
