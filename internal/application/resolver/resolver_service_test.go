package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/dealerops/backend/internal/domain/catalog"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/resolver"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockDealerRepository struct {
	mock.Mock
}

func (m *MockDealerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Dealer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Dealer), args.Error(1)
}

func (m *MockDealerRepository) FindByCode(ctx context.Context, code string) (*partner.Dealer, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Dealer), args.Error(1)
}

func (m *MockDealerRepository) FindActive(ctx context.Context, salesPersonID *uuid.UUID) ([]partner.Dealer, error) {
	args := m.Called(ctx, salesPersonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partner.Dealer), args.Error(1)
}

func (m *MockDealerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Dealer, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Dealer), args.Error(1)
}

func (m *MockDealerRepository) Save(ctx context.Context, dealer *partner.Dealer) error {
	return m.Called(ctx, dealer).Error(0)
}

func (m *MockDealerRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindActive(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

func newDealer(t *testing.T, code, name string, aliases ...string) partner.Dealer {
	t.Helper()
	d, err := partner.NewDealer(code, name, partner.DealerTierA)
	require.NoError(t, err)
	d.SetAliases(aliases)
	return *d
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("dealer by alias", func(t *testing.T) {
		dealers := new(MockDealerRepository)
		products := new(MockProductRepository)
		pool := []partner.Dealer{
			newDealer(t, "D001", "Sharma Traders", "Sharma Ji"),
			newDealer(t, "D002", "Gupta Hardware"),
		}
		dealers.On("FindActive", ctx, (*uuid.UUID)(nil)).Return(pool, nil)

		svc := NewService(dealers, products, nil, zap.NewNop())
		res, err := svc.Resolve(ctx, ResolveRequest{Text: "sharma ji", Kind: resolver.EntityKindDealer})

		require.NoError(t, err)
		require.True(t, res.Matched())
		assert.Equal(t, pool[0].ID, *res.TopID)
		assert.Equal(t, 1.0, res.Confidence)
		assert.Equal(t, "Sharma Ji", res.Candidates[0].MatchedOn)
		dealers.AssertExpectations(t)
	})

	t.Run("sales person scope is passed through", func(t *testing.T) {
		dealers := new(MockDealerRepository)
		sp := uuid.New()
		dealers.On("FindActive", ctx, &sp).Return([]partner.Dealer{}, nil)

		svc := NewService(dealers, new(MockProductRepository), nil, zap.NewNop())
		res, err := svc.Resolve(ctx, ResolveRequest{Text: "anyone", Kind: resolver.EntityKindDealer, SalesPersonID: &sp})

		require.NoError(t, err)
		assert.True(t, res.LowConfidence)
		assert.Empty(t, res.Candidates)
		assert.Zero(t, res.Confidence)
		dealers.AssertExpectations(t)
	})

	t.Run("product low confidence is a value", func(t *testing.T) {
		products := new(MockProductRepository)
		p, err := catalog.NewProduct("CEM-OPC", "OPC Cement 53 Grade", "bag", decimal.NewFromInt(380))
		require.NoError(t, err)
		products.On("FindActive", ctx).Return([]catalog.Product{*p}, nil)

		svc := NewService(new(MockDealerRepository), products, nil, zap.NewNop())
		res, err := svc.Resolve(ctx, ResolveRequest{Text: "steel rods", Kind: resolver.EntityKindProduct})

		require.NoError(t, err)
		assert.Nil(t, res.TopID)
		assert.True(t, res.LowConfidence)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		svc := NewService(new(MockDealerRepository), new(MockProductRepository), nil, zap.NewNop())
		_, err := svc.Resolve(ctx, ResolveRequest{Text: "x", Kind: "warehouse"})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects blank text", func(t *testing.T) {
		svc := NewService(new(MockDealerRepository), new(MockProductRepository), nil, zap.NewNop())
		_, err := svc.Resolve(ctx, ResolveRequest{Text: "   ", Kind: resolver.EntityKindProduct})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("repository failure is wrapped", func(t *testing.T) {
		products := new(MockProductRepository)
		boom := errors.New("connection reset")
		products.On("FindActive", ctx).Return(nil, boom)

		svc := NewService(new(MockDealerRepository), products, nil, zap.NewNop())
		_, err := svc.Resolve(ctx, ResolveRequest{Text: "cement", Kind: resolver.EntityKindProduct})
		assert.ErrorIs(t, err, boom)
	})
}
