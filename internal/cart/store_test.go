package cart

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newTestStore() *Store {
	s := NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
	var n int
	s.newID = func() string {
		n++
		return fmt.Sprintf("line-%d", n)
	}
	return s
}

func tee(variant string) domain.Candidate {
	return domain.Candidate{
		ProductID:   "UHJvZHVjdDox",
		VariantID:   variant,
		Name:        "Monospace Tee",
		Slug:        "monospace-tee",
		Price:       1999,
		Currency:    "USD",
		VariantName: variant,
	}
}

func mug() domain.Candidate {
	return domain.Candidate{ProductID: "UHJvZHVjdDoy", Name: "Mug", Price: 850, Currency: "USD"}
}

// ---------------------------------------------------------------------------
// AddItem
// ---------------------------------------------------------------------------

func TestAddItem_SameIdentityMerges(t *testing.T) {
	s := newTestStore()

	first, err := s.AddItem(tee("M"), 2)
	require.NoError(t, err)
	second, err := s.AddItem(tee("M"), 3)
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
}

func TestAddItem_DistinctVariantsAreDistinctLines(t *testing.T) {
	s := newTestStore()

	_, err := s.AddItem(tee("M"), 1)
	require.NoError(t, err)
	_, err = s.AddItem(tee("L"), 1)
	require.NoError(t, err)
	_, err = s.AddItem(tee(""), 1)
	require.NoError(t, err)
	_, err = s.AddItem(tee(""), 1)
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "M", items[0].VariantID)
	assert.Equal(t, "L", items[1].VariantID)
	assert.Equal(t, "", items[2].VariantID)
	assert.Equal(t, 2, items[2].Quantity)
}

func TestAddItem_NonPositiveQuantityCountsAsOne(t *testing.T) {
	s := newTestStore()

	line, err := s.AddItem(mug(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	line, err = s.AddItem(mug(), -4)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)
}

func TestAddItem_AssignsUniqueIDs(t *testing.T) {
	s := NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))

	a, err := s.AddItem(tee("M"), 1)
	require.NoError(t, err)
	b, err := s.AddItem(mug(), 1)
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAddItem_MergeKeepsOtherLinesInPlace(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddItem(tee("M"), 1)
	_, _ = s.AddItem(mug(), 1)
	_, _ = s.AddItem(tee("L"), 1)

	_, err := s.AddItem(mug(), 4)
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"line-1", "line-2", "line-3"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, 5, items[1].Quantity)
}

func TestAddItem_SparseCandidateIsAccepted(t *testing.T) {
	cases := []struct {
		name string
		c    domain.Candidate
	}{
		{"empty name", domain.Candidate{ProductID: "p1", Currency: "USD"}},
		{"blank currency", domain.Candidate{ProductID: "p1", Name: "Tee"}},
		{"unknown currency", domain.Candidate{ProductID: "p1", Name: "Tee", Currency: "XYZ"}},
		{"zero value", domain.Candidate{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore()

			line, err := s.AddItem(tc.c, 2)

			require.NoError(t, err)
			assert.Equal(t, 2, line.Quantity)
			require.Len(t, s.Items(), 1)
			assert.Equal(t, 2, s.TotalItems())
		})
	}
}

func TestAddItem_FirstLineFixesBlankCurrency(t *testing.T) {
	s := newTestStore()
	_, err := s.AddItem(domain.Candidate{ProductID: "p1", Name: "Tee"}, 1)
	require.NoError(t, err)

	_, err = s.AddItem(mug(), 1)

	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	assert.Len(t, s.Items(), 1)
}

func TestAddItem_CurrencyMismatchLeavesCartUnchanged(t *testing.T) {
	s := newTestStore()
	_, err := s.AddItem(tee("M"), 1)
	require.NoError(t, err)

	eur := mug()
	eur.Currency = "EUR"
	before := testutil.ToFloat64(opsTotal.WithLabelValues("add", "currency_mismatch"))
	_, err = s.AddItem(eur, 1)

	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
	assert.Len(t, s.Items(), 1)
	assert.Equal(t, "USD", s.Currency())
	assert.Equal(t, before+1, testutil.ToFloat64(opsTotal.WithLabelValues("add", "currency_mismatch")))
}

func TestAddItem_CurrencyIsCaseInsensitive(t *testing.T) {
	s := newTestStore()
	_, err := s.AddItem(tee("M"), 1)
	require.NoError(t, err)

	lower := mug()
	lower.Currency = "usd"
	_, err = s.AddItem(lower, 1)
	require.NoError(t, err)
	assert.Equal(t, "USD", s.Items()[1].Currency)
}

func TestCurrency_ResetsWhenCartEmpties(t *testing.T) {
	s := newTestStore()
	line, _ := s.AddItem(tee("M"), 1)
	s.RemoveItem(line.ID)
	assert.Equal(t, "", s.Currency())

	eur := mug()
	eur.Currency = "EUR"
	_, err := s.AddItem(eur, 1)
	require.NoError(t, err)
	assert.Equal(t, "EUR", s.Currency())
}

// ---------------------------------------------------------------------------
// RemoveItem / UpdateQuantity / Clear
// ---------------------------------------------------------------------------

func TestRemoveItem_UnknownIDIsNoop(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddItem(mug(), 1)

	s.RemoveItem("missing")

	assert.Len(t, s.Items(), 1)
}

func TestUpdateQuantity_NonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -5} {
		t.Run(fmt.Sprint(qty), func(t *testing.T) {
			s := newTestStore()
			a, _ := s.AddItem(tee("M"), 2)
			_, _ = s.AddItem(mug(), 1)

			s.UpdateQuantity(a.ID, qty)

			items := s.Items()
			require.Len(t, items, 1)
			assert.Equal(t, "UHJvZHVjdDoy", items[0].ProductID)

			s.UpdateQuantity("missing", qty)
			assert.Len(t, s.Items(), 1)
		})
	}
}

func TestUpdateQuantity_SetsAbsoluteValue(t *testing.T) {
	s := newTestStore()
	line, _ := s.AddItem(mug(), 3)

	s.UpdateQuantity(line.ID, 7)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, line.ID, items[0].ID)
	assert.Equal(t, 7, items[0].Quantity)
}

func TestUpdateQuantity_UnknownIDIsNoop(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddItem(mug(), 3)
	version := s.Snapshot().Version

	s.UpdateQuantity("missing", 9)

	assert.Equal(t, 3, s.TotalItems())
	assert.Equal(t, version, s.Snapshot().Version)
}

func TestClear_YieldsZeroState(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddItem(tee("M"), 2)
	_, _ = s.AddItem(mug(), 1)

	s.Clear()

	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.TotalItems())
	assert.Equal(t, int64(0), s.TotalPrice())
	assert.Equal(t, "", s.Currency())
}

// ---------------------------------------------------------------------------
// Aggregates
// ---------------------------------------------------------------------------

func TestAggregates_EmptyCart(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, 0, s.TotalItems())
	assert.Equal(t, int64(0), s.TotalPrice())
	assert.NotNil(t, s.Items())
	assert.Empty(t, s.Snapshot().Total)
}

func TestSnapshot_FormatsTotalInCartCurrency(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddItem(tee("M"), 2)
	_, _ = s.AddItem(mug(), 1)
	assert.Equal(t, "48.48", s.Snapshot().Total)

	s.Clear()
	_, _ = s.AddItem(domain.Candidate{ProductID: "p1", Name: "Sencha", Price: 1200, Currency: "JPY"}, 3)
	assert.Equal(t, "3600", s.Snapshot().Total)
}

func TestAggregates_TrackMutations(t *testing.T) {
	s := newTestStore()

	a, _ := s.AddItem(tee("M"), 2) // 2 x 1999
	b, _ := s.AddItem(mug(), 3)    // 3 x 850
	_, _ = s.AddItem(tee("L"), 1)  // 1 x 1999
	assert.Equal(t, 6, s.TotalItems())
	assert.Equal(t, int64(2*1999+3*850+1999), s.TotalPrice())

	s.UpdateQuantity(b.ID, 1)
	s.RemoveItem(a.ID)
	assert.Equal(t, 2, s.TotalItems())
	assert.Equal(t, int64(850+1999), s.TotalPrice())

	var wantItems int
	var wantPrice int64
	for _, it := range s.Items() {
		wantItems += it.Quantity
		wantPrice += it.Price * int64(it.Quantity)
	}
	assert.Equal(t, wantItems, s.TotalItems())
	assert.Equal(t, wantPrice, s.TotalPrice())
}

func TestItems_ReturnsCopy(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddItem(mug(), 1)

	items := s.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, s.TotalItems())
}

// ---------------------------------------------------------------------------
// Subscribe
// ---------------------------------------------------------------------------

func TestSubscribe_NotifiesAfterEachMutation(t *testing.T) {
	s := newTestStore()
	var got []Snapshot
	cancel := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })

	line, _ := s.AddItem(mug(), 2)
	s.UpdateQuantity(line.ID, 4)
	s.RemoveItem("missing")
	s.Clear()

	require.Len(t, got, 3)
	assert.Equal(t, 2, got[0].TotalItems)
	assert.Equal(t, int64(3400), got[1].TotalPrice)
	assert.Empty(t, got[2].Items)
	assert.Less(t, got[0].Version, got[1].Version)

	cancel()
	cancel()
	_, _ = s.AddItem(mug(), 1)
	assert.Len(t, got, 3)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s := NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddItem(mug(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, s.Items(), 1)
	assert.Equal(t, 50, s.TotalItems())
}
