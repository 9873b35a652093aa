package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow/internal/core"
)

func tx(y, m, d int, amount string, category string) core.Transaction {
	a := decimal.RequireFromString(amount)
	typ := core.Income
	if a.IsNegative() {
		typ = core.Expense
	}
	return core.Transaction{Date: core.NewDate(y, m, d), Amount: a, Type: typ, Category: category}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func TestSummarize_ExampleScenario(t *testing.T) {
	txs := []core.Transaction{
		tx(2023, 1, 1, "1000", "Sales"),
		tx(2023, 1, 2, "-200", "Marketing"),
	}
	s := Summarize(txs)

	assertDec(t, "1000", s.Income)
	assertDec(t, "200", s.Expense)
	assertDec(t, "800", s.Balance)
	assert.Equal(t, 2, s.Count)
	require.NotNil(t, s.Margin)
	assertDec(t, "80", *s.Margin)
}

func TestSummarize_BalanceIsSignedSum(t *testing.T) {
	txs := []core.Transaction{
		tx(2023, 1, 1, "10.10", "a"),
		tx(2023, 1, 2, "-3.33", "b"),
		tx(2023, 1, 3, "0.01", "a"),
		tx(2023, 1, 4, "-100", "c"),
		tx(2023, 1, 5, "45.5", "b"),
	}
	s := Summarize(txs)

	sum := decimal.Zero
	for _, x := range txs {
		sum = sum.Add(x.Amount)
	}
	assert.True(t, s.Balance.Equal(sum))
	assert.True(t, s.Income.Sub(s.Expense).Equal(sum))
	assert.Nil(t, s.Margin, "negative balance has no margin")
}

func TestEmptyInput(t *testing.T) {
	s := Summarize(nil)
	assert.True(t, s.Income.IsZero())
	assert.True(t, s.Expense.IsZero())
	assert.True(t, s.Balance.IsZero())
	assert.Zero(t, s.Count)
	assert.Nil(t, s.Margin)

	assert.Empty(t, ByCategory(nil, 5))
	assert.Empty(t, ByPeriod(nil, Month))
	assert.Empty(t, Composition(nil))
	assert.Empty(t, CategoryTimeline(nil, "x"))
	assert.Empty(t, Categories(nil))
	assert.True(t, Bounds(nil).Empty)

	c := Change(nil)
	assert.False(t, c.Defined)
	assert.True(t, c.Percent.IsZero())
}

func TestByCategory(t *testing.T) {
	txs := []core.Transaction{
		tx(2023, 1, 1, "100", "Vendas"),
		tx(2023, 1, 2, "-40", "Aluguel"),
		tx(2023, 1, 3, "50", "Serviços"),
		tx(2023, 1, 4, "-10", "Vendas"),
		tx(2023, 1, 5, "50", "Outros"),
	}
	got := ByCategory(txs, 0)
	require.Len(t, got, 4)

	assert.Equal(t, "Vendas", got[0].Category)
	assertDec(t, "90", got[0].Total)
	assert.Equal(t, 2, got[0].Count)
	// tie on 50 breaks by name
	assert.Equal(t, "Outros", got[1].Category)
	assert.Equal(t, "Serviços", got[2].Category)
	assert.Equal(t, "Aluguel", got[3].Category)

	top := ByCategory(txs, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "Vendas", top[0].Category)
}

func TestByPeriod_Month(t *testing.T) {
	txs := []core.Transaction{
		tx(2023, 3, 20, "30", "a"),
		tx(2023, 1, 5, "100", "a"),
		tx(2023, 1, 31, "-40", "b"),
	}
	got := ByPeriod(txs, Month)
	require.Len(t, got, 3)

	assert.Equal(t, core.NewDate(2023, 1, 1), got[0].Start)
	assertDec(t, "60", got[0].Total)
	assertDec(t, "100", got[0].Income)
	assertDec(t, "40", got[0].Expense)

	// February has no rows but stays in the series
	assert.Equal(t, core.NewDate(2023, 2, 1), got[1].Start)
	assert.True(t, got[1].Total.IsZero())

	assert.Equal(t, core.NewDate(2023, 3, 1), got[2].Start)
	assertDec(t, "30", got[2].Total)
}

func TestByPeriod_Week(t *testing.T) {
	// 2023-01-01 is a Sunday, 2023-01-02 a Monday
	txs := []core.Transaction{
		tx(2023, 1, 1, "1", "a"),
		tx(2023, 1, 2, "2", "a"),
		tx(2023, 1, 8, "4", "a"),
		tx(2023, 1, 16, "8", "a"),
	}
	got := ByPeriod(txs, Week)
	require.Len(t, got, 4)

	assert.Equal(t, core.NewDate(2022, 12, 26), got[0].Start)
	assertDec(t, "1", got[0].Total)
	assert.Equal(t, core.NewDate(2023, 1, 2), got[1].Start)
	assertDec(t, "6", got[1].Total)
	assert.Equal(t, core.NewDate(2023, 1, 9), got[2].Start)
	assert.True(t, got[2].Total.IsZero())
	assert.Equal(t, core.NewDate(2023, 1, 16), got[3].Start)
}

func TestByPeriod_Day(t *testing.T) {
	txs := []core.Transaction{
		tx(2023, 1, 3, "5", "a"),
		tx(2023, 1, 1, "1", "a"),
		tx(2023, 1, 1, "-3", "a"),
	}
	got := ByPeriod(txs, Day)
	require.Len(t, got, 3)
	assertDec(t, "-2", got[0].Total)
	assert.Equal(t, core.NewDate(2023, 1, 2), got[1].Start)
	assertDec(t, "5", got[2].Total)
}

func TestByPeriod_WideSpanKeepsOnlyPopulated(t *testing.T) {
	txs := []core.Transaction{
		tx(9999, 12, 31, "-5", "a"),
		tx(1900, 1, 1, "10", "a"),
	}
	got := ByPeriod(txs, Day)
	require.Len(t, got, 2)
	assert.Equal(t, core.NewDate(1900, 1, 1), got[0].Start)
	assert.Equal(t, core.NewDate(9999, 12, 31), got[1].Start)
	assertDec(t, "5", got[1].Expense)

	// a span that still fits is filled
	got = ByPeriod([]core.Transaction{tx(2000, 1, 1, "1", "a"), tx(2009, 12, 31, "1", "a")}, Day)
	assert.Len(t, got, 3653)
	assert.LessOrEqual(t, len(got), MaxFilledBuckets)
}

func TestGranularity(t *testing.T) {
	g, err := ParseGranularity(" Week ")
	require.NoError(t, err)
	assert.Equal(t, Week, g)

	_, err = ParseGranularity("quarter")
	assert.Error(t, err)

	assert.Equal(t, core.NewDate(2024, 2, 26), Week.Start(core.NewDate(2024, 3, 3)))
	assert.Equal(t, core.NewDate(2024, 3, 4), Week.Start(core.NewDate(2024, 3, 4)))
	assert.Equal(t, core.NewDate(2024, 2, 1), Month.Start(core.NewDate(2024, 2, 29)))
	assert.Equal(t, "Mensal", Month.Label())
}

func TestChange(t *testing.T) {
	periods := []PeriodTotal{
		{Total: dec("100")},
		{Total: dec("150")},
	}
	c := Change(periods)
	assert.True(t, c.Defined)
	assertDec(t, "50", c.Percent)

	c = Change([]PeriodTotal{{Total: dec("-100")}, {Total: dec("-50")}})
	assert.True(t, c.Defined)
	assertDec(t, "50", c.Percent)

	// measured against the magnitude, so recovering from a loss reads as growth
	c = Change([]PeriodTotal{{Total: dec("-100")}, {Total: dec("50")}})
	assert.True(t, c.Defined)
	assertDec(t, "150", c.Percent)

	c = Change([]PeriodTotal{{Total: decimal.Zero}, {Total: dec("10")}})
	assert.False(t, c.Defined)
	assert.True(t, c.Percent.IsZero())

	c = Change([]PeriodTotal{{Total: dec("10")}})
	assert.False(t, c.Defined)
	assertDec(t, "10", c.Current)
}

func TestComposition(t *testing.T) {
	txs := []core.Transaction{
		tx(2023, 1, 1, "-40", "Aluguel"),
		tx(2023, 1, 1, "100", "Vendas"),
		tx(2023, 1, 2, "-60", "Marketing"),
		tx(2023, 1, 3, "-5", "Aluguel"),
	}
	got := Composition(txs)
	require.Len(t, got, 2)

	assert.Equal(t, core.Income, got[0].Type)
	assertDec(t, "100", got[0].Total)

	assert.Equal(t, core.Expense, got[1].Type)
	assertDec(t, "105", got[1].Total)
	require.Len(t, got[1].Categories, 2)
	assert.Equal(t, "Marketing", got[1].Categories[0].Category)
	assertDec(t, "45", got[1].Categories[1].Total)
}

func TestCategoryTimeline(t *testing.T) {
	txs := []core.Transaction{
		tx(2023, 1, 3, "-5", "Vendas"),
		tx(2023, 1, 1, "100", "Vendas"),
		tx(2023, 1, 1, "-20", "Vendas"),
		tx(2023, 1, 2, "999", "Outros"),
	}
	got := CategoryTimeline(txs, "Vendas")
	require.Len(t, got, 2)
	assert.Equal(t, core.NewDate(2023, 1, 1), got[0].Date)
	assertDec(t, "100", got[0].Income)
	assertDec(t, "20", got[0].Expense)
	assert.Equal(t, core.NewDate(2023, 1, 3), got[1].Date)
	assertDec(t, "5", got[1].Expense)
}

func TestCategoriesAndBounds(t *testing.T) {
	txs := []core.Transaction{
		tx(2023, 2, 1, "10", "b"),
		tx(2023, 1, 1, "-50", "a"),
		tx(2023, 3, 1, "70", "b"),
	}
	assert.Equal(t, []string{"b", "a"}, Categories(txs))

	r := Bounds(txs)
	assert.False(t, r.Empty)
	assert.Equal(t, core.NewDate(2023, 1, 1), r.MinDate)
	assert.Equal(t, core.NewDate(2023, 3, 1), r.MaxDate)
	assertDec(t, "-50", r.MinAmount)
	assertDec(t, "70", r.MaxAmount)
}

func TestAggregatesDoNotMutateInput(t *testing.T) {
	txs := []core.Transaction{
		tx(2023, 1, 2, "-40", "b"),
		tx(2023, 1, 1, "100", "a"),
	}
	before := append([]core.Transaction(nil), txs...)
	_ = ByCategory(txs, 0)
	_ = ByPeriod(txs, Day)
	_ = Composition(txs)
	assert.Equal(t, before, txs)
}
