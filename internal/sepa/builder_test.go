package sepa

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func randomString() string {
	return uuid.NewString()[:10]
}

func mockDebtorAccount() DebtorAccount {
	return DebtorAccount{Name: randomString(), BIC: randomString(), IBAN: randomString()}
}

func mockTransaction(amount float64) Transaction {
	return Transaction{
		Reference:    randomString(),
		Amount:       amount,
		Currency:     "EUR",
		CreditorName: "Patricia",
		CreditorBIC:  randomString(),
		CreditorIBAN: randomString(),
	}
}

type mockGroup struct {
	id           string
	currency     string
	account      DebtorAccount
	transactions []Transaction
}

func mockTransactionGroup(transactions ...Transaction) mockGroup {
	if len(transactions) == 0 {
		transactions = []Transaction{mockTransaction(100)}
	}
	return mockGroup{
		id:           randomString(),
		currency:     "EUR",
		account:      mockDebtorAccount(),
		transactions: transactions,
	}
}

func (g mockGroup) options() []GroupOption {
	return []GroupOption{
		WithCurrency(g.currency),
		WithDebtorAccount(g.account),
		WithTransactions(g.transactions...),
	}
}

// prefilledPayment returns a valid payment, leaving out the named parts
// ("reference", "debtorEntity", "transactionGroup").
func prefilledPayment(without ...string) *Payment {
	skip := make(map[string]bool)
	for _, w := range without {
		skip[w] = true
	}

	p := NewPayment(WithClock(func() time.Time { return fixedNow }))
	if !skip["reference"] {
		p.SetReference(randomString())
	}
	if !skip["debtorEntity"] {
		p.SetDebtorEntity(randomString())
	}
	if !skip["transactionGroup"] {
		g := mockTransactionGroup()
		p.AddTransactionGroup(g.id, g.options()...)
	}
	return p
}

func generate(t *testing.T, p *Payment) *Reader {
	t.Helper()
	doc, err := p.GenerateDocument()
	require.NoError(t, err)
	return NewReader(doc)
}

func TestSetReference(t *testing.T) {
	reference := randomString()
	r := generate(t, prefilledPayment("reference").SetReference(reference))
	assert.Equal(t, reference, r.Reference())
}

func TestAddTransactionGroup(t *testing.T) {
	t.Run("saves transaction groups", func(t *testing.T) {
		g := mockTransactionGroup()
		r := generate(t, prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...))

		assert.True(t, r.HasTransactionGroup(g.id))

		currency, ok := r.Currency(g.id)
		assert.True(t, ok)
		assert.Equal(t, g.currency, currency)

		name, _ := r.DebtorName(g.id)
		bic, _ := r.DebtorBIC(g.id)
		iban, _ := r.DebtorIBAN(g.id)
		assert.Equal(t, g.account.Name, name)
		assert.Equal(t, g.account.BIC, bic)
		assert.Equal(t, g.account.IBAN, iban)
	})

	t.Run("updates an existing group", func(t *testing.T) {
		g := mockTransactionGroup()
		p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)

		currency, _ := generate(t, p).Currency(g.id)
		assert.Equal(t, g.currency, currency)

		p.AddTransactionGroup(g.id, WithCurrency("CHF"))
		r := generate(t, p)

		currency, _ = r.Currency(g.id)
		assert.Equal(t, "CHF", currency)
		assert.Equal(t, len(g.transactions), r.CountTransactions(g.id))
		name, _ := r.DebtorName(g.id)
		assert.Equal(t, g.account.Name, name)
	})

	t.Run("appends transactions when re-added", func(t *testing.T) {
		g := mockTransactionGroup()
		p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)
		extra := mockTransaction(5)
		p.AddTransactionGroup(g.id, WithTransactions(extra))

		r := generate(t, p)
		assert.Equal(t, 2, r.CountTransactions(g.id))
		assert.True(t, r.HasTransaction(g.id, extra.Reference))
	})

	t.Run("is idempotent without options", func(t *testing.T) {
		p := prefilledPayment()
		p.AddTransactionGroup("G1").AddTransactionGroup("G1")
		assert.Len(t, p.TransactionGroupIDs(), 2)
	})

	t.Run("ignores groups that have no transactions", func(t *testing.T) {
		g := mockTransactionGroup()
		p := prefilledPayment().AddTransactionGroup(g.id,
			WithCurrency(g.currency), WithDebtorAccount(g.account))

		r := generate(t, p)
		assert.False(t, r.HasTransactionGroup(g.id))
		assert.Equal(t, 1, r.CountTransactionGroups())

		require.NoError(t, p.AddTransaction(g.id, mockTransaction(10)))
		r = generate(t, p)
		assert.True(t, r.HasTransactionGroup(g.id))
		assert.Equal(t, 2, r.CountTransactionGroups())
	})
}

func TestUnknownGroup(t *testing.T) {
	id := randomString()

	tests := []struct {
		name string
		op   string
		call func(p *Payment) error
	}{
		{"SetCurrency", "currency", func(p *Payment) error { return p.SetCurrency(id, "EUR") }},
		{"SetDebtorAccount", "debtor account", func(p *Payment) error { return p.SetDebtorAccount(id, mockDebtorAccount()) }},
		{"AddTransaction", "transaction", func(p *Payment) error { return p.AddTransaction(id, mockTransaction(1)) }},
		{"AddTransactions", "transaction", func(p *Payment) error {
			return p.AddTransactions(id, []Transaction{mockTransaction(1), mockTransaction(2)})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := prefilledPayment()
			before := generate(t, p)

			err := tt.call(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownGroup))

			var unknown *UnknownGroupError
			require.ErrorAs(t, err, &unknown)
			assert.Equal(t, id, unknown.GroupID)
			assert.Equal(t, tt.op, unknown.Op)
			assert.Equal(t,
				`cannot add `+tt.op+` to non existing transaction group: "`+id+`"`,
				err.Error())

			after := generate(t, p)
			assert.Equal(t, before.Reference(), after.Reference())
			assert.Equal(t, before.NumberOfTransactions(), after.NumberOfTransactions())
			assert.Equal(t, before.CountTransactionGroups(), after.CountTransactionGroups())
		})
	}
}

func TestSetCurrencyAndDebtorAccount(t *testing.T) {
	g := mockTransactionGroup()
	p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)

	account := mockDebtorAccount()
	require.NoError(t, p.SetCurrency(g.id, "USD"))
	require.NoError(t, p.SetDebtorAccount(g.id, account))

	r := generate(t, p)
	currency, _ := r.Currency(g.id)
	name, _ := r.DebtorName(g.id)
	bic, _ := r.DebtorBIC(g.id)
	iban, _ := r.DebtorIBAN(g.id)

	assert.Equal(t, "USD", currency)
	assert.Equal(t, account.Name, name)
	assert.Equal(t, account.BIC, bic)
	assert.Equal(t, account.IBAN, iban)
}

func TestAddTransaction(t *testing.T) {
	t.Run("adds one transaction to the group", func(t *testing.T) {
		g := mockTransactionGroup()
		p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)
		txn := mockTransaction(42)
		require.NoError(t, p.AddTransaction(g.id, txn))

		r := generate(t, p)
		assert.Equal(t, 2, r.CountTransactions(g.id))
		assert.True(t, r.HasTransaction(g.id, txn.Reference))
	})

	t.Run("generates a correct transaction", func(t *testing.T) {
		g := mockTransactionGroup()
		p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)
		r := generate(t, p)

		for _, txn := range g.transactions {
			amount, ok := r.TransactionAmount(g.id, txn.Reference)
			assert.True(t, ok)
			assert.Equal(t, txn.Amount, amount)

			currency, _ := r.TransactionCurrency(g.id, txn.Reference)
			name, _ := r.TransactionCreditorName(g.id, txn.Reference)
			bic, _ := r.TransactionCreditorBIC(g.id, txn.Reference)
			iban, _ := r.TransactionCreditorIBAN(g.id, txn.Reference)
			assert.Equal(t, txn.Currency, currency)
			assert.Equal(t, txn.CreditorName, name)
			assert.Equal(t, txn.CreditorBIC, bic)
			assert.Equal(t, txn.CreditorIBAN, iban)
		}
	})

	t.Run("includes custom fields", func(t *testing.T) {
		g := mockTransactionGroup()
		p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)
		txn := mockTransaction(3)
		txn.CustomFields = map[string]any{"foo": "bar"}
		require.NoError(t, p.AddTransaction(g.id, txn))

		value, err := generate(t, p).TransactionCustomField(g.id, txn.Reference, "foo")
		require.NoError(t, err)
		assert.Equal(t, "bar", value)
	})

	t.Run("fixed fields win over custom fields", func(t *testing.T) {
		g := mockTransactionGroup()
		p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)
		txn := mockTransaction(3)
		txn.CustomFields = map[string]any{"Cdtr": "shadowed"}
		require.NoError(t, p.AddTransaction(g.id, txn))

		value, err := generate(t, p).TransactionCustomField(g.id, txn.Reference, "Cdtr")
		require.NoError(t, err)
		assert.Equal(t, Party{Name: txn.CreditorName}, value)
	})

	t.Run("keeps duplicate references", func(t *testing.T) {
		g := mockTransactionGroup()
		p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)
		first := mockTransaction(1)
		second := first
		second.Amount = 2
		require.NoError(t, p.AddTransactions(g.id, []Transaction{first, second}))

		r := generate(t, p)
		assert.Equal(t, 3, r.CountTransactions(g.id))
		amount, _ := r.TransactionAmount(g.id, first.Reference)
		assert.Equal(t, 1.0, amount)
	})
}

func TestAddTransactions(t *testing.T) {
	g := mockTransactionGroup()
	p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)
	txns := []Transaction{mockTransaction(1), mockTransaction(2), mockTransaction(3)}
	require.NoError(t, p.AddTransactions(g.id, txns))

	r := generate(t, p)
	assert.Equal(t, 4, r.CountTransactions(g.id))
	for _, txn := range txns {
		assert.True(t, r.HasTransaction(g.id, txn.Reference))
	}
}

func TestGenerateDocumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		payment func() *Payment
		reason  string
	}{
		{"no reference", func() *Payment { return prefilledPayment("reference") }, "reference missing"},
		{"no debtor entity", func() *Payment { return prefilledPayment("debtorEntity") }, "debtor entity missing"},
		{"no transaction group", func() *Payment { return prefilledPayment("transactionGroup") }, "need at least 1 transaction group"},
		{"group without currency", func() *Payment {
			return prefilledPayment().AddTransactionGroup("NOCCY", WithDebtorAccount(mockDebtorAccount()))
		}, "NOCCY currency missing"},
		{"group without debtor account", func() *Payment {
			return prefilledPayment().AddTransactionGroup("NOACCT", WithCurrency("EUR"))
		}, "NOACCT has an invalid debtor account"},
		{"incomplete debtor account", func() *Payment {
			return prefilledPayment().AddTransactionGroup("HALF",
				WithCurrency("EUR"), WithDebtorAccount(DebtorAccount{Name: "n", BIC: "b"}))
		}, "HALF has an invalid debtor account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := tt.payment().GenerateDocument()
			assert.Nil(t, doc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidationFailed))
			assert.Contains(t, err.Error(), "could not generate SEPA payment object")
			assert.Contains(t, err.Error(), tt.reason)
		})
	}

	t.Run("reports every violation in order", func(t *testing.T) {
		p := NewPayment().AddTransactionGroup("A").AddTransactionGroup("B", WithCurrency("EUR"))

		_, err := p.GenerateDocument()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{
			"reference missing",
			"debtor entity missing",
			"A currency missing",
			"A has an invalid debtor account",
			"B has an invalid debtor account",
		}, verr.Reasons)
		assert.Equal(t,
			"could not generate SEPA payment object for the following reason(s): "+
				"reference missing,debtor entity missing,A currency missing,"+
				"A has an invalid debtor account,B has an invalid debtor account",
			err.Error())
	})
}

func TestGenerateDocumentHeader(t *testing.T) {
	p := prefilledPayment()
	doc, err := p.GenerateDocument()
	require.NoError(t, err)

	assert.Equal(t, "2026-03-14T09:26:53.589Z", doc.GroupHeader.CreationDateTime)
	assert.Equal(t, "MIXD", doc.GroupHeader.Grouping)
	require.Len(t, doc.PaymentInformation, 1)
	assert.Equal(t, "2026-03-14", doc.PaymentInformation[0].RequestedExecutionDate)
}

func TestNumberOfTransactions(t *testing.T) {
	p := prefilledPayment("transactionGroup")
	for _, n := range []int{3, 2, 1} {
		txns := make([]Transaction, n)
		for i := range txns {
			txns[i] = mockTransaction(float64(i + 1))
		}
		g := mockTransactionGroup(txns...)
		p.AddTransactionGroup(g.id, g.options()...)
	}
	// Empty groups do not count.
	p.AddTransactionGroup("EMPTY", WithCurrency("EUR"), WithDebtorAccount(mockDebtorAccount()))

	r := generate(t, p)
	assert.Equal(t, 6, r.NumberOfTransactions())
	assert.Equal(t, 3, r.CountTransactionGroups())
}

func TestControlSum(t *testing.T) {
	tests := []struct {
		name    string
		amounts [][]float64
		want    float64
	}{
		{"single group", [][]float64{{10, 20.5, 0.25}}, 30.75},
		{"cumulates all groups", [][]float64{{100, 200}, {300.1}, {0.01, 0.02}}, 600.13},
		{"rounds each amount first", [][]float64{{231.349819872, 987.7197924}}, 1219.07},
		{"handles decimal drift", [][]float64{{0.1, 0.2}}, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := prefilledPayment("transactionGroup")
			for _, amounts := range tt.amounts {
				txns := make([]Transaction, len(amounts))
				for i, a := range amounts {
					txns[i] = mockTransaction(a)
				}
				g := mockTransactionGroup(txns...)
				p.AddTransactionGroup(g.id, g.options()...)
			}
			assert.Equal(t, tt.want, generate(t, p).ControlSum())
		})
	}
}

func TestTransactionIDs(t *testing.T) {
	t.Run("returns custom transactionId values in order", func(t *testing.T) {
		p := prefilledPayment("transactionGroup")

		a := mockTransaction(1)
		a.CustomFields = map[string]any{"transactionId": "tx-1"}
		b := mockTransaction(2)
		c := mockTransaction(3)
		c.CustomFields = map[string]any{"transactionId": "tx-3"}

		g1 := mockTransactionGroup(a, b)
		g2 := mockTransactionGroup(c)
		p.AddTransactionGroup(g1.id, g1.options()...).AddTransactionGroup(g2.id, g2.options()...)

		ids, err := p.TransactionIDs()
		require.NoError(t, err)
		assert.Equal(t, []any{"tx-1", nil, "tx-3"}, ids)
	})

	t.Run("validates first", func(t *testing.T) {
		_, err := prefilledPayment("reference").TransactionIDs()
		assert.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "reference missing")
	})
}

func TestEmittedDocumentIsDetached(t *testing.T) {
	g := mockTransactionGroup()
	txn := mockTransaction(1)
	txn.CustomFields = map[string]any{"note": "original"}
	g.transactions = []Transaction{txn}

	p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)
	first, err := p.GenerateDocument()
	require.NoError(t, err)

	// Mutating the caller's map after the transaction was added.
	txn.CustomFields["note"] = "changed"
	require.NoError(t, p.AddTransaction(g.id, mockTransaction(2)))
	require.NoError(t, p.SetCurrency(g.id, "GBP"))

	r := NewReader(first)
	assert.Equal(t, 1, r.CountTransactions(g.id))
	assert.Equal(t, 1, r.NumberOfTransactions())
	currency, _ := r.Currency(g.id)
	assert.Equal(t, "EUR", currency)
	note, err := r.TransactionCustomField(g.id, txn.Reference, "note")
	require.NoError(t, err)
	assert.Equal(t, "original", note)

	second, err := p.GenerateDocument()
	require.NoError(t, err)
	assert.Equal(t, 2, NewReader(second).NumberOfTransactions())

	// Two emissions never share custom field maps.
	first.PaymentInformation[0].CreditTransfers[0].CustomFields["note"] = "edited"
	note, _ = NewReader(second).TransactionCustomField(g.id, txn.Reference, "note")
	assert.Equal(t, "original", note)
}

func TestSeparateInstances(t *testing.T) {
	a := generate(t, prefilledPayment())
	b := generate(t, prefilledPayment())
	assert.NotEqual(t, a.Reference(), b.Reference())
}
