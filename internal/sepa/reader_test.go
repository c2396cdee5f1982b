package sepa

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
  "GrpHdr": {
    "MsgId": "MSG-001",
    "CreDtTm": "2026-03-14T09:26:53.589Z",
    "Grpg": "MIXD",
    "InitgPty": {"Nm": "ACME"},
    "NbOfTxs": 3,
    "CtrlSum": 60.5
  },
  "PmtInf": [
    {
      "PmtInfId": "G1",
      "ReqdExctnDt": "2026-03-14",
      "Dbtr": {"Nm": "ACME Ops"},
      "DbtrAgt": {"FinInstnId": {"BIC": "DEUTDEFF"}},
      "DbtrAcct": {"Id": {"IBAN": "DE89370400440532013000"}, "Ccy": "EUR"},
      "CdtTrfTxInf": [
        {
          "PmtId": {"EndToEndId": "T1"},
          "Amt": {"InstdAmt": {"value": 10.25, "currency": "EUR"}},
          "CdtrAgt": {"FinInstnId": {"BIC": "BNPAFRPP"}},
          "Cdtr": {"Nm": "Bob"},
          "CdtrAcct": {"Id": {"IBAN": "FR1420041010050500013M02606"}},
          "transactionId": "tx-1",
          "priority": 2
        },
        {
          "PmtId": {"EndToEndId": "T2"},
          "Amt": {"InstdAmt": {"value": 20, "currency": "EUR"}},
          "CdtrAgt": {"FinInstnId": {"BIC": "COBADEFF"}},
          "Cdtr": {"Nm": "Jack"},
          "CdtrAcct": {"Id": {"IBAN": "DE02120300000000202051"}}
        }
      ]
    },
    {
      "PmtInfId": "G2",
      "ReqdExctnDt": "2026-03-14",
      "Dbtr": {"Nm": "ACME Treasury"},
      "DbtrAgt": {"FinInstnId": {"BIC": "UBSWCHZH"}},
      "DbtrAcct": {"Id": {"IBAN": "CH9300762011623852957"}, "Ccy": "CHF"},
      "CdtTrfTxInf": [
        {
          "PmtId": {"EndToEndId": "T3"},
          "Amt": {"InstdAmt": {"value": 30.25, "currency": "CHF"}},
          "CdtrAgt": {"FinInstnId": {"BIC": "ZKBKCHZZ"}},
          "Cdtr": {"Nm": "Kimberley"},
          "CdtrAcct": {"Id": {"IBAN": "CH5604835012345678009"}}
        }
      ]
    }
  ]
}`

func sampleReader(t *testing.T) *Reader {
	t.Helper()
	r, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)
	return r
}

func TestReaderHeader(t *testing.T) {
	r := sampleReader(t)

	assert.Equal(t, "MSG-001", r.Reference())
	assert.Equal(t, 60.5, r.ControlSum())
	assert.Equal(t, 3, r.NumberOfTransactions())
	assert.Equal(t, "2026-03-14T09:26:53.589Z", r.CreatedAt())
	assert.Equal(t, "ACME", r.InitiatingParty())
}

func TestReaderGroups(t *testing.T) {
	r := sampleReader(t)

	assert.Equal(t, 2, r.CountTransactionGroups())
	assert.Equal(t, []string{"G1", "G2"}, r.TransactionGroupIDs())
	assert.True(t, r.HasTransactionGroup("G2"))
	assert.False(t, r.HasTransactionGroup("G3"))

	currency, ok := r.Currency("G2")
	assert.True(t, ok)
	assert.Equal(t, "CHF", currency)

	name, _ := r.DebtorName("G1")
	bic, _ := r.DebtorBIC("G1")
	iban, _ := r.DebtorIBAN("G1")
	assert.Equal(t, "ACME Ops", name)
	assert.Equal(t, "DEUTDEFF", bic)
	assert.Equal(t, "DE89370400440532013000", iban)

	assert.Equal(t, 2, r.CountTransactions("G1"))
	assert.Equal(t, []string{"T1", "T2"}, r.TransactionReferences("G1"))
}

func TestReaderTransactions(t *testing.T) {
	r := sampleReader(t)

	assert.True(t, r.HasTransaction("G1", "T2"))
	assert.False(t, r.HasTransaction("G2", "T2"))

	amount, ok := r.TransactionAmount("G1", "T1")
	assert.True(t, ok)
	assert.Equal(t, 10.25, amount)

	currency, _ := r.TransactionCurrency("G2", "T3")
	name, _ := r.TransactionCreditorName("G2", "T3")
	bic, _ := r.TransactionCreditorBIC("G2", "T3")
	iban, _ := r.TransactionCreditorIBAN("G2", "T3")
	assert.Equal(t, "CHF", currency)
	assert.Equal(t, "Kimberley", name)
	assert.Equal(t, "ZKBKCHZZ", bic)
	assert.Equal(t, "CH5604835012345678009", iban)

	id, err := r.TransactionCustomField("G1", "T1", "transactionId")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", id)

	priority, err := r.TransactionCustomField("G1", "T1", "priority")
	require.NoError(t, err)
	assert.Equal(t, 2.0, priority)

	pmtID, err := r.TransactionCustomField("G1", "T1", "PmtId")
	require.NoError(t, err)
	assert.Equal(t, PaymentID{EndToEndID: "T1"}, pmtID)
}

func TestReaderMissingValues(t *testing.T) {
	r := sampleReader(t)

	t.Run("absent group", func(t *testing.T) {
		_, ok := r.Currency("nope")
		assert.False(t, ok)
		_, ok = r.DebtorName("nope")
		assert.False(t, ok)
		_, ok = r.DebtorBIC("nope")
		assert.False(t, ok)
		_, ok = r.DebtorIBAN("nope")
		assert.False(t, ok)
		assert.Equal(t, 0, r.CountTransactions("nope"))
		assert.Nil(t, r.TransactionReferences("nope"))
		assert.False(t, r.HasTransaction("nope", "T1"))
	})

	t.Run("absent transaction", func(t *testing.T) {
		amount, ok := r.TransactionAmount("G1", "T9")
		assert.False(t, ok)
		assert.Zero(t, amount)
		_, ok = r.TransactionCurrency("G1", "T9")
		assert.False(t, ok)
		_, ok = r.TransactionCreditorName("G1", "T9")
		assert.False(t, ok)
		_, ok = r.TransactionCreditorBIC("G1", "T9")
		assert.False(t, ok)
		_, ok = r.TransactionCreditorIBAN("G1", "T9")
		assert.False(t, ok)
	})

	t.Run("custom field on absent transaction fails", func(t *testing.T) {
		_, err := r.TransactionCustomField("G1", "T9", "transactionId")
		assert.ErrorIs(t, err, ErrFieldNotFound)

		_, err = r.TransactionCustomField("nope", "T1", "transactionId")
		assert.ErrorIs(t, err, ErrFieldNotFound)
	})

	t.Run("absent custom field on existing transaction", func(t *testing.T) {
		value, err := r.TransactionCustomField("G1", "T2", "transactionId")
		require.NoError(t, err)
		assert.Nil(t, value)
	})
}

func TestReaderEmptyDocument(t *testing.T) {
	for name, r := range map[string]*Reader{
		"nil document":   NewReader(nil),
		"empty document": NewReader(&Document{}),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "", r.Reference())
			assert.Equal(t, 0, r.CountTransactionGroups())
			assert.False(t, r.HasTransactionGroup(""))
			assert.Empty(t, r.TransactionGroupIDs())
			assert.Equal(t, 0, r.NumberOfTransactions())
		})
	}
}

func TestParseDocumentRejectsInvalidJSON(t *testing.T) {
	_, err := ParseDocument([]byte(`{"GrpHdr": [}`))
	assert.Error(t, err)
}

func TestBuilderReaderRoundTrip(t *testing.T) {
	g := mockTransactionGroup(mockTransaction(12.345), mockTransaction(7))
	g.transactions[0].CustomFields = map[string]any{"transactionId": "abc", "tags": []any{"a", "b"}}

	p := prefilledPayment("transactionGroup").AddTransactionGroup(g.id, g.options()...)
	doc, err := p.GenerateDocument()
	require.NoError(t, err)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	r, err := ParseDocument(data)
	require.NoError(t, err)

	direct := NewReader(doc)
	assert.Equal(t, direct.Reference(), r.Reference())
	assert.Equal(t, direct.ControlSum(), r.ControlSum())
	assert.Equal(t, 19.35, r.ControlSum())
	assert.Equal(t, 2, r.NumberOfTransactions())

	amount, _ := r.TransactionAmount(g.id, g.transactions[0].Reference)
	assert.Equal(t, 12.345, amount)

	tags, err := r.TransactionCustomField(g.id, g.transactions[0].Reference, "tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, tags)
}
