// =============================================================================
// SEPA Payment Builder - Payment Builder
// =============================================================================
//
// Payment accumulates the message header and an insertion-ordered set of
// transaction groups, validates completeness and emits a Document.
//
// LIFECYCLE:
//   1. NewPayment() creates an empty payment
//   2. Setters and Add* calls mutate it (setters chain, calls that can fail
//      addressing an unknown group return an error instead)
//   3. GenerateDocument() validates and emits a detached Document; it may be
//      called any number of times and never mutates the payment
//
// CONCURRENCY:
//   A Payment has no internal locking. Keep one Payment per document and do
//   not share it across goroutines.
//
// =============================================================================

package sepa

import (
	"fmt"
	"maps"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tiendc/go-deepcopy"
)

// transactionIDField is the custom field read by TransactionIDs.
const transactionIDField = "transactionId"

// =============================================================================
// INPUT TYPES
// =============================================================================

// DebtorAccount identifies the account a transaction group is paid from.
// All three fields are required before emission.
type DebtorAccount struct {
	Name string
	BIC  string
	IBAN string
}

// valid reports whether every field is set. Go strings have no undefined
// state, so an empty field counts as missing.
func (a *DebtorAccount) valid() bool {
	return a != nil && a.Name != "" && a.BIC != "" && a.IBAN != ""
}

// Transaction is a single credit transfer to add to a group.
type Transaction struct {
	Reference    string
	Amount       float64
	Currency     string
	CreditorName string
	CreditorBIC  string
	CreditorIBAN string

	// CustomFields are emitted next to the fixed fields of the transaction
	// record. Names that collide with a fixed field are shadowed.
	CustomFields map[string]any
}

// =============================================================================
// PAYMENT
// =============================================================================

// Payment is the mutable builder for one payment document.
type Payment struct {
	reference    string
	debtorEntity string

	// groups is keyed by id; order keeps insertion order, which is also the
	// emission order.
	groups map[string]*transactionGroup
	order  []string

	now func() time.Time
}

type transactionGroup struct {
	id            string
	currency      string
	debtorAccount *DebtorAccount
	transactions  []CreditTransfer
}

// Option configures a Payment.
type Option func(*Payment)

// WithClock replaces the clock used for CreDtTm and ReqdExctnDt.
func WithClock(now func() time.Time) Option {
	return func(p *Payment) {
		p.now = now
	}
}

// NewPayment creates an empty payment.
func NewPayment(opts ...Option) *Payment {
	p := &Payment{
		groups: make(map[string]*transactionGroup),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetReference sets the message reference (GrpHdr.MsgId).
func (p *Payment) SetReference(reference string) *Payment {
	p.reference = reference
	return p
}

// SetDebtorEntity sets the initiating party name (GrpHdr.InitgPty.Nm).
func (p *Payment) SetDebtorEntity(name string) *Payment {
	p.debtorEntity = name
	return p
}

// =============================================================================
// TRANSACTION GROUPS
// =============================================================================

type groupSettings struct {
	currency      string
	debtorAccount *DebtorAccount
	transactions  []Transaction
}

// GroupOption supplies an optional field to AddTransactionGroup.
type GroupOption func(*groupSettings)

// WithCurrency sets the group currency. An empty currency is ignored.
func WithCurrency(currency string) GroupOption {
	return func(s *groupSettings) {
		s.currency = currency
	}
}

// WithDebtorAccount replaces the group debtor account.
func WithDebtorAccount(account DebtorAccount) GroupOption {
	return func(s *groupSettings) {
		s.debtorAccount = &account
	}
}

// WithTransactions appends transactions to the group.
func WithTransactions(transactions ...Transaction) GroupOption {
	return func(s *groupSettings) {
		s.transactions = append(s.transactions, transactions...)
	}
}

// AddTransactionGroup creates the group if it does not exist yet, then
// applies only the supplied options. Transactions are appended, never
// replaced, so calling it again with just a new currency keeps every
// transaction already in the group.
func (p *Payment) AddTransactionGroup(id string, opts ...GroupOption) *Payment {
	var settings groupSettings
	for _, opt := range opts {
		opt(&settings)
	}

	group, exists := p.groups[id]
	if !exists {
		group = &transactionGroup{id: id, transactions: []CreditTransfer{}}
		p.groups[id] = group
		p.order = append(p.order, id)
	}

	if settings.currency != "" {
		group.currency = settings.currency
	}
	if settings.debtorAccount != nil {
		account := *settings.debtorAccount
		group.debtorAccount = &account
	}
	for _, txn := range settings.transactions {
		group.transactions = append(group.transactions, newCreditTransfer(txn))
	}

	return p
}

// SetCurrency overwrites the currency of an existing group.
func (p *Payment) SetCurrency(groupID, currency string) error {
	group, ok := p.groups[groupID]
	if !ok {
		return &UnknownGroupError{Op: "currency", GroupID: groupID}
	}
	group.currency = currency
	return nil
}

// SetDebtorAccount replaces the whole debtor account of an existing group.
func (p *Payment) SetDebtorAccount(groupID string, account DebtorAccount) error {
	group, ok := p.groups[groupID]
	if !ok {
		return &UnknownGroupError{Op: "debtor account", GroupID: groupID}
	}
	group.debtorAccount = &account
	return nil
}

// AddTransaction appends one transaction to an existing group.
func (p *Payment) AddTransaction(groupID string, txn Transaction) error {
	group, ok := p.groups[groupID]
	if !ok {
		return &UnknownGroupError{Op: "transaction", GroupID: groupID}
	}
	group.transactions = append(group.transactions, newCreditTransfer(txn))
	return nil
}

// AddTransactions adds each transaction in order. It is not atomic:
// transactions appended before a failure stay appended.
func (p *Payment) AddTransactions(groupID string, txns []Transaction) error {
	for _, txn := range txns {
		if err := p.AddTransaction(groupID, txn); err != nil {
			return err
		}
	}
	return nil
}

// TransactionGroupIDs returns every group id in insertion order, including
// groups that have no transactions yet.
func (p *Payment) TransactionGroupIDs() []string {
	return append([]string(nil), p.order...)
}

func newCreditTransfer(txn Transaction) CreditTransfer {
	ct := CreditTransfer{
		PaymentID: PaymentID{EndToEndID: txn.Reference},
		Amount: Amount{InstructedAmount: InstructedAmount{
			Value:    txn.Amount,
			Currency: txn.Currency,
		}},
		CreditorAgent:   Agent{FinancialInstitution: FinancialInstitution{BIC: txn.CreditorBIC}},
		Creditor:        Party{Name: txn.CreditorName},
		CreditorAccount: Account{ID: AccountID{IBAN: txn.CreditorIBAN}},
	}
	if len(txn.CustomFields) > 0 {
		ct.CustomFields = maps.Clone(txn.CustomFields)
	}
	return ct
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate runs every completeness check and returns a *ValidationError
// listing all violations, or nil.
//
// CHECK ORDER:
//   1. reference
//   2. debtor entity
//   3. at least one transaction group
//   4. per group, in insertion order: currency, then debtor account
//
// Groups without transactions are checked too even though they are later
// left out of the document.
func (p *Payment) Validate() error {
	var reasons []string

	if p.reference == "" {
		reasons = append(reasons, "reference missing")
	}
	if p.debtorEntity == "" {
		reasons = append(reasons, "debtor entity missing")
	}
	if len(p.order) == 0 {
		reasons = append(reasons, "need at least 1 transaction group")
	}

	for _, id := range p.order {
		group := p.groups[id]
		if group.currency == "" {
			reasons = append(reasons, fmt.Sprintf("%s currency missing", id))
		}
		if !group.debtorAccount.valid() {
			reasons = append(reasons, fmt.Sprintf("%s has an invalid debtor account", id))
		}
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// =============================================================================
// EMISSION
// =============================================================================

// GenerateDocument validates the payment and emits a Document. The returned
// document is a deep copy: later mutations of the payment never reach it.
func (p *Payment) GenerateDocument() (*Document, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := p.now()
	doc := &Document{
		GroupHeader: GroupHeader{
			MessageID:        p.reference,
			CreationDateTime: now.UTC().Format("2006-01-02T15:04:05.000Z"),
			Grouping:         Grouping,
			InitiatingParty:  Party{Name: p.debtorEntity},
		},
		PaymentInformation: []PaymentInformation{},
	}

	executionDate := now.Format("2006-01-02")
	controlSum := decimal.Zero

	for _, id := range p.order {
		group := p.groups[id]
		if len(group.transactions) == 0 {
			continue
		}

		transfers, err := copyCreditTransfers(group.transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to copy transactions of group %s: %w", id, err)
		}

		doc.PaymentInformation = append(doc.PaymentInformation, PaymentInformation{
			PaymentInfoID:          group.id,
			RequestedExecutionDate: executionDate,
			Debtor:                 Party{Name: group.debtorAccount.Name},
			DebtorAgent:            Agent{FinancialInstitution: FinancialInstitution{BIC: group.debtorAccount.BIC}},
			DebtorAccount: Account{
				ID:       AccountID{IBAN: group.debtorAccount.IBAN},
				Currency: group.currency,
			},
			CreditTransfers: transfers,
		})

		doc.GroupHeader.NumberOfTransactions += len(transfers)
		for _, ct := range transfers {
			controlSum = controlSum.Add(roundAmount(ct.Amount.InstructedAmount.Value))
		}
	}

	doc.GroupHeader.ControlSum, _ = controlSum.Round(2).Float64()

	return doc, nil
}

// TransactionIDs validates the payment like GenerateDocument and returns the
// "transactionId" custom field of every transaction, across all groups in
// insertion order. Transactions without that field contribute nil.
func (p *Payment) TransactionIDs() ([]any, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ids := []any{}
	for _, id := range p.order {
		for _, ct := range p.groups[id].transactions {
			ids = append(ids, ct.CustomFields[transactionIDField])
		}
	}
	return ids, nil
}

// roundAmount rounds an amount to 2 decimal places.
func roundAmount(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}

// copyCreditTransfers returns a new slice whose custom field maps are deep
// copies of the originals.
func copyCreditTransfers(src []CreditTransfer) ([]CreditTransfer, error) {
	dst := make([]CreditTransfer, len(src))
	copy(dst, src)

	for i := range dst {
		if src[i].CustomFields == nil {
			continue
		}
		var fields map[string]any
		if err := deepcopy.Copy(&fields, src[i].CustomFields); err != nil {
			return nil, err
		}
		dst[i].CustomFields = fields
	}

	return dst, nil
}
