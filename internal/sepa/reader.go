// =============================================================================
// SEPA Payment Builder - Payment Reader
// =============================================================================
//
// Reader wraps an emitted Document and resolves the schema paths against it.
// Every lookup is a pure read. A path that does not resolve yields the zero
// value (and false where a second result is returned); only
// TransactionCustomField fails, when the addressed transaction is absent.
//
// Groups are resolved by PmtInfId and transactions by PmtId.EndToEndId,
// first match wins in both cases.
//
// =============================================================================

package sepa

import (
	"encoding/json"
	"fmt"
)

// Reader provides typed read access to a Document. It never mutates the
// document and is safe for concurrent use.
type Reader struct {
	doc *Document
}

// NewReader wraps doc. A nil document behaves like one without any fields.
func NewReader(doc *Document) *Reader {
	if doc == nil {
		doc = &Document{}
	}
	return &Reader{doc: doc}
}

// ParseDocument decodes the JSON wire form of a document and wraps it.
func ParseDocument(data []byte) (*Reader, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse payment document: %w", err)
	}
	return NewReader(&doc), nil
}

// =============================================================================
// HEADER
// =============================================================================

// Reference returns GrpHdr.MsgId.
func (r *Reader) Reference() string {
	return r.doc.GroupHeader.MessageID
}

// ControlSum returns GrpHdr.CtrlSum.
func (r *Reader) ControlSum() float64 {
	return r.doc.GroupHeader.ControlSum
}

// NumberOfTransactions returns GrpHdr.NbOfTxs.
func (r *Reader) NumberOfTransactions() int {
	return r.doc.GroupHeader.NumberOfTransactions
}

// CreatedAt returns GrpHdr.CreDtTm.
func (r *Reader) CreatedAt() string {
	return r.doc.GroupHeader.CreationDateTime
}

// InitiatingParty returns GrpHdr.InitgPty.Nm.
func (r *Reader) InitiatingParty() string {
	return r.doc.GroupHeader.InitiatingParty.Name
}

// =============================================================================
// TRANSACTION GROUPS
// =============================================================================

// CountTransactionGroups returns the length of PmtInf.
func (r *Reader) CountTransactionGroups() int {
	return len(r.doc.PaymentInformation)
}

// HasTransactionGroup reports whether a group with the given id was emitted.
func (r *Reader) HasTransactionGroup(id string) bool {
	if r.CountTransactionGroups() == 0 {
		return false
	}
	return r.group(id) != nil
}

// TransactionGroupIDs returns every PmtInfId in document order.
func (r *Reader) TransactionGroupIDs() []string {
	ids := make([]string, 0, len(r.doc.PaymentInformation))
	for _, info := range r.doc.PaymentInformation {
		ids = append(ids, info.PaymentInfoID)
	}
	return ids
}

// Currency returns PmtInf[id].DbtrAcct.Ccy.
func (r *Reader) Currency(id string) (string, bool) {
	g := r.group(id)
	if g == nil {
		return "", false
	}
	return g.DebtorAccount.Currency, true
}

// DebtorName returns PmtInf[id].Dbtr.Nm.
func (r *Reader) DebtorName(id string) (string, bool) {
	g := r.group(id)
	if g == nil {
		return "", false
	}
	return g.Debtor.Name, true
}

// DebtorBIC returns PmtInf[id].DbtrAgt.FinInstnId.BIC.
func (r *Reader) DebtorBIC(id string) (string, bool) {
	g := r.group(id)
	if g == nil {
		return "", false
	}
	return g.DebtorAgent.FinancialInstitution.BIC, true
}

// DebtorIBAN returns PmtInf[id].DbtrAcct.Id.IBAN.
func (r *Reader) DebtorIBAN(id string) (string, bool) {
	g := r.group(id)
	if g == nil {
		return "", false
	}
	return g.DebtorAccount.ID.IBAN, true
}

// CountTransactions returns the number of transactions in a group, or 0 when
// the group is absent.
func (r *Reader) CountTransactions(id string) int {
	g := r.group(id)
	if g == nil {
		return 0
	}
	return len(g.CreditTransfers)
}

// TransactionReferences returns the EndToEndId of every transaction in a
// group, in document order.
func (r *Reader) TransactionReferences(id string) []string {
	g := r.group(id)
	if g == nil {
		return nil
	}
	refs := make([]string, 0, len(g.CreditTransfers))
	for _, ct := range g.CreditTransfers {
		refs = append(refs, ct.PaymentID.EndToEndID)
	}
	return refs
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// HasTransaction reports whether the group holds a transaction with the
// given reference.
func (r *Reader) HasTransaction(groupID, reference string) bool {
	return r.transaction(groupID, reference) != nil
}

// TransactionAmount returns Amt.InstdAmt.value.
func (r *Reader) TransactionAmount(groupID, reference string) (float64, bool) {
	ct := r.transaction(groupID, reference)
	if ct == nil {
		return 0, false
	}
	return ct.Amount.InstructedAmount.Value, true
}

// TransactionCurrency returns Amt.InstdAmt.currency.
func (r *Reader) TransactionCurrency(groupID, reference string) (string, bool) {
	ct := r.transaction(groupID, reference)
	if ct == nil {
		return "", false
	}
	return ct.Amount.InstructedAmount.Currency, true
}

// TransactionCreditorName returns Cdtr.Nm.
func (r *Reader) TransactionCreditorName(groupID, reference string) (string, bool) {
	ct := r.transaction(groupID, reference)
	if ct == nil {
		return "", false
	}
	return ct.Creditor.Name, true
}

// TransactionCreditorBIC returns CdtrAgt.FinInstnId.BIC.
func (r *Reader) TransactionCreditorBIC(groupID, reference string) (string, bool) {
	ct := r.transaction(groupID, reference)
	if ct == nil {
		return "", false
	}
	return ct.CreditorAgent.FinancialInstitution.BIC, true
}

// TransactionCreditorIBAN returns CdtrAcct.Id.IBAN.
func (r *Reader) TransactionCreditorIBAN(groupID, reference string) (string, bool) {
	ct := r.transaction(groupID, reference)
	if ct == nil {
		return "", false
	}
	return ct.CreditorAccount.ID.IBAN, true
}

// TransactionCustomField returns a top-level field of a transaction record
// by name. It fails with ErrFieldNotFound when the transaction itself does
// not exist; a missing field on an existing transaction yields nil.
func (r *Reader) TransactionCustomField(groupID, reference, name string) (any, error) {
	ct := r.transaction(groupID, reference)
	if ct == nil {
		return nil, fmt.Errorf("transaction %q in group %q: %w", reference, groupID, ErrFieldNotFound)
	}
	value, _ := ct.Field(name)
	return value, nil
}

// =============================================================================
// LOOKUP HELPERS
// =============================================================================

func (r *Reader) group(id string) *PaymentInformation {
	for i := range r.doc.PaymentInformation {
		if r.doc.PaymentInformation[i].PaymentInfoID == id {
			return &r.doc.PaymentInformation[i]
		}
	}
	return nil
}

func (r *Reader) transaction(groupID, reference string) *CreditTransfer {
	g := r.group(groupID)
	if g == nil {
		return nil
	}
	for i := range g.CreditTransfers {
		if g.CreditTransfers[i].PaymentID.EndToEndID == reference {
			return &g.CreditTransfers[i]
		}
	}
	return nil
}
