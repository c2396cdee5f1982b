// =============================================================================
// SEPA Payment Builder - Document Schema
// =============================================================================
//
// This file defines the emitted payment document. The JSON tags ARE the wire
// contract shared by the builder and the reader: downstream consumers parse
// the document by these exact dotted paths, so field names, nesting and the
// array-vs-scalar shape must never change.
//
// DOCUMENT LAYOUT:
//
//   GrpHdr.MsgId                      message reference
//   GrpHdr.CreDtTm                    creation timestamp (ISO-8601, UTC)
//   GrpHdr.NbOfTxs                    number of emitted transactions
//   GrpHdr.CtrlSum                    control sum (2 decimals)
//   GrpHdr.Grpg                       always "MIXD"
//   GrpHdr.InitgPty.Nm                debtor entity
//   PmtInf[].PmtInfId                 transaction group id
//   PmtInf[].ReqdExctnDt              execution date (YYYY-MM-DD)
//   PmtInf[].Dbtr.Nm                  debtor account name
//   PmtInf[].DbtrAgt.FinInstnId.BIC   debtor BIC
//   PmtInf[].DbtrAcct.Id.IBAN         debtor IBAN
//   PmtInf[].DbtrAcct.Ccy             group currency
//   PmtInf[].CdtTrfTxInf[]            transactions
//     PmtId.EndToEndId                transaction reference
//     Amt.InstdAmt.value              amount
//     Amt.InstdAmt.currency           currency
//     CdtrAgt.FinInstnId.BIC          creditor BIC
//     Cdtr.Nm                         creditor name
//     CdtrAcct.Id.IBAN                creditor IBAN
//     <custom field names>            merged at the same level
//
// =============================================================================

package sepa

import (
	"encoding/json"
	"fmt"
)

// Grouping is the constant value of GrpHdr.Grpg.
const Grouping = "MIXD"

// Document is an emitted payment instruction. Values returned by
// Payment.GenerateDocument share no mutable state with the builder.
type Document struct {
	GroupHeader        GroupHeader          `json:"GrpHdr"`
	PaymentInformation []PaymentInformation `json:"PmtInf"`
}

// GroupHeader is the message header.
type GroupHeader struct {
	MessageID            string  `json:"MsgId"`
	CreationDateTime     string  `json:"CreDtTm"`
	Grouping             string  `json:"Grpg"`
	InitiatingParty      Party   `json:"InitgPty"`
	NumberOfTransactions int     `json:"NbOfTxs"`
	ControlSum           float64 `json:"CtrlSum"`
}

// PaymentInformation is one emitted transaction group.
type PaymentInformation struct {
	PaymentInfoID          string           `json:"PmtInfId"`
	RequestedExecutionDate string           `json:"ReqdExctnDt"`
	Debtor                 Party            `json:"Dbtr"`
	DebtorAgent            Agent            `json:"DbtrAgt"`
	DebtorAccount          Account          `json:"DbtrAcct"`
	CreditTransfers        []CreditTransfer `json:"CdtTrfTxInf"`
}

// Party carries a name.
type Party struct {
	Name string `json:"Nm"`
}

// Agent is a financial institution identified by BIC.
type Agent struct {
	FinancialInstitution FinancialInstitution `json:"FinInstnId"`
}

// FinancialInstitution identifies a bank.
type FinancialInstitution struct {
	BIC string `json:"BIC"`
}

// Account is an IBAN account. Currency is only set on debtor accounts.
type Account struct {
	ID       AccountID `json:"Id"`
	Currency string    `json:"Ccy,omitempty"`
}

// AccountID holds the IBAN.
type AccountID struct {
	IBAN string `json:"IBAN"`
}

// PaymentID holds the end-to-end reference of a transaction.
type PaymentID struct {
	EndToEndID string `json:"EndToEndId"`
}

// Amount wraps the instructed amount.
type Amount struct {
	InstructedAmount InstructedAmount `json:"InstdAmt"`
}

// InstructedAmount is a value in a currency.
type InstructedAmount struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// =============================================================================
// CREDIT TRANSFER (TRANSACTION RECORD)
// =============================================================================

// CreditTransfer is one transaction record. The fixed fields are strongly
// typed; CustomFields holds arbitrary pass-through values that are merged at
// the top level of the record only when it is serialized. On a name
// collision the fixed field wins.
type CreditTransfer struct {
	PaymentID       PaymentID `json:"PmtId"`
	Amount          Amount    `json:"Amt"`
	CreditorAgent   Agent     `json:"CdtrAgt"`
	Creditor        Party     `json:"Cdtr"`
	CreditorAccount Account   `json:"CdtrAcct"`

	CustomFields map[string]any `json:"-"`
}

// creditTransferFields has the fixed layout of CreditTransfer without its
// JSON methods.
type creditTransferFields CreditTransfer

// fixedTransferKeys are the top-level keys owned by the fixed fields.
var fixedTransferKeys = map[string]bool{
	"PmtId":    true,
	"Amt":      true,
	"CdtrAgt":  true,
	"Cdtr":     true,
	"CdtrAcct": true,
}

// MarshalJSON merges the custom fields under the fixed fields.
func (t CreditTransfer) MarshalJSON() ([]byte, error) {
	fixed, err := json.Marshal(creditTransferFields(t))
	if err != nil {
		return nil, err
	}
	if len(t.CustomFields) == 0 {
		return fixed, nil
	}

	var fixedValues map[string]json.RawMessage
	if err := json.Unmarshal(fixed, &fixedValues); err != nil {
		return nil, err
	}

	merged := make(map[string]any, len(t.CustomFields)+len(fixedValues))
	for name, value := range t.CustomFields {
		merged[name] = value
	}
	for name, value := range fixedValues {
		merged[name] = value
	}

	return json.Marshal(merged)
}

// UnmarshalJSON splits a serialized record back into fixed and custom fields.
func (t *CreditTransfer) UnmarshalJSON(data []byte) error {
	var fixed creditTransferFields
	if err := json.Unmarshal(data, &fixed); err != nil {
		return fmt.Errorf("failed to decode transaction: %w", err)
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return fmt.Errorf("failed to decode transaction: %w", err)
	}

	for name, raw := range all {
		if fixedTransferKeys[name] {
			continue
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("failed to decode custom field %q: %w", name, err)
		}
		if fixed.CustomFields == nil {
			fixed.CustomFields = make(map[string]any)
		}
		fixed.CustomFields[name] = value
	}

	*t = CreditTransfer(fixed)
	return nil
}

// Field returns a top-level field of the serialized record by name, the way
// a consumer of the JSON document would see it: fixed fields first, then
// custom fields.
func (t CreditTransfer) Field(name string) (any, bool) {
	switch name {
	case "PmtId":
		return t.PaymentID, true
	case "Amt":
		return t.Amount, true
	case "CdtrAgt":
		return t.CreditorAgent, true
	case "Cdtr":
		return t.Creditor, true
	case "CdtrAcct":
		return t.CreditorAccount, true
	}
	value, ok := t.CustomFields[name]
	return value, ok
}
