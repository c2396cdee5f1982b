// =============================================================================
// SEPA Payment Builder - XML Writer Module
// =============================================================================
//
// This module renders an emitted payment document as ISO 20022 XML for
// channels that do not accept the JSON form. The element names are the same
// abbreviations the JSON document uses.
//
// XML STRUCTURE:
//
//   <Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.001.001.03">
//     <CstmrCdtTrfInitn>
//       <GrpHdr>
//         <MsgId>PAY-2026-03</MsgId>
//         <CreDtTm>2026-03-14T09:26:53.589Z</CreDtTm>
//         <NbOfTxs>2</NbOfTxs>
//         <CtrlSum>30.25</CtrlSum>
//         <Grpg>MIXD</Grpg>
//         <InitgPty><Nm>ACME</Nm></InitgPty>
//       </GrpHdr>
//       <PmtInf>                          <!-- One per transaction group -->
//         <PmtInfId>EUR-MAIN</PmtInfId>
//         ...
//         <CdtTrfTxInf>                   <!-- One per transaction -->
//           <PmtId><EndToEndId>T1</EndToEndId></PmtId>
//           <Amt><InstdAmt Ccy="EUR">10.25</InstdAmt></Amt>
//           ...
//           <transactionId>tx-1</transactionId>  <!-- Custom fields, sorted -->
//         </CdtTrfTxInf>
//       </PmtInf>
//     </CstmrCdtTrfInitn>
//   </Document>
//
// CUSTOM FIELDS:
//   Custom fields follow the fixed elements of a transaction in name order.
//   Names that collide with a fixed element or are not valid XML names are
//   left out. Maps become nested elements, lists become repeated elements.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"

	"github.com/ginjaninja78/sepa-payment-builder/internal/sepa"
	"github.com/shopspring/decimal"
)

// Namespace is the pain.001 customer credit transfer namespace.
const Namespace = "urn:iso:std:iso:20022:tech:xsd:pain.001.001.03"

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// Namespace is written as the xmlns attribute of the root element.
	// Default: Namespace. Empty omits the attribute.
	Namespace string

	// IncludeCustomFields renders the custom fields of each transaction.
	// Default: true
	IncludeCustomFields bool
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		Namespace:             Namespace,
		IncludeCustomFields:   true,
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders a payment document with the default options.
//
// PARAMETERS:
//   - doc: A document emitted by sepa.Payment.GenerateDocument or decoded
//     from its JSON form.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if doc is nil.
func Generate(doc *sepa.Document) ([]byte, error) {
	return GenerateWithOptions(doc, DefaultGenerateOptions())
}

// GenerateWithOptions renders a payment document with custom options.
func GenerateWithOptions(doc *sepa.Document, options GenerateOptions) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("failed to generate XML: no document")
	}

	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	root := XMLElement{XMLName: xml.Name{Local: "Document"}}
	if options.Namespace != "" {
		root.Attributes = append(root.Attributes, xml.Attr{
			Name:  xml.Name{Local: "xmlns"},
			Value: options.Namespace,
		})
	}
	root.Children = []XMLElement{buildInitiation(doc, options)}

	writeElement(&buffer, root, options.Indent, 0)

	return buffer.Bytes(), nil
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// buildInitiation constructs the CstmrCdtTrfInitn element.
func buildInitiation(doc *sepa.Document, options GenerateOptions) XMLElement {
	header := doc.GroupHeader

	element := createParentElement("CstmrCdtTrfInitn",
		createParentElement("GrpHdr",
			createSimpleElement("MsgId", header.MessageID),
			createSimpleElement("CreDtTm", header.CreationDateTime),
			createSimpleElement("NbOfTxs", fmt.Sprintf("%d", header.NumberOfTransactions)),
			createSimpleElement("CtrlSum", formatAmount(header.ControlSum)),
			createSimpleElement("Grpg", header.Grouping),
			createParentElement("InitgPty", createSimpleElement("Nm", header.InitiatingParty.Name)),
		),
	)

	for _, info := range doc.PaymentInformation {
		element.Children = append(element.Children, buildPaymentInformation(info, options))
	}

	return element
}

// buildPaymentInformation constructs a PmtInf element.
//
// STRUCTURE:
//   <PmtInf>
//     <PmtInfId>EUR-MAIN</PmtInfId>
//     <ReqdExctnDt>2026-03-14</ReqdExctnDt>
//     <Dbtr><Nm>ACME Ops</Nm></Dbtr>
//     <DbtrAcct><Id><IBAN>DE89...</IBAN></Id><Ccy>EUR</Ccy></DbtrAcct>
//     <DbtrAgt><FinInstnId><BIC>DEUTDEFF</BIC></FinInstnId></DbtrAgt>
//     <CdtTrfTxInf>...</CdtTrfTxInf>
//   </PmtInf>
func buildPaymentInformation(info sepa.PaymentInformation, options GenerateOptions) XMLElement {
	element := createParentElement("PmtInf",
		createSimpleElement("PmtInfId", info.PaymentInfoID),
		createSimpleElement("ReqdExctnDt", info.RequestedExecutionDate),
		createParentElement("Dbtr", createSimpleElement("Nm", info.Debtor.Name)),
		buildAccount("DbtrAcct", info.DebtorAccount),
		buildAgent("DbtrAgt", info.DebtorAgent),
	)

	for _, ct := range info.CreditTransfers {
		element.Children = append(element.Children, buildCreditTransfer(ct, options))
	}

	return element
}

// buildCreditTransfer constructs a CdtTrfTxInf element.
func buildCreditTransfer(ct sepa.CreditTransfer, options GenerateOptions) XMLElement {
	amount := createSimpleElement("InstdAmt", formatAmount(ct.Amount.InstructedAmount.Value))
	amount.Attributes = []xml.Attr{{
		Name:  xml.Name{Local: "Ccy"},
		Value: ct.Amount.InstructedAmount.Currency,
	}}

	element := createParentElement("CdtTrfTxInf",
		createParentElement("PmtId", createSimpleElement("EndToEndId", ct.PaymentID.EndToEndID)),
		createParentElement("Amt", amount),
		buildAgent("CdtrAgt", ct.CreditorAgent),
		createParentElement("Cdtr", createSimpleElement("Nm", ct.Creditor.Name)),
		buildAccount("CdtrAcct", ct.CreditorAccount),
	)

	if options.IncludeCustomFields {
		element.Children = append(element.Children, buildCustomFields(ct)...)
	}

	return element
}

func buildAgent(name string, agent sepa.Agent) XMLElement {
	return createParentElement(name,
		createParentElement("FinInstnId", createSimpleElement("BIC", agent.FinancialInstitution.BIC)))
}

func buildAccount(name string, account sepa.Account) XMLElement {
	element := createParentElement(name,
		createParentElement("Id", createSimpleElement("IBAN", account.ID.IBAN)))
	if account.Currency != "" {
		element.Children = append(element.Children, createSimpleElement("Ccy", account.Currency))
	}
	return element
}

// fixedTransferElements are the element names owned by the fixed fields of
// a transaction.
var fixedTransferElements = map[string]bool{
	"PmtId":    true,
	"Amt":      true,
	"CdtrAgt":  true,
	"Cdtr":     true,
	"CdtrAcct": true,
}

// buildCustomFields renders the custom fields of a transaction, sorted by name.
func buildCustomFields(ct sepa.CreditTransfer) []XMLElement {
	names := make([]string, 0, len(ct.CustomFields))
	for name := range ct.CustomFields {
		if fixedTransferElements[name] || !isValidName(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var elements []XMLElement
	for _, name := range names {
		elements = append(elements, buildValue(name, ct.CustomFields[name])...)
	}
	return elements
}

// buildValue renders an arbitrary value decoded from JSON or set by the
// caller. nil renders nothing.
func buildValue(name string, value any) []XMLElement {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			if isValidName(key) {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)

		element := XMLElement{XMLName: xml.Name{Local: name}}
		for _, key := range keys {
			element.Children = append(element.Children, buildValue(key, v[key])...)
		}
		return []XMLElement{element}
	case []any:
		var elements []XMLElement
		for _, item := range v {
			elements = append(elements, buildValue(name, item)...)
		}
		return elements
	case []string:
		elements := make([]XMLElement, 0, len(v))
		for _, item := range v {
			elements = append(elements, createSimpleElement(name, item))
		}
		return elements
	case float64:
		return []XMLElement{createSimpleElement(name, decimal.NewFromFloat(v).String())}
	default:
		return []XMLElement{createSimpleElement(name, fmt.Sprint(v))}
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// createSimpleElement creates a simple XML element with a text value.
func createSimpleElement(name, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: name},
		Value:   value,
	}
}

// createParentElement creates an element holding the given children.
func createParentElement(name string, children ...XMLElement) XMLElement {
	return XMLElement{
		XMLName:  xml.Name{Local: name},
		Children: children,
	}
}

// formatAmount renders an amount without exponent and without trailing
// zeros beyond the first two decimals.
func formatAmount(value float64) string {
	d := decimal.NewFromFloat(value)
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}

var xmlName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

// isValidName reports whether name can be used as an element name.
func isValidName(name string) bool {
	return xmlName.MatchString(name)
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	// Write indentation.
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	// Write opening tag.
	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)

	// Write attributes.
	for _, attr := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", attr.Name.Local, escapeXML(attr.Value)))
	}

	if len(element.Children) == 0 && element.Value == "" {
		// Self-closing tag.
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")

		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}

		// Write indentation for closing tag.
		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	// Write closing tag.
	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer
	if err := xml.EscapeText(&buffer, []byte(s)); err != nil {
		return s
	}
	return buffer.String()
}
