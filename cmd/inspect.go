// =============================================================================
// SEPA Payment Builder - Inspect Command
// =============================================================================
//
// This file defines the 'inspect' command, which prints the content of a
// generated JSON payment document through the document reader.
//
// COMMAND USAGE:
//   sepagen inspect <document.json> [--field transactionId]
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sepa-payment-builder/internal/sepa"
)

// customFields are printed for every transaction.
var customFields []string

var inspectCmd = &cobra.Command{
	Use:   "inspect <document.json>",
	Short: "Print the content of a generated payment document",
	Long: `The inspect command reads a payment document written in the JSON format and
prints its header, its transaction groups and their transactions.

Use --field to print custom transaction fields as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}

		reader, err := sepa.ParseDocument(data)
		if err != nil {
			return err
		}

		return printDocument(cmd.OutOrStdout(), reader, customFields)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringSliceVar(
		&customFields,
		"field",
		nil,
		"Custom transaction field to print (repeatable)",
	)
}

// printDocument writes a human-readable view of a payment document.
func printDocument(w io.Writer, r *sepa.Reader, fields []string) error {
	fmt.Fprintf(w, "Reference:        %s\n", r.Reference())
	fmt.Fprintf(w, "Created:          %s\n", r.CreatedAt())
	fmt.Fprintf(w, "Debtor entity:    %s\n", r.InitiatingParty())
	fmt.Fprintf(w, "Transactions:     %d\n", r.NumberOfTransactions())
	fmt.Fprintf(w, "Control sum:      %.2f\n", r.ControlSum())
	fmt.Fprintf(w, "Groups:           %d\n", r.CountTransactionGroups())

	for _, id := range r.TransactionGroupIDs() {
		currency, _ := r.Currency(id)
		name, _ := r.DebtorName(id)
		bic, _ := r.DebtorBIC(id)
		iban, _ := r.DebtorIBAN(id)

		fmt.Fprintf(w, "\n[%s] %s, %d transaction(s)\n", id, currency, r.CountTransactions(id))
		fmt.Fprintf(w, "  Debtor: %s, %s, %s\n", name, bic, iban)

		for _, ref := range r.TransactionReferences(id) {
			amount, _ := r.TransactionAmount(id, ref)
			txCurrency, _ := r.TransactionCurrency(id, ref)
			creditor, _ := r.TransactionCreditorName(id, ref)
			creditorBIC, _ := r.TransactionCreditorBIC(id, ref)
			creditorIBAN, _ := r.TransactionCreditorIBAN(id, ref)

			fmt.Fprintf(w, "  - %s: %v %s to %s (%s, %s)\n", ref, amount, txCurrency, creditor, creditorBIC, creditorIBAN)

			for _, field := range fields {
				value, err := r.TransactionCustomField(id, ref, field)
				if err != nil {
					return err
				}
				if value != nil {
					fmt.Fprintf(w, "      %s: %v\n", field, value)
				}
			}
		}
	}

	return nil
}
