// =============================================================================
// SEPA Payment Builder - Transformation Engine
// =============================================================================
//
// This module normalizes input values before they are validated and turned
// into transactions. Exports rarely carry payment data in the exact shape a
// payment file needs: IBANs are printed in blocks of four, BICs come in
// lower case, group ids are legacy codes.
//
// TRANSFORMATION TYPES:
//   - String manipulations (prepend, append, trim, case conversion, replace)
//   - Length handling (padding, truncation)
//   - Payment identifiers (remove_spaces for IBAN/BIC)
//   - Amounts (format_amount)
//   - Lookup table replacements and defaults
//
// Rules are configured per column (see config.TransformationRule) and are
// applied in order.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/sepa-payment-builder/internal/config"
	"github.com/ginjaninja78/sepa-payment-builder/internal/types"
	"github.com/ginjaninja78/sepa-payment-builder/internal/validation"
)

// actionFunc applies one action to a value. fields holds the whole row.
type actionFunc func(value string, action config.TransformationAction, fields map[string]string) (string, error)

var whitespace = regexp.MustCompile(`\s+`)

// actions lists every supported transformation type.
var actions = map[string]actionFunc{
	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	"prepend_string": func(value string, a config.TransformationAction, _ map[string]string) (string, error) {
		return a.Value + value, nil
	},
	"append_string": func(value string, a config.TransformationAction, _ map[string]string) (string, error) {
		return value + a.Value, nil
	},
	"trim": func(value string, _ config.TransformationAction, _ map[string]string) (string, error) {
		return strings.TrimSpace(value), nil
	},
	"uppercase": func(value string, _ config.TransformationAction, _ map[string]string) (string, error) {
		return strings.ToUpper(value), nil
	},
	"lowercase": func(value string, _ config.TransformationAction, _ map[string]string) (string, error) {
		return strings.ToLower(value), nil
	},
	"normalize_whitespace": func(value string, _ config.TransformationAction, _ map[string]string) (string, error) {
		return strings.TrimSpace(whitespace.ReplaceAllString(value, " ")), nil
	},
	"replace": func(value string, a config.TransformationAction, _ map[string]string) (string, error) {
		if a.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, a.Find, a.Value), nil
	},
	"regex_replace": func(value string, a config.TransformationAction, _ map[string]string) (string, error) {
		if a.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(a.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, a.Value), nil
	},

	// =========================================================================
	// LENGTH HANDLING
	// =========================================================================

	// pad_zeros_to_length: "123" with value "8" becomes "00000123".
	"pad_zeros_to_length": func(value string, a config.TransformationAction, _ map[string]string) (string, error) {
		length, err := strconv.Atoi(a.Value)
		if err != nil || length <= 0 {
			return "", fmt.Errorf("invalid length %q", a.Value)
		}
		return PadLeft(value, length, '0'), nil
	},
	// truncate: keeps at most value characters. End-to-end references are
	// limited to 35 characters by most banks.
	"truncate": func(value string, a config.TransformationAction, _ map[string]string) (string, error) {
		length, err := strconv.Atoi(a.Value)
		if err != nil || length <= 0 {
			return "", fmt.Errorf("invalid length %q", a.Value)
		}
		runes := []rune(value)
		if len(runes) > length {
			return string(runes[:length]), nil
		}
		return value, nil
	},

	// =========================================================================
	// PAYMENT IDENTIFIERS AND AMOUNTS
	// =========================================================================

	// remove_spaces: "DE89 3704 0044 0532 0130 00" becomes
	// "DE89370400440532013000".
	"remove_spaces": func(value string, _ config.TransformationAction, _ map[string]string) (string, error) {
		return whitespace.ReplaceAllString(value, ""), nil
	},
	// format_amount: "1219,5" with value "2" becomes "1219.50". Values that
	// are not amounts are left for validation to report.
	"format_amount": func(value string, a config.TransformationAction, _ map[string]string) (string, error) {
		places := 2
		if a.Value != "" {
			p, err := strconv.Atoi(a.Value)
			if err != nil || p < 0 {
				return "", fmt.Errorf("invalid decimal places %q", a.Value)
			}
			places = p
		}
		amount, err := validation.ParseAmount(value)
		if err != nil {
			return value, nil
		}
		return amount.StringFixed(int32(places)), nil
	},

	// =========================================================================
	// LOOKUPS AND DEFAULTS
	// =========================================================================

	"lookup": func(value string, a config.TransformationAction, _ map[string]string) (string, error) {
		if replacement, ok := a.LookupTable[value]; ok {
			return replacement, nil
		}
		return value, nil
	},
	"lookup_with_default": func(value string, a config.TransformationAction, _ map[string]string) (string, error) {
		if replacement, ok := a.LookupTable[value]; ok {
			return replacement, nil
		}
		return a.Value, nil
	},
	"if_empty_use_default": func(value string, a config.TransformationAction, _ map[string]string) (string, error) {
		if strings.TrimSpace(value) == "" {
			return a.Value, nil
		}
		return value, nil
	},
	"if_empty_use_field": func(value string, a config.TransformationAction, fields map[string]string) (string, error) {
		if strings.TrimSpace(value) == "" {
			return fields[a.Value], nil
		}
		return value, nil
	},
}

// SupportedActions returns the supported transformation types, sorted.
func SupportedActions() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies the configured transformation rules to input rows.
type Transformer struct {
	rules []config.TransformationRule
}

// NewTransformer creates a Transformer. It fails when a rule uses an
// unsupported transformation type, so a bad configuration is reported
// before any file is touched.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	for _, rule := range rules {
		for _, action := range rule.Actions {
			if _, ok := actions[action.Type]; !ok {
				return nil, fmt.Errorf("column %s: unknown transformation type: %s", rule.Column, action.Type)
			}
		}
	}
	return &Transformer{rules: rules}, nil
}

// TransformRow applies the rules to a row in place, in rule order. Rules for
// columns the row does not have are skipped.
func (t *Transformer) TransformRow(row types.Row) error {
	for _, rule := range t.rules {
		value, ok := row.Fields[rule.Column]
		if !ok {
			continue
		}
		for _, action := range rule.Actions {
			var err error
			value, err = actions[action.Type](value, action, row.Fields)
			if err != nil {
				return fmt.Errorf("row %d, column '%s': transformation '%s' failed: %w", row.Number, rule.Column, action.Type, err)
			}
		}
		row.Fields[rule.Column] = value
	}
	return nil
}

// TransformTable applies the rules to every row of a table.
func (t *Transformer) TransformTable(table *types.Table) error {
	for _, row := range table.Rows {
		if err := t.TransformRow(row); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads a string with a character on the left to reach the target length.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
