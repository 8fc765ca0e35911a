package mapper

import "github.com/yolwise/leadscore-cli/internal/turkish"

// Normalize folds a header or cell for keyword matching: trimmed,
// Turkish-lowercased, dotless ı mapped to i. Plain ASCII lowering
// corrupts the İ/i pair Turkish headers like "ŞEHİR" depend on, while
// strict Turkish lowering corrupts caps English like "INDUSTRY";
// turkish.Fold handles both.
func Normalize(s string) string {
	return turkish.Fold(s)
}
