package dataset

import "strings"

// Label is the binary class of an item.
type Label int

const (
	LabelReal   Label = 0
	LabelScreen Label = 1
)

// ClassName is the directory name used for the label in the split tree.
func (l Label) ClassName() string {
	if l == LabelScreen {
		return "screen"
	}
	return "real"
}

// Labels lists every label in class-index order.
var Labels = []Label{LabelReal, LabelScreen}

// LabelRule maps a file name to its label. It must be total and must depend
// only on the name, never on file contents.
type LabelRule func(name string) Label

// SubstringRule labels a name as match when it contains substr, ignoring
// case, and LabelReal otherwise.
func SubstringRule(substr string, match Label) LabelRule {
	needle := strings.ToLower(substr)
	return func(name string) Label {
		if strings.Contains(strings.ToLower(name), needle) {
			return match
		}
		return LabelReal
	}
}

// DefaultLabelRule follows the source dataset's naming scheme: files whose
// name contains "original" are photos of a screen.
var DefaultLabelRule = SubstringRule("original", LabelScreen)
