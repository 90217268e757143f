// Handles all sorts of custom data validations happening in Wanna.

package validation

import (
	"strings"
	"sync"
	"unicode"

	"github.com/asaskevich/govalidator"
)

var once sync.Once

// This function registers custom validation tags to be used as annotations in struct.
// After registering and adding the annotation, govalidator.ValidateStruct will trigger the validation.
// Safe to call from several packages and tests, registration happens once.
func RegisterCustomValidations() {
	once.Do(func() {
		// This custom validation checks if there's any spaces in the input string.
		govalidator.TagMap["nospace"] = govalidator.Validator(func(str string) bool {
			return !strings.ContainsFunc(str, unicode.IsSpace)
		})
		// Rejects values made only of whitespace, e.g. a list name of "   ".
		govalidator.TagMap["notblank"] = govalidator.Validator(func(str string) bool {
			return strings.TrimSpace(str) != ""
		})
		// Identifiers are client supplied in a few places (listId, itemId, listItemId),
		// they end up inside redis keys so ':' and whitespace are not allowed.
		govalidator.TagMap["identifier"] = govalidator.Validator(func(str string) bool {
			return !strings.ContainsFunc(str, func(r rune) bool {
				return r == ':' || unicode.IsSpace(r) || !unicode.IsPrint(r)
			})
		})
	})
}
