// Package translate formats user-visible messages for the preferred locale.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

// DefaultLocale is used when the host reports no locale preference.
const DefaultLocale = "en-US"

var printer = sync.OnceValue(func() *message.Printer {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("um: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{DefaultLocale}
	}

	return message.NewPrinter(message.MatchLanguage(locales...))
})

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer().Sprintf(key, args...)
}
