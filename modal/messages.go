package modal

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgRequiredFields = "required_fields"
	msgInvalidEmail   = "invalid_email"
	msgSuccess        = "success"
	msgRejected       = "rejected"
	reasonConflict    = "reason_conflict"
	reasonNotFound    = "reason_not_found"
	reasonGeneric     = "reason_generic"
	msgFailed         = "failed"
	labelBusy         = "label_busy"
	labelSubmit       = "label_submit"
)

var supported = []language.Tag{language.Italian, language.English}

var translations = map[language.Tag]map[string]string{
	language.Italian: {
		msgRequiredFields: "Per favore, compila tutti i campi obbligatori.",
		msgInvalidEmail:   "Per favore, inserisci un indirizzo email valido.",
		msgSuccess:        "Grazie per la tua donazione! Abbiamo registrato la tua intenzione e riceverai presto una email di conferma.",
		msgRejected:       "Errore nella donazione: %s",
		reasonConflict:    "Questo oggetto è già stato donato.",
		reasonNotFound:    "Oggetto non trovato.",
		reasonGeneric:     "Si è verificato un errore.",
		msgFailed:         "Si è verificato un errore inaspettato. Riprova più tardi.",
		labelBusy:         "Invio in corso...",
		labelSubmit:       "Dona ora",
	},
	language.English: {
		msgRequiredFields: "Please fill in all required fields.",
		msgInvalidEmail:   "Please enter a valid email address.",
		msgSuccess:        "Thank you for your donation! We have recorded your intent and you will soon receive a confirmation email.",
		msgRejected:       "Donation error: %s",
		reasonConflict:    "This item has already been donated.",
		reasonNotFound:    "Item not found.",
		reasonGeneric:     "Something went wrong.",
		msgFailed:         "An unexpected error occurred. Please try again later.",
		labelBusy:         "Sending...",
		labelSubmit:       "Donate now",
	},
}

var (
	messageCatalog = buildCatalog()
	matcher        = language.NewMatcher(supported)
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.Italian))
	for tag, entries := range translations {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Messages renders user facing strings in one language.
type Messages struct {
	tag     language.Tag
	printer *message.Printer
}

// NewMessages picks the best supported language for an Accept-Language style preference.
// Anything unmatched falls back to Italian.
func NewMessages(preference string) Messages {
	tag := language.Italian
	if prefs, _, err := language.ParseAcceptLanguage(preference); err == nil && len(prefs) > 0 {
		_, index, confidence := matcher.Match(prefs...)
		if confidence != language.No {
			tag = supported[index]
		}
	}
	return Messages{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(messageCatalog)),
	}
}

func (m Messages) Language() language.Tag {
	return m.tag
}

func (m Messages) get(key string, args ...any) string {
	return m.printer.Sprintf(key, args...)
}
