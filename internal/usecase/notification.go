package usecase

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io"
	texttemplate "text/template"

	"github.com/pkg/errors"

	"github.com/donatale/donatale"
	"github.com/donatale/donatale/internal/domain"
)

type emailData struct {
	SiteName     string
	ItemTitle    string
	DonorName    string
	DonorEmail   string
	DonatedBy    string
	DonationCode string
	EventID      string
}

const donorHTML = `<h1>Grazie per la tua Donazione!</h1>
<p>Ciao {{.DonorName}},</p>
<p>Abbiamo registrato la tua intenzione di donare per l'oggetto: <strong>{{.ItemTitle}}</strong>.</p>
<p>Il tuo <strong>Codice Donazione Univoco</strong> è: <strong style="font-size: 1.5em; color: #f59e0b;">{{.DonationCode}}</strong></p>
<p>Ricorda di includere questo codice nella causale o nel commento del pagamento quando effettui la donazione tramite PayPal, Satispay o bonifico bancario.</p>
<p>Ti contatteremo non appena avremo verificato il pagamento e aggiornato lo stato del dono.</p>
<p>Grazie di cuore per il tuo supporto!</p>
<p>Il team di {{.SiteName}}</p>
`

const donorText = `Grazie per la tua Donazione!

Ciao {{.DonorName}},
abbiamo registrato la tua intenzione di donare per l'oggetto: {{.ItemTitle}}.
Il tuo Codice Donazione Univoco è: {{.DonationCode}}
Ricorda di includere questo codice nella causale o nel commento del pagamento.
Ti contatteremo non appena avremo verificato il pagamento e aggiornato lo stato del dono.

Il team di {{.SiteName}}
`

const adminHTML = `<h1>Nuova Donazione Ricevuta!</h1>
<p>È stata effettuata una nuova donazione per l'oggetto: <strong>{{.ItemTitle}}</strong>.</p>
<p><strong>Codice Donazione:</strong> {{.DonationCode}}</p>
<p><strong>Donato da:</strong> {{.DonatedBy}}</p>
<p><strong>Nome del Donatore:</strong> {{.DonorName}}</p>
<p><strong>Email del Donatore:</strong> {{.DonorEmail}}</p>
<p><strong>ID Evento Donazione:</strong> {{.EventID}}</p>
<p>Si prega di verificare il pagamento e aggiornare lo stato dell'oggetto nel content store.</p>
`

const adminText = `Nuova Donazione Ricevuta!

Oggetto: {{.ItemTitle}}
Codice Donazione: {{.DonationCode}}
Donato da: {{.DonatedBy}}
Nome del Donatore: {{.DonorName}}
Email del Donatore: {{.DonorEmail}}
ID Evento Donazione: {{.EventID}}
`

var (
	donorHTMLTmpl = htmltemplate.Must(htmltemplate.New("donor.html").Parse(donorHTML))
	donorTextTmpl = texttemplate.Must(texttemplate.New("donor.txt").Parse(donorText))
	adminHTMLTmpl = htmltemplate.Must(htmltemplate.New("admin.html").Parse(adminHTML))
	adminTextTmpl = texttemplate.Must(texttemplate.New("admin.txt").Parse(adminText))
)

type templateExecutor interface {
	Execute(wr io.Writer, data any) error
}

func render(html, text templateExecutor, data emailData) (string, string, error) {
	var htmlBuf, textBuf bytes.Buffer
	if err := html.Execute(&htmlBuf, data); err != nil {
		return "", "", errors.Wrap(err, "render html body")
	}
	if err := text.Execute(&textBuf, data); err != nil {
		return "", "", errors.Wrap(err, "render text body")
	}
	return htmlBuf.String(), textBuf.String(), nil
}

func newEmailData(config domain.Config, req donatale.ReservationRequest, item domain.DonationItem, eventID string) emailData {
	return emailData{
		SiteName:     config.SiteName,
		ItemTitle:    item.Title,
		DonorName:    req.DonorName,
		DonorEmail:   req.DonorEmail,
		DonatedBy:    req.DonatedBy,
		DonationCode: req.DonationCode,
		EventID:      eventID,
	}
}

func composeEmail(to, subject string, html, text templateExecutor, config domain.Config, data emailData) (domain.Email, error) {
	htmlBody, textBody, err := render(html, text, data)
	if err != nil {
		return domain.Email{To: to, Subject: subject}, err
	}
	return domain.Email{
		To:       to,
		Subject:  subject,
		HTML:     htmlBody,
		Text:     textBody,
		FromName: config.SiteName,
	}, nil
}

func donorConfirmation(config domain.Config, req donatale.ReservationRequest, item domain.DonationItem) (domain.Email, error) {
	subject := fmt.Sprintf("Conferma della tua donazione a %s per %s (#%s)", config.SiteName, item.Title, req.DonationCode)
	return composeEmail(req.DonorEmail, subject, donorHTMLTmpl, donorTextTmpl, config, newEmailData(config, req, item, ""))
}

func adminNotification(config domain.Config, req donatale.ReservationRequest, item domain.DonationItem, eventID string) (domain.Email, error) {
	subject := fmt.Sprintf("Nuova Donazione: %s (#%s)", item.Title, req.DonationCode)
	return composeEmail(config.AdminEmail, subject, adminHTMLTmpl, adminTextTmpl, config, newEmailData(config, req, item, eventID))
}
