package admin

import (
	"bytes"
	"html/template"
	"time"

	"github.com/dmitrymomot/resumekit/pkg/email"
	"github.com/dmitrymomot/resumekit/pkg/entitlement"
)

var notificationTmpl = template.Must(template.New("notification").Parse(`<p>{{.Subject}}.</p>
{{if .Subscribed}}<p>Plan: {{.Plan}}{{if .End}}, active until {{.End}}{{end}}.</p>
{{else}}<p>Your account is now on the free tier.</p>
{{end}}<p>Questions? Reply to this email.</p>`))

type notificationData struct {
	Subject    string
	Subscribed bool
	Plan       string
	End        string
}

func renderNotification(acc entitlement.Account, subject string) (email.Message, error) {
	data := notificationData{
		Subject:    subject,
		Subscribed: acc.Facts.IsSubscribed,
		Plan:       acc.Facts.SubscriptionPlan,
	}
	if acc.Facts.SubscriptionEndDate != nil {
		data.End = acc.Facts.SubscriptionEndDate.UTC().Format(time.DateOnly)
	}

	var buf bytes.Buffer
	if err := notificationTmpl.Execute(&buf, data); err != nil {
		return email.Message{}, err
	}
	return email.Message{
		To:       acc.Email,
		Subject:  subject,
		HTMLBody: buf.String(),
		Tag:      "subscription-admin",
	}, nil
}
