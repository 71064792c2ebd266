package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type Kind string

const (
	KindVerification      Kind = "verification"
	KindNewReport         Kind = "new_report"
	KindNewQuotation      Kind = "new_quotation"
	KindQuotationAccepted Kind = "quotation_accepted"
)

// Data - поля, подставляемые в шаблоны писем. Незаполненные поля не выводятся.
type Data struct {
	Name            string
	ReportTitle     string
	Location        string
	Amount          string
	Duration        string
	ReasonForFault  string
	AppointmentDate string
	AppointmentTime string
	Link            string
}

type kindMeta struct {
	subject   string
	linkLabel string
}

var kinds = map[Kind]kindMeta{
	KindVerification:      {subject: "Confirm your email address", linkLabel: "Verify email"},
	KindNewReport:         {subject: "New vehicle report available", linkLabel: "View report"},
	KindNewQuotation:      {subject: "You received a new quotation", linkLabel: "Review quotation"},
	KindQuotationAccepted: {subject: "Your quotation was accepted", linkLabel: "Open report"},
}

type view struct {
	Data
	Title     string
	LinkLabel string
}

// Render возвращает тему и HTML-тело письма.
func Render(kind Kind, data Data) (subject, body string, err error) {
	meta, ok := kinds[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown email kind %q", kind)
	}

	name := string(kind) + ".html"
	tmpl, err := template.New("base.html").ParseFS(templateFS, "templates/base.html", "templates/"+name)
	if err != nil {
		return "", "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "email", view{Data: data, Title: meta.subject, LinkLabel: meta.linkLabel})
	if err != nil {
		return "", "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return meta.subject, buf.String(), nil
}
