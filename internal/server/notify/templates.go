package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const brand = "SCS"

// Email is a rendered message ready for a Sender.
type Email struct {
	Subject string
	HTML    string
}

type templateData struct {
	Brand     string
	Title     string
	FirstName string
	Code      string
	Minutes   int
	URL       string
	Year      int
}

var layout = template.Must(template.New("layout").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;padding:0;background:#f8fafc;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background:#f8fafc;padding:24px 0">
    <tr><td align="center">
      <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="max-width:600px;background:#ffffff;border-radius:12px;overflow:hidden">
        <tr><td style="padding:20px 24px;background:#2563eb;color:#fff;font-family:Segoe UI,Roboto,Arial,sans-serif;font-size:20px;font-weight:600">{{.Brand}}</td></tr>
        <tr><td style="padding:24px;font-family:Segoe UI,Roboto,Arial,sans-serif;color:#111827;font-size:16px;line-height:1.6">
          {{template "content" .}}
          <hr style="border:none;border-top:1px solid #e5e7eb;margin:24px 0"/>
          <p style="color:#6b7280;font-size:13px;margin:0">If you did not request this, you can ignore this email.</p>
        </td></tr>
        <tr><td style="padding:16px 24px;background:#f1f5f9;color:#6b7280;font-family:Segoe UI,Roboto,Arial,sans-serif;font-size:12px">&copy; {{.Year}} {{.Brand}}. All rights reserved.</td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>
{{define "greeting"}}<p>Hello{{if .FirstName}} {{.FirstName}}{{end}},</p>{{end}}
{{define "code"}}<div style="margin:16px 0;padding:14px 18px;border:1px dashed #2563eb;border-radius:10px;display:inline-block;font-size:24px;font-weight:700;letter-spacing:2px">{{.Code}}</div>
<p style="color:#6b7280;font-size:14px;margin-top:8px">The code expires in {{.Minutes}} minutes.</p>{{end}}
{{define "button"}}<p style="margin:16px 0"><a href="{{.URL}}" style="display:inline-block;background:#2563eb;color:#fff;text-decoration:none;padding:12px 18px;border-radius:8px;font-weight:600">{{.Title}}</a></p>
<p style="color:#6b7280;font-size:14px;margin-top:16px">Or copy this link into your browser:<br><span style="word-break:break-all">{{.URL}}</span></p>{{end}}
`))

var (
	confirmationCodeTmpl = mustContent(`<h1 style="margin:0 0 8px;font-size:22px">Confirmation code</h1>
{{template "greeting" .}}<p>Use the code below to confirm your email address:</p>
{{template "code" .}}`)

	confirmationLinkAndCodeTmpl = mustContent(`<h1 style="margin:0 0 8px;font-size:22px">Confirm your email</h1>
{{template "greeting" .}}<p>You can confirm your email by pressing the button:</p>
{{template "button" .}}<p>Or by entering this code in the app:</p>
{{template "code" .}}`)

	resetCodeTmpl = mustContent(`<h1 style="margin:0 0 8px;font-size:22px">Password reset code</h1>
{{template "greeting" .}}<p>Use the code below to reset your password:</p>
{{template "code" .}}`)

	resetLinkAndCodeTmpl = mustContent(`<h1 style="margin:0 0 8px;font-size:22px">Reset your password</h1>
{{template "greeting" .}}<p>You can reset your password by pressing the button:</p>
{{template "button" .}}<p>Or by entering this code in the app:</p>
{{template "code" .}}`)
)

func mustContent(body string) *template.Template {
	t := template.Must(layout.Clone())
	return template.Must(t.New("content").Parse(body))
}

func render(t *template.Template, subject string, data templateData) (Email, error) {
	data.Brand = brand
	data.Title = subject
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return Email{}, fmt.Errorf("render %q: %w", subject, err)
	}
	return Email{Subject: subject, HTML: buf.String()}, nil
}

func EmailConfirmationCode(firstName, code string, minutes int) (Email, error) {
	return render(confirmationCodeTmpl, "Email confirmation code",
		templateData{FirstName: firstName, Code: code, Minutes: minutes})
}

func EmailConfirmationLinkAndCode(firstName, url, code string, minutes int) (Email, error) {
	return render(confirmationLinkAndCodeTmpl, "Confirm your email",
		templateData{FirstName: firstName, URL: url, Code: code, Minutes: minutes})
}

func PasswordResetCode(firstName, code string, minutes int) (Email, error) {
	return render(resetCodeTmpl, "Password reset code",
		templateData{FirstName: firstName, Code: code, Minutes: minutes})
}

func PasswordResetLinkAndCode(firstName, url, code string, minutes int) (Email, error) {
	return render(resetLinkAndCodeTmpl, "Reset your password",
		templateData{FirstName: firstName, URL: url, Code: code, Minutes: minutes})
}
