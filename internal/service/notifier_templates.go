package service

import (
	"bytes"
	"fmt"
	"html/template"
)

const alertSubject = "Suspicious sign in detected"

type alertEmailData struct {
	Name             string
	Email            string
	Username         string
	ClientID         string
	PreviousLocation string
	CurrentLocation  string
	IPAddress        string
	Time             string
}

func buildAlertText(data alertEmailData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Hello, %s\n\n", data.Name))
	buf.WriteString("We noticed a sign in to your account from a location that differs from your previous sign in.\n\n")
	buf.WriteString(fmt.Sprintf("Email: %s\n", data.Email))
	buf.WriteString(fmt.Sprintf("Username: %s\n", data.Username))
	buf.WriteString(fmt.Sprintf("Client: %s\n", data.ClientID))
	buf.WriteString(fmt.Sprintf("Previous location: %s\n", data.PreviousLocation))
	buf.WriteString(fmt.Sprintf("New location: %s\n", data.CurrentLocation))
	buf.WriteString(fmt.Sprintf("IP address: %s\n", data.IPAddress))
	buf.WriteString(fmt.Sprintf("Time: %s\n\n", data.Time))
	buf.WriteString("If this was you, no action is needed. Otherwise change your password right away.\n")
	return buf.String()
}

var alertHTML = template.Must(template.New("suspicious_login").Parse(alertHTMLTemplate))

func buildAlertHTML(data alertEmailData) (string, error) {
	var buf bytes.Buffer
	if err := alertHTML.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const alertHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Suspicious sign in detected</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 16px; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 20px; font-weight: 600; color: #b91c1c;">Suspicious sign in detected</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; font-size: 15px; color: #374151; line-height: 1.5;">
              <p style="margin: 0 0 16px;">Hello, {{.Name}}</p>
              <p style="margin: 0 0 16px;">We noticed a sign in to your account from a location that differs from your previous sign in.</p>
              <table role="presentation" cellspacing="0" cellpadding="4" style="font-size: 14px; color: #1f2937;">
                <tr><td style="color: #6b7280;">Previous location</td><td>{{.PreviousLocation}}</td></tr>
                <tr><td style="color: #6b7280;">New location</td><td>{{.CurrentLocation}}</td></tr>
                <tr><td style="color: #6b7280;">IP address</td><td>{{.IPAddress}}</td></tr>
                <tr><td style="color: #6b7280;">Client</td><td>{{.ClientID}}</td></tr>
                <tr><td style="color: #6b7280;">Time</td><td>{{.Time}}</td></tr>
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding: 16px 32px 32px; font-size: 13px; color: #6b7280;">
              If this was you, no action is needed. Otherwise change your password right away.
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
