package emails

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

// Navy #1B2841 headings, orange #F4812C highlights.
var layoutTmpl = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>TruBid</title>
  <style>
    body { margin: 0; padding: 0; width: 100% !important; background-color: #F3F4F6; font-family: Arial, sans-serif; line-height: 1.6; color: #333333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; background-color: #FFFFFF; border-radius: 8px; }
    h1, h2 { color: #1B2841; }
    h2 { font-size: 18px; }
    .highlight { color: #F4812C; font-weight: bold; }
    .footer { margin-top: 30px; font-size: 12px; color: #666666; text-align: center; border-top: 1px solid #eee; padding-top: 20px; }
  </style>
</head>
<body>
  <table role="presentation" width="100%" border="0" cellspacing="0" cellpadding="0">
    <tr>
      <td align="center" style="padding: 40px 0;">
        <div class="container">
          {{.Content}}
          <div class="footer">
            <p>Thank you for bidding with TruBid!</p>
            <p>&copy; {{.Year}} TruBid. All rights reserved.</p>
          </div>
        </div>
      </td>
    </tr>
  </table>
</body>
</html>`))

// EmailLayout wraps trusted template content in the branded shell. Stored templates keep their
// {{placeholders}} because content is inserted verbatim.
func EmailLayout(contentHTML string) string {
	var buf bytes.Buffer
	err := layoutTmpl.Execute(&buf, struct {
		Content template.HTML
		Year    int
	}{template.HTML(contentHTML), time.Now().UTC().Year()})
	if err != nil {
		return contentHTML
	}
	return buf.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// EscapeHTML escapes user-supplied values (titles, emails, payment ids) before they are placed
// in HTML.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
