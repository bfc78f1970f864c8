package personalize

import (
	"strings"

	"github.com/tablereach/rengage-backend/internal/model"
)

// DefaultTemplate is the literal fallback used when no template is
// supplied and text generation is unavailable.
const DefaultTemplate = "Hi {name}, we miss you at {restaurant}! {offer} Use code {code} on your next order."

const ellipsis = "..."

// Vars are the substitution values for one rendered message.
type Vars struct {
	Name       string
	Restaurant string
	Offer      string
	Code       string
}

// Personalize renders the template for one customer and enforces the
// transport limit. Truncation priority: the offer code is never cut, the
// free-form offer text is cut first, the customer name second. A message
// that needed cutting is marked Truncated and carries an ellipsis.
func Personalize(customer model.CustomerRecord, template string, vars Vars) model.PersonalizedMessage {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	vars.Name = customer.Name

	body := render(template, vars)
	truncated := false

	if overflow := runeLen(body) - model.TransportLimit; overflow > 0 {
		vars.Offer, truncated = shrink(vars.Offer, overflow)
		body = render(template, vars)
	}
	if overflow := runeLen(body) - model.TransportLimit; overflow > 0 {
		var cut bool
		vars.Name, cut = shrink(vars.Name, overflow)
		truncated = truncated || cut
		body = render(template, vars)
	}
	if runeLen(body) > model.TransportLimit {
		body = hardTruncate(body, vars.Code)
		truncated = true
	}

	return model.PersonalizedMessage{
		Customer:  customer,
		Body:      body,
		CharCount: runeLen(body),
		Truncated: truncated,
	}
}

func render(template string, vars Vars) string {
	body := template
	body = strings.ReplaceAll(body, "{name}", vars.Name)
	body = strings.ReplaceAll(body, "{restaurant}", vars.Restaurant)
	body = strings.ReplaceAll(body, "{offer}", vars.Offer)
	body = strings.ReplaceAll(body, "{code}", vars.Code)
	return body
}

// shrink removes at least need runes from s. If anything remains after the
// cut it ends in an ellipsis; if the field cannot absorb the overflow it is
// dropped entirely. Returns the new value and whether a cut happened.
func shrink(s string, need int) (string, bool) {
	runes := []rune(s)
	if len(runes) == 0 {
		return s, false
	}

	keep := len(runes) - need - len(ellipsis)
	if keep <= 0 {
		return "", true
	}
	return string(runes[:keep]) + ellipsis, true
}

// hardTruncate is the last resort for templates whose fixed text alone
// overflows the limit. The offer code must survive even here: if the plain
// cut loses it, the code is re-appended inside the budget.
func hardTruncate(body, code string) string {
	cut := truncateRunes(body, model.TransportLimit-len(ellipsis)) + ellipsis
	if code == "" || strings.Contains(cut, code) {
		return cut
	}

	keep := model.TransportLimit - len(ellipsis) - runeLen(code)
	if keep < 0 {
		keep = 0
	}
	return truncateRunes(body, keep) + ellipsis + code
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func runeLen(s string) int {
	return len([]rune(s))
}
