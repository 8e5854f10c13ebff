package email

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/model"
)

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
	Color    string
	Size     string
}

// Subtotal is price times quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderConfirmation is everything the confirmation mail shows
type OrderConfirmation struct {
	OrderNumber  string
	CustomerName string
	Items        []OrderItem
	Total        decimal.Decimal
	Shipping     model.Address
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"money": FormatMoney,
}).Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #1f2937; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Thank you for your order</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Hi {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}}, your payment was received and your order is being prepared.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">{{.OrderNumber}}</p>
		</div>

		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left;">Item</th>
					<th style="padding: 12px; text-align: center;">Qty</th>
					<th style="padding: 12px; text-align: right;">Price</th>
					<th style="padding: 12px; text-align: right;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
			{{- range .Items}}
				<tr>
					<td style="padding: 12px; border-bottom: 1px solid #eee;">{{.Name}}{{if or .Color .Size}} <span style="color: #999;">({{.Color}}{{if and .Color .Size}} / {{end}}{{.Size}})</span>{{end}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">${{money .Price}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">${{money .Subtotal}}</td>
				</tr>
			{{- end}}
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; margin-left: 10px;">${{money .Total}}</span>
		</div>

		<h2 style="font-size: 16px; margin-top: 30px;">Shipping to</h2>
		<p style="margin: 0;">
			{{.Shipping.Name}}<br>
			{{.Shipping.Line1}}<br>
			{{if .Shipping.Line2}}{{.Shipping.Line2}}<br>{{end}}
			{{.Shipping.City}}, {{.Shipping.State}} {{.Shipping.PostalCode}}<br>
			{{.Shipping.Country}}
		</p>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This message was sent automatically. Reply to this address if you have any questions.
		</p>
	</div>
</body>
</html>`))

// BuildOrderConfirmationBody renders the HTML body for the confirmation mail
func BuildOrderConfirmationBody(c OrderConfirmation) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatMoney formats an amount with two decimals and comma separators
func FormatMoney(d decimal.Decimal) string {
	str := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}
	whole, frac, _ := strings.Cut(str, ".")
	if len(whole) <= 3 {
		return sign + whole + "." + frac
	}

	var result strings.Builder
	remainder := len(whole) % 3
	if remainder > 0 {
		result.WriteString(whole[:remainder])
	}
	for i := remainder; i < len(whole); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(whole[i : i+3])
	}

	return sign + result.String() + "." + frac
}
