package notifications

import (
	"bytes"
	htmltemplate "html/template"
	"io"
	"text/template"

	"github.com/wallcraft/storefront-backend/internal/pricing"
)

var funcs = map[string]any{
	"money": func(minor int64) string { return pricing.FromMinor(minor).String() },
}

var customerConfirmation = htmltemplate.Must(htmltemplate.New("customer").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Thank you for your order, {{.Order.CustomerName}}!</h2>
  <p>Your order <strong>{{.Order.OrderNumber}}</strong> has been placed and is being prepared for shipping.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><th align="left">Item</th><th align="left">Frame</th><th align="left">Size</th><th align="right">Qty</th><th align="right">Total</th></tr>
    {{range .Order.Items}}<tr>
      <td>{{.Name}}</td><td>{{.Frame.Name}}</td><td>{{.Size.Name}}</td><td align="right">{{.Quantity}}</td><td align="right">{{$.Order.Currency}} {{money .LineTotalMinor}}</td>
    </tr>{{end}}
  </table>
  <p>Subtotal: {{.Order.Currency}} {{money .Order.SubtotalMinor}}<br>
  Shipping: {{.Order.Currency}} {{money .Order.ShippingMinor}}<br>
  Tax: {{.Order.Currency}} {{money .Order.TaxMinor}}<br>
  {{if gt .Order.DiscountMinor 0}}Discount: -{{.Order.Currency}} {{money .Order.DiscountMinor}}<br>{{end}}
  <strong>Total: {{.Order.Currency}} {{money .Order.TotalMinor}}</strong></p>
  {{if .Shipment}}<p>Shipment reference: {{.Shipment.ShipmentID}} (carrier order {{.Shipment.OrderID}})</p>{{end}}
  <p>Shipping to: {{.Order.ShippingAddress}}, {{.Order.City}}, {{.Order.State}} {{.Order.Pincode}}</p>
</body>
</html>
`))

var customerConfirmationText = template.Must(template.New("customer_text").Funcs(funcs).Parse(
	`Thank you for your order, {{.Order.CustomerName}}!
Order {{.Order.OrderNumber}} total: {{.Order.Currency}} {{money .Order.TotalMinor}}
{{if .Shipment}}Shipment reference: {{.Shipment.ShipmentID}}
{{end}}`))

var adminSummary = template.Must(template.New("admin").Funcs(funcs).Parse(
	`New order {{.Order.OrderNumber}}

Customer: {{.Order.CustomerName}}
Email: {{.Order.Email}}
Phone: {{.Order.Phone}}
Shipping address: {{.Order.ShippingAddress}}, {{.Order.City}}, {{.Order.State}} {{.Order.Pincode}}, {{.Order.Country}}
Billing address: {{.Order.BillingAddress}}
Payment: {{.Order.PaymentProvider}} {{with .Order.PaymentID}}{{.}}{{end}}
{{if .Shipment}}Carrier order: {{.Shipment.OrderID}}  Shipment: {{.Shipment.ShipmentID}}
{{end}}
Items:
{{range $i, $item := .Order.Items}}{{$i}}. {{$item.Name}} [{{$item.SKU}}] x{{$item.Quantity}} frame={{$item.Frame.Name}} sub_frame={{$item.SubFrame.Name}} size={{$item.Size.Name}} line={{money $item.LineTotalMinor}}
{{end}}
Subtotal: {{money .Order.SubtotalMinor}}
Shipping: {{money .Order.ShippingMinor}}
Tax: {{money .Order.TaxMinor}}
Discount: {{money .Order.DiscountMinor}}{{with .Order.CouponCode}} ({{.}}){{end}}
Total: {{.Order.Currency}} {{money .Order.TotalMinor}}
`))

var customerSMS = template.Must(template.New("sms").Funcs(funcs).Parse(
	`Hi {{.Order.CustomerName}}, your order {{.Order.OrderNumber}} for {{.Order.Currency}} {{money .Order.TotalMinor}} is confirmed.`))

var trackingSummary = template.Must(template.New("tracking").Parse(
	`Hi {{.CustomerName}}, your order {{.OrderID}} status is now {{.Status}}.`))

type executor interface {
	Execute(w io.Writer, data any) error
}

func render(t executor, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
