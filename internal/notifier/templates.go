package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Keoroanthony/go-dairydelight/internal/models"
)

const (
	SubjectConfirmation = "Order Confirmation - DairyDelight"
	SubjectAdminAlert   = "New Order Received - DairyDelight"
	SubjectStatusUpdate = "Order Status Update - DairyDelight"
)

//go:embed templates/*.html
var templateFS embed.FS

func money(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

func statusNote(s models.OrderStatus) string {
	switch s {
	case models.StatusShipped:
		return "Your order is on its way! You can expect delivery within 2-3 business days."
	case models.StatusDelivered:
		return "Your order has been delivered. We hope you enjoy your products!"
	}
	return ""
}

var funcs = template.FuncMap{
	"money":      money,
	"statusNote": statusNote,
	"date":       func(t time.Time) string { return t.Format("January 2, 2006") },
	"lineTotal": func(it models.OrderItem) string {
		return money(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	},
}

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{"confirmation.html", "admin_alert.html", "status_update.html"} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
}

type orderView struct {
	Order *models.Order
	User  *models.User
}

func render(page string, order *models.Order, user *models.User) (string, error) {
	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, page, orderView{Order: order, User: user}); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", page, err)
	}
	return buf.String(), nil
}

// OrderConfirmation is sent to the customer who placed order.
func OrderConfirmation(order *models.Order, customer *models.User) (Email, error) {
	html, err := render("confirmation.html", order, customer)
	if err != nil {
		return Email{}, err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Thank you for your order, %s!\n\nOrder #%d (%s)\n\n", customer.Name, order.ID, order.Status)
	for _, it := range order.OrderItems {
		fmt.Fprintf(&text, "%d x %s @ %s\n", it.Qty, it.Name, money(it.Price))
	}
	fmt.Fprintf(&text, "\nTotal: %s\n\nShip to: %s, %s %s, %s\n", money(order.TotalPrice),
		order.ShippingAddress.Address, order.ShippingAddress.City,
		order.ShippingAddress.PostalCode, order.ShippingAddress.Country)

	return Email{To: customer.Email, Subject: SubjectConfirmation, HTML: html, Text: text.String()}, nil
}

// AdminAlert tells admin that customer placed order.
func AdminAlert(order *models.Order, customer, admin *models.User) (Email, error) {
	html, err := render("admin_alert.html", order, customer)
	if err != nil {
		return Email{}, err
	}
	text := fmt.Sprintf("New order #%d from %s (%s): %d items, total %s.",
		order.ID, customer.Name, customer.Email, len(order.OrderItems), money(order.TotalPrice))

	return Email{To: admin.Email, Subject: SubjectAdminAlert, HTML: html, Text: text}, nil
}

func StatusUpdate(order *models.Order, customer *models.User) (Email, error) {
	html, err := render("status_update.html", order, customer)
	if err != nil {
		return Email{}, err
	}
	text := fmt.Sprintf("Hello %s, your order #%d is now %s. %s", customer.Name, order.ID, order.Status, statusNote(order.Status))

	return Email{To: customer.Email, Subject: SubjectStatusUpdate, HTML: html, Text: strings.TrimSpace(text)}, nil
}

func ConfirmationSMS(order *models.Order) string {
	return fmt.Sprintf("DairyDelight: order #%d received, total %s. We will notify you when it ships.",
		order.ID, money(order.TotalPrice))
}
