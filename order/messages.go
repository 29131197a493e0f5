package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/itsneelabh/sushichat/catalog"
)

const (
	msgChooseItem       = "¿Cuál te gustaría pedir?"
	msgConfirmQuestion  = "¿Confirmás el pedido? Respondé sí o no."
	msgGenericError     = "Lo siento, hubo un error al procesar tu pedido."
	msgChangeNeedsItem  = "Tu pedido tiene varios boxes, decime cuál querés cambiar."
	msgQuantityPositive = "La cantidad tiene que ser mayor a cero."
	msgMissingOrderID   = "Necesito el ID del pedido para continuar."
)

// StockLookup reports the units left for an item and whether it is tracked.
type StockLookup func(item string) (int, bool)

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Listing renders the available items as a bulleted Spanish list.
func Listing(items []catalog.Item, stock StockLookup) string {
	if len(items) == 0 {
		return "Por el momento no tenemos boxes disponibles."
	}
	var b strings.Builder
	b.WriteString("Estos son nuestros boxes disponibles:\n")
	for _, it := range items {
		label := it.Availability.Label()
		if stock != nil {
			if left, tracked := stock(it.Name); tracked {
				if left > 0 {
					label = fmt.Sprintf("%s, quedan %d", label, left)
				} else {
					label = "Sin stock"
				}
			}
		}
		fmt.Fprintf(&b, "\n- %s: %s (%s)", it.Name, money(it.Price), label)
		if it.Description != "" {
			fmt.Fprintf(&b, "\n  %s", it.Description)
		}
		if len(it.Contents) > 0 {
			fmt.Fprintf(&b, "\n  Contiene: %s", strings.Join(it.Contents, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeLines(b *strings.Builder, lines []Line) {
	for _, l := range lines {
		fmt.Fprintf(b, "- %dx %s: %s\n", l.Quantity, l.ItemName, money(l.Subtotal))
	}
}

func quoteMessage(q *Quote) string {
	var b strings.Builder
	b.WriteString("Este es el resumen de tu pedido:\n\n")
	writeLines(&b, q.Lines)
	fmt.Fprintf(&b, "\nTotal: %s\n", money(q.Total))
	if q.PickupTime != "" {
		fmt.Fprintf(&b, "Retiro: %shs\n", q.PickupTime)
	}
	fmt.Fprintf(&b, "Código de presupuesto: %s\n\n%s", q.ID, msgConfirmQuestion)
	return b.String()
}

func confirmedMessage(o *Order) string {
	var b strings.Builder
	b.WriteString("¡Listo! Tu pedido fue confirmado.\n\n")
	writeLines(&b, o.Lines)
	fmt.Fprintf(&b, "\nTotal: %s\n", money(o.Total))
	if o.PickupTime != "" {
		fmt.Fprintf(&b, "Retiro: %shs\n", o.PickupTime)
	}
	fmt.Fprintf(&b, "Número de pedido: %s\n\n¡Gracias por elegirnos!", o.ID)
	return b.String()
}

func rejectedMessage(errs ValidationErrors) string {
	var b strings.Builder
	b.WriteString("No pude armar tu pedido:\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "- %s\n", e.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

func insufficientStockMessage(e *StockError) string {
	return fmt.Sprintf("Lo siento, solo tenemos %d unidades de %s disponibles.", e.Available, e.Item)
}

func quoteExpiredMessage(id string) string {
	return fmt.Sprintf("El presupuesto %s ya no es válido. Armemos el pedido de nuevo, ¿qué boxes querés?", id)
}

func orderNotFoundMessage(id string) string {
	return fmt.Sprintf("Lo siento, no pude encontrar un pedido con el ID %s.", id)
}

func alreadyCancelledMessage(id string) string {
	return fmt.Sprintf("El pedido con el ID %s ya fue cancelado.", id)
}

func changeStockMessage(max int) string {
	return fmt.Sprintf("Lo siento, no tenemos suficiente stock. La cantidad máxima disponible es %d.", max)
}

func changedMessage(o *Order, l Line) string {
	return fmt.Sprintf("Tu pedido ha sido actualizado a %d %s.\nNuevo total: %s", l.Quantity, l.ItemName, money(o.Total))
}

func cancelledMessage(o *Order) string {
	return fmt.Sprintf("Tu pedido de %s fue cancelado.", o.Describe())
}

func lineNotInOrderMessage(item string) string {
	return fmt.Sprintf("Tu pedido no incluye %s.", item)
}

func productNotFoundMessage(name string) string {
	return fmt.Sprintf("Lo siento, no pude encontrar el producto \"%s\".", name)
}
