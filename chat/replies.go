package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/itsneelabh/sushichat/catalog"
)

const (
	msgUnknownTool     = "Lo siento, no pude procesar esa solicitud."
	msgProcessingError = "Lo siento, hubo un error al procesar tu solicitud."
	msgMalformedArgs   = "Lo siento, no pude entender los datos de la solicitud."
	msgMissingProduct  = "¿Sobre qué box querés consultar?"
)

var weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var months = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto",
	"septiembre", "octubre", "noviembre", "diciembre"}

// spanishDate renders t as "martes 14 de enero de 2025".
func spanishDate(t time.Time) string {
	return fmt.Sprintf("%s %d de %s de %d", weekdays[t.Weekday()], t.Day(), months[t.Month()-1], t.Year())
}

func hoursLine(d catalog.DayHours) string {
	if d.Open == d.Close {
		return d.Label + ": Cerrado"
	}
	return fmt.Sprintf("%s: %s a %shs", d.Label, d.Open, d.Close)
}

func storeInfoText(s catalog.StoreInfo, now time.Time) string {
	var b strings.Builder
	if s.Name != "" {
		fmt.Fprintf(&b, "🏪 %s\n", s.Name)
	}
	fmt.Fprintf(&b, "📍 Dirección: %s\n", s.GetAddress())
	fmt.Fprintf(&b, "📞 Teléfono: %s\n", s.GetPhone())
	if s.Email != "" {
		fmt.Fprintf(&b, "✉️ Email: %s\n", s.Email)
	}
	hours := s.GetHours()
	b.WriteString("🕒 Horarios:\n")
	b.WriteString(hoursLine(hours.Weekdays) + "\n")
	b.WriteString(hoursLine(hours.Weekends) + "\n")
	if s.IsOpenNow(now) {
		b.WriteString("Estado actual: ✅ Abiertos")
	} else {
		b.WriteString("Estado actual: ❌ Cerrados")
	}
	return b.String()
}

func locationText(s catalog.StoreInfo) string {
	return "📍 Nos encontramos en:\n" + s.GetAddress()
}

func phoneText(s catalog.StoreInfo) string {
	return "📞 Nuestro teléfono:\n" + s.GetPhone()
}
