package chat

import (
	"encoding/json"
	"strings"

	"github.com/itsneelabh/sushichat/ai"
	"github.com/itsneelabh/sushichat/internal/textmatch"
)

// Tool names offered to the model.
const (
	ToolQueryBoxes        = "query_boxes"
	ToolCheckAvailability = "check_availability"
	ToolGetStoreInfo      = "get_store_info"
	ToolGetLocation       = "get_location"
	ToolGetPhone          = "get_phone"
	ToolCreateOrder       = "create_order"
	ToolChangeOrder       = "change_order"
	ToolCancelOrder       = "cancel_order"
)

var toolAliases = map[string]string{
	"query_products": ToolQueryBoxes,
	"list_boxes":     ToolQueryBoxes,
	"get_info":       ToolGetStoreInfo,
	"get_hours":      ToolGetStoreInfo,
	"place_order":    ToolCreateOrder,
}

// CanonicalTool folds a model-produced tool name: case and accents are
// ignored, dashes and spaces count as underscores and aliases resolve to
// their canonical name.
func CanonicalTool(name string) string {
	n := strings.NewReplacer("-", "_", " ", "_").Replace(textmatch.Fold(strings.TrimSpace(name)))
	if canonical, ok := toolAliases[n]; ok {
		return canonical
	}
	return n
}

const orderItemsSchema = `{
	"type": "array",
	"description": "Boxes a pedir",
	"items": {
		"type": "object",
		"properties": {
			"box_name": {"type": "string", "description": "Nombre del box, por ejemplo Box Chica"},
			"quantity": {"type": "integer", "minimum": 1}
		},
		"required": ["box_name", "quantity"]
	}
}`

var definitions = []ai.ToolDefinition{
	{
		Name:        ToolQueryBoxes,
		Description: "Lista los boxes disponibles con precio, descripción y contenido.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
	},
	{
		Name:        ToolCheckAvailability,
		Description: "Consulta si un box está disponible y cuántas unidades quedan.",
		Parameters: json.RawMessage(`{"type":"object","properties":{
			"product_name":{"type":"string","description":"Nombre del box"}
		},"required":["product_name"]}`),
	},
	{
		Name:        ToolGetStoreInfo,
		Description: "Devuelve dirección, teléfono, horarios y si el local está abierto ahora.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
	},
	{
		Name:        ToolGetLocation,
		Description: "Devuelve la dirección del local.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
	},
	{
		Name:        ToolGetPhone,
		Description: "Devuelve el teléfono del local.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
	},
	{
		Name: ToolCreateOrder,
		Description: "Arma un pedido. Sin confirm devuelve un resumen con código de presupuesto; " +
			"con confirm \"sí\" y los items o el quote_id lo registra.",
		Parameters: json.RawMessage(`{"type":"object","properties":{
			"items":` + orderItemsSchema + `,
			"confirm":{"type":"string","description":"\"sí\" cuando el cliente confirmó el resumen"},
			"quote_id":{"type":"string","description":"Código de presupuesto del resumen"},
			"customer_name":{"type":"string"},
			"phone":{"type":"string"},
			"pickup_time":{"type":"string","description":"Horario de retiro HH:MM"}
		}}`),
	},
	{
		Name:        ToolChangeOrder,
		Description: "Cambia la cantidad de un box en un pedido existente.",
		Parameters: json.RawMessage(`{"type":"object","properties":{
			"order_id":{"type":"string"},
			"item_name":{"type":"string","description":"Box a cambiar; opcional si el pedido tiene uno solo"},
			"new_quantity":{"type":"integer","minimum":1}
		},"required":["order_id","new_quantity"]}`),
	},
	{
		Name:        ToolCancelOrder,
		Description: "Cancela un pedido existente.",
		Parameters: json.RawMessage(`{"type":"object","properties":{
			"order_id":{"type":"string"}
		},"required":["order_id"]}`),
	},
}

// Definitions returns the tool schemas offered to the model.
func Definitions() []ai.ToolDefinition {
	return append([]ai.ToolDefinition(nil), definitions...)
}
