package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sushichat/catalog"
	"github.com/itsneelabh/sushichat/order"
)

func TestCanonicalTool(t *testing.T) {
	tests := map[string]string{
		"query_boxes":        "query_boxes",
		"Query-Boxes":        "query_boxes",
		"query products":     "query_boxes",
		"query_products":     "query_boxes",
		"list_boxes":         "query_boxes",
		"get_info":           "get_store_info",
		"GET_HOURS":          "get_store_info",
		"place_order":        "create_order",
		" cancel_order ":     "cancel_order",
		"check-availability": "check_availability",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalTool(in), in)
	}
}

func TestDefinitionsCoverRoutedTools(t *testing.T) {
	f := newFixture(t)
	for _, def := range Definitions() {
		assert.True(t, json.Valid(def.Parameters), def.Name)
		reply := f.router.Dispatch(context.Background(), def.Name, json.RawMessage(`{}`))
		assert.NotEqual(t, msgUnknownTool, reply.Text, "tool %s is not routed", def.Name)
	}
}

func TestUnknownToolFallsBack(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Dispatch(context.Background(), "order_pizza", json.RawMessage(`{"size":"large"}`))
	assert.Equal(t, http.StatusOK, reply.Status)
	assert.Equal(t, "Lo siento, no pude procesar esa solicitud.", reply.Text)
	assert.NoError(t, reply.Err)
}

func TestQueryBoxesListsEveryAvailableItem(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Dispatch(context.Background(), "query_products", nil)
	require.Equal(t, http.StatusOK, reply.Status)

	for _, it := range f.seed.Items {
		if it.IsAvailable() {
			assert.Contains(t, reply.Text, it.Name)
			assert.Contains(t, reply.Text, it.PriceString())
		} else {
			assert.NotContains(t, reply.Text, it.Name)
		}
	}
}

func TestStoreInfoReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.router.Dispatch(ctx, "get_store_info", nil)
	assert.Equal(t, "🏪 SushiBot\n"+
		"📍 Dirección: Av. Corrientes 1234, Buenos Aires, Argentina\n"+
		"📞 Teléfono: +54 11 1234-5678\n"+
		"✉️ Email: pedidos@sushibot.com.ar\n"+
		"🕒 Horarios:\n"+
		"Lunes a Viernes: 11:00 a 22:00hs\n"+
		"Sábados y Domingos: 12:00 a 23:00hs\n"+
		"Estado actual: ✅ Abiertos", reply.Text)

	f.now = f.now.Add(8 * time.Hour) // Tuesday 23:00
	reply = f.router.Dispatch(ctx, "get_info", nil)
	assert.True(t, strings.HasSuffix(reply.Text, "Estado actual: ❌ Cerrados"))

	reply = f.router.Dispatch(ctx, "get_location", nil)
	assert.Equal(t, "📍 Nos encontramos en:\nAv. Corrientes 1234, Buenos Aires, Argentina", reply.Text)

	reply = f.router.Dispatch(ctx, "get_phone", nil)
	assert.Equal(t, "📞 Nuestro teléfono:\n+54 11 1234-5678", reply.Text)
}

func TestClosedDayRendersCerrado(t *testing.T) {
	assert.Equal(t, "Domingos: Cerrado", hoursLine(catalog.DayHours{Label: "Domingos", Open: 0, Close: 0}))
}

func TestCreateOrderFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.router.Dispatch(ctx, "create_order", json.RawMessage(`{"items":[{"box_name":"Box Chica","quantity":2}]}`))
	require.Equal(t, http.StatusOK, reply.Status)
	assert.Contains(t, reply.Text, "64.48")
	assert.Contains(t, reply.Text, "¿Confirmás el pedido?")
	require.NotNil(t, reply.Quote)
	assert.Nil(t, reply.Order)

	reply = f.router.Dispatch(ctx, "place_order", json.RawMessage(`{"quote_id":"`+reply.Quote.ID+`","confirm":"sí"}`))
	require.Equal(t, http.StatusCreated, reply.Status)
	require.NotNil(t, reply.Order)
	assert.Equal(t, order.StatusPending, reply.Order.Status)
	assert.Equal(t, "64.48", reply.Order.Total.StringFixed(2))
	assert.Equal(t, 98, f.stock(t, "Box Chica"))
}

func TestCreateOrderConfirmedDirectly(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Dispatch(context.Background(), "create_order",
		json.RawMessage(`{"items":[{"box_name":"Box Chica","quantity":2}],"confirmed":true}`))
	require.Equal(t, http.StatusCreated, reply.Status)
	assert.Equal(t, "64.48", reply.Order.Total.StringFixed(2))
}

func TestCreateOrderRejectsUnknownItem(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Dispatch(context.Background(), "create_order",
		json.RawMessage(`{"items":[{"box_name":"Box Inexistente","quantity":1}]}`))
	assert.Equal(t, http.StatusBadRequest, reply.Status)
	assert.Contains(t, reply.Text, "Box no encontrado")
	assert.Contains(t, reply.Text, "Box Inexistente")
	assert.NoError(t, reply.Err)
}

func TestMalformedArguments(t *testing.T) {
	f := newFixture(t)
	for _, tool := range []string{"create_order", "change_order", "cancel_order", "check_availability"} {
		reply := f.router.Dispatch(context.Background(), tool, json.RawMessage(`[1, 2`))
		assert.Equal(t, http.StatusBadRequest, reply.Status, tool)
		assert.Equal(t, msgMalformedArgs, reply.Text, tool)
	}
}

func TestDoubleEncodedArguments(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Dispatch(context.Background(), "check_availability",
		json.RawMessage(`"{\"product_name\":\"box grande\"}"`))
	assert.Equal(t, "Tenemos 100 unidades de Box Grande disponibles.", reply.Text)
}

func TestCheckAvailabilityWithoutName(t *testing.T) {
	f := newFixture(t)
	reply := f.router.Dispatch(context.Background(), "check_availability", json.RawMessage(`{}`))
	assert.Equal(t, http.StatusOK, reply.Status)
	assert.Contains(t, reply.Text, "Box Chica")
	assert.True(t, strings.HasSuffix(reply.Text, msgMissingProduct))
}

func TestChangeAndCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	placed := f.router.Dispatch(ctx, "create_order", json.RawMessage(`{"items":[{"box_name":"Box Chica","quantity":2}],"confirm":"si"}`))
	require.Equal(t, http.StatusCreated, placed.Status)
	id := placed.Order.ID

	reply := f.router.Dispatch(ctx, "change_order", json.RawMessage(`{"order_id":"`+id+`","new_quantity":"5"}`))
	require.Equal(t, http.StatusOK, reply.Status)
	assert.Equal(t, "Tu pedido ha sido actualizado a 5 Box Chica.\nNuevo total: $161.20", reply.Text)
	assert.Equal(t, 95, f.stock(t, "Box Chica"))

	reply = f.router.Dispatch(ctx, "cancel_order", json.RawMessage(`{"orderId":"`+id+`"}`))
	require.Equal(t, http.StatusOK, reply.Status)
	assert.Equal(t, "Tu pedido de 5 Box Chica fue cancelado.", reply.Text)
	assert.Equal(t, 100, f.stock(t, "Box Chica"))

	reply = f.router.Dispatch(ctx, "cancel_order", json.RawMessage(`{"order_id":"`+id+`"}`))
	assert.Equal(t, "El pedido con el ID "+id+" ya fue cancelado.", reply.Text)
	assert.Equal(t, 100, f.stock(t, "Box Chica"))

	reply = f.router.Dispatch(ctx, "cancel_order", json.RawMessage(`{"order_id":"ord_missing"}`))
	assert.Equal(t, http.StatusNotFound, reply.Status)
}

func TestPersistenceFailureIsInternal(t *testing.T) {
	seed := catalog.DefaultSeed()
	c, err := seed.Catalog()
	require.NoError(t, err)
	d := order.NewDispatcher(c, failingRepo{order.NewMemoryRepository(c.All())})
	r := NewRouter(d, seed.Store)

	reply := r.Dispatch(context.Background(), "create_order",
		json.RawMessage(`{"items":[{"box_name":"Box Chica","quantity":1}],"confirmed":true}`))
	assert.Equal(t, http.StatusInternalServerError, reply.Status)
	assert.Equal(t, "Lo siento, hubo un error al procesar tu pedido.", reply.Text)
	assert.Error(t, reply.Err)
}
