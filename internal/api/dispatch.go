package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/erazemk/labtrack/internal/apperr"
	"github.com/erazemk/labtrack/internal/auth"
	"github.com/erazemk/labtrack/internal/ledger"
	"github.com/erazemk/labtrack/internal/metrics"
	"github.com/erazemk/labtrack/internal/model"
	"github.com/erazemk/labtrack/internal/rows"
)

// maxBodyBytes bounds the POST envelope.
const maxBodyBytes = 1 << 20

// Inventory is the set of ledger operations the dispatcher exposes.
type Inventory interface {
	AddItem(ctx context.Context, p *model.Principal, item rows.Record) error
	UpdateItem(ctx context.Context, p *model.Principal, partial rows.Record) error
	DeleteItem(ctx context.Context, p *model.Principal, id any) error
	AddDelivery(ctx context.Context, p *model.Principal, delivery rows.Record) error
	AddCheckout(ctx context.Context, p *model.Principal, checkout rows.Record) error
	ReturnItem(ctx context.Context, p *model.Principal, checkoutID any) error
	AddOrder(ctx context.Context, p *model.Principal, order rows.Record) error
	UpdateOrderStatus(ctx context.Context, p *model.Principal, id any, status string) error
	DeleteOrder(ctx context.Context, p *model.Principal, id any) error
	SaveSettings(ctx context.Context, p *model.Principal, key string, value any) error
	Snapshot(ctx context.Context, p *model.Principal) (*ledger.Snapshot, error)
}

// Authenticator turns a token into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Principal, error)
}

// DigestSender sends the digest on demand.
type DigestSender interface {
	SendDigest(ctx context.Context) error
}

// envelope is the POST body.
type envelope struct {
	Token      string      `json:"token"`
	Action     string      `json:"action"`
	Item       rows.Record `json:"item"`
	Delivery   rows.Record `json:"delivery"`
	Checkout   rows.Record `json:"checkout"`
	Order      rows.Record `json:"order"`
	ItemID     any         `json:"itemId"`
	CheckoutID any         `json:"checkoutId"`
	OrderID    any         `json:"orderId"`
	Status     string      `json:"status"`
	Key        string      `json:"key"`
	Value      any         `json:"value"`
}

// action is one dispatchable request kind.
type action struct {
	role string
	run  func(ctx context.Context, p *model.Principal, env *envelope) error
}

// DispatchHandler serves the single action endpoint and the snapshot read.
type DispatchHandler struct {
	Inventory Inventory
	Auth      Authenticator
	Digest    DigestSender
	Metrics   *metrics.Metrics

	schema  *jsonschema.Schema
	actions map[string]action
}

// NewDispatchHandler wires the action table.
func NewDispatchHandler(inv Inventory, authn Authenticator, digest DigestSender, m *metrics.Metrics) (*DispatchHandler, error) {
	sch, err := compileEnvelopeSchema()
	if err != nil {
		return nil, err
	}

	h := &DispatchHandler{Inventory: inv, Auth: authn, Digest: digest, Metrics: m, schema: sch}
	h.actions = map[string]action{
		"addItem": {model.RoleMember, func(ctx context.Context, p *model.Principal, env *envelope) error {
			return h.Inventory.AddItem(ctx, p, env.Item)
		}},
		"updateItem": {model.RoleMember, func(ctx context.Context, p *model.Principal, env *envelope) error {
			return h.Inventory.UpdateItem(ctx, p, env.Item)
		}},
		"deleteItem": {model.RoleAdmin, func(ctx context.Context, p *model.Principal, env *envelope) error {
			return h.Inventory.DeleteItem(ctx, p, env.ItemID)
		}},
		"addDelivery": {model.RoleMember, func(ctx context.Context, p *model.Principal, env *envelope) error {
			return h.Inventory.AddDelivery(ctx, p, env.Delivery)
		}},
		"addCheckout": {model.RoleMember, func(ctx context.Context, p *model.Principal, env *envelope) error {
			return h.Inventory.AddCheckout(ctx, p, env.Checkout)
		}},
		"returnItem": {model.RoleMember, func(ctx context.Context, p *model.Principal, env *envelope) error {
			return h.Inventory.ReturnItem(ctx, p, env.CheckoutID)
		}},
		"addOrder": {model.RoleMember, func(ctx context.Context, p *model.Principal, env *envelope) error {
			return h.Inventory.AddOrder(ctx, p, env.Order)
		}},
		"updateOrderStatus": {model.RoleMember, func(ctx context.Context, p *model.Principal, env *envelope) error {
			return h.Inventory.UpdateOrderStatus(ctx, p, env.OrderID, env.Status)
		}},
		"deleteOrder": {model.RoleAdmin, func(ctx context.Context, p *model.Principal, env *envelope) error {
			return h.Inventory.DeleteOrder(ctx, p, env.OrderID)
		}},
		"saveSettings": {model.RoleAdmin, func(ctx context.Context, p *model.Principal, env *envelope) error {
			return h.Inventory.SaveSettings(ctx, p, env.Key, env.Value)
		}},
		"sendDigest": {model.RoleAdmin, func(ctx context.Context, p *model.Principal, env *envelope) error {
			if err := h.Digest.SendDigest(ctx); err != nil {
				return apperr.Server("failed to send digest", err)
			}
			return nil
		}},
	}
	return h, nil
}

// Post handles POST /api. The caller is authenticated before the body is
// validated or the action looked up.
func (h *DispatchHandler) Post(w http.ResponseWriter, r *http.Request) {
	name := "unknown"
	err := func() error {
		body, readErr := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		r.Body.Close()

		token := bearerToken(r)
		if token == "" && readErr == nil {
			var t struct {
				Token any `json:"token"`
			}
			json.Unmarshal(body, &t)
			token, _ = t.Token.(string)
		}
		p, err := h.Auth.Authenticate(r.Context(), token)
		if err != nil {
			return err
		}
		if readErr != nil {
			return apperr.Validation("request body too large or unreadable")
		}

		if reason, ok := validateEnvelope(h.schema, body); !ok {
			return apperr.Validation("%s", reason)
		}
		env, err := decodeEnvelope(body)
		if err != nil {
			return apperr.Validation("invalid request body")
		}

		act, ok := h.actions[env.Action]
		if !ok {
			return apperr.Validation("Unknown action: %s", env.Action)
		}
		name = env.Action

		if err := auth.Authorize(p, act.role); err != nil {
			return err
		}
		return act.run(r.Context(), p, env)
	}()

	h.record(name, err)
	if err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, okResponse)
}

// Get handles GET /api, returning the full snapshot.
func (h *DispatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}

	snap, err := func() (*ledger.Snapshot, error) {
		p, err := h.Auth.Authenticate(r.Context(), token)
		if err != nil {
			return nil, err
		}
		return h.Inventory.Snapshot(r.Context(), p)
	}()

	h.record("snapshot", err)
	if err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, snap)
}

// decodeEnvelope keeps JSON numbers as json.Number so numeric ids reach
// the matcher with every digit.
func decodeEnvelope(body []byte) (*envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (h *DispatchHandler) record(name string, err error) {
	result := "ok"
	if err != nil {
		result = string(apperr.KindOf(err))
	}
	h.Metrics.Request(name, result)
}
