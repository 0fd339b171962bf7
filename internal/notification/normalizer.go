// Package notification turns the provider's heterogeneous webhook bodies
// into a single (payment id, event kind) pair, or an explicit reason to
// ignore them.
package notification

import (
	"encoding/json"
	"strings"

	"github.com/watervendor/dispense-gateway/internal/models"
)

type EventKind string

const (
	KindPayment       EventKind = "payment"
	KindMerchantOrder EventKind = "merchant_order"
)

// Outcome is either Relevant (a payment id was resolved) or Ignored with
// a reason. Ignored notifications are still acknowledged with 200 so the
// provider stops redelivering them.
type Outcome struct {
	Relevant  bool
	PaymentID string
	Kind      EventKind
	Reason    string
}

func ignored(reason string) Outcome {
	return Outcome{Reason: reason}
}

// extractors are tried in order; the first non-empty identifier wins.
// The provider has moved the id around across protocol versions, which
// is why this is an ordered list rather than one parse.
var extractors = []struct {
	name    string
	extract func(env *models.WebhookEnvelope) string
}{
	{"data.id", func(env *models.WebhookEnvelope) string { return env.Data.ID.String() }},
	{"id", func(env *models.WebhookEnvelope) string { return env.ID.String() }},
	{"resource", func(env *models.WebhookEnvelope) string {
		if env.Resource == "" {
			return ""
		}
		trimmed := strings.TrimRight(env.Resource, "/")
		return trimmed[strings.LastIndex(trimmed, "/")+1:]
	}},
}

// Normalize classifies a parsed webhook body. Unparseable or unrecognized
// bodies are Ignored, never errors: the provider sends many variants this
// service does not care about.
func Normalize(body []byte) Outcome {
	var env models.WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ignored("unparseable body")
	}

	kind, ok := classify(&env)
	if !ok {
		return ignored("unrecognized event kind")
	}

	for _, e := range extractors {
		if id := e.extract(&env); id != "" {
			return Outcome{Relevant: true, PaymentID: id, Kind: kind}
		}
	}
	return ignored("missing identifier")
}

func classify(env *models.WebhookEnvelope) (EventKind, bool) {
	switch {
	case env.Type == "payment", env.Topic == "payment":
		return KindPayment, true
	case strings.HasPrefix(env.Action, "payment."):
		return KindPayment, true
	case env.Type == "topic_merchant_order_wh", env.Topic == "merchant_order":
		return KindMerchantOrder, true
	}
	return "", false
}
