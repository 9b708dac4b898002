package api

import (
	"net/http"

	"github.com/WessleyAI/wessley-mvp/pkg/transport"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type componentHealth struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentHealth `json:"components"`
}

// HealthDeps bundles the liveness-checkable dependencies for /health.
type HealthDeps struct {
	Neo4j  neo4j.DriverWithContext
	Nats   *nats.Conn
	Logic  *transport.LogicClient
	Draft  *transport.DraftClient
	Embed  *transport.EmbedClient
}

// NewHealthHandler reports per-dependency liveness: Neo4j connectivity,
// NATS connection status, and each transport client's circuit breaker state.
func NewHealthHandler(deps HealthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentHealth{}
		overall := "ok"

		if err := deps.Neo4j.VerifyConnectivity(r.Context()); err != nil {
			components["neo4j"] = componentHealth{Status: "down", Detail: err.Error()}
			overall = "degraded"
		} else {
			components["neo4j"] = componentHealth{Status: "ok"}
		}

		if deps.Nats != nil {
			if deps.Nats.IsConnected() {
				components["nats"] = componentHealth{Status: "ok"}
			} else {
				components["nats"] = componentHealth{Status: "down", Detail: deps.Nats.Status().String()}
				overall = "degraded"
			}
		}

		components["logic"] = breakerHealth(deps.Logic.BreakerState().String())
		components["draft"] = breakerHealth(deps.Draft.BreakerState().String())
		components["embed"] = breakerHealth(deps.Embed.BreakerState().String())
		for _, name := range []string{"logic", "draft", "embed"} {
			if components[name].Status != "ok" {
				overall = "degraded"
			}
		}

		status := http.StatusOK
		if overall != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, healthResponse{Status: overall, Components: components})
	}
}

func breakerHealth(state string) componentHealth {
	if state == "closed" {
		return componentHealth{Status: "ok"}
	}
	return componentHealth{Status: "degraded", Detail: "circuit " + state}
}
