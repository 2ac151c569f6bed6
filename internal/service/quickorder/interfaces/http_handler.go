package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"quickorder/internal/pkg/logger"
	"quickorder/internal/service/quickorder/application"
)

const serviceName = "quickorder-service"

// QuickOrderHandler 封装了快速下单服务的 HTTP 处理器
type QuickOrderHandler struct {
	service *application.QuickOrderService
}

// NewQuickOrderHandler 创建一个新的 HTTP 处理器实例
func NewQuickOrderHandler(service *application.QuickOrderService) *QuickOrderHandler {
	return &QuickOrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *QuickOrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/quickorder/grid", h.gridHandler)
	mux.HandleFunc("/quickorder/refresh", h.refreshHandler)
	mux.HandleFunc("/quickorder/intent", h.intentHandler)
	mux.HandleFunc("/quickorder/quantity", h.quantityHandler)
	mux.HandleFunc("/quickorder/source", h.sourceHandler)
	mux.HandleFunc("/quickorder/commit", h.commitHandler)
	mux.HandleFunc("/quickorder/recommendations", h.recommendationsHandler)
}

// extract 重建上游追踪上下文，并把买家画像放进 Baggage 随调用链下传。
func (h *QuickOrderHandler) extract(r *http.Request, spanName string) (context.Context, trace.Span) {
	propagator := otel.GetTextMapPropagator()
	c := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if buyerID := r.Header.Get("X-Buyer-Id"); buyerID != "" {
		if member, err := baggage.NewMember("buyer_id", buyerID); err == nil {
			if b, err := baggage.FromContext(c).SetMember(member); err == nil {
				c = baggage.ContextWithBaggage(c, b)
			}
		}
	}
	if segment := r.Header.Get("X-Buyer-Segment"); segment != "" {
		if member, err := baggage.NewMember("buyer_segment", segment); err == nil {
			if b, err := baggage.FromContext(c).SetMember(member); err == nil {
				c = baggage.ContextWithBaggage(c, b)
			}
		}
	}

	tracer := otel.Tracer(serviceName)
	return tracer.Start(c, spanName)
}

func (h *QuickOrderHandler) gridHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.extract(r, "api.Grid")
	defer span.End()

	storeID := r.URL.Query().Get("storeId")
	if storeID == "" {
		http.Error(w, "storeId is required", http.StatusBadRequest)
		return
	}
	search := r.URL.Query().Get("search")
	span.SetAttributes(
		attribute.String("store.id", storeID),
		attribute.String("grid.search_term", search),
	)

	writeJSON(w, h.service.Grid(ctx, storeID, search))
}

func (h *QuickOrderHandler) refreshHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.extract(r, "api.Refresh")
	defer span.End()

	storeID := r.URL.Query().Get("storeId")
	if storeID == "" {
		http.Error(w, "storeId is required", http.StatusBadRequest)
		return
	}

	grid, err := h.service.RefreshAll(ctx, storeID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("store_id", storeID).Msg("refresh failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, grid)
}

func (h *QuickOrderHandler) intentHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.extract(r, "api.Intent")
	defer span.End()

	var req application.IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("intent.sku", req.SKU),
		attribute.String("intent.action", req.Action),
	)

	resp, grid, err := h.service.ApplyIntent(ctx, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, intentEnvelope{Result: resp, Grid: grid})
}

func (h *QuickOrderHandler) quantityHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.extract(r, "api.Quantity")
	defer span.End()

	var req application.QuantityEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, grid, err := h.service.EditQuantity(ctx, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, intentEnvelope{Result: resp, Grid: grid})
}

func (h *QuickOrderHandler) sourceHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.extract(r, "api.SwitchSource")
	defer span.End()

	var req application.SwitchSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	grid, err := h.service.SwitchSource(ctx, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, grid)
}

func (h *QuickOrderHandler) commitHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.extract(r, "api.Commit")
	defer span.End()

	storeID := r.URL.Query().Get("storeId")
	if storeID == "" {
		http.Error(w, "storeId is required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CommitCart(ctx, storeID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("store_id", storeID).Msg("commit failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, resp)
}

func (h *QuickOrderHandler) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.extract(r, "api.Recommendations")
	defer span.End()

	storeID := r.URL.Query().Get("storeId")
	if storeID == "" {
		http.Error(w, "storeId is required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Recommendations(ctx, storeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, resp)
}

// intentEnvelope 把意图解析结果和重建后的网格打包返回。
// Grid 为空表示该意图没有触发重建（search、非法输入、未知商品）。
type intentEnvelope struct {
	Result *application.IntentResponse `json:"result"`
	Grid   *application.GridResponse   `json:"grid,omitempty"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
