// internal/service/quickorder/application/service.go
package application

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"quickorder/internal/pkg/logger"
	"quickorder/internal/service/quickorder/domain"
	"quickorder/internal/service/quickorder/port"
)

// session 是一个门店会话的全部状态：四路数据快照加展示参数。
// 每次变更都整体替换对应快照，网格永远从快照全量重算，
// 不维护任何增量派生状态。
type session struct {
	mu sync.Mutex

	storeID    string
	sourceID   string // 空 = 全量目录；非空 = 某个历史订单
	searchTerm string

	products []domain.Product
	inputQty map[string]domain.Quantity
	cartQty  map[string]float64
	promoMap map[string]domain.Promotion
}

// QuickOrderService 编排快速下单网格的全部业务用例。
// 领域计算全部是纯函数，本层负责快照管理、意图入口和提交流程。
type QuickOrderService struct {
	catalog   port.CatalogProvider
	cart      port.CartProvider
	promos    port.PromotionProvider
	notifier  port.GridNotifier // 可为 nil：推送是可选能力
	publisher port.CommitPublisher
	locker    port.CommitLocker
	tracer    trace.Tracer

	// rng 用于上游无推荐数据时的目录采样，注入以便测试固定种子。
	rngMu sync.Mutex
	rng   *rand.Rand

	sessionsMu sync.Mutex
	sessions   map[string]*session
}

// NewQuickOrderService 创建应用服务实例。
func NewQuickOrderService(
	catalog port.CatalogProvider,
	cart port.CartProvider,
	promos port.PromotionProvider,
	notifier port.GridNotifier,
	publisher port.CommitPublisher,
	locker port.CommitLocker,
	tracer trace.Tracer,
	rng *rand.Rand,
) *QuickOrderService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &QuickOrderService{
		catalog:   catalog,
		cart:      cart,
		promos:    promos,
		notifier:  notifier,
		publisher: publisher,
		locker:    locker,
		tracer:    tracer,
		rng:       rng,
		sessions:  make(map[string]*session),
	}
}

func (s *QuickOrderService) getSession(storeID string) *session {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	sess, ok := s.sessions[storeID]
	if !ok {
		sess = &session{
			storeID:  storeID,
			inputQty: make(map[string]domain.Quantity),
			cartQty:  make(map[string]float64),
			promoMap: make(map[string]domain.Promotion),
		}
		s.sessions[storeID] = sess
	}
	return sess
}

// RefreshAll 并行拉取目录、购物车、促销三路快照，各自整体替换。
// 任何一路失败整个刷新失败，不做半新半旧的快照（见对外的顺序性约定：
// 重建只发生在一次异步拉取完整结束之后）。
func (s *QuickOrderService) RefreshAll(ctx context.Context, storeID string) (*GridResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.RefreshAll")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", storeID))

	sess := s.getSession(storeID)

	sess.mu.Lock()
	sourceID := sess.sourceID
	sess.mu.Unlock()

	var (
		products []domain.Product
		cartQty  map[string]float64
		promoMap map[string]domain.Promotion
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.fetchProducts(gctx, storeID, sourceID)
		s.countRefresh("catalog", err)
		return errors.Wrap(err, "refresh catalog")
	})
	g.Go(func() error {
		var err error
		cartQty, err = s.cart.FetchQuantities(gctx, storeID)
		s.countRefresh("cart", err)
		return errors.Wrap(err, "refresh cart")
	})
	g.Go(func() error {
		var err error
		promoMap, err = s.promos.FetchPromotions(gctx, storeID, promoFacts(gctx, storeID))
		s.countRefresh("promotions", err)
		return errors.Wrap(err, "refresh promotions")
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot refresh failed")
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.products = products
	if cartQty == nil {
		cartQty = map[string]float64{}
	}
	sess.cartQty = cartQty
	if promoMap == nil {
		promoMap = map[string]domain.Promotion{}
	}
	sess.promoMap = promoMap

	logger.Ctx(ctx).Info().
		Str("store_id", storeID).
		Int("products", len(products)).
		Int("cart_lines", len(cartQty)).
		Int("promotions", len(promoMap)).
		Msg("snapshots refreshed")

	return s.rebuildLocked(sess, "refresh"), nil
}

func (s *QuickOrderService) fetchProducts(ctx context.Context, storeID, sourceID string) ([]domain.Product, error) {
	if sourceID != "" {
		return s.catalog.FetchOrderLines(ctx, storeID, sourceID)
	}
	return s.catalog.FetchCatalog(ctx, storeID)
}

// Grid 以给定搜索词重建并返回网格。
func (s *QuickOrderService) Grid(ctx context.Context, storeID, searchTerm string) *GridResponse {
	_, span := s.tracer.Start(ctx, "app.Grid")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.id", storeID),
		attribute.String("grid.search_term", searchTerm),
	)

	sess := s.getSession(storeID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.searchTerm = searchTerm
	return s.rebuildLocked(sess, "search")
}

// EditQuantity 处理人工直接输入：原始串 → 类型化数量 → set 意图。
func (s *QuickOrderService) EditQuantity(ctx context.Context, req *QuantityEditRequest) (*IntentResponse, *GridResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.EditQuantity")
	defer span.End()

	qty := domain.ParseQuantity(req.Quantity)
	if !qty.Valid {
		// 非法输入不改变任何状态，以数据形式报告
		return &IntentResponse{
			SKU:      req.SKU,
			Rejected: true,
			Reasons:  []string{"Enter a valid quantity"},
			Message:  "Enter a valid quantity",
		}, nil, nil
	}

	return s.applyIntent(ctx, req.StoreID, domain.Intent{
		SKU:      req.SKU,
		Action:   domain.IntentSet,
		Quantity: qty.Value,
	})
}

// ApplyIntent 处理结构化意图（Agent 或步进器）。
// 哨兵数量在这里解码为 take-maximum，"search" 永不产生增量。
func (s *QuickOrderService) ApplyIntent(ctx context.Context, req *IntentRequest) (*IntentResponse, *GridResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.ApplyIntent")
	defer span.End()
	span.SetAttributes(
		attribute.String("intent.sku", req.SKU),
		attribute.String("intent.action", req.Action),
	)

	intent := domain.DecodeIntent(req.SKU, req.Action, req.Quantity)

	if intent.Action == domain.IntentSearch {
		// 仅影响展示：把搜索词切到 SKU 对应的商品名交给接口层处理，
		// 这里只记录，不产生数量变化
		logger.Ctx(ctx).Info().Str("sku", req.SKU).Msg("search intent received, no delta produced")
		intentResolvedTotal.WithLabelValues(string(intent.Action), "exact").Inc()
		return &IntentResponse{SKU: req.SKU}, nil, nil
	}

	return s.applyIntent(ctx, req.StoreID, intent)
}

func (s *QuickOrderService) applyIntent(ctx context.Context, storeID string, intent domain.Intent) (*IntentResponse, *GridResponse, error) {
	sess := s.getSession(storeID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	product, ok := findBySKU(sess.products, intent.SKU)
	if !ok {
		// 上游数据缺失按默认处理，不是错误；但意图必须有答复
		resp := &IntentResponse{
			SKU:      intent.SKU,
			Rejected: true,
			Reasons:  []string{"Product not found: " + intent.SKU},
			Message:  "Product not found: " + intent.SKU,
		}
		intentResolvedTotal.WithLabelValues(string(intent.Action), "rejected").Inc()
		return resp, nil, nil
	}

	staged := sess.inputQty[product.ID].Value
	inCart := sess.cartQty[product.ID]

	res := domain.ResolveIntent(product, staged, inCart, intent)
	intentResolvedTotal.WithLabelValues(string(intent.Action), intentOutcome(res.Adjusted, res.Rejected)).Inc()

	// 把增量折叠进暂存数量表：零数量从表中移除，绝不存 0
	next := make(map[string]domain.Quantity, len(sess.inputQty))
	for k, v := range sess.inputQty {
		next[k] = v
	}
	if res.FinalQty == 0 {
		delete(next, product.ID)
	} else {
		next[product.ID] = domain.QuantityOf(res.FinalQty)
	}
	sess.inputQty = next

	grid := s.rebuildLocked(sess, "intent")

	logger.Ctx(ctx).Info().
		Str("sku", intent.SKU).
		Str("action", string(intent.Action)).
		Float64("delta", res.Delta).
		Bool("adjusted", res.Adjusted).
		Msg("intent resolved")

	return &IntentResponse{
		SKU:      intent.SKU,
		Delta:    res.Delta,
		FinalQty: res.FinalQty,
		Adjusted: res.Adjusted,
		Rejected: res.Rejected,
		Reasons:  res.Reasons,
		Message:  strings.Join(res.Reasons, "; "),
	}, grid, nil
}

// SwitchSource 切换浏览源（全量目录 ↔ 历史订单）。
// 按约定切换必然清空暂存数量。
func (s *QuickOrderService) SwitchSource(ctx context.Context, req *SwitchSourceRequest) (*GridResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.SwitchSource")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.id", req.StoreID),
		attribute.String("source.order_id", req.OrderID),
	)

	products, err := s.fetchProducts(ctx, req.StoreID, req.OrderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "source switch failed")
		return nil, errors.Wrap(err, "switch source")
	}

	sess := s.getSession(req.StoreID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.sourceID = req.OrderID
	sess.products = products
	sess.inputQty = make(map[string]domain.Quantity)

	return s.rebuildLocked(sess, "source"), nil
}

// CommitCart 把全部暂存数量提交到外部购物车。
// 同一购物车的提交串行化（分布式锁）；任何一行校验不过则整体拒绝。
// 提交成功后清空暂存、刷新购物车快照并发布提交事件。
func (s *QuickOrderService) CommitCart(ctx context.Context, storeID string) (*CommitResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.CommitCart")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", storeID))

	unlock, err := s.locker.Lock(ctx, storeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit lock not acquired")
		return nil, errors.Wrap(err, "acquire commit lock")
	}
	defer unlock()

	sess := s.getSession(storeID)
	sess.mu.Lock()

	if len(sess.inputQty) == 0 {
		sess.mu.Unlock()
		return &CommitResponse{Committed: false}, nil
	}

	// 全部行先过一遍规则，有任何一行不合法就整体拒绝
	var invalid []string
	deltas := make(map[string]float64, len(sess.inputQty))
	for _, p := range sess.products {
		staged, ok := sess.inputQty[p.ID]
		if !ok {
			continue
		}
		if v := domain.Validate(p, sess.cartQty[p.ID], staged.Value); !v.Valid {
			invalid = append(invalid, p.SKU)
			continue
		}
		deltas[p.ID] = staged.Value
	}
	if len(invalid) > 0 {
		sess.mu.Unlock()
		return &CommitResponse{Committed: false, InvalidSKUs: invalid, Lines: len(deltas)}, nil
	}
	sess.mu.Unlock()

	if err := s.cart.Commit(ctx, storeID, deltas); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cart commit failed")
		return nil, errors.Wrap(err, "commit cart")
	}

	// 提交成功：清空暂存并刷新购物车快照
	cartQty, err := s.cart.FetchQuantities(ctx, storeID)
	s.countRefresh("cart", err)
	sess.mu.Lock()
	sess.inputQty = make(map[string]domain.Quantity)
	if err == nil && cartQty != nil {
		sess.cartQty = cartQty
	}
	s.rebuildLocked(sess, "commit")
	sess.mu.Unlock()

	event := &port.CommitEvent{
		EventID: uuid.New().String(),
		StoreID: storeID,
		CartID:  storeID,
		Lines:   deltas,
	}
	if s.publisher != nil {
		if err := s.publisher.PublishCommit(ctx, event); err != nil {
			// 事件丢失不回滚提交，记录后继续
			logger.Ctx(ctx).Error().Err(err).Str("event_id", event.EventID).Msg("failed to publish commit event")
		}
	}

	logger.Ctx(ctx).Info().Str("store_id", storeID).Int("lines", len(deltas)).Msg("cart committed")
	return &CommitResponse{Committed: true, EventID: event.EventID, Lines: len(deltas)}, nil
}

// Recommendations 返回推荐商品：优先上游数据，否则从目录随机采样两个。
func (s *QuickOrderService) Recommendations(ctx context.Context, storeID string) (*RecommendationsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.Recommendations")
	defer span.End()

	ids, err := s.catalog.FetchRecommendations(ctx, storeID)
	if err != nil {
		// 推荐是增强能力，失败时退回采样
		logger.Ctx(ctx).Warn().Err(err).Msg("recommendation fetch failed, falling back to sampling")
	}
	if len(ids) > 0 {
		return &RecommendationsResponse{ProductIDs: ids}, nil
	}

	sess := s.getSession(storeID)
	sess.mu.Lock()
	products := sess.products
	sess.mu.Unlock()

	return &RecommendationsResponse{ProductIDs: s.samplePair(products), Sampled: true}, nil
}

// samplePair 从目录中随机取两个互不相同的商品 ID。
func (s *QuickOrderService) samplePair(products []domain.Product) []string {
	if len(products) == 0 {
		return nil
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	if len(products) == 1 {
		return []string{products[0].ID}
	}
	i := s.rng.Intn(len(products))
	j := s.rng.Intn(len(products) - 1)
	if j >= i {
		j++
	}
	return []string{products[i].ID, products[j].ID}
}

// rebuildLocked 全量重建网格并推送。调用方必须持有 sess.mu。
func (s *QuickOrderService) rebuildLocked(sess *session, trigger string) *GridResponse {
	start := time.Now()
	lines := domain.BuildGrid(sess.products, sess.inputQty, sess.cartQty, sess.promoMap, sess.searchTerm)
	gridRebuildSeconds.Observe(time.Since(start).Seconds())
	gridRebuildTotal.WithLabelValues(trigger).Inc()

	if s.notifier != nil {
		s.notifier.PushGrid(sess.storeID, lines)
	}

	return &GridResponse{
		StoreID:    sess.storeID,
		SourceID:   sess.sourceID,
		SearchTerm: sess.searchTerm,
		Lines:      lines,
	}
}

// promoFacts 汇集促销资格规则需要的事实。
// 买家画像通过 Baggage 随调用链传入。
func promoFacts(ctx context.Context, storeID string) map[string]interface{} {
	facts := map[string]interface{}{
		"store_id": storeID,
	}
	bag := baggage.FromContext(ctx)
	if v := bag.Member("buyer_id").Value(); v != "" {
		facts["buyer_id"] = v
	}
	if v := bag.Member("buyer_segment").Value(); v != "" {
		facts["buyer_segment"] = v
	}
	return facts
}

func findBySKU(products []domain.Product, sku string) (domain.Product, bool) {
	for _, p := range products {
		if p.SKU == sku {
			return p, true
		}
	}
	return domain.Product{}, false
}
