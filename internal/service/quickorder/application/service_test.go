package application

import (
	"context"
	"math/rand"
	"testing"

	"go.opentelemetry.io/otel"

	"quickorder/internal/service/quickorder/domain"
	"quickorder/internal/service/quickorder/port"
)

// ---- 端口假实现 ----

type fakeCatalog struct {
	products   []domain.Product
	orderLines map[string][]domain.Product
	recs       []string
	recErr     error
}

func (f *fakeCatalog) FetchCatalog(ctx context.Context, storeID string) ([]domain.Product, error) {
	return f.products, nil
}

func (f *fakeCatalog) FetchOrderLines(ctx context.Context, storeID, orderID string) ([]domain.Product, error) {
	return f.orderLines[orderID], nil
}

func (f *fakeCatalog) FetchRecommendations(ctx context.Context, storeID string) ([]string, error) {
	return f.recs, f.recErr
}

type fakeCart struct {
	qty       map[string]float64
	committed []map[string]float64
}

func (f *fakeCart) FetchQuantities(ctx context.Context, cartID string) (map[string]float64, error) {
	out := make(map[string]float64, len(f.qty))
	for k, v := range f.qty {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCart) Commit(ctx context.Context, cartID string, deltas map[string]float64) error {
	f.committed = append(f.committed, deltas)
	for k, v := range deltas {
		f.qty[k] += v
	}
	return nil
}

type fakePromos struct {
	promos map[string]domain.Promotion
}

func (f *fakePromos) FetchPromotions(ctx context.Context, storeID string, facts map[string]interface{}) (map[string]domain.Promotion, error) {
	return f.promos, nil
}

type fakeNotifier struct {
	pushes int
}

func (f *fakeNotifier) PushGrid(storeID string, lines []domain.Line) { f.pushes++ }

type fakePublisher struct {
	events []*port.CommitEvent
}

func (f *fakePublisher) PublishCommit(ctx context.Context, event *port.CommitEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeLocker struct {
	locks, unlocks int
}

func (f *fakeLocker) Lock(ctx context.Context, cartID string) (func(), error) {
	f.locks++
	return func() { f.unlocks++ }, nil
}

func testProducts() []domain.Product {
	return []domain.Product{
		domain.Product{ID: "p1", SKU: "SKU-1", Name: "Espresso Beans", UnitPrice: 100,
			Tiers:  []domain.PriceTier{{MinQty: 1, MaxQty: 9, Price: 100}, {MinQty: 10, Price: 90}},
			MinQty: 1, MaxQty: domain.UnboundedMax, Increment: 1, Stock: 40}.Normalized(),
		domain.Product{ID: "p2", SKU: "SKU-2", Name: "Filter Paper", UnitPrice: 5,
			MinQty: 5, MaxQty: 60, Increment: 5, Stock: domain.UnlimitedStock}.Normalized(),
		domain.Product{ID: "p3", SKU: "SKU-3", Name: "Milk Jug", UnitPrice: 30,
			MinQty: 1, MaxQty: domain.UnboundedMax, Increment: 1, Stock: 0}.Normalized(),
	}
}

type fixture struct {
	svc       *QuickOrderService
	catalog   *fakeCatalog
	cart      *fakeCart
	notifier  *fakeNotifier
	publisher *fakePublisher
	locker    *fakeLocker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog: &fakeCatalog{
			products: testProducts(),
			orderLines: map[string][]domain.Product{
				"order-7": {testProducts()[0]},
			},
		},
		cart:      &fakeCart{qty: map[string]float64{"p1": 2}},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		locker:    &fakeLocker{},
	}
	f.svc = NewQuickOrderService(
		f.catalog, f.cart, &fakePromos{}, f.notifier, f.publisher, f.locker,
		otel.Tracer("test"),
		rand.New(rand.NewSource(42)),
	)
	if _, err := f.svc.RefreshAll(context.Background(), "store-1"); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	return f
}

func TestRefreshAllBuildsGrid(t *testing.T) {
	f := newFixture(t)

	grid, err := f.svc.RefreshAll(context.Background(), "store-1")
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if len(grid.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(grid.Lines))
	}
	// 购物车快照注入到对应行
	if grid.Lines[0].InCart != 2 {
		t.Errorf("InCart = %v, want 2", grid.Lines[0].InCart)
	}
	if f.notifier.pushes == 0 {
		t.Error("expected grid push on refresh")
	}
}

func TestApplyIntentFoldsDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, grid, err := f.svc.ApplyIntent(ctx, &IntentRequest{StoreID: "store-1", SKU: "SKU-1", Action: "add", Quantity: 3})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}
	if resp.Delta != 3 || resp.FinalQty != 3 {
		t.Fatalf("delta/final = %v/%v, want 3/3", resp.Delta, resp.FinalQty)
	}
	if grid.Lines[0].Input.Value != 3 {
		t.Errorf("grid staged qty = %v, want 3", grid.Lines[0].Input.Value)
	}

	// 第二次 add 在暂存值上累加
	resp, _, err = f.svc.ApplyIntent(ctx, &IntentRequest{StoreID: "store-1", SKU: "SKU-1", Action: "add", Quantity: 2})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}
	if resp.FinalQty != 5 {
		t.Errorf("FinalQty = %v, want 5", resp.FinalQty)
	}
}

func TestApplyIntentCorrectionsSurface(t *testing.T) {
	f := newFixture(t)

	// SKU-2: min 5 / inc 5，add 1 先抬到最小值
	resp, _, err := f.svc.ApplyIntent(context.Background(), &IntentRequest{StoreID: "store-1", SKU: "SKU-2", Action: "add", Quantity: 1})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}
	if !resp.Adjusted {
		t.Fatal("expected adjusted")
	}
	if resp.FinalQty != 5 {
		t.Errorf("FinalQty = %v, want 5", resp.FinalQty)
	}
	if resp.Message == "" {
		t.Error("expected a user-facing message for the adjustment")
	}
}

func TestApplyIntentUnknownSKU(t *testing.T) {
	f := newFixture(t)

	resp, grid, err := f.svc.ApplyIntent(context.Background(), &IntentRequest{StoreID: "store-1", SKU: "SKU-404", Action: "add", Quantity: 1})
	if err != nil {
		t.Fatalf("unknown sku must not be a transport error: %v", err)
	}
	if !resp.Rejected {
		t.Error("expected rejection for unknown sku")
	}
	if grid != nil {
		t.Error("unknown sku must not trigger a rebuild")
	}
}

func TestSearchIntentProducesNoDelta(t *testing.T) {
	f := newFixture(t)

	resp, grid, err := f.svc.ApplyIntent(context.Background(), &IntentRequest{StoreID: "store-1", SKU: "SKU-1", Action: "search"})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}
	if resp.Delta != 0 || resp.Rejected {
		t.Errorf("search must be a no-op delta, got %+v", resp)
	}
	if grid != nil {
		t.Error("search intent must not mutate quantities")
	}
}

func TestEditQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, _, err := f.svc.EditQuantity(ctx, &QuantityEditRequest{StoreID: "store-1", SKU: "SKU-1", Quantity: "4"})
	if err != nil {
		t.Fatalf("EditQuantity: %v", err)
	}
	if resp.FinalQty != 4 {
		t.Fatalf("FinalQty = %v, want 4", resp.FinalQty)
	}

	// 清空输入：零数量从暂存表移除
	resp, grid, err := f.svc.EditQuantity(ctx, &QuantityEditRequest{StoreID: "store-1", SKU: "SKU-1", Quantity: ""})
	if err != nil {
		t.Fatalf("EditQuantity: %v", err)
	}
	if resp.FinalQty != 0 {
		t.Errorf("FinalQty = %v, want 0", resp.FinalQty)
	}
	if grid.Lines[0].InputDisplay != "" {
		t.Errorf("cleared line should render empty, got %q", grid.Lines[0].InputDisplay)
	}

	// 非法输入不改状态、以数据形式报告
	resp, grid, err = f.svc.EditQuantity(ctx, &QuantityEditRequest{StoreID: "store-1", SKU: "SKU-1", Quantity: "abc"})
	if err != nil {
		t.Fatalf("EditQuantity: %v", err)
	}
	if !resp.Rejected || grid != nil {
		t.Errorf("invalid input must reject without rebuild, got %+v", resp)
	}
}

func TestSwitchSourceResetsInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.svc.ApplyIntent(ctx, &IntentRequest{StoreID: "store-1", SKU: "SKU-1", Action: "add", Quantity: 3}); err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	grid, err := f.svc.SwitchSource(ctx, &SwitchSourceRequest{StoreID: "store-1", OrderID: "order-7"})
	if err != nil {
		t.Fatalf("SwitchSource: %v", err)
	}
	if grid.SourceID != "order-7" {
		t.Errorf("SourceID = %q, want order-7", grid.SourceID)
	}
	if len(grid.Lines) != 1 {
		t.Fatalf("expected 1 order line, got %d", len(grid.Lines))
	}
	if grid.Lines[0].InputDisplay != "" {
		t.Error("staged quantities must be cleared on source switch")
	}

	// 切回全量目录同样清空
	grid, err = f.svc.SwitchSource(ctx, &SwitchSourceRequest{StoreID: "store-1"})
	if err != nil {
		t.Fatalf("SwitchSource: %v", err)
	}
	if grid.SourceID != "" || len(grid.Lines) != 3 {
		t.Errorf("expected full catalog back, got source=%q lines=%d", grid.SourceID, len(grid.Lines))
	}
}

func TestCommitCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 空暂存：不提交
	resp, err := f.svc.CommitCart(ctx, "store-1")
	if err != nil {
		t.Fatalf("CommitCart: %v", err)
	}
	if resp.Committed {
		t.Fatal("empty staging must not commit")
	}

	if _, _, err := f.svc.ApplyIntent(ctx, &IntentRequest{StoreID: "store-1", SKU: "SKU-1", Action: "add", Quantity: 3}); err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	resp, err = f.svc.CommitCart(ctx, "store-1")
	if err != nil {
		t.Fatalf("CommitCart: %v", err)
	}
	if !resp.Committed || resp.Lines != 1 || resp.EventID == "" {
		t.Fatalf("unexpected commit result: %+v", resp)
	}
	if f.locker.locks != 2 || f.locker.unlocks != 2 {
		t.Errorf("lock/unlock = %d/%d, want 2/2", f.locker.locks, f.locker.unlocks)
	}
	if len(f.cart.committed) != 1 || f.cart.committed[0]["p1"] != 3 {
		t.Errorf("cart deltas = %+v", f.cart.committed)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Lines["p1"] != 3 {
		t.Errorf("commit event = %+v", f.publisher.events)
	}

	// 提交后暂存清空，购物车快照刷新
	grid := f.svc.Grid(ctx, "store-1", "")
	if grid.Lines[0].InputDisplay != "" {
		t.Error("staging must be empty after commit")
	}
	if grid.Lines[0].InCart != 5 {
		t.Errorf("InCart = %v, want 5", grid.Lines[0].InCart)
	}
}

func TestCommitCartBlockedByInvalidLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// p3 无货：set 会被库存钳到 0 并拒绝，需要直接注入非法暂存值
	sess := f.svc.getSession("store-1")
	sess.mu.Lock()
	sess.inputQty["p3"] = domain.QuantityOf(2)
	sess.inputQty["p1"] = domain.QuantityOf(3)
	sess.mu.Unlock()

	resp, err := f.svc.CommitCart(ctx, "store-1")
	if err != nil {
		t.Fatalf("CommitCart: %v", err)
	}
	if resp.Committed {
		t.Fatal("commit must be rejected when any line is invalid")
	}
	if len(resp.InvalidSKUs) != 1 || resp.InvalidSKUs[0] != "SKU-3" {
		t.Errorf("InvalidSKUs = %v, want [SKU-3]", resp.InvalidSKUs)
	}
	if len(f.cart.committed) != 0 {
		t.Error("no partial commit allowed")
	}
}

func TestRecommendations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 上游有数据：原样返回
	f.catalog.recs = []string{"p9"}
	resp, err := f.svc.Recommendations(ctx, "store-1")
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if resp.Sampled || len(resp.ProductIDs) != 1 || resp.ProductIDs[0] != "p9" {
		t.Errorf("unexpected recommendations: %+v", resp)
	}

	// 上游为空：从目录采样两个互不相同的商品
	f.catalog.recs = nil
	resp, err = f.svc.Recommendations(ctx, "store-1")
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if !resp.Sampled || len(resp.ProductIDs) != 2 {
		t.Fatalf("expected 2 sampled ids, got %+v", resp)
	}
	if resp.ProductIDs[0] == resp.ProductIDs[1] {
		t.Error("sampled ids must be distinct")
	}
}

func TestGridSearchTerm(t *testing.T) {
	f := newFixture(t)

	grid := f.svc.Grid(context.Background(), "store-1", "filter")
	if len(grid.Lines) != 1 || grid.Lines[0].Product.SKU != "SKU-2" {
		t.Fatalf("expected only Filter Paper, got %d lines", len(grid.Lines))
	}
	if grid.SearchTerm != "filter" {
		t.Errorf("SearchTerm = %q", grid.SearchTerm)
	}
}
