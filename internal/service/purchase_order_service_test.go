package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vrindashine1/erp-po-inventory/internal/apperror"
	"github.com/vrindashine1/erp-po-inventory/internal/authz"
	"github.com/vrindashine1/erp-po-inventory/internal/model"
)

// --- In-memory fakes ---
//
// The fake transaction manager snapshots the store before running the
// callback and restores it when the callback errors, mirroring the
// rollback guarantee the real GORM transaction provides. Repositories
// return copies so nothing persists without an explicit Save.

type fakeStore struct {
	users     map[uuid.UUID]model.User
	suppliers map[uuid.UUID]model.Supplier
	products  map[uuid.UUID]model.Product
	pos       map[uuid.UUID]*model.PurchaseOrder
	ledger    []model.InventoryTransaction
	seq       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[uuid.UUID]model.User),
		suppliers: make(map[uuid.UUID]model.Supplier),
		products:  make(map[uuid.UUID]model.Product),
		pos:       make(map[uuid.UUID]*model.PurchaseOrder),
	}
}

func copyPO(po *model.PurchaseOrder) *model.PurchaseOrder {
	cp := *po
	cp.Items = append([]model.PurchaseOrderItem(nil), po.Items...)
	return &cp
}

func (s *fakeStore) clone() *fakeStore {
	cp := newFakeStore()
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.suppliers {
		cp.suppliers[k] = v
	}
	for k, v := range s.products {
		cp.products[k] = v
	}
	for k, v := range s.pos {
		cp.pos[k] = copyPO(v)
	}
	cp.ledger = append([]model.InventoryTransaction(nil), s.ledger...)
	cp.seq = s.seq
	return cp
}

type fakeTxManager struct {
	store *fakeStore
}

func (t *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	backup := t.store.clone()
	if err := fn(ctx); err != nil {
		*t.store = *backup
		return err
	}
	return nil
}

type fakePoRepo struct {
	store *fakeStore
}

func (r *fakePoRepo) Create(_ context.Context, po *model.PurchaseOrder) error {
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	r.store.pos[po.ID] = copyPO(po)
	return nil
}

func (r *fakePoRepo) CreateItem(_ context.Context, item *model.PurchaseOrderItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	po, ok := r.store.pos[item.PurchaseOrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	po.Items = append(po.Items, *item)
	return nil
}

func (r *fakePoRepo) Save(_ context.Context, po *model.PurchaseOrder) error {
	stored, ok := r.store.pos[po.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	items := stored.Items
	*stored = *po
	stored.Items = items
	return nil
}

func (r *fakePoRepo) SaveItem(_ context.Context, item *model.PurchaseOrderItem) error {
	po, ok := r.store.pos[item.PurchaseOrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range po.Items {
		if po.Items[i].ID == item.ID {
			po.Items[i] = *item
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakePoRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.pos, id)
	return nil
}

func (r *fakePoRepo) findWithRelations(id uuid.UUID) (*model.PurchaseOrder, error) {
	po, ok := r.store.pos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := copyPO(po)
	cp.Supplier = r.store.suppliers[cp.SupplierID]
	cp.CreatedBy = r.store.users[cp.CreatedByID]
	if cp.ApprovedByID != nil {
		if u, ok := r.store.users[*cp.ApprovedByID]; ok {
			cp.ApprovedBy = &u
		}
	}
	for i := range cp.Items {
		cp.Items[i].Product = r.store.products[cp.Items[i].ProductID]
	}
	return cp, nil
}

func (r *fakePoRepo) FindByIDWithItems(_ context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	return r.findWithRelations(id)
}

func (r *fakePoRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	return r.findWithRelations(id)
}

func (r *fakePoRepo) List(_ context.Context, page, limit int, status string) ([]model.PurchaseOrder, int64, error) {
	var result []model.PurchaseOrder
	for id := range r.store.pos {
		po, _ := r.findWithRelations(id)
		if status == "" || po.Status == status {
			result = append(result, *po)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakePoRepo) NextPoNumber(_ context.Context) (string, error) {
	r.store.seq++
	return fmt.Sprintf("PO-%05d", r.store.seq), nil
}

type fakeSupplierRepo struct {
	store *fakeStore
}

func (r *fakeSupplierRepo) Create(_ context.Context, s *model.Supplier) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.store.suppliers[s.ID] = *s
	return nil
}

func (r *fakeSupplierRepo) Update(_ context.Context, s *model.Supplier) error {
	r.store.suppliers[s.ID] = *s
	return nil
}

func (r *fakeSupplierRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.suppliers, id)
	return nil
}

func (r *fakeSupplierRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	s, ok := r.store.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *fakeSupplierRepo) List(_ context.Context, page, limit int) ([]model.Supplier, int64, error) {
	var result []model.Supplier
	for _, s := range r.store.suppliers {
		result = append(result, s)
	}
	return result, int64(len(result)), nil
}

func (r *fakeSupplierRepo) CountReferencingOrders(_ context.Context, id uuid.UUID) (int64, error) {
	var count int64
	for _, po := range r.store.pos {
		if po.SupplierID == id {
			count++
		}
	}
	return count, nil
}

type fakeProductRepo struct {
	store *fakeStore
}

func (r *fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.store.products[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *model.Product) error {
	r.store.products[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.products, id)
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.store.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *fakeProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeProductRepo) List(_ context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	var result []model.Product
	for _, p := range r.store.products {
		result = append(result, p)
	}
	return result, int64(len(result)), nil
}

func (r *fakeProductRepo) UpdateStock(_ context.Context, id uuid.UUID, stock decimal.Decimal) error {
	p, ok := r.store.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.CurrentStock = stock
	r.store.products[id] = p
	return nil
}

type fakeLedgerRepo struct {
	store *fakeStore
}

func (r *fakeLedgerRepo) Create(_ context.Context, tx *model.InventoryTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	r.store.ledger = append(r.store.ledger, *tx)
	return nil
}

func (r *fakeLedgerRepo) List(_ context.Context, page, limit int) ([]model.InventoryTransaction, int64, error) {
	return append([]model.InventoryTransaction(nil), r.store.ledger...), int64(len(r.store.ledger)), nil
}

// --- Fixture ---

type poFixture struct {
	store    *fakeStore
	svc      PurchaseOrderService
	employee authz.Actor
	manager  authz.Actor
	supplier model.Supplier
	productA model.Product
	productB model.Product
}

func newPoFixture(t *testing.T) *poFixture {
	t.Helper()

	store := newFakeStore()

	employee := authz.Actor{ID: uuid.New(), Role: model.RoleEmployee}
	manager := authz.Actor{ID: uuid.New(), Role: model.RoleManager}
	store.users[employee.ID] = model.User{ID: employee.ID, Username: "clerk", Role: model.RoleEmployee}
	store.users[manager.ID] = model.User{ID: manager.ID, Username: "boss", Role: model.RoleManager}

	supplier := model.Supplier{ID: uuid.New(), Name: "Acme Supplies"}
	store.suppliers[supplier.ID] = supplier

	productA := model.Product{ID: uuid.New(), Name: "Product A", SKU: "SKU-A", CurrentStock: decimal.Zero, ReorderThreshold: dec("5")}
	productB := model.Product{ID: uuid.New(), Name: "Product B", SKU: "SKU-B", CurrentStock: decimal.Zero, ReorderThreshold: dec("5")}
	store.products[productA.ID] = productA
	store.products[productB.ID] = productB

	svc := NewPurchaseOrderService(
		&fakePoRepo{store: store},
		&fakeSupplierRepo{store: store},
		&fakeProductRepo{store: store},
		&fakeLedgerRepo{store: store},
		&fakeTxManager{store: store},
		nil,
	)

	return &poFixture{
		store:    store,
		svc:      svc,
		employee: employee,
		manager:  manager,
		supplier: supplier,
		productA: productA,
		productB: productB,
	}
}

// createExamplePO creates the two-line order from the fixture products:
// (A: ordered 10 @ 5) and (B: ordered 4 @ 20).
func (f *poFixture) createExamplePO(t *testing.T) *PurchaseOrderResponse {
	t.Helper()
	po, err := f.svc.Create(context.Background(), f.employee, CreatePurchaseOrderRequest{
		SupplierID: f.supplier.ID.String(),
		Items: []CreatePoItemRequest{
			{ProductID: f.productA.ID.String(), OrderedQuantity: dec("10"), UnitPrice: dec("5")},
			{ProductID: f.productB.ID.String(), OrderedQuantity: dec("4"), UnitPrice: dec("20")},
		},
	})
	require.NoError(t, err)
	return po
}

func (f *poFixture) itemIDFor(t *testing.T, po *PurchaseOrderResponse, productID uuid.UUID) string {
	t.Helper()
	for _, item := range po.Items {
		if item.ProductID == productID.String() {
			return item.ID
		}
	}
	t.Fatalf("no item for product %s", productID)
	return ""
}

// --- Tests ---

func TestCreatePurchaseOrder(t *testing.T) {
	f := newPoFixture(t)
	ctx := context.Background()

	po := f.createExamplePO(t)

	assert.Equal(t, "PO-00001", po.PoNumber)
	assert.Equal(t, model.POStatusPending, po.Status)
	assert.True(t, po.TotalAmount.Equal(dec("130")))
	assert.Equal(t, "Acme Supplies", po.SupplierName)
	assert.Equal(t, "clerk", po.CreatedByUsername)
	assert.Equal(t, 2, po.ItemsCount)
	assert.Nil(t, po.ApprovedBy)

	// Numbers are sequential
	second, err := f.svc.Create(ctx, f.employee, CreatePurchaseOrderRequest{
		SupplierID: f.supplier.ID.String(),
		Items: []CreatePoItemRequest{
			{ProductID: f.productA.ID.String(), OrderedQuantity: dec("1"), UnitPrice: dec("1")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "PO-00002", second.PoNumber)
}

func TestCreatePurchaseOrderValidation(t *testing.T) {
	f := newPoFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreatePurchaseOrderRequest
		kind apperror.Kind
	}{
		{
			name: "empty item list",
			req:  CreatePurchaseOrderRequest{SupplierID: f.supplier.ID.String()},
			kind: apperror.KindValidation,
		},
		{
			name: "non-positive ordered quantity",
			req: CreatePurchaseOrderRequest{
				SupplierID: f.supplier.ID.String(),
				Items: []CreatePoItemRequest{
					{ProductID: f.productA.ID.String(), OrderedQuantity: dec("0"), UnitPrice: dec("5")},
				},
			},
			kind: apperror.KindValidation,
		},
		{
			name: "non-positive unit price",
			req: CreatePurchaseOrderRequest{
				SupplierID: f.supplier.ID.String(),
				Items: []CreatePoItemRequest{
					{ProductID: f.productA.ID.String(), OrderedQuantity: dec("5"), UnitPrice: dec("-2")},
				},
			},
			kind: apperror.KindValidation,
		},
		{
			name: "duplicate product",
			req: CreatePurchaseOrderRequest{
				SupplierID: f.supplier.ID.String(),
				Items: []CreatePoItemRequest{
					{ProductID: f.productA.ID.String(), OrderedQuantity: dec("5"), UnitPrice: dec("2")},
					{ProductID: f.productA.ID.String(), OrderedQuantity: dec("3"), UnitPrice: dec("2")},
				},
			},
			kind: apperror.KindValidation,
		},
		{
			name: "unknown supplier",
			req: CreatePurchaseOrderRequest{
				SupplierID: uuid.NewString(),
				Items: []CreatePoItemRequest{
					{ProductID: f.productA.ID.String(), OrderedQuantity: dec("5"), UnitPrice: dec("2")},
				},
			},
			kind: apperror.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.employee, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}

	assert.Empty(t, f.store.pos, "no order may survive a failed creation")
}

func TestApprovePurchaseOrder(t *testing.T) {
	f := newPoFixture(t)
	ctx := context.Background()
	po := f.createExamplePO(t)

	// Non-manager is rejected and the status is untouched
	_, err := f.svc.Approve(ctx, f.employee, po.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	reloaded, err := f.svc.GetByID(ctx, f.employee, po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusPending, reloaded.Status)

	// Manager approval succeeds exactly once
	approved, err := f.svc.Approve(ctx, f.manager, po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, f.manager.ID.String(), *approved.ApprovedBy)
	assert.Equal(t, "boss", approved.ApprovedByUsername)
	assert.NotNil(t, approved.ApprovalDate)

	_, err = f.svc.Approve(ctx, f.manager, po.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestReceiveGoodsFullLifecycle(t *testing.T) {
	f := newPoFixture(t)
	ctx := context.Background()
	po := f.createExamplePO(t)

	_, err := f.svc.Approve(ctx, f.manager, po.ID)
	require.NoError(t, err)

	itemA := f.itemIDFor(t, po, f.productA.ID)
	itemB := f.itemIDFor(t, po, f.productB.ID)

	// Receive {A:10, B:2} -> Partially Delivered
	updated, err := f.svc.ReceiveGoods(ctx, f.manager, po.ID, ReceiveGoodsRequest{
		Items: []ReceiveLineRequest{
			{ItemID: itemA, ReceivedQty: dec("10")},
			{ItemID: itemB, ReceivedQty: dec("2")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.POStatusPartiallyDelivered, updated.Status)

	for _, item := range updated.Items {
		switch item.ID {
		case itemA:
			assert.True(t, item.ReceivedQuantity.Equal(dec("10")))
		case itemB:
			assert.True(t, item.ReceivedQuantity.Equal(dec("2")))
		}
	}

	assert.True(t, f.store.products[f.productA.ID].CurrentStock.Equal(dec("10")))
	assert.True(t, f.store.products[f.productB.ID].CurrentStock.Equal(dec("2")))

	// One "In" ledger entry per line, quantity equal to the applied delta
	require.Len(t, f.store.ledger, 2)
	for _, entry := range f.store.ledger {
		assert.Equal(t, model.TxTypeIn, entry.TransactionType)
		require.NotNil(t, entry.PurchaseOrderItemID)
	}

	// Receive {B:2} -> Completed
	final, err := f.svc.ReceiveGoods(ctx, f.manager, po.ID, ReceiveGoodsRequest{
		Items: []ReceiveLineRequest{{ItemID: itemB, ReceivedQty: dec("2")}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.POStatusCompleted, final.Status)
	assert.True(t, f.store.products[f.productB.ID].CurrentStock.Equal(dec("4")))
	assert.Len(t, f.store.ledger, 3)
}

func TestReceiveGoodsInvalidStates(t *testing.T) {
	f := newPoFixture(t)
	ctx := context.Background()
	po := f.createExamplePO(t)
	itemA := f.itemIDFor(t, po, f.productA.ID)

	lines := ReceiveGoodsRequest{Items: []ReceiveLineRequest{{ItemID: itemA, ReceivedQty: dec("1")}}}

	// Pending order: receipt rejected, no side effects
	_, err := f.svc.ReceiveGoods(ctx, f.manager, po.ID, lines)
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
	assert.Empty(t, f.store.ledger)
	assert.True(t, f.store.products[f.productA.ID].CurrentStock.IsZero())

	// Complete the order, then try again
	_, err = f.svc.Approve(ctx, f.manager, po.ID)
	require.NoError(t, err)
	itemB := f.itemIDFor(t, po, f.productB.ID)
	_, err = f.svc.ReceiveGoods(ctx, f.manager, po.ID, ReceiveGoodsRequest{
		Items: []ReceiveLineRequest{
			{ItemID: itemA, ReceivedQty: dec("10")},
			{ItemID: itemB, ReceivedQty: dec("4")},
		},
	})
	require.NoError(t, err)

	_, err = f.svc.ReceiveGoods(ctx, f.manager, po.ID, lines)
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestReceiveGoodsAllOrNothing(t *testing.T) {
	f := newPoFixture(t)
	ctx := context.Background()
	po := f.createExamplePO(t)
	itemA := f.itemIDFor(t, po, f.productA.ID)
	itemB := f.itemIDFor(t, po, f.productB.ID)

	_, err := f.svc.Approve(ctx, f.manager, po.ID)
	require.NoError(t, err)

	// Second line over-receives: the valid first line must not stick either
	_, err = f.svc.ReceiveGoods(ctx, f.manager, po.ID, ReceiveGoodsRequest{
		Items: []ReceiveLineRequest{
			{ItemID: itemA, ReceivedQty: dec("5")},
			{ItemID: itemB, ReceivedQty: dec("99")},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindOverReceipt, apperror.KindOf(err))

	assert.True(t, f.store.products[f.productA.ID].CurrentStock.IsZero(), "stock must be rolled back")
	assert.Empty(t, f.store.ledger, "ledger must be rolled back")
	for _, item := range f.store.pos[uuid.MustParse(po.ID)].Items {
		assert.True(t, item.ReceivedQuantity.IsZero(), "received quantities must be rolled back")
	}

	// Status unchanged as well
	reloaded, err := f.svc.GetByID(ctx, f.employee, po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusApproved, reloaded.Status)
}

func TestReceiveGoodsRejectsForeignAndUnknownLines(t *testing.T) {
	f := newPoFixture(t)
	ctx := context.Background()
	po := f.createExamplePO(t)

	_, err := f.svc.Approve(ctx, f.manager, po.ID)
	require.NoError(t, err)

	_, err = f.svc.ReceiveGoods(ctx, f.manager, po.ID, ReceiveGoodsRequest{
		Items: []ReceiveLineRequest{{ItemID: uuid.NewString(), ReceivedQty: dec("1")}},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = f.svc.ReceiveGoods(ctx, f.manager, po.ID, ReceiveGoodsRequest{})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	// Employee may not receive at all
	itemA := f.itemIDFor(t, po, f.productA.ID)
	_, err = f.svc.ReceiveGoods(ctx, f.employee, po.ID, ReceiveGoodsRequest{
		Items: []ReceiveLineRequest{{ItemID: itemA, ReceivedQty: dec("1")}},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestDeletePurchaseOrder(t *testing.T) {
	f := newPoFixture(t)
	ctx := context.Background()

	other := authz.Actor{ID: uuid.New(), Role: model.RoleEmployee}
	f.store.users[other.ID] = model.User{ID: other.ID, Username: "other", Role: model.RoleEmployee}

	// A stranger may not delete someone else's pending order
	po := f.createExamplePO(t)
	err := f.svc.Delete(ctx, other, po.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	// The creator may, while it is pending
	require.NoError(t, f.svc.Delete(ctx, f.employee, po.ID))
	_, err = f.svc.GetByID(ctx, f.employee, po.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	// Once approved nobody may delete, not even a manager
	po = f.createExamplePO(t)
	_, err = f.svc.Approve(ctx, f.manager, po.ID)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, f.employee, po.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
	err = f.svc.Delete(ctx, f.manager, po.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestListPurchaseOrdersStatusFilter(t *testing.T) {
	f := newPoFixture(t)
	ctx := context.Background()

	first := f.createExamplePO(t)
	f.createExamplePO(t)

	_, err := f.svc.Approve(ctx, f.manager, first.ID)
	require.NoError(t, err)

	pending, total, err := f.svc.List(ctx, f.employee, PoListFilter{Status: model.POStatusPending})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, pending, 1)
	assert.Equal(t, model.POStatusPending, pending[0].Status)

	all, total, err := f.svc.List(ctx, f.employee, PoListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)
}
