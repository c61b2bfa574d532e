package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"gallery-shop/internal/models"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the Postgres store. Reads hand out
// copies so that services cannot change stored state without going through
// the repository methods.
type memStore struct {
	mu        sync.Mutex
	products  map[int64]models.Product
	discounts map[int64]models.Discount
	carts     map[int64]models.Cart
	orders    map[int64]models.Order
	processed map[string]string
	nextID    int64

	createOrderErr error
	markPaidCalls  int
	onGetProduct   func()
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[int64]models.Product),
		discounts: make(map[int64]models.Discount),
		carts:     make(map[int64]models.Cart),
		orders:    make(map[int64]models.Order),
		processed: make(map[string]string),
		nextID:    100,
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addProduct(id int64, name, price string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = models.Product{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Available: true,
	}
}

func (m *memStore) setAvailable(id int64, available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.Available = available
	m.products[id] = p
}

func (m *memStore) setPrice(id int64, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.Price = decimal.RequireFromString(price)
	m.products[id] = p
}

func (m *memStore) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *memStore) addDiscount(id int64, code, percentage string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discounts[id] = models.Discount{
		ID:         id,
		Code:       code,
		Percentage: decimal.RequireFromString(percentage),
		Active:     active,
	}
}

func (m *memStore) setDiscountActive(id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.discounts[id]
	d.Active = active
	m.discounts[id] = d
}

func (m *memStore) cartExists(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.carts[id]
	return ok
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func copyCart(c models.Cart) *models.Cart {
	c.Items = append([]models.CartItem(nil), c.Items...)
	return &c
}

func copyOrder(o models.Order) *models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return &o
}

// ProductRepository

func (m *memStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	if m.onGetProduct != nil {
		m.onGetProduct()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// DiscountRepository

func (m *memStore) GetDiscountByCode(ctx context.Context, code string) (*models.Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.discounts {
		if d.Code == code {
			d := d
			return &d, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetDiscountByID(ctx context.Context, id int64) (*models.Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.discounts[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// CartRepository

func (m *memStore) GetCartByID(ctx context.Context, id int64) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return nil, nil
	}
	return copyCart(c), nil
}

func (m *memStore) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if c.UserID != nil && *c.UserID == userID {
			return copyCart(c), nil
		}
	}
	return nil, nil
}

func (m *memStore) GetCartBySessionToken(ctx context.Context, token string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if c.SessionToken != nil && *c.SessionToken == token {
			return copyCart(c), nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateCart(ctx context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart.ID = m.id()
	cart.CreatedAt = time.Now()
	m.carts[cart.ID] = *copyCart(*cart)
	return nil
}

func (m *memStore) UpsertCartItem(ctx context.Context, cartID, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok {
		return errors.New("cart does not exist")
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			m.carts[cartID] = c
			return nil
		}
	}
	c.Items = append(c.Items, models.CartItem{ID: m.id(), CartID: cartID, ProductID: productID, Quantity: quantity})
	m.carts[cartID] = c
	return nil
}

func (m *memStore) DeleteCartItem(ctx context.Context, cartID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.carts[cartID]
	kept := make([]models.CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
	m.carts[cartID] = c
	return nil
}

func (m *memStore) ClearCartItems(ctx context.Context, cartID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.carts[cartID]
	c.Items = nil
	m.carts[cartID] = c
	return nil
}

func (m *memStore) SetCartDiscount(ctx context.Context, cartID int64, discountID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.carts[cartID]
	c.DiscountID = discountID
	m.carts[cartID] = c
	return nil
}

func (m *memStore) DeleteCart(ctx context.Context, cartID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, cartID)
	return nil
}

// OrderRepository

func (m *memStore) CreateOrderTx(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createOrderErr != nil {
		return m.createOrderErr
	}
	order.ID = m.id()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	for i := range order.Items {
		order.Items[i].ID = m.id()
		order.Items[i].OrderID = order.ID
	}
	m.orders[order.ID] = *copyOrder(*order)
	return nil
}

func (m *memStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (m *memStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if key != "" && o.IdempotencyKey == key {
			return copyOrder(o), nil
		}
	}
	return nil, nil
}

func (m *memStore) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[orderID]
	o.TotalPrice = total
	m.orders[orderID] = o
	return nil
}

func (m *memStore) MarkOrderPaid(ctx context.Context, orderID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markPaidCalls++
	o, ok := m.orders[orderID]
	if !ok || o.Paid {
		return false, nil
	}
	o.Paid = true
	m.orders[orderID] = o
	return true, nil
}

// ProcessedEventLog

func (m *memStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.processed[eventID]
	return ok, nil
}

func (m *memStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = eventType
	return nil
}

// StockStore and StockReserver

func (m *memStore) DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	m.products[productID] = p
	return true, nil
}

func (m *memStore) RestoreStock(ctx context.Context, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[productID]
	p.Stock += quantity
	m.products[productID] = p
	return nil
}

func (m *memStore) GetProducts(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

type memLocker struct {
	mu     sync.Mutex
	held   map[string]string
	tokens int
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[name]; ok {
		return "", false, nil
	}
	l.tokens++
	token := "token-" + strconv.Itoa(l.tokens)
	l.held[name] = token
	return token, true, nil
}

func (l *memLocker) ReleaseLock(ctx context.Context, name, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] == token {
		delete(l.held, name)
	}
	return nil
}

// expire drops the lock as if its TTL had run out.
func (l *memLocker) expire(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
}

type memIdempotency struct {
	mu     sync.Mutex
	orders map[string]int64
	err    error
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{orders: make(map[string]int64)}
}

func (c *memIdempotency) RememberOrder(ctx context.Context, key string, orderID int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.orders[key] = orderID
	return nil
}

func (c *memIdempotency) RecallOrder(ctx context.Context, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, false, c.err
	}
	id, ok := c.orders[key]
	return id, ok, nil
}

type recordingPublisher struct {
	mu         sync.Mutex
	created    []*models.OrderCreatedEvent
	paid       []*models.OrderPaidEvent
	checkedOut []*models.CartCheckedOutEvent
}

func (p *recordingPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, event)
	return nil
}

func (p *recordingPublisher) PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid = append(p.paid, event)
	return nil
}

func (p *recordingPublisher) PublishCartCheckedOut(ctx context.Context, event *models.CartCheckedOutEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkedOut = append(p.checkedOut, event)
	return nil
}

// shop bundles the services over shared fakes.
type shop struct {
	store       *memStore
	locker      *memLocker
	idempotency *memIdempotency
	publisher   *recordingPublisher
	carts       *CartService
	orders      *OrderService
}

func newShop() *shop {
	store := newMemStore()
	locker := newMemLocker()
	idem := newMemIdempotency()
	pub := &recordingPublisher{}

	carts := NewCartService(store, store, NewDiscountRegistry(store), locker, CartOptions{MaxLineQuantity: 99})
	orders := NewOrderService(store, carts, store, idem, pub, CheckoutOptions{
		ShippingFlatRate:      decimal.RequireFromString("3.00"),
		FreeShippingThreshold: decimal.RequireFromString("100.00"),
	})

	return &shop{
		store:       store,
		locker:      locker,
		idempotency: idem,
		publisher:   pub,
		carts:       carts,
		orders:      orders,
	}
}

func (s *shop) newCart(ctx context.Context, userID int64) *models.Cart {
	cart, err := s.carts.GetOrCreateCart(ctx, CartOwner{UserID: &userID})
	if err != nil {
		panic(err)
	}
	return cart
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func validContact() models.Contact {
	return models.Contact{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Address:    "12 Gallery Road",
		City:       "London",
		PostalCode: "N1 9GU",
	}
}
