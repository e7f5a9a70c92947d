package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"settlement-service/internal/domain"
	"settlement-service/internal/provider/paystack"
	"settlement-service/internal/repository"

	"go.uber.org/zap"
)

// In-memory fakes implementing the same conditional-update semantics as the
// SQL repositories, so the race-focused tests exercise the real contracts.

type fakeWallets struct {
	mu      sync.Mutex
	nextID  int64
	byUser  map[string]*domain.Wallet
	byID    map[int64]*domain.Wallet
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{
		nextID: 1,
		byUser: make(map[string]*domain.Wallet),
		byID:   make(map[int64]*domain.Wallet),
	}
}

func (f *fakeWallets) EnsureWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.byUser[userID]; ok {
		c := *w
		return &c, nil
	}
	w := &domain.Wallet{ID: f.nextID, UserID: userID, Currency: "NGN"}
	f.nextID++
	f.byUser[userID] = w
	f.byID[w.ID] = w
	c := *w
	return &c, nil
}

func (f *fakeWallets) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *w
	return &c, nil
}

func (f *fakeWallets) Credit(ctx context.Context, walletID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byID[walletID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	w.Balance += amount
	return w.Balance, nil
}

func (f *fakeWallets) Debit(ctx context.Context, walletID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byID[walletID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if w.Balance < amount {
		return 0, domain.ErrInsufficientFunds
	}
	w.Balance -= amount
	return w.Balance, nil
}

func (f *fakeWallets) balance(userID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.byUser[userID]; ok {
		return w.Balance
	}
	return 0
}

type fakeLedger struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.Transaction
	byRef  map[string]*domain.Transaction
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		nextID: 1,
		byID:   make(map[int64]*domain.Transaction),
		byRef:  make(map[string]*domain.Transaction),
	}
}

func (f *fakeLedger) Create(ctx context.Context, t *domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byRef[t.Reference]; ok {
		return domain.ErrConflict
	}
	t.ID = f.nextID
	f.nextID++
	t.Status = domain.TxStatusPending
	c := *t
	f.byID[t.ID] = &c
	f.byRef[t.Reference] = &c
	return nil
}

func (f *fakeLedger) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeLedger) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byRef[reference]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeLedger) AttachProviderReference(ctx context.Context, id int64, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if t.ProviderReference != nil && *t.ProviderReference != ref {
		return domain.ErrReferenceMismatch
	}
	t.ProviderReference = &ref
	return nil
}

func (f *fakeLedger) Complete(ctx context.Context, id int64) (bool, error) {
	return f.transition(id, domain.TxStatusCompleted)
}

func (f *fakeLedger) Fail(ctx context.Context, id int64) (bool, error) {
	return f.transition(id, domain.TxStatusFailed)
}

func (f *fakeLedger) transition(id int64, status domain.TransactionStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return false, domain.ErrTransactionNotFound
	}
	if t.Status != domain.TxStatusPending {
		return false, nil
	}
	t.Status = status
	return true, nil
}

func (f *fakeLedger) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Transaction
	for _, t := range f.byID {
		if (t.FromUser != nil && *t.FromUser == userID) || (t.ToUser != nil && *t.ToUser == userID) {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeProducts struct {
	mu            sync.Mutex
	nextID        int64
	products      map[int64]*domain.Product
	purchases     map[int64]*domain.DigitalPurchase // by purchase id
	purchaseByTx  map[int64]int64
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{
		nextID:       1,
		products:     make(map[int64]*domain.Product),
		purchases:    make(map[int64]*domain.DigitalPurchase),
		purchaseByTx: make(map[int64]int64),
	}
}

func (f *fakeProducts) addProduct(p *domain.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

func (f *fakeProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeProducts) RecordSale(ctx context.Context, productID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.SalesCount++
	p.Revenue += amount
	return nil
}

func (f *fakeProducts) CreatePurchase(ctx context.Context, p *domain.DigitalPurchase) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.purchaseByTx[p.TransactionID]; ok {
		return false, nil
	}
	p.ID = f.nextID
	f.nextID++
	p.PaymentStatus = domain.PaymentStatePaid
	p.AccessStatus = domain.AccessActive
	c := *p
	f.purchases[p.ID] = &c
	f.purchaseByTx[p.TransactionID] = p.ID
	return true, nil
}

func (f *fakeProducts) GetPurchase(ctx context.Context, id int64) (*domain.DigitalPurchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeProducts) HasActivePurchase(ctx context.Context, buyerID string, productID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.purchases {
		if p.BuyerID == buyerID && p.ProductID == productID &&
			p.PaymentStatus == domain.PaymentStatePaid && p.AccessStatus == domain.AccessActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProducts) IncrementDownload(ctx context.Context, purchaseID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[purchaseID]
	if !ok {
		return false, nil
	}
	if p.PaymentStatus != domain.PaymentStatePaid || p.AccessStatus != domain.AccessActive ||
		p.DownloadCount >= p.MaxDownloads {
		return false, nil
	}
	p.DownloadCount++
	return true, nil
}

func (f *fakeProducts) revoke(purchaseID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.purchases[purchaseID]; ok {
		p.AccessStatus = domain.AccessRevoked
	}
}

func (f *fakeProducts) purchaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.purchases)
}

// fakeGateway scripts verify outcomes per reference.
type fakeGateway struct {
	mu           sync.Mutex
	initCalls    int
	verifyCalls  int
	initErr      error
	verifyErr    error
	lastCallback string
	results      map[string]*paystack.VerifyResult
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{results: make(map[string]*paystack.VerifyResult)}
}

func (f *fakeGateway) succeed(reference string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[reference] = &paystack.VerifyResult{Succeeded: true, AmountMinor: amount, ProviderStatus: "success"}
}

func (f *fakeGateway) decline(reference string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[reference] = &paystack.VerifyResult{Succeeded: false, ProviderStatus: "failed"}
}

func (f *fakeGateway) Initialize(ctx context.Context, amountMinor int64, reference, email, callbackURL string) (*paystack.InitializeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	f.lastCallback = callbackURL
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &paystack.InitializeResult{
		AuthorizationURL: "https://checkout.example.com/" + reference,
		AccessCode:       "ac_" + reference,
		Reference:        reference,
	}, nil
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if r, ok := f.results[reference]; ok {
		return r, nil
	}
	return &paystack.VerifyResult{Succeeded: false, ProviderStatus: "abandoned"}, nil
}

type staticUsers map[string]string

func (d staticUsers) EmailByID(ctx context.Context, userID string) (string, error) {
	return d[userID], nil
}

// fakeNotifier counts deliveries per (user, kind).
type fakeNotifier struct {
	mu     sync.Mutex
	sent   map[string]int
	emails int
	fail   bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[string]int)}
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, kind string, payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("notification transport down")
	}
	f.sent[userID+"/"+kind]++
	return nil
}

func (f *fakeNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("email transport down")
	}
	f.emails++
	return nil
}

func (f *fakeNotifier) count(userID, kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[userID+"/"+kind]
}

// fakeSupportStore applies the transfer against fakeWallets with the same
// all-or-nothing contract as the SQL transaction.
type fakeSupportStore struct {
	mu        sync.Mutex
	wallets   *fakeWallets
	ledger    *fakeLedger
	events    map[int64]*domain.Event
	tiers     map[int64]*domain.SponsorshipTier
	supports  []*domain.EventSupport
}

func newFakeSupportStore(wallets *fakeWallets, ledger *fakeLedger) *fakeSupportStore {
	return &fakeSupportStore{
		wallets: wallets,
		ledger:  ledger,
		events:  make(map[int64]*domain.Event),
		tiers:   make(map[int64]*domain.SponsorshipTier),
	}
}

func (f *fakeSupportStore) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (f *fakeSupportStore) GetTier(ctx context.Context, tierID, eventID int64) (*domain.SponsorshipTier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tiers[tierID]
	if !ok || t.EventID != eventID {
		return nil, domain.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeSupportStore) Transfer(ctx context.Context, p repository.TransferParams) error {
	// Debit first; any later failure re-credits, mirroring the SQL rollback.
	if _, err := f.wallets.Debit(ctx, p.FromWalletID, p.Amount); err != nil {
		return err
	}
	if _, err := f.wallets.Credit(ctx, p.ToWalletID, p.Amount); err != nil {
		f.wallets.Credit(ctx, p.FromWalletID, p.Amount)
		return err
	}

	if err := f.ledger.Create(ctx, p.Transaction); err != nil {
		f.wallets.Debit(ctx, p.ToWalletID, p.Amount)
		f.wallets.Credit(ctx, p.FromWalletID, p.Amount)
		return err
	}
	f.ledger.Complete(ctx, p.Transaction.ID)
	p.Transaction.Status = domain.TxStatusCompleted

	f.mu.Lock()
	defer f.mu.Unlock()
	p.Support.ID = int64(len(f.supports) + 1)
	p.Support.TransactionID = p.Transaction.ID
	p.Support.Status = domain.SupportPaid
	f.supports = append(f.supports, p.Support)
	if e, ok := f.events[p.EventID]; ok {
		e.RaisedTotal += p.Amount
	}
	return nil
}

// fakeTicketStore reserves inventory with a bounded increment under one lock,
// all-or-nothing across line items.
type fakeTicketStore struct {
	mu          sync.Mutex
	nextID      int64
	events      map[int64]*domain.Event
	types       map[int64]*domain.TicketType
	orders      map[int64]*domain.Order
	tickets     map[string]*domain.Ticket
	ticketsByID map[int64]*domain.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{
		nextID:      1,
		events:      make(map[int64]*domain.Event),
		types:       make(map[int64]*domain.TicketType),
		orders:      make(map[int64]*domain.Order),
		tickets:     make(map[string]*domain.Ticket),
		ticketsByID: make(map[int64]*domain.Ticket),
	}
}

func (f *fakeTicketStore) GetEvent(ctx context.Context, eventID int64) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (f *fakeTicketStore) Purchase(ctx context.Context, p repository.PurchaseParams) (*domain.Order, []*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Availability check across all items before any mutation.
	var total int64
	for _, item := range p.Items {
		tt, ok := f.types[item.TicketTypeID]
		if !ok || tt.EventID != p.EventID {
			return nil, nil, domain.ErrNotFound
		}
		if tt.Sold+item.Quantity > tt.Quantity {
			return nil, nil, fmt.Errorf("%w for %s", domain.ErrSoldOut, tt.Name)
		}
		total += tt.Price * int64(item.Quantity)
	}

	order := &domain.Order{
		ID:         f.nextID,
		EventID:    p.EventID,
		BuyerID:    p.BuyerID,
		GuestEmail: p.GuestEmail,
		Total:      total,
		Currency:   p.Currency,
	}
	f.nextID++
	f.orders[order.ID] = order

	var tickets []*domain.Ticket
	for _, item := range p.Items {
		tt := f.types[item.TicketTypeID]
		tt.Sold += item.Quantity
		for i := 0; i < item.Quantity; i++ {
			t := &domain.Ticket{
				ID:           f.nextID,
				OrderID:      order.ID,
				EventID:      p.EventID,
				TicketTypeID: tt.ID,
				Code:         fmt.Sprintf("TKT-%d", f.nextID),
				Status:       domain.TicketValid,
			}
			f.nextID++
			f.tickets[t.Code] = t
			f.ticketsByID[t.ID] = t
			tickets = append(tickets, t)
		}
	}

	return order, tickets, nil
}

func (f *fakeTicketStore) GetTicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeTicketStore) CheckIn(ctx context.Context, ticketID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.ticketsByID[ticketID]
	if !ok || t.Status != domain.TicketValid {
		return false, nil
	}
	t.Status = domain.TicketCheckedIn
	return true, nil
}

func (f *fakeTicketStore) Cancel(ctx context.Context, ticketID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.ticketsByID[ticketID]
	if !ok || t.Status != domain.TicketValid {
		return false, nil
	}
	t.Status = domain.TicketCancelled
	return true, nil
}

func (f *fakeTicketStore) Analytics(ctx context.Context, eventID int64) (*domain.EventAnalytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	a := &domain.EventAnalytics{EventID: eventID, SupportRaised: e.RaisedTotal}
	for _, t := range f.ticketsByID {
		if t.EventID != eventID || t.Status == domain.TicketCancelled {
			continue
		}
		a.TicketsSold++
		if t.Status == domain.TicketCheckedIn {
			a.TicketsChecked++
		}
		if tt, ok := f.types[t.TicketTypeID]; ok {
			a.TicketRevenue += tt.Price
		}
	}
	return a, nil
}

func (f *fakeTicketStore) sold(typeID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.types[typeID].Sold
}

// fakeReplayGuard is an in-memory ReplayGuard.
type fakeReplayGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeReplayGuard() *fakeReplayGuard {
	return &fakeReplayGuard{keys: make(map[string]bool)}
}

func (f *fakeReplayGuard) Get(ctx context.Context, namespace, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[namespace+":"+key] {
		return "1", nil
	}
	return "", fmt.Errorf("key not found")
}

func (f *fakeReplayGuard) SetNX(ctx context.Context, namespace, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := namespace + ":" + key
	if f.keys[k] {
		return false, nil
	}
	f.keys[k] = true
	return true, nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
