package tracking

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"couriertrack/config"
	"couriertrack/geo"
	"couriertrack/position"
	"couriertrack/queue"
	"couriertrack/remote"
	"couriertrack/routing"
	"couriertrack/store"
)

// Emitter receives monitor notifications. The engine bridges these onto
// its event bus.
type Emitter interface {
	EmitPositionSampled(p geo.Point)
	EmitDeviationChanged(orderID string, prev, cur Result)
}

// OrderSource lists the courier's active deliveries.
type OrderSource interface {
	ListAssignedOrders(ctx context.Context, courierID string) ([]*remote.Order, error)
}

// BreadcrumbSink receives periodic position reports for a delivery.
type BreadcrumbSink interface {
	ReportPosition(ctx context.Context, orderID string, p geo.Point, at time.Time) error
}

// Delivery is a point-in-time snapshot of one tracked delivery.
type Delivery struct {
	Order           *remote.Order `json:"order"`
	Deviation       Result        `json:"deviation"`
	RouteDistanceKm *float64      `json:"route_distance_km,omitempty"`
	RouteEtaMin     *float64      `json:"route_eta_min,omitempty"`
	New             bool          `json:"new"`
}

type deliveryState struct {
	order   *remote.Order
	result  Result
	route   *routing.Route
	addedAt time.Time
}

// Monitor drives the tracking loop. Each cycle it refreshes the active
// delivery set, samples the courier position, evaluates deviation per
// delivery, records breadcrumbs, and nudges the offline queue. It pulls
// state on its own schedule; nothing pushes evaluations into it.
type Monitor struct {
	cfg       *config.TrackingConfig
	courierID string
	origin    geo.Point

	orders  OrderSource
	crumbs  BreadcrumbSink
	routes  *routing.Provider
	eval    *Evaluator
	feed    position.Source
	db      *store.DB
	queue   *queue.Queue
	online  func() bool
	emitter Emitter

	stopChan chan struct{}
	refresh  chan struct{}

	mu     sync.RWMutex
	active map[string]*deliveryState
}

type MonitorConfig struct {
	Tracking  *config.TrackingConfig
	CourierID string
	Origin    geo.Point // the store's location, start of every planned route
	Orders    OrderSource
	Crumbs    BreadcrumbSink
	Routes    *routing.Provider
	Evaluator *Evaluator
	Feed      position.Source
	DB        *store.DB
	Queue     *queue.Queue
	Online    func() bool
	Emitter   Emitter
}

func NewMonitor(c MonitorConfig) *Monitor {
	return &Monitor{
		cfg:       c.Tracking,
		courierID: c.CourierID,
		origin:    c.Origin,
		orders:    c.Orders,
		crumbs:    c.Crumbs,
		routes:    c.Routes,
		eval:      c.Evaluator,
		feed:      c.Feed,
		db:        c.DB,
		queue:     c.Queue,
		online:    c.Online,
		emitter:   c.Emitter,
		stopChan:  make(chan struct{}),
		refresh:   make(chan struct{}, 1),
	}
}

func (m *Monitor) Start() {
	go m.run()
}

func (m *Monitor) Stop() {
	close(m.stopChan)
}

// Refresh requests an immediate cycle, e.g. after a courier action changed
// the active set. Coalesces with an already pending request.
func (m *Monitor) Refresh() {
	select {
	case m.refresh <- struct{}{}:
	default:
	}
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.cycle()
	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.cycle()
		case <-m.refresh:
			m.cycle()
		}
	}
}

func (m *Monitor) cycle() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PollInterval)
	defer cancel()

	m.reconcile(ctx)

	pos, havePos := m.feed.Current(ctx)
	if havePos && m.emitter != nil {
		m.emitter.EmitPositionSampled(pos)
	}

	m.resolveRoutes(ctx)

	m.mu.Lock()
	for id, st := range m.active {
		m.evaluate(id, st, pos, havePos)
	}
	m.mu.Unlock()

	if havePos {
		m.recordBreadcrumbs(ctx, pos)
	}

	// Opportunistic replay, mirroring the flush-on-every-fetch behavior of
	// the courier app.
	if m.online == nil || m.online() {
		m.queue.Flush(ctx)
	}
}

// reconcile refreshes the active delivery set from the order store. When
// the store is unreachable the previous set is kept so evaluation keeps
// running on cached routes.
func (m *Monitor) reconcile(ctx context.Context) {
	orders, err := m.orders.ListAssignedOrders(ctx, m.courierID)
	if err != nil {
		log.Printf("tracking: list deliveries: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		m.active = make(map[string]*deliveryState)
	}

	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		seen[o.ID] = true
		if st, ok := m.active[o.ID]; ok {
			st.order = o
			continue
		}
		m.active[o.ID] = &deliveryState{order: o, addedAt: time.Now()}
	}
	for id := range m.active {
		if !seen[id] {
			delete(m.active, id)
			m.routes.Forget(id)
		}
	}
}

// resolveRoutes fetches route geometry for deliveries that lack it. The
// fetches run outside the monitor lock so readers are never stuck behind
// a slow routing backend; a result for a delivery that left the active
// set in the meantime is dropped.
func (m *Monitor) resolveRoutes(ctx context.Context) {
	type fetch struct {
		id   string
		dest geo.Point
	}

	m.mu.RLock()
	var missing []fetch
	for id, st := range m.active {
		if st.route == nil && st.order.Customer != nil {
			missing = append(missing, fetch{id: id, dest: *st.order.Customer})
		}
	}
	m.mu.RUnlock()

	for _, f := range missing {
		route, err := m.routes.Get(ctx, f.id, m.origin, f.dest)
		if err != nil {
			// No route is a working state, not a failure. The next cycle
			// retries.
			log.Printf("tracking: route for %s unavailable: %v", f.id, err)
			continue
		}
		m.mu.Lock()
		if st, ok := m.active[f.id]; ok {
			st.route = route
		}
		m.mu.Unlock()
	}
}

func (m *Monitor) evaluate(id string, st *deliveryState, pos geo.Point, havePos bool) {
	var posPtr *geo.Point
	if havePos {
		posPtr = &pos
	}
	var line []geo.Point
	if st.route != nil {
		line = st.route.Geometry
	}
	res := m.eval.Evaluate(posPtr, line)
	if res.Equal(st.result) {
		return
	}
	prev := st.result
	st.result = res
	if m.emitter != nil {
		m.emitter.EmitDeviationChanged(id, prev, res)
	}
}

// recordBreadcrumbs persists the sampled position for every picked-up
// delivery: a local trail row always, plus either a direct remote insert
// or a queued position patch when offline.
func (m *Monitor) recordBreadcrumbs(ctx context.Context, pos geo.Point) {
	now := time.Now().UTC()

	m.mu.RLock()
	var pickedUp []string
	for id, st := range m.active {
		if st.order.DeliveryStatus == "picked_up" {
			pickedUp = append(pickedUp, id)
		}
	}
	m.mu.RUnlock()

	online := m.online == nil || m.online()
	for _, id := range pickedUp {
		if err := m.db.AddTrailPoint(id, pos, now); err != nil {
			log.Printf("tracking: trail point for %s: %v", id, err)
		}
		if online {
			err := m.crumbs.ReportPosition(ctx, id, pos, now)
			if err == nil {
				continue
			}
			log.Printf("tracking: report position for %s: %v", id, err)
		}
		m.queue.Enqueue(id, map[string]any{
			"driver_last_lat": pos.Lat,
			"driver_last_lng": pos.Lng,
			"updated_at":      now.Format(time.RFC3339),
		})
	}
}

// Snapshot returns the tracked deliveries for the API, newest first by
// arrival into the active set.
func (m *Monitor) Snapshot() []Delivery {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]*deliveryState, 0, len(m.active))
	for _, st := range m.active {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].addedAt.After(states[j].addedAt)
	})

	out := make([]Delivery, 0, len(states))
	for _, st := range states {
		out = append(out, m.snapshotLocked(st))
	}
	return out
}

// Delivery returns the snapshot for one order, if tracked.
func (m *Monitor) Delivery(orderID string) (Delivery, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.active[orderID]
	if !ok {
		return Delivery{}, false
	}
	return m.snapshotLocked(st), true
}

func (m *Monitor) snapshotLocked(st *deliveryState) Delivery {
	d := Delivery{
		Order:     st.order,
		Deviation: st.result,
		New:       time.Since(st.addedAt) < m.cfg.HighlightExpiry,
	}
	if st.route != nil {
		km := st.route.DistanceKm()
		eta := st.route.ETAMinutes()
		d.RouteDistanceKm = &km
		d.RouteEtaMin = &eta
	}
	return d
}

// RouteSummary returns the cached planned distance and ETA for an order.
// ok is false when no route has been resolved yet.
func (m *Monitor) RouteSummary(orderID string) (distanceKm, etaMin float64, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, found := m.active[orderID]
	if !found || st.route == nil {
		return 0, 0, false
	}
	return st.route.DistanceKm(), st.route.ETAMinutes(), true
}
