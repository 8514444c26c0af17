// Package engine wires the tracker's components together and owns the
// in-process event bus the web layer and the messaging gateway subscribe
// to.
package engine

import (
	"log"
	"time"

	"couriertrack/config"
	"couriertrack/geo"
	"couriertrack/messaging"
	"couriertrack/position"
	"couriertrack/queue"
	"couriertrack/remote"
	"couriertrack/routing"
	"couriertrack/store"
	"couriertrack/tracking"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Remote     *remote.Client
	Routes     *routing.Provider
	Feed       *position.Feed
	MsgClient  *messaging.Client
	Gateway    *messaging.Gateway
	LogFunc    LogFunc
}

type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	remote     *remote.Client
	routes     *routing.Provider
	feed       *position.Feed
	msgClient  *messaging.Client
	gateway    *messaging.Gateway

	queue   *queue.Queue
	drainer *queue.Drainer
	watcher *queue.Watcher
	monitor *tracking.Monitor

	Events *EventBus
	logFn  LogFunc

	stopChan     chan struct{}
	msgConnected bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		remote:     c.Remote,
		routes:     c.Routes,
		feed:       c.Feed,
		msgClient:  c.MsgClient,
		gateway:    c.Gateway,
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
}

func (e *Engine) Start() {
	q := queue.New(e.db, e.remote, e.cfg.Queue.FlushBatch)
	q.SetEmitter(&queueEmitter{bus: e.Events})
	if e.gateway != nil {
		q.SetSyncRequester(e.gateway)
	}
	e.queue = q

	e.watcher = queue.NewWatcher(e.remote, q, e.cfg.Remote.PingInterval)
	e.watcher.OnChange(func(online bool) {
		e.Events.Emit(Event{Type: EventConnectivityChanged, Payload: ConnectivityChangedEvent{Online: online}})
	})

	e.monitor = tracking.NewMonitor(tracking.MonitorConfig{
		Tracking:  &e.cfg.Tracking,
		CourierID: e.cfg.Messaging.CourierID,
		Origin:    e.storeOrigin(),
		Orders:    e.remote,
		Crumbs:    e.remote,
		Routes:    e.routes,
		Evaluator: tracking.NewEvaluator(e.cfg.Tracking.ToleranceMeters),
		Feed:      e.feed,
		DB:        e.db,
		Queue:     q,
		Online:    e.watcher.Online,
		Emitter:   &monitorEmitter{bus: e.Events},
	})

	e.drainer = queue.NewDrainer(q, e.cfg.Queue.DrainInterval)

	e.wireEventHandlers()
	e.bindGateway()

	e.monitor.Start()
	e.drainer.Start()
	e.watcher.Start()

	e.checkConnectionStatus()
	go e.connectionHealthLoop()

	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	if e.monitor != nil {
		e.monitor.Stop()
	}
	if e.drainer != nil {
		e.drainer.Stop()
	}
	if e.watcher != nil {
		e.watcher.Stop()
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB               { return e.db }
func (e *Engine) AppConfig() *config.Config   { return e.cfg }
func (e *Engine) ConfigPath() string          { return e.configPath }
func (e *Engine) Remote() *remote.Client      { return e.remote }
func (e *Engine) Queue() *queue.Queue         { return e.queue }
func (e *Engine) Monitor() *tracking.Monitor  { return e.monitor }
func (e *Engine) Routes() *routing.Provider   { return e.routes }
func (e *Engine) Feed() *position.Feed        { return e.feed }
func (e *Engine) MsgClient() *messaging.Client { return e.msgClient }

// Online reports connectivity to the remote order store.
func (e *Engine) Online() bool {
	if e.watcher == nil {
		return true
	}
	return e.watcher.Online()
}

func (e *Engine) storeOrigin() geo.Point {
	return geo.Point{Lat: e.cfg.Routing.StoreLat, Lng: e.cfg.Routing.StoreLng}
}

// bindGateway subscribes the broker topics when messaging is up: GPS
// fixes feed the position feed, sync signals flush the queue.
func (e *Engine) bindGateway() {
	if e.gateway == nil || e.msgClient == nil || !e.msgClient.IsConnected() {
		return
	}
	err := e.gateway.Bind(e.feed.HandleMessage, func() {
		e.monitor.Refresh()
	})
	if err != nil {
		e.logFn("engine: bind messaging topics: %v", err)
	}
}

func (e *Engine) checkConnectionStatus() {
	if e.msgClient == nil {
		return
	}
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}
