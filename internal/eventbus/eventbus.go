package eventbus

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	// ErrClosed возвращается Publish и Subscribe после Close
	ErrClosed = errors.New("eventbus: closed")
	// ErrWouldBlock возвращается Publish из обработчика, когда буфер полон:
	// ожидание места заблокировало бы очередь, которую должен разбирать сам обработчик
	ErrWouldBlock = errors.New("eventbus: buffer full, publishing from a handler would block")
)

// Приоритеты событий navtiles. События ниже PriorityHigh при переполнении
// буфера отбрасываются, остальные ждут места.
const (
	PriorityLow      = 0
	PriorityRebuilt  = 2
	PriorityBatch    = 3
	PriorityHigh     = 5
	PriorityCritical = 9
)

// Envelope описывает универсальный контейнер события.
// Все поля фиксированы для версионирования и трассировки.
type Envelope struct {
	ID            string            // Глобально уникальный идентификатор (UUID).
	Timestamp     time.Time         // Время создания события (UTC).
	Source        string            // Имя компонента-источника.
	EventType     string            // Тип события (tile.rebuilt, tiles.changed…).
	Version       int               // Схема полезной нагрузки.
	CorrelationID string            // Связывает события одной пачки обновлений.
	Tenant        string            // Мир, к которому относится событие.
	Priority      int               // PriorityLow … PriorityCritical.
	Payload       []byte            // Сериализованная полезная нагрузка (JSON).
	Metadata      map[string]string // Произвольные метаданные.
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Если пусто: все типы.
	Sources []string // Если пусто: все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
//
// Обработчик in-memory шины публикует с полученным ctx: тогда при полном буфере
// Publish не ждёт, а возвращает ErrWouldBlock. Публикация с другим ctx ждёт места
// и может никогда его не дождаться, пока обработчик не вернётся.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

//================ In-Memory implementation =================//

// memoryBus доставляет события в процессе. У каждого подписчика своя очередь
// и своя горутина, поэтому подписчик видит события в порядке публикации.
type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	stats       Stats
	buffer      chan *Envelope
	capacity    int

	// closeMu защищает buffer от закрытия во время отправки
	closeMu   sync.RWMutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
	handlers  sync.WaitGroup
}

// handlerKey помечает ctx обработчиков шины
type handlerKey struct{}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	// queue пишет только dispatchLoop, он же её закрывает
	queue chan *Envelope
}

// NewMemoryBus создаёт in-memory шину с буфером capacity событий.
// Очередь каждого подписчика того же размера.
func NewMemoryBus(capacity int) EventBus {
	mb := newMemoryBus(capacity)
	go mb.dispatchLoop()
	return mb
}

func newMemoryBus(capacity int) *memoryBus {
	if capacity <= 0 {
		capacity = 1
	}
	return &memoryBus{
		subscribers: make(map[int]*subscriber),
		buffer:      make(chan *Envelope, capacity),
		capacity:    capacity,
		done:        make(chan struct{}),
	}
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.closeMu.RLock()
	defer mb.closeMu.RUnlock()
	if mb.closed {
		return ErrClosed
	}

	select {
	case mb.buffer <- ev:
		mb.count(&mb.stats.Published)
		return nil
	default:
	}
	if ev.Priority < PriorityHigh {
		mb.count(&mb.stats.Dropped)
		return nil
	}
	if mb.inHandler(ctx) {
		mb.count(&mb.stats.Dropped)
		return ErrWouldBlock
	}
	select {
	case mb.buffer <- ev:
		mb.count(&mb.stats.Published)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-mb.done:
		return ErrClosed
	}
}

func (mb *memoryBus) inHandler(ctx context.Context) bool {
	bus, _ := ctx.Value(handlerKey{}).(*memoryBus)
	return bus == mb
}

func (mb *memoryBus) count(counter *uint64) {
	mb.mu.Lock()
	*counter++
	mb.mu.Unlock()
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.closeMu.RLock()
	defer mb.closeMu.RUnlock()
	if mb.closed {
		return nil, ErrClosed
	}

	cctx, cancel := context.WithCancel(ctx)
	sub := &subscriber{
		filter:  f,
		handler: h,
		ctx:     cctx,
		cancel:  cancel,
		queue:   make(chan *Envelope, mb.capacity),
	}
	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	mb.subscribers[id] = sub
	mb.mu.Unlock()

	mb.handlers.Add(1)
	go mb.consume(sub)
	return &memSub{bus: mb, id: id}, nil
}

// consume вызывает обработчик подписчика, пока очередь не закрыта или подписка не отменена
func (mb *memoryBus) consume(sub *subscriber) {
	defer mb.handlers.Done()
	hctx := context.WithValue(sub.ctx, handlerKey{}, mb)
	for {
		select {
		case <-sub.ctx.Done():
			return
		case ev, ok := <-sub.queue:
			if !ok {
				return
			}
			sub.handler(hctx, ev)
			mb.count(&mb.stats.Consumed)
		}
	}
}

func (mb *memoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	s := mb.stats
	s.InFlight = len(mb.buffer)
	for _, sub := range mb.subscribers {
		s.InFlight += len(sub.queue)
	}
	return s
}

// Close прекращает приём событий. Уже принятые события доставляются
// подписчикам асинхронно, после чего подписки отменяются.
func (mb *memoryBus) Close() error {
	mb.closeOnce.Do(func() {
		close(mb.done)
		mb.closeMu.Lock()
		mb.closed = true
		close(mb.buffer)
		mb.closeMu.Unlock()
	})
	return nil
}

// dispatchLoop раскладывает события по очередям подписчиков.
// Медленный подписчик задерживает всю шину: буфер заполняется и включается backpressure.
func (mb *memoryBus) dispatchLoop() {
	for ev := range mb.buffer {
		mb.mu.RLock()
		subs := make([]*subscriber, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			if matchFilter(ev, sub.filter) {
				subs = append(subs, sub)
			}
		}
		mb.mu.RUnlock()

		for _, sub := range subs {
			select {
			case sub.queue <- ev:
			case <-sub.ctx.Done():
			}
		}
	}

	mb.mu.Lock()
	subs := make([]*subscriber, 0, len(mb.subscribers))
	for id, sub := range mb.subscribers {
		close(sub.queue)
		subs = append(subs, sub)
		delete(mb.subscribers, id)
	}
	mb.mu.Unlock()

	mb.handlers.Wait()
	for _, sub := range subs {
		sub.cancel()
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		return len(arr) == 0 || slices.Contains(arr, val)
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *memoryBus
	id  int
}

// Unsubscribe отменяет подписку; очередь подписчика закроет dispatchLoop при Close
func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	sub, ok := s.bus.subscribers[s.id]
	delete(s.bus.subscribers, s.id)
	s.bus.mu.Unlock()
	if ok {
		sub.cancel()
	}
}
