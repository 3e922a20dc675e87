package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/navtiles/internal/logging"
	nats "github.com/nats-io/nats.go"
)

const (
	// Корень subject'ов событий навмеша
	subjectPrefix = "navtiles"
	// HeaderWorld дублирует Envelope.Tenant, чтобы фильтровать без разбора JSON
	HeaderWorld = "Navtiles-World"
	// Окно, в котором JetStream отбрасывает повтор события с тем же ID
	dedupWindow = 2 * time.Minute
)

// JetStreamBus реализует EventBus поверх NATS JetStream.
// Envelope.ID служит Nats-Msg-Id, повторная публикация того же события не дублируется.
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string
	logger *logging.Logger

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим, если его нет.
// url: nats://127.0.0.1:4222, stream: "NAVTILES".
func NewJetStreamBus(url, stream string, retention time.Duration, logger *logging.Logger) (*JetStreamBus, error) {
	if stream == "" {
		stream = "NAVTILES"
	}
	if logger == nil {
		logger = logging.Nop()
	}

	nc, err := nats.Connect(url,
		nats.Name("navtiles"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS отключён: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS переподключён: %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Типы событий содержат точки, поэтому стрим слушает всё дерево navtiles.>
	if _, err = js.StreamInfo(stream); errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       stream,
			Subjects:   []string{subjectPrefix + ".>"},
			Retention:  nats.LimitsPolicy,
			MaxAge:     retention,
			Storage:    nats.FileStorage,
			Duplicates: dedupWindow,
		})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("stream %s: %w", stream, err)
	}

	logger.Info("📨 JetStream подключён: %s, стрим %s", url, stream)
	return &JetStreamBus{nc: nc, js: js, stream: stream, logger: logger}, nil
}

func subjectFor(eventType string) string {
	return subjectPrefix + "." + eventType
}

// Publish публикует Envelope в JSON в subject navtiles.<type>.
// Приоритет не влияет на доставку: очередь держит сам JetStream.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := nats.NewMsg(subjectFor(ev.EventType))
	msg.Data = data
	if ev.Tenant != "" {
		msg.Header.Set(HeaderWorld, ev.Tenant)
	}

	opts := []nats.PubOpt{nats.Context(ctx)}
	if ev.ID != "" {
		opts = append(opts, nats.MsgId(ev.ID))
	}
	if _, err = jb.js.PublishMsg(msg, opts...); err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("publish %s: %w", ev.EventType, err)
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создаёт эфемерного consumer'а, получающего только новые события.
// Подписка снимается при Unsubscribe или отмене ctx.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := subjectPrefix + ".>"
	if len(f.Types) == 1 {
		subj = subjectFor(f.Types[0])
	}

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			jb.logger.Warn("Не удалось разобрать событие из %s: %v", msg.Subject, err)
			_ = msg.Term()
			return
		}
		if matchFilter(&ev, f) {
			h(ctx, &ev)
			jb.consumed.Add(1)
		}
		_ = msg.Ack()
	}, nats.DeliverNew(), nats.ManualAck(), nats.AckWait(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subj, err)
	}

	sub := &jetSub{s: natSub, stop: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.stop:
		}
	}()
	return sub, nil
}

type jetSub struct {
	s    *nats.Subscription
	stop chan struct{}
	once sync.Once
}

func (j *jetSub) Unsubscribe() {
	j.once.Do(func() {
		close(j.stop)
		_ = j.s.Unsubscribe()
	})
}

// Metrics возвращает счётчики этого процесса.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки буферизованных сообщений и закрывает соединение.
func (jb *JetStreamBus) Close() error {
	if err := jb.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}
