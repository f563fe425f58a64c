package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrContainerClosed = errors.New("state container closed")

// DefaultQueueSize - емкость очереди команд по умолчанию.
const DefaultQueueSize = 64

type envelope struct {
	cmd   Command
	reply chan State
}

// Container владеет единственным изменяемым State.
// Команды применяются по одной в порядке поступления в Run.
type Container struct {
	queue chan envelope
	done  chan struct{}
	once  sync.Once
	log   zerolog.Logger

	mu      sync.RWMutex
	current State
	//   map[subscriberID] channel
	subs map[string]chan State
}

// Option настраивает Container.
type Option func(*Container)

// WithLogger задает логгер контейнера.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Container) {
		c.log = log
	}
}

// WithQueueSize задает емкость очереди команд.
func WithQueueSize(size int) Option {
	return func(c *Container) {
		if size > 0 {
			c.queue = make(chan envelope, size)
		}
	}
}

// NewContainer создает контейнер с начальным состоянием.
func NewContainer(initial State, opts ...Option) *Container {
	c := &Container{
		queue:   make(chan envelope, DefaultQueueSize),
		done:    make(chan struct{}),
		log:     zerolog.Nop(),
		current: initial.Clone(),
		subs:    make(map[string]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run применяет команды из очереди, пока не отменен ctx.
func (c *Container) Run(ctx context.Context) error {
	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-c.queue:
			env.reply <- c.apply(env.cmd)
		}
	}
}

// Dispatch ставит команду в очередь и ждет, пока она будет применена.
// Возвращает снимок состояния сразу после применения.
func (c *Container) Dispatch(ctx context.Context, cmd Command) (State, error) {
	env := envelope{cmd: cmd, reply: make(chan State, 1)}

	select {
	case c.queue <- env:
	case <-c.done:
		return State{}, fmt.Errorf("dispatch %s: %w", cmd.Name(), ErrContainerClosed)
	case <-ctx.Done():
		return State{}, fmt.Errorf("dispatch %s: %w", cmd.Name(), ctx.Err())
	}

	// После постановки в очередь команда будет применена, даже если ctx отменят
	select {
	case applied := <-env.reply:
		return applied, nil
	case <-c.done:
		return State{}, fmt.Errorf("dispatch %s: %w", cmd.Name(), ErrContainerClosed)
	}
}

// Snapshot возвращает копию текущего состояния.
func (c *Container) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Clone()
}

// Subscribe возвращает канал со снимками после каждой примененной команды.
// Медленный подписчик получает только самый свежий снимок.
// Канал закрывается, когда отменен ctx или остановлен контейнер.
func (c *Container) Subscribe(ctx context.Context) <-chan State {
	ch := make(chan State, 1)
	subID := uuid.NewString()

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		close(ch)
		return ch
	default:
	}
	c.subs[subID] = ch
	c.mu.Unlock()

	// Горутина для очистки при отключении подписчика
	go func() {
		select {
		case <-ctx.Done():
		case <-c.done:
			return
		}
		c.mu.Lock()
		if sub, ok := c.subs[subID]; ok {
			delete(c.subs, subID)
			close(sub)
		}
		c.mu.Unlock()
	}()

	return ch
}

func (c *Container) apply(cmd Command) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = cmd.Apply(c.current)
	c.log.Debug().
		Str("command", cmd.Name()).
		Str("active_post", c.current.ActivePostID()).
		Msg("state command applied")

	for _, ch := range c.subs {
		publishLatest(ch, c.current.Clone())
	}
	return c.current.Clone()
}

// publishLatest вытесняет неполученный снимок новым.
func publishLatest(ch chan State, snapshot State) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}

func (c *Container) shutdown() {
	c.once.Do(func() {
		c.mu.Lock()
		close(c.done)
		for id, ch := range c.subs {
			delete(c.subs, id)
			close(ch)
		}
		c.mu.Unlock()
	})
}
