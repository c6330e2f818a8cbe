package communication

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"project-comms/internal/models"
	"project-comms/internal/observability"
	"project-comms/internal/realtime"
	"project-comms/internal/repositories"
	"project-comms/internal/telemetry"
)

// Identity is the project and acting user a manager serves.
type Identity struct {
	ProjectID string
	UserID    string
	UserName  string
	Role      models.UserRole
}

// EventSource opens realtime subscriptions per project.
type EventSource interface {
	Subscribe(ctx context.Context, projectID string) (*realtime.Subscription, error)
}

// Guard claims client submission ids.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Dependencies are the collaborators of a manager. Realtime, Changes, Guard and Emitter are optional.
type Dependencies struct {
	Groups        repositories.GroupRepository
	Messages      repositories.MessageRepository
	Notifications repositories.NotificationRepository
	Reports       repositories.ProgressReportRepository
	Alerts        repositories.SafetyAlertRepository
	Realtime      EventSource
	Changes       ChangePublisher
	Guard         Guard
	Emitter       *telemetry.EventEmitter
}

type Options struct {
	MessageLimit      int
	NotificationLimit int
	RecentReports     int
	Realtime          bool
}

// MaxContentBytes bounds message and notification bodies so a row change
// fits in a single database notification payload.
const MaxContentBytes = 4000

const (
	defaultMessageLimit      = 100
	defaultNotificationLimit = 50
	defaultRecentReports     = 5
)

func (o Options) withDefaults() Options {
	if o.MessageLimit <= 0 {
		o.MessageLimit = defaultMessageLimit
	}
	if o.NotificationLimit <= 0 {
		o.NotificationLimit = defaultNotificationLimit
	}
	if o.RecentReports <= 0 {
		o.RecentReports = defaultRecentReports
	}
	return o
}

// Status is the lifecycle state of a manager.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusLoading        Status = "loading"
	StatusReady          Status = "ready"
	StatusReadyWithError Status = "ready_with_error"
)

// state holds the cached collections. Slices are never mutated in place so
// published snapshots can share them.
type state struct {
	messages          []models.Message
	groups            []models.ChatGroup
	notifications     []models.Notification
	reports           []models.ProgressReport
	alerts            []models.SafetyAlert
	status            Status
	errMsg            string
	realtimeConnected bool
}

// op is a replayable mutation of one collection. It reports whether state changed.
type op func(*state) bool

// fetchLog records the mutations applied to a collection while a fetch of it runs.
type fetchLog struct {
	ops []op
}

// Manager caches the communication state of one project for one user and keeps
// it in sync with the backing store and the realtime stream.
type Manager struct {
	id     Identity
	deps   Dependencies
	opts   Options
	tracer trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	startErr  error
	loadMu    sync.Mutex
	reload    chan struct{}

	mu           sync.Mutex
	st           state
	version      uint64
	inflight     map[Collection]map[*fetchLog]struct{}
	observers    map[int]chan Snapshot
	nextObserver int
	closed       bool
}

// NewManager creates an idle manager. Call Start to bootstrap it.
func NewManager(id Identity, deps Dependencies, opts Options) (*Manager, error) {
	if id.ProjectID == "" || id.UserID == "" {
		return nil, ErrMissingIdentity
	}
	ctx, cancel := context.WithCancel(context.Background())
	observability.IncActiveManagers()
	return &Manager{
		id:        id,
		deps:      deps,
		opts:      opts.withDefaults(),
		tracer:    otel.Tracer("project-comms/communication"),
		ctx:       ctx,
		cancel:    cancel,
		reload:    make(chan struct{}, 1),
		st:        state{status: StatusIdle},
		inflight:  make(map[Collection]map[*fetchLog]struct{}),
		observers: make(map[int]chan Snapshot),
	}, nil
}

// Identity returns the identity the manager was built for.
func (m *Manager) Identity() Identity { return m.id }

// Start opens the realtime subscription and runs the initial load. Later calls
// wait for the first one and return its result.
func (m *Manager) Start(ctx context.Context) error {
	m.startOnce.Do(func() {
		if m.opts.Realtime && m.deps.Realtime != nil {
			if err := m.subscribe(ctx); err != nil {
				log.Printf("realtime subscribe failed project_id=%s user_id=%s: %v", m.id.ProjectID, m.id.UserID, err)
			}
		}
		m.startErr = m.Load(ctx)
	})
	return m.startErr
}

func (m *Manager) subscribe(ctx context.Context) error {
	sub, err := m.deps.Realtime.Subscribe(ctx, m.id.ProjectID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		sub.Close()
		return ErrClosed
	}
	m.st.realtimeConnected = true
	m.publishLocked()
	m.wg.Add(2)
	m.mu.Unlock()

	go m.listen(sub)
	go m.reloadLoop()
	return nil
}

// Close stops realtime processing, cancels in-flight work and closes every
// observer channel. Results arriving afterwards are discarded.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for key, ch := range m.observers {
		close(ch)
		delete(m.observers, key)
	}
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	observability.DecActiveManagers()
}

// Subscribe registers an observer. The channel receives the current snapshot
// immediately and the latest one after every change; intermediate snapshots
// may be skipped. The returned func unregisters the observer.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	key := m.nextObserver
	m.nextObserver++
	m.observers[key] = ch
	ch <- m.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if c, ok := m.observers[key]; ok {
				delete(m.observers, key)
				close(c)
			}
		})
	}
}

// Snapshot returns the current presentation view.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// bind derives a context that is also cancelled when the manager closes.
func (m *Manager) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// mutate applies o to the live state and records it for every fetch of c in flight.
func (m *Manager) mutate(c Collection, o op) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for l := range m.inflight[c] {
		l.ops = append(l.ops, o)
	}
	if o(&m.st) {
		m.publishLocked()
	}
}

// update changes fields that are not replayed, such as status and error.
func (m *Manager) update(fn func(*state)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	fn(&m.st)
	m.publishLocked()
}

// beginFetch starts recording mutations of c. The returned func installs a
// fetch result and replays the mutations recorded since; a nil set drops the log.
func (m *Manager) beginFetch(c Collection) func(set func(*state)) {
	l := &fetchLog{}
	m.mu.Lock()
	logs, ok := m.inflight[c]
	if !ok {
		logs = make(map[*fetchLog]struct{})
		m.inflight[c] = logs
	}
	logs[l] = struct{}{}
	m.mu.Unlock()

	return func(set func(*state)) {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.inflight[c], l)
		if len(m.inflight[c]) == 0 {
			delete(m.inflight, c)
		}
		if set == nil || m.closed {
			return
		}
		set(&m.st)
		for _, o := range l.ops {
			o(&m.st)
		}
		m.publishLocked()
	}
}

func (m *Manager) publishLocked() {
	m.version++
	if len(m.observers) == 0 {
		return
	}
	snap := m.snapshotLocked()
	for _, ch := range m.observers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
