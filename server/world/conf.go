package world

import (
	"log/slog"
	"math/rand/v2"
	"runtime"
	"time"
)

// Config may be used to create a new World. It holds a variety of fields that
// influence the simulation.
type Config struct {
	// Log is the logger used by the world. If nil, Log is set to
	// slog.Default().
	Log *slog.Logger
	// Provider is the Provider used for loading and storing chunks. If nil,
	// Provider is set to NopProvider and all chunks are generated anew.
	Provider Provider
	// Generator is the Generator used to generate chunks the Provider has no
	// data for. If nil, Generator is set to NopGenerator and missing chunks
	// remain empty.
	Generator Generator
	// ReadOnly specifies if the world should be read only. If set to true,
	// the Provider is never written to.
	ReadOnly bool
	// TickInterval is the real time duration of a single tick. If zero, it
	// defaults to 50ms (20 ticks per second).
	TickInterval time.Duration
	// RandomTickSpeed specifies the number of random block ticks performed
	// per chunk per tick. Setting it to -1 or lower disables random ticking.
	// If zero, it defaults to 3.
	RandomTickSpeed int
	// LightUpdateBudget caps the number of light updates processed in a
	// single tick. Updates beyond the budget remain queued for later ticks.
	// If zero, it defaults to 1000.
	LightUpdateBudget int
	// ScheduledTickBudget caps the number of scheduled block ticks applied in
	// a single tick. Entries beyond the budget are deferred to the next tick
	// and the overflow is logged. If zero, it defaults to 8192.
	ScheduledTickBudget int
	// QueueSize is the size of the world's bounded transaction queue through
	// which all inbound commands flow. If zero, it defaults to 1024.
	QueueSize int
	// GeneratorWorkers is the number of workers loading and generating
	// chunks. If zero, it is derived from the host's available CPUs.
	GeneratorWorkers int
	// GeneratorQueueSize limits how many chunk load jobs may wait for a
	// worker. If zero, a size proportional to the worker count is chosen.
	GeneratorQueueSize int
	// UnloadGracePeriod is the number of ticks a chunk must have been without
	// loaders before the world attempts to evict it. If zero, it defaults to
	// 400 ticks (20 seconds).
	UnloadGracePeriod int64
}

// New creates a World using the Config. The World is ticked as soon as New
// returns and may be interacted with through World.Exec.
func (conf Config) New() *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Provider == nil {
		conf.Provider = NopProvider{}
	}
	if conf.Generator == nil {
		conf.Generator = NopGenerator{}
	}
	if conf.TickInterval == 0 {
		conf.TickInterval = time.Second / 20
	}
	if conf.RandomTickSpeed == 0 {
		conf.RandomTickSpeed = 3
	}
	if conf.LightUpdateBudget == 0 {
		conf.LightUpdateBudget = 1000
	}
	if conf.ScheduledTickBudget == 0 {
		conf.ScheduledTickBudget = 8192
	}
	if conf.QueueSize == 0 {
		conf.QueueSize = 1024
	}
	if conf.GeneratorWorkers <= 0 {
		conf.GeneratorWorkers = max(runtime.GOMAXPROCS(0)/2, 1)
	}
	if conf.GeneratorQueueSize <= 0 {
		conf.GeneratorQueueSize = conf.GeneratorWorkers * 32
	}
	if conf.UnloadGracePeriod == 0 {
		conf.UnloadGracePeriod = 400
	}

	s := defaultSettings()
	conf.Provider.LoadSettings(s)

	w := &World{
		conf:          conf,
		set:           s,
		queue:         make(chan transaction, conf.QueueSize),
		queueClosing:  make(chan struct{}),
		closing:       make(chan struct{}),
		chunks:        map[ChunkPos]*Column{},
		entities:      map[int64]*EntityHandle{},
		viewers:       map[*Loader]Viewer{},
		loadQueue:     make(chan loadTask, conf.GeneratorQueueSize),
		saveQueue:     make(chan saveTask, 256),
		lightPending:  map[ChunkPos]int{},
		deferredLight: map[ChunkPos][]lightUpdate{},
		r:             rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	w.scheduledUpdates = newScheduledTickQueue(s.CurrentTick)

	w.queueing.Add(1)
	go w.handleTransactions()

	for range conf.GeneratorWorkers {
		w.running.Add(1)
		go w.loadWorker()
	}
	w.running.Add(1)
	go w.saveWorker()

	w.running.Add(1)
	go ticker{interval: conf.TickInterval}.tickLoop(w)

	return w
}
