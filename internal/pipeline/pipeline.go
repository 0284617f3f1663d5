package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
	"github.com/marmistrz/ipu6-camera-hal/internal/logging"
	"github.com/marmistrz/ipu6-camera-hal/internal/storage"
)

var (
	// ErrQueueFull is returned by Submit when the camera's queue is full.
	ErrQueueFull = errors.New("frame queue is full")
	// ErrStopped is returned once the pipeline has been stopped.
	ErrStopped = errors.New("pipeline stopped")
)

const defaultQueueDepth = 64

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPlatform sets the capability source handed to every translator.
func WithPlatform(p aiq.Platform) Option {
	return func(pl *Pipeline) { pl.platform = p }
}

// WithCalibration sets the calibration source handed to every translator.
func WithCalibration(c aiq.Calibration) Option {
	return func(pl *Pipeline) { pl.calib = c }
}

// WithTuning sets the translator tuning constants.
func WithTuning(t aiq.Tuning) Option {
	return func(pl *Pipeline) { pl.tuning = &t }
}

// WithQueueDepth bounds each camera's frame queue.
func WithQueueDepth(n int) Option {
	return func(pl *Pipeline) {
		if n > 0 {
			pl.queueDepth = n
		}
	}
}

// WithSource labels the session recorded in the store.
func WithSource(source string) Option {
	return func(pl *Pipeline) { pl.source = source }
}

type job struct {
	frame Frame
	reply chan Result
}

// camera owns one translator. Only its worker goroutine touches tr.
type camera struct {
	id     int
	frames chan job
	tr     *aiq.Translator
	seq    int64
}

// Pipeline serializes frames per camera and fans results out to subscribers.
// Each camera gets its own goroutine, created on its first frame, so cameras
// are translated in parallel while each translator sees one call at a time.
type Pipeline struct {
	log        *slog.Logger
	store      *storage.Store
	platform   aiq.Platform
	calib      aiq.Calibration
	tuning     *aiq.Tuning
	queueDepth int
	source     string
	sessionID  string

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.RWMutex
	stopped bool
	cams    map[int]*camera

	latestMu sync.Mutex
	latest   map[int]aiq.Snapshot

	subMu     sync.Mutex
	subs      map[int]chan Result
	nextSubID int
}

// New creates a Pipeline. When store is non-nil a session is opened and
// every translated frame is recorded under it.
func New(ctx context.Context, logger *slog.Logger, store *storage.Store, opts ...Option) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pipeline{
		log:        logger,
		store:      store,
		queueDepth: defaultQueueDepth,
		source:     "pipeline",
		ctx:        ctx,
		cancel:     cancel,
		cams:       make(map[int]*camera),
		latest:     make(map[int]aiq.Snapshot),
		subs:       make(map[int]chan Result),
	}
	for _, opt := range opts {
		opt(p)
	}

	if store != nil {
		id, err := store.StartSession(p.source)
		if err != nil {
			cancel()
			return nil, err
		}
		p.sessionID = id
		p.log.Info("session started", "session", id, "source", p.source)
	}
	return p, nil
}

// SessionID is the store session frames are recorded under, or "" without
// a store.
func (p *Pipeline) SessionID() string { return p.sessionID }

// Submit queues a frame without waiting for it to be translated.
func (p *Pipeline) Submit(frame Frame) error {
	if err := p.open(frame.CameraID); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.cams[frame.CameraID].frames <- job{frame: frame}:
		return nil
	default:
		return fmt.Errorf("camera %d: %w", frame.CameraID, ErrQueueFull)
	}
}

// Do translates a frame and waits for its result.
func (p *Pipeline) Do(ctx context.Context, frame Frame) (Result, error) {
	if err := p.open(frame.CameraID); err != nil {
		return Result{}, err
	}
	reply := make(chan Result, 1)
	if err := p.enqueue(ctx, job{frame: frame, reply: reply}); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, res.Error
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-p.ctx.Done():
		return Result{}, ErrStopped
	}
}

// enqueue holds the read lock across the send so Stop cannot close the
// queue underneath it.
func (p *Pipeline) enqueue(ctx context.Context, j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.cams[j.frame.CameraID].frames <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrStopped
	}
}

// open starts the camera's worker on first use.
func (p *Pipeline) open(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	if _, ok := p.cams[id]; ok {
		return nil
	}
	c := p.newCamera(id)
	p.cams[id] = c
	p.wg.Add(1)
	go p.worker(c)
	return nil
}

func (p *Pipeline) newCamera(id int) *camera {
	opts := []aiq.Option{aiq.WithLogger(p.log)}
	if p.tuning != nil {
		opts = append(opts, aiq.WithTuning(*p.tuning))
	}
	if p.calib != nil {
		opts = append(opts, aiq.WithCalibration(p.calib))
	}
	p.log.Info("camera opened", "camera", id)
	return &camera{
		id:     id,
		frames: make(chan job, p.queueDepth),
		tr:     aiq.New(id, p.platform, opts...),
	}
}

// Latest returns the translator state after the camera's most recent frame.
func (p *Pipeline) Latest(cameraID int) (aiq.Snapshot, bool) {
	p.latestMu.Lock()
	defer p.latestMu.Unlock()
	snap, ok := p.latest[cameraID]
	return snap, ok
}

// Cameras returns the ids of cameras that have translated at least one frame.
func (p *Pipeline) Cameras() []int {
	p.latestMu.Lock()
	defer p.latestMu.Unlock()
	ids := make([]int, 0, len(p.latest))
	for id := range p.latest {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Stop stops accepting frames, drains the queues and waits for the workers.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		for _, c := range p.cams {
			close(c.frames)
		}
		p.mu.Unlock()

		p.wg.Wait()
		p.cancel()

		p.subMu.Lock()
		for id, ch := range p.subs {
			close(ch)
			delete(p.subs, id)
		}
		p.subMu.Unlock()
	})
}

func (p *Pipeline) worker(c *camera) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-c.frames:
			if !ok {
				return
			}
			res := p.process(c, j.frame)
			if j.reply != nil {
				j.reply <- res
			}
			p.broadcast(res)
		}
	}
}

func (p *Pipeline) process(c *camera, f Frame) Result {
	start := time.Now()
	if f.Sequence == 0 {
		f.Sequence = c.seq + 1
	}
	c.seq = max(c.seq, f.Sequence)

	if f.Sensor != nil {
		c.tr.SetSensorInfo(*f.Sensor)
	}
	c.tr.UpdateParameter(f.Request)

	results := f.Results.clone()
	var errs []error
	if results != nil {
		if results.Af != nil {
			c.tr.FillAfTriggerResult(results.Af)
		}
		if results.Ae != nil {
			errs = append(errs, c.tr.UpdateAeResult(results.Ae))
		}
		if results.Pa != nil {
			errs = append(errs, c.tr.UpdatePaResult(results.Pa))
		}
		if results.Awb != nil {
			errs = append(errs, c.tr.UpdateAwbResult(results.Awb))
		}
	}

	snap := c.tr.Snapshot()
	res := Result{
		CameraID:  c.id,
		Sequence:  f.Sequence,
		SessionID: p.sessionID,
		Snapshot:  snap,
		Results:   results,
		Error:     errors.Join(errs...),
		Duration:  time.Since(start),
	}

	logging.LogFrameTranslated(p.log, f.Sequence, snap, res.Duration)
	if results != nil && snap.AwbOverride != aiq.AwbOverrideNone {
		if results.Awb != nil {
			logging.LogOverrideApplied(p.log, c.id, f.Sequence, "awb", snap.AwbOverride)
		}
		if results.Pa != nil && snap.AwbOverride == aiq.AwbOverrideColorTransform {
			logging.LogOverrideApplied(p.log, c.id, f.Sequence, "pa", snap.AwbOverride)
		}
	}

	p.latestMu.Lock()
	p.latest[c.id] = snap
	p.latestMu.Unlock()

	p.record(res)
	return res
}

func (p *Pipeline) record(res Result) {
	if p.store == nil {
		return
	}
	var raw json.RawMessage
	if res.Results != nil {
		b, err := json.Marshal(res.Results)
		if err != nil {
			p.log.Warn("encode results failed", "camera", res.CameraID, "error", err)
		}
		raw = b
	}
	err := p.store.RecordFrame(storage.FrameRecord{
		SessionID: p.sessionID,
		Sequence:  res.Sequence,
		Snapshot:  res.Snapshot,
		Results:   raw,
	})
	if err != nil {
		p.log.Warn("record frame failed", "camera", res.CameraID, "sequence", res.Sequence, "error", err)
	}
}

// Subscribe returns a channel for receiving frame results and an unsubscribe function.
func (p *Pipeline) Subscribe() (<-chan Result, func()) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	id := p.nextSubID
	p.nextSubID++
	ch := make(chan Result, 32)
	p.subs[id] = ch
	unsub := func() {
		p.subMu.Lock()
		if c, ok := p.subs[id]; ok {
			close(c)
			delete(p.subs, id)
		}
		p.subMu.Unlock()
	}
	return ch, unsub
}

func (p *Pipeline) broadcast(res Result) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for id, ch := range p.subs {
		select {
		case ch <- res:
		default:
			p.log.Warn("result channel full", "subscriber", id, "camera", res.CameraID, "sequence", res.Sequence)
		}
	}
}
