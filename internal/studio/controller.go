package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"anime-thumbnail-studio/internal/thumbnail"
)

var ErrGenerationInFlight = errors.New("generation already in progress")

// Generator is the remote image capability. One call produces zero or more
// images or fails.
type Generator interface {
	GenerateImages(ctx context.Context, prompt string, opts thumbnail.GenerateOptions) ([]thumbnail.Image, error)
}

type Options struct {
	// Generator is nil when no credential was configured.
	Generator Generator
	Messages  *Messages
	Logger    *zerolog.Logger
	ImageURL  ImageURLFunc
	StyleKey  string
}

type Snapshot struct {
	State    State
	Title    string
	StyleKey string
	Version  uint64
}

type Download struct {
	Filename string
	Image    thumbnail.Image
}

// Controller owns one session's UI state. All mutations go through its
// methods; at most one generation is in flight at a time.
type Controller struct {
	gen      Generator
	msgs     Messages
	logger   zerolog.Logger
	imageURL ImageURLFunc

	mu       sync.Mutex
	state    State
	title    string
	styleKey string
	version  uint64
	subs     map[int]chan Snapshot
	nextSub  int
}

func New(opts Options) *Controller {
	msgs := japanese
	if opts.Messages != nil {
		msgs = *opts.Messages
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	styleKey := opts.StyleKey
	if _, ok := thumbnail.LookupStyle(styleKey); !ok {
		styleKey = thumbnail.DefaultStyleKey
	}

	return &Controller{
		gen:      opts.Generator,
		msgs:     msgs,
		logger:   logger,
		imageURL: opts.ImageURL,
		state:    State{Status: Idle},
		styleKey: styleKey,
		subs:     make(map[int]chan Snapshot),
	}
}

func (c *Controller) Messages() Messages {
	return c.msgs
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) View() View {
	return c.Render(c.Snapshot())
}

func (c *Controller) Render(s Snapshot) View {
	return Render(s.State, s.Title, s.StyleKey, c.msgs, c.imageURL)
}

func (c *Controller) SetTitle(title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status == Loading {
		return ErrGenerationInFlight
	}
	if c.title == title {
		return nil
	}
	c.title = title
	c.version++
	c.notifyLocked()
	return nil
}

func (c *Controller) SetStyle(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status == Loading {
		return ErrGenerationInFlight
	}
	if _, ok := thumbnail.LookupStyle(key); !ok {
		return fmt.Errorf("%w: %q", thumbnail.ErrInvalidStyleKey, key)
	}
	if c.styleKey == key {
		return nil
	}
	c.styleKey = key
	c.version++
	c.notifyLocked()
	return nil
}

// Generate runs one generation attempt with the current title and style.
// It blocks until the generator resolves. The outcome is always recorded in
// the state; the returned error is informational.
func (c *Controller) Generate(ctx context.Context) error {
	p, err := c.Begin()
	if err != nil {
		return err
	}
	return p.Run(ctx)
}

// Pending is a generation that has entered Loading and waits for its single
// remote call. Run must be called exactly once.
type Pending struct {
	c       *Controller
	req     thumbnail.Request
	prompt  string
	started atomic.Bool
}

// Begin validates the inputs and enters Loading. Validation failures are
// recorded as Errored and returned; no remote call happens for them.
func (c *Controller) Begin() (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status == Loading {
		return nil, ErrGenerationInFlight
	}

	title := strings.TrimSpace(c.title)
	if title == "" {
		c.applyLocked(Rejected{Err: thumbnail.ErrEmptyTitle, Message: c.msgs.TitleRequired})
		return nil, thumbnail.ErrEmptyTitle
	}

	if c.gen == nil {
		c.applyLocked(Rejected{Err: thumbnail.ErrMissingCredentials, Message: c.msgs.MissingCredentials})
		return nil, thumbnail.ErrMissingCredentials
	}

	req, err := thumbnail.NewRequest(title, c.styleKey)
	if err != nil {
		c.applyLocked(Rejected{Err: err, Message: c.msgs.InvalidStyle})
		return nil, err
	}
	prompt, err := req.Prompt()
	if err != nil {
		c.applyLocked(Rejected{Err: err, Message: c.msgs.InvalidStyle})
		return nil, err
	}

	c.applyLocked(Started{})
	return &Pending{c: c, req: req, prompt: prompt}, nil
}

func (p *Pending) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrGenerationInFlight
	}
	c := p.c

	c.logger.Info().Str("style", p.req.StyleKey()).Int("title_len", len(p.req.Title())).Msg("generation started")

	images, err := c.callGenerator(ctx, p.prompt)
	img, ok := firstUsable(images)
	if err == nil && !ok {
		err = thumbnail.ErrNoImageReturned
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		msg := c.failureMessage(err)
		c.logger.Warn().Err(err).Str("message", msg).Msg("generation failed")
		c.applyLocked(Failed{Err: err, Message: msg})
		return err
	}

	c.logger.Info().Int("bytes", len(img.Bytes)).Str("mime_type", img.ContentType()).Msg("generation succeeded")
	c.applyLocked(Succeeded{Image: img})
	return nil
}

// Download returns the current image and its file name. It reports false
// unless an image is loaded.
func (c *Controller) Download() (Download, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != Loaded || c.state.Image == nil {
		return Download{}, false
	}
	return Download{
		Filename: thumbnail.DownloadFilename(c.title),
		Image:    *c.state.Image,
	}, true
}

// Subscribe delivers the current snapshot and every later change. Slow
// readers only see the latest snapshot. Call cancel to stop.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

// Subscribers reports how many Subscribe channels are still open.
func (c *Controller) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Controller) callGenerator(ctx context.Context, prompt string) (images []thumbnail.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &thumbnail.RemoteError{Err: fmt.Errorf("generator panic: %v", r)}
		}
	}()
	return c.gen.GenerateImages(ctx, prompt, thumbnail.DefaultGenerateOptions)
}

func (c *Controller) failureMessage(err error) string {
	var remote *thumbnail.RemoteError
	if errors.As(err, &remote) {
		if msg := strings.TrimSpace(remote.Message); msg != "" {
			return msg
		}
		return c.msgs.GenerationFailed
	}
	if errors.Is(err, thumbnail.ErrNoImageReturned) {
		return c.msgs.NoImageReturned
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return c.msgs.GenerationFailed
}

func (c *Controller) applyLocked(ev Event) {
	next, err := Next(c.state, ev)
	if err != nil {
		c.logger.Error().Err(err).Msg("state event dropped")
		return
	}
	prev := c.state.Status
	c.state = next
	c.version++
	c.logger.Debug().Stringer("from", prev).Stringer("to", next.Status).Msg("state transition")
	c.notifyLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.state,
		Title:    c.title,
		StyleKey: c.styleKey,
		Version:  c.version,
	}
}

func (c *Controller) notifyLocked() {
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func firstUsable(images []thumbnail.Image) (thumbnail.Image, bool) {
	for _, img := range images {
		if len(img.Bytes) > 0 {
			return img, true
		}
	}
	return thumbnail.Image{}, false
}
