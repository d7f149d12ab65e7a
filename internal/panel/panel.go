// Package panel is the headless model of the mod drop box: the area a mod
// folder is dropped on to be packed, plus the selected rebuild workspace and
// its mod version.
//
// Every change goes through a method that builds the next [State] and
// publishes it to subscribers. Nothing outside the package mutates state.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"mmt/internal/fs"
	"mmt/internal/lsx"
	"mmt/internal/pack"
	"mmt/internal/settings"
)

// Box and text colours.
const (
	ColorLightBlue    = "LightBlue"
	ColorLightGreen   = "LightGreen"
	ColorMidnightBlue = "MidnightBlue"
	ColorBlack        = "Black"
	ColorWhite        = "White"
)

// Instructions shown in the box.
const (
	DropMessage        = "Drop a mod workspace folder here to pack it"
	UnavailableMessage = "Packing is unavailable until a packer is configured"
)

// Errors returned by [Panel.Drop].
var (
	ErrPackInProgress  = errors.New("a pack is already in progress")
	ErrPackUnavailable = errors.New("packing is unavailable")
)

// State is an immutable snapshot of the panel.
type State struct {
	PackAllowed      bool
	Busy             bool
	BoxColor         string
	DescriptionColor string
	Instructions     string
	CanRebuild       bool
	LastDirectory    string
	Version          uint64
	HasVersion       bool
}

// VersionLookup finds and upgrades the meta file of a workspace.
// [lsx.Updater] implements it.
type VersionLookup interface {
	Lookup(workDir string) (lsx.Result, error)
}

// Options configures [New].
type Options struct {
	// FS is used to check that selected directories exist. Defaults to the
	// real filesystem.
	FS       fs.FS
	Settings settings.Store
	Lookup   VersionLookup
	Packer   pack.Packer
	Logger   *slog.Logger
}

// Panel is safe for concurrent use. Subscribers are called in transition
// order, with the panel locked, and must not call back into it.
type Panel struct {
	fs       fs.FS
	settings settings.Store
	lookup   VersionLookup
	packer   pack.Packer
	gate     *pack.Gate
	log      *slog.Logger

	mu        sync.Mutex
	state     State
	available bool
	observers map[int]func(State)
	nextID    int
}

// New builds a panel in its idle state and restores the stored rebuild
// workspace. A stored workspace that no longer exists is cleared from the
// settings. The returned error comes from that restore step; the panel is
// usable either way.
func New(opts Options) (*Panel, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.FS == nil {
		opts.FS = fs.NewReal()
	}

	p := &Panel{
		fs:        opts.FS,
		settings:  opts.Settings,
		lookup:    opts.Lookup,
		packer:    opts.Packer,
		gate:      pack.NewGate(),
		log:       opts.Logger,
		available: opts.Packer != nil,
		observers: map[int]func(State){},
	}

	p.state = p.idle(p.state)

	stored := p.settings.RebuildLocation()
	if stored == "" {
		return p, nil
	}

	if p.isDir(stored) {
		return p, p.SelectDirectory(stored)
	}

	p.log.Debug("stored rebuild location is gone", "path", stored)
	p.settings.SetRebuildLocation("")

	if err := p.settings.Save(); err != nil {
		return p, fmt.Errorf("clearing rebuild location: %w", err)
	}

	return p, nil
}

// State returns the current snapshot.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Subscribe registers fn for every future snapshot and returns a function
// that removes it.
func (p *Panel) Subscribe(fn func(State)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	p.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.observers, id)
			p.mu.Unlock()
		})
	}
}

// publish must be called with p.mu held.
func (p *Panel) publish(next State) {
	p.state = next

	for _, fn := range p.observers {
		fn(next)
	}
}

// SelectDirectory makes dir the rebuild workspace. An existing directory that
// differs from the stored one is persisted. The version is cleared and, when
// dir is non-empty, looked up again; a miss leaves it unset. Lookup and save
// errors are returned after the new state has been published.
func (p *Panel) SelectDirectory(dir string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error

	if dir != "" && p.isDir(dir) && dir != p.settings.RebuildLocation() {
		p.settings.SetRebuildLocation(dir)

		if err := p.settings.Save(); err != nil {
			errs = append(errs, fmt.Errorf("saving rebuild location: %w", err))
		}
	}

	next := p.state
	next.LastDirectory = dir
	next.CanRebuild = dir != ""
	next.Version, next.HasVersion = 0, false

	if next.CanRebuild {
		res, err := p.lookup.Lookup(dir)

		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("looking up version: %w", err))
		case res.Found:
			next.Version, next.HasVersion = res.Version, true
		default:
			p.log.Debug("no version found", "workspace", dir, "meta", res.Path)
		}
	}

	p.publish(next)

	return errors.Join(errs...)
}

// DragEnter darkens the box: green while a drop would be accepted, midnight
// blue otherwise.
func (p *Panel) DragEnter() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.publish(darken(p.state))
}

// DragLeave restores the light colours.
func (p *Panel) DragLeave() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.publish(lighten(p.state))
}

// SetPackAvailable enables or disables packing, e.g. when the packer's
// tooling is missing. It has no effect on a pack in flight.
func (p *Panel) SetPackAvailable(available bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.available = available && p.packer != nil

	if p.state.Busy {
		return
	}

	if p.available {
		p.publish(p.idle(p.state))

		return
	}

	next := p.state
	next.PackAllowed = false
	next.Instructions = UnavailableMessage
	p.publish(darken(next))
}

// Drop packs sources in the background. The busy state is published before
// Drop returns and the idle state only after the packer finished, whatever
// the outcome. A drop while busy or unavailable is refused.
func (p *Panel) Drop(ctx context.Context, sources []string) (*pack.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Busy {
		return nil, ErrPackInProgress
	}

	if !p.available {
		return nil, ErrPackUnavailable
	}

	task, err := p.gate.Go(ctx, func(ctx context.Context) ([]string, error) {
		return p.packer.Pack(ctx, sources)
	}, p.finishDrop)
	if err != nil {
		if errors.Is(err, pack.ErrBusy) {
			return nil, ErrPackInProgress
		}

		return nil, err
	}

	next := p.state
	next.Busy = true
	next.PackAllowed = false
	next.Instructions = DropMessage
	p.publish(darken(next))

	return task, nil
}

func (p *Panel) finishDrop(outputs []string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.log.Warn("pack failed", "err", err)
	} else {
		p.log.Debug("pack finished", "archives", len(outputs))
	}

	next := p.state
	next.Busy = false

	if p.available {
		p.publish(p.idle(next))

		return
	}

	next.Instructions = UnavailableMessage
	p.publish(darken(next))
}

// idle returns s with packing allowed and light colours.
func (p *Panel) idle(s State) State {
	if !p.available {
		s.PackAllowed = false
		s.Instructions = UnavailableMessage

		return darken(s)
	}

	s.PackAllowed = true
	s.Busy = false
	s.Instructions = DropMessage

	return lighten(s)
}

func darken(s State) State {
	if s.PackAllowed {
		s.BoxColor, s.DescriptionColor = ColorLightGreen, ColorBlack
	} else {
		s.BoxColor, s.DescriptionColor = ColorMidnightBlue, ColorWhite
	}

	return s
}

func lighten(s State) State {
	s.BoxColor, s.DescriptionColor = ColorLightBlue, ColorBlack

	return s
}

func (p *Panel) isDir(path string) bool {
	info, err := p.fs.Stat(path)

	return err == nil && info.IsDir()
}
