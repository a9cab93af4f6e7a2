package colormode

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	portalDest       = "org.freedesktop.portal.Desktop"
	portalPath       = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	portalSettings   = "org.freedesktop.portal.Settings"
	appearanceNS     = "org.freedesktop.appearance"
	colorSchemeKey   = "color-scheme"
	colorSchemeDark  = uint32(1)
	signalBufferSize = 8
)

// PortalSignal reads the desktop's colour-scheme preference through the
// XDG desktop portal on the session bus and follows its SettingChanged
// signal.
type PortalSignal struct {
	conn   *dbus.Conn
	logger zerolog.Logger

	mu     sync.Mutex
	dark   bool
	subs   map[uint64]func(bool)
	nextID uint64

	signals chan *dbus.Signal
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewPortalSignal connects to the session bus and reads the current value.
func NewPortalSignal(ctx context.Context, logger zerolog.Logger) (*PortalSignal, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	p := &PortalSignal{
		conn:    conn,
		logger:  logger.With().Str("component", "portal").Logger(),
		subs:    make(map[uint64]func(bool)),
		signals: make(chan *dbus.Signal, signalBufferSize),
		done:    make(chan struct{}),
	}

	dark, err := p.read(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.dark = dark

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(portalPath),
		dbus.WithMatchInterface(portalSettings),
		dbus.WithMatchMember("SettingChanged"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("watch portal settings: %w", err)
	}
	conn.Signal(p.signals)

	p.wg.Add(1)
	go p.loop()

	return p, nil
}

// PrefersDark implements Signal.
func (p *PortalSignal) PrefersDark() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dark
}

// Subscribe implements Signal.
func (p *PortalSignal) Subscribe(fn func(bool)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Close stops following the portal and closes the bus connection.
func (p *PortalSignal) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		p.conn.RemoveSignal(p.signals)
		err = p.conn.Close()
		p.wg.Wait()
	})
	return err
}

func (p *PortalSignal) read(ctx context.Context) (bool, error) {
	obj := p.conn.Object(portalDest, portalPath)

	var v dbus.Variant
	call := obj.CallWithContext(ctx, portalSettings+".ReadOne", 0, appearanceNS, colorSchemeKey)
	if call.Err != nil {
		// Older portals only have Read, which wraps the value twice.
		call = obj.CallWithContext(ctx, portalSettings+".Read", 0, appearanceNS, colorSchemeKey)
	}
	if err := call.Store(&v); err != nil {
		return false, fmt.Errorf("read %s %s: %w", appearanceNS, colorSchemeKey, err)
	}
	return isDark(v), nil
}

func (p *PortalSignal) loop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case sig, ok := <-p.signals:
			if !ok {
				return
			}
			p.handle(sig)
		}
	}
}

func (p *PortalSignal) handle(sig *dbus.Signal) {
	if sig == nil || len(sig.Body) < 3 {
		return
	}
	ns, _ := sig.Body[0].(string)
	key, _ := sig.Body[1].(string)
	if ns != appearanceNS || key != colorSchemeKey {
		return
	}
	v, ok := sig.Body[2].(dbus.Variant)
	if !ok {
		p.logger.Warn().Str("type", fmt.Sprintf("%T", sig.Body[2])).Msg("unexpected color-scheme payload")
		return
	}

	dark := isDark(v)
	p.mu.Lock()
	p.dark = dark
	fns := make([]func(bool), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	p.logger.Debug().Bool("prefersDark", dark).Msg("color-scheme changed")
	for _, fn := range fns {
		fn(dark)
	}
}

// isDark interprets a color-scheme value: 0 no preference, 1 dark, 2 light.
func isDark(v dbus.Variant) bool {
	val := v.Value()
	for {
		inner, ok := val.(dbus.Variant)
		if !ok {
			break
		}
		val = inner.Value()
	}
	n, ok := val.(uint32)
	return ok && n == colorSchemeDark
}
