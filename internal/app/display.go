package app

import (
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/beacon_bridge/internal/config"
	"github.com/relabs-tech/beacon_bridge/internal/device"
	"github.com/relabs-tech/beacon_bridge/internal/display"
	"github.com/relabs-tech/beacon_bridge/internal/gps"
)

// lineHeight matches basicfont.Face7x13.
const lineHeight = 13

// panelState holds the latest events for the OLED. It is a display.Sink fed
// from MQTT and read by the refresh loop.
type panelState struct {
	mu sync.RWMutex

	fix     gps.Fix
	view    gps.View
	haveFix bool

	config     device.Snapshot
	haveConfig bool

	tempC    float64
	haveTemp bool
}

// panelSnapshot is a lock-free copy for rendering.
type panelSnapshot struct {
	fix        gps.Fix
	view       gps.View
	haveFix    bool
	config     device.Snapshot
	haveConfig bool
	tempC      float64
	haveTemp   bool
}

func (p *panelState) GPSFixChanged(fix gps.Fix, view gps.View, changed []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fix = fix
	p.view = view
	p.haveFix = !fix.IsEmpty()
}

func (p *panelState) ConfigChanged(snap device.Snapshot, changed []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = snap
	p.haveConfig = true
}

func (p *panelState) TempChanged(celsius float64, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tempC = celsius
	p.haveTemp = true
}

func (p *panelState) LogEvent(string, display.LogKind, bool) {}

func (p *panelState) snapshot() panelSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return panelSnapshot{
		fix:        p.fix,
		view:       p.view,
		haveFix:    p.haveFix,
		config:     p.config,
		haveConfig: p.haveConfig,
		tempC:      p.tempC,
		haveTemp:   p.haveTemp,
	}
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Printf("display: initialized, showing %s", cfg.DisplayContent)

	if err := drawLines(dev, []string{"", "Beacon Bridge", "Waiting for", "beacon"}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	state := &panelState{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, "display")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeEvents(client, eventTopics(cfg), state, "display"); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for {
		select {
		case <-sigCh:
			log.Println("display: shutting down")
			return nil
		case <-ticker.C:
			snap := state.snapshot()
			if err := drawLines(dev, panelLines(cfg.DisplayContent, snap)); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}

func panelLines(content string, s panelSnapshot) []string {
	if content == config.DisplayBeacon {
		return beaconLines(s)
	}
	return gpsLines(s)
}

func gpsLines(s panelSnapshot) []string {
	if !s.haveFix {
		return []string{"", "GPS Position", "Waiting..."}
	}

	lines := make([]string, 0, 4)
	if s.fix.Latitude != nil && s.fix.Longitude != nil {
		lines = append(lines,
			hemisphere(*s.fix.Latitude, "N", "S"),
			hemisphere(*s.fix.Longitude, "E", "W"),
		)
	} else {
		lines = append(lines, "No position", "")
	}
	lines = append(lines, "Fix: "+orNone(s.view.Fix))
	sats := orNone(s.view.Satellites)
	if s.fix.Altitude != nil {
		sats = fmt.Sprintf("%s Alt:%.0fm", sats, *s.fix.Altitude)
	}
	lines = append(lines, "Sats: "+sats)
	return lines
}

func beaconLines(s panelSnapshot) []string {
	if !s.haveConfig || s.config.Confirmed == nil {
		state := device.StateDisconnected
		if s.haveConfig {
			state = s.config.State
		}
		return []string{"", "Beacon", string(state)}
	}

	c := s.config.Confirmed
	lines := []string{
		fmt.Sprintf("%s  ch %d", c.Band, c.Channel),
		"Call: " + c.Callsign,
		"State: " + string(s.config.State),
	}
	if s.haveTemp {
		lines = append(lines, fmt.Sprintf("Temp: %.1fC", s.tempC))
	}
	return lines
}

func hemisphere(v float64, pos, neg string) string {
	dir := pos
	if v < 0 {
		dir = neg
		v = -v
	}
	return fmt.Sprintf("%.4f%s", v, dir)
}

func orNone(s string) string {
	if s == "" {
		return "--"
	}
	return s
}

func renderLines(bounds image.Rectangle, lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(bounds)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, lineHeight*(i+1))
		drawer.DrawString(line)
	}
	return img
}

func drawLines(dev *ssd1306.Dev, lines []string) error {
	img := renderLines(dev.Bounds(), lines)
	return dev.Draw(dev.Bounds(), img, image.Point{})
}
