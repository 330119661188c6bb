package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var volumeRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	id     int
	volume int
	app    string
}

type fadeStep struct {
	id   int
	from int
	to   int
}

// Ducker fades down other applications' PulseAudio output streams while
// the assistant speaks and restores them afterwards. Streams whose
// application.name matches selfApps are left alone.
type Ducker struct {
	mu        sync.Mutex
	active    bool
	selfApps  []string
	original  map[int]int // sink input id -> volume before ducking
	minVolume int
}

func NewDucker(selfApps []string, minVolume int) *Ducker {
	if minVolume < 0 {
		minVolume = 0
	}
	if minVolume > 150 {
		minVolume = 150
	}
	return &Ducker{
		selfApps:  append([]string(nil), selfApps...),
		original:  make(map[int]int),
		minVolume: minVolume,
	}
}

// Duck lowers every foreign stream to volume*factor (bounded below by
// minVolume), fading over the given duration. Calling it while already
// ducked is a no-op.
func (d *Ducker) Duck(ctx context.Context, factor float64, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := listSinkInputs(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	d.original = make(map[int]int)
	var steps []fadeStep
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		target := float64(s.volume) * factor
		if target < float64(d.minVolume) {
			target = float64(d.minVolume)
		}
		d.original[s.id] = s.volume
		steps = append(steps, fadeStep{id: s.id, from: s.volume, to: int(math.Round(target))})
	}

	if len(steps) > 0 {
		if err := fade(ctx, steps, duration); err != nil {
			return err
		}
	}
	d.active = true
	return nil
}

// Unduck restores the volumes captured by Duck. Streams that appeared
// after ducking are left untouched.
func (d *Ducker) Unduck(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := listSinkInputs(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	var steps []fadeStep
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		if orig, ok := d.original[s.id]; ok {
			steps = append(steps, fadeStep{id: s.id, from: s.volume, to: orig})
		}
	}

	if len(steps) > 0 {
		if err := fade(ctx, steps, duration); err != nil {
			return err
		}
	}
	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isSelf(s sinkInput) bool {
	for _, app := range d.selfApps {
		if s.app == app {
			return true
		}
	}
	return false
}

// fade ramps every step's volume linearly in 10ms slices.
func fade(ctx context.Context, steps []fadeStep, duration time.Duration) error {
	const slice = 10 * time.Millisecond

	n := int(duration / slice)
	if n < 1 {
		n = 1
	}

	for i := 0; i <= n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frac := float64(i) / float64(n)
		for _, s := range steps {
			v := int(math.Round(float64(s.from) + float64(s.to-s.from)*frac))
			if err := setSinkInputVolume(ctx, s.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", s.id, err)
			}
		}
		if i < n {
			time.Sleep(duration / time.Duration(n))
		}
	}
	return nil
}

func listSinkInputs(ctx context.Context) ([]sinkInput, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	if len(blocks) <= 1 {
		return nil
	}

	var res []sinkInput
	for _, block := range blocks[1:] {
		nl := strings.IndexByte(block, '\n')
		if nl <= 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(block[:nl]))
		if err != nil {
			continue
		}

		s := sinkInput{id: id}
		for _, line := range strings.Split(block[nl+1:], "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "Volume:") && s.volume == 0 {
				if m := volumeRe.FindStringSubmatch(line); len(m) >= 2 {
					s.volume, _ = strconv.Atoi(m[1])
				}
			}
			if strings.HasPrefix(line, "application.name =") && s.app == "" {
				if _, quoted, ok := strings.Cut(line, `"`); ok {
					s.app, _, _ = strings.Cut(quoted, `"`)
				}
			}
		}
		if s.volume == 0 && s.app == "" {
			continue
		}
		res = append(res, s)
	}
	return res
}

func setSinkInputVolume(ctx context.Context, id, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 150 {
		percent = 150
	}
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume",
		strconv.Itoa(id), fmt.Sprintf("%d%%", percent)).Run()
}
