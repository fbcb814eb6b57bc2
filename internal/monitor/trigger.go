package monitor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// DefaultSentinel is the trigger message that asks the harness to swap specifications.
const DefaultSentinel = "Ball close to ground"

// [Trigger] [#3] = Ball close to ground
var triggerRegex = regexp.MustCompile(`\[Trigger\]\s*\[#(\d+)\]\s*=\s*(.*)`)

// Event is one trigger line emitted by the monitor.
type Event struct {
	ID      int
	Message string
}

// StripANSI removes terminal escape sequences from monitor output.
func StripANSI(text string) string {
	return ansi.Strip(text)
}

// ParseTriggers returns every trigger event in text, in line order. Only the
// "[Trigger] [#<id>] = <message>" tag is recognized; other lines are skipped.
func ParseTriggers(text string) []Event {
	var events []Event
	scanTriggers(text, func(ev Event) bool {
		events = append(events, ev)
		return true
	})
	return events
}

// FindSentinel scans text line by line and stops at the first trigger whose message
// equals sentinel. Lines after that match are not inspected, so a second sentinel in
// the same block is never reported.
func FindSentinel(text, sentinel string) (Event, bool) {
	var found Event
	var ok bool
	scanTriggers(text, func(ev Event) bool {
		if ev.Message == sentinel {
			found, ok = ev, true
			return false
		}
		return true
	})
	return found, ok
}

func scanTriggers(text string, yield func(Event) bool) {
	for _, line := range strings.Split(StripANSI(text), "\n") {
		matches := triggerRegex.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
		if matches == nil {
			continue
		}
		id, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		if !yield(Event{ID: id, Message: strings.TrimSpace(matches[2])}) {
			return
		}
	}
}
