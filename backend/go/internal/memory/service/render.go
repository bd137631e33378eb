package service

import (
	"fmt"
	"strings"
	"time"

	"couplecoach/backend/go/internal/models"
)

// MaxContextSessions caps how many sessions go into one context. Older
// sessions beyond the cap are dropped, not paged.
const MaxContextSessions = 20

const (
	blockSeparator = "\n\n---\n\n"

	contextPreamble = "=== KONTEXT AUS FRÜHEREN GESPRÄCHEN ===\n" +
		"Die folgenden Zusammenfassungen stammen aus früheren Sitzungen, die neueste zuerst. " +
		"Bei Widersprüchen gilt die neuere Information.\n\n"
	contextClosing = "\n\n=== ENDE DES KONTEXTS ==="

	labelCouple = "Couple Session"
	labelSolo   = "Solo Session"
	themePrefix = "Themen: "
)

// FormatSessionDate renders t as day.month.year without zero padding, the
// way the de-DE locale prints a short date.
func FormatSessionDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%d.%d.%d", t.Day(), int(t.Month()), t.Year())
}

// RenderBlock renders one session as header, analysis and optional themes line.
func RenderBlock(r models.SessionRecord, loc *time.Location) string {
	label := labelSolo
	if r.IsCouple() {
		label = labelCouple
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s - %s]\n", FormatSessionDate(r.CreatedAt, loc), label)
	if r.Analysis != nil {
		b.WriteString(*r.Analysis)
	}
	if len(r.Themes) > 0 {
		b.WriteString("\n")
		b.WriteString(themePrefix)
		b.WriteString(strings.Join(r.Themes, ", "))
	}
	return b.String()
}

// WrapContext joins rendered blocks and wraps them in the prompt envelope.
func WrapContext(blocks []string) string {
	return contextPreamble + strings.Join(blocks, blockSeparator) + contextClosing
}
