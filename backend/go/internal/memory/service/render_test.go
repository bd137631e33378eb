package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSessionDate(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	assert.Equal(t, "5.3.2026", FormatSessionDate(time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, "24.12.2025", FormatSessionDate(time.Date(2025, 12, 24, 9, 0, 0, 0, time.UTC), nil))
	// 23:30 UTC is already the next day in Berlin.
	assert.Equal(t, "1.1.2026", FormatSessionDate(time.Date(2025, 12, 31, 23, 30, 0, 0, time.UTC), berlin))
}

func TestRenderBlock(t *testing.T) {
	created := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	solo := soloSession("s1", "user-1", created, "Nähe", "Streit")
	assert.Equal(t, "[5.3.2026 - Solo Session]\nanalysis of s1\nThemen: Nähe, Streit", RenderBlock(solo, time.UTC))

	couple := coupleSession("c1", "user-1", "couple-1", created)
	assert.Equal(t, "[5.3.2026 - Couple Session]\nanalysis of c1", RenderBlock(couple, time.UTC))
}

func TestRenderBlockWithoutThemesHasNoThemesLine(t *testing.T) {
	block := RenderBlock(soloSession("s1", "user-1", baseTime), time.UTC)
	assert.NotContains(t, block, themePrefix)
}

func TestWrapContext(t *testing.T) {
	wrapped := WrapContext([]string{"a", "b"})

	assert.True(t, strings.HasPrefix(wrapped, contextPreamble))
	assert.True(t, strings.HasSuffix(wrapped, contextClosing))
	assert.Contains(t, wrapped, "a\n\n---\n\nb")
	assert.Contains(t, wrapped, "neueste zuerst")
}
