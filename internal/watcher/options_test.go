package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	assert.Equal(t, 100*time.Millisecond, opts.SettleDelay, "Default settle delay should be 100ms")
	assert.Contains(t, opts.IgnorePatterns, "*.swp", "Should ignore editor swap files by default")
	assert.Contains(t, opts.IgnorePatterns, "*~", "Should ignore editor backups by default")
}

func TestOptions_CustomValues(t *testing.T) {
	opts := Options{
		SettleDelay:    200 * time.Millisecond,
		IgnorePatterns: []string{"*.bak"},
	}
	opts.setDefaults()

	assert.Equal(t, 200*time.Millisecond, opts.SettleDelay, "Custom settle delay should be preserved")
	assert.Equal(t, []string{"*.bak"}, opts.IgnorePatterns, "Custom patterns should replace defaults")
}

func TestOptions_EmptyPatternsDisableIgnoring(t *testing.T) {
	opts := Options{IgnorePatterns: []string{}}
	opts.setDefaults()

	assert.False(t, opts.shouldIgnore("/etc/enterra/words.txt.swp"))
}

func TestOptions_ShouldIgnore(t *testing.T) {
	opts := Options{IgnorePatterns: []string{"*.tmp", ".DS_Store", "*.swp", "*~"}}
	opts.setDefaults()

	tests := []struct {
		name   string
		path   string
		expect bool
	}{
		{"DS_Store", "/conf/.DS_Store", true},
		{"tmp file", "/conf/words.tmp", true},
		{"vim swap", "/conf/.words.txt.swp", true},
		{"emacs backup", "/conf/words.txt~", true},
		{"word list", "/conf/words.txt", false},
		{"category map", "/conf/categories.yaml", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := opts.shouldIgnore(tt.path)
			assert.Equal(t, tt.expect, got)
		})
	}
}
