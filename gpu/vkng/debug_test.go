package vkng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"golang.org/x/exp/slog"
)

func TestLevelForSeverity(t *testing.T) {
	assert.Equal(t, slog.LevelError, levelForSeverity(ext_debug_utils.SeverityError))
	assert.Equal(t, slog.LevelError, levelForSeverity(ext_debug_utils.SeverityError|ext_debug_utils.SeverityWarning))
	assert.Equal(t, slog.LevelWarn, levelForSeverity(ext_debug_utils.SeverityWarning))
	assert.Equal(t, slog.LevelInfo, levelForSeverity(ext_debug_utils.SeverityInfo))
	assert.Equal(t, slog.LevelDebug, levelForSeverity(ext_debug_utils.SeverityVerbose))
}
