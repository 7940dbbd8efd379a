package vkng

import (
	"context"

	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"golang.org/x/exp/slog"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

func levelForSeverity(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) slog.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return slog.LevelError
	case severity&ext_debug_utils.SeverityWarning != 0:
		return slog.LevelWarn
	case severity&ext_debug_utils.SeverityInfo != 0:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func (i *Instance) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityInfo,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    i.logDebug,
	}
}

func (i *Instance) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	i.logger.Log(context.Background(), levelForSeverity(severity), data.Message,
		"type", msgType.String(),
		"severity", severity.String(),
	)
	return false
}
