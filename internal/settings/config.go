// Package settings owns the persisted plugin configuration.
package settings

import (
	"github.com/MikeSquared-Agency/chatmark/internal/message"
)

// StorageKey is the key the configuration is stored under.
const StorageKey = "ai_assistant_config"

type ActionConfig struct {
	Type    message.Action `json:"type"`
	Label   string         `json:"label"`
	Icon    string         `json:"icon"`
	Enabled bool           `json:"enabled"`
}

type JumpConfig struct {
	Enabled            bool   `json:"enabled"`
	ShowJumpButton     bool   `json:"showJumpButton"`
	JumpButtonPosition string `json:"jumpButtonPosition"` // top-right, bottom-right, top-left, bottom-left
}

type StorageConfig struct {
	MaxMessages  int    `json:"maxMessages"`
	AutoExport   bool   `json:"autoExport"`
	ExportFormat string `json:"exportFormat"` // json, markdown, txt
}

type UIConfig struct {
	Theme            string `json:"theme"` // light, dark, auto
	ShowMessageCount bool   `json:"showMessageCount"`
	ShowTimestamp    bool   `json:"showTimestamp"`
}

// PluginConfig is the whole configuration object.
type PluginConfig struct {
	EnabledSites   []message.Site `json:"enabledSites"`
	MessageActions []ActionConfig `json:"messageActions"`
	JumpConfig     JumpConfig     `json:"jumpConfig"`
	StorageConfig  StorageConfig  `json:"storageConfig"`
	UIConfig       UIConfig       `json:"uiConfig"`
}

// Default returns a fresh copy of the default configuration.
func Default() PluginConfig {
	return PluginConfig{
		EnabledSites: []message.Site{message.SiteChatGPT, message.SiteClaude, message.SiteGemini, message.SiteDoubao},
		MessageActions: []ActionConfig{
			{Type: message.ActionCopy, Label: "复制", Icon: "📋", Enabled: true},
			{Type: message.ActionQuote, Label: "引用", Icon: "💬", Enabled: true},
			{Type: message.ActionShare, Label: "分享", Icon: "🔗", Enabled: true},
			{Type: message.ActionJump, Label: "跳转", Icon: "⬆️", Enabled: true},
			{Type: message.ActionExport, Label: "导出", Icon: "📥", Enabled: true},
		},
		JumpConfig: JumpConfig{
			Enabled:            true,
			ShowJumpButton:     true,
			JumpButtonPosition: "top-right",
		},
		StorageConfig: StorageConfig{
			MaxMessages:  1000,
			AutoExport:   false,
			ExportFormat: "markdown",
		},
		UIConfig: UIConfig{
			Theme:            "auto",
			ShowMessageCount: true,
			ShowTimestamp:    true,
		},
	}
}

func (c PluginConfig) SiteEnabled(site message.Site) bool {
	for _, s := range c.EnabledSites {
		if s == site {
			return true
		}
	}
	return false
}

// ActionEnabled reports whether action is listed and enabled. Jumps also
// need the jump feature itself enabled.
func (c PluginConfig) ActionEnabled(action message.Action) bool {
	if action == message.ActionJump && !c.JumpConfig.Enabled {
		return false
	}
	for _, a := range c.MessageActions {
		if a.Type == action {
			return a.Enabled
		}
	}
	return false
}
