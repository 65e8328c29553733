package testutil

// UserSettings is a Claude Code settings document with user-authored hooks
// and unrelated keys, formatted the way Claude Code writes it.
const UserSettings = `{
  "model": "opus",
  "permissions": {
    "allow": [
      "Bash(npm run test:*)"
    ]
  },
  "hooks": {
    "PreToolUse": [
      {
        "matcher": "Bash",
        "hooks": [
          {
            "type": "command",
            "command": "~/bin/audit-bash.sh"
          }
        ]
      }
    ],
    "PreCompact": [
      {
        "matcher": "",
        "hooks": [
          {
            "type": "command",
            "command": "echo compacting"
          }
        ]
      }
    ]
  },
  "statusLine": {
    "type": "command",
    "command": "~/.claude/statusline.sh",
    "padding": 0
  }
}`

// PulseEntry renders one pulse-owned hook entry as Claude Code stores it.
func PulseEntry(event string) string {
	return `{"matcher":"","hooks":[{"type":"command","command":"pulse emit ` + event + `","async":true}]}`
}
