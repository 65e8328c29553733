package hooks

import (
	"bytes"
	"embed"
	"strconv"
)

//go:embed assets/opencode/pulse-plugin.ts assets/openclaw/HOOK.md assets/openclaw/handler.ts
var assets embed.FS

// generatedMarker is present in every file pulse generates.
const generatedMarker = "@generated by pulse"

const commandPlaceholder = "__PULSE_COMMAND__"

// render returns an embedded asset with the hook command substituted.
func render(name, command string) []byte {
	data, err := assets.ReadFile(name)
	if err != nil {
		// Asset names are compile-time constants.
		panic(err)
	}
	return bytes.ReplaceAll(data, []byte(commandPlaceholder), []byte(strconv.Quote(command)))
}

func isGenerated(data []byte) bool {
	return bytes.Contains(data, []byte(generatedMarker))
}
