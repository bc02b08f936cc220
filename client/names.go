package client

import (
	"strings"
	"unicode"
)

// ToCamelCase converts snake_case to CamelCase: "scene_created" -> "SceneCreated".
func ToCamelCase(s string) string {
	var b strings.Builder
	for _, word := range strings.Split(s, "_") {
		if word == "" {
			continue
		}
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// ToSnakeCase converts CamelCase to snake_case: "SceneCreated" -> "scene_created".
// Every upper-case letter after the first rune starts a new word, so "InputUUID" becomes "input_u_u_i_d".
func ToSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// EventName normalizes a handler or event name to the CamelCase event type used on the wire.
// "on_scene_created", "scene_created" and "SceneCreated" all yield "SceneCreated".
func EventName(name string) string {
	name = strings.TrimPrefix(name, "on_")
	if !strings.Contains(name, "_") && name != "" && unicode.IsUpper([]rune(name)[0]) {
		return name
	}
	return ToCamelCase(name)
}
