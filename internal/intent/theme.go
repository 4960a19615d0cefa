package intent

import "strings"

// themeAliases maps the spellings models and UIs use onto canonical states.
var themeAliases = map[string]State{
	"explore":     StateExplore,
	"exploring":   StateExplore,
	"exploration": StateExplore,
	"stealth":     StateStealth,
	"hidden":      StateStealth,
	"combat":      StateCombat,
	"battle":      StateCombat,
	"bosscombat":  StateBossCombat,
	"boss":        StateBossCombat,
	"bossfight":   StateBossCombat,
}

// ResolveTheme maps a free-form theme name onto a canonical State.
// Case, spaces, underscores and hyphens are ignored.
func ResolveTheme(name string) (State, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	s, ok := themeAliases[key]
	return s, ok
}
