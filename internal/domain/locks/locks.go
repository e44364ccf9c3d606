// Package locks виды блокировок чата для /lock и /unlock.
package locks

import (
	"fmt"
	"strings"
)

type Type string

const (
	Messages Type = "msg"
	Media    Type = "media"
	Stickers Type = "sticker"
	Polls    Type = "poll"
	Previews Type = "web"
	All      Type = "all"
)

var aliases = map[string]Type{
	"msg":      Messages,
	"messages": Messages,
	"media":    Media,
	"sticker":  Stickers,
	"stickers": Stickers,
	"gif":      Stickers,
	"poll":     Polls,
	"polls":    Polls,
	"web":      Previews,
	"preview":  Previews,
	"all":      All,
}

// Names основные имена для подсказок.
func Names() []Type { return []Type{Messages, Media, Stickers, Polls, Previews, All} }

func Parse(s string) (Type, error) {
	t, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("locks: unknown type %q", s)
	}
	return t, nil
}
