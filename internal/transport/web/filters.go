package web

import (
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v4"
)

type flashKind string

const (
	flashSuccess flashKind = "s"
	flashError   flashKind = "e"
)

func init() {
	_ = pongo2.RegisterFilter("flashtype", flashTypeFilter)
	_ = pongo2.RegisterFilter("flashmessage", flashMessageFilter)
	_ = pongo2.RegisterFilter("money", moneyFilter)
	_ = pongo2.RegisterFilter("humanize", humanizeFilter)
}

func flashTypeFilter(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if strings.HasPrefix(in.String(), string(flashSuccess)) {
		return pongo2.AsValue("success"), nil
	}
	return pongo2.AsValue("error"), nil
}

func flashMessageFilter(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	msg := in.String()
	if len(msg) > 0 {
		msg = msg[1:]
	}
	return pongo2.AsValue(msg), nil
}

func moneyFilter(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if !in.IsNumber() {
		return in, nil
	}
	return pongo2.AsValue(fmt.Sprintf("%.2f", in.Float())), nil
}

// humanizeFilter turns enum values such as "on-leave" into "On Leave".
func humanizeFilter(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	words := strings.FieldsFunc(in.String(), func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return pongo2.AsValue(strings.Join(words, " ")), nil
}
