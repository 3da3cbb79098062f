// Package querystring builds paginated request query strings.
package querystring

import (
	"net/url"
	"strconv"
	"strings"
)

type param struct {
	key, value string
}

// Builder collects parameters in insertion order. The zero value is ready
// to use.
type Builder struct {
	// Page is emitted first as page=N when positive.
	Page   int
	params []param
}

// Set adds key=value, replacing the value of an existing key in place.
func (b *Builder) Set(key, value string) *Builder {
	for i := range b.params {
		if b.params[i].key == key {
			b.params[i].value = value
			return b
		}
	}
	b.params = append(b.params, param{key, value})
	return b
}

func (b *Builder) Del(key string) *Builder {
	for i := range b.params {
		if b.params[i].key == key {
			b.params = append(b.params[:i], b.params[i+1:]...)
			break
		}
	}
	return b
}

// Build returns "?page=N&k=v..." with keys and values percent-encoded, or
// "" when there is nothing to encode.
func (b *Builder) Build() string {
	var sb strings.Builder
	sep := func() {
		if sb.Len() == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
	}
	if b.Page > 0 {
		sep()
		sb.WriteString("page=")
		sb.WriteString(strconv.Itoa(b.Page))
	}
	for _, p := range b.params {
		sep()
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.value))
	}
	return sb.String()
}

func (b *Builder) String() string { return b.Build() }
