package provider

import (
	"errors"
	"strings"
)

var ErrProviderNotSupported = errors.New("provider is not supported")

type Registry struct {
	providers   map[string]Provider
	defaultCode string
}

// NewRegistry registers providers by code. The first one becomes the default.
func NewRegistry(providers ...Provider) *Registry {
	items := make(map[string]Provider, len(providers))
	defaultCode := ""
	for _, p := range providers {
		code := strings.ToLower(p.Code())
		if defaultCode == "" {
			defaultCode = code
		}
		items[code] = p
	}
	return &Registry{providers: items, defaultCode: defaultCode}
}

func (r *Registry) Get(code string) (Provider, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = r.defaultCode
	}
	provider, ok := r.providers[code]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return provider, nil
}

func (r *Registry) Default() (Provider, error) {
	return r.Get("")
}
