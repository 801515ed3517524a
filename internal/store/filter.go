package store

import (
	"context"
	"net/url"
)

// Filter selects which records a listing shows.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterDomain Filter = "domain"
)

// ParseFilter accepts "all" and "domain"; anything else is FilterAll.
func ParseFilter(s string) Filter {
	if Filter(s) == FilterDomain {
		return FilterDomain
	}
	return FilterAll
}

// Hostname returns the host of a page URL, or "" if it does not parse.
func Hostname(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// sameDomain keeps records whose URL cannot be parsed.
func sameDomain(recordURL, host string) bool {
	u, err := url.Parse(recordURL)
	if err != nil || u.Hostname() == "" {
		return true
	}
	return u.Hostname() == host
}

// FilterScreenshots applies f relative to the page currently open.
func FilterScreenshots(list []Screenshot, f Filter, currentURL string) []Screenshot {
	host := Hostname(currentURL)
	if f != FilterDomain || host == "" {
		return append([]Screenshot(nil), list...)
	}
	var out []Screenshot
	for _, s := range list {
		if sameDomain(s.URL, host) {
			out = append(out, s)
		}
	}
	return out
}

// FilterNotes applies f relative to the page currently open.
func FilterNotes(notes []TextNote, f Filter, currentURL string) []TextNote {
	host := Hostname(currentURL)
	if f != FilterDomain || host == "" {
		return append([]TextNote(nil), notes...)
	}
	var out []TextNote
	for _, n := range notes {
		if sameDomain(n.URL, host) {
			out = append(out, n)
		}
	}
	return out
}

// LoadFilter returns the stored list filter, FilterAll when unset.
func LoadFilter(ctx context.Context, kv KV) (Filter, error) {
	var s string
	if _, err := getJSON(ctx, kv, KeyFilter, &s); err != nil {
		return FilterAll, storageErr("load filter", err)
	}
	return ParseFilter(s), nil
}

// SaveFilter stores the list filter.
func SaveFilter(ctx context.Context, kv KV, f Filter) error {
	if err := kv.Set(ctx, map[string]any{KeyFilter: string(f)}); err != nil {
		return storageErr("save filter", err)
	}
	return nil
}
