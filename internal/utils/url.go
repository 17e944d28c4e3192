package utils

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`(?i)https?://[^\s<>]+`)

var inviteRegex = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:discord\.gg|discord\.io|discord\.me|dsc\.gg|(?:discord|discordapp)\.com/invite)/[a-z0-9-]+`)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

// ExtractURLs returns every http(s) URL in content, in order of appearance.
func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// ExtractInvites returns chat invite links, with or without a scheme.
func ExtractInvites(content string) []string {
	return inviteRegex.FindAllString(content, -1)
}

// NormalizeURL lowercases and punycodes the host, strips credentials,
// fragments and tracking parameters, and sorts the query.
func NormalizeURL(raw string) (string, string, error) {
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)

	host := strings.ToLower(parsed.Hostname())
	asciiHost, err := idna.ToASCII(host)
	if err == nil {
		host = asciiHost
	}
	if port := parsed.Port(); port != "" {
		parsed.Host = host + ":" + port
	} else {
		parsed.Host = host
	}
	parsed.Fragment = ""
	parsed.User = nil

	query := parsed.Query()
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = normalizeQuery(query)

	return parsed.String(), host, nil
}

func normalizeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clean := url.Values{}
	for _, key := range keys {
		clean[key] = values[key]
	}
	return clean.Encode()
}
