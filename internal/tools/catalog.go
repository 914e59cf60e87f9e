package tools

import (
	"net/http"
	"strings"
)

// Catalog returns the tools served by this host, in registration order.
// baseURL is the public address the control server uses to reach them.
func Catalog(baseURL string) []Tool {
	base := strings.TrimRight(baseURL, "/")
	return []Tool{
		{
			Descriptor: Descriptor{
				Name:        "get_date_time",
				Description: "Get the current date & time",
				Endpoint:    base + "/tools/get_date_time",
				// GET tools receive their parameters as query string values.
				Method:     http.MethodGet,
				Parameters: EmptyParameters(),
				Kind:       DefaultKind,
			},
			Handler: GetDateTime,
		},
		{
			Descriptor: Descriptor{
				Name:        "convert_timezone",
				Description: "Convert a timestamp (default: now) into the given IANA timezone",
				Endpoint:    base + "/tools/convert_timezone",
				Method:      http.MethodPost,
				Parameters: &Parameters{
					Type: "object",
					Properties: map[string]Property{
						"timezone": {
							Type:        "string",
							Description: "IANA timezone name, e.g. Europe/Berlin",
						},
						"timestamp": {
							Type:        "string",
							Description: "RFC 3339 timestamp to convert; defaults to the current time",
						},
					},
					Required: []string{"timezone"},
				},
				Kind: DefaultKind,
			},
			Handler: ConvertTimezone,
		},
	}
}
