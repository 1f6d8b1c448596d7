package onvif

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/camarr/camarr/internal/models"
)

// Namespace-tolerant extractors. Devices disagree on prefixes (tt:, trt:,
// tds:, or none), so single-value extraction matches on local name only.
var (
	profileTokenRe = regexp.MustCompile(`(?s)<[^>]*:Profiles[^>]*\stoken="([^"]+)"`)
	streamURIRe    = regexp.MustCompile(`(?s)<[^:]*:?Uri>(.*?)</[^:]*:?Uri>`)
	ptzXAddrRe     = regexp.MustCompile(`(?s)<[^:]*:PTZ>.*?<[^:]*:XAddr>(.*?)</[^:]*:XAddr>`)

	dateTimeFieldRes = map[string]*regexp.Regexp{
		"Year":   regexp.MustCompile(`<[^:]*:?Year>(\d+)</[^:]*:?Year>`),
		"Month":  regexp.MustCompile(`<[^:]*:?Month>(\d+)</[^:]*:?Month>`),
		"Day":    regexp.MustCompile(`<[^:]*:?Day>(\d+)</[^:]*:?Day>`),
		"Hour":   regexp.MustCompile(`<[^:]*:?Hour>(\d+)</[^:]*:?Hour>`),
		"Minute": regexp.MustCompile(`<[^:]*:?Minute>(\d+)</[^:]*:?Minute>`),
		"Second": regexp.MustCompile(`<[^:]*:?Second>(\d+)</[^:]*:?Second>`),
	}
)

// parseFirstProfileToken extracts the token attribute of the first Profiles
// element in a GetProfiles response.
func parseFirstProfileToken(xmlText string) (string, error) {
	if m := profileTokenRe.FindStringSubmatch(xmlText); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: no profile token in GetProfiles response", models.ErrProtocolFailure)
}

// parseProfileTokens extracts every Profiles token attribute in order.
func parseProfileTokens(xmlText string) ([]string, error) {
	matches := profileTokenRe.FindAllStringSubmatch(xmlText, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no profile token in GetProfiles response", models.ErrProtocolFailure)
	}
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m[1])
	}
	return tokens, nil
}

// parseStreamURI extracts the first Uri element text from a GetStreamUri
// response.
func parseStreamURI(xmlText string) (string, error) {
	if m := streamURIRe.FindStringSubmatch(xmlText); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	return "", fmt.Errorf("%w: no stream URI in GetStreamUri response", models.ErrProtocolFailure)
}

// parsePTZXAddr extracts the PTZ service XAddr from a GetCapabilities
// response.
func parsePTZXAddr(xmlText string) (string, error) {
	if m := ptzXAddrRe.FindStringSubmatch(xmlText); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	return "", fmt.Errorf("%w: PTZ service not found in capabilities", models.ErrProtocolFailure)
}

// parseSystemDateTime extracts the six UTC fields from a
// GetSystemDateAndTime response.
func parseSystemDateTime(xmlText string) (DateTime, error) {
	var dt DateTime
	fields := map[string]*int{
		"Year": &dt.Year, "Month": &dt.Month, "Day": &dt.Day,
		"Hour": &dt.Hour, "Minute": &dt.Minute, "Second": &dt.Second,
	}
	for name, dest := range fields {
		m := dateTimeFieldRes[name].FindStringSubmatch(xmlText)
		if m == nil {
			return DateTime{}, fmt.Errorf("%w: failed to parse %s", models.ErrProtocolFailure, name)
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return DateTime{}, fmt.Errorf("%w: failed to parse %s: %w", models.ErrProtocolFailure, name, err)
		}
		*dest = v
	}
	return dt, nil
}

// DiscoveredDevice is one WS-Discovery probe match.
type DiscoveredDevice struct {
	Address      string  `json:"address"`
	Port         int     `json:"port"`
	Hostname     string  `json:"hostname"`
	Name         string  `json:"name"`
	Manufacturer string  `json:"manufacturer"`
	XAddr        *string `json:"xaddr"`
}

// parseProbeMatch walks a WS-Discovery reply and extracts the first XAddrs
// token plus the name/hardware scopes. Discovery replies are structured
// enough to warrant a token walk instead of single-value regexes; element
// matching still ignores namespace prefixes.
func parseProbeMatch(xmlText, ipAddr string) (*DiscoveredDevice, bool) {
	var xaddrsText, scopesText string
	inProbeMatch := false

	dec := xml.NewDecoder(strings.NewReader(xmlText))
	var current string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
			if strings.HasSuffix(current, "ProbeMatch") {
				inProbeMatch = true
			}
		case xml.EndElement:
			current = ""
		case xml.CharData:
			if !inProbeMatch {
				continue
			}
			switch {
			case strings.HasSuffix(current, "XAddrs") && xaddrsText == "":
				xaddrsText = strings.TrimSpace(string(t))
			case strings.HasSuffix(current, "Scopes") && scopesText == "":
				scopesText = strings.TrimSpace(string(t))
			}
		}
	}

	if !inProbeMatch {
		return nil, false
	}

	var xaddr *string
	if first := firstField(xaddrsText); first != "" {
		xaddr = &first
	}

	name := "Unknown Camera"
	manufacturer := "Unknown"
	hardware := ""
	for _, scope := range strings.Fields(scopesText) {
		decoded, err := url.QueryUnescape(scope)
		if err != nil {
			decoded = scope
		}
		switch {
		case strings.Contains(decoded, "/name/"):
			parts := strings.Split(decoded, "/name/")
			name = parts[len(parts)-1]
		case strings.Contains(decoded, "/hardware/"):
			parts := strings.Split(decoded, "/hardware/")
			hardware = parts[len(parts)-1]
		}
	}
	if manufacturer == "Unknown" && hardware != "" {
		manufacturer = hardware
	}

	port := 80
	if xaddr != nil {
		if u, err := url.Parse(*xaddr); err == nil {
			if p := u.Port(); p != "" {
				if n, err := strconv.Atoi(p); err == nil {
					port = n
				}
			}
		}
	}

	return &DiscoveredDevice{
		Address:      ipAddr,
		Port:         port,
		Hostname:     "",
		Name:         name,
		Manufacturer: manufacturer,
		XAddr:        xaddr,
	}, true
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
